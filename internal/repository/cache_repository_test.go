package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/coopvalles/asamblea-api/pkg/errors"
)

func TestCacheRepositoryNilClientDegradesToMiss(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	_, err := repo.GetUnreadCount(ctx, "u-1")
	assert.ErrorIs(t, err, appErrors.ErrCacheMiss)

	assert.NoError(t, repo.SetUnreadCount(ctx, "u-1", 3, 0))
	assert.NoError(t, repo.InvalidateUnreadCount(ctx, "u-1", "u-2"))
	assert.NoError(t, repo.Close())
}
