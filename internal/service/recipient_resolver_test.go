package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coopvalles/asamblea-api/internal/models"
	appErrors "github.com/coopvalles/asamblea-api/pkg/errors"
)

type directoryStub struct {
	users     map[string]models.User
	ids       []string
	idsByRole map[models.UserRole][]string
	err       error
	lastRole  *models.UserRole
	roleSet   bool
}

func (s *directoryStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if user, ok := s.users[id]; ok {
		return &user, nil
	}
	return nil, sql.ErrNoRows
}

func (s *directoryStub) ListRecipientIDs(ctx context.Context, role *models.UserRole) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.lastRole = role
	s.roleSet = true
	if role != nil {
		return s.idsByRole[*role], nil
	}
	return s.ids, nil
}

func strPtr(s string) *string { return &s }

func TestResolveMassIgnoresRoleFilter(t *testing.T) {
	dir := &directoryStub{ids: []string{"u-1", "u-2", "u-3"}}
	resolver := NewRecipientResolver(dir, nil)

	role := models.RoleOperator
	ids, err := resolver.Resolve(context.Background(), models.AnnouncementKindMass, &role, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"u-1", "u-2", "u-3"}, ids)
	assert.True(t, dir.roleSet)
	assert.Nil(t, dir.lastRole)
}

func TestResolveFilteredByRole(t *testing.T) {
	dir := &directoryStub{
		ids:       []string{"u-1", "u-2", "u-3"},
		idsByRole: map[models.UserRole][]string{models.RoleOperator: {"u-2"}},
	}
	resolver := NewRecipientResolver(dir, nil)

	role := models.RoleOperator
	ids, err := resolver.Resolve(context.Background(), models.AnnouncementKindFiltered, &role, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"u-2"}, ids)
	require.NotNil(t, dir.lastRole)
	assert.Equal(t, models.RoleOperator, *dir.lastRole)
}

func TestResolveFilteredWithoutRoleMatchesEveryone(t *testing.T) {
	dir := &directoryStub{ids: []string{"u-1", "u-2"}}
	resolver := NewRecipientResolver(dir, nil)

	ids, err := resolver.Resolve(context.Background(), models.AnnouncementKindFiltered, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"u-1", "u-2"}, ids)
}

func TestResolveEmptySetIsAnError(t *testing.T) {
	dir := &directoryStub{idsByRole: map[models.UserRole][]string{}}
	resolver := NewRecipientResolver(dir, nil)

	role := models.RoleSupervisor
	_, err := resolver.Resolve(context.Background(), models.AnnouncementKindFiltered, &role, nil)
	assert.ErrorIs(t, err, appErrors.ErrNoRecipients)
}

func TestResolveIndividual(t *testing.T) {
	dir := &directoryStub{users: map[string]models.User{
		"u-1": {ID: "u-1", Email: strPtr("ana@coop.test"), Active: true},
	}}
	resolver := NewRecipientResolver(dir, nil)

	ids, err := resolver.Resolve(context.Background(), models.AnnouncementKindIndividual, nil, strPtr("u-1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"u-1"}, ids)
}

func TestResolveIndividualRejectsUndeliverableTargets(t *testing.T) {
	dir := &directoryStub{users: map[string]models.User{
		"inactive": {ID: "inactive", Email: strPtr("x@coop.test"), Active: false},
		"no-login": {ID: "no-login", Email: nil, Active: true},
	}}
	resolver := NewRecipientResolver(dir, nil)

	for _, target := range []string{"missing", "inactive", "no-login"} {
		_, err := resolver.Resolve(context.Background(), models.AnnouncementKindIndividual, nil, strPtr(target))
		assert.ErrorIs(t, err, appErrors.ErrInvalidTarget, target)
	}
}

func TestResolveIndividualRequiresTarget(t *testing.T) {
	resolver := NewRecipientResolver(&directoryStub{}, nil)

	_, err := resolver.Resolve(context.Background(), models.AnnouncementKindIndividual, nil, nil)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
