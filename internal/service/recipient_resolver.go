package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/coopvalles/asamblea-api/internal/models"
	appErrors "github.com/coopvalles/asamblea-api/pkg/errors"
)

type recipientDirectory interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ListRecipientIDs(ctx context.Context, role *models.UserRole) ([]string, error)
}

// RecipientResolver turns an aviso's targeting into a concrete recipient set.
// It runs exactly once per announcement, at send time; the resulting set is
// frozen — later roster changes never touch already-sent deliveries.
type RecipientResolver struct {
	users  recipientDirectory
	logger *zap.Logger
}

// NewRecipientResolver builds a resolver over the user directory.
func NewRecipientResolver(users recipientDirectory, logger *zap.Logger) *RecipientResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecipientResolver{users: users, logger: logger}
}

// Resolve computes the recipient ids for the given targeting.
//   - MASS: every active account with a login identity; any filter is ignored.
//   - FILTERED: active accounts of the given role, or all of them without one.
//   - INDIVIDUAL: the single target; it must be an active account with a
//     login identity.
//
// An empty result is a hard error, never a silent zero-delivery announcement.
func (r *RecipientResolver) Resolve(ctx context.Context, kind models.AnnouncementKind, roleFilter *models.UserRole, targetUserID *string) ([]string, error) {
	switch kind {
	case models.AnnouncementKindIndividual:
		return r.resolveIndividual(ctx, targetUserID)
	case models.AnnouncementKindMass:
		roleFilter = nil
	case models.AnnouncementKindFiltered:
		// role filter optional; nil means every role
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown announcement kind")
	}

	ids, err := r.users.ListRecipientIDs(ctx, roleFilter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve recipients")
	}
	if len(ids) == 0 {
		return nil, appErrors.ErrNoRecipients
	}
	return ids, nil
}

func (r *RecipientResolver) resolveIndividual(ctx context.Context, targetUserID *string) ([]string, error) {
	if targetUserID == nil || *targetUserID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "individual announcement requires a target user")
	}

	user, err := r.users.FindByID(ctx, *targetUserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidTarget
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve target user")
	}
	if !user.Active || user.Email == nil {
		r.logger.Debug("rejected individual target without deliverable account", zap.String("user_id", user.ID))
		return nil, appErrors.ErrInvalidTarget
	}

	return []string{user.ID}, nil
}
