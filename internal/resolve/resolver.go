// Package resolve turns raw ids into discriminated references. The two
// resolvers here are the only constructors of validated models.Ref
// values: a (id, kind) pair that did not come out of this package must
// not be persisted.
package resolve

import (
	"errors"

	apperrors "github.com/gatherly/backend/internal/errors"
	"github.com/gatherly/backend/internal/models"
	"gorm.io/gorm"
)

// Resolver probes entity tables by id.
type Resolver struct {
	db *gorm.DB
}

// NewResolver creates a resolver over the given connection.
func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// parentProbe is one candidate table for a polymorphic parent lookup.
type parentProbe struct {
	kind  models.EntityKind
	model interface{}
}

// Parent probing order is fixed: Comment, then Reply, then Review.
// Ids are uuids and never collide across tables, so order does not
// affect which kind wins; it is still documented because a reorder
// would change nothing observable yet reads as if it might.
func (r *Resolver) parentProbes() []parentProbe {
	return []parentProbe{
		{models.KindComment, &models.Comment{}},
		{models.KindReply, &models.Reply{}},
		{models.KindReview, &models.Review{}},
	}
}

// ResolveParent finds which repliable table contains id and returns
// the tagged reference together with the loaded row (*models.Comment,
// *models.Reply, or *models.Review), so callers need no second fetch.
// Fails with a bad-request error on a blank id and not-found when no
// table matches.
func (r *Resolver) ResolveParent(id string) (models.Ref, interface{}, error) {
	if id == "" {
		return models.Ref{}, nil, apperrors.BadRequest("parent id is required")
	}

	for _, probe := range r.parentProbes() {
		err := r.db.First(probe.model, "id = ?", id).Error
		if err == nil {
			return models.Ref{ID: id, Kind: probe.kind}, probe.model, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Ref{}, nil, apperrors.InternalError("failed to resolve parent")
		}
	}

	return models.Ref{}, nil, apperrors.NotFound("parent")
}

// ResolveActor determines which of the two disjoint account tables
// owns accountID. Users are probed before professionals; an id exists
// in at most one of the two. The resulting reference is frozen at
// creation time by callers and never re-resolved.
func (r *Resolver) ResolveActor(accountID string) (models.Ref, error) {
	if accountID == "" {
		return models.Ref{}, apperrors.BadRequest("account id is required")
	}

	err := r.db.Select("id").First(&models.User{}, "id = ?", accountID).Error
	if err == nil {
		return models.Ref{ID: accountID, Kind: models.KindUser}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Ref{}, apperrors.InternalError("failed to resolve account")
	}

	err = r.db.Select("id").First(&models.Professional{}, "id = ?", accountID).Error
	if err == nil {
		return models.Ref{ID: accountID, Kind: models.KindProfessional}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Ref{}, apperrors.InternalError("failed to resolve account")
	}

	return models.Ref{}, apperrors.NotFound("account")
}

// ResolveReference resolves a notification reference, which may point
// at any entity kind. Content tables are probed first, then events,
// then accounts.
func (r *Resolver) ResolveReference(id string) (models.Ref, error) {
	if id == "" {
		return models.Ref{}, apperrors.BadRequest("reference id is required")
	}

	probes := append(r.parentProbes(),
		parentProbe{models.KindEvent, &models.Event{}},
		parentProbe{models.KindUser, &models.User{}},
		parentProbe{models.KindProfessional, &models.Professional{}},
	)

	for _, probe := range probes {
		err := r.db.Select("id").First(probe.model, "id = ?", id).Error
		if err == nil {
			return models.Ref{ID: id, Kind: probe.kind}, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Ref{}, apperrors.InternalError("failed to resolve reference")
		}
	}

	return models.Ref{}, apperrors.NotFound("reference")
}
