package campus

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

var (
	// errors
	ErrNotFound   = errors.New("campus not found")
	ErrSlugExists = errors.New("a campus with this slug already exists")
)

type (
	Repository interface {
		CheckSlugUniqueness(ctx context.Context, slug string, excluded ...Campus) error
		CreateCampus(ctx context.Context, cmp Campus) (Campus, error)
		QueryCampuses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Campus, error)
		GetCampus(ctx context.Context, filter GetFilter) (Campus, error)
		UpdateCampus(ctx context.Context, cmp Campus) (Campus, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nc NewCampus) (Campus, error) {
	if nc.Slug == "" {
		nc.Slug = slugify(nc.Name)
	}
	if err := svc.repo.CheckSlugUniqueness(ctx, nc.Slug); err != nil {
		if errors.Cause(err) == ErrSlugExists {
			return Campus{}, core.NewValidationError(err, core.FieldError{Field: "slug", Error: err.Error()})
		}
		return Campus{}, err
	}

	now := time.Now().UTC()
	cmp := Campus{
		Name:         nc.Name,
		Slug:         nc.Slug,
		Address:      nc.Address,
		ContactEmail: nc.ContactEmail,
		Features:     DefaultFeatures(),
		Status:       StatusTrial,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return svc.repo.CreateCampus(ctx, cmp)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Campus, error) {
	return svc.repo.QueryCampuses(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Campus, error) {
	return svc.repo.GetCampus(ctx, GetFilter{ID: id})
}

func (svc *Service) GetBySlug(ctx context.Context, slug string) (Campus, error) {
	return svc.repo.GetCampus(ctx, GetFilter{Slug: core.CleanString(slug, true /* lower */)})
}

func (svc *Service) Update(ctx context.Context, id string, uc UpdateCampus) (Campus, error) {
	cmp, err := svc.repo.GetCampus(ctx, GetFilter{ID: id})
	if err != nil {
		return Campus{}, err
	}

	cmp.Name = uc.Name
	cmp.ContactEmail = uc.ContactEmail
	cmp.Status = uc.Status
	if uc.Address != "" {
		cmp.Address = uc.Address
	}
	if uc.Features != nil {
		cmp.Features = uc.Features
	}
	cmp.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCampus(ctx, cmp)
}

// SetFeature toggles a single feature flag.
func (svc *Service) SetFeature(ctx context.Context, id, feature string, enabled bool) (Campus, error) {
	cmp, err := svc.repo.GetCampus(ctx, GetFilter{ID: id})
	if err != nil {
		return Campus{}, err
	}
	if cmp.Features == nil {
		cmp.Features = make(map[string]bool)
	}
	cmp.Features[feature] = enabled
	cmp.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCampus(ctx, cmp)
}

// Deactivate soft-deletes the campus; its data stays behind the flag.
func (svc *Service) Deactivate(ctx context.Context, id string) error {
	cmp, err := svc.repo.GetCampus(ctx, GetFilter{ID: id})
	if err != nil {
		return err
	}
	cmp.IsDeleted = true
	cmp.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateCampus(ctx, cmp)
	return err
}

func (svc *Service) Restore(ctx context.Context, id string) (Campus, error) {
	cmp, err := svc.repo.GetCampus(ctx, GetFilter{ID: id})
	if err != nil {
		return Campus{}, err
	}
	cmp.IsDeleted = false
	cmp.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCampus(ctx, cmp)
}

// SetStatus is used by super admins to activate/suspend a campus.
func (svc *Service) SetStatus(ctx context.Context, id, status string) (Campus, error) {
	cmp, err := svc.repo.GetCampus(ctx, GetFilter{ID: id})
	if err != nil {
		return Campus{}, err
	}
	cmp.Status = status
	cmp.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCampus(ctx, cmp)
}

func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	return strings.Join(strings.Fields(slug), "-")
}
