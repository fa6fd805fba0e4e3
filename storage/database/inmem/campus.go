package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/campus"
)

type campusRepository struct {
	db *DB
}

func NewCampusRepository(db *DB) campus.Repository {
	return &campusRepository{db: db}
}

func (repo *campusRepository) query() []campus.Campus {
	cmps := make([]campus.Campus, 0, len(repo.db.campuses))
	for _, c := range repo.db.campuses {
		cmps = append(cmps, *c)
	}
	sort.Slice(cmps, func(i, j int) bool { return cmps[i].ID < cmps[j].ID })
	return cmps
}

func (repo *campusRepository) CheckSlugUniqueness(ctx context.Context, slug string, excluded ...campus.Campus) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	excl := make(map[string]bool, len(excluded))
	for _, cmp := range excluded {
		excl[cmp.ID] = true
	}
	for _, cmp := range repo.query() {
		if cmp.Slug == slug && !excl[cmp.ID] {
			return campus.ErrSlugExists
		}
	}
	return nil
}

func (repo *campusRepository) CreateCampus(ctx context.Context, cmp campus.Campus) (campus.Campus, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if cmp.ID == "" {
		cmp.ID = newID()
	}
	repo.db.campuses[cmp.ID] = &cmp
	return cmp, nil
}

func (repo *campusRepository) QueryCampuses(ctx context.Context, filter *campus.QueryFilter, ordering []core.DBOrdering) ([]campus.Campus, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var cmps []campus.Campus
	for _, cmp := range repo.query() {
		if filter != nil {
			if !filter.IncludeDeleted && cmp.IsDeleted {
				continue
			}
			if filter.Status != "" && cmp.Status != filter.Status {
				continue
			}
			if filter.Search != "" {
				s := strings.ToLower(filter.Search)
				if !strings.Contains(strings.ToLower(cmp.Name), s) &&
					!strings.Contains(strings.ToLower(cmp.Slug), s) {
					continue
				}
			}
		} else if cmp.IsDeleted {
			continue
		}
		cmps = append(cmps, cmp)
	}
	return cmps, nil
}

func (repo *campusRepository) GetCampus(ctx context.Context, filter campus.GetFilter) (campus.Campus, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, cmp := range repo.query() {
		if (filter.ID != "" && cmp.ID == filter.ID) ||
			(filter.Slug != "" && cmp.Slug == filter.Slug) {
			return cmp, nil
		}
	}
	return campus.Campus{}, campus.ErrNotFound
}

func (repo *campusRepository) UpdateCampus(ctx context.Context, cmp campus.Campus) (campus.Campus, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.campuses[cmp.ID]; !ok {
		return campus.Campus{}, campus.ErrNotFound
	}
	repo.db.campuses[cmp.ID] = &cmp
	return cmp, nil
}
