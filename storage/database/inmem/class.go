package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/class"
)

type classRepository struct {
	db *DB
}

func NewClassRepository(db *DB) class.Repository {
	return &classRepository{db: db}
}

func (repo *classRepository) CreateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if cls.ID == "" {
		cls.ID = newID()
	}
	repo.db.classes[cls.ID] = &cls
	return cls, nil
}

func (repo *classRepository) QueryClasses(ctx context.Context, filter *class.QueryFilter, ordering []core.DBOrdering) ([]class.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var clss []class.Class
	for _, cls := range repo.db.classes {
		if cls.IsDeleted || !matchClass(*cls, filter) {
			continue
		}
		clss = append(clss, *cls)
	}
	sort.Slice(clss, func(i, j int) bool { return clss[i].ID < clss[j].ID })
	return clss, nil
}

func matchClass(cls class.Class, filter *class.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.CampusID != "" && cls.CampusID != filter.CampusID {
		return false
	}
	if filter.TeacherID != "" && cls.TeacherID != filter.TeacherID {
		return false
	}
	if filter.StudentID != "" && !cls.HasStudent(filter.StudentID) {
		return false
	}
	if filter.Archived != nil && cls.IsArchived != *filter.Archived {
		return false
	}
	if filter.Search != "" {
		s := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(cls.Name), s) &&
			!strings.Contains(strings.ToLower(cls.Subject), s) {
			return false
		}
	}
	return true
}

func (repo *classRepository) GetClass(ctx context.Context, campusID, id string) (class.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	cls, ok := repo.db.classes[id]
	if !ok || cls.IsDeleted || cls.CampusID != campusID {
		return class.Class{}, class.ErrNotFound
	}
	return *cls, nil
}

func (repo *classRepository) UpdateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.classes[cls.ID]; !ok {
		return class.Class{}, class.ErrNotFound
	}
	repo.db.classes[cls.ID] = &cls
	return cls, nil
}

func (repo *classRepository) CreateAssignment(ctx context.Context, asg class.Assignment) (class.Assignment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if asg.ID == "" {
		asg.ID = newID()
	}
	repo.db.assignments[asg.ID] = &asg
	return asg, nil
}

func (repo *classRepository) QueryAssignments(ctx context.Context, classID string) ([]class.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var asgs []class.Assignment
	for _, asg := range repo.db.assignments {
		if asg.ClassID == classID && !asg.IsDeleted {
			asgs = append(asgs, *asg)
		}
	}
	sort.Slice(asgs, func(i, j int) bool { return asgs[i].ID < asgs[j].ID })
	return asgs, nil
}

func (repo *classRepository) GetAssignment(ctx context.Context, classID, id string) (class.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	asg, ok := repo.db.assignments[id]
	if !ok || asg.IsDeleted || asg.ClassID != classID {
		return class.Assignment{}, class.ErrAssignmentNotFound
	}
	return *asg, nil
}

func (repo *classRepository) UpdateAssignment(ctx context.Context, asg class.Assignment) (class.Assignment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.assignments[asg.ID]; !ok {
		return class.Assignment{}, class.ErrAssignmentNotFound
	}
	repo.db.assignments[asg.ID] = &asg
	return asg, nil
}
