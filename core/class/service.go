package class

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

var (
	// errors
	ErrNotFound           = errors.New("class not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrClassArchived      = errors.New("class is archived")
)

type (
	Repository interface {
		CreateClass(ctx context.Context, cls Class) (Class, error)
		QueryClasses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Class, error)
		GetClass(ctx context.Context, campusID, id string) (Class, error)
		UpdateClass(ctx context.Context, cls Class) (Class, error)

		CreateAssignment(ctx context.Context, asg Assignment) (Assignment, error)
		QueryAssignments(ctx context.Context, classID string) ([]Assignment, error)
		GetAssignment(ctx context.Context, classID, id string) (Assignment, error)
		UpdateAssignment(ctx context.Context, asg Assignment) (Assignment, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, campusID string, nc NewClass) (Class, error) {
	now := time.Now().UTC()
	cls := Class{
		CampusID:   campusID,
		Name:       nc.Name,
		Subject:    nc.Subject,
		TeacherID:  nc.TeacherID,
		StudentIDs: []string{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return svc.repo.CreateClass(ctx, cls)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Class, error) {
	return svc.repo.QueryClasses(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, campusID, id string) (Class, error) {
	return svc.repo.GetClass(ctx, campusID, id)
}

func (svc *Service) Update(ctx context.Context, campusID, id string, uc UpdateClass) (Class, error) {
	cls, err := svc.repo.GetClass(ctx, campusID, id)
	if err != nil {
		return Class{}, err
	}
	cls.Name = uc.Name
	cls.Subject = uc.Subject
	cls.TeacherID = uc.TeacherID
	cls.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateClass(ctx, cls)
}

// Enroll adds a student to the class; enrolling an already-enrolled student
// is a no-op.
func (svc *Service) Enroll(ctx context.Context, campusID, id, studentID string) (Class, error) {
	cls, err := svc.repo.GetClass(ctx, campusID, id)
	if err != nil {
		return Class{}, err
	}
	if cls.IsArchived {
		return Class{}, core.NewValidationError(ErrClassArchived)
	}
	if cls.HasStudent(studentID) {
		return cls, nil
	}
	cls.StudentIDs = append(cls.StudentIDs, studentID)
	cls.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateClass(ctx, cls)
}

func (svc *Service) Unenroll(ctx context.Context, campusID, id, studentID string) (Class, error) {
	cls, err := svc.repo.GetClass(ctx, campusID, id)
	if err != nil {
		return Class{}, err
	}
	for i, sid := range cls.StudentIDs {
		if sid == studentID {
			cls.StudentIDs = append(cls.StudentIDs[:i], cls.StudentIDs[i+1:]...)
			cls.UpdatedAt = time.Now().UTC()
			return svc.repo.UpdateClass(ctx, cls)
		}
	}
	return cls, nil
}

func (svc *Service) Archive(ctx context.Context, campusID, id string) (Class, error) {
	cls, err := svc.repo.GetClass(ctx, campusID, id)
	if err != nil {
		return Class{}, err
	}
	cls.IsArchived = true
	cls.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateClass(ctx, cls)
}

func (svc *Service) Delete(ctx context.Context, campusID, id string) error {
	cls, err := svc.repo.GetClass(ctx, campusID, id)
	if err != nil {
		return err
	}
	cls.IsDeleted = true
	cls.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateClass(ctx, cls)
	return err
}

// Assignments

func (svc *Service) CreateAssignment(ctx context.Context, campusID, classID string, na NewAssignment) (Assignment, error) {
	cls, err := svc.repo.GetClass(ctx, campusID, classID)
	if err != nil {
		return Assignment{}, err
	}
	if cls.IsArchived {
		return Assignment{}, core.NewValidationError(ErrClassArchived)
	}

	now := time.Now().UTC()
	asg := Assignment{
		ClassID:      cls.ID,
		Title:        na.Title,
		Instructions: na.Instructions,
		DueDate:      na.DueDate.UTC(),
		MaxScore:     na.MaxScore,
		IsPublished:  na.IsPublished,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return svc.repo.CreateAssignment(ctx, asg)
}

func (svc *Service) QueryAssignments(ctx context.Context, campusID, classID string) ([]Assignment, error) {
	if _, err := svc.repo.GetClass(ctx, campusID, classID); err != nil {
		return nil, err
	}
	return svc.repo.QueryAssignments(ctx, classID)
}

func (svc *Service) UpdateAssignment(ctx context.Context, campusID, classID, id string, ua UpdateAssignment) (Assignment, error) {
	cls, err := svc.repo.GetClass(ctx, campusID, classID)
	if err != nil {
		return Assignment{}, err
	}
	if cls.IsArchived {
		return Assignment{}, core.NewValidationError(ErrClassArchived)
	}

	asg, err := svc.repo.GetAssignment(ctx, classID, id)
	if err != nil {
		return Assignment{}, err
	}
	if ua.Title != "" {
		asg.Title = ua.Title
	}
	if ua.Instructions != nil {
		asg.Instructions = *ua.Instructions
	}
	if ua.DueDate != nil {
		asg.DueDate = ua.DueDate.UTC()
	}
	if ua.MaxScore != nil {
		asg.MaxScore = *ua.MaxScore
	}
	if ua.IsPublished != nil {
		asg.IsPublished = *ua.IsPublished
	}
	asg.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateAssignment(ctx, asg)
}

func (svc *Service) DeleteAssignment(ctx context.Context, campusID, classID, id string) error {
	if _, err := svc.repo.GetClass(ctx, campusID, classID); err != nil {
		return err
	}
	asg, err := svc.repo.GetAssignment(ctx, classID, id)
	if err != nil {
		return err
	}
	asg.IsDeleted = true
	asg.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateAssignment(ctx, asg)
	return err
}
