package class_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/class"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
)

const (
	campusID  = "5c7c2f3b9d1e8a6b4c2d1e0f"
	teacherID = "5c7c2f3b9d1e8a6b4c2d1e10"
	studentID = "5c7c2f3b9d1e8a6b4c2d1e11"
)

func setup(t *testing.T) *class.Service {
	t.Helper()
	core.NewTestConfig()
	return class.NewService(inmemdb.NewClassRepository(inmemdb.Open()))
}

func TestService_enrollment(t *testing.T) {
	ctx := context.Background()
	svc := setup(t)

	cls, err := svc.Create(ctx, campusID, class.NewClass{Name: "4A", Subject: "Maths", TeacherID: teacherID})
	require.NoError(t, err)
	assert.Empty(t, cls.StudentIDs)

	cls, err = svc.Enroll(ctx, campusID, cls.ID, studentID)
	require.NoError(t, err)
	require.Len(t, cls.StudentIDs, 1)

	// enrolling twice is a no-op
	cls, err = svc.Enroll(ctx, campusID, cls.ID, studentID)
	require.NoError(t, err)
	require.Len(t, cls.StudentIDs, 1)

	cls, err = svc.Unenroll(ctx, campusID, cls.ID, studentID)
	require.NoError(t, err)
	assert.Empty(t, cls.StudentIDs)

	// unenrolling an absent student is a no-op
	_, err = svc.Unenroll(ctx, campusID, cls.ID, studentID)
	require.NoError(t, err)
}

func TestService_archivedClass(t *testing.T) {
	ctx := context.Background()
	svc := setup(t)

	cls, err := svc.Create(ctx, campusID, class.NewClass{Name: "6B", Subject: "History", TeacherID: teacherID})
	require.NoError(t, err)

	asg, err := svc.CreateAssignment(ctx, campusID, cls.ID, class.NewAssignment{
		Title:    "Essay",
		DueDate:  time.Now().UTC().Add(7 * 24 * time.Hour),
		MaxScore: 20,
	})
	require.NoError(t, err)

	cls, err = svc.Archive(ctx, campusID, cls.ID)
	require.NoError(t, err)
	assert.True(t, cls.IsArchived)

	// archived classes reject writes
	var vErr *core.ValidationError
	_, err = svc.Enroll(ctx, campusID, cls.ID, studentID)
	require.ErrorAs(t, err, &vErr)
	_, err = svc.CreateAssignment(ctx, campusID, cls.ID, class.NewAssignment{
		Title:    "Late essay",
		DueDate:  time.Now().UTC().Add(24 * time.Hour),
		MaxScore: 10,
	})
	require.ErrorAs(t, err, &vErr)
	_, err = svc.UpdateAssignment(ctx, campusID, cls.ID, asg.ID, class.UpdateAssignment{Title: "Renamed"})
	require.ErrorAs(t, err, &vErr)

	// reads still work
	asgs, err := svc.QueryAssignments(ctx, campusID, cls.ID)
	require.NoError(t, err)
	require.Len(t, asgs, 1)
	assert.Equal(t, asg.ID, asgs[0].ID)
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	svc := setup(t)

	cls, err := svc.Create(ctx, campusID, class.NewClass{Name: "2C", Subject: "Biology", TeacherID: teacherID})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, campusID, cls.ID))

	_, err = svc.GetByID(ctx, campusID, cls.ID)
	assert.Equal(t, class.ErrNotFound, err)
}
