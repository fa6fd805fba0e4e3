package attendance_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/attendance"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
)

func setup(t *testing.T) *attendance.Service {
	t.Helper()
	core.NewTestConfig()
	db := inmemdb.Open()
	return attendance.NewService(inmemdb.NewAttendanceRepository(db), inmemdb.NewAttendanceLiveStore())
}

func TestService_sessionFlow(t *testing.T) {
	ctx := context.Background()
	svc := setup(t)

	campusID := "5f7c2f3b9d1e8a6b4c2d1e0f"
	classID := "5f7c2f3b9d1e8a6b4c2d1e10"
	teacherID := "5f7c2f3b9d1e8a6b4c2d1e11"
	alice := "5f7c2f3b9d1e8a6b4c2d1e12"
	bob := "5f7c2f3b9d1e8a6b4c2d1e13"

	ses, err := svc.OpenSession(ctx, campusID, teacherID, attendance.OpenSessionRequest{ClassID: classID})
	require.NoError(t, err)
	assert.True(t, ses.IsOpen)

	// only one open session per class
	_, err = svc.OpenSession(ctx, campusID, teacherID, attendance.OpenSessionRequest{ClassID: classID})
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)

	// re-marking overwrites
	require.NoError(t, svc.Mark(ctx, campusID, teacherID, ses.ID, attendance.MarkRequest{StudentID: alice, Status: attendance.StatusAbsent}))
	require.NoError(t, svc.Mark(ctx, campusID, teacherID, ses.ID, attendance.MarkRequest{StudentID: alice, Status: attendance.StatusPresent}))
	require.NoError(t, svc.BulkMark(ctx, campusID, teacherID, ses.ID, attendance.BulkMarkRequest{
		Marks: []attendance.MarkRequest{{StudentID: bob, Status: attendance.StatusLate}},
	}))

	ses, err = svc.CloseSession(ctx, campusID, ses.ID)
	require.NoError(t, err)
	assert.False(t, ses.IsOpen)
	assert.False(t, ses.ClosedAt.IsZero())

	// marking a closed session fails
	err = svc.Mark(ctx, campusID, teacherID, ses.ID, attendance.MarkRequest{StudentID: alice, Status: attendance.StatusLate})
	require.ErrorAs(t, err, &vErr)

	// closing twice fails
	_, err = svc.CloseSession(ctx, campusID, ses.ID)
	require.ErrorAs(t, err, &vErr)

	recs, err := svc.QueryRecords(ctx, &attendance.QueryFilter{CampusID: campusID, ClassID: classID}, nil)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	byStudent := make(map[string]string, len(recs))
	for _, rec := range recs {
		byStudent[rec.StudentID] = rec.Status
	}
	assert.Equal(t, attendance.StatusPresent, byStudent[alice])
	assert.Equal(t, attendance.StatusLate, byStudent[bob])
}

func TestService_ExportRegister(t *testing.T) {
	ctx := context.Background()
	svc := setup(t)

	campusID := "6a7c2f3b9d1e8a6b4c2d1e0f"
	classID := "6a7c2f3b9d1e8a6b4c2d1e10"
	teacherID := "6a7c2f3b9d1e8a6b4c2d1e11"
	students := []string{"6a7c2f3b9d1e8a6b4c2d1e12", "6a7c2f3b9d1e8a6b4c2d1e13"}

	// the session's date, not when marks landed, decides the column
	sesDate := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	ses, err := svc.OpenSession(ctx, campusID, teacherID, attendance.OpenSessionRequest{ClassID: classID, Date: sesDate})
	require.NoError(t, err)
	for _, sid := range students {
		require.NoError(t, svc.Mark(ctx, campusID, teacherID, ses.ID, attendance.MarkRequest{StudentID: sid, Status: attendance.StatusPresent}))
	}
	_, err = svc.CloseSession(ctx, campusID, ses.ID)
	require.NoError(t, err)

	buff, err := svc.ExportRegister(ctx, &attendance.QueryFilter{CampusID: campusID, ClassID: classID})
	require.NoError(t, err)
	require.NotZero(t, buff.Len())

	// the export is a readable workbook with one row per student
	f, err := excelize.OpenReader(buff)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Register")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), len(students)+1)
	assert.Equal(t, "Student", rows[0][0])
	assert.Equal(t, "2026-03-09", rows[0][1])
	assert.Equal(t, students[0], rows[1][0]) // sorted by student ID
	assert.Equal(t, attendance.StatusPresent, rows[1][1])
}
