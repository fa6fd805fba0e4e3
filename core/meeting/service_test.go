package meeting_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/meeting"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
)

const (
	campusID    = "5a7c2f3b9d1e8a6b4c2d1e0f"
	organizerID = "5a7c2f3b9d1e8a6b4c2d1e10"
	attendeeID  = "5a7c2f3b9d1e8a6b4c2d1e11"
)

func setup(t *testing.T) *meeting.Service {
	t.Helper()
	core.NewTestConfig()
	return meeting.NewService(inmemdb.NewMeetingRepository(inmemdb.Open()))
}

func TestService_lifecycle(t *testing.T) {
	ctx := context.Background()
	svc := setup(t)

	mtg, err := svc.Create(ctx, campusID, organizerID, meeting.NewMeeting{
		Title:       "PTA briefing",
		AttendeeIDs: []string{attendeeID},
		ScheduledAt: time.Now().Add(48 * time.Hour),
		Duration:    time.Hour,
		JoinURL:     "https://meet.example.com/pta",
	})
	require.NoError(t, err)
	assert.Equal(t, meeting.StatusScheduled, mtg.Status)
	assert.Equal(t, organizerID, mtg.OrganizerID)

	newTitle := "PTA briefing (rescheduled)"
	mtg, err = svc.Update(ctx, campusID, mtg.ID, meeting.UpdateMeeting{Title: newTitle})
	require.NoError(t, err)
	assert.Equal(t, newTitle, mtg.Title)

	mtg, err = svc.Cancel(ctx, campusID, mtg.ID)
	require.NoError(t, err)
	assert.Equal(t, meeting.StatusCancelled, mtg.Status)

	// cancelled meetings reject updates
	var vErr *core.ValidationError
	_, err = svc.Update(ctx, campusID, mtg.ID, meeting.UpdateMeeting{Title: "nope"})
	require.ErrorAs(t, err, &vErr)

	require.NoError(t, svc.Delete(ctx, campusID, mtg.ID))
	_, err = svc.GetByID(ctx, campusID, mtg.ID)
	assert.Equal(t, meeting.ErrNotFound, err)
}

func TestService_Query_byAttendee(t *testing.T) {
	ctx := context.Background()
	svc := setup(t)

	_, err := svc.Create(ctx, campusID, organizerID, meeting.NewMeeting{
		Title:       "Maths dept sync",
		AttendeeIDs: []string{attendeeID},
		ScheduledAt: time.Now().Add(24 * time.Hour),
		Duration:    30 * time.Minute,
	})
	require.NoError(t, err)
	_, err = svc.Create(ctx, campusID, organizerID, meeting.NewMeeting{
		Title:       "Board meeting",
		ScheduledAt: time.Now().Add(72 * time.Hour),
		Duration:    2 * time.Hour,
	})
	require.NoError(t, err)

	mtgs, err := svc.Query(ctx, &meeting.QueryFilter{CampusID: campusID, AttendeeID: attendeeID}, nil)
	require.NoError(t, err)
	require.Len(t, mtgs, 1)
	assert.Equal(t, "Maths dept sync", mtgs[0].Title)
}
