package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/skillswap-backend/internal/pkg/apperror"
)

var allStatuses = []SessionStatus{
	SessionStatusPending, SessionStatusAccepted, SessionStatusDeclined, SessionStatusConfirmed,
	SessionStatusInProgress, SessionStatusCompleted, SessionStatusCancelled, SessionStatusRescheduled,
}

var allEvents = []SessionEvent{EventAccept, EventDecline, EventComplete, EventCancel, EventReschedule}

func TestTransition_LegalEdges(t *testing.T) {
	cases := []struct {
		from  SessionStatus
		event SessionEvent
		want  SessionStatus
	}{
		{SessionStatusPending, EventAccept, SessionStatusAccepted},
		{SessionStatusPending, EventDecline, SessionStatusDeclined},
		{SessionStatusPending, EventCancel, SessionStatusCancelled},
		{SessionStatusAccepted, EventComplete, SessionStatusCompleted},
		{SessionStatusAccepted, EventCancel, SessionStatusCancelled},
		{SessionStatusAccepted, EventReschedule, SessionStatusRescheduled},
		{SessionStatusRescheduled, EventAccept, SessionStatusAccepted},
		{SessionStatusRescheduled, EventDecline, SessionStatusDeclined},
		{SessionStatusConfirmed, EventComplete, SessionStatusCompleted},
		{SessionStatusInProgress, EventCancel, SessionStatusCancelled},
	}

	for _, tc := range cases {
		got, err := Transition(tc.from, tc.event)
		require.NoError(t, err, "%s --%s-->", tc.from, tc.event)
		assert.Equal(t, tc.want, got)
	}
}

func TestTransition_TerminalStatesHaveNoEdges(t *testing.T) {
	for _, from := range []SessionStatus{SessionStatusCompleted, SessionStatusCancelled, SessionStatusDeclined} {
		assert.True(t, from.IsTerminal())
		for _, ev := range allEvents {
			_, err := Transition(from, ev)
			assert.True(t, apperror.IsBadRequest(err), "%s --%s--> must be rejected", from, ev)
		}
	}
}

func TestTransition_CompletedToAcceptedRejected(t *testing.T) {
	_, err := Transition(SessionStatusCompleted, EventAccept)
	assert.Error(t, err)
}

func TestTransition_NoInboundEdgesToLegacyStates(t *testing.T) {
	for _, from := range allStatuses {
		for _, ev := range allEvents {
			next, err := Transition(from, ev)
			if err != nil {
				continue
			}
			assert.NotEqual(t, SessionStatusConfirmed, next)
			assert.NotEqual(t, SessionStatusInProgress, next)
			assert.NotEqual(t, SessionStatusPending, next)
		}
	}
}

func TestTransition_CompleteOnlyFromStarted(t *testing.T) {
	assert.False(t, SessionStatusPending.CanTransition(EventComplete))
	assert.False(t, SessionStatusRescheduled.CanTransition(EventComplete))
	assert.True(t, SessionStatusAccepted.CanTransition(EventComplete))
}

func TestNewSessionStatus(t *testing.T) {
	s, err := NewSessionStatus("in-progress")
	require.NoError(t, err)
	assert.Equal(t, SessionStatusInProgress, s)

	_, err = NewSessionStatus("archived")
	assert.True(t, apperror.IsValidation(err))
}

func TestPriorityWeight(t *testing.T) {
	assert.Equal(t, 3.0, PriorityHigh.Weight())
	assert.Equal(t, 2.0, PriorityMedium.Weight())
	assert.Equal(t, 1.0, PriorityLow.Weight())

	p, err := NewPriority("")
	require.NoError(t, err)
	assert.Equal(t, PriorityMedium, p)

	_, err = NewPriority("Urgent")
	assert.Error(t, err)
}

func TestSkillLevels(t *testing.T) {
	_, err := NewOfferLevel("Expert")
	assert.NoError(t, err)
	_, err = NewWantLevel("Expert")
	assert.Error(t, err)
	assert.Error(t, ValidateProgress(101))
	assert.NoError(t, ValidateProgress(0))
}
