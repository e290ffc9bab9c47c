package workflow_test

import (
	"errors"
	"testing"
	"time"

	"github.com/mautops/review-gin/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allEvents = []workflow.EventType{
	workflow.EventSubmitted,
	workflow.EventFirstApproved,
	workflow.EventFirstRejected,
	workflow.EventSecondApproved,
	workflow.EventSecondRejected,
	workflow.EventEdited,
	workflow.EventDeleted,
}

func st(status workflow.Status, stage workflow.Stage) workflow.State {
	return workflow.State{Status: status, Stage: stage}
}

func TestTransitionTable(t *testing.T) {
	draft := st(workflow.StatusDraft, workflow.StageAuthor)
	pending := st(workflow.StatusPendingFirstReview, workflow.StageFirstReviewer)
	firstApproved := st(workflow.StatusFirstApproved, workflow.StageSecondReviewer)
	final := st(workflow.StatusFinalApproved, workflow.StageCompleted)
	rejected := st(workflow.StatusRejected, workflow.StageCompleted)
	rejectedAuthor := st(workflow.StatusRejected, workflow.StageAuthor)

	allowed := map[workflow.State]map[workflow.EventType]workflow.State{
		draft: {
			workflow.EventSubmitted: pending,
			workflow.EventEdited:    draft,
			workflow.EventDeleted:   draft,
		},
		pending: {
			workflow.EventFirstApproved: firstApproved,
			workflow.EventFirstRejected: rejected,
		},
		firstApproved: {
			workflow.EventSecondApproved: final,
			workflow.EventSecondRejected: rejected,
		},
		final: {},
		rejected: {
			workflow.EventSubmitted: pending,
			workflow.EventEdited:    draft,
		},
		rejectedAuthor: {
			workflow.EventSubmitted: pending,
			workflow.EventEdited:    draft,
		},
	}
	require.Len(t, workflow.ValidStates(), len(allowed))

	for from, events := range allowed {
		for _, event := range allEvents {
			to, err := workflow.Next(from, event)
			want, ok := events[event]
			if !ok {
				assert.True(t, errors.Is(err, workflow.ErrInvalidTransition), "%s on %s should be rejected", event, from)
				continue
			}
			require.NoError(t, err, "%s on %s", event, from)
			assert.Equal(t, want, to, "%s on %s", event, from)
			assert.True(t, to.Valid())
		}
	}
}

func TestNextFromInvalidState(t *testing.T) {
	_, err := workflow.Next(st(workflow.StatusFinalApproved, workflow.StageAuthor), workflow.EventSubmitted)
	assert.Equal(t, workflow.CodeInvalidTransition, workflow.CodeOf(err))
}

func TestStateValid(t *testing.T) {
	for _, s := range workflow.ValidStates() {
		assert.True(t, s.Valid(), s.String())
	}
	assert.False(t, st(workflow.StatusDraft, workflow.StageFirstReviewer).Valid())
	assert.False(t, st(workflow.StatusPendingFirstReview, workflow.StageSecondReviewer).Valid())
	assert.False(t, st(workflow.StatusFinalApproved, workflow.StageAuthor).Valid())
}

func TestCheckInvariants(t *testing.T) {
	now := time.Now()
	valid := func() *workflow.Submission {
		return &workflow.Submission{
			ID:           "s1",
			Status:       workflow.StatusPendingFirstReview,
			Stage:        workflow.StageFirstReviewer,
			CurrentOwner: "R1",
			OrgUnit:      "CS",
			SubmittedAt:  &now,
		}
	}
	require.NoError(t, workflow.CheckInvariants(valid()))

	tests := []struct {
		name   string
		mutate func(s *workflow.Submission)
	}{
		{"invalid pair", func(s *workflow.Submission) { s.Stage = workflow.StageAuthor }},
		{"owner missing while reviewing", func(s *workflow.Submission) { s.CurrentOwner = "" }},
		{"editable while pending", func(s *workflow.Submission) { s.Editable = true }},
		{"submitted_at missing", func(s *workflow.Submission) { s.SubmittedAt = nil }},
		{"org unit missing", func(s *workflow.Submission) { s.OrgUnit = "" }},
		{"owner set after completion", func(s *workflow.Submission) {
			s.Status = workflow.StatusFinalApproved
			s.Stage = workflow.StageCompleted
		}},
		{"rejected but not editable", func(s *workflow.Submission) {
			s.Status = workflow.StatusRejected
			s.Stage = workflow.StageCompleted
			s.CurrentOwner = ""
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(s)
			assert.Error(t, workflow.CheckInvariants(s))
		})
	}
}

func TestParse(t *testing.T) {
	for _, s := range workflow.Statuses() {
		got, err := workflow.ParseStatus(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := workflow.ParseStatus("Approved")
	assert.Error(t, err)

	_, err = workflow.ParseStage("Reviewer")
	assert.Error(t, err)

	d, err := workflow.ParseDecision("reject")
	require.NoError(t, err)
	assert.Equal(t, workflow.DecisionReject, d)
	_, err = workflow.ParseDecision("Approve")
	assert.Equal(t, workflow.CodeValidation, workflow.CodeOf(err))
}

func TestErrorMatching(t *testing.T) {
	err := workflow.Wrap(workflow.CodeNotFound, errors.New("record not found"), "submission %s not found", "x")
	assert.True(t, errors.Is(err, workflow.ErrNotFound))
	assert.False(t, errors.Is(err, workflow.ErrConflict))
	assert.Contains(t, err.Error(), "submission x not found")

	conflict := workflow.Errorf(workflow.CodeConflict, "lost the race")
	assert.True(t, workflow.Retryable(conflict))
	assert.False(t, workflow.Retryable(err))
	assert.False(t, workflow.Retryable(errors.New("io")))
}
