package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTicket() Ticket {
	return Ticket{CustomerPhone: "0712345678", IssueCategory: CategoryApp, IssueDescription: strPtr("Cannot log in")}
}

func TestValidateTicket_Valid(t *testing.T) {
	assert.NoError(t, ValidateTicket(validTicket()))
}

func TestValidateTicket_InvalidPhoneFormat(t *testing.T) {
	tk := validTicket()
	tk.CustomerPhone = "abc"

	err := ValidateTicket(tk)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.ErrorIs(t, err, ErrInvalidInput)
	require.Len(t, verr.Errors, 1)
	assert.Equal(t, "customer_phone", verr.Errors[0].Field)
	assert.Equal(t, "invalid_format", verr.Errors[0].Code)
}

func TestValidateTicket_PhoneLengthBounds(t *testing.T) {
	for phone, ok := range map[string]bool{
		"123456":           false,
		"1234567":          true,
		"123456789012345":  true,
		"1234567890123456": false,
		"+254712345678":    false,
	} {
		tk := validTicket()
		tk.CustomerPhone = phone
		assert.Equal(t, ok, ValidateTicket(tk) == nil, phone)
	}
}

func TestValidateTicket_CollectsAllErrors(t *testing.T) {
	err := ValidateTicket(Ticket{
		IssueCategory:    "Hardware",
		IssueDescription: strPtr("   "),
		ResolutionStatus: "Done",
	})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))

	got := map[string]string{}
	for _, fe := range verr.Errors {
		got[fe.Field] = fe.Code
	}
	assert.Equal(t, map[string]string{
		"customer_phone":    "required",
		"issue_category":    "invalid_value",
		"issue_description": "blank",
		"resolution_status": "invalid_value",
	}, got)
}

func TestValidateTicket_IssueDescription(t *testing.T) {
	tk := validTicket()
	tk.IssueDescription = nil
	assert.NoError(t, ValidateTicket(tk))

	tk.IssueDescription = strPtr("")
	err := ValidateTicket(tk)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Errors, 1)
	assert.Equal(t, "issue_description", verr.Errors[0].Field)
	assert.Equal(t, "blank", verr.Errors[0].Code)
}

func TestDeriveFCR(t *testing.T) {
	assert.Equal(t, FCRYes, DeriveFCR(StatusCompleted))
	assert.Equal(t, FCRNo, DeriveFCR(StatusPending))
	assert.Equal(t, FCRNo, DeriveFCR(StatusInProgress))
}

func TestSetStatus_ReportsEnteringCompleted(t *testing.T) {
	tk := validTicket()
	tk.SetStatus(StatusPending)
	assert.False(t, tk.SetStatus(StatusInProgress))
	assert.Equal(t, FCRNo, tk.FirstCallResolution)
	assert.True(t, tk.SetStatus(StatusCompleted))
	assert.Equal(t, FCRYes, tk.FirstCallResolution)
	assert.False(t, tk.SetStatus(StatusCompleted))
}

func TestCheckTransition(t *testing.T) {
	assert.NoError(t, CheckTransition(StatusPending, StatusInProgress))
	assert.NoError(t, CheckTransition(StatusPending, StatusCompleted))
	assert.NoError(t, CheckTransition(StatusCompleted, StatusCompleted))

	err := CheckTransition(StatusCompleted, StatusInProgress)
	var terr *TransitionError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, StatusCompleted, terr.From)
	assert.Equal(t, StatusInProgress, terr.To)
	assert.Equal(t, "invalid_transition", terr.FieldError().Code)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Error(t, CheckTransition(StatusInProgress, StatusPending))
}

func TestReopen_Idempotent(t *testing.T) {
	agent := int64(7)
	tk := validTicket()
	tk.AgentID = &agent
	tk.SetStatus(StatusCompleted)

	assert.True(t, tk.Reopen())
	first := tk
	assert.False(t, tk.Reopen())

	assert.Equal(t, first, tk)
	assert.Equal(t, StatusPending, tk.ResolutionStatus)
	assert.Equal(t, FCRNo, tk.FirstCallResolution)
	assert.Equal(t, int64(7), *tk.AgentID)
}

func TestIsStuck(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tk := validTicket()
	tk.ResolutionStatus = StatusInProgress
	tk.UpdatedAt = now.Add(-2 * time.Hour)
	assert.True(t, tk.IsStuck(now))

	tk.UpdatedAt = now.Add(-30 * time.Minute)
	assert.False(t, tk.IsStuck(now))

	tk.UpdatedAt = now.Add(-2 * time.Hour)
	tk.ResolutionStatus = StatusCompleted
	assert.False(t, tk.IsStuck(now))
}

func TestDeriveTicketState(t *testing.T) {
	solved, unsolved := true, false
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	completed := Ticket{ResolutionStatus: StatusCompleted}
	pending := Ticket{ResolutionStatus: StatusPending}

	assert.Equal(t, StateClosed, DeriveTicketState(completed, nil))
	assert.Equal(t, StateClosed, DeriveTicketState(completed, &FollowUp{IssueSolved: &solved}))
	assert.Equal(t, StateClosed, DeriveTicketState(completed, &FollowUp{}))
	assert.Equal(t, StateReopened, DeriveTicketState(completed, &FollowUp{IssueSolved: &unsolved}))
	assert.Equal(t, StateReopened, DeriveTicketState(pending, &FollowUp{IssueSolved: &unsolved}))
	assert.Equal(t, StateOpen, DeriveTicketState(pending, nil))

	latest := LatestFollowUp([]FollowUp{
		{FollowUpID: 1, FollowUpDate: base.Add(time.Hour), IssueSolved: &unsolved},
		{FollowUpID: 2, FollowUpDate: base, IssueSolved: &solved},
		{FollowUpID: 3, FollowUpDate: base.Add(time.Hour), IssueSolved: &solved},
	})
	require.NotNil(t, latest)
	assert.Equal(t, int64(3), latest.FollowUpID)
	assert.Nil(t, LatestFollowUp(nil))
}
