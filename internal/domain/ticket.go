package domain

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type ResolutionStatus string

const (
	StatusPending    ResolutionStatus = "Pending"
	StatusInProgress ResolutionStatus = "In-Progress"
	StatusCompleted  ResolutionStatus = "Completed"
)

type FCR string

const (
	FCRYes FCR = "Yes"
	FCRNo  FCR = "No"
)

type IssueCategory string

const (
	CategoryApp          IssueCategory = "App"
	CategoryIPTV         IssueCategory = "IPTV"
	CategoryStreaming    IssueCategory = "Streaming"
	CategoryVOD          IssueCategory = "VOD"
	CategorySubscription IssueCategory = "Subscription"
	CategoryOTP          IssueCategory = "OTP"
	CategoryProgramming  IssueCategory = "Programming"
	CategoryOther        IssueCategory = "Other"
)

type CommunicationChannel string

const (
	ChannelWhatsApp CommunicationChannel = "WhatsApp"
	ChannelPhone    CommunicationChannel = "Phone"
	ChannelEmail    CommunicationChannel = "Email"
	ChannelInApp    CommunicationChannel = "In-App"
)

// TicketState is a read-only view derived from status and follow-ups.
type TicketState string

const (
	StateOpen     TicketState = "Open"
	StateClosed   TicketState = "Closed"
	StateReopened TicketState = "Reopened"
)

// StuckThreshold is how long a non-completed ticket may go without updates.
const StuckThreshold = time.Hour

type Ticket struct {
	TicketID             int64                `json:"ticket_id"`
	CustomerPhone        string               `json:"customer_phone" validate:"required,phone"`
	CustomerLocation     string               `json:"customer_location,omitempty"`
	CommunicationChannel CommunicationChannel `json:"communication_channel,omitempty" validate:"omitempty,oneof=WhatsApp Phone Email In-App"`
	DeviceType           string               `json:"device_type,omitempty"`
	IssueCategory        IssueCategory        `json:"issue_category" validate:"required,oneof=App IPTV Streaming VOD Subscription OTP Programming Other"`
	IssueType            string               `json:"issue_type,omitempty"`
	IssueDescription     *string              `json:"issue_description,omitempty" validate:"omitnil,nonblank"`
	AgentID              *int64               `json:"agent_id"`
	ResolutionStatus     ResolutionStatus     `json:"resolution_status" validate:"omitempty,oneof=Pending In-Progress Completed"`
	FirstCallResolution  FCR                  `json:"first_call_resolution"`
	FCROverride          *FCR                 `json:"fcr_override,omitempty" validate:"omitempty,oneof=Yes No"`
	CreatedAt            time.Time            `json:"createdAt"`
	UpdatedAt            time.Time            `json:"updatedAt"`
}

type FollowUp struct {
	FollowUpID      int64     `json:"follow_up_id"`
	TicketID        int64     `json:"ticket_id"`
	FollowUpAgentID *int64    `json:"follow_up_agent_id"`
	FollowUpDate    time.Time `json:"follow_up_date"`
	IssueSolved     *bool     `json:"issue_solved"`
	Satisfied       *bool     `json:"satisfied"`
	RepeatedIssue   bool      `json:"repeated_issue"`
	FollowUpNotes   string    `json:"follow_up_notes,omitempty"`
}

type Review struct {
	ReviewID   int64     `json:"review_id"`
	TicketID   int64     `json:"ticket_id"`
	ReviewerID *int64    `json:"reviewer_id"`
	Resolved   *bool     `json:"resolved"`
	Notes      string    `json:"notes,omitempty"`
	ReviewDate time.Time `json:"review_date"`
}

var phonePattern = regexp.MustCompile(`^[0-9]{7,15}$`)

var ticketValidator = newTicketValidator()

func newTicketValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("nonblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

var validationCodes = map[string]string{
	"required": "required",
	"phone":    "invalid_format",
	"oneof":    "invalid_value",
	"nonblank": "blank",
}

// ValidateTicket reports every field violation at once.
func ValidateTicket(t Ticket) error {
	err := ticketValidator.Struct(t)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	verr := &ValidationError{}
	for _, fe := range fieldErrs {
		code, ok := validationCodes[fe.Tag()]
		if !ok {
			code = "invalid"
		}
		verr.Add(fe.Field(), code, validationDetail(fe))
	}
	return verr.OrNil()
}

func validationDetail(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "phone":
		return "must contain 7 to 15 digits only"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "nonblank":
		return "must not be blank"
	default:
		return "is invalid"
	}
}

// DeriveFCR is the only source of first_call_resolution.
func DeriveFCR(status ResolutionStatus) FCR {
	if status == StatusCompleted {
		return FCRYes
	}
	return FCRNo
}

func statusRank(s ResolutionStatus) int {
	switch s {
	case StatusInProgress:
		return 1
	case StatusCompleted:
		return 2
	default:
		return 0
	}
}

// CheckTransition allows staying put or moving forward. Moving backward is
// only possible through Reopen.
func CheckTransition(from, to ResolutionStatus) error {
	if statusRank(to) >= statusRank(from) {
		return nil
	}
	return &TransitionError{From: from, To: to}
}

// SetStatus applies status and re-derives FCR. It reports whether the
// ticket entered Completed with this call.
func (t *Ticket) SetStatus(status ResolutionStatus) (completed bool) {
	completed = status == StatusCompleted && t.ResolutionStatus != StatusCompleted
	t.ResolutionStatus = status
	t.FirstCallResolution = DeriveFCR(status)
	return completed
}

// Reopen moves the ticket back to Pending. The agent is kept. It reports
// whether anything changed.
func (t *Ticket) Reopen() bool {
	changed := t.ResolutionStatus != StatusPending || t.FirstCallResolution != FCRNo
	t.ResolutionStatus = StatusPending
	t.FirstCallResolution = FCRNo
	return changed
}

func (t Ticket) IsStuck(now time.Time) bool {
	return t.ResolutionStatus != StatusCompleted && now.Sub(t.UpdatedAt) > StuckThreshold
}

// LatestFollowUp picks the follow-up with the newest date, breaking ties by id.
func LatestFollowUp(followUps []FollowUp) *FollowUp {
	var latest *FollowUp
	for i := range followUps {
		f := &followUps[i]
		if latest == nil || f.FollowUpDate.After(latest.FollowUpDate) ||
			(f.FollowUpDate.Equal(latest.FollowUpDate) && f.FollowUpID > latest.FollowUpID) {
			latest = f
		}
	}
	return latest
}

func DeriveTicketState(t Ticket, latest *FollowUp) TicketState {
	if latest != nil && latest.IssueSolved != nil && !*latest.IssueSolved {
		return StateReopened
	}
	if t.ResolutionStatus == StatusCompleted {
		return StateClosed
	}
	return StateOpen
}
