package models

import "time"

// TestDriveStatus is the closed set of booking states.
type TestDriveStatus string

const (
	TestDrivePending             TestDriveStatus = "pending"
	TestDriveConfirmed           TestDriveStatus = "confirmed"
	TestDriveRescheduled         TestDriveStatus = "rescheduled"          // admin proposed, awaiting customer
	TestDriveRescheduleRequested TestDriveStatus = "reschedule_requested" // customer proposed, awaiting admin
	TestDriveCompleted           TestDriveStatus = "completed"
	TestDriveCancelled           TestDriveStatus = "cancelled"
	TestDriveNoShow              TestDriveStatus = "no_show"
)

// TestDriveStatuses lists every status in display order.
var TestDriveStatuses = []TestDriveStatus{
	TestDrivePending,
	TestDriveConfirmed,
	TestDriveRescheduled,
	TestDriveRescheduleRequested,
	TestDriveCompleted,
	TestDriveCancelled,
	TestDriveNoShow,
}

// ActiveTestDriveStatuses still hold (or negotiate) a slot.
var ActiveTestDriveStatuses = []TestDriveStatus{
	TestDrivePending,
	TestDriveConfirmed,
	TestDriveRescheduled,
	TestDriveRescheduleRequested,
}

func ParseTestDriveStatus(s string) (TestDriveStatus, bool) {
	for _, st := range TestDriveStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

func (s TestDriveStatus) Terminal() bool {
	return s == TestDriveCompleted || s == TestDriveCancelled || s == TestDriveNoShow
}

// Default showroom values for new bookings.
const (
	DefaultTestDriveDuration = 30
	DefaultTestDriveLocation = "Showroom"
)

// ShowroomSlots are the bookable start times of a day.
var ShowroomSlots = []string{"09:00", "10:00", "11:00", "13:00", "14:00", "15:00", "16:00", "17:00"}

// TestDrive mirrors a row of test_drive_requests.
type TestDrive struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	CarID  string `json:"car_id"`

	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`

	ScheduledDate   string `json:"scheduled_date"` // YYYY-MM-DD
	ScheduledTime   string `json:"scheduled_time"` // HH:MM
	DurationMinutes int    `json:"duration_minutes"`
	Location        string `json:"location"`

	Status TestDriveStatus `json:"status"`

	UserNotes       string `json:"user_notes,omitempty"`
	AdminNotes      string `json:"admin_notes,omitempty"`
	RejectionReason string `json:"rejection_reason,omitempty"`

	// Open reschedule proposal; empty when none.
	ProposedDate string `json:"proposed_date,omitempty"`
	ProposedTime string `json:"proposed_time,omitempty"`
	ProposalNote string `json:"proposal_note,omitempty"`
	ProposedBy   string `json:"proposed_by,omitempty"`

	ConfirmedBy string     `json:"confirmed_by,omitempty"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	CancelledBy string     `json:"cancelled_by,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Feedback         string `json:"feedback,omitempty"`
	ExperienceRating int    `json:"experience_rating,omitempty"`
	IsInterested     *bool  `json:"is_interested,omitempty"`

	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasProposal reports whether a reschedule proposal is open.
func (t TestDrive) HasProposal() bool {
	return t.ProposedDate != "" && t.ProposedTime != ""
}

// ClearProposal drops the open proposal fields.
func (t *TestDrive) ClearProposal() {
	t.ProposedDate = ""
	t.ProposedTime = ""
	t.ProposalNote = ""
	t.ProposedBy = ""
}

// TestDriveInput is the intake payload after binding.
type TestDriveInput struct {
	CarID         string `json:"car_id" validate:"required"`
	ScheduledDate string `json:"scheduled_date" validate:"required"`
	ScheduledTime string `json:"scheduled_time" validate:"required"`
	CustomerName  string `json:"customer_name" validate:"required,max=120"`
	CustomerEmail string `json:"customer_email" validate:"required,email"`
	CustomerPhone string `json:"customer_phone" validate:"required,min=8,max=20,phone"`
	UserNotes     string `json:"user_notes" validate:"max=1000"`
	Location      string `json:"location" validate:"max=255"`
}

// TestDriveFilter narrows admin listings.
type TestDriveFilter struct {
	Status   TestDriveStatus
	CarID    string
	UserID   string
	DateFrom string
	DateTo   string
	Page     int
	PageSize int
}

// TestDriveFeedback is submitted by the customer after a completed drive.
type TestDriveFeedback struct {
	Rating       int    `json:"rating" validate:"required,min=1,max=5"`
	Feedback     string `json:"feedback" validate:"max=2000"`
	IsInterested *bool  `json:"is_interested"`
}
