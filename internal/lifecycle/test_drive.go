// Package lifecycle holds the booking and payment state machines. Every status
// change in the service goes through these tables; nothing here touches storage.
package lifecycle

import (
	"strings"
	"time"

	"showroom/internal/domain"
	"showroom/internal/domain/models"
	"showroom/internal/utils"
)

type Actor string

const (
	ActorAdmin    Actor = "admin"
	ActorCustomer Actor = "customer"
)

type Action string

const (
	ActionApprove           Action = "approve"
	ActionReject            Action = "reject"
	ActionReschedule        Action = "reschedule"
	ActionComplete          Action = "complete"
	ActionNoShow            Action = "mark_no_show"
	ActionCancel            Action = "cancel"
	ActionRequestReschedule Action = "request_reschedule"
	ActionConfirmReschedule Action = "confirm_reschedule"
)

type rule struct {
	actor Actor
	from  []models.TestDriveStatus
	to    models.TestDriveStatus
}

var testDriveRules = map[Action]rule{
	ActionApprove: {
		actor: ActorAdmin,
		from:  []models.TestDriveStatus{models.TestDrivePending, models.TestDriveRescheduleRequested},
		to:    models.TestDriveConfirmed,
	},
	ActionReject: {
		actor: ActorAdmin,
		from:  []models.TestDriveStatus{models.TestDrivePending, models.TestDriveRescheduleRequested},
		to:    models.TestDriveCancelled,
	},
	ActionReschedule: {
		actor: ActorAdmin,
		from:  models.ActiveTestDriveStatuses,
		to:    models.TestDriveRescheduled,
	},
	ActionComplete: {
		actor: ActorAdmin,
		from:  []models.TestDriveStatus{models.TestDriveConfirmed},
		to:    models.TestDriveCompleted,
	},
	ActionNoShow: {
		actor: ActorAdmin,
		from:  []models.TestDriveStatus{models.TestDriveConfirmed},
		to:    models.TestDriveNoShow,
	},
	ActionCancel: {
		actor: ActorCustomer,
		from:  models.ActiveTestDriveStatuses,
		to:    models.TestDriveCancelled,
	},
	ActionRequestReschedule: {
		actor: ActorCustomer,
		from:  models.ActiveTestDriveStatuses,
		to:    models.TestDriveRescheduleRequested,
	},
	ActionConfirmReschedule: {
		actor: ActorCustomer,
		from:  []models.TestDriveStatus{models.TestDriveRescheduled},
		to:    models.TestDriveConfirmed,
	},
}

// actionOrder keeps AllowedActions output stable.
var actionOrder = []Action{
	ActionApprove, ActionReject, ActionReschedule, ActionComplete, ActionNoShow,
	ActionCancel, ActionRequestReschedule, ActionConfirmReschedule,
}

// ActorFor returns who may perform action, or "" for an unknown action.
func ActorFor(action Action) Actor {
	return testDriveRules[action].actor
}

// NextTestDriveStatus looks up the transition table.
func NextTestDriveStatus(from models.TestDriveStatus, action Action) (models.TestDriveStatus, error) {
	r, ok := testDriveRules[action]
	if ok {
		for _, s := range r.from {
			if s == from {
				return r.to, nil
			}
		}
	}
	return "", domain.TransitionError{Resource: "test_drive", From: string(from), Action: string(action)}
}

// AllowedActions lists what actor can do next from status.
func AllowedActions(status models.TestDriveStatus, actor Actor) []Action {
	out := []Action{}
	for _, a := range actionOrder {
		if testDriveRules[a].actor != actor {
			continue
		}
		if _, err := NextTestDriveStatus(status, a); err == nil {
			out = append(out, a)
		}
	}
	return out
}

// RescheduleOrigin tells who opened the current reschedule proposal.
func RescheduleOrigin(t models.TestDrive) Actor {
	switch t.Status {
	case models.TestDriveRescheduled:
		return ActorAdmin
	case models.TestDriveRescheduleRequested:
		return ActorCustomer
	default:
		return ""
	}
}

// Command is one requested transition with its arguments.
type Command struct {
	Action  Action
	ActorID string
	Date    string
	Time    string
	Reason  string
	Notes   string
	Now     time.Time
}

// ApplyTestDrive runs cmd against t. On error t is left untouched.
func ApplyTestDrive(t *models.TestDrive, cmd Command) error {
	next, err := NextTestDriveStatus(t.Status, cmd.Action)
	if err != nil {
		return err
	}
	now := cmd.Now
	if now.IsZero() {
		now = time.Now()
	}

	out := *t
	switch cmd.Action {
	case ActionApprove:
		if out.Status == models.TestDriveRescheduleRequested && out.HasProposal() {
			out.ScheduledDate, out.ScheduledTime = out.ProposedDate, out.ProposedTime
		}
		out.ClearProposal()
		stamp := now
		out.ConfirmedAt = &stamp
		out.ConfirmedBy = cmd.ActorID

	case ActionReject:
		reason := strings.TrimSpace(cmd.Reason)
		if reason == "" {
			return domain.ValidationError{Field: "reason", Msg: "alasan penolakan harus diisi"}
		}
		out.ClearProposal()
		out.RejectionReason = reason
		stamp := now
		out.CancelledAt = &stamp
		out.CancelledBy = cmd.ActorID

	case ActionReschedule, ActionRequestReschedule:
		if err := ValidateSlot("new_date", "new_time", cmd.Date, cmd.Time, now); err != nil {
			return err
		}
		out.ProposedDate = strings.TrimSpace(cmd.Date)
		out.ProposedTime = strings.TrimSpace(cmd.Time)
		out.ProposedBy = cmd.ActorID
		if cmd.Action == ActionReschedule {
			out.ProposalNote = strings.TrimSpace(cmd.Reason)
			out.AdminNotes = strings.TrimSpace(cmd.Reason)
		} else {
			out.ProposalNote = strings.TrimSpace(cmd.Notes)
		}
		out.ConfirmedAt = nil
		out.ConfirmedBy = ""

	case ActionConfirmReschedule:
		if !out.HasProposal() {
			return domain.ValidationError{Field: "proposal", Msg: "tidak ada jadwal baru untuk dikonfirmasi"}
		}
		out.ScheduledDate, out.ScheduledTime = out.ProposedDate, out.ProposedTime
		out.ConfirmedBy = out.ProposedBy
		out.ClearProposal()
		stamp := now
		out.ConfirmedAt = &stamp

	case ActionCancel:
		out.ClearProposal()
		stamp := now
		out.CancelledAt = &stamp
		out.CancelledBy = cmd.ActorID

	case ActionComplete:
		stamp := now
		out.CompletedAt = &stamp

	case ActionNoShow:
	}

	out.Status = next
	*t = out
	return nil
}

// ValidateSlot checks a requested date/time: format, showroom slot and in the future.
func ValidateSlot(dateField, timeField, date, hm string, now time.Time) error {
	var errs domain.ValidationErrors
	date = strings.TrimSpace(date)
	hm = strings.TrimSpace(hm)

	if date == "" {
		errs.Add(dateField, "tanggal harus diisi")
	} else if _, err := utils.ParseDate(date); err != nil {
		errs.Add(dateField, "format tanggal harus YYYY-MM-DD")
	}
	if hm == "" {
		errs.Add(timeField, "waktu harus diisi")
	} else if !utils.IsHHMM(hm) {
		errs.Add(timeField, "format waktu harus HH:MM")
	} else if !IsShowroomSlot(hm) {
		errs.Add(timeField, "waktu di luar jam test drive")
	}
	if len(errs) > 0 {
		return errs
	}

	at, err := utils.ParseSlot(date, hm)
	if err != nil {
		errs.Add(dateField, "tanggal tidak valid")
		return errs
	}
	if !at.After(now) {
		errs.Add(dateField, "jadwal harus di masa depan")
		return errs
	}
	return nil
}

func IsShowroomSlot(hm string) bool {
	for _, s := range models.ShowroomSlots {
		if s == hm {
			return true
		}
	}
	return false
}
