package services

import (
	"context"
	"testing"
	"time"

	"showroom/internal/domain"
	"showroom/internal/domain/models"
	"showroom/internal/lifecycle"
	"showroom/internal/metrics"
)

var (
	fixedNow = time.Date(2025, 6, 2, 8, 0, 0, 0, time.Local)
	customer = domain.RequestContext{UserID: "user-1", Role: domain.RoleUser}
	other    = domain.RequestContext{UserID: "user-2", Role: domain.RoleUser}
	admin    = domain.RequestContext{UserID: "admin-1", Role: domain.RoleAdmin}
)

func newTestDriveService(rows ...models.TestDrive) (TestDriveService, *fakeTestDrives) {
	store := newFakeTestDrives(rows...)
	return TestDriveService{
		Repo: store,
		Cars: &fakeCars{cars: map[string]models.Car{
			"car-1": {ID: "car-1", Title: "Avanza", Status: models.CarAvailable},
			"car-2": {ID: "car-2", Title: "Fortuner", Status: "sold"},
		}},
		Metrics: metrics.New(),
		Now:     func() time.Time { return fixedNow },
	}, store
}

func validInput() models.TestDriveInput {
	return models.TestDriveInput{
		CarID:         "car-1",
		ScheduledDate: "2025-06-10",
		ScheduledTime: "10:00",
		CustomerName:  "  Budi   Santoso ",
		CustomerEmail: "budi@example.com",
		CustomerPhone: "+62 812-3456-789",
	}
}

func TestCreateTestDrive(t *testing.T) {
	svc, store := newTestDriveService()

	td, err := svc.Create(context.Background(), customer, validInput())
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if td.Status != models.TestDrivePending || td.DurationMinutes != 30 || td.Location != "Showroom" || td.Version != 1 {
		t.Fatalf("unexpected defaults: %+v", td)
	}
	if td.CustomerName != "Budi Santoso" || td.UserID != "user-1" {
		t.Fatalf("unexpected record: %+v", td)
	}
	if _, ok := store.rows[td.ID]; !ok {
		t.Fatalf("booking not stored")
	}
}

func TestCreateTestDriveValidation(t *testing.T) {
	svc, store := newTestDriveService()

	in := validInput()
	in.CustomerEmail = "nope"
	in.CustomerName = ""
	in.ScheduledTime = "12:00"
	_, err := svc.Create(context.Background(), customer, in)
	fields := map[string]bool{}
	for _, fe := range domain.FieldErrors(err) {
		fields[fe.Field] = true
	}
	for _, f := range []string{"customer_email", "customer_name", "scheduled_time"} {
		if !fields[f] {
			t.Fatalf("missing field error %s: %v", f, err)
		}
	}

	past := validInput()
	past.ScheduledDate = "2025-06-01"
	if _, err := svc.Create(context.Background(), customer, past); !domain.IsValidation(err) {
		t.Fatalf("past date should fail validation, got %v", err)
	}
	if len(store.rows) != 0 {
		t.Fatalf("invalid requests must not be stored")
	}
}

func TestCreateTestDriveCarChecks(t *testing.T) {
	svc, _ := newTestDriveService()

	sold := validInput()
	sold.CarID = "car-2"
	if _, err := svc.Create(context.Background(), customer, sold); !domain.IsValidation(err) {
		t.Fatalf("sold car should be rejected, got %v", err)
	}
	missing := validInput()
	missing.CarID = "car-404"
	if _, err := svc.Create(context.Background(), customer, missing); !domain.IsValidation(err) {
		t.Fatalf("unknown car should be rejected, got %v", err)
	}
}

func TestCreateTestDriveConflicts(t *testing.T) {
	svc, _ := newTestDriveService()
	if _, err := svc.Create(context.Background(), customer, validInput()); err != nil {
		t.Fatalf("first create error: %v", err)
	}

	again := validInput()
	again.ScheduledTime = "11:00"
	if _, err := svc.Create(context.Background(), customer, again); !domain.IsConflict(err) {
		t.Fatalf("second active booking for same car should conflict, got %v", err)
	}
	if _, err := svc.Create(context.Background(), other, validInput()); !domain.IsConflict(err) {
		t.Fatalf("taken slot should conflict, got %v", err)
	}
}

func TestCreateTestDriveLostInsertRace(t *testing.T) {
	svc, store := newTestDriveService()
	store.createErr = domain.ConflictError{Resource: "test_drive", Msg: "jadwal 2025-06-10 10:00 sudah terisi"}

	_, err := svc.Create(context.Background(), customer, validInput())
	if !domain.IsConflict(err) {
		t.Fatalf("clash found at insert should stay a conflict, got %v", err)
	}

	store.createErr = errBoom
	if _, err := svc.Create(context.Background(), customer, validInput()); !domain.IsInternal(err) {
		t.Fatalf("storage failure should be internal, got %v", err)
	}
}

func TestAvailableSlots(t *testing.T) {
	svc, _ := newTestDriveService(
		models.TestDrive{ID: "a", CarID: "car-1", ScheduledDate: "2025-06-10", ScheduledTime: "09:00", Status: models.TestDriveConfirmed},
		models.TestDrive{ID: "b", CarID: "car-1", ScheduledDate: "2025-06-11", ScheduledTime: "09:00", ProposedDate: "2025-06-10", ProposedTime: "13:00", Status: models.TestDriveRescheduled},
		models.TestDrive{ID: "c", CarID: "car-1", ScheduledDate: "2025-06-10", ScheduledTime: "14:00", Status: models.TestDriveCancelled},
	)

	slots, err := svc.AvailableSlots(context.Background(), "car-1", "2025-06-10")
	if err != nil {
		t.Fatalf("AvailableSlots error: %v", err)
	}
	want := []string{"10:00", "11:00", "14:00", "15:00", "16:00", "17:00"}
	if len(slots) != len(want) {
		t.Fatalf("slots = %v, want %v", slots, want)
	}
	for i := range want {
		if slots[i] != want[i] {
			t.Fatalf("slots = %v, want %v", slots, want)
		}
	}

	if _, err := svc.AvailableSlots(context.Background(), "car-1", "10-06-2025"); !domain.IsValidation(err) {
		t.Fatalf("bad date should fail")
	}
}

func TestGetTestDriveOwnership(t *testing.T) {
	svc, _ := newTestDriveService(models.TestDrive{ID: "td-1", UserID: "user-1", Status: models.TestDrivePending})

	if _, err := svc.Get(context.Background(), customer, "td-1"); err != nil {
		t.Fatalf("owner should read: %v", err)
	}
	if _, err := svc.Get(context.Background(), admin, "td-1"); err != nil {
		t.Fatalf("admin should read: %v", err)
	}
	if _, err := svc.Get(context.Background(), other, "td-1"); !domain.IsForbidden(err) {
		t.Fatalf("other customer should be forbidden, got %v", err)
	}
}

func TestTransitionRoles(t *testing.T) {
	svc, _ := newTestDriveService(models.TestDrive{ID: "td-1", UserID: "user-1", CarID: "car-1", Status: models.TestDrivePending, Version: 1})

	if _, err := svc.Transition(context.Background(), customer, "td-1", lifecycle.Command{Action: lifecycle.ActionApprove}); !domain.IsForbidden(err) {
		t.Fatalf("customer approve should be forbidden, got %v", err)
	}
	if _, err := svc.Transition(context.Background(), other, "td-1", lifecycle.Command{Action: lifecycle.ActionCancel}); !domain.IsForbidden(err) {
		t.Fatalf("cancel by someone else should be forbidden, got %v", err)
	}

	td, err := svc.Transition(context.Background(), admin, "td-1", lifecycle.Command{Action: lifecycle.ActionApprove})
	if err != nil {
		t.Fatalf("approve error: %v", err)
	}
	if td.Status != models.TestDriveConfirmed || td.ConfirmedBy != "admin-1" || td.Version != 2 {
		t.Fatalf("unexpected approved booking: %+v", td)
	}
	if _, err := svc.Transition(context.Background(), admin, "td-1", lifecycle.Command{Action: lifecycle.ActionApprove}); !domain.IsTransition(err) {
		t.Fatalf("approving twice should be a transition error, got %v", err)
	}
}

// staleReads returns the row one version behind, as if another writer committed in between.
type staleReads struct {
	*fakeTestDrives
}

func (s staleReads) GetByID(ctx context.Context, id string) (models.TestDrive, error) {
	t, err := s.fakeTestDrives.GetByID(ctx, id)
	t.Version--
	return t, err
}

func TestTransitionLostUpdateIsConflict(t *testing.T) {
	svc, store := newTestDriveService(models.TestDrive{ID: "td-1", UserID: "user-1", Status: models.TestDrivePending, Version: 3})
	svc.Repo = staleReads{store}

	_, err := svc.Transition(context.Background(), admin, "td-1", lifecycle.Command{Action: lifecycle.ActionReject, Reason: "Mobil sedang servis"})
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if store.rows["td-1"].Status != models.TestDrivePending {
		t.Fatalf("losing writer must not change the row")
	}
}

func TestRescheduleToTakenSlotConflicts(t *testing.T) {
	svc, _ := newTestDriveService(
		models.TestDrive{ID: "td-1", UserID: "user-1", CarID: "car-1", ScheduledDate: "2025-06-10", ScheduledTime: "10:00", Status: models.TestDriveConfirmed, Version: 1},
		models.TestDrive{ID: "td-2", UserID: "user-2", CarID: "car-1", ScheduledDate: "2025-06-12", ScheduledTime: "11:00", Status: models.TestDrivePending, Version: 1},
	)

	_, err := svc.Transition(context.Background(), customer, "td-1", lifecycle.Command{
		Action: lifecycle.ActionRequestReschedule, Date: "2025-06-12", Time: "11:00",
	})
	if !domain.IsConflict(err) {
		t.Fatalf("expected slot conflict, got %v", err)
	}

	td, err := svc.Transition(context.Background(), customer, "td-1", lifecycle.Command{
		Action: lifecycle.ActionRequestReschedule, Date: "2025-06-10", Time: "10:00", Notes: "same slot is fine",
	})
	if err != nil {
		t.Fatalf("own slot should not conflict: %v", err)
	}
	if td.Status != models.TestDriveRescheduleRequested {
		t.Fatalf("status = %s", td.Status)
	}
}

func TestTestDriveNegotiationScenario(t *testing.T) {
	svc, _ := newTestDriveService()
	ctx := context.Background()

	td, err := svc.Create(ctx, customer, validInput())
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	td, err = svc.Transition(ctx, admin, td.ID, lifecycle.Command{Action: lifecycle.ActionReschedule, Date: "2025-06-11", Time: "13:00", Reason: "Unit sedang dicuci"})
	if err != nil || td.Status != models.TestDriveRescheduled || td.AdminNotes != "Unit sedang dicuci" {
		t.Fatalf("admin reschedule: %+v %v", td, err)
	}

	td, err = svc.Transition(ctx, customer, td.ID, lifecycle.Command{Action: lifecycle.ActionConfirmReschedule})
	if err != nil || td.Status != models.TestDriveConfirmed || td.ScheduledDate != "2025-06-11" || td.ScheduledTime != "13:00" {
		t.Fatalf("confirm reschedule: %+v %v", td, err)
	}
	if td.ConfirmedBy != "admin-1" || td.HasProposal() {
		t.Fatalf("confirmation stamps wrong: %+v", td)
	}

	td, err = svc.Transition(ctx, customer, td.ID, lifecycle.Command{Action: lifecycle.ActionRequestReschedule, Date: "2025-06-12", Time: "15:00", Notes: "ada rapat"})
	if err != nil || td.Status != models.TestDriveRescheduleRequested || td.ConfirmedAt != nil {
		t.Fatalf("request reschedule: %+v %v", td, err)
	}

	td, err = svc.Transition(ctx, admin, td.ID, lifecycle.Command{Action: lifecycle.ActionApprove})
	if err != nil || td.ScheduledDate != "2025-06-12" || td.ScheduledTime != "15:00" {
		t.Fatalf("approve request: %+v %v", td, err)
	}

	td, err = svc.Transition(ctx, admin, td.ID, lifecycle.Command{Action: lifecycle.ActionComplete})
	if err != nil || td.Status != models.TestDriveCompleted || td.CompletedAt == nil {
		t.Fatalf("complete: %+v %v", td, err)
	}

	interested := true
	td, err = svc.Feedback(ctx, customer, td.ID, models.TestDriveFeedback{Rating: 5, Feedback: "Mantap", IsInterested: &interested})
	if err != nil || td.ExperienceRating != 5 || td.IsInterested == nil || !*td.IsInterested {
		t.Fatalf("feedback: %+v %v", td, err)
	}

	if _, err := svc.Transition(ctx, customer, td.ID, lifecycle.Command{Action: lifecycle.ActionCancel}); !domain.IsTransition(err) {
		t.Fatalf("completed booking cannot be cancelled, got %v", err)
	}
}

func TestFeedbackRules(t *testing.T) {
	svc, _ := newTestDriveService(
		models.TestDrive{ID: "td-1", UserID: "user-1", Status: models.TestDriveConfirmed, Version: 1},
		models.TestDrive{ID: "td-2", UserID: "user-1", Status: models.TestDriveCompleted, Version: 1},
	)
	if _, err := svc.Feedback(context.Background(), customer, "td-1", models.TestDriveFeedback{Rating: 4}); !domain.IsTransition(err) {
		t.Fatalf("feedback before completion should fail, got %v", err)
	}
	if _, err := svc.Feedback(context.Background(), customer, "td-2", models.TestDriveFeedback{Rating: 9}); !domain.IsValidation(err) {
		t.Fatalf("rating 9 should fail validation, got %v", err)
	}
	if _, err := svc.Feedback(context.Background(), other, "td-2", models.TestDriveFeedback{Rating: 4}); !domain.IsForbidden(err) {
		t.Fatalf("other customer feedback should be forbidden, got %v", err)
	}
}

func TestStatsAndListFilter(t *testing.T) {
	svc, _ := newTestDriveService(
		models.TestDrive{ID: "a", Status: models.TestDrivePending},
		models.TestDrive{ID: "b", Status: models.TestDrivePending},
		models.TestDrive{ID: "c", Status: models.TestDriveNoShow},
	)
	stats, err := svc.Stats(context.Background())
	if err != nil || stats[models.TestDrivePending] != 2 || stats[models.TestDriveNoShow] != 1 {
		t.Fatalf("stats = %v err=%v", stats, err)
	}
	if _, _, err := svc.ListAll(context.Background(), models.TestDriveFilter{Status: "weird"}); !domain.IsValidation(err) {
		t.Fatalf("unknown status filter should fail")
	}
}
