package repositories

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"showroom/internal/domain"
	"showroom/internal/domain/models"

	"github.com/DATA-DOG/go-sqlmock"
)

var testDriveCols = []string{
	"id", "user_id", "car_id", "customer_name", "customer_email", "customer_phone",
	"scheduled_date", "scheduled_time", "duration_minutes", "location", "status",
	"user_notes", "admin_notes", "rejection_reason",
	"proposed_date", "proposed_time", "proposal_note", "proposed_by",
	"confirmed_by", "confirmed_at", "cancelled_by", "cancelled_at", "completed_at",
	"feedback", "experience_rating", "is_interested", "version", "created_at", "updated_at",
}

func testDriveRow(rows *sqlmock.Rows, id, status string, confirmedAt any) *sqlmock.Rows {
	created := time.Date(2025, 1, 5, 10, 0, 0, 0, time.UTC)
	return rows.AddRow(
		id, "user-1", "car-1", "Budi", "budi@example.com", "08123456789",
		"2025-02-01", "10:00", 30, "Showroom", status,
		"", "", "",
		"", "", "", "",
		"admin-1", confirmedAt, "", nil, nil,
		"", 0, nil, int64(2), created, created,
	)
}

func TestTestDriveGetByIDMapsRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	confirmed := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM test_drive_requests").WithArgs("td-1").
		WillReturnRows(testDriveRow(sqlmock.NewRows(testDriveCols), "td-1", "confirmed", confirmed))

	repo := TestDriveRepository{DB: db}
	td, err := repo.GetByID(context.Background(), "td-1")
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if td.Status != models.TestDriveConfirmed {
		t.Fatalf("status = %q", td.Status)
	}
	if td.ConfirmedAt == nil || !td.ConfirmedAt.Equal(confirmed) {
		t.Fatalf("confirmed_at not mapped: %v", td.ConfirmedAt)
	}
	if td.CancelledAt != nil || td.IsInterested != nil {
		t.Fatalf("null columns should stay nil")
	}
	if td.Version != 2 {
		t.Fatalf("version = %d", td.Version)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTestDriveGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM test_drive_requests").WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err = TestDriveRepository{DB: db}.GetByID(context.Background(), "missing")
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestTestDriveUpdateStateVersionGuard(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	td := models.TestDrive{
		ID:            "td-1",
		Status:        models.TestDriveCancelled,
		ScheduledDate: "2025-02-01",
		ScheduledTime: "10:00",
		UpdatedAt:     time.Now(),
	}

	mock.ExpectExec("UPDATE test_drive_requests SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE test_drive_requests SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := TestDriveRepository{DB: db}
	if err := repo.UpdateState(context.Background(), td, 1); err != nil {
		t.Fatalf("first update error: %v", err)
	}
	if err := repo.UpdateState(context.Background(), td, 1); !domain.IsConflict(err) {
		t.Fatalf("stale version should conflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTestDriveListOccupiedSlots(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("UNION ALL").
		WithArgs("car-1", "2025-02-01", "pending", "confirmed", "rescheduled", "reschedule_requested",
			"car-1", "2025-02-01", "pending", "confirmed", "rescheduled", "reschedule_requested").
		WillReturnRows(sqlmock.NewRows([]string{"id", "scheduled_time"}).
			AddRow("td-1", "10:00").
			AddRow("td-2", "14:00").
			AddRow("td-3", nil))

	slots, err := TestDriveRepository{DB: db}.ListOccupiedSlots(context.Background(), "car-1", "2025-02-01")
	if err != nil {
		t.Fatalf("ListOccupiedSlots error: %v", err)
	}
	if len(slots) != 2 || slots[0].Time != "10:00" || slots[1].BookingID != "td-2" {
		t.Fatalf("unexpected slots: %+v", slots)
	}
}

func newBooking() models.TestDrive {
	now := time.Date(2025, 1, 5, 10, 0, 0, 0, time.UTC)
	return models.TestDrive{
		ID: "td-9", UserID: "user-1", CarID: "car-1", CustomerName: "Budi", CustomerEmail: "budi@example.com",
		CustomerPhone: "08123456789", ScheduledDate: "2025-02-01", ScheduledTime: "10:00", DurationMinutes: 30,
		Location: "Showroom", Status: models.TestDrivePending, Version: 1, CreatedAt: now, UpdatedAt: now,
	}
}

func TestTestDriveCreateLocksCarAndInserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM cars WHERE id=\\? FOR UPDATE").WithArgs("car-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("car-1"))
	mock.ExpectQuery("WHERE user_id=\\? AND car_id=\\?").WillReturnRows(sqlmock.NewRows(testDriveCols))
	mock.ExpectQuery("UNION ALL").WillReturnRows(sqlmock.NewRows([]string{"id", "scheduled_time"}).AddRow("td-1", "14:00"))
	mock.ExpectExec("INSERT INTO test_drive_requests").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := (TestDriveRepository{DB: db}).Create(context.Background(), newBooking()); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTestDriveCreateTakenSlotRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs("car-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("car-1"))
	mock.ExpectQuery("WHERE user_id=\\? AND car_id=\\?").WillReturnRows(sqlmock.NewRows(testDriveCols))
	mock.ExpectQuery("UNION ALL").WillReturnRows(sqlmock.NewRows([]string{"id", "scheduled_time"}).AddRow("td-1", "10:00"))
	mock.ExpectRollback()

	err = TestDriveRepository{DB: db}.Create(context.Background(), newBooking())
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTestDriveCreateActiveBookingRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs("car-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("car-1"))
	mock.ExpectQuery("WHERE user_id=\\? AND car_id=\\?").
		WillReturnRows(testDriveRow(sqlmock.NewRows(testDriveCols), "td-1", "pending", nil))
	mock.ExpectRollback()

	err = TestDriveRepository{DB: db}.Create(context.Background(), newBooking())
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTestDriveFindActiveForUserCarNone(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("status IN").WillReturnRows(sqlmock.NewRows(testDriveCols))

	found, err := TestDriveRepository{DB: db}.FindActiveForUserCar(context.Background(), "user-1", "car-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found != nil {
		t.Fatalf("expected no active booking, got %+v", found)
	}
}

func TestTestDriveListAllAppliesFilter(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT").WithArgs("pending", "car-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))
	mock.ExpectQuery("LIMIT").WithArgs("pending", "car-1", 10, 10).
		WillReturnRows(testDriveRow(sqlmock.NewRows(testDriveCols), "td-11", "pending", nil))

	list, total, err := TestDriveRepository{DB: db}.ListAll(context.Background(), models.TestDriveFilter{
		Status: models.TestDrivePending,
		CarID:  "car-1",
		Page:   2,
	})
	if err != nil {
		t.Fatalf("ListAll error: %v", err)
	}
	if total != 11 || len(list) != 1 || list[0].ID != "td-11" {
		t.Fatalf("unexpected page: total=%d list=%+v", total, list)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTestDriveCountByStatusFillsZeros(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("GROUP BY status").
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).AddRow("pending", 3).AddRow("completed", 1))

	counts, err := TestDriveRepository{DB: db}.CountByStatus(context.Background())
	if err != nil {
		t.Fatalf("CountByStatus error: %v", err)
	}
	if counts[models.TestDrivePending] != 3 || counts[models.TestDriveCompleted] != 1 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
	if n, ok := counts[models.TestDriveNoShow]; !ok || n != 0 {
		t.Fatalf("missing zero entry for no_show")
	}
}
