package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	intconfig "showroom/internal/config"
	intdb "showroom/internal/db"
	"showroom/internal/domain"
	"showroom/internal/domain/models"
)

type TestDriveRepository struct {
	DB *sql.DB
}

func (r TestDriveRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

const testDriveColumns = `
		id,
		user_id,
		car_id,
		customer_name,
		customer_email,
		customer_phone,
		scheduled_date,
		scheduled_time,
		duration_minutes,
		COALESCE(location,''),
		status,
		COALESCE(user_notes,''),
		COALESCE(admin_notes,''),
		COALESCE(rejection_reason,''),
		COALESCE(proposed_date,''),
		COALESCE(proposed_time,''),
		COALESCE(proposal_note,''),
		COALESCE(proposed_by,''),
		COALESCE(confirmed_by,''),
		confirmed_at,
		COALESCE(cancelled_by,''),
		cancelled_at,
		completed_at,
		COALESCE(feedback,''),
		COALESCE(experience_rating,0),
		is_interested,
		version,
		created_at,
		updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTestDrive(row rowScanner) (models.TestDrive, error) {
	var (
		t           models.TestDrive
		status      string
		confirmedAt sql.NullTime
		cancelledAt sql.NullTime
		completedAt sql.NullTime
		interested  sql.NullBool
	)
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.CarID,
		&t.CustomerName,
		&t.CustomerEmail,
		&t.CustomerPhone,
		&t.ScheduledDate,
		&t.ScheduledTime,
		&t.DurationMinutes,
		&t.Location,
		&status,
		&t.UserNotes,
		&t.AdminNotes,
		&t.RejectionReason,
		&t.ProposedDate,
		&t.ProposedTime,
		&t.ProposalNote,
		&t.ProposedBy,
		&t.ConfirmedBy,
		&confirmedAt,
		&t.CancelledBy,
		&cancelledAt,
		&completedAt,
		&t.Feedback,
		&t.ExperienceRating,
		&interested,
		&t.Version,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return models.TestDrive{}, err
	}
	t.Status = models.TestDriveStatus(status)
	t.ConfirmedAt = intdb.TimePtr(confirmedAt)
	t.CancelledAt = intdb.TimePtr(cancelledAt)
	t.CompletedAt = intdb.TimePtr(completedAt)
	if interested.Valid {
		v := interested.Bool
		t.IsInterested = &v
	}
	return t, nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Create inserts a new booking; ID, timestamps and version are expected to be set.
// The car row stays locked while the active-booking and slot checks run, so two
// requests for the same car are serialized until commit.
func (r TestDriveRepository) Create(ctx context.Context, t models.TestDrive) error {
	db := r.db()
	if db == nil {
		return fmt.Errorf("db tidak tersedia")
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var carID string
	if err := tx.QueryRowContext(ctx, `SELECT id FROM cars WHERE id=? FOR UPDATE`, t.CarID).Scan(&carID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFoundError{Resource: "car", Err: err}
		}
		return err
	}

	active, err := findActiveForUserCar(ctx, tx, t.UserID, t.CarID)
	if err != nil {
		return err
	}
	if active != nil {
		return domain.ConflictError{Resource: "test_drive", Msg: "anda sudah memiliki booking aktif untuk mobil ini"}
	}
	slots, err := listOccupiedSlots(ctx, tx, t.CarID, t.ScheduledDate)
	if err != nil {
		return err
	}
	for _, o := range slots {
		if o.Time == t.ScheduledTime {
			return domain.ConflictError{Resource: "test_drive", Msg: "jadwal " + t.ScheduledDate + " " + t.ScheduledTime + " sudah terisi"}
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO test_drive_requests (
			id, user_id, car_id, customer_name, customer_email, customer_phone,
			scheduled_date, scheduled_time, duration_minutes, location, status,
			user_notes, version, created_at, updated_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.UserID, t.CarID, t.CustomerName, t.CustomerEmail, t.CustomerPhone,
		t.ScheduledDate, t.ScheduledTime, t.DurationMinutes, t.Location, string(t.Status),
		intdb.NullIfEmpty(t.UserNotes), t.Version, t.CreatedAt, t.UpdatedAt,
	); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func (r TestDriveRepository) GetByID(ctx context.Context, id string) (models.TestDrive, error) {
	db := r.db()
	if db == nil {
		return models.TestDrive{}, fmt.Errorf("db tidak tersedia")
	}
	row := db.QueryRowContext(ctx, `SELECT `+testDriveColumns+`
		FROM test_drive_requests
		WHERE id=? LIMIT 1`, id)
	t, err := scanTestDrive(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.TestDrive{}, domain.NotFoundError{Resource: "test_drive", Err: err}
		}
		return models.TestDrive{}, err
	}
	return t, nil
}

// ListByUser returns the caller's history, newest first.
func (r TestDriveRepository) ListByUser(ctx context.Context, userID string) ([]models.TestDrive, error) {
	db := r.db()
	if db == nil {
		return nil, fmt.Errorf("db tidak tersedia")
	}
	rows, err := db.QueryContext(ctx, `SELECT `+testDriveColumns+`
		FROM test_drive_requests
		WHERE user_id=?
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return collectTestDrives(rows)
}

// ListAll applies the admin filter and returns one page plus the total count.
func (r TestDriveRepository) ListAll(ctx context.Context, f models.TestDriveFilter) ([]models.TestDrive, int, error) {
	db := r.db()
	if db == nil {
		return nil, 0, fmt.Errorf("db tidak tersedia")
	}

	where := []string{}
	args := []any{}
	if f.Status != "" {
		where = append(where, "status=?")
		args = append(args, string(f.Status))
	}
	if f.CarID != "" {
		where = append(where, "car_id=?")
		args = append(args, f.CarID)
	}
	if f.UserID != "" {
		where = append(where, "user_id=?")
		args = append(args, f.UserID)
	}
	if f.DateFrom != "" {
		where = append(where, "scheduled_date>=?")
		args = append(args, f.DateFrom)
	}
	if f.DateTo != "" {
		where = append(where, "scheduled_date<=?")
		args = append(args, f.DateTo)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM test_drive_requests`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	p := domain.Pagination{Page: f.Page, PageSize: f.PageSize}.Normalize()
	pageArgs := append(append([]any{}, args...), p.PageSize, p.Offset())
	rows, err := db.QueryContext(ctx, `SELECT `+testDriveColumns+`
		FROM test_drive_requests`+clause+`
		ORDER BY scheduled_date DESC, scheduled_time DESC
		LIMIT ? OFFSET ?`, pageArgs...)
	if err != nil {
		return nil, 0, err
	}
	list, err := collectTestDrives(rows)
	return list, total, err
}

// FindActiveForUserCar returns the customer's open booking for a car, if any.
func (r TestDriveRepository) FindActiveForUserCar(ctx context.Context, userID, carID string) (*models.TestDrive, error) {
	db := r.db()
	if db == nil {
		return nil, fmt.Errorf("db tidak tersedia")
	}
	return findActiveForUserCar(ctx, db, userID, carID)
}

func findActiveForUserCar(ctx context.Context, q querier, userID, carID string) (*models.TestDrive, error) {
	in, args := activeStatusArgs()
	args = append([]any{userID, carID}, args...)
	row := q.QueryRowContext(ctx, `SELECT `+testDriveColumns+`
		FROM test_drive_requests
		WHERE user_id=? AND car_id=? AND status IN (`+in+`)
		LIMIT 1`, args...)
	t, err := scanTestDrive(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// OccupiedSlot is an active booking holding (or proposing) a time on a date.
type OccupiedSlot struct {
	BookingID string
	Time      string
}

// ListOccupiedSlots returns agreed and proposed slots of active bookings for car on date.
func (r TestDriveRepository) ListOccupiedSlots(ctx context.Context, carID, date string) ([]OccupiedSlot, error) {
	db := r.db()
	if db == nil {
		return nil, fmt.Errorf("db tidak tersedia")
	}
	return listOccupiedSlots(ctx, db, carID, date)
}

func listOccupiedSlots(ctx context.Context, q querier, carID, date string) ([]OccupiedSlot, error) {
	in, statusArgs := activeStatusArgs()
	args := []any{carID, date}
	args = append(args, statusArgs...)
	args = append(args, carID, date)
	args = append(args, statusArgs...)

	rows, err := q.QueryContext(ctx, `
		SELECT id, scheduled_time FROM test_drive_requests
		WHERE car_id=? AND scheduled_date=? AND status IN (`+in+`)
		UNION ALL
		SELECT id, proposed_time FROM test_drive_requests
		WHERE car_id=? AND proposed_date=? AND status IN (`+in+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []OccupiedSlot{}
	for rows.Next() {
		var s OccupiedSlot
		var hm sql.NullString
		if err := rows.Scan(&s.BookingID, &hm); err != nil {
			return nil, err
		}
		if !hm.Valid || hm.String == "" {
			continue
		}
		s.Time = hm.String
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpdateState writes status, schedule, proposal and stamps when the row still has expectedVersion.
func (r TestDriveRepository) UpdateState(ctx context.Context, t models.TestDrive, expectedVersion int64) error {
	db := r.db()
	if db == nil {
		return fmt.Errorf("db tidak tersedia")
	}
	res, err := db.ExecContext(ctx, `
		UPDATE test_drive_requests SET
			status=?,
			scheduled_date=?,
			scheduled_time=?,
			admin_notes=?,
			rejection_reason=?,
			proposed_date=?,
			proposed_time=?,
			proposal_note=?,
			proposed_by=?,
			confirmed_by=?,
			confirmed_at=?,
			cancelled_by=?,
			cancelled_at=?,
			completed_at=?,
			version=version+1,
			updated_at=?
		WHERE id=? AND version=?`,
		string(t.Status),
		t.ScheduledDate,
		t.ScheduledTime,
		intdb.NullIfEmpty(t.AdminNotes),
		intdb.NullIfEmpty(t.RejectionReason),
		intdb.NullIfEmpty(t.ProposedDate),
		intdb.NullIfEmpty(t.ProposedTime),
		intdb.NullIfEmpty(t.ProposalNote),
		intdb.NullIfEmpty(t.ProposedBy),
		intdb.NullIfEmpty(t.ConfirmedBy),
		intdb.NullTime(t.ConfirmedAt),
		intdb.NullIfEmpty(t.CancelledBy),
		intdb.NullTime(t.CancelledAt),
		intdb.NullTime(t.CompletedAt),
		t.UpdatedAt,
		t.ID,
		expectedVersion,
	)
	return versionResult(res, err, "test_drive")
}

// UpdateFeedback stores the customer's post-drive feedback under the same version guard.
func (r TestDriveRepository) UpdateFeedback(ctx context.Context, t models.TestDrive, expectedVersion int64) error {
	db := r.db()
	if db == nil {
		return fmt.Errorf("db tidak tersedia")
	}
	var interested any
	if t.IsInterested != nil {
		interested = *t.IsInterested
	}
	res, err := db.ExecContext(ctx, `
		UPDATE test_drive_requests SET
			feedback=?,
			experience_rating=?,
			is_interested=?,
			version=version+1,
			updated_at=?
		WHERE id=? AND version=?`,
		intdb.NullIfEmpty(t.Feedback),
		t.ExperienceRating,
		interested,
		t.UpdatedAt,
		t.ID,
		expectedVersion,
	)
	return versionResult(res, err, "test_drive")
}

// CountByStatus is used by the admin stats endpoint.
func (r TestDriveRepository) CountByStatus(ctx context.Context) (map[models.TestDriveStatus]int, error) {
	db := r.db()
	if db == nil {
		return nil, fmt.Errorf("db tidak tersedia")
	}
	rows, err := db.QueryContext(ctx, `SELECT status, COUNT(*) FROM test_drive_requests GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[models.TestDriveStatus]int{}
	for _, s := range models.TestDriveStatuses {
		out[s] = 0
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[models.TestDriveStatus(status)] = n
	}
	return out, rows.Err()
}

func collectTestDrives(rows *sql.Rows) ([]models.TestDrive, error) {
	defer rows.Close()
	out := []models.TestDrive{}
	for rows.Next() {
		t, err := scanTestDrive(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func activeStatusArgs() (string, []any) {
	marks := make([]string, 0, len(models.ActiveTestDriveStatuses))
	args := make([]any, 0, len(models.ActiveTestDriveStatuses))
	for _, s := range models.ActiveTestDriveStatuses {
		marks = append(marks, "?")
		args = append(args, string(s))
	}
	return strings.Join(marks, ","), args
}

// versionResult turns a zero-row conditional update into a ConflictError.
func versionResult(res sql.Result, err error, resource string) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ConflictError{Resource: resource, Msg: "data sudah diubah oleh proses lain, muat ulang lalu coba lagi"}
	}
	return nil
}
