package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"showroom/internal/domain"
	"showroom/internal/domain/models"
	"showroom/internal/lifecycle"
	"showroom/internal/metrics"
	"showroom/internal/utils"
	"showroom/internal/validation"

	"github.com/google/uuid"
)

// TestDriveService menangani booking test drive dari intake sampai selesai.
type TestDriveService struct {
	Repo      TestDriveStore
	Cars      CarLookup
	Validator *validation.Validator
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

func (s TestDriveService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s TestDriveService) validator() *validation.Validator {
	if s.Validator != nil {
		return s.Validator
	}
	return validation.New()
}

// Create validates intake and stores a pending booking for the caller.
func (s TestDriveService) Create(ctx context.Context, rc domain.RequestContext, in models.TestDriveInput) (models.TestDrive, error) {
	reqID := utils.RequestIDFrom(ctx)
	if rc.UserID == "" {
		return models.TestDrive{}, domain.ForbiddenError{Resource: "test_drive", Msg: "login diperlukan"}
	}

	in.CarID = strings.TrimSpace(in.CarID)
	in.CustomerName = utils.NormalizeSpace(in.CustomerName)
	in.CustomerEmail = strings.TrimSpace(in.CustomerEmail)
	in.CustomerPhone = strings.TrimSpace(in.CustomerPhone)
	in.UserNotes = strings.TrimSpace(in.UserNotes)
	in.Location = strings.TrimSpace(in.Location)

	now := s.now()
	var errs domain.ValidationErrors
	errs = append(errs, domain.FieldErrors(s.validator().Validate(in))...)
	for _, fe := range domain.FieldErrors(lifecycle.ValidateSlot("scheduled_date", "scheduled_time", in.ScheduledDate, in.ScheduledTime, now)) {
		if !hasFieldError(errs, fe.Field) {
			errs = append(errs, fe)
		}
	}
	if err := errs.OrNil(); err != nil {
		return models.TestDrive{}, err
	}

	car, err := s.Cars.GetByID(ctx, in.CarID)
	if err != nil {
		if domain.IsNotFound(err) {
			return models.TestDrive{}, domain.ValidationError{Field: "car_id", Msg: "mobil tidak ditemukan", Err: err}
		}
		return models.TestDrive{}, err
	}
	if car.Status != models.CarAvailable {
		return models.TestDrive{}, domain.ValidationError{Field: "car_id", Msg: "mobil tidak tersedia untuk test drive"}
	}

	active, err := s.Repo.FindActiveForUserCar(ctx, rc.UserID, car.ID)
	if err != nil {
		return models.TestDrive{}, err
	}
	if active != nil {
		return models.TestDrive{}, domain.ConflictError{Resource: "test_drive", Msg: "anda sudah memiliki booking aktif untuk mobil ini"}
	}
	if err := s.ensureSlotFree(ctx, car.ID, in.ScheduledDate, in.ScheduledTime, ""); err != nil {
		return models.TestDrive{}, err
	}

	td := models.TestDrive{
		ID:              uuid.NewString(),
		UserID:          rc.UserID,
		CarID:           car.ID,
		CustomerName:    in.CustomerName,
		CustomerEmail:   in.CustomerEmail,
		CustomerPhone:   in.CustomerPhone,
		ScheduledDate:   strings.TrimSpace(in.ScheduledDate),
		ScheduledTime:   strings.TrimSpace(in.ScheduledTime),
		DurationMinutes: models.DefaultTestDriveDuration,
		Location:        utils.FirstNonEmpty(in.Location, models.DefaultTestDriveLocation),
		Status:          models.TestDrivePending,
		UserNotes:       in.UserNotes,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.Repo.Create(ctx, td); err != nil {
		if domain.IsConflict(err) {
			utils.LogEvent(reqID, "test_drive", "create", "bentrok saat insert: "+err.Error())
			return models.TestDrive{}, err
		}
		utils.LogError(reqID, "test_drive", "create", err)
		return models.TestDrive{}, domain.InternalError{Msg: "gagal menyimpan booking", Err: err}
	}
	utils.LogEvent(reqID, "test_drive", "create", fmt.Sprintf("id=%s car_id=%s slot=%s %s", td.ID, td.CarID, td.ScheduledDate, td.ScheduledTime))
	return td, nil
}

// AvailableSlots returns the showroom slots of date still bookable for car.
func (s TestDriveService) AvailableSlots(ctx context.Context, carID, date string) ([]string, error) {
	carID = strings.TrimSpace(carID)
	date = strings.TrimSpace(date)
	var errs domain.ValidationErrors
	if carID == "" {
		errs.Add("car_id", "wajib diisi")
	}
	if _, err := utils.ParseDate(date); err != nil {
		errs.Add("date", "format tanggal harus YYYY-MM-DD")
	}
	if err := errs.OrNil(); err != nil {
		return nil, err
	}

	occupied, err := s.Repo.ListOccupiedSlots(ctx, carID, date)
	if err != nil {
		return nil, err
	}
	taken := map[string]bool{}
	for _, o := range occupied {
		taken[o.Time] = true
	}
	now := s.now()
	out := []string{}
	for _, hm := range models.ShowroomSlots {
		if taken[hm] {
			continue
		}
		if at, err := utils.ParseSlot(date, hm); err != nil || !at.After(now) {
			continue
		}
		out = append(out, hm)
	}
	return out, nil
}

// Get loads a booking the caller may see.
func (s TestDriveService) Get(ctx context.Context, rc domain.RequestContext, id string) (models.TestDrive, error) {
	td, err := s.Repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return models.TestDrive{}, err
	}
	if !rc.IsAdmin() && td.UserID != rc.UserID {
		return models.TestDrive{}, domain.ForbiddenError{Resource: "test_drive", Msg: "booking ini bukan milik anda"}
	}
	return td, nil
}

func (s TestDriveService) ListMine(ctx context.Context, rc domain.RequestContext) ([]models.TestDrive, error) {
	if rc.UserID == "" {
		return nil, domain.ForbiddenError{Resource: "test_drive", Msg: "login diperlukan"}
	}
	return s.Repo.ListByUser(ctx, rc.UserID)
}

func (s TestDriveService) ListAll(ctx context.Context, f models.TestDriveFilter) ([]models.TestDrive, int, error) {
	if f.Status != "" {
		if _, ok := models.ParseTestDriveStatus(string(f.Status)); !ok {
			return nil, 0, domain.ValidationError{Field: "status", Msg: "status tidak dikenal"}
		}
	}
	return s.Repo.ListAll(ctx, f)
}

func (s TestDriveService) Stats(ctx context.Context) (map[models.TestDriveStatus]int, error) {
	return s.Repo.CountByStatus(ctx)
}

// Transition runs one lifecycle action for the caller and persists it under the version guard.
func (s TestDriveService) Transition(ctx context.Context, rc domain.RequestContext, id string, cmd lifecycle.Command) (models.TestDrive, error) {
	td, err := s.transition(ctx, rc, id, cmd)
	s.Metrics.Transition(string(cmd.Action), err)
	return td, err
}

func (s TestDriveService) transition(ctx context.Context, rc domain.RequestContext, id string, cmd lifecycle.Command) (models.TestDrive, error) {
	reqID := utils.RequestIDFrom(ctx)
	td, err := s.Repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return models.TestDrive{}, err
	}

	switch lifecycle.ActorFor(cmd.Action) {
	case lifecycle.ActorAdmin:
		if !rc.IsAdmin() {
			return models.TestDrive{}, domain.ForbiddenError{Resource: "test_drive", Msg: "hanya admin yang dapat melakukan aksi ini"}
		}
	case lifecycle.ActorCustomer:
		if td.UserID != rc.UserID {
			return models.TestDrive{}, domain.ForbiddenError{Resource: "test_drive", Msg: "booking ini bukan milik anda"}
		}
	default:
		return models.TestDrive{}, domain.ValidationError{Field: "action", Msg: "aksi tidak dikenal"}
	}

	cmd.ActorID = rc.UserID
	cmd.Now = s.now()
	prevVersion := td.Version
	next := td
	if err := lifecycle.ApplyTestDrive(&next, cmd); err != nil {
		utils.LogEvent(reqID, "test_drive", string(cmd.Action), "ditolak id="+td.ID+": "+err.Error())
		return models.TestDrive{}, err
	}

	if cmd.Action == lifecycle.ActionReschedule || cmd.Action == lifecycle.ActionRequestReschedule {
		if err := s.ensureSlotFree(ctx, td.CarID, next.ProposedDate, next.ProposedTime, td.ID); err != nil {
			return models.TestDrive{}, err
		}
	}

	next.UpdatedAt = cmd.Now
	if err := s.Repo.UpdateState(ctx, next, prevVersion); err != nil {
		if !domain.IsConflict(err) {
			utils.LogError(reqID, "test_drive", string(cmd.Action), err)
		}
		return models.TestDrive{}, err
	}
	next.Version = prevVersion + 1
	utils.LogEvent(reqID, "test_drive", string(cmd.Action), fmt.Sprintf("id=%s %s -> %s by=%s", td.ID, td.Status, next.Status, rc.UserID))
	return next, nil
}

// Feedback records the customer's rating on a completed booking.
func (s TestDriveService) Feedback(ctx context.Context, rc domain.RequestContext, id string, fb models.TestDriveFeedback) (models.TestDrive, error) {
	td, err := s.Repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return models.TestDrive{}, err
	}
	if td.UserID != rc.UserID {
		return models.TestDrive{}, domain.ForbiddenError{Resource: "test_drive", Msg: "booking ini bukan milik anda"}
	}
	if td.Status != models.TestDriveCompleted {
		return models.TestDrive{}, domain.TransitionError{Resource: "test_drive", From: string(td.Status), Action: "feedback"}
	}
	if err := s.validator().Validate(fb); err != nil {
		return models.TestDrive{}, err
	}

	prevVersion := td.Version
	td.Feedback = strings.TrimSpace(fb.Feedback)
	td.ExperienceRating = fb.Rating
	td.IsInterested = fb.IsInterested
	td.UpdatedAt = s.now()
	if err := s.Repo.UpdateFeedback(ctx, td, prevVersion); err != nil {
		return models.TestDrive{}, err
	}
	td.Version = prevVersion + 1
	utils.LogEvent(utils.RequestIDFrom(ctx), "test_drive", "feedback", fmt.Sprintf("id=%s rating=%d", td.ID, td.ExperienceRating))
	return td, nil
}

// ensureSlotFree rejects a slot another active booking holds or proposes.
func (s TestDriveService) ensureSlotFree(ctx context.Context, carID, date, hm, selfID string) error {
	occupied, err := s.Repo.ListOccupiedSlots(ctx, carID, strings.TrimSpace(date))
	if err != nil {
		return err
	}
	hm = strings.TrimSpace(hm)
	for _, o := range occupied {
		if o.BookingID != selfID && o.Time == hm {
			return domain.ConflictError{Resource: "test_drive", Msg: "jadwal " + date + " " + hm + " sudah terisi"}
		}
	}
	return nil
}

func hasFieldError(errs domain.ValidationErrors, field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}
