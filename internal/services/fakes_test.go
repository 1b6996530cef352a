package services

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"showroom/internal/domain"
	"showroom/internal/domain/models"
	"showroom/internal/gateway"
	"showroom/internal/repositories"
)

// fakeTestDrives keeps rows in memory and enforces the version guard like the MySQL repo.
type fakeTestDrives struct {
	mu        sync.Mutex
	rows      map[string]models.TestDrive
	createErr error
}

func newFakeTestDrives(rows ...models.TestDrive) *fakeTestDrives {
	f := &fakeTestDrives{rows: map[string]models.TestDrive{}}
	for _, r := range rows {
		f.rows[r.ID] = r
	}
	return f
}

func (f *fakeTestDrives) Create(ctx context.Context, t models.TestDrive) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.rows[t.ID] = t
	return nil
}

func (f *fakeTestDrives) GetByID(ctx context.Context, id string) (models.TestDrive, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.rows[id]
	if !ok {
		return models.TestDrive{}, domain.NotFoundError{Resource: "test_drive"}
	}
	return t, nil
}

func (f *fakeTestDrives) ListByUser(ctx context.Context, userID string) ([]models.TestDrive, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.TestDrive{}
	for _, t := range f.rows {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeTestDrives) ListAll(ctx context.Context, flt models.TestDriveFilter) ([]models.TestDrive, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.TestDrive{}
	for _, t := range f.rows {
		if flt.Status == "" || t.Status == flt.Status {
			out = append(out, t)
		}
	}
	return out, len(out), nil
}

func (f *fakeTestDrives) FindActiveForUserCar(ctx context.Context, userID, carID string) (*models.TestDrive, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.rows {
		if t.UserID == userID && t.CarID == carID && !t.Status.Terminal() {
			found := t
			return &found, nil
		}
	}
	return nil, nil
}

func (f *fakeTestDrives) ListOccupiedSlots(ctx context.Context, carID, date string) ([]repositories.OccupiedSlot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []repositories.OccupiedSlot{}
	for _, t := range f.rows {
		if t.CarID != carID || t.Status.Terminal() {
			continue
		}
		if t.ScheduledDate == date {
			out = append(out, repositories.OccupiedSlot{BookingID: t.ID, Time: t.ScheduledTime})
		}
		if t.ProposedDate == date && t.ProposedTime != "" {
			out = append(out, repositories.OccupiedSlot{BookingID: t.ID, Time: t.ProposedTime})
		}
	}
	return out, nil
}

func (f *fakeTestDrives) UpdateState(ctx context.Context, t models.TestDrive, expectedVersion int64) error {
	return f.write(t, expectedVersion)
}

func (f *fakeTestDrives) UpdateFeedback(ctx context.Context, t models.TestDrive, expectedVersion int64) error {
	return f.write(t, expectedVersion)
}

func (f *fakeTestDrives) write(t models.TestDrive, expectedVersion int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.rows[t.ID]
	if !ok || cur.Version != expectedVersion {
		return domain.ConflictError{Resource: "test_drive", Msg: "stale"}
	}
	t.Version = expectedVersion + 1
	f.rows[t.ID] = t
	return nil
}

func (f *fakeTestDrives) CountByStatus(ctx context.Context) (map[models.TestDriveStatus]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[models.TestDriveStatus]int{}
	for _, t := range f.rows {
		out[t.Status]++
	}
	return out, nil
}

type fakeCars struct {
	cars map[string]models.Car
}

func (f *fakeCars) GetByID(ctx context.Context, id string) (models.Car, error) {
	c, ok := f.cars[id]
	if !ok {
		return models.Car{}, domain.NotFoundError{Resource: "car"}
	}
	return c, nil
}

type fakePayments struct {
	mu      sync.Mutex
	rows    map[string]models.Payment
	creates int
	expired int64
	cutoff  time.Time
}

func newFakePayments(rows ...models.Payment) *fakePayments {
	f := &fakePayments{rows: map[string]models.Payment{}}
	for _, r := range rows {
		f.rows[r.ID] = r
	}
	return f
}

func (f *fakePayments) Create(ctx context.Context, p models.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.ReferenceCode == p.ReferenceCode {
			return domain.ConflictError{Resource: "payment", Msg: "duplicate reference"}
		}
	}
	f.creates++
	f.rows[p.ID] = p
	return nil
}

func (f *fakePayments) find(match func(models.Payment) bool) (models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if match(r) {
			return r, nil
		}
	}
	return models.Payment{}, domain.NotFoundError{Resource: "payment"}
}

func (f *fakePayments) GetByID(ctx context.Context, id string) (models.Payment, error) {
	return f.find(func(p models.Payment) bool { return p.ID == id })
}

func (f *fakePayments) GetByReference(ctx context.Context, code string) (models.Payment, error) {
	return f.find(func(p models.Payment) bool { return p.ReferenceCode == code })
}

func (f *fakePayments) GetByGatewayTxn(ctx context.Context, id string) (models.Payment, error) {
	return f.find(func(p models.Payment) bool { return p.GatewayTransactionID == id })
}

func (f *fakePayments) ListByTransaction(ctx context.Context, transactionID string) ([]models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Payment{}
	for _, r := range f.rows {
		if r.TransactionID == transactionID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakePayments) List(ctx context.Context, status models.PaymentStatus, page domain.Pagination) ([]models.Payment, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Payment{}
	for _, r := range f.rows {
		if status == "" || r.Status == status {
			out = append(out, r)
		}
	}
	return out, len(out), nil
}

func (f *fakePayments) ListNeedingVerification(ctx context.Context) ([]models.Payment, error) {
	list, _, err := f.List(ctx, models.PaymentPending, domain.Pagination{})
	return list, err
}

func (f *fakePayments) UpdateState(ctx context.Context, p models.Payment, expectedVersion int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.rows[p.ID]
	if !ok || cur.Version != expectedVersion {
		return domain.ConflictError{Resource: "payment", Msg: "stale"}
	}
	p.Version = expectedVersion + 1
	f.rows[p.ID] = p
	return nil
}

func (f *fakePayments) ExpireStale(ctx context.Context, cutoff, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoff = cutoff
	return f.expired, nil
}

type fakeUploader struct {
	err     error
	calls   int
	folder  string
	payload []byte
}

func (f *fakeUploader) Upload(ctx context.Context, folder, filename string, r io.Reader) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	f.folder = folder
	f.payload, _ = io.ReadAll(r)
	return "https://res.cloudinary.com/demo/image/upload/" + folder + "/" + filename, nil
}

type fakeGateway struct {
	err   error
	calls int
	last  gateway.ChargeRequest
}

func (f *fakeGateway) Authorize(ctx context.Context, req gateway.ChargeRequest) (gateway.ChargeResponse, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return gateway.ChargeResponse{}, f.err
	}
	return gateway.ChargeResponse{TransactionID: "gw-" + req.Reference, Status: "processing", Raw: []byte(`{"transaction_id":"gw-x"}`)}, nil
}

type fakeUsers struct {
	byEmail map[string]models.User
}

func (f *fakeUsers) Create(ctx context.Context, u models.User) error {
	if f.byEmail == nil {
		f.byEmail = map[string]models.User{}
	}
	if _, ok := f.byEmail[u.Email]; ok {
		return domain.ConflictError{Resource: "user", Msg: "email sudah terdaftar"}
	}
	f.byEmail[u.Email] = u
	return nil
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (models.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return models.User{}, domain.NotFoundError{Resource: "user"}
	}
	return u, nil
}

func (f *fakeUsers) GetByID(ctx context.Context, id string) (models.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return models.User{}, domain.NotFoundError{Resource: "user"}
}

var errBoom = errors.New("boom")
