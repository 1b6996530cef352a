package services

import (
	"context"
	"io"
	"time"

	"showroom/internal/domain"
	"showroom/internal/domain/models"
	"showroom/internal/repositories"
)

// TestDriveStore is implemented by repositories.TestDriveRepository.
type TestDriveStore interface {
	Create(ctx context.Context, t models.TestDrive) error
	GetByID(ctx context.Context, id string) (models.TestDrive, error)
	ListByUser(ctx context.Context, userID string) ([]models.TestDrive, error)
	ListAll(ctx context.Context, f models.TestDriveFilter) ([]models.TestDrive, int, error)
	FindActiveForUserCar(ctx context.Context, userID, carID string) (*models.TestDrive, error)
	ListOccupiedSlots(ctx context.Context, carID, date string) ([]repositories.OccupiedSlot, error)
	UpdateState(ctx context.Context, t models.TestDrive, expectedVersion int64) error
	UpdateFeedback(ctx context.Context, t models.TestDrive, expectedVersion int64) error
	CountByStatus(ctx context.Context) (map[models.TestDriveStatus]int, error)
}

type CarLookup interface {
	GetByID(ctx context.Context, id string) (models.Car, error)
}

// PaymentStore is implemented by repositories.PaymentRepository.
type PaymentStore interface {
	Create(ctx context.Context, p models.Payment) error
	GetByID(ctx context.Context, id string) (models.Payment, error)
	GetByReference(ctx context.Context, code string) (models.Payment, error)
	GetByGatewayTxn(ctx context.Context, gatewayTxnID string) (models.Payment, error)
	ListByTransaction(ctx context.Context, transactionID string) ([]models.Payment, error)
	List(ctx context.Context, status models.PaymentStatus, page domain.Pagination) ([]models.Payment, int, error)
	ListNeedingVerification(ctx context.Context) ([]models.Payment, error)
	UpdateState(ctx context.Context, p models.Payment, expectedVersion int64) error
	ExpireStale(ctx context.Context, cutoff, now time.Time) (int64, error)
}

// ProofUploader is implemented by storage.Cloudinary.
type ProofUploader interface {
	Upload(ctx context.Context, folder, filename string, r io.Reader) (string, error)
}

type UserStore interface {
	Create(ctx context.Context, u models.User) error
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
}

var (
	_ TestDriveStore = repositories.TestDriveRepository{}
	_ CarLookup      = repositories.CarRepository{}
	_ PaymentStore   = repositories.PaymentRepository{}
	_ UserStore      = repositories.UserRepository{}
)
