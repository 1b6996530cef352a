package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	intconfig "showroom/internal/config"
	intdb "showroom/internal/db"
	"showroom/internal/domain"
	"showroom/internal/domain/models"

	"github.com/go-sql-driver/mysql"
)

type PaymentRepository struct {
	DB *sql.DB
}

func (r PaymentRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

const paymentColumns = `
		id,
		transaction_id,
		COALESCE(payer_id,''),
		reference_code,
		payment_type,
		amount,
		currency,
		payment_method,
		method_type,
		status,
		COALESCE(bank_name,''),
		COALESCE(account_holder,''),
		COALESCE(proof_of_payment,''),
		COALESCE(gateway_name,''),
		COALESCE(gateway_transaction_id,''),
		gateway_response,
		COALESCE(rejection_reason,''),
		COALESCE(rejected_by,''),
		rejected_at,
		rejection_count,
		COALESCE(verified_by,''),
		verified_at,
		COALESCE(notes,''),
		payment_date,
		version,
		created_at,
		updated_at`

func scanPayment(row rowScanner) (models.Payment, error) {
	var (
		p          models.Payment
		ptype      string
		methodType string
		status     string
		response   []byte
		rejectedAt sql.NullTime
		verifiedAt sql.NullTime
	)
	err := row.Scan(
		&p.ID,
		&p.TransactionID,
		&p.PayerID,
		&p.ReferenceCode,
		&ptype,
		&p.Amount,
		&p.Currency,
		&p.Method,
		&methodType,
		&status,
		&p.BankName,
		&p.AccountHolder,
		&p.ProofOfPayment,
		&p.GatewayName,
		&p.GatewayTransactionID,
		&response,
		&p.RejectionReason,
		&p.RejectedBy,
		&rejectedAt,
		&p.RejectionCount,
		&p.VerifiedBy,
		&verifiedAt,
		&p.Notes,
		&p.PaymentDate,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return models.Payment{}, err
	}
	p.PaymentType = models.PaymentType(ptype)
	p.MethodType = models.MethodType(methodType)
	p.Status = models.PaymentStatus(status)
	if len(response) > 0 {
		p.GatewayResponse = append([]byte(nil), response...)
	}
	p.RejectedAt = intdb.TimePtr(rejectedAt)
	p.VerifiedAt = intdb.TimePtr(verifiedAt)
	return p, nil
}

// Create inserts a payment. A duplicate reference_code is reported as ConflictError.
func (r PaymentRepository) Create(ctx context.Context, p models.Payment) error {
	db := r.db()
	if db == nil {
		return fmt.Errorf("db tidak tersedia")
	}
	var response any
	if len(p.GatewayResponse) > 0 {
		response = []byte(p.GatewayResponse)
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO payments (
			id, transaction_id, payer_id, reference_code, payment_type, amount, currency,
			payment_method, method_type, status, bank_name, account_holder, proof_of_payment,
			gateway_name, gateway_transaction_id, gateway_response, notes, payment_date,
			version, created_at, updated_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.TransactionID, p.PayerID, p.ReferenceCode, string(p.PaymentType), p.Amount, p.Currency,
		p.Method, string(p.MethodType), string(p.Status),
		intdb.NullIfEmpty(p.BankName), intdb.NullIfEmpty(p.AccountHolder), intdb.NullIfEmpty(p.ProofOfPayment),
		intdb.NullIfEmpty(p.GatewayName), intdb.NullIfEmpty(p.GatewayTransactionID), response,
		intdb.NullIfEmpty(p.Notes), p.PaymentDate,
		p.Version, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil && isDuplicateKey(err) {
		return domain.ConflictError{Resource: "payment", Msg: "reference_code sudah dipakai", Err: err}
	}
	return err
}

func (r PaymentRepository) getOne(ctx context.Context, where string, arg any) (models.Payment, error) {
	db := r.db()
	if db == nil {
		return models.Payment{}, fmt.Errorf("db tidak tersedia")
	}
	row := db.QueryRowContext(ctx, `SELECT `+paymentColumns+`
		FROM payments
		WHERE `+where+` LIMIT 1`, arg)
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Payment{}, domain.NotFoundError{Resource: "payment", Err: err}
		}
		return models.Payment{}, err
	}
	return p, nil
}

func (r PaymentRepository) GetByID(ctx context.Context, id string) (models.Payment, error) {
	return r.getOne(ctx, "id=?", id)
}

func (r PaymentRepository) GetByReference(ctx context.Context, code string) (models.Payment, error) {
	return r.getOne(ctx, "reference_code=?", code)
}

// GetByGatewayTxn resolves a processor callback to our payment.
func (r PaymentRepository) GetByGatewayTxn(ctx context.Context, gatewayTxnID string) (models.Payment, error) {
	return r.getOne(ctx, "gateway_transaction_id=?", gatewayTxnID)
}

func (r PaymentRepository) ListByTransaction(ctx context.Context, transactionID string) ([]models.Payment, error) {
	db := r.db()
	if db == nil {
		return nil, fmt.Errorf("db tidak tersedia")
	}
	rows, err := db.QueryContext(ctx, `SELECT `+paymentColumns+`
		FROM payments
		WHERE transaction_id=?
		ORDER BY created_at DESC`, transactionID)
	if err != nil {
		return nil, err
	}
	return collectPayments(rows)
}

// List returns one page of payments, optionally narrowed to status.
func (r PaymentRepository) List(ctx context.Context, status models.PaymentStatus, page domain.Pagination) ([]models.Payment, int, error) {
	db := r.db()
	if db == nil {
		return nil, 0, fmt.Errorf("db tidak tersedia")
	}
	clause := ""
	args := []any{}
	if status != "" {
		clause = " WHERE status=?"
		args = append(args, string(status))
	}

	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM payments`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	p := page.Normalize()
	rows, err := db.QueryContext(ctx, `SELECT `+paymentColumns+`
		FROM payments`+clause+`
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`, append(args, p.PageSize, p.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	list, err := collectPayments(rows)
	return list, total, err
}

// ListNeedingVerification returns pending bank transfers that carry a proof, oldest first.
func (r PaymentRepository) ListNeedingVerification(ctx context.Context) ([]models.Payment, error) {
	db := r.db()
	if db == nil {
		return nil, fmt.Errorf("db tidak tersedia")
	}
	rows, err := db.QueryContext(ctx, `SELECT `+paymentColumns+`
		FROM payments
		WHERE status=? AND proof_of_payment IS NOT NULL AND proof_of_payment<>''
		ORDER BY created_at ASC`, string(models.PaymentPending))
	if err != nil {
		return nil, err
	}
	return collectPayments(rows)
}

// UpdateState writes the mutable payment fields when the row still has expectedVersion.
func (r PaymentRepository) UpdateState(ctx context.Context, p models.Payment, expectedVersion int64) error {
	db := r.db()
	if db == nil {
		return fmt.Errorf("db tidak tersedia")
	}
	var response any
	if len(p.GatewayResponse) > 0 {
		response = []byte(p.GatewayResponse)
	}
	res, err := db.ExecContext(ctx, `
		UPDATE payments SET
			status=?,
			proof_of_payment=?,
			gateway_transaction_id=?,
			gateway_response=?,
			rejection_reason=?,
			rejected_by=?,
			rejected_at=?,
			rejection_count=?,
			verified_by=?,
			verified_at=?,
			notes=?,
			version=version+1,
			updated_at=?
		WHERE id=? AND version=?`,
		string(p.Status),
		intdb.NullIfEmpty(p.ProofOfPayment),
		intdb.NullIfEmpty(p.GatewayTransactionID),
		response,
		intdb.NullIfEmpty(p.RejectionReason),
		intdb.NullIfEmpty(p.RejectedBy),
		intdb.NullTime(p.RejectedAt),
		p.RejectionCount,
		intdb.NullIfEmpty(p.VerifiedBy),
		intdb.NullTime(p.VerifiedAt),
		intdb.NullIfEmpty(p.Notes),
		p.UpdatedAt,
		p.ID,
		expectedVersion,
	)
	return versionResult(res, err, "payment")
}

// ExpireStale marks unpaid payments created before cutoff as expired and returns how many changed.
func (r PaymentRepository) ExpireStale(ctx context.Context, cutoff, now time.Time) (int64, error) {
	db := r.db()
	if db == nil {
		return 0, fmt.Errorf("db tidak tersedia")
	}
	res, err := db.ExecContext(ctx, `
		UPDATE payments SET
			status=?,
			version=version+1,
			updated_at=?
		WHERE status IN (?,?)
		  AND (proof_of_payment IS NULL OR proof_of_payment='')
		  AND created_at<?`,
		string(models.PaymentExpired),
		now,
		string(models.PaymentPending),
		string(models.PaymentProcessing),
		cutoff,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func collectPayments(rows *sql.Rows) ([]models.Payment, error) {
	defer rows.Close()
	out := []models.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
