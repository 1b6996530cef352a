package models

import (
	"encoding/json"
	"time"
)

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentSuccess    PaymentStatus = "success"
	PaymentFailed     PaymentStatus = "failed"
	PaymentExpired    PaymentStatus = "expired"
	PaymentRefunded   PaymentStatus = "refunded"
	PaymentRejected   PaymentStatus = "rejected"
)

var PaymentStatuses = []PaymentStatus{
	PaymentPending,
	PaymentProcessing,
	PaymentSuccess,
	PaymentFailed,
	PaymentExpired,
	PaymentRefunded,
	PaymentRejected,
}

func ParsePaymentStatus(s string) (PaymentStatus, bool) {
	for _, st := range PaymentStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

type PaymentType string

const (
	PaymentBookingFee  PaymentType = "booking_fee"
	PaymentDownPayment PaymentType = "down_payment"
	PaymentInstallment PaymentType = "installment"
	PaymentFull        PaymentType = "full_payment"
)

func (t PaymentType) Valid() bool {
	switch t {
	case PaymentBookingFee, PaymentDownPayment, PaymentInstallment, PaymentFull:
		return true
	default:
		return false
	}
}

// MethodType groups payment methods by intake path.
type MethodType string

const (
	MethodCard         MethodType = "card"
	MethodBankTransfer MethodType = "bank_transfer"
)

// Payment mirrors a row of payments.
type Payment struct {
	ID            string `json:"id"`
	TransactionID string `json:"transaction_id"`
	PayerID       string `json:"payer_id"`
	ReferenceCode string `json:"reference_code"`

	PaymentType PaymentType   `json:"payment_type"`
	Amount      int64         `json:"amount"`
	Currency    string        `json:"currency"`
	Method      string        `json:"payment_method"`
	MethodType  MethodType    `json:"method_type"`
	Status      PaymentStatus `json:"status"`

	BankName       string `json:"bank_name,omitempty"`
	AccountHolder  string `json:"account_holder,omitempty"`
	ProofOfPayment string `json:"proof_of_payment,omitempty"`

	GatewayName          string          `json:"gateway_name,omitempty"`
	GatewayTransactionID string          `json:"gateway_transaction_id,omitempty"`
	GatewayResponse      json.RawMessage `json:"gateway_response,omitempty"`

	RejectionReason string     `json:"rejection_reason,omitempty"`
	RejectedBy      string     `json:"rejected_by,omitempty"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`
	RejectionCount  int        `json:"rejection_count"`
	VerifiedBy      string     `json:"verified_by,omitempty"`
	VerifiedAt      *time.Time `json:"verified_at,omitempty"`

	Notes       string    `json:"notes,omitempty"`
	PaymentDate time.Time `json:"payment_date"`
	Version     int64     `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PaymentInput carries the fields shared by both intake paths.
type PaymentInput struct {
	TransactionID  string      `json:"transaction_id" form:"transaction_id" validate:"required,max=64"`
	PaymentType    PaymentType `json:"payment_type" form:"payment_type" validate:"required"`
	Amount         int64       `json:"amount" form:"amount" validate:"required,gt=0"`
	Currency       string      `json:"currency" form:"currency" validate:"omitempty,len=3"`
	Method         string      `json:"payment_method" form:"payment_method" validate:"required,max=64"`
	IdempotencyKey string      `json:"-" form:"-"`
	PayerID        string      `json:"-" form:"-"`
}

// CardDetails is never persisted beyond the summary.
type CardDetails struct {
	HolderName string `json:"card_holder" validate:"required,max=120"`
	Number     string `json:"card_number" validate:"required"`
	Expiry     string `json:"expiry_date" validate:"required"`
	CVV        string `json:"cvv" validate:"required"`
}

// BankPayer identifies who sent a bank transfer.
type BankPayer struct {
	FirstName string `form:"first_name" validate:"required,max=60"`
	LastName  string `form:"last_name" validate:"required,max=60"`
	Email     string `form:"email" validate:"required,email"`
}

// ProofFile is an uploaded proof-of-payment image.
type ProofFile struct {
	Filename string
	Size     int64
	Content  []byte
}
