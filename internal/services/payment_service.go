package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"showroom/internal/domain"
	"showroom/internal/domain/models"
	"showroom/internal/gateway"
	"showroom/internal/lifecycle"
	"showroom/internal/metrics"
	"showroom/internal/utils"
	"showroom/internal/validation"

	"github.com/google/uuid"
)

const defaultRejectionReason = "Payment rejected by admin"

// PaymentService menangani pembayaran kartu dan transfer bank beserta verifikasinya.
type PaymentService struct {
	Repo          PaymentStore
	Gateway       gateway.Client
	Storage       ProofUploader
	Validator     *validation.Validator
	Metrics       *metrics.Metrics
	GatewayName   string
	WebhookSecret string
	ExpiryAfter   time.Duration
	Now           func() time.Time
}

func (s PaymentService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s PaymentService) validator() *validation.Validator {
	if s.Validator != nil {
		return s.Validator
	}
	return validation.New()
}

// SubmitCard records a card payment and asks the gateway to charge it.
// The final outcome arrives later through HandleGatewayCallback.
func (s PaymentService) SubmitCard(ctx context.Context, rc domain.RequestContext, in models.PaymentInput, card models.CardDetails) (models.Payment, error) {
	reqID := utils.RequestIDFrom(ctx)
	in = normalizeInput(in, rc)

	var errs domain.ValidationErrors
	errs = append(errs, s.checkInput(in)...)
	summary, err := validation.CheckCard(card, s.now())
	errs = append(errs, domain.FieldErrors(err)...)
	if err := errs.OrNil(); err != nil {
		return models.Payment{}, err
	}

	if existing, ok, err := s.findIdempotent(ctx, in); err != nil || ok {
		return existing, err
	}

	raw, _ := json.Marshal(summary)
	p := s.newPayment(in, models.MethodCard)
	p.GatewayName = s.GatewayName
	p.GatewayResponse = raw
	p.Notes = "Card payment with " + summary.LastFour
	if err := s.Repo.Create(ctx, p); err != nil {
		return s.createFailed(ctx, in, err)
	}
	utils.LogEvent(reqID, "payment", "submit_card", "ref="+p.ReferenceCode+" last4="+summary.LastFour)

	if s.Gateway == nil {
		return s.failCard(ctx, p, errors.New("gateway belum dikonfigurasi"))
	}
	charge, err := s.Gateway.Authorize(ctx, gateway.ChargeRequest{
		Reference:  p.ReferenceCode,
		Amount:     p.Amount,
		Currency:   p.Currency,
		HolderName: strings.TrimSpace(card.HolderName),
		Number:     strings.ReplaceAll(card.Number, " ", ""),
		Expiry:     strings.TrimSpace(card.Expiry),
		CVV:        strings.TrimSpace(card.CVV),
	})
	if err != nil {
		if gateway.IsDeclined(err) {
			return s.failCard(ctx, p, err)
		}
		return s.chargeUnknown(ctx, p, err)
	}

	next := p
	next.Status = models.PaymentProcessing
	next.GatewayTransactionID = charge.TransactionID
	next.GatewayResponse = withCharge(summary, charge.Raw)
	next.UpdatedAt = s.now()
	if err := s.save(ctx, p, &next); err != nil {
		return models.Payment{}, err
	}
	s.Metrics.PaymentSubmitted(string(models.MethodCard), string(next.Status))
	utils.LogEvent(reqID, "payment", "submit_card", "ref="+next.ReferenceCode+" gateway_tx="+charge.TransactionID)
	return next, nil
}

func (s PaymentService) failCard(ctx context.Context, p models.Payment, cause error) (models.Payment, error) {
	reqID := utils.RequestIDFrom(ctx)
	utils.LogError(reqID, "payment", "gateway_authorize", cause)

	next := p
	next.Status = models.PaymentFailed
	next.Notes = p.Notes + " - gateway error"
	next.UpdatedAt = s.now()
	if err := s.save(ctx, p, &next); err != nil {
		utils.LogError(reqID, "payment", "gateway_authorize", err)
	}
	s.Metrics.PaymentSubmitted(string(models.MethodCard), string(next.Status))
	return next, domain.UpstreamError{Service: "payment gateway", Err: cause}
}

// chargeUnknown keeps the payment pending when the gateway may still have created the charge.
// The signed callback (matched by reference) or the expiry job settles it.
func (s PaymentService) chargeUnknown(ctx context.Context, p models.Payment, cause error) (models.Payment, error) {
	utils.LogError(utils.RequestIDFrom(ctx), "payment", "gateway_authorize", fmt.Errorf("ref=%s status tidak pasti: %w", p.ReferenceCode, cause))
	s.Metrics.PaymentSubmitted(string(models.MethodCard), string(p.Status))
	return p, domain.UpstreamError{Service: "payment gateway", Err: cause}
}

// SubmitBankTransfer uploads the proof first; nothing is stored when the upload fails.
func (s PaymentService) SubmitBankTransfer(ctx context.Context, rc domain.RequestContext, in models.PaymentInput, payer models.BankPayer, proof *models.ProofFile) (models.Payment, error) {
	reqID := utils.RequestIDFrom(ctx)
	in = normalizeInput(in, rc)
	payer.FirstName = utils.NormalizeSpace(payer.FirstName)
	payer.LastName = utils.NormalizeSpace(payer.LastName)
	payer.Email = strings.TrimSpace(payer.Email)

	var errs domain.ValidationErrors
	errs = append(errs, s.checkInput(in)...)
	errs = append(errs, domain.FieldErrors(s.validator().Validate(payer))...)
	_, err := validation.CheckProof(proof)
	errs = append(errs, domain.FieldErrors(err)...)
	if err := errs.OrNil(); err != nil {
		return models.Payment{}, err
	}

	if existing, ok, err := s.findIdempotent(ctx, in); err != nil || ok {
		return existing, err
	}

	url, err := s.uploadProof(ctx, in.TransactionID, proof)
	if err != nil {
		return models.Payment{}, err
	}

	p := s.newPayment(in, models.MethodBankTransfer)
	p.BankName = in.Method
	p.AccountHolder = payer.FirstName + " " + payer.LastName
	p.ProofOfPayment = url
	p.Notes = "Bank transfer - Customer: " + payer.Email
	if err := s.Repo.Create(ctx, p); err != nil {
		return s.createFailed(ctx, in, err)
	}
	s.Metrics.PaymentSubmitted(string(models.MethodBankTransfer), string(p.Status))
	utils.LogEvent(reqID, "payment", "submit_bank_transfer", "ref="+p.ReferenceCode+" bank="+p.BankName)
	return p, nil
}

// HandleGatewayCallback applies a verified gateway outcome. Replays of an applied status are no-ops.
func (s PaymentService) HandleGatewayCallback(ctx context.Context, signature string, rawBody []byte) (models.Payment, error) {
	reqID := utils.RequestIDFrom(ctx)
	cb, err := gateway.ParseCallback(s.WebhookSecret, signature, rawBody)
	if err != nil {
		if errors.Is(err, gateway.ErrBadSignature) {
			utils.LogEvent(reqID, "payment", "gateway_callback", "signature ditolak")
			return models.Payment{}, err
		}
		return models.Payment{}, domain.ValidationError{Field: "body", Msg: "payload callback tidak valid", Err: err}
	}

	target := models.PaymentStatus(cb.Status)
	switch target {
	case models.PaymentSuccess, models.PaymentFailed, models.PaymentExpired:
	default:
		return models.Payment{}, domain.ValidationError{Field: "status", Msg: "status callback tidak dikenal"}
	}
	if strings.TrimSpace(cb.GatewayTransactionID) == "" {
		return models.Payment{}, domain.ValidationError{Field: "gateway_transaction_id", Msg: "wajib diisi"}
	}
	s.Metrics.GatewayCallback(cb.Status)

	p, err := s.callbackTarget(ctx, cb)
	if err != nil {
		return models.Payment{}, err
	}
	if p.Status == target {
		return p, nil
	}
	if err := lifecycle.CheckPayment(p.Status, target); err != nil {
		return models.Payment{}, err
	}

	next := p
	next.Status = target
	next.GatewayTransactionID = cb.GatewayTransactionID
	if cb.Message != "" {
		next.Notes = strings.TrimSpace(p.Notes + " - " + cb.Message)
	}
	next.UpdatedAt = s.now()
	if err := s.save(ctx, p, &next); err != nil {
		return models.Payment{}, err
	}
	utils.LogEvent(reqID, "payment", "gateway_callback", fmt.Sprintf("ref=%s %s -> %s", p.ReferenceCode, p.Status, next.Status))
	return next, nil
}

// callbackTarget finds the payment by gateway transaction id, falling back to the reference for
// charges whose authorize answer never arrived.
func (s PaymentService) callbackTarget(ctx context.Context, cb gateway.Callback) (models.Payment, error) {
	p, err := s.Repo.GetByGatewayTxn(ctx, cb.GatewayTransactionID)
	if err == nil || !domain.IsNotFound(err) || strings.TrimSpace(cb.Reference) == "" {
		return p, err
	}
	byRef, rerr := s.Repo.GetByReference(ctx, strings.TrimSpace(cb.Reference))
	if rerr != nil {
		return models.Payment{}, rerr
	}
	if byRef.MethodType != models.MethodCard || (byRef.GatewayTransactionID != "" && byRef.GatewayTransactionID != cb.GatewayTransactionID) {
		return models.Payment{}, err
	}
	return byRef, nil
}

func (s PaymentService) Get(ctx context.Context, rc domain.RequestContext, id string) (models.Payment, error) {
	p, err := s.Repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return models.Payment{}, err
	}
	return p, canSeePayment(rc, p)
}

func (s PaymentService) GetByReference(ctx context.Context, rc domain.RequestContext, code string) (models.Payment, error) {
	p, err := s.Repo.GetByReference(ctx, strings.TrimSpace(code))
	if err != nil {
		return models.Payment{}, err
	}
	return p, canSeePayment(rc, p)
}

// ListByTransaction returns the payments of a transaction visible to the caller.
func (s PaymentService) ListByTransaction(ctx context.Context, rc domain.RequestContext, transactionID string) ([]models.Payment, error) {
	list, err := s.Repo.ListByTransaction(ctx, strings.TrimSpace(transactionID))
	if err != nil {
		return nil, err
	}
	if rc.IsAdmin() {
		return list, nil
	}
	out := []models.Payment{}
	for _, p := range list {
		if p.PayerID == rc.UserID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s PaymentService) List(ctx context.Context, status string, page domain.Pagination) ([]models.Payment, int, error) {
	var st models.PaymentStatus
	if status = strings.TrimSpace(status); status != "" {
		var ok bool
		if st, ok = models.ParsePaymentStatus(status); !ok {
			return nil, 0, domain.ValidationError{Field: "status", Msg: "status tidak dikenal"}
		}
	}
	return s.Repo.List(ctx, st, page)
}

func (s PaymentService) ListNeedingVerification(ctx context.Context) ([]models.Payment, error) {
	return s.Repo.ListNeedingVerification(ctx)
}

// Verify is the admin decision on a bank transfer proof.
func (s PaymentService) Verify(ctx context.Context, rc domain.RequestContext, id string, approved bool, reason string) (models.Payment, error) {
	if !rc.IsAdmin() {
		return models.Payment{}, domain.ForbiddenError{Resource: "payment", Msg: "hanya admin yang dapat memverifikasi"}
	}
	p, err := s.Repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return models.Payment{}, err
	}
	if p.MethodType != models.MethodBankTransfer {
		return models.Payment{}, domain.ValidationError{Field: "payment_method", Msg: "hanya transfer bank yang diverifikasi manual"}
	}

	now := s.now()
	next := p
	if approved {
		next.Status = models.PaymentSuccess
		next.VerifiedBy = rc.UserID
		next.VerifiedAt = &now
	} else {
		next.Status = models.PaymentRejected
		next.RejectionReason = utils.FirstNonEmpty(reason, defaultRejectionReason)
		next.RejectedBy = rc.UserID
		next.RejectedAt = &now
		next.RejectionCount = p.RejectionCount + 1
	}
	if err := lifecycle.CheckPayment(p.Status, next.Status); err != nil {
		return models.Payment{}, err
	}
	next.UpdatedAt = now
	if err := s.save(ctx, p, &next); err != nil {
		return models.Payment{}, err
	}
	utils.LogEvent(utils.RequestIDFrom(ctx), "payment", "verify", fmt.Sprintf("ref=%s approved=%t by=%s", p.ReferenceCode, approved, rc.UserID))
	return next, nil
}

func (s PaymentService) Refund(ctx context.Context, rc domain.RequestContext, id string) (models.Payment, error) {
	if !rc.IsAdmin() {
		return models.Payment{}, domain.ForbiddenError{Resource: "payment", Msg: "hanya admin yang dapat melakukan refund"}
	}
	p, err := s.Repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return models.Payment{}, err
	}
	if err := lifecycle.CheckPayment(p.Status, models.PaymentRefunded); err != nil {
		return models.Payment{}, err
	}
	next := p
	next.Status = models.PaymentRefunded
	next.UpdatedAt = s.now()
	if err := s.save(ctx, p, &next); err != nil {
		return models.Payment{}, err
	}
	utils.LogEvent(utils.RequestIDFrom(ctx), "payment", "refund", "ref="+p.ReferenceCode+" by="+rc.UserID)
	return next, nil
}

// ReuploadProof replaces the proof of a rejected transfer and sends it back to verification.
func (s PaymentService) ReuploadProof(ctx context.Context, rc domain.RequestContext, id string, proof *models.ProofFile) (models.Payment, error) {
	p, err := s.Repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return models.Payment{}, err
	}
	if p.PayerID != rc.UserID {
		return models.Payment{}, domain.ForbiddenError{Resource: "payment", Msg: "pembayaran ini bukan milik anda"}
	}
	if err := lifecycle.CheckPayment(p.Status, models.PaymentPending); err != nil {
		return models.Payment{}, err
	}
	if _, err := validation.CheckProof(proof); err != nil {
		return models.Payment{}, err
	}
	url, err := s.uploadProof(ctx, p.TransactionID, proof)
	if err != nil {
		return models.Payment{}, err
	}

	next := p
	next.Status = models.PaymentPending
	next.ProofOfPayment = url
	next.RejectionReason = ""
	next.UpdatedAt = s.now()
	if err := s.save(ctx, p, &next); err != nil {
		return models.Payment{}, err
	}
	utils.LogEvent(utils.RequestIDFrom(ctx), "payment", "reupload_proof", "ref="+p.ReferenceCode)
	return next, nil
}

// ExpireStale expires unpaid payments older than ExpiryAfter.
func (s PaymentService) ExpireStale(ctx context.Context) (int64, error) {
	after := s.ExpiryAfter
	if after <= 0 {
		after = 24 * time.Hour
	}
	now := s.now()
	n, err := s.Repo.ExpireStale(ctx, now.Add(-after), now)
	if err != nil {
		return 0, err
	}
	s.Metrics.Expired(n)
	return n, nil
}

func (s PaymentService) checkInput(in models.PaymentInput) []domain.ValidationError {
	errs := domain.FieldErrors(s.validator().Validate(in))
	if len(in.IdempotencyKey) > 80 {
		errs = append(errs, domain.ValidationError{Field: "idempotency_key", Msg: "maksimal 80 karakter"})
	}
	if in.PaymentType != "" && !in.PaymentType.Valid() {
		errs = append(errs, domain.ValidationError{Field: "payment_type", Msg: "jenis pembayaran tidak dikenal"})
	}
	return errs
}

// findIdempotent returns the record stored under in.IdempotencyKey when it is the caller's
// own submission of the same payload.
func (s PaymentService) findIdempotent(ctx context.Context, in models.PaymentInput) (models.Payment, bool, error) {
	key := in.IdempotencyKey
	if key == "" {
		return models.Payment{}, false, nil
	}
	p, err := s.Repo.GetByReference(ctx, key)
	if err != nil {
		if domain.IsNotFound(err) {
			return models.Payment{}, false, nil
		}
		return models.Payment{}, false, err
	}
	if p.PayerID != in.PayerID {
		utils.LogEvent(utils.RequestIDFrom(ctx), "payment", "idempotent_replay", "ditolak: key milik payer lain")
		return models.Payment{}, false, domain.ConflictError{Resource: "payment", Msg: "idempotency key sudah dipakai"}
	}
	if p.TransactionID != in.TransactionID || p.Amount != in.Amount || p.Currency != in.Currency ||
		p.PaymentType != in.PaymentType || p.Method != in.Method {
		return models.Payment{}, false, domain.ConflictError{Resource: "payment", Msg: "idempotency key dipakai ulang dengan data berbeda"}
	}
	utils.LogEvent(utils.RequestIDFrom(ctx), "payment", "idempotent_replay", "ref="+key)
	return p, true, nil
}

// createFailed resolves a lost race on the same idempotency key to the stored record.
func (s PaymentService) createFailed(ctx context.Context, in models.PaymentInput, err error) (models.Payment, error) {
	if domain.IsConflict(err) && in.IdempotencyKey != "" {
		existing, ok, ferr := s.findIdempotent(ctx, in)
		if ferr != nil {
			return models.Payment{}, ferr
		}
		if ok {
			return existing, nil
		}
	}
	if domain.IsConflict(err) {
		return models.Payment{}, err
	}
	utils.LogError(utils.RequestIDFrom(ctx), "payment", "create", err)
	return models.Payment{}, domain.InternalError{Msg: "gagal menyimpan pembayaran", Err: err}
}

func (s PaymentService) newPayment(in models.PaymentInput, mt models.MethodType) models.Payment {
	now := s.now()
	ref := in.IdempotencyKey
	if ref == "" {
		ref = ReferenceCode(now)
	}
	return models.Payment{
		ID:            uuid.NewString(),
		TransactionID: in.TransactionID,
		PayerID:       in.PayerID,
		ReferenceCode: ref,
		PaymentType:   in.PaymentType,
		Amount:        in.Amount,
		Currency:      in.Currency,
		Method:        in.Method,
		MethodType:    mt,
		Status:        models.PaymentPending,
		PaymentDate:   now,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (s PaymentService) uploadProof(ctx context.Context, transactionID string, proof *models.ProofFile) (string, error) {
	if s.Storage == nil {
		return "", domain.UpstreamError{Service: "object storage", Err: errors.New("storage belum dikonfigurasi")}
	}
	name := fmt.Sprintf("%d-%s", s.now().UnixMilli(), utils.SafeFilenamePart(proof.Filename))
	url, err := s.Storage.Upload(ctx, "payments/"+transactionID, name, bytes.NewReader(proof.Content))
	if err != nil {
		utils.LogError(utils.RequestIDFrom(ctx), "payment", "upload_proof", err)
		return "", domain.UpstreamError{Service: "object storage", Err: err}
	}
	return url, nil
}

// save writes next over prev; next.Version is advanced on success.
func (s PaymentService) save(ctx context.Context, prev models.Payment, next *models.Payment) error {
	if err := s.Repo.UpdateState(ctx, *next, prev.Version); err != nil {
		return err
	}
	next.Version = prev.Version + 1
	return nil
}

func canSeePayment(rc domain.RequestContext, p models.Payment) error {
	if rc.IsAdmin() || p.PayerID == rc.UserID {
		return nil
	}
	return domain.ForbiddenError{Resource: "payment", Msg: "pembayaran ini bukan milik anda"}
}

func normalizeInput(in models.PaymentInput, rc domain.RequestContext) models.PaymentInput {
	in.TransactionID = strings.TrimSpace(in.TransactionID)
	in.Method = strings.TrimSpace(in.Method)
	in.Currency = strings.ToUpper(utils.FirstNonEmpty(in.Currency, "IDR"))
	in.IdempotencyKey = strings.TrimSpace(in.IdempotencyKey)
	in.PayerID = rc.UserID
	return in
}

func withCharge(summary validation.CardSummary, charge json.RawMessage) json.RawMessage {
	out := map[string]any{
		"card_type": summary.CardType,
		"last_four": summary.LastFour,
		"expiry":    summary.Expiry,
	}
	if len(charge) > 0 && json.Valid(charge) {
		out["charge"] = charge
	}
	raw, _ := json.Marshal(out)
	return raw
}

const refAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// ReferenceCode builds PAY-<unix-millis>-<6 uppercase alnum>.
func ReferenceCode(now time.Time) string {
	b := make([]byte, 6)
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = refAlphabet[int(b[i])%len(refAlphabet)]
	}
	return fmt.Sprintf("PAY-%d-%s", now.UnixMilli(), string(b))
}
