package handlers

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"showroom/internal/domain"
	"showroom/internal/domain/models"
	"showroom/internal/gateway"
	"showroom/internal/validation"

	"github.com/gin-gonic/gin"
)

// PaymentAPI is implemented by services.PaymentService.
type PaymentAPI interface {
	SubmitCard(ctx context.Context, rc domain.RequestContext, in models.PaymentInput, card models.CardDetails) (models.Payment, error)
	SubmitBankTransfer(ctx context.Context, rc domain.RequestContext, in models.PaymentInput, payer models.BankPayer, proof *models.ProofFile) (models.Payment, error)
	HandleGatewayCallback(ctx context.Context, signature string, rawBody []byte) (models.Payment, error)
	Get(ctx context.Context, rc domain.RequestContext, id string) (models.Payment, error)
	GetByReference(ctx context.Context, rc domain.RequestContext, code string) (models.Payment, error)
	ListByTransaction(ctx context.Context, rc domain.RequestContext, transactionID string) ([]models.Payment, error)
	List(ctx context.Context, status string, page domain.Pagination) ([]models.Payment, int, error)
	ListNeedingVerification(ctx context.Context) ([]models.Payment, error)
	Verify(ctx context.Context, rc domain.RequestContext, id string, approved bool, reason string) (models.Payment, error)
	Refund(ctx context.Context, rc domain.RequestContext, id string) (models.Payment, error)
	ReuploadProof(ctx context.Context, rc domain.RequestContext, id string, proof *models.ProofFile) (models.Payment, error)
}

type PaymentHandler struct {
	Svc  PaymentAPI
	Docs DocsAPI
}

const (
	idempotencyHeader = "Idempotency-Key"
	proofField        = "proof_of_payment"
	maxCallbackBody   = 1 << 20
)

type cardPaymentRequest struct {
	models.PaymentInput
	models.CardDetails
}

// POST /api/payments/card
func (h PaymentHandler) SubmitCard(c *gin.Context) {
	var req cardPaymentRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	req.PaymentInput.IdempotencyKey = strings.TrimSpace(c.GetHeader(idempotencyHeader))

	p, err := h.Svc.SubmitCard(c.Request.Context(), caller(c), req.PaymentInput, req.CardDetails)
	if err != nil {
		if domain.IsUpstream(err) && p.ID != "" {
			msg := "pembayaran kartu gagal diproses oleh gateway"
			if p.Status == models.PaymentPending {
				msg = "status pembayaran belum pasti, menunggu konfirmasi gateway"
			}
			respondError(c, http.StatusBadGateway, "gateway_error", msg, p)
			return
		}
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "pembayaran kartu sedang diproses",
		"data":    p,
	})
}

// POST /api/payments/bank-transfer (multipart/form-data)
func (h PaymentHandler) SubmitBankTransfer(c *gin.Context) {
	var in models.PaymentInput
	var payer models.BankPayer
	if err := c.ShouldBind(&in); err != nil {
		RespondError(c, http.StatusBadRequest, "form tidak valid", err)
		return
	}
	if err := c.ShouldBind(&payer); err != nil {
		RespondError(c, http.StatusBadRequest, "form tidak valid", err)
		return
	}
	in.IdempotencyKey = strings.TrimSpace(c.GetHeader(idempotencyHeader))

	proof, err := readProof(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "file bukti pembayaran tidak dapat dibaca", err)
		return
	}

	p, err := h.Svc.SubmitBankTransfer(c.Request.Context(), caller(c), in, payer, proof)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "bukti transfer diterima, menunggu verifikasi admin",
		"data":    p,
	})
}

// POST /api/payments/gateway/callback
func (h PaymentHandler) GatewayCallback(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCallbackBody))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "body tidak dapat dibaca", err)
		return
	}
	p, err := h.Svc.HandleGatewayCallback(c.Request.Context(), c.GetHeader(gateway.SignatureHeader), raw)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"received":       true,
		"reference_code": p.ReferenceCode,
		"status":         p.Status,
	})
}

// GET /api/payments/:id
func (h PaymentHandler) Get(c *gin.Context) {
	p, err := h.Svc.Get(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": p})
}

// GET /api/payments/reference/:code
func (h PaymentHandler) GetByReference(c *gin.Context) {
	p, err := h.Svc.GetByReference(c.Request.Context(), caller(c), c.Param("code"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": p})
}

// GET /api/payments/transaction/:transactionId
func (h PaymentHandler) ListByTransaction(c *gin.Context) {
	list, err := h.Svc.ListByTransaction(c.Request.Context(), caller(c), c.Param("transactionId"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

// GET /api/payments/:id/receipt
func (h PaymentHandler) Receipt(c *gin.Context) {
	p, err := h.Svc.Get(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	pdf, filename, err := h.Docs.PaymentReceipt(c.Request.Context(), p)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	sendPDF(c, filename, pdf)
}

// POST /api/payments/:id/proof (multipart/form-data)
func (h PaymentHandler) ReuploadProof(c *gin.Context) {
	proof, err := readProof(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "file bukti pembayaran tidak dapat dibaca", err)
		return
	}
	p, err := h.Svc.ReuploadProof(c.Request.Context(), caller(c), c.Param("id"), proof)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "bukti pembayaran baru dikirim untuk verifikasi",
		"data":    p,
	})
}

// readProof returns nil when no file was sent so the service reports the field error.
func readProof(c *gin.Context) (*models.ProofFile, error) {
	fh, err := c.FormFile(proofField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}
	return openProof(fh)
}

func openProof(fh *multipart.FileHeader) (*models.ProofFile, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// One byte past the limit is enough for the size check to fail.
	content, err := io.ReadAll(io.LimitReader(f, validation.MaxProofSize+1))
	if err != nil {
		return nil, err
	}
	return &models.ProofFile{Filename: fh.Filename, Size: fh.Size, Content: content}, nil
}
