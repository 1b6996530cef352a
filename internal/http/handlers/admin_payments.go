package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type verifyPaymentRequest struct {
	Approved *bool  `json:"approved"`
	Reason   string `json:"reason"`
}

// GET /api/admin/payments?status=&page=&limit=
func (h PaymentHandler) AdminList(c *gin.Context) {
	page := pageFromQuery(c)
	list, total, err := h.Svc.List(c.Request.Context(), c.Query("status"), page)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	page.Total = total
	c.JSON(http.StatusOK, gin.H{
		"data":       list,
		"pagination": page,
	})
}

// GET /api/admin/payments/verification
func (h PaymentHandler) AdminVerificationQueue(c *gin.Context) {
	list, err := h.Svc.ListNeedingVerification(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "total": len(list)})
}

// PUT /api/admin/payments/:id/verify
func (h PaymentHandler) Verify(c *gin.Context) {
	var req verifyPaymentRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	if req.Approved == nil {
		respondError(c, http.StatusBadRequest, "validation_error", "data tidak valid",
			[]FieldDetail{{Field: "approved", Message: "wajib diisi"}})
		return
	}
	p, err := h.Svc.Verify(c.Request.Context(), caller(c), c.Param("id"), *req.Approved, req.Reason)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	msg := "pembayaran ditolak"
	if *req.Approved {
		msg = "pembayaran diverifikasi"
	}
	c.JSON(http.StatusOK, gin.H{"message": msg, "data": p})
}

// PUT /api/admin/payments/:id/refund
func (h PaymentHandler) Refund(c *gin.Context) {
	p, err := h.Svc.Refund(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "pembayaran direfund", "data": p})
}
