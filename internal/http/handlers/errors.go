package handlers

import (
	"errors"
	"net/http"

	"showroom/internal/domain"
	"showroom/internal/gateway"
	"showroom/internal/http/middleware"
	"showroom/internal/services"
	"showroom/internal/utils"

	"github.com/gin-gonic/gin"
)

// ErrorResponse standardizes error payloads.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// FieldDetail is one entry of a validation error list.
type FieldDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func respondError(c *gin.Context, status int, code, message string, details any) {
	if code == "" {
		code = http.StatusText(status)
	}
	resp := ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	}
	reqID := middleware.GetRequestID(c)
	if reqID != "" {
		c.JSON(status, gin.H{
			"error":      resp.Error,
			"code":       resp.Code,
			"details":    resp.Details,
			"request_id": reqID,
			"message":    message,
		})
		return
	}
	c.JSON(status, resp)
}

// RespondDomainError maps domain errors to HTTP responses.
func RespondDomainError(c *gin.Context, err error) {
	switch {
	case domain.IsValidation(err):
		fields := domain.FieldErrors(err)
		details := make([]FieldDetail, 0, len(fields))
		for _, f := range fields {
			details = append(details, FieldDetail{Field: f.Field, Message: f.Msg})
		}
		respondError(c, http.StatusBadRequest, "validation_error", "data tidak valid", details)
	case domain.IsNotFound(err):
		respondError(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case domain.IsForbidden(err):
		respondError(c, http.StatusForbidden, "forbidden", err.Error(), nil)
	case domain.IsTransition(err):
		respondError(c, http.StatusConflict, "invalid_transition", err.Error(), nil)
	case domain.IsConflict(err):
		respondError(c, http.StatusConflict, "conflict", err.Error(), nil)
	case errors.Is(err, gateway.ErrBadSignature):
		respondError(c, http.StatusUnauthorized, "invalid_signature", "signature tidak valid", nil)
	case errors.Is(err, services.ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, "invalid_credentials", err.Error(), nil)
	case errors.Is(err, services.ErrInvalidToken):
		respondError(c, http.StatusUnauthorized, "invalid_token", err.Error(), nil)
	case domain.IsUpstream(err):
		utils.LogError(middleware.GetRequestID(c), "http", "upstream", err)
		respondError(c, http.StatusBadGateway, "upstream_error", "layanan eksternal sedang bermasalah, coba lagi", nil)
	default:
		utils.LogError(middleware.GetRequestID(c), "http", "internal", err)
		respondError(c, http.StatusInternalServerError, "internal_error", "terjadi kesalahan", nil)
	}
}
