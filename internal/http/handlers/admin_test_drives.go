package handlers

import (
	"net/http"
	"strings"

	"showroom/internal/domain/models"
	"showroom/internal/lifecycle"

	"github.com/gin-gonic/gin"
)

type adminRescheduleRequest struct {
	NewDate string `json:"new_date"`
	NewTime string `json:"new_time"`
	Reason  string `json:"reason"`
}

// GET /api/admin/test-drives?status=&car_id=&user_id=&date_from=&date_to=&page=&limit=
func (h TestDriveHandler) AdminList(c *gin.Context) {
	page := pageFromQuery(c)
	f := models.TestDriveFilter{
		Status:   models.TestDriveStatus(strings.TrimSpace(c.Query("status"))),
		CarID:    strings.TrimSpace(c.Query("car_id")),
		UserID:   strings.TrimSpace(c.Query("user_id")),
		DateFrom: strings.TrimSpace(c.Query("date_from")),
		DateTo:   strings.TrimSpace(c.Query("date_to")),
		Page:     page.Page,
		PageSize: page.PageSize,
	}
	list, total, err := h.Svc.ListAll(c.Request.Context(), f)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	page.Total = total
	c.JSON(http.StatusOK, gin.H{
		"data":       viewTestDrives(list, caller(c)),
		"pagination": page,
	})
}

// GET /api/admin/test-drives/stats
func (h TestDriveHandler) AdminStats(c *gin.Context) {
	counts, err := h.Svc.Stats(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "by_status": counts})
}

// PUT /api/admin/test-drives/:id/approve
func (h TestDriveHandler) Approve(c *gin.Context) {
	h.transition(c, lifecycle.Command{Action: lifecycle.ActionApprove}, "test drive disetujui")
}

// PUT /api/admin/test-drives/:id/reject
func (h TestDriveHandler) Reject(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	if !bindOptionalJSON(c, &req) {
		return
	}
	h.transition(c, lifecycle.Command{Action: lifecycle.ActionReject, Reason: req.Reason}, "test drive ditolak")
}

// PUT /api/admin/test-drives/:id/reschedule
func (h TestDriveHandler) Reschedule(c *gin.Context) {
	var req adminRescheduleRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	h.transition(c, lifecycle.Command{
		Action: lifecycle.ActionReschedule,
		Date:   req.NewDate,
		Time:   req.NewTime,
		Reason: req.Reason,
	}, "jadwal baru diusulkan ke customer")
}

// PUT /api/admin/test-drives/:id/complete
func (h TestDriveHandler) Complete(c *gin.Context) {
	h.transition(c, lifecycle.Command{Action: lifecycle.ActionComplete}, "test drive selesai")
}

// PUT /api/admin/test-drives/:id/no-show
func (h TestDriveHandler) NoShow(c *gin.Context) {
	h.transition(c, lifecycle.Command{Action: lifecycle.ActionNoShow}, "customer ditandai tidak hadir")
}
