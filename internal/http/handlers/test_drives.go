package handlers

import (
	"context"
	"net/http"

	"showroom/internal/domain"
	"showroom/internal/domain/models"
	"showroom/internal/lifecycle"

	"github.com/gin-gonic/gin"
)

// TestDriveAPI is implemented by services.TestDriveService.
type TestDriveAPI interface {
	Create(ctx context.Context, rc domain.RequestContext, in models.TestDriveInput) (models.TestDrive, error)
	AvailableSlots(ctx context.Context, carID, date string) ([]string, error)
	Get(ctx context.Context, rc domain.RequestContext, id string) (models.TestDrive, error)
	ListMine(ctx context.Context, rc domain.RequestContext) ([]models.TestDrive, error)
	ListAll(ctx context.Context, f models.TestDriveFilter) ([]models.TestDrive, int, error)
	Stats(ctx context.Context) (map[models.TestDriveStatus]int, error)
	Transition(ctx context.Context, rc domain.RequestContext, id string, cmd lifecycle.Command) (models.TestDrive, error)
	Feedback(ctx context.Context, rc domain.RequestContext, id string, fb models.TestDriveFeedback) (models.TestDrive, error)
}

// DocsAPI is implemented by services.DocsService.
type DocsAPI interface {
	PaymentReceipt(ctx context.Context, p models.Payment) ([]byte, string, error)
	TestDriveSlip(ctx context.Context, td models.TestDrive) ([]byte, string, error)
}

// TestDriveHandler serves both the customer and the admin booking routes.
type TestDriveHandler struct {
	Svc  TestDriveAPI
	Docs DocsAPI
}

type testDriveView struct {
	models.TestDrive
	AllowedActions []lifecycle.Action `json:"allowed_actions"`
}

func viewTestDrive(td models.TestDrive, rc domain.RequestContext) testDriveView {
	actor := lifecycle.ActorCustomer
	if rc.IsAdmin() && td.UserID != rc.UserID {
		actor = lifecycle.ActorAdmin
	}
	return testDriveView{TestDrive: td, AllowedActions: lifecycle.AllowedActions(td.Status, actor)}
}

func viewTestDrives(list []models.TestDrive, rc domain.RequestContext) []testDriveView {
	out := make([]testDriveView, 0, len(list))
	for _, td := range list {
		out = append(out, viewTestDrive(td, rc))
	}
	return out
}

type customerRescheduleRequest struct {
	Date  string `json:"date"`
	Time  string `json:"time"`
	Notes string `json:"notes"`
}

// POST /api/test-drives
func (h TestDriveHandler) Create(c *gin.Context) {
	var in models.TestDriveInput
	if !BindJSONOrError(c, &in) {
		return
	}
	rc := caller(c)
	td, err := h.Svc.Create(c.Request.Context(), rc, in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "permintaan test drive berhasil dikirim",
		"data":    viewTestDrive(td, rc),
	})
}

// GET /api/test-drives
func (h TestDriveHandler) ListMine(c *gin.Context) {
	rc := caller(c)
	list, err := h.Svc.ListMine(c.Request.Context(), rc)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": viewTestDrives(list, rc)})
}

// GET /api/test-drives/slots?car_id=&date=
func (h TestDriveHandler) Slots(c *gin.Context) {
	slots, err := h.Svc.AvailableSlots(c.Request.Context(), c.Query("car_id"), c.Query("date"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"car_id": c.Query("car_id"),
		"date":   c.Query("date"),
		"slots":  slots,
	})
}

// GET /api/test-drives/:id
func (h TestDriveHandler) Get(c *gin.Context) {
	rc := caller(c)
	td, err := h.Svc.Get(c.Request.Context(), rc, c.Param("id"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": viewTestDrive(td, rc)})
}

// PUT /api/test-drives/:id/cancel
func (h TestDriveHandler) Cancel(c *gin.Context) {
	h.transition(c, lifecycle.Command{Action: lifecycle.ActionCancel}, "booking dibatalkan")
}

// PUT /api/test-drives/:id/reschedule
func (h TestDriveHandler) RequestReschedule(c *gin.Context) {
	var req customerRescheduleRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	h.transition(c, lifecycle.Command{
		Action: lifecycle.ActionRequestReschedule,
		Date:   req.Date,
		Time:   req.Time,
		Notes:  req.Notes,
	}, "permintaan jadwal ulang dikirim")
}

// PUT /api/test-drives/:id/confirm-reschedule
func (h TestDriveHandler) ConfirmReschedule(c *gin.Context) {
	h.transition(c, lifecycle.Command{Action: lifecycle.ActionConfirmReschedule}, "jadwal baru dikonfirmasi")
}

// PUT /api/test-drives/:id/feedback
func (h TestDriveHandler) Feedback(c *gin.Context) {
	var fb models.TestDriveFeedback
	if !BindJSONOrError(c, &fb) {
		return
	}
	rc := caller(c)
	td, err := h.Svc.Feedback(c.Request.Context(), rc, c.Param("id"), fb)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "terima kasih atas feedback anda",
		"data":    viewTestDrive(td, rc),
	})
}

// GET /api/test-drives/:id/slip
func (h TestDriveHandler) Slip(c *gin.Context) {
	td, err := h.Svc.Get(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	pdf, filename, err := h.Docs.TestDriveSlip(c.Request.Context(), td)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	sendPDF(c, filename, pdf)
}

func (h TestDriveHandler) transition(c *gin.Context, cmd lifecycle.Command, message string) {
	rc := caller(c)
	td, err := h.Svc.Transition(c.Request.Context(), rc, c.Param("id"), cmd)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": message,
		"data":    viewTestDrive(td, rc),
	})
}
