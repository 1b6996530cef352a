package handlers

import (
	"context"
	"errors"

	"showroom/internal/domain"
	"showroom/internal/domain/models"
	"showroom/internal/http/middleware"
	"showroom/internal/lifecycle"

	"github.com/gin-gonic/gin"
)

type stubParser struct{}

func (stubParser) ParseToken(raw string) (domain.RequestContext, error) {
	switch raw {
	case "admin":
		return domain.RequestContext{UserID: "admin-1", Role: domain.RoleAdmin}, nil
	case "customer":
		return domain.RequestContext{UserID: "user-1", Role: domain.RoleUser}, nil
	}
	return domain.RequestContext{}, errors.New("bad token")
}

type stubTestDrives struct {
	td      models.TestDrive
	list    []models.TestDrive
	total   int
	slots   []string
	stats   map[models.TestDriveStatus]int
	err     error
	lastRC  domain.RequestContext
	lastID  string
	lastCmd lifecycle.Command
	lastIn  models.TestDriveInput
	filter  models.TestDriveFilter
}

func (s *stubTestDrives) Create(_ context.Context, rc domain.RequestContext, in models.TestDriveInput) (models.TestDrive, error) {
	s.lastRC, s.lastIn = rc, in
	return s.td, s.err
}

func (s *stubTestDrives) AvailableSlots(_ context.Context, carID, date string) ([]string, error) {
	return s.slots, s.err
}

func (s *stubTestDrives) Get(_ context.Context, rc domain.RequestContext, id string) (models.TestDrive, error) {
	s.lastRC, s.lastID = rc, id
	return s.td, s.err
}

func (s *stubTestDrives) ListMine(_ context.Context, rc domain.RequestContext) ([]models.TestDrive, error) {
	s.lastRC = rc
	return s.list, s.err
}

func (s *stubTestDrives) ListAll(_ context.Context, f models.TestDriveFilter) ([]models.TestDrive, int, error) {
	s.filter = f
	return s.list, s.total, s.err
}

func (s *stubTestDrives) Stats(context.Context) (map[models.TestDriveStatus]int, error) {
	return s.stats, s.err
}

func (s *stubTestDrives) Transition(_ context.Context, rc domain.RequestContext, id string, cmd lifecycle.Command) (models.TestDrive, error) {
	s.lastRC, s.lastID, s.lastCmd = rc, id, cmd
	return s.td, s.err
}

func (s *stubTestDrives) Feedback(_ context.Context, rc domain.RequestContext, id string, fb models.TestDriveFeedback) (models.TestDrive, error) {
	s.lastRC, s.lastID = rc, id
	return s.td, s.err
}

type stubPayments struct {
	p         models.Payment
	list      []models.Payment
	total     int
	err       error
	lastIn    models.PaymentInput
	lastCard  models.CardDetails
	lastPayer models.BankPayer
	lastProof *models.ProofFile
	lastSig   string
	lastBody  []byte
	approved  bool
	reason    string
	status    string
	page      domain.Pagination
}

func (s *stubPayments) SubmitCard(_ context.Context, _ domain.RequestContext, in models.PaymentInput, card models.CardDetails) (models.Payment, error) {
	s.lastIn, s.lastCard = in, card
	return s.p, s.err
}

func (s *stubPayments) SubmitBankTransfer(_ context.Context, _ domain.RequestContext, in models.PaymentInput, payer models.BankPayer, proof *models.ProofFile) (models.Payment, error) {
	s.lastIn, s.lastPayer, s.lastProof = in, payer, proof
	return s.p, s.err
}

func (s *stubPayments) HandleGatewayCallback(_ context.Context, signature string, rawBody []byte) (models.Payment, error) {
	s.lastSig, s.lastBody = signature, rawBody
	return s.p, s.err
}

func (s *stubPayments) Get(context.Context, domain.RequestContext, string) (models.Payment, error) {
	return s.p, s.err
}

func (s *stubPayments) GetByReference(context.Context, domain.RequestContext, string) (models.Payment, error) {
	return s.p, s.err
}

func (s *stubPayments) ListByTransaction(context.Context, domain.RequestContext, string) ([]models.Payment, error) {
	return s.list, s.err
}

func (s *stubPayments) List(_ context.Context, status string, page domain.Pagination) ([]models.Payment, int, error) {
	s.status, s.page = status, page
	return s.list, s.total, s.err
}

func (s *stubPayments) ListNeedingVerification(context.Context) ([]models.Payment, error) {
	return s.list, s.err
}

func (s *stubPayments) Verify(_ context.Context, _ domain.RequestContext, _ string, approved bool, reason string) (models.Payment, error) {
	s.approved, s.reason = approved, reason
	return s.p, s.err
}

func (s *stubPayments) Refund(context.Context, domain.RequestContext, string) (models.Payment, error) {
	return s.p, s.err
}

func (s *stubPayments) ReuploadProof(_ context.Context, _ domain.RequestContext, _ string, proof *models.ProofFile) (models.Payment, error) {
	s.lastProof = proof
	return s.p, s.err
}

type stubDocs struct {
	err error
}

func (d stubDocs) PaymentReceipt(context.Context, models.Payment) ([]byte, string, error) {
	return []byte("%PDF-receipt"), "KWITANSI_PAY-1.pdf", d.err
}

func (d stubDocs) TestDriveSlip(context.Context, models.TestDrive) ([]byte, string, error) {
	return []byte("%PDF-slip"), "TESTDRIVE_2025-06-03_Budi.pdf", d.err
}

func newTestEngine(td *stubTestDrives, pay *stubPayments) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID())

	tdh := TestDriveHandler{Svc: td, Docs: stubDocs{}}
	ph := PaymentHandler{Svc: pay, Docs: stubDocs{}}

	api := r.Group("/api")
	api.POST("/payments/gateway/callback", ph.GatewayCallback)

	authed := api.Group("", middleware.Auth(stubParser{}))
	authed.POST("/test-drives", tdh.Create)
	authed.GET("/test-drives/slots", tdh.Slots)
	authed.GET("/test-drives/:id", tdh.Get)
	authed.PUT("/test-drives/:id/cancel", tdh.Cancel)
	authed.PUT("/test-drives/:id/reschedule", tdh.RequestReschedule)
	authed.GET("/test-drives/:id/slip", tdh.Slip)
	authed.POST("/payments/card", ph.SubmitCard)
	authed.POST("/payments/bank-transfer", ph.SubmitBankTransfer)
	authed.GET("/payments/:id/receipt", ph.Receipt)

	admin := authed.Group("/admin", middleware.RequireRoles(domain.RoleAdmin, domain.RoleOwner))
	admin.GET("/test-drives", tdh.AdminList)
	admin.PUT("/test-drives/:id/approve", tdh.Approve)
	admin.PUT("/test-drives/:id/reschedule", tdh.Reschedule)
	admin.GET("/payments", ph.AdminList)
	admin.PUT("/payments/:id/verify", ph.Verify)
	return r
}
