package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	intconfig "showroom/internal/config"
	"showroom/internal/db"
	"showroom/internal/gateway"
	router "showroom/internal/http"
	"showroom/internal/jobs"
	"showroom/internal/metrics"
	"showroom/internal/repositories"
	"showroom/internal/services"
	"showroom/internal/storage"
	"showroom/internal/utils"
	"showroom/internal/validation"

	"github.com/gin-gonic/gin"
)

func main() {
	defer utils.SyncLogger()
	log := utils.Logger()

	env := intconfig.LoadEnv()
	if env.GinMode != "" {
		gin.SetMode(env.GinMode)
	}

	conn, err := intconfig.ConnectDB(env)
	if err != nil {
		log.Fatalw("Gagal konek database", "error", err)
	}
	defer intconfig.CloseDB()

	schemaCtx, cancelSchema := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.EnsureSchema(schemaCtx, conn); err != nil {
		cancelSchema()
		log.Fatalw("Gagal menyiapkan schema", "error", err)
	}
	cancelSchema()

	m := metrics.New()
	v := validation.New()

	var uploader services.ProofUploader
	if env.CloudinaryURL != "" {
		cld, err := storage.NewCloudinary(env.CloudinaryURL)
		if err != nil {
			log.Fatalw("Konfigurasi Cloudinary tidak valid", "error", err)
		}
		uploader = cld
	} else {
		log.Warnw("CLOUDINARY_URL kosong, upload bukti transfer dinonaktifkan")
	}

	testDriveRepo := repositories.TestDriveRepository{DB: conn}
	carRepo := repositories.CarRepository{DB: conn}
	paymentRepo := repositories.PaymentRepository{DB: conn}
	userRepo := repositories.UserRepository{DB: conn}

	authSvc := services.AuthService{Users: userRepo, Secret: []byte(env.JWTSecret), Validator: v}
	testDriveSvc := services.TestDriveService{Repo: testDriveRepo, Cars: carRepo, Validator: v, Metrics: m}
	paymentSvc := services.PaymentService{
		Repo:          paymentRepo,
		Gateway:       gateway.NewHTTP(env.GatewayBaseURL, env.GatewayAPIKey),
		Storage:       uploader,
		Validator:     v,
		Metrics:       m,
		GatewayName:   env.GatewayName,
		WebhookSecret: env.GatewayWebhookSecret,
		ExpiryAfter:   env.PaymentExpiryAfter,
	}
	docsSvc := services.DocsService{Cars: carRepo}

	scheduler, err := jobs.Start(env.PaymentExpiryCron, jobs.PaymentExpiry{Payments: paymentSvc})
	if err != nil {
		log.Fatalw("Gagal menjadwalkan job", "error", err)
	}

	r := router.NewRouter(env, router.Deps{
		Auth:       authSvc,
		Tokens:     authSvc,
		TestDrives: testDriveSvc,
		Payments:   paymentSvc,
		Docs:       docsSvc,
		Metrics:    m,
	})

	srv := &http.Server{
		Addr:              env.AppAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Infof("Server berjalan di http://localhost%s", env.AppAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("Gagal menjalankan server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Mematikan server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	<-scheduler.Stop().Done()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("Shutdown server gagal", "error", err)
		return
	}

	log.Info("Server berhenti dengan aman.")
}
