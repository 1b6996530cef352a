// Package jobs runs the periodic maintenance tasks.
package jobs

import (
	"context"
	"fmt"
	"time"

	"showroom/internal/utils"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// Expirer is implemented by services.PaymentService.
type Expirer interface {
	ExpireStale(ctx context.Context) (int64, error)
}

// PaymentExpiry moves abandoned payments to expired on a cron schedule.
type PaymentExpiry struct {
	Payments Expirer
	Timeout  time.Duration
}

// Run executes one expiry pass.
func (j PaymentExpiry) Run() {
	timeout := j.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	reqID := "job-" + uuid.NewString()
	ctx, cancel := context.WithTimeout(utils.WithRequestID(context.Background(), reqID), timeout)
	defer cancel()

	n, err := j.Payments.ExpireStale(ctx)
	if err != nil {
		utils.LogError(reqID, "jobs", "payment_expiry", err)
		return
	}
	if n > 0 {
		utils.LogEvent(reqID, "jobs", "payment_expiry", fmt.Sprintf("expired=%d", n))
	}
}

// Start schedules job with spec and returns the running scheduler; call Stop on shutdown.
func Start(spec string, job PaymentExpiry) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddJob(spec, job); err != nil {
		return nil, fmt.Errorf("jadwal cron %q tidak valid: %w", spec, err)
	}
	c.Start()
	utils.LogEvent("", "jobs", "start", "payment expiry dijadwalkan "+spec)
	return c, nil
}
