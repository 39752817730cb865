package workers

import (
	"context"
	"time"

	"sweetbank/service"

	log "github.com/sirupsen/logrus"
)

// TreasuryResetWorker zeroes the treasury daily spend counter once a day
type TreasuryResetWorker struct {
	treasury service.TreasuryService
}

// NewTreasuryResetWorker creates a new treasury reset worker
func NewTreasuryResetWorker(treasury service.TreasuryService) *TreasuryResetWorker {
	return &TreasuryResetWorker{treasury: treasury}
}

// Start begins the reset worker. The returned function stops it.
func (w *TreasuryResetWorker) Start(ctx context.Context, resetHour int) func() {
	stopChan := make(chan struct{})

	calculateNextRun := func() time.Duration {
		now := time.Now().UTC()
		next := time.Date(now.Year(), now.Month(), now.Day(), resetHour, 0, 0, 0, time.UTC)

		// If the reset time has already passed today, schedule for tomorrow
		if now.After(next) || now.Equal(next) {
			next = next.Add(24 * time.Hour)
		}

		return next.Sub(now)
	}

	go func() {
		log.Infof("Treasury reset worker started, next run at %02d:00 UTC", resetHour)

		for {
			waitDuration := calculateNextRun()
			log.Infof("Treasury reset worker waiting %v until next run", waitDuration)

			select {
			case <-ctx.Done():
				log.Info("Treasury reset worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Treasury reset worker shutting down (stop requested)...")
				return
			case <-time.After(waitDuration):
				if err := w.treasury.ResetDaily(ctx); err != nil {
					log.Errorf("Error resetting treasury daily spend: %v", err)
				}
			}
		}
	}()

	return func() {
		close(stopChan)
	}
}
