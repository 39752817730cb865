package workers

import (
	"context"
	"time"

	"sweetbank/service"

	log "github.com/sirupsen/logrus"
)

// ReconciliationWorker periodically diffs the balance representations.
// Alert-only by default; corrective mode also rewrites drifted legacy
// balances.
type ReconciliationWorker struct {
	reconciler service.ReconciliationService
	corrective bool
}

// NewReconciliationWorker creates a new reconciliation worker
func NewReconciliationWorker(reconciler service.ReconciliationService, corrective bool) *ReconciliationWorker {
	return &ReconciliationWorker{
		reconciler: reconciler,
		corrective: corrective,
	}
}

// Start begins the reconciliation worker. The returned function stops it.
func (w *ReconciliationWorker) Start(ctx context.Context, interval time.Duration) func() {
	stopChan := make(chan struct{})

	go func() {
		log.Infof("Reconciliation worker started, running every %v", interval)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info("Reconciliation worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Reconciliation worker shutting down (stop requested)...")
				return
			case <-ticker.C:
				report, err := w.reconciler.Run(ctx, w.corrective)
				if err != nil {
					log.Errorf("Error running reconciliation: %v", err)
					continue
				}
				if len(report.Mismatches) > 0 {
					log.WithFields(log.Fields{
						"mismatches": len(report.Mismatches),
						"corrected":  report.Corrected,
					}).Warn("Reconciliation found drifted balances")
				}
			}
		}
	}()

	return func() {
		close(stopChan)
	}
}
