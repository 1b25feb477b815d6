package invoicing

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/eshaffer321/sitebuy-backend/internal/domain/procurement"
)

// SweepResult summarizes one pass over the pending queue.
type SweepResult struct {
	Scanned    int `json:"scanned"`
	Approved   int `json:"approved"`
	Exceptions int `json:"exceptions"`
	Skipped    int `json:"skipped"` // changed by another writer mid-match
	Failed     int `json:"failed"`
}

// SweepPending re-matches every pending invoice, several at a time.
// A failure on one invoice is logged and counted; it does not stop the
// sweep. Only a failure to list the queue or a cancelled context is
// returned as an error.
func (s *Service) SweepPending(ctx context.Context) (SweepResult, error) {
	pending, err := s.repo.ListInvoicesByStatus(ctx, procurement.InvoiceStatusPending)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list pending invoices: %w", err)
	}

	var approved, exceptions, skipped, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i := range pending {
		id := pending[i].ID
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcome, err := s.Match(gctx, id)
			if errors.Is(err, procurement.ErrInvalidTransition) {
				skipped.Add(1)
				s.logger.Info("sweep skipped invoice changed during match", "invoice_id", id, "reason", err)
				return nil
			}
			if err != nil {
				failed.Add(1)
				s.logger.Error("sweep match failed", "invoice_id", id, "error", err)
				return nil
			}
			if outcome.Invoice.Status == procurement.InvoiceStatusApproved {
				approved.Add(1)
			} else {
				exceptions.Add(1)
			}
			return nil
		})
	}

	waitErr := g.Wait()
	result := SweepResult{
		Scanned:    len(pending),
		Approved:   int(approved.Load()),
		Exceptions: int(exceptions.Load()),
		Skipped:    int(skipped.Load()),
		Failed:     int(failed.Load()),
	}
	if waitErr != nil {
		return result, waitErr
	}

	if result.Scanned > 0 {
		s.logger.Info("sweep complete",
			"scanned", result.Scanned,
			"approved", result.Approved,
			"exceptions", result.Exceptions,
			"skipped", result.Skipped,
			"failed", result.Failed,
		)
	}
	return result, nil
}

// StartSweeper runs SweepPending every interval until StopSweeper is
// called. Calling it while a sweeper is running is a no-op.
func (s *Service) StartSweeper(interval time.Duration) {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()
	if s.sweepStop != nil {
		return
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	s.sweepStop, s.sweepDone = stop, done

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-stop
		cancel()
	}()

	go func() {
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		s.logger.Info("background sweep started", "interval", interval)

		for {
			select {
			case <-stop:
				s.logger.Info("background sweep stopped")
				return
			case <-ticker.C:
				if _, err := s.SweepPending(ctx); err != nil && ctx.Err() == nil {
					s.logger.Error("background sweep failed", "error", err)
				}
			}
		}
	}()
}

// StopSweeper stops the background sweep and waits for an in-flight pass
// to finish.
func (s *Service) StopSweeper() {
	s.sweepMu.Lock()
	stop, done := s.sweepStop, s.sweepDone
	s.sweepStop, s.sweepDone = nil, nil
	s.sweepMu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}
