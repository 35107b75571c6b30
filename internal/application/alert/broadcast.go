package alert

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lifeconnect/lifeconnect-api/internal/domain"
)

// deliver fans out one email per recipient and settles every attempt before
// aggregating. A failing send never cancels its siblings and never aborts the
// broadcast; each outcome is classified independently.
func (s *service) deliver(ctx context.Context, a *domain.Alert, recipients []domain.Recipient) domain.BroadcastResult {
	subject := emailSubject(a)
	outcomes := make([]domain.DeliveryOutcome, len(recipients))

	var wg sync.WaitGroup
	for i, rcpt := range recipients {
		wg.Add(1)
		go func(i int, rcpt domain.Recipient) {
			defer wg.Done()
			body, err := renderAlertEmail(rcpt, a)
			if err == nil {
				err = s.sendWithTimeout(ctx, rcpt.Email, subject, body)
			}
			if err != nil {
				slog.Warn("alert delivery failed",
					"alert_id", a.AlertID, "recipient_id", rcpt.UserID, "err", err)
			}
			outcomes[i] = domain.DeliveryOutcome{RecipientID: rcpt.UserID, Success: err == nil}
		}(i, rcpt)
	}
	wg.Wait()

	sent, failed := 0, 0
	for _, o := range outcomes {
		if o.Success {
			sent++
		} else {
			failed++
		}
	}
	slog.Info("alert broadcast settled", "alert_id", a.AlertID, "sent", sent, "failed", failed)
	return domain.BroadcastResult{
		Success:     sent > 0,
		Message:     fmt.Sprintf("Alert sent to %d users. %d failed.", sent, failed),
		SentCount:   sent,
		FailedCount: failed,
	}
}

// sendWithTimeout bounds one send so a single unreachable mail server cannot
// stall the whole broadcast.
func (s *service) sendWithTimeout(ctx context.Context, to, subject, body string) error {
	ctx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.mailer.SendEmail(to, subject, body) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("send to %s: %w", to, ctx.Err())
	}
}
