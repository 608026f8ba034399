package notifications

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// AsyncNotifier hands every send to its own goroutine and returns at once.
// Failures are logged and dropped.
type AsyncNotifier struct {
	inner   Notifier
	log     *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewAsyncNotifier(inner Notifier, log *slog.Logger, timeout time.Duration) *AsyncNotifier {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AsyncNotifier{inner: inner, log: log, timeout: timeout}
}

func (a *AsyncNotifier) SendConfirmation(_ context.Context, in ConfirmationInput) error {
	a.dispatch(TemplateConfirm, in.Email, func(ctx context.Context) error {
		return a.inner.SendConfirmation(ctx, in)
	})
	return nil
}

func (a *AsyncNotifier) SendPasswordReset(_ context.Context, in PasswordResetInput) error {
	a.dispatch(TemplateResetPassword, in.Email, func(ctx context.Context) error {
		return a.inner.SendPasswordReset(ctx, in)
	})
	return nil
}

func (a *AsyncNotifier) SendEmailChange(_ context.Context, in EmailChangeInput) error {
	a.dispatch(TemplateChangeEmail, in.NewEmail, func(ctx context.Context) error {
		return a.inner.SendEmailChange(ctx, in)
	})
	return nil
}

// the request context is not reused: it is cancelled once the handler returns.
func (a *AsyncNotifier) dispatch(name, to string, send func(context.Context) error) {
	a.wg.Add(1)

	go func() {
		defer a.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()

		if err := send(ctx); err != nil {
			a.log.Error("mail.send_failed", "template", name, "to", to, "err", err)
			return
		}
		a.log.Debug("mail.sent", "template", name, "to", to)
	}()
}

// Wait blocks until in-flight sends finish or ctx is done.
func (a *AsyncNotifier) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
