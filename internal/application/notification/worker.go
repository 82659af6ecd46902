package notification

import (
	"context"
	"fmt"

	domorder "github.com/skyvolt/storefront/internal/domain/order"
	domotp "github.com/skyvolt/storefront/internal/domain/otp"
	domoutbox "github.com/skyvolt/storefront/internal/domain/outbox"
	"github.com/skyvolt/storefront/internal/observability"
	"github.com/skyvolt/storefront/internal/observability/logctx"
)

const workerService = "notification-worker"

// Worker consumes domain events from the bus and dispatches them through the
// notification sink. Everything here is a best-effort side effect of an
// already-committed operation: failures are logged and counted, and the log
// store keeps a per-attempt record.
type Worker struct {
	subscriber domoutbox.Subscriber
	notifier   Notifier
	logStore   Log

	log      observability.Logger
	failures observability.Counter
}

func NewWorker(subscriber domoutbox.Subscriber, notifier Notifier, logStore Log, tel observability.Telemetry) *Worker {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Worker{
		subscriber: subscriber,
		notifier:   notifier,
		logStore:   logStore,
		log:        tel.Logger().With(observability.F("service", workerService)),
		failures:   tel.Counter(observability.MNotificationFailures),
	}
}

func (w *Worker) Start() {
	if w.subscriber == nil || w.notifier == nil {
		return
	}
	w.subscriber.Subscribe(domotp.IssuedEvent{}.EventName(), w.handleOtpIssued)
	w.subscriber.Subscribe(domorder.PlacedEvent{}.EventName(), w.handleOrderPlaced)
}

func (w *Worker) handleOtpIssued(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domotp.IssuedEvent)
	if !ok {
		return nil
	}
	return w.dispatch(ctx, Message{
		To:      evt.Email,
		Subject: "Your verification code",
		Kind:    KindOtp,
		Variables: map[string]string{
			"code":       evt.Code,
			"purpose":    string(evt.Purpose),
			"expires_at": evt.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"),
		},
	})
}

func (w *Worker) handleOrderPlaced(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domorder.PlacedEvent)
	if !ok {
		return nil
	}
	return w.dispatch(ctx, Message{
		To:      evt.Email,
		Subject: "Order confirmation " + evt.OrderNumber,
		Kind:    KindOrderConfirmation,
		Variables: map[string]string{
			"order_number": evt.OrderNumber,
			"total":        fmt.Sprintf("%.2f", evt.Total),
			"item_count":   fmt.Sprintf("%d", evt.ItemCount),
		},
	})
}

func (w *Worker) dispatch(ctx context.Context, m Message) error {
	logger := logctx.FromOr(ctx, w.log).With(
		observability.F("kind", m.Kind),
		observability.F("to", m.To),
	)

	entry := LogEntry{To: m.To, Subject: m.Subject, Kind: m.Kind, Status: "sent"}
	if err := w.notifier.Send(ctx, m); err != nil {
		entry.Status = "failed"
		entry.Error = err.Error()
		if w.failures != nil {
			w.failures.Add(1, observability.L("kind", m.Kind))
		}
		logger.Warn("notification_dispatch_failed", observability.F("error", err.Error()))
	} else {
		logger.Info("notification_dispatched")
	}

	if w.logStore != nil {
		if err := w.logStore.Record(ctx, entry); err != nil {
			logger.Warn("notification_log_failed", observability.F("error", err.Error()))
		}
	}
	return nil
}
