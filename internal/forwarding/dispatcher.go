package forwarding

import (
	"context"
	"time"

	"github.com/google/uuid"

	"kurir/internal/activity"
	"kurir/internal/delivery"
	"kurir/internal/logger"
	"kurir/internal/rules"
	pkgerrors "kurir/pkg/errors"
	"kurir/pkg/metrics"
	"kurir/pkg/models"
)

const noActiveRuleError = "no active rule for source"

const (
	reasonNoActiveRule = "no_active_rule"
	reasonDelivery     = "delivery_error"
	reasonPanic        = "panic"
)

// Dispatcher runs one inbound message through match, extract, render and
// deliver, and appends exactly one activity log entry per attempt. Every
// dispatch is independent; failures are terminal for that message and are
// never retried automatically.
type Dispatcher struct {
	rules           *rules.Store
	activityLog     *activity.Log
	deliverer       delivery.Deliverer
	deliveryTimeout time.Duration
	logger          logger.Logger
}

func NewDispatcher(store *rules.Store, log *activity.Log, deliverer delivery.Deliverer, deliveryTimeout time.Duration, logr logger.Logger) *Dispatcher {
	return &Dispatcher{
		rules:           store,
		activityLog:     log,
		deliverer:       deliverer,
		deliveryTimeout: deliveryTimeout,
		logger:          logr,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, msg models.InboundMessage) activity.LogEntry {
	start := time.Now()

	entry := d.process(ctx, msg)
	d.activityLog.Append(ctx, entry)

	status := string(entry.Status)
	metrics.DispatchesTotal.WithLabelValues(status).Inc()
	metrics.ObserveDispatchDuration(time.Since(start), status)

	if entry.Status == activity.StatusFailed {
		d.logger.WarnwCtx(ctx, "Dispatch failed",
			"source", msg.Source,
			"error", entry.Error,
		)
	} else {
		d.logger.InfowCtx(ctx, "Message forwarded",
			"source", msg.Source,
		)
	}

	return entry
}

func (d *Dispatcher) process(ctx context.Context, msg models.InboundMessage) (entry activity.LogEntry) {
	entry = activity.LogEntry{
		ID:              uuid.New().String(),
		Timestamp:       time.Now(),
		Source:          msg.Source,
		OriginalMessage: msg.Message,
		Status:          activity.StatusFailed,
	}

	// Every attempt must end up in the log, a panic included.
	defer func() {
		if r := recover(); r != nil {
			err := pkgerrors.RecoverPanic(r)
			entry.Status = activity.StatusFailed
			entry.TransformedMessage = ""
			entry.Error = err.Error()
			metrics.DispatchFailuresTotal.WithLabelValues(reasonPanic).Inc()
			d.logger.ErrorwCtx(ctx, "Panic recovered during dispatch",
				"error", err,
				"source", msg.Source,
			)
		}
	}()

	rule, ok := d.rules.Match(msg.Source)
	if !ok {
		entry.Error = noActiveRuleError
		metrics.DispatchFailuresTotal.WithLabelValues(reasonNoActiveRule).Inc()
		return entry
	}

	fields := Extract(msg.Message, rule.FieldPatterns)
	rendered := Render(rule.OutputTemplate, fields)

	deliverCtx, cancel := context.WithTimeout(ctx, d.deliveryTimeout)
	defer cancel()

	if err := d.deliverer.Deliver(deliverCtx, rule.TargetBot, rendered); err != nil {
		entry.Error = err.Error()
		metrics.DispatchFailuresTotal.WithLabelValues(reasonDelivery).Inc()
		return entry
	}

	entry.Status = activity.StatusSuccess
	entry.TransformedMessage = rendered
	return entry
}

// Preview runs extraction and rendering only, with no delivery and no log
// entry. The admin UI uses it to try a rule against a sample message.
func (d *Dispatcher) Preview(message string, rule rules.Rule) (Fields, string) {
	fields := Extract(message, rule.FieldPatterns)
	return fields, Render(rule.OutputTemplate, fields)
}
