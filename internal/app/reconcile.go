/**
 * @description
 * Reconciliation engine. Turns an inbound payment signal (a bank SMS or an
 * amount typed by the admin) into at most one consumed pending payment and
 * hands it to settlement.
 */
package app

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"regexp"

	"github.com/HashGen/MonetizeGram/internal/domain"
	"github.com/HashGen/MonetizeGram/internal/store"
)

// Method tags how a payment was confirmed. It is stored on the transaction.
type Method string

const (
	MethodAutomatic Method = "Automatic (SMS)"
	MethodManual    Method = "Manual (Admin)"
)

var (
	currencyAmountPattern = regexp.MustCompile(`(?i)(?:\bRs\.?|₹|\bINR)\s*([\d,]+\.\d{2})`)
	bareAmountPattern     = regexp.MustCompile(`(\d+\.\d{2})`)
)

// ExtractAmount finds the first currency-prefixed amount in free text, such as
// "Rs.100.37", "₹ 1,250.00" or "INR 99.01".
func ExtractAmount(text string) (int64, bool) {
	return firstAmount(currencyAmountPattern, text)
}

// ExtractManualAmount finds the first "<digits>.<2 digits>" in an admin message.
func ExtractManualAmount(text string) (int64, bool) {
	return firstAmount(bareAmountPattern, text)
}

func firstAmount(pattern *regexp.Regexp, text string) (int64, bool) {
	m := pattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return 0, false
	}
	amount, err := domain.ParseAmount(m[1])
	if err != nil || amount <= 0 {
		return 0, false
	}
	return amount, true
}

// IntentConsumer atomically removes a live pending payment by amount.
type IntentConsumer interface {
	ConsumePendingPayment(ctx context.Context, amount int64) (*domain.PendingPayment, error)
}

// Settler runs the settlement procedure for a consumed intent.
type Settler interface {
	Settle(ctx context.Context, intent *domain.PendingPayment, method Method) (*SettlementResult, error)
}

// Reconciler matches payment signals to pending payments.
type Reconciler struct {
	intents  IntentConsumer
	settler  Settler
	notifier *Notifier
	logger   *slog.Logger
	metrics  *Metrics
}

func NewReconciler(intents IntentConsumer, settler Settler, notifier *Notifier, logger *slog.Logger, metrics *Metrics) *Reconciler {
	return &Reconciler{
		intents:  intents,
		settler:  settler,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics,
	}
}

// ReconcileSMS forwards a raw SMS to the admin for the audit trail and then
// tries to settle the amount it carries.
func (r *Reconciler) ReconcileSMS(ctx context.Context, text string) (*SettlementResult, error) {
	r.notifier.Admin(ctx, "🤖 <b>Automated SMS Received</b>\n\n<pre>"+html.EscapeString(text)+"</pre>")
	return r.ReconcileText(ctx, text)
}

// ReconcileText extracts a currency amount from free text and settles it as an
// automatic confirmation. Text with no amount returns ErrNoAmountInSignal.
func (r *Reconciler) ReconcileText(ctx context.Context, text string) (*SettlementResult, error) {
	amount, ok := ExtractAmount(text)
	if !ok {
		r.metrics.incReconciliation(MethodAutomatic, "no_amount")
		r.logger.Debug("payment signal carried no currency amount")
		return nil, ErrNoAmountInSignal
	}
	return r.ReconcileAmount(ctx, amount, MethodAutomatic)
}

// ReconcileAmount consumes the intent holding amount and settles it. Only one
// caller can ever consume a given intent; everyone else gets ErrNoMatchingIntent.
func (r *Reconciler) ReconcileAmount(ctx context.Context, amount int64, method Method) (*SettlementResult, error) {
	intent, err := r.intents.ConsumePendingPayment(ctx, amount)
	if errors.Is(err, store.ErrPendingPaymentNotFound) {
		r.metrics.incReconciliation(method, "no_match")
		if method == MethodManual {
			r.notifier.Admin(ctx, fmt.Sprintf("❌ <b>Verification Failed</b>\nNo pending payment found for amount ₹%s", domain.FormatPaise(amount)))
		} else {
			r.logger.Info("no pending payment for signal amount", "amount", domain.FormatPaise(amount), "method", string(method))
		}
		return nil, ErrNoMatchingIntent
	}
	if err != nil {
		r.metrics.incReconciliation(method, "error")
		return nil, fmt.Errorf("%w: amount %s: %w", ErrIntentLookupFailed, domain.FormatPaise(amount), err)
	}

	r.metrics.incReconciliation(method, "matched")
	r.logger.Info("pending payment matched", "amount", domain.FormatPaise(amount), "method", string(method), "subscriber_id", intent.SubscriberID, "channel_id", intent.ChannelID)
	return r.settler.Settle(ctx, intent, method)
}
