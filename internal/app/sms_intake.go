package app

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/HashGen/MonetizeGram/internal/domain"
)

// HandleSMSDelivery processes one message from the SMS inbox queue and reports
// whether it should be acknowledged. Only lookups that never reached the store
// are retried; once an intent is consumed, redelivery could not help and the
// admin has already been alerted. Settlement runs detached from the consumer's
// shutdown signal so a consumed intent is always carried through.
func (r *Reconciler) HandleSMSDelivery(ctx context.Context, body []byte) bool {
	ctx = context.WithoutCancel(ctx)

	var msg domain.SMSReceivedMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		r.logger.Warn("dropping malformed sms delivery", "error", err)
		return true
	}
	if strings.TrimSpace(msg.Text) == "" {
		r.logger.Warn("dropping sms delivery without text", "source", msg.Source)
		return true
	}

	_, err := r.ReconcileSMS(ctx, msg.Text)
	switch {
	case err == nil, errors.Is(err, ErrNoAmountInSignal), errors.Is(err, ErrNoMatchingIntent):
		return true
	case errors.Is(err, ErrIntentLookupFailed):
		r.logger.Error("sms reconciliation will be retried", "source", msg.Source, "error", err)
		return false
	default:
		r.logger.Error("sms reconciliation failed after consume", "source", msg.Source, "error", err)
		return true
	}
}
