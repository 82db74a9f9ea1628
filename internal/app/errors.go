package app

import "errors"

var (
	ErrAllocationExhausted    = errors.New("no unique amount available for this price")
	ErrNoMatchingIntent       = errors.New("no pending payment matches this amount")
	ErrReferenceNotFound      = errors.New("channel or owner referenced by the payment no longer exists")
	ErrBelowMinimumWithdrawal = errors.New("wallet balance is below the minimum withdrawal amount")
	ErrNotAdmin               = errors.New("sender is not the platform admin")
	ErrRateLimited            = errors.New("too many requests")
	ErrInvalidStartKey        = errors.New("start key does not match any channel")
	ErrPlanUnavailable        = errors.New("plan is no longer offered for this channel")
	ErrBotNotChannelAdmin     = errors.New("bot is not an administrator of the channel")
	ErrNoAmountInSignal       = errors.New("no currency amount found in text")

	// ErrIntentLookupFailed means the store could not be asked for a match, so
	// nothing was consumed and the signal can safely be retried.
	ErrIntentLookupFailed = errors.New("pending payment lookup failed")
)
