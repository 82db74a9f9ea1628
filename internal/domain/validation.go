package domain

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidPayoutAddress is returned for a UPI id that cannot be a payout destination.
var ErrInvalidPayoutAddress = errors.New("invalid payout address")

var validate = validator.New()

// ValidatePlan checks the bounds of a single plan.
func ValidatePlan(p Plan) error {
	return validate.Struct(p)
}

// NormalizePayoutAddress trims and validates a UPI id ("name@bank").
func NormalizePayoutAddress(raw string) (string, error) {
	upi := strings.TrimSpace(raw)
	if strings.ContainsAny(upi, " \t\r\n") {
		return "", ErrInvalidPayoutAddress
	}
	if err := validate.Var(upi, "required,min=3,max=64,contains=@"); err != nil {
		return "", ErrInvalidPayoutAddress
	}
	return upi, nil
}

// ValidateStruct exposes struct tag validation to the transport layers.
func ValidateStruct(v interface{}) error {
	return validate.Struct(v)
}

// ErrInvalidReportReason is returned for an empty or oversized complaint.
var ErrInvalidReportReason = errors.New("invalid report reason")

// NormalizeReportReason trims a complaint and checks its length.
func NormalizeReportReason(raw string) (string, error) {
	reason := strings.TrimSpace(raw)
	if err := validate.Var(reason, "required,max=1000"); err != nil {
		return "", ErrInvalidReportReason
	}
	return reason, nil
}
