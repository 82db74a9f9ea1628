package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidPlanFormat is returned when any non-blank line of a plan batch does not parse.
var ErrInvalidPlanFormat = errors.New("invalid plan format")

var planLinePattern = regexp.MustCompile(`(?i)(\d+)\s+days?\s+(\d+)\s+rs?`)

// Plan is a subscription offer embedded in a channel.
type Plan struct {
	Days  int   `json:"days" validate:"gte=1,lte=3650"`
	Price int64 `json:"price" validate:"gte=100"` // in paise, whole rupees only
}

// String renders the plan in the owner-facing text format ("30 days 100 rs").
func (p Plan) String() string {
	return fmt.Sprintf("%d days %d rs", p.Days, p.Price/100)
}

// ParsePlans parses one plan per line. Blank lines are skipped; any other line that
// does not match, or yields an invalid plan, rejects the whole batch.
func ParsePlans(text string) ([]Plan, error) {
	var plans []Plan
	for i, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		m := planLinePattern.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("%w: line %d", ErrInvalidPlanFormat, i+1)
		}
		days, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d", ErrInvalidPlanFormat, i+1)
		}
		rupees, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil || rupees > 10_000_000 {
			return nil, fmt.Errorf("%w: line %d", ErrInvalidPlanFormat, i+1)
		}
		plan := Plan{Days: days, Price: RupeesToPaise(rupees)}
		if err := ValidatePlan(plan); err != nil {
			return nil, fmt.Errorf("%w: line %d", ErrInvalidPlanFormat, i+1)
		}
		plans = append(plans, plan)
	}
	if len(plans) == 0 {
		return nil, ErrInvalidPlanFormat
	}
	return plans, nil
}

// FormatPlans is the inverse of ParsePlans.
func FormatPlans(plans []Plan) string {
	lines := make([]string, 0, len(plans))
	for _, p := range plans {
		lines = append(lines, p.String())
	}
	return strings.Join(lines, "\n")
}
