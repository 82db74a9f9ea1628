package domain

import (
	"errors"
	"testing"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{input: "100.37", want: 10037},
		{input: "1,250.50", want: 125050},
		{input: " 99.01 ", want: 9901},
		{input: "100", want: 10000},
		{input: "100.370", want: 10037},
		{input: "100.375", wantErr: true},
		{input: "", wantErr: true},
		{input: "abc", wantErr: true},
		{input: "-5.00", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAmount) {
					t.Fatalf("expected ErrInvalidAmount, got %v (value %d)", err, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestFormatPaise(t *testing.T) {
	tests := map[int64]string{
		10037: "100.37",
		10000: "100.00",
		5:     "0.05",
		0:     "0.00",
	}
	for in, want := range tests {
		if got := FormatPaise(in); got != want {
			t.Fatalf("FormatPaise(%d): expected %q, got %q", in, want, got)
		}
	}
}

func TestSplitCommissionConservesGross(t *testing.T) {
	tests := []struct {
		price          int64
		percent        float64
		wantCommission int64
	}{
		{price: 10000, percent: 10, wantCommission: 1000},
		{price: 9900, percent: 7.5, wantCommission: 743},
		{price: 10000, percent: 0, wantCommission: 0},
		{price: 10000, percent: 100, wantCommission: 10000},
		{price: 333, percent: 33.3333, wantCommission: 111},
	}

	for _, tt := range tests {
		commission, net := SplitCommission(tt.price, tt.percent)
		if commission != tt.wantCommission {
			t.Fatalf("price %d at %.4f%%: expected commission %d, got %d", tt.price, tt.percent, tt.wantCommission, commission)
		}
		if commission+net != tt.price {
			t.Fatalf("expected commission+net to equal %d, got %d+%d", tt.price, commission, net)
		}
	}
}
