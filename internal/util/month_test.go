package util

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestClampDayToMonth_February(t *testing.T) {
	// Day 31 in non-leap February clamps to Feb 28
	result := ClampDayToMonth(2026, time.February, 31)
	expected := time.Date(2026, time.February, 28, 0, 0, 0, 0, time.UTC)
	if !result.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, result)
	}
}

func TestClampDayToMonth_LeapFebruary(t *testing.T) {
	result := ClampDayToMonth(2028, time.February, 30)
	expected := time.Date(2028, time.February, 29, 0, 0, 0, 0, time.UTC)
	if !result.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, result)
	}
}

func TestClampDayToMonth_NormalDay(t *testing.T) {
	result := ClampDayToMonth(2026, time.April, 15)
	expected := time.Date(2026, time.April, 15, 0, 0, 0, 0, time.UTC)
	if !result.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, result)
	}
}

func TestClampDayToMonth_ThirtyOneInApril(t *testing.T) {
	result := ClampDayToMonth(2026, time.April, 31)
	if result.Day() != 30 {
		t.Errorf("Expected day 30, got %d", result.Day())
	}
}

func TestMonthsBetween(t *testing.T) {
	a := time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)
	b := time.Date(2026, time.April, 3, 0, 0, 0, 0, time.UTC)
	if got := MonthsBetween(a, b); got != 3 {
		t.Errorf("Expected 3, got %d", got)
	}
	if got := MonthsBetween(b, a); got != -3 {
		t.Errorf("Expected -3, got %d", got)
	}
}

func TestMonthsBetween_YearBoundary(t *testing.T) {
	a := time.Date(2025, time.November, 1, 0, 0, 0, 0, time.UTC)
	b := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	if got := MonthsBetween(a, b); got != 3 {
		t.Errorf("Expected 3, got %d", got)
	}
}

func TestEndOfMonth(t *testing.T) {
	result := EndOfMonth(time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC))
	if result.Day() != 28 {
		t.Errorf("Expected 28, got %d", result.Day())
	}
}

func TestPreviousMonth_YearBoundary(t *testing.T) {
	result := PreviousMonth(time.Date(2026, time.January, 20, 0, 0, 0, 0, time.UTC))
	expected := time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC)
	if !result.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, result)
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"950", "950"},
		{"1500", "1,500"},
		{"14800.49", "14,800"},
		{"-14800", "-14,800"},
		{"1234567", "1,234,567"},
	}

	for _, tt := range tests {
		d, _ := decimal.NewFromString(tt.in)
		if got := FormatAmount(d); got != tt.want {
			t.Errorf("FormatAmount(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestHebrewMonth(t *testing.T) {
	if HebrewMonth(time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)) != "מרץ" {
		t.Error("Expected March to map to מרץ")
	}
}
