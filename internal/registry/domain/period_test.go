package registry

import (
	"errors"
	"testing"
)

func TestPeriodPreviousRollsOverYear(t *testing.T) {
	for _, year := range []int{2000, 2024, 2100} {
		got := Period{Month: 1, Year: year}.Previous()
		if got.Month != 12 || got.Year != year-1 {
			t.Fatalf("expected 12/%d, got %d/%d", year-1, got.Month, got.Year)
		}
	}
}

func TestPeriodPreviousWithinYear(t *testing.T) {
	for month := 2; month <= 12; month++ {
		got := Period{Month: month, Year: 2024}.Previous()
		if got.Month != month-1 || got.Year != 2024 {
			t.Fatalf("month %d: expected %d/2024, got %d/%d", month, month-1, got.Month, got.Year)
		}
	}
}

func TestNewPeriodRejectsOutOfRange(t *testing.T) {
	if _, err := NewPeriod(13, 2024); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
	if _, err := NewPeriod(0, 2024); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
	p, err := NewPeriod(3, 2024)
	if err != nil {
		t.Fatalf("new period: %v", err)
	}
	if p.String() != "2024-03" {
		t.Fatalf("unexpected string %q", p.String())
	}
}

func TestPeriodLabel(t *testing.T) {
	p := Period{Month: 3, Year: 2024}
	if p.Label() != "за март 2024 г." {
		t.Fatalf("unexpected label %q", p.Label())
	}
	if MonthName(12) != "декабрь" {
		t.Fatalf("unexpected december name %q", MonthName(12))
	}
	if MonthName(13) != "месяц 13" {
		t.Fatalf("unexpected fallback %q", MonthName(13))
	}
}

func TestNewInputPeriodBounds(t *testing.T) {
	if _, err := NewInputPeriod(3, 2024); err != nil {
		t.Fatalf("expected valid period, got %v", err)
	}
	for _, tc := range []struct{ month, year int }{{3, 1999}, {3, 2101}, {0, 2024}, {13, 2024}} {
		if _, err := NewInputPeriod(tc.month, tc.year); !errors.Is(err, ErrInvalidPeriod) {
			t.Fatalf("%d/%d: expected ErrInvalidPeriod, got %v", tc.month, tc.year, err)
		}
	}
}
