package registry

import (
	"fmt"
	"strconv"
)

// monthNames holds the nominative lowercase month names used in registry
// labels, folder names and file names.
var monthNames = [12]string{
	"январь", "февраль", "март", "апрель", "май", "июнь",
	"июль", "август", "сентябрь", "октябрь", "ноябрь", "декабрь",
}

// Period identifies a billing month.
type Period struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

// NewPeriod builds a validated period.
func NewPeriod(month, year int) (Period, error) {
	p := Period{Month: month, Year: year}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

// Year bounds accepted from operators.
const (
	MinInputYear = 2000
	MaxInputYear = 2100
)

// NewInputPeriod is NewPeriod restricted to the operator-facing year range.
func NewInputPeriod(month, year int) (Period, error) {
	if year < MinInputYear || year > MaxInputYear {
		return Period{}, fmt.Errorf("%w: year %d outside %d..%d", ErrInvalidPeriod, year, MinInputYear, MaxInputYear)
	}
	return NewPeriod(month, year)
}

// Validate checks that the month is within 1..12 and the year is positive.
func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return fmt.Errorf("%w: month %d", ErrInvalidPeriod, p.Month)
	}
	if p.Year <= 0 {
		return fmt.Errorf("%w: year %d", ErrInvalidPeriod, p.Year)
	}
	return nil
}

// Previous returns the billing month before p, rolling over the year in January.
func (p Period) Previous() Period {
	if p.Month == 1 {
		return Period{Month: 12, Year: p.Year - 1}
	}
	return Period{Month: p.Month - 1, Year: p.Year}
}

// MonthName returns the lowercase month name, or "месяц N" outside 1..12.
func (p Period) MonthName() string {
	return MonthName(p.Month)
}

// Label renders the period line of a registry, e.g. "за март 2024 г.".
func (p Period) Label() string {
	return fmt.Sprintf("за %s %d г.", p.MonthName(), p.Year)
}

// String renders the period as YYYY-MM.
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// MonthName maps a month number to its lowercase name.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return "месяц " + strconv.Itoa(month)
	}
	return monthNames[month-1]
}
