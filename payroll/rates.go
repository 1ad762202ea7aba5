package payroll

import (
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// RATE ENGINE - salary normalized per day / per hour
// =============================================================================

// DailyRate returns basicSalary/workingDaysPerMonth in monthly mode and the
// hourly rate in hourly mode.
func DailyRate(basicSalary decimal.Decimal, s Settings) (decimal.Decimal, error) {
	if err := generic.RequireNonNegative("basicSalary", basicSalary); err != nil {
		return decimal.Zero, err
	}
	if err := s.validateWorkingTime(); err != nil {
		return decimal.Zero, err
	}
	perDay := basicSalary.Div(s.Rates.WorkingDaysPerMonth)
	switch s.Rates.DailyRateMode {
	case DailyRateMonthly:
		return perDay, nil
	case DailyRateHourly:
		return perDay.Div(s.Rates.WorkingHoursPerDay), nil
	default:
		return decimal.Zero, &generic.ConfigError{Setting: "rates.dailyRateMode", Reason: "unknown mode " + string(s.Rates.DailyRateMode)}
	}
}

// HourlyRate is (basicSalary/workingDaysPerMonth)/workingHoursPerDay,
// independent of DailyRateMode.
func HourlyRate(basicSalary decimal.Decimal, s Settings) (decimal.Decimal, error) {
	if err := generic.RequireNonNegative("basicSalary", basicSalary); err != nil {
		return decimal.Zero, err
	}
	if err := s.validateWorkingTime(); err != nil {
		return decimal.Zero, err
	}
	return basicSalary.Div(s.Rates.WorkingDaysPerMonth).Div(s.Rates.WorkingHoursPerDay), nil
}

// OvertimeRate is HourlyRate * overtimeMultiplier.
func OvertimeRate(basicSalary decimal.Decimal, s Settings) (decimal.Decimal, error) {
	hourly, err := HourlyRate(basicSalary, s)
	if err != nil {
		return decimal.Zero, err
	}
	if s.Rates.OvertimeMultiplier.IsNegative() {
		return decimal.Zero, &generic.ConfigError{Setting: "rates.overtimeMultiplier", Reason: "must not be negative"}
	}
	return hourly.Mul(s.Rates.OvertimeMultiplier), nil
}
