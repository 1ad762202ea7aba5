package payroll

import (
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// ADDITION CALCULATOR
// =============================================================================

// OvertimeAmount prices overtime hours.
//
// Hourly mode derives the rate from the salary (OvertimeRate). Fixed mode
// uses the multiplier itself as a flat amount per hour, so the same
// multiplier gives very different magnitudes in the two modes.
func OvertimeAmount(basicSalary, hours decimal.Decimal, s Settings) (decimal.Decimal, error) {
	if err := generic.RequireNonNegative("basicSalary", basicSalary); err != nil {
		return decimal.Zero, err
	}
	if err := generic.RequireNonNegative("overtimeHours", hours); err != nil {
		return decimal.Zero, err
	}
	if !s.Toggles.EnableOvertime {
		return decimal.Zero, nil
	}
	switch s.OvertimeMode {
	case OvertimeHourly:
		rate, err := OvertimeRate(basicSalary, s)
		if err != nil {
			return decimal.Zero, err
		}
		return hours.Mul(rate), nil
	case OvertimeFixed:
		return hours.Mul(s.Rates.OvertimeMultiplier), nil
	default:
		return decimal.Zero, &generic.ConfigError{Setting: "overtimeMode", Reason: "unknown mode " + string(s.OvertimeMode)}
	}
}

// IncentiveAmount interprets raw as percentage points of basicSalary in
// percentage mode (5 means 5%) and as an amount in fixed mode.
func IncentiveAmount(basicSalary, raw decimal.Decimal, s Settings) (decimal.Decimal, error) {
	if err := generic.RequireNonNegative("basicSalary", basicSalary); err != nil {
		return decimal.Zero, err
	}
	if err := generic.RequireNonNegative("monthlyIncentives", raw); err != nil {
		return decimal.Zero, err
	}
	if !s.Toggles.EnableIncentives {
		return decimal.Zero, nil
	}
	switch s.Rates.IncentiveMode {
	case IncentivePercentage:
		return basicSalary.Mul(raw).Div(generic.Percent), nil
	case IncentiveFixed:
		return raw, nil
	default:
		return decimal.Zero, &generic.ConfigError{Setting: "rates.incentiveMode", Reason: "unknown mode " + string(s.Rates.IncentiveMode)}
	}
}
