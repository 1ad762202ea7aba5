package payroll

import (
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// DEDUCTION CALCULATOR
// =============================================================================

// AbsenceDeduction prices absence days. Daily mode uses DailyRate (which is
// itself mode dependent); hourly mode charges workingHoursPerDay hours per
// absent day at the hourly rate.
func AbsenceDeduction(basicSalary, absenceDays decimal.Decimal, s Settings) (decimal.Decimal, error) {
	if err := generic.RequireNonNegative("basicSalary", basicSalary); err != nil {
		return decimal.Zero, err
	}
	if err := generic.RequireNonNegative("absenceDays", absenceDays); err != nil {
		return decimal.Zero, err
	}
	if !s.Toggles.EnableAbsenceDeductions {
		return decimal.Zero, nil
	}
	switch s.AbsenceMode {
	case AbsenceDaily:
		daily, err := DailyRate(basicSalary, s)
		if err != nil {
			return decimal.Zero, err
		}
		return absenceDays.Mul(daily), nil
	case AbsenceHourly:
		hourly, err := HourlyRate(basicSalary, s)
		if err != nil {
			return decimal.Zero, err
		}
		return absenceDays.Mul(s.Rates.WorkingHoursPerDay).Mul(hourly), nil
	default:
		return decimal.Zero, &generic.ConfigError{Setting: "absenceMode", Reason: "unknown mode " + string(s.AbsenceMode)}
	}
}

// SocialInsurance is basicSalary * socialInsuranceRate when enabled.
func SocialInsurance(basicSalary decimal.Decimal, s Settings) (decimal.Decimal, error) {
	return insurance("basicSalary", basicSalary, s.Rates.SocialInsuranceRate, s.Toggles.EnableSocialInsurance)
}

// HealthInsurance is basicSalary * healthInsuranceRate when enabled.
func HealthInsurance(basicSalary decimal.Decimal, s Settings) (decimal.Decimal, error) {
	return insurance("basicSalary", basicSalary, s.Rates.HealthInsuranceRate, s.Toggles.EnableHealthInsurance)
}

func insurance(field string, basicSalary, rate decimal.Decimal, enabled bool) (decimal.Decimal, error) {
	if err := generic.RequireNonNegative(field, basicSalary); err != nil {
		return decimal.Zero, err
	}
	if !enabled {
		return decimal.Zero, nil
	}
	return basicSalary.Mul(rate), nil
}

// IncomeTax returns the MONTHLY tax owed on annualSalary, or zero when
// income tax is disabled.
func IncomeTax(annualSalary decimal.Decimal, s Settings) (decimal.Decimal, error) {
	if err := generic.RequireNonNegative("annualSalary", annualSalary); err != nil {
		return decimal.Zero, err
	}
	if !s.Toggles.EnableIncomeTax {
		return decimal.Zero, nil
	}
	annual, err := TaxForBrackets(annualSalary, s.TaxBrackets)
	if err != nil {
		return decimal.Zero, err
	}
	return annual.Div(generic.MonthsPerYear), nil
}

// TaxForBrackets walks the brackets in ascending order and returns the
// ANNUAL tax on annualSalary.
func TaxForBrackets(annualSalary decimal.Decimal, brackets []TaxBracket) (decimal.Decimal, error) {
	if err := generic.RequireNonNegative("annualSalary", annualSalary); err != nil {
		return decimal.Zero, err
	}
	if err := ValidateBrackets(brackets); err != nil {
		return decimal.Zero, err
	}

	tax := decimal.Zero
	remaining := annualSalary
	for _, b := range brackets {
		if !remaining.IsPositive() {
			break
		}
		taxable := remaining
		if !b.Unbounded() {
			taxable = decimal.Min(remaining, b.Width())
		}
		tax = tax.Add(taxable.Mul(b.Rate))
		remaining = remaining.Sub(taxable)
	}
	return tax, nil
}
