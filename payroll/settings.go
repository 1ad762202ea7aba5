/*
Package payroll computes salary components and payroll records.

PURPOSE:
  Turns an employee's compensation and period inputs plus the process-wide
  Settings into one PayrollRecord per (employee, month, year). Everything in
  this package is a pure function of its arguments: no clocks, no ids, no
  storage.

COMPONENTS:
  settings.go   - Settings, tax brackets, defaults, validation
  rates.go      - daily / hourly / overtime rate derivation
  deductions.go - absence, insurance and progressive income tax
  additions.go  - overtime and incentive amounts
  builder.go    - composes the above into a PayrollRecord
  record.go     - PayrollRecord and its pending -> processed -> paid machine
  summary.go    - aggregation over many records

TOGGLES:
  Each enable* flag independently forces its contribution to zero. A disabled
  component is never computed, so a broken tax table does not matter while
  income tax is switched off.

SEE ALSO:
  - factory/settings.go: YAML/JSON settings documents
  - state/reducer.go: GeneratePayroll / ProcessPayroll / MarkPayrollPaid
*/
package payroll

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// MODES
// =============================================================================

type DailyRateMode string

const (
	DailyRateMonthly DailyRateMode = "monthly"
	DailyRateHourly  DailyRateMode = "hourly"
)

type IncentiveMode string

const (
	IncentivePercentage IncentiveMode = "percentage"
	IncentiveFixed      IncentiveMode = "fixed"
)

type AbsenceMode string

const (
	AbsenceDaily  AbsenceMode = "daily"
	AbsenceHourly AbsenceMode = "hourly"
)

// OvertimeMode selects between a wage-derived overtime rate and a flat one.
type OvertimeMode string

const (
	OvertimeHourly OvertimeMode = "hourly"
	OvertimeFixed  OvertimeMode = "fixed"
)

// =============================================================================
// SETTINGS
// =============================================================================

// Rates holds the numeric configuration used by every calculator.
type Rates struct {
	SocialInsuranceRate decimal.Decimal `json:"socialInsuranceRate"`
	HealthInsuranceRate decimal.Decimal `json:"healthInsuranceRate"`
	OvertimeMultiplier  decimal.Decimal `json:"overtimeMultiplier"`
	WorkingDaysPerMonth decimal.Decimal `json:"workingDaysPerMonth"`
	WorkingHoursPerDay  decimal.Decimal `json:"workingHoursPerDay"`
	DailyRateMode       DailyRateMode   `json:"dailyRateMode"`
	IncentiveMode       IncentiveMode   `json:"incentiveMode"`
}

// TaxBracket is one marginal band. An invalid Max means "no upper bound".
type TaxBracket struct {
	Min  decimal.Decimal     `json:"min"`
	Max  decimal.NullDecimal `json:"max"`
	Rate decimal.Decimal     `json:"rate"`
}

// Unbounded reports whether the bracket extends to infinity.
func (b TaxBracket) Unbounded() bool { return !b.Max.Valid }

// Width returns Max-Min for bounded brackets.
func (b TaxBracket) Width() decimal.Decimal { return b.Max.Decimal.Sub(b.Min) }

// Toggles gate individual contributions.
type Toggles struct {
	EnableSocialInsurance   bool `json:"enableSocialInsurance"`
	EnableHealthInsurance   bool `json:"enableHealthInsurance"`
	EnableIncomeTax         bool `json:"enableIncomeTax"`
	EnableAbsenceDeductions bool `json:"enableAbsenceDeductions"`
	EnableOvertime          bool `json:"enableOvertime"`
	EnableIncentives        bool `json:"enableIncentives"`
}

// Settings is the single active payroll configuration.
type Settings struct {
	Rates        Rates        `json:"rates"`
	TaxBrackets  []TaxBracket `json:"taxBrackets"`
	Toggles      Toggles      `json:"toggles"`
	AbsenceMode  AbsenceMode  `json:"absenceMode"`
	OvertimeMode OvertimeMode `json:"overtimeMode"`
}

func bound(v int64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromInt(v))
}

// DefaultSettings mirrors the out-of-the-box configuration: 22 working days
// of 8 hours, 11% social and 3% health insurance, 1.5x overtime and a seven
// band progressive tax table.
func DefaultSettings() Settings {
	return Settings{
		Rates: Rates{
			SocialInsuranceRate: generic.MustParseDecimal("0.11"),
			HealthInsuranceRate: generic.MustParseDecimal("0.03"),
			OvertimeMultiplier:  generic.MustParseDecimal("1.5"),
			WorkingDaysPerMonth: decimal.NewFromInt(22),
			WorkingHoursPerDay:  decimal.NewFromInt(8),
			DailyRateMode:       DailyRateMonthly,
			IncentiveMode:       IncentivePercentage,
		},
		TaxBrackets: DefaultTaxBrackets(),
		Toggles: Toggles{
			EnableSocialInsurance:   true,
			EnableHealthInsurance:   true,
			EnableIncomeTax:         true,
			EnableAbsenceDeductions: true,
			EnableOvertime:          true,
			EnableIncentives:        true,
		},
		AbsenceMode:  AbsenceDaily,
		OvertimeMode: OvertimeHourly,
	}
}

// DefaultTaxBrackets returns the annual income bands.
func DefaultTaxBrackets() []TaxBracket {
	return []TaxBracket{
		{Min: decimal.Zero, Max: bound(15000), Rate: decimal.Zero},
		{Min: decimal.NewFromInt(15000), Max: bound(30000), Rate: generic.MustParseDecimal("0.025")},
		{Min: decimal.NewFromInt(30000), Max: bound(45000), Rate: generic.MustParseDecimal("0.10")},
		{Min: decimal.NewFromInt(45000), Max: bound(60000), Rate: generic.MustParseDecimal("0.15")},
		{Min: decimal.NewFromInt(60000), Max: bound(200000), Rate: generic.MustParseDecimal("0.20")},
		{Min: decimal.NewFromInt(200000), Max: bound(400000), Rate: generic.MustParseDecimal("0.225")},
		{Min: decimal.NewFromInt(400000), Rate: generic.MustParseDecimal("0.25")},
	}
}

// Clone returns a copy that shares no slices with s.
func (s Settings) Clone() Settings {
	out := s
	out.TaxBrackets = append([]TaxBracket(nil), s.TaxBrackets...)
	return out
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks everything a calculation could trip over.
func (s Settings) Validate() error {
	if err := s.validateWorkingTime(); err != nil {
		return err
	}
	r := s.Rates
	for _, rate := range []struct {
		name  string
		value decimal.Decimal
	}{
		{"rates.socialInsuranceRate", r.SocialInsuranceRate},
		{"rates.healthInsuranceRate", r.HealthInsuranceRate},
		{"rates.overtimeMultiplier", r.OvertimeMultiplier},
	} {
		if rate.value.IsNegative() {
			return &generic.ConfigError{Setting: rate.name, Reason: "must not be negative"}
		}
	}
	switch r.DailyRateMode {
	case DailyRateMonthly, DailyRateHourly:
	default:
		return &generic.ConfigError{Setting: "rates.dailyRateMode", Reason: fmt.Sprintf("unknown mode %q", r.DailyRateMode)}
	}
	switch r.IncentiveMode {
	case IncentivePercentage, IncentiveFixed:
	default:
		return &generic.ConfigError{Setting: "rates.incentiveMode", Reason: fmt.Sprintf("unknown mode %q", r.IncentiveMode)}
	}
	switch s.AbsenceMode {
	case AbsenceDaily, AbsenceHourly:
	default:
		return &generic.ConfigError{Setting: "absenceMode", Reason: fmt.Sprintf("unknown mode %q", s.AbsenceMode)}
	}
	switch s.OvertimeMode {
	case OvertimeHourly, OvertimeFixed:
	default:
		return &generic.ConfigError{Setting: "overtimeMode", Reason: fmt.Sprintf("unknown mode %q", s.OvertimeMode)}
	}
	return ValidateBrackets(s.TaxBrackets)
}

func (s Settings) validateWorkingTime() error {
	if !s.Rates.WorkingDaysPerMonth.IsPositive() {
		return &generic.ConfigError{Setting: "rates.workingDaysPerMonth", Reason: "must be greater than zero"}
	}
	if !s.Rates.WorkingHoursPerDay.IsPositive() {
		return &generic.ConfigError{Setting: "rates.workingHoursPerDay", Reason: "must be greater than zero"}
	}
	return nil
}

// ValidateBrackets requires ascending, contiguous brackets covering [0, inf).
func ValidateBrackets(brackets []TaxBracket) error {
	if len(brackets) == 0 {
		return &generic.ConfigError{Setting: "taxBrackets", Reason: "must not be empty"}
	}
	if !brackets[0].Min.IsZero() {
		return &generic.ConfigError{Setting: "taxBrackets[0].min", Reason: "must start at 0"}
	}
	last := len(brackets) - 1
	for i, b := range brackets {
		field := fmt.Sprintf("taxBrackets[%d]", i)
		if b.Rate.IsNegative() || b.Rate.GreaterThan(decimal.NewFromInt(1)) {
			return &generic.ConfigError{Setting: field + ".rate", Reason: "must be between 0 and 1"}
		}
		if b.Unbounded() {
			if i != last {
				return &generic.ConfigError{Setting: field + ".max", Reason: "only the last bracket may be unbounded"}
			}
		} else if !b.Max.Decimal.GreaterThan(b.Min) {
			return &generic.ConfigError{Setting: field + ".max", Reason: "must be greater than min"}
		}
		if i > 0 {
			prev := brackets[i-1]
			switch {
			case b.Min.GreaterThan(prev.Max.Decimal):
				return &generic.ConfigError{Setting: field + ".min", Reason: "leaves a gap after the previous bracket"}
			case b.Min.LessThan(prev.Max.Decimal):
				return &generic.ConfigError{Setting: field + ".min", Reason: "overlaps the previous bracket"}
			}
		}
	}
	if !brackets[last].Unbounded() {
		return &generic.ConfigError{Setting: fmt.Sprintf("taxBrackets[%d].max", last), Reason: "last bracket must be unbounded"}
	}
	return nil
}
