/*
Package factory converts payroll settings documents to payroll.Settings.

PURPOSE:
  Payroll configuration lives outside the code: a YAML (or JSON, which is
  valid YAML) file read at startup, or a document posted to the settings
  endpoint. The factory decodes it, lays it over a base configuration and
  validates the result.

DOCUMENT SCHEMA:
  rates:
    social_insurance_rate: 0.11
    health_insurance_rate: 0.03
    overtime_multiplier: 1.5
    working_days_per_month: 22
    working_hours_per_day: 8
    daily_rate_mode: monthly        # monthly | hourly
    incentive_mode: percentage      # percentage | fixed
  tax_brackets:
    - {min: 0, max: 15000, rate: 0}
    - {min: 15000, max: null, rate: 0.025}   # null or omitted max = no bound
  toggles:
    enable_income_tax: true
  absence_mode: daily               # daily | hourly
  overtime_mode: hourly             # hourly | fixed

  Every key is optional. Omitted keys keep the base value; a tax_brackets
  list replaces the whole table.

NUMBERS:
  Numbers are read from their literal text straight into decimals, so 0.11
  stays exactly 0.11.

USAGE:
  s, err := factory.ParseSettings(data)              // over the defaults
  s, err := factory.MergeSettings(current, patch)    // over current settings

SEE ALSO:
  - payroll/settings.go: Settings, DefaultSettings, Validate
  - cmd/server/main.go: loads SETTINGS_FILE at startup
*/
package factory

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// DOCUMENT TYPES
// =============================================================================

// Number is a decimal read from a YAML scalar without going through float64.
type Number struct {
	decimal.Decimal
}

func (n *Number) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a number", node.Line)
	}
	d, err := decimal.NewFromString(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %q is not a number", node.Line, node.Value)
	}
	n.Decimal = d
	return nil
}

func (n Number) MarshalYAML() (any, error) {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: n.String()}, nil
}

type SettingsDoc struct {
	Rates        *RatesDoc    `yaml:"rates,omitempty"`
	TaxBrackets  []BracketDoc `yaml:"tax_brackets,omitempty"`
	Toggles      *TogglesDoc  `yaml:"toggles,omitempty"`
	AbsenceMode  *string      `yaml:"absence_mode,omitempty"`
	OvertimeMode *string      `yaml:"overtime_mode,omitempty"`
}

type RatesDoc struct {
	SocialInsuranceRate *Number `yaml:"social_insurance_rate,omitempty"`
	HealthInsuranceRate *Number `yaml:"health_insurance_rate,omitempty"`
	OvertimeMultiplier  *Number `yaml:"overtime_multiplier,omitempty"`
	WorkingDaysPerMonth *Number `yaml:"working_days_per_month,omitempty"`
	WorkingHoursPerDay  *Number `yaml:"working_hours_per_day,omitempty"`
	DailyRateMode       *string `yaml:"daily_rate_mode,omitempty"`
	IncentiveMode       *string `yaml:"incentive_mode,omitempty"`
}

type BracketDoc struct {
	Min  Number  `yaml:"min"`
	Max  *Number `yaml:"max"`
	Rate Number  `yaml:"rate"`
}

type TogglesDoc struct {
	EnableSocialInsurance   *bool `yaml:"enable_social_insurance,omitempty"`
	EnableHealthInsurance   *bool `yaml:"enable_health_insurance,omitempty"`
	EnableIncomeTax         *bool `yaml:"enable_income_tax,omitempty"`
	EnableAbsenceDeductions *bool `yaml:"enable_absence_deductions,omitempty"`
	EnableOvertime          *bool `yaml:"enable_overtime,omitempty"`
	EnableIncentives        *bool `yaml:"enable_incentives,omitempty"`
}

// =============================================================================
// PARSING
// =============================================================================

// ParseSettings reads a settings document over the default settings.
func ParseSettings(data []byte) (payroll.Settings, error) {
	return MergeSettings(payroll.DefaultSettings(), data)
}

// MergeSettings lays the document over base and validates the result. base
// is not modified.
func MergeSettings(base payroll.Settings, data []byte) (payroll.Settings, error) {
	doc, err := Decode(data)
	if err != nil {
		return base, err
	}
	merged := doc.Apply(base)
	if err := merged.Validate(); err != nil {
		return base, err
	}
	return merged, nil
}

// Decode parses a document. Unknown keys are rejected so a typo never
// silently falls back to a default.
func Decode(data []byte) (SettingsDoc, error) {
	var doc SettingsDoc
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return SettingsDoc{}, &generic.ConfigError{Setting: "document", Reason: err.Error()}
	}
	return doc, nil
}

// Apply returns base with every key present in the document replaced.
func (d SettingsDoc) Apply(base payroll.Settings) payroll.Settings {
	s := base.Clone()
	if r := d.Rates; r != nil {
		setNumber(&s.Rates.SocialInsuranceRate, r.SocialInsuranceRate)
		setNumber(&s.Rates.HealthInsuranceRate, r.HealthInsuranceRate)
		setNumber(&s.Rates.OvertimeMultiplier, r.OvertimeMultiplier)
		setNumber(&s.Rates.WorkingDaysPerMonth, r.WorkingDaysPerMonth)
		setNumber(&s.Rates.WorkingHoursPerDay, r.WorkingHoursPerDay)
		if r.DailyRateMode != nil {
			s.Rates.DailyRateMode = payroll.DailyRateMode(*r.DailyRateMode)
		}
		if r.IncentiveMode != nil {
			s.Rates.IncentiveMode = payroll.IncentiveMode(*r.IncentiveMode)
		}
	}
	if d.TaxBrackets != nil {
		s.TaxBrackets = make([]payroll.TaxBracket, len(d.TaxBrackets))
		for i, b := range d.TaxBrackets {
			s.TaxBrackets[i] = payroll.TaxBracket{Min: b.Min.Decimal, Rate: b.Rate.Decimal}
			if b.Max != nil {
				s.TaxBrackets[i].Max = decimal.NewNullDecimal(b.Max.Decimal)
			}
		}
	}
	if t := d.Toggles; t != nil {
		setBool(&s.Toggles.EnableSocialInsurance, t.EnableSocialInsurance)
		setBool(&s.Toggles.EnableHealthInsurance, t.EnableHealthInsurance)
		setBool(&s.Toggles.EnableIncomeTax, t.EnableIncomeTax)
		setBool(&s.Toggles.EnableAbsenceDeductions, t.EnableAbsenceDeductions)
		setBool(&s.Toggles.EnableOvertime, t.EnableOvertime)
		setBool(&s.Toggles.EnableIncentives, t.EnableIncentives)
	}
	if d.AbsenceMode != nil {
		s.AbsenceMode = payroll.AbsenceMode(*d.AbsenceMode)
	}
	if d.OvertimeMode != nil {
		s.OvertimeMode = payroll.OvertimeMode(*d.OvertimeMode)
	}
	return s
}

// =============================================================================
// EXPORT
// =============================================================================

// FromSettings builds the full document for s.
func FromSettings(s payroll.Settings) SettingsDoc {
	daily := string(s.Rates.DailyRateMode)
	incentive := string(s.Rates.IncentiveMode)
	absence := string(s.AbsenceMode)
	overtime := string(s.OvertimeMode)

	doc := SettingsDoc{
		Rates: &RatesDoc{
			SocialInsuranceRate: &Number{s.Rates.SocialInsuranceRate},
			HealthInsuranceRate: &Number{s.Rates.HealthInsuranceRate},
			OvertimeMultiplier:  &Number{s.Rates.OvertimeMultiplier},
			WorkingDaysPerMonth: &Number{s.Rates.WorkingDaysPerMonth},
			WorkingHoursPerDay:  &Number{s.Rates.WorkingHoursPerDay},
			DailyRateMode:       &daily,
			IncentiveMode:       &incentive,
		},
		Toggles: &TogglesDoc{
			EnableSocialInsurance:   boolPtr(s.Toggles.EnableSocialInsurance),
			EnableHealthInsurance:   boolPtr(s.Toggles.EnableHealthInsurance),
			EnableIncomeTax:         boolPtr(s.Toggles.EnableIncomeTax),
			EnableAbsenceDeductions: boolPtr(s.Toggles.EnableAbsenceDeductions),
			EnableOvertime:          boolPtr(s.Toggles.EnableOvertime),
			EnableIncentives:        boolPtr(s.Toggles.EnableIncentives),
		},
		AbsenceMode:  &absence,
		OvertimeMode: &overtime,
	}
	for _, b := range s.TaxBrackets {
		bd := BracketDoc{Min: Number{b.Min}, Rate: Number{b.Rate}}
		if !b.Unbounded() {
			bd.Max = &Number{b.Max.Decimal}
		}
		doc.TaxBrackets = append(doc.TaxBrackets, bd)
	}
	return doc
}

// MarshalSettings renders s as a YAML document ParseSettings reads back.
func MarshalSettings(s payroll.Settings) ([]byte, error) {
	return yaml.Marshal(FromSettings(s))
}

func setNumber(dst *decimal.Decimal, v *Number) {
	if v != nil {
		*dst = v.Decimal
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func boolPtr(v bool) *bool { return &v }
