package factory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
)

func TestParseSettings_FullYAMLDocument(t *testing.T) {
	doc := `
rates:
  social_insurance_rate: 0.12
  health_insurance_rate: 0.025
  overtime_multiplier: 2
  working_days_per_month: 26
  working_hours_per_day: 7.5
  daily_rate_mode: hourly
  incentive_mode: fixed
tax_brackets:
  - {min: 0, max: 10000, rate: 0}
  - {min: 10000, max: 50000, rate: 0.1}
  - {min: 50000, max: null, rate: 0.2}
toggles:
  enable_health_insurance: false
absence_mode: hourly
overtime_mode: fixed
`
	s, err := factory.ParseSettings([]byte(doc))

	require.NoError(t, err)
	assert.Equal(t, "0.12", s.Rates.SocialInsuranceRate.String())
	assert.Equal(t, "7.5", s.Rates.WorkingHoursPerDay.String())
	assert.Equal(t, payroll.DailyRateHourly, s.Rates.DailyRateMode)
	assert.Equal(t, payroll.IncentiveFixed, s.Rates.IncentiveMode)
	require.Len(t, s.TaxBrackets, 3)
	assert.True(t, s.TaxBrackets[2].Unbounded())
	assert.False(t, s.Toggles.EnableHealthInsurance)
	assert.True(t, s.Toggles.EnableIncomeTax, "omitted toggles keep their default")
	assert.Equal(t, payroll.AbsenceHourly, s.AbsenceMode)
	assert.Equal(t, payroll.OvertimeFixed, s.OvertimeMode)
}

func TestParseSettings_JSONIsAccepted(t *testing.T) {
	s, err := factory.ParseSettings([]byte(`{"rates": {"working_days_per_month": 20}, "toggles": {"enable_income_tax": false}}`))

	require.NoError(t, err)
	assert.Equal(t, "20", s.Rates.WorkingDaysPerMonth.String())
	assert.False(t, s.Toggles.EnableIncomeTax)
	assert.Len(t, s.TaxBrackets, len(payroll.DefaultTaxBrackets()))
}

func TestParseSettings_EmptyDocumentGivesDefaults(t *testing.T) {
	s, err := factory.ParseSettings(nil)

	require.NoError(t, err)
	assert.True(t, s.Rates.OvertimeMultiplier.Equal(payroll.DefaultSettings().Rates.OvertimeMultiplier))
}

func TestMergeSettings_KeepsBase(t *testing.T) {
	base := payroll.DefaultSettings()
	base.OvertimeMode = payroll.OvertimeFixed

	merged, err := factory.MergeSettings(base, []byte("absence_mode: hourly\n"))

	require.NoError(t, err)
	assert.Equal(t, payroll.OvertimeFixed, merged.OvertimeMode)
	assert.Equal(t, payroll.AbsenceHourly, merged.AbsenceMode)
	assert.Equal(t, payroll.AbsenceDaily, base.AbsenceMode)
}

func TestMergeSettings_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown key", "rates:\n  working_days: 22\n"},
		{"not a number", "rates:\n  overtime_multiplier: lots\n"},
		{"zero working days", "rates:\n  working_days_per_month: 0\n"},
		{"bracket gap", "tax_brackets:\n  - {min: 0, max: 100, rate: 0}\n  - {min: 200, rate: 0.1}\n"},
		{"unknown mode", "overtime_mode: weekly\n"},
		{"broken yaml", "rates: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := payroll.DefaultSettings()

			got, err := factory.MergeSettings(base, []byte(tt.doc))

			assert.ErrorIs(t, err, generic.ErrInvalidConfiguration)
			assert.Equal(t, base, got)
		})
	}
}

func TestMarshalSettings_ReadsBack(t *testing.T) {
	s := payroll.DefaultSettings()
	s.Toggles.EnableOvertime = false

	data, err := factory.MarshalSettings(s)
	require.NoError(t, err)
	back, err := factory.ParseSettings(data)
	require.NoError(t, err)

	assert.False(t, back.Toggles.EnableOvertime)
	require.Len(t, back.TaxBrackets, len(s.TaxBrackets))
	for i := range s.TaxBrackets {
		assert.True(t, s.TaxBrackets[i].Min.Equal(back.TaxBrackets[i].Min))
		assert.True(t, s.TaxBrackets[i].Rate.Equal(back.TaxBrackets[i].Rate))
		assert.Equal(t, s.TaxBrackets[i].Unbounded(), back.TaxBrackets[i].Unbounded())
	}
}
