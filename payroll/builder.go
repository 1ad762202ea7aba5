package payroll

import (
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/personnel"
)

// =============================================================================
// PAYROLL RECORD BUILDER
// =============================================================================

// Build computes a pending payroll record for emp in month/year.
//
//	totalSalary     = basic + incentives + overtime + bonus
//	totalDeductions = social + health + incomeTax + absence + penalties + advances
//	netSalary       = totalSalary - totalDeductions
//
// Build is a stateless factory: calling it twice for the same period gives
// two independent records. Uniqueness per period is enforced by the caller.
func Build(emp personnel.Employee, month, year int, s Settings) (Record, error) {
	if err := generic.ValidPeriod(month, year); err != nil {
		return Record{}, err
	}
	if err := generic.RequirePositive("basicSalary", emp.BasicSalary); err != nil {
		return Record{}, err
	}
	if err := s.validateWorkingTime(); err != nil {
		return Record{}, err
	}
	if err := emp.ValidateAbsence(s.Rates.WorkingDaysPerMonth); err != nil {
		return Record{}, err
	}
	for _, f := range []struct {
		name  string
		value decimal.Decimal
	}{
		{"bonus", emp.Bonus},
		{"penalties", emp.Penalties},
		{"penaltyDays", emp.PenaltyDays},
		{"advances", emp.Advances},
		{"purchases", emp.Purchases},
	} {
		if err := generic.RequireNonNegative(f.name, f.value); err != nil {
			return Record{}, err
		}
	}

	c, err := computeComponents(emp, s)
	if err != nil {
		return Record{}, err
	}

	total := generic.Sum(emp.BasicSalary, c.incentives, c.overtimeAmount, emp.Bonus)
	deductions := generic.Sum(c.social, c.health, c.incomeTax, c.absence, emp.Penalties, emp.Advances)

	return Record{
		ID:           RecordID(emp.ID, month, year),
		EmployeeID:   emp.ID,
		EmployeeCode: emp.Code,
		EmployeeName: emp.Name,
		Position:     emp.Position.Title,
		DepartmentID: emp.Position.DepartmentID,
		Month:        month,
		Year:         year,

		BasicSalary:  emp.BasicSalary,
		DailyRate:    c.dailyRate,
		OvertimeRate: c.overtimeRate,

		WorkingDays:   s.Rates.WorkingDaysPerMonth.Sub(emp.AbsenceDays),
		AbsentDays:    emp.AbsenceDays,
		OvertimeHours: emp.OvertimeHours,

		Incentives:        c.incentives,
		MonthlyIncentives: emp.MonthlyIncentives,
		Bonus:             emp.Bonus,
		OvertimeAmount:    c.overtimeAmount,
		TotalSalary:       total,

		SocialInsurance:   c.social,
		HealthInsurance:   c.health,
		IncomeTax:         c.incomeTax,
		AbsenceDeductions: c.absence,
		Penalties:         emp.Penalties,
		PenaltyDays:       emp.PenaltyDays,
		Advances:          emp.Advances,
		Purchases:         emp.Purchases,
		HourlyDeductions:  decimal.Zero,
		TotalDeductions:   deductions,

		NetSalary:               total.Sub(deductions),
		DailyRateWithIncentives: c.dailyRate.Add(c.incentives.Div(s.Rates.WorkingDaysPerMonth)),

		Status: StatusPending,
	}, nil
}

type components struct {
	dailyRate      decimal.Decimal
	overtimeRate   decimal.Decimal
	overtimeAmount decimal.Decimal
	incentives     decimal.Decimal
	social         decimal.Decimal
	health         decimal.Decimal
	absence        decimal.Decimal
	incomeTax      decimal.Decimal
}

func computeComponents(emp personnel.Employee, s Settings) (components, error) {
	var c components
	var err error
	salary := emp.BasicSalary

	if c.dailyRate, err = DailyRate(salary, s); err != nil {
		return c, err
	}
	if c.overtimeRate, err = OvertimeRate(salary, s); err != nil {
		return c, err
	}
	if c.overtimeAmount, err = OvertimeAmount(salary, emp.OvertimeHours, s); err != nil {
		return c, err
	}
	if c.incentives, err = IncentiveAmount(salary, emp.MonthlyIncentives, s); err != nil {
		return c, err
	}
	if c.social, err = SocialInsurance(salary, s); err != nil {
		return c, err
	}
	if c.health, err = HealthInsurance(salary, s); err != nil {
		return c, err
	}
	if c.absence, err = AbsenceDeduction(salary, emp.AbsenceDays, s); err != nil {
		return c, err
	}
	if c.incomeTax, err = IncomeTax(salary.Mul(generic.MonthsPerYear), s); err != nil {
		return c, err
	}
	return c, nil
}
