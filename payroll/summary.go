package payroll

import (
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

// Filter narrows a record list. Zero fields match everything.
type Filter struct {
	Month        int
	Year         int
	Status       Status
	DepartmentID generic.DepartmentID
}

func (f Filter) Match(r Record) bool {
	if f.Month != 0 && r.Month != f.Month {
		return false
	}
	if f.Year != 0 && r.Year != f.Year {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.DepartmentID != "" && r.DepartmentID != f.DepartmentID {
		return false
	}
	return true
}

// Apply returns the records matching f, in their original order.
func (f Filter) Apply(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Summary aggregates a set of payroll records.
type Summary struct {
	TotalBasicSalary decimal.Decimal `json:"totalBasicSalary"`
	TotalIncentives  decimal.Decimal `json:"totalIncentives"`
	TotalDeductions  decimal.Decimal `json:"totalDeductions"`
	TotalNetSalary   decimal.Decimal `json:"totalNetSalary"`
	EmployeeCount    int             `json:"employeeCount"`
	PendingCount     int             `json:"pendingCount"`
	ProcessedCount   int             `json:"processedCount"`
	PaidCount        int             `json:"paidCount"`
}

// Summarize totals records. Deductions are counted as totalSalary-netSalary.
func Summarize(records []Record) Summary {
	sum := Summary{
		TotalBasicSalary: decimal.Zero,
		TotalIncentives:  decimal.Zero,
		TotalDeductions:  decimal.Zero,
		TotalNetSalary:   decimal.Zero,
	}
	seen := make(map[generic.EmployeeID]bool)
	for _, r := range records {
		sum.TotalBasicSalary = sum.TotalBasicSalary.Add(r.BasicSalary)
		sum.TotalIncentives = sum.TotalIncentives.Add(r.Incentives)
		sum.TotalDeductions = sum.TotalDeductions.Add(r.TotalSalary.Sub(r.NetSalary))
		sum.TotalNetSalary = sum.TotalNetSalary.Add(r.NetSalary)
		if !seen[r.EmployeeID] {
			seen[r.EmployeeID] = true
			sum.EmployeeCount++
		}
		switch r.Status {
		case StatusPending:
			sum.PendingCount++
		case StatusProcessed:
			sum.ProcessedCount++
		case StatusPaid:
			sum.PaidCount++
		}
	}
	return sum
}
