package personnel

import (
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// DEPARTMENT
// =============================================================================

type Department struct {
	ID          generic.DepartmentID `json:"id"`
	Name        string               `json:"name"`
	Code        string               `json:"code"`
	Description string               `json:"description,omitempty"`
	ManagerID   generic.EmployeeID   `json:"managerId,omitempty"`
	Active      bool                 `json:"active"`
}

func (d Department) Validate() error {
	if d.ID == "" {
		return &generic.InputError{Field: "id", Reason: "is required"}
	}
	if d.Name == "" {
		return &generic.InputError{Field: "name", Reason: "is required"}
	}
	return nil
}

type DepartmentPatch struct {
	Name        *string             `json:"name,omitempty"`
	Code        *string             `json:"code,omitempty"`
	Description *string             `json:"description,omitempty"`
	ManagerID   *generic.EmployeeID `json:"managerId,omitempty"`
	Active      *bool               `json:"active,omitempty"`
}

func (p DepartmentPatch) Apply(d Department) Department {
	setString(&d.Name, p.Name)
	setString(&d.Code, p.Code)
	setString(&d.Description, p.Description)
	if p.ManagerID != nil {
		d.ManagerID = *p.ManagerID
	}
	if p.Active != nil {
		d.Active = *p.Active
	}
	return d
}

// =============================================================================
// POSITION
// =============================================================================

type Position struct {
	ID           generic.PositionID   `json:"id"`
	Title        string               `json:"title"`
	DepartmentID generic.DepartmentID `json:"departmentId"`
	Code         string               `json:"code"`
	BaseSalary   decimal.Decimal      `json:"baseSalary"`
}

func (p Position) Validate() error {
	if p.ID == "" {
		return &generic.InputError{Field: "id", Reason: "is required"}
	}
	if p.Title == "" {
		return &generic.InputError{Field: "title", Reason: "is required"}
	}
	return generic.RequireNonNegative("baseSalary", p.BaseSalary)
}

type PositionPatch struct {
	Title        *string               `json:"title,omitempty"`
	DepartmentID *generic.DepartmentID `json:"departmentId,omitempty"`
	Code         *string               `json:"code,omitempty"`
	BaseSalary   *decimal.Decimal      `json:"baseSalary,omitempty"`
}

func (p PositionPatch) Apply(pos Position) Position {
	setString(&pos.Title, p.Title)
	if p.DepartmentID != nil {
		pos.DepartmentID = *p.DepartmentID
	}
	setString(&pos.Code, p.Code)
	setDecimal(&pos.BaseSalary, p.BaseSalary)
	return pos
}
