// Package fees holds the fee structures that price class enrollment per
// academic year, and the per-year due date policy.
package fees

import "time"

// FeeStructure is one priced component for a class and year, e.g.
// tuition, transport or lab fees.
type FeeStructure struct {
	ID           int64     `json:"id"`
	ClassID      int64     `json:"class_id"`
	AcademicYear string    `json:"academic_year"`
	Name         string    `json:"name"`
	Amount       float64   `json:"amount"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DueDate is the year-wide payment deadline. Accounts still carrying a
// balance after this date are swept to overdue.
type DueDate struct {
	AcademicYear string    `json:"academic_year"`
	DueDate      time.Time `json:"due_date"`
}
