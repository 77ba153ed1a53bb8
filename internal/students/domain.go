// Package students manages student records and class rosters.
package students

import "time"

// Student is one enrolled student.
type Student struct {
	ID             int64     `json:"id"`
	AdmissionNo    string    `json:"admission_no"`
	FullName       string    `json:"full_name"`
	ClassID        int64     `json:"class_id"`
	GuardianName   string    `json:"guardian_name,omitempty"`
	GuardianPhone  string    `json:"guardian_phone,omitempty"`
	GuardianEmail  string    `json:"guardian_email,omitempty"`
	EnrollmentDate time.Time `json:"enrollment_date"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Class is a homeroom grouping, e.g. "Grade 6 B".
type Class struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Section string `json:"section,omitempty"`
}
