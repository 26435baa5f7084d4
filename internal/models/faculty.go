package models

// Faculty is the teaching profile attached to a faculty-role user.
type Faculty struct {
	ID          string  `db:"id" json:"id"`
	UserID      string  `db:"user_id" json:"user_id"`
	FacultyCode string  `db:"faculty_code" json:"faculty_code"`
	Department  string  `db:"department" json:"department"`
	Designation *string `db:"designation" json:"designation,omitempty"`
}

// FacultyDetail enriches Faculty with identity fields from the users table.
type FacultyDetail struct {
	Faculty
	FullName string `db:"full_name" json:"full_name"`
	Email    string `db:"email" json:"email"`
}
