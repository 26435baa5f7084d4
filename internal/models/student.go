package models

// Student is the academic profile attached to a student-role user.
type Student struct {
	ID          string  `db:"id" json:"id"`
	UserID      string  `db:"user_id" json:"user_id"`
	StudentCode string  `db:"student_code" json:"student_code"`
	Department  string  `db:"department" json:"department"`
	Year        int     `db:"year" json:"year"`
	Section     string  `db:"section" json:"section"`
	ParentEmail *string `db:"parent_email" json:"parent_email,omitempty"`
	ParentPhone *string `db:"parent_phone" json:"parent_phone,omitempty"`
}

// StudentDetail enriches Student with identity fields from the users table.
type StudentDetail struct {
	Student
	FullName string `db:"full_name" json:"full_name"`
	Email    string `db:"email" json:"email"`
}

// StudentFilter encapsulates search parameters for listing students.
type StudentFilter struct {
	Department string
	Year       int
	Section    string
	Search     string
	Page       int
	PageSize   int
}
