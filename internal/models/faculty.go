package models

import "time"

// Faculty is a teaching staff member.
type Faculty struct {
	ID            string    `db:"id" json:"id"`
	FullName      string    `db:"full_name" json:"full_name"`
	Department    string    `db:"department" json:"department"`
	MaxWeeklyLoad int       `db:"max_weekly_load" json:"max_weekly_load"`
	Active        bool      `db:"active" json:"active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Batch is a cohort of students progressing through a program together.
type Batch struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Program   string    `db:"program" json:"program"`
	Semester  int       `db:"semester" json:"semester"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Subject is a taught course. IsModule marks multi-session modules whose
// sessions must not stack up against each other on one day.
type Subject struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	Department string    `db:"department" json:"department"`
	IsModule   bool      `db:"is_module" json:"is_module"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
