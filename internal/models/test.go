package models

import "time"

type Test struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	Category   string    `json:"category"`
	Difficulty string    `json:"difficulty"`
	Duration   int       `json:"duration"` // minutes
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

// TestSummary is the reduced shape exchanged over the broker.
type TestSummary struct {
	TestID   string `json:"test_id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// TestFilter narrows catalog lookups to tests suitable for a candidate.
type TestFilter struct {
	JobPosition    string `json:"job_position,omitempty"`
	EducationLevel string `json:"education_level,omitempty"`
}
