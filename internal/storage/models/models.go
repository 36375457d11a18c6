package models

import "time"

// QueryRecord is one answered question, kept for history and feedback.
type QueryRecord struct {
	ID           string
	Question     string
	Answer       string
	PassageCount int
	LatencyMS    int
	CreatedAt    time.Time
}

type Feedback struct {
	ID        int
	QueryID   string
	Helpful   bool
	Comment   string
	CreatedAt time.Time
}
