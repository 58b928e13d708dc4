package model

// Subject is an exam subject (e.g. Mine Planning). Owned by the content store.
type Subject struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Topics []Topic `json:"topics"`
}

// Topic belongs to exactly one subject.
type Topic struct {
	ID        int64  `json:"id"`
	SubjectID int64  `json:"subject_id"`
	Name      string `json:"name"`
}
