package models

import "time"

// Project groups the work items produced from one or more documents.
type Project struct {
	// ID is the unique project identifier.
	ID string `json:"id"`
	// Name is the human-readable project name.
	Name string `json:"name"`
	// Description is an optional project summary.
	Description string `json:"description,omitempty"`
	// CreatedAt is when the project was created.
	CreatedAt time.Time `json:"created_at"`
}
