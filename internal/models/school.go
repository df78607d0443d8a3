package models

import (
	"time"

	"github.com/google/uuid"
)

// School represents a school managing classrooms and student rosters.
type School struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Address    string    `json:"address,omitempty"`
	PostalCode string    `json:"postal_code,omitempty"`
	Lat        *float64  `json:"lat,omitempty"`
	Lng        *float64  `json:"lng,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Classroom groups students under one teacher within a school.
type Classroom struct {
	ID        uuid.UUID  `json:"id"`
	SchoolID  uuid.UUID  `json:"school_id"`
	Name      string     `json:"name"`
	TeacherID *uuid.UUID `json:"teacher_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
