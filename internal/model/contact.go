package model

import "time"

// Contact is a known correspondent, classified during background setup and
// editable by the user. The drafter uses formality_level to pitch the tone.
type Contact struct {
	UserID           string    `json:"user_id"`
	Email            string    `json:"email"`
	Name             string    `json:"name,omitempty"`
	RelationshipType string    `json:"relationship_type,omitempty"` // recruiter | colleague | manager | vendor | personal | unknown
	FormalityLevel   string    `json:"formality_level,omitempty"`   // formal | semi-formal | casual
	InteractionCount int       `json:"interaction_count"`
	LastContactAt    time.Time `json:"last_contact_at,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
