package domain

import "time"

// FollowUp records an action a physician took in response to an incident.
// Follow-ups are append-only.
type FollowUp struct {
	ID           int64     `json:"id"`
	IncidentID   int64     `json:"incident_id"`
	PhysicianID  int64     `json:"physician_id"`
	ActionsTaken string    `json:"actions_taken"`
	FollowedUpAt time.Time `json:"followed_up_at"`
}
