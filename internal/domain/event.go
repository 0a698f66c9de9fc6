package domain

import "time"

// EventType classifies timeline entries.
type EventType string

const (
	EventDeploy    EventType = "deploy"
	EventTraffic   EventType = "traffic"
	EventRollback  EventType = "rollback"
	EventLifecycle EventType = "lifecycle"
	EventHealth    EventType = "health"
	EventSettings  EventType = "settings"
	EventColdStart EventType = "cold_start"
)

// Event is a human-readable timeline entry, newest-first.
type Event struct {
	ID          string
	Type        EventType
	Title       string
	Description string
	HappenedAt  time.Time
}

// AuditRecord tracks who did what, newest-first.
type AuditRecord struct {
	ID         string
	Action     string
	Actor      string
	HappenedAt time.Time
}
