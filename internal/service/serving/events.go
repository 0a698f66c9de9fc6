package serving

import (
	"encoding/json"
	"time"

	"github.com/modelplane/modelplane/internal/domain"
)

// Retention windows for the append-only logs.
const (
	maxEvents = 30
	maxAudits = 80
)

// timelineEntry describes the event and audit record a mutation leaves behind.
type timelineEntry struct {
	eventType   domain.EventType
	title       string
	description string
	action      string
	actor       string
}

// finish appends the timeline entry (when present) and reprojects the service
// summary. Every mutation path funnels through here so the projection cannot
// be skipped by a new operation.
func (s Service) finish(svc *domain.Service, entry *timelineEntry) {
	if entry != nil {
		now := s.now().UTC()
		event := domain.Event{
			ID:          s.ids.EventID(),
			Type:        entry.eventType,
			Title:       entry.title,
			Description: entry.description,
			HappenedAt:  now,
		}
		svc.Events = append([]domain.Event{event}, svc.Events...)
		if len(svc.Events) > maxEvents {
			svc.Events = svc.Events[:maxEvents]
		}

		actor := entry.actor
		if actor == "" {
			actor = "system"
		}
		audit := domain.AuditRecord{
			ID:         s.ids.AuditID(),
			Action:     entry.action,
			Actor:      actor,
			HappenedAt: now,
		}
		svc.Audits = append([]domain.AuditRecord{audit}, svc.Audits...)
		if len(svc.Audits) > maxAudits {
			svc.Audits = svc.Audits[:maxAudits]
		}
	}
	s.projectSummary(svc)
}

// publishTimeline broadcasts the newest event to websocket subscribers.
func (s Service) publishTimeline(svc *domain.Service) {
	if s.hub == nil || svc == nil || len(svc.Events) == 0 {
		return
	}
	payload, err := MarshalEvent(svc.ID, svc.Events[0])
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("failed to marshal timeline event", "service_id", svc.ID, "error", err)
		}
		return
	}
	s.hub.Broadcast(svc.ID, payload)
}

// MarshalEvent encodes a timeline event for websocket clients.
func MarshalEvent(serviceID string, event domain.Event) ([]byte, error) {
	payload := map[string]any{
		"event_id":    event.ID,
		"service_id":  serviceID,
		"type":        string(event.Type),
		"title":       event.Title,
		"description": event.Description,
		"happened_at": event.HappenedAt.UTC().Format(time.RFC3339Nano),
	}
	return json.Marshal(payload)
}
