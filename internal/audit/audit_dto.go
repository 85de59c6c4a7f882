package audit

import (
	"encoding/json"
	"time"
)

type TrailEntry struct {
	ID          uint64          `json:"id"`
	ActorID     *string         `json:"actor_id,omitempty"`
	Action      string          `json:"action"`
	PerformedBy string          `json:"performed_by"`
	Status      string          `json:"status"`
	Reason      *string         `json:"reason,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedAt   string          `json:"created_at"`
}

func mapToTrailResponse(entries []Entry) []TrailEntry {
	resp := make([]TrailEntry, len(entries))
	for i, e := range entries {
		resp[i] = TrailEntry{
			ID:          e.ID,
			ActorID:     e.ActorID,
			Action:      e.Action,
			PerformedBy: e.PerformedBy,
			Status:      e.Status,
			Reason:      e.Reason,
			Metadata:    e.Metadata,
			CreatedAt:   e.CreatedAt.Format(time.RFC3339),
		}
	}
	return resp
}
