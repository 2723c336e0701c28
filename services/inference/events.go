package inference

import "github.com/google/uuid"

// EventStage identifies where in the pipeline a progress event fired.
type EventStage string

const (
	StageCacheHit   EventStage = "cache_hit"
	StageClassified EventStage = "classified"
	StageRouted     EventStage = "routed"
	StageCompleted  EventStage = "completed"
	StageFailed     EventStage = "failed"
)

// Event is a progress notification for one request. Events are optional
// observability; outcomes are always returned as values from Submit.
type Event struct {
	Stage      EventStage `json:"stage"`
	RequestID  uuid.UUID  `json:"request_id"`
	Category   string     `json:"category,omitempty"`
	Candidates []string   `json:"candidates,omitempty"`
	Provider   string     `json:"provider,omitempty"`
	Error      string     `json:"error,omitempty"`
}
