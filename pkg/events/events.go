// Package events defines the sequence lifecycle notifications published after each committed change.
package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/incaya/farmbot-school-backend/pkg/models"
)

type EventType string

// Topic carries every lifecycle event.
const Topic = "farmbot_school.sequences"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	SequenceStatusChangedEvent EventType = "sequence.status_changed"
	SequenceDispatchedEvent    EventType = "sequence.dispatched"
	SequenceDeletedEvent       EventType = "sequence.deleted"
)

type BaseEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	SequenceID string    `json:"sequence_id"`
	// ActorID is the user who triggered the change.
	ActorID string `json:"actor_id,omitempty"`
}

// NewBaseEvent stamps a fresh event for a sequence.
func NewBaseEvent(eventType EventType, sequenceID, actorID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		SequenceID: sequenceID,
		ActorID:    actorID,
	}
}

type SequenceStatusChanged struct {
	BaseEvent

	From models.SequenceStatus `json:"from"`
	To   models.SequenceStatus `json:"to"`
}

func (e SequenceStatusChanged) GetType() EventType {
	return SequenceStatusChangedEvent
}

// SequenceDispatched is published once the compiled document has been accepted by the device.
type SequenceDispatched struct {
	BaseEvent

	DeviceSequenceID int  `json:"fb_seq_id"`
	Created          bool `json:"created"`
}

func (e SequenceDispatched) GetType() EventType {
	return SequenceDispatchedEvent
}

type SequenceDeleted struct {
	BaseEvent

	DeviceSequenceID *int `json:"fb_seq_id,omitempty"`
	// DeviceError holds the message of a failed device-side delete.
	DeviceError string `json:"device_error,omitempty"`
}

func (e SequenceDeleted) GetType() EventType {
	return SequenceDeletedEvent
}
