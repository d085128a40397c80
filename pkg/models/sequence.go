package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// SequenceStatus represents the lifecycle state of a sequence.
type SequenceStatus string

const (
	SequenceStatusWIP        SequenceStatus = "WIP"         // Edited by the learner
	SequenceStatusToProcess  SequenceStatus = "TO_PROCESS"  // Submitted to the teacher
	SequenceStatusProcessWIP SequenceStatus = "PROCESS_WIP" // Sent to the device, under validation
	SequenceStatusProcessed  SequenceStatus = "PROCESSED"   // Validated
)

var sequenceStatusLabels = map[SequenceStatus]string{
	SequenceStatusWIP:        "En cours",
	SequenceStatusToProcess:  "A traiter",
	SequenceStatusProcessWIP: "Validation en cours",
	SequenceStatusProcessed:  "Traité",
}

// SequenceStatuses lists the statuses in lifecycle order.
var SequenceStatuses = []SequenceStatus{
	SequenceStatusWIP,
	SequenceStatusToProcess,
	SequenceStatusProcessWIP,
	SequenceStatusProcessed,
}

// Valid reports whether s is a known status code.
func (s SequenceStatus) Valid() bool {
	_, ok := sequenceStatusLabels[s]

	return ok
}

// Label returns the human readable label shown to learners.
func (s SequenceStatus) Label() string {
	return sequenceStatusLabels[s]
}

type statusJSON struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// MarshalJSON encodes the status as {"code": ..., "label": ...}.
func (s SequenceStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(statusJSON{Code: string(s), Label: s.Label()})
}

// UnmarshalJSON accepts either the {"code", "label"} object or a bare code string.
func (s *SequenceStatus) UnmarshalJSON(data []byte) error {
	var code string
	if err := json.Unmarshal(data, &code); err != nil {
		var obj statusJSON
		if err := json.Unmarshal(data, &obj); err != nil {
			return fmt.Errorf("invalid sequence status: %w", err)
		}

		code = obj.Code
	}

	status := SequenceStatus(code)
	if !status.Valid() {
		return fmt.Errorf("invalid sequence status %q", code)
	}

	*s = status

	return nil
}

// CommentAuthor identifies who wrote a comment.
type CommentAuthor struct {
	ID     string `json:"id"`
	Pseudo string `json:"pseudo"`
}

// Comment is an append-only remark on a sequence.
type Comment struct {
	User    CommentAuthor `json:"user"`
	Comment string        `json:"comment"`
}

// Sequence is an ordered list of actions authored by a learner for a challenge.
type Sequence struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	ChallengeID string         `json:"challenge_id"`
	Status      SequenceStatus `json:"status"`
	Actions     []Action       `json:"actions"`
	// DeviceSequenceID is assigned by the device the first time the sequence is dispatched.
	DeviceSequenceID *int      `json:"fb_seq_id"`
	Comments         []Comment `json:"comments"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
