package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/incaya/farmbot-school-backend/pkg/auth"
	"github.com/incaya/farmbot-school-backend/pkg/eventbus"
	"github.com/incaya/farmbot-school-backend/pkg/events"
	"github.com/incaya/farmbot-school-backend/pkg/models"
	"github.com/incaya/farmbot-school-backend/pkg/otelhelper"
	"github.com/incaya/farmbot-school-backend/pkg/persistence"
	"go.opentelemetry.io/otel/attribute"
)

// SequenceCompiler turns a sequence into the document uploaded to the device.
type SequenceCompiler interface {
	Compile(ctx context.Context, sequence *models.Sequence, challengeTitle, pseudo string) (*models.Document, error)
}

// TokenProvider supplies a valid device token.
type TokenProvider interface {
	GetValidToken(ctx context.Context) (*models.DeviceToken, error)
}

// DeviceSequences is the part of the device API managing uploaded sequences.
type DeviceSequences interface {
	CreateOrUpdateSequence(ctx context.Context, token string, doc *models.Document, id *int) (int, error)
	DeleteSequence(ctx context.Context, token string, id int) error
}

// Sequence implements the sequence lifecycle. Only the owner or an admin may read or transition a
// sequence; any other caller gets ErrNotFound, exactly like an unknown id.
type Sequence struct {
	persistence persistence.Persistence
	compiler    SequenceCompiler
	tokens      TokenProvider
	device      DeviceSequences
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
}

// NewSequence creates a new sequence service. publisher may be nil.
func NewSequence(
	p persistence.Persistence,
	compiler SequenceCompiler,
	tokens TokenProvider,
	device DeviceSequences,
	publisher eventbus.EventPublisher,
	logger *slog.Logger,
) *Sequence {
	return &Sequence{
		persistence: p,
		compiler:    compiler,
		tokens:      tokens,
		device:      device,
		publisher:   publisher,
		logger:      logger.With("module", "sequence_service"),
	}
}

// HealthCheck checks the health of the persistence layer.
func (s *Sequence) HealthCheck(ctx context.Context) (string, bool) {
	if s.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := s.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// ListSequencesRequest contains options for listing sequences.
type ListSequencesRequest struct {
	// UserID narrows an admin listing to one owner. Ignored for other callers.
	UserID string
	Status string

	SortBy    string
	SortOrder string
	Limit     int
	Offset    int
}

// List returns every sequence for admins and the caller's own sequences otherwise.
func (s *Sequence) List(ctx context.Context, caller auth.Identity, req ListSequencesRequest) ([]*models.Sequence, error) {
	opts := persistence.ListSequencesOptions{
		UserID:    caller.UserID,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
		Limit:     req.Limit,
		Offset:    req.Offset,
	}

	if caller.IsAdmin() {
		opts.UserID = req.UserID
	}

	if req.Status != "" {
		status := models.SequenceStatus(req.Status)
		if !status.Valid() {
			return nil, &ServiceError{
				Op:      "List",
				Code:    "validation_error",
				Message: fmt.Sprintf("unknown status %q, expected one of %v", req.Status, models.SequenceStatuses),
				Kind:    ErrInvalidStatus,
			}
		}

		opts.Status = &status
	}

	sequences, err := s.persistence.Sequences().List(ctx, opts)
	if err != nil {
		if persistence.IsInvalidListOption(err) {
			return nil, NewValidationError("List", "validation_error", err.Error(), err)
		}

		return nil, fmt.Errorf("failed to list sequences: %w", err)
	}

	return sequences, nil
}

// CreateSequenceRequest holds a new sequence. UserID is only honoured for admins.
type CreateSequenceRequest struct {
	UserID      string
	ChallengeID string
	Actions     []models.Action
}

// Create stores a new sequence in WIP owned by the caller.
func (s *Sequence) Create(ctx context.Context, caller auth.Identity, req CreateSequenceRequest) (*models.Sequence, error) {
	ownerID := caller.UserID
	if caller.IsAdmin() && req.UserID != "" {
		ownerID = req.UserID
	}

	err := s.checkChallenge(ctx, "Create", req.ChallengeID)
	if err != nil {
		return nil, err
	}

	sequence := &models.Sequence{
		UserID:      ownerID,
		ChallengeID: req.ChallengeID,
		Status:      models.SequenceStatusWIP,
		Actions:     nonNilActions(req.Actions),
		Comments:    []models.Comment{},
	}

	err = s.persistence.Sequences().Save(ctx, sequence)
	if err != nil {
		return nil, fmt.Errorf("failed to save sequence: %w", err)
	}

	return sequence, nil
}

// FetchByID returns a sequence the caller may see.
func (s *Sequence) FetchByID(ctx context.Context, caller auth.Identity, id string) (*models.Sequence, error) {
	return s.fetch(ctx, caller, "FetchByID", id)
}

// UpdateSequenceRequest replaces the fields that are set.
type UpdateSequenceRequest struct {
	ChallengeID *string
	Actions     *[]models.Action
}

// Update changes the challenge or the actions without touching the status.
func (s *Sequence) Update(ctx context.Context, caller auth.Identity, id string, req UpdateSequenceRequest) (*models.Sequence, error) {
	sequence, err := s.fetch(ctx, caller, "Update", id)
	if err != nil {
		return nil, err
	}

	if req.ChallengeID != nil {
		err = s.checkChallenge(ctx, "Update", *req.ChallengeID)
		if err != nil {
			return nil, err
		}

		sequence.ChallengeID = *req.ChallengeID
	}

	if req.Actions != nil {
		sequence.Actions = nonNilActions(*req.Actions)
	}

	err = s.persistence.Sequences().Save(ctx, sequence)
	if err != nil {
		return nil, fmt.Errorf("failed to save sequence: %w", err)
	}

	return sequence, nil
}

// SendToWIP hands the sequence back to its author. actions, when non-nil, replaces the action list.
func (s *Sequence) SendToWIP(ctx context.Context, caller auth.Identity, id string, actions *[]models.Action) (*models.Sequence, error) {
	return s.setStatus(ctx, caller, "SendToWIP", id, models.SequenceStatusWIP, actions)
}

// SendToProcess submits the sequence for review. No device call is made.
func (s *Sequence) SendToProcess(ctx context.Context, caller auth.Identity, id string, actions *[]models.Action) (*models.Sequence, error) {
	return s.setStatus(ctx, caller, "SendToProcess", id, models.SequenceStatusToProcess, actions)
}

// SendProcessed marks the sequence as validated.
func (s *Sequence) SendProcessed(ctx context.Context, caller auth.Identity, id string, actions *[]models.Action) (*models.Sequence, error) {
	return s.setStatus(ctx, caller, "SendProcessed", id, models.SequenceStatusProcessed, actions)
}

func (s *Sequence) setStatus(
	ctx context.Context,
	caller auth.Identity,
	op, id string,
	to models.SequenceStatus,
	actions *[]models.Action,
) (*models.Sequence, error) {
	sequence, err := s.fetch(ctx, caller, op, id)
	if err != nil {
		return nil, err
	}

	from := sequence.Status
	sequence.Status = to

	if actions != nil {
		sequence.Actions = nonNilActions(*actions)
	}

	err = s.persistence.Sequences().Save(ctx, sequence)
	if err != nil {
		return nil, fmt.Errorf("failed to save sequence: %w", err)
	}

	s.publishStatusChanged(ctx, caller, sequence, from)

	return sequence, nil
}

// Dispatch is the outcome of a successful upload to the device.
type Dispatch struct {
	Sequence *models.Sequence
	Document *models.Document
}

// SendToDevice compiles the sequence, uploads it and moves it to PROCESS_WIP. Any token, compile or
// device failure leaves the stored sequence untouched and is returned unchanged.
func (s *Sequence) SendToDevice(ctx context.Context, caller auth.Identity, id string, actions *[]models.Action) (dispatch *Dispatch, err error) {
	ctx, span := otelhelper.StartSpan(ctx, "sequence.send_to_device",
		attribute.String(otelhelper.SequenceIDKey, id),
		attribute.String(otelhelper.UserIDKey, caller.UserID))
	defer func() {
		_ = otelhelper.SetError(span, err)

		span.End()
	}()

	sequence, err := s.fetch(ctx, caller, "SendToDevice", id)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.GetValidToken(ctx)
	if err != nil {
		return nil, err
	}

	if actions != nil {
		sequence.Actions = nonNilActions(*actions)
	}

	title, pseudo, err := s.documentNameParts(ctx, caller, sequence)
	if err != nil {
		return nil, err
	}

	doc, err := s.compiler.Compile(ctx, sequence, title, pseudo)
	if err != nil {
		s.logger.InfoContext(ctx, "sequence compilation failed", "sequence_id", id, "error", err)

		return nil, err
	}

	created := sequence.DeviceSequenceID == nil

	deviceID, err := s.device.CreateOrUpdateSequence(ctx, token.Token, doc, sequence.DeviceSequenceID)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int(otelhelper.DeviceSequenceIDKey, deviceID))

	from := sequence.Status
	sequence.DeviceSequenceID = &deviceID
	sequence.Status = models.SequenceStatusProcessWIP

	err = s.persistence.Sequences().Save(ctx, sequence)
	if err != nil {
		return nil, fmt.Errorf("failed to save sequence: %w", err)
	}

	s.publish(ctx, sequence.ID, events.SequenceDispatched{
		BaseEvent:        events.NewBaseEvent(events.SequenceDispatchedEvent, sequence.ID, caller.UserID),
		DeviceSequenceID: deviceID,
		Created:          created,
	})
	s.publishStatusChanged(ctx, caller, sequence, from)

	return &Dispatch{Sequence: sequence, Document: doc}, nil
}

// Deletion reports what happened on the device after the local delete.
type Deletion struct {
	DeviceSequenceID *int   `json:"fb_seq_id"`
	DeviceDeleted    bool   `json:"device_deleted"`
	DeviceError      string `json:"device_error,omitempty"`
}

// Delete removes the sequence, then makes one best-effort attempt to delete its device copy. Device
// failures are reported in the result, never as an error. Admin only.
func (s *Sequence) Delete(ctx context.Context, caller auth.Identity, id string) (*Deletion, error) {
	if !caller.IsAdmin() {
		return nil, newNotFound("Delete", "sequence", id, nil)
	}

	sequence, err := s.fetch(ctx, caller, "Delete", id)
	if err != nil {
		return nil, err
	}

	err = s.persistence.Sequences().Delete(ctx, id)
	if err != nil {
		if persistence.IsNotFound(err) {
			return nil, newNotFound("Delete", "sequence", id, err)
		}

		return nil, fmt.Errorf("failed to delete sequence: %w", err)
	}

	result := &Deletion{DeviceSequenceID: sequence.DeviceSequenceID}

	if sequence.DeviceSequenceID != nil {
		err = s.deleteOnDevice(ctx, *sequence.DeviceSequenceID)
		if err != nil {
			s.logger.WarnContext(ctx, "failed to delete device sequence",
				"sequence_id", id, "fb_seq_id", *sequence.DeviceSequenceID, "error", err)

			result.DeviceError = err.Error()
		} else {
			result.DeviceDeleted = true
		}
	}

	s.publish(ctx, id, events.SequenceDeleted{
		BaseEvent:        events.NewBaseEvent(events.SequenceDeletedEvent, id, caller.UserID),
		DeviceSequenceID: sequence.DeviceSequenceID,
		DeviceError:      result.DeviceError,
	})

	return result, nil
}

func (s *Sequence) deleteOnDevice(ctx context.Context, deviceID int) error {
	token, err := s.tokens.GetValidToken(ctx)
	if err != nil {
		return err
	}

	return s.device.DeleteSequence(ctx, token.Token, deviceID)
}

// AddComment appends a comment stamped with the caller and returns every comment of the sequence.
func (s *Sequence) AddComment(ctx context.Context, caller auth.Identity, id, text string) ([]models.Comment, error) {
	sequence, err := s.fetch(ctx, caller, "AddComment", id)
	if err != nil {
		return nil, err
	}

	sequence.Comments = append(sequence.Comments, models.Comment{
		User:    models.CommentAuthor{ID: caller.UserID, Pseudo: caller.Pseudo},
		Comment: text,
	})

	err = s.persistence.Sequences().Save(ctx, sequence)
	if err != nil {
		return nil, fmt.Errorf("failed to save sequence: %w", err)
	}

	return sequence.Comments, nil
}

func (s *Sequence) fetch(ctx context.Context, caller auth.Identity, op, id string) (*models.Sequence, error) {
	sequence, err := s.persistence.Sequences().GetByID(ctx, id)
	if err != nil {
		if persistence.IsNotFound(err) {
			return nil, newNotFound(op, "sequence", id, err)
		}

		return nil, fmt.Errorf("failed to get sequence: %w", err)
	}

	if !caller.IsAdmin() && sequence.UserID != caller.UserID {
		return nil, newNotFound(op, "sequence", id, nil)
	}

	return sequence, nil
}

func (s *Sequence) checkChallenge(ctx context.Context, op, challengeID string) error {
	_, err := s.persistence.Challenges().GetByID(ctx, challengeID)
	if err != nil {
		if persistence.IsNotFound(err) {
			return NewValidationError(op, "validation_error", "challenge_id does not match any challenge", err)
		}

		return fmt.Errorf("failed to get challenge: %w", err)
	}

	return nil
}

// documentNameParts returns the challenge title and the owner's pseudo. When the owner has no stored
// profile and is the caller, the caller's pseudo is used.
func (s *Sequence) documentNameParts(ctx context.Context, caller auth.Identity, sequence *models.Sequence) (string, string, error) {
	challenge, err := s.persistence.Challenges().GetByID(ctx, sequence.ChallengeID)
	if err != nil {
		if persistence.IsNotFound(err) {
			return "", "", newNotFound("SendToDevice", "challenge", sequence.ChallengeID, err)
		}

		return "", "", fmt.Errorf("failed to get challenge: %w", err)
	}

	owner, err := s.persistence.Users().GetByID(ctx, sequence.UserID)

	switch {
	case err == nil:
		return challenge.Title, owner.Pseudo, nil
	case persistence.IsNotFound(err) && sequence.UserID == caller.UserID:
		return challenge.Title, caller.Pseudo, nil
	case persistence.IsNotFound(err):
		return "", "", newNotFound("SendToDevice", "user", sequence.UserID, err)
	default:
		return "", "", fmt.Errorf("failed to get user: %w", err)
	}
}

func (s *Sequence) publishStatusChanged(ctx context.Context, caller auth.Identity, sequence *models.Sequence, from models.SequenceStatus) {
	s.publish(ctx, sequence.ID, events.SequenceStatusChanged{
		BaseEvent: events.NewBaseEvent(events.SequenceStatusChangedEvent, sequence.ID, caller.UserID),
		From:      from,
		To:        sequence.Status,
	})
}

// publish is best-effort: the change is already committed.
func (s *Sequence) publish(ctx context.Context, key string, event eventbus.Event) {
	if s.publisher == nil {
		return
	}

	err := s.publisher.Publish(ctx, key, event)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to publish event", "type", event.GetType(), "sequence_id", key, "error", err)
	}
}

func nonNilActions(actions []models.Action) []models.Action {
	if actions == nil {
		return []models.Action{}
	}

	return actions
}
