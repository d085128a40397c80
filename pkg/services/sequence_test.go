package services_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/incaya/farmbot-school-backend/pkg/auth"
	"github.com/incaya/farmbot-school-backend/pkg/compiler"
	"github.com/incaya/farmbot-school-backend/pkg/eventbus"
	"github.com/incaya/farmbot-school-backend/pkg/events"
	"github.com/incaya/farmbot-school-backend/pkg/farmbot"
	"github.com/incaya/farmbot-school-backend/pkg/models"
	"github.com/incaya/farmbot-school-backend/pkg/persistence"
	"github.com/incaya/farmbot-school-backend/pkg/persistence/file"
	"github.com/incaya/farmbot-school-backend/pkg/pins"
	"github.com/incaya/farmbot-school-backend/pkg/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTokens struct {
	err   error
	calls int
}

func (s *staticTokens) GetValidToken(context.Context) (*models.DeviceToken, error) {
	s.calls++

	if s.err != nil {
		return nil, s.err
	}

	return &models.DeviceToken{Token: "device-token", ExpiresAt: time.Now().Add(24 * time.Hour)}, nil
}

// fakeDevice records device calls and serves a fixed pin list.
type fakeDevice struct {
	pins      map[models.MaterialType][]models.DevicePin
	nextID    int
	uploadErr error
	deleteErr error

	uploads []*int
	deletes []int
}

func (d *fakeDevice) ListPins(_ context.Context, _ string, materialType models.MaterialType) ([]models.DevicePin, error) {
	return d.pins[materialType], nil
}

func (d *fakeDevice) CreateOrUpdateSequence(_ context.Context, _ string, _ *models.Document, id *int) (int, error) {
	d.uploads = append(d.uploads, id)

	if d.uploadErr != nil {
		return 0, d.uploadErr
	}

	if id != nil {
		return *id, nil
	}

	return d.nextID, nil
}

func (d *fakeDevice) DeleteSequence(_ context.Context, _ string, id int) error {
	d.deletes = append(d.deletes, id)

	return d.deleteErr
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)

	return nil
}

func (p *recordingPublisher) types() []events.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()

	types := make([]events.EventType, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.GetType())
	}

	return types
}

type fixture struct {
	persistence persistence.Persistence
	tokens      *staticTokens
	device      *fakeDevice
	publisher   *recordingPublisher
	service     *services.Sequence

	challenge *models.Challenge
	learner   auth.Identity
	other     auth.Identity
	admin     auth.Identity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	p := file.NewPersistence(t.TempDir())
	logger := slog.Default()

	f := &fixture{
		persistence: p,
		tokens:      &staticTokens{},
		device:      &fakeDevice{nextID: 42, pins: map[models.MaterialType][]models.DevicePin{}},
		publisher:   &recordingPublisher{},
	}

	resolver := pins.NewResolver(p.Pins(), f.tokens, f.device, logger)
	f.service = services.NewSequence(p, compiler.New(resolver, logger), f.tokens, f.device, f.publisher, logger)

	f.challenge = &models.Challenge{Title: "Arrosage", Active: true, EndDate: time.Now().Add(48 * time.Hour)}
	require.NoError(t, p.Challenges().Save(t.Context(), f.challenge))

	learner := &models.User{Pseudo: "marie", Email: "marie@example.org", Role: models.RoleUser}
	require.NoError(t, p.Users().Save(t.Context(), learner))

	f.learner = auth.Identity{UserID: learner.ID, Pseudo: learner.Pseudo, Role: models.RoleUser}
	f.other = auth.Identity{UserID: "0197a1c2-0000-7000-8000-000000000001", Pseudo: "paul", Role: models.RoleUser}
	f.admin = auth.Identity{UserID: "0197a1c2-0000-7000-8000-000000000002", Pseudo: "prof", Role: models.RoleAdmin}

	return f
}

func (f *fixture) create(t *testing.T, actions ...models.Action) *models.Sequence {
	t.Helper()

	sequence, err := f.service.Create(t.Context(), f.learner, services.CreateSequenceRequest{
		ChallengeID: f.challenge.ID,
		Actions:     actions,
	})
	require.NoError(t, err)

	return sequence
}

func TestSequence_Create(t *testing.T) {
	f := newFixture(t)

	sequence := f.create(t, models.Action{Position: 1, Type: models.ActionTypeTakePhoto})

	assert.NotEmpty(t, sequence.ID)
	assert.Equal(t, f.learner.UserID, sequence.UserID)
	assert.Equal(t, models.SequenceStatusWIP, sequence.Status)
	assert.Nil(t, sequence.DeviceSequenceID)

	_, err := f.service.Create(t.Context(), f.learner, services.CreateSequenceRequest{
		ChallengeID: "0197a1c2-0000-7000-8000-00000000ffff",
	})
	assert.True(t, services.IsValidationError(err))
}

func TestSequence_AdminCreatesForUser(t *testing.T) {
	f := newFixture(t)

	sequence, err := f.service.Create(t.Context(), f.admin, services.CreateSequenceRequest{
		UserID:      f.learner.UserID,
		ChallengeID: f.challenge.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, f.learner.UserID, sequence.UserID)

	// UserID is ignored for standard users.
	sequence, err = f.service.Create(t.Context(), f.other, services.CreateSequenceRequest{
		UserID:      f.learner.UserID,
		ChallengeID: f.challenge.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, f.other.UserID, sequence.UserID)
}

func TestSequence_OwnershipHidesExistence(t *testing.T) {
	f := newFixture(t)
	sequence := f.create(t)

	_, err := f.service.FetchByID(t.Context(), f.other, sequence.ID)
	assert.True(t, services.IsNotFoundError(err))

	_, err = f.service.FetchByID(t.Context(), f.other, "0197a1c2-0000-7000-8000-00000000ffff")
	assert.True(t, services.IsNotFoundError(err))

	_, err = f.service.SendToProcess(t.Context(), f.other, sequence.ID, nil)
	assert.True(t, services.IsNotFoundError(err))

	got, err := f.service.FetchByID(t.Context(), f.admin, sequence.ID)
	require.NoError(t, err)
	assert.Equal(t, sequence.ID, got.ID)
}

func TestSequence_List(t *testing.T) {
	f := newFixture(t)
	mine := f.create(t)

	_, err := f.service.Create(t.Context(), f.other, services.CreateSequenceRequest{ChallengeID: f.challenge.ID})
	require.NoError(t, err)

	_, err = f.service.SendToProcess(t.Context(), f.learner, mine.ID, nil)
	require.NoError(t, err)

	own, err := f.service.List(t.Context(), f.learner, services.ListSequencesRequest{})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, mine.ID, own[0].ID)

	all, err := f.service.List(t.Context(), f.admin, services.ListSequencesRequest{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	toProcess, err := f.service.List(t.Context(), f.admin, services.ListSequencesRequest{Status: "TO_PROCESS"})
	require.NoError(t, err)
	require.Len(t, toProcess, 1)
	assert.Equal(t, mine.ID, toProcess[0].ID)

	_, err = f.service.List(t.Context(), f.admin, services.ListSequencesRequest{Status: "DONE"})
	assert.True(t, services.IsValidationError(err))
	assert.EqualError(t, err, `List: unknown status "DONE", expected one of [WIP TO_PROCESS PROCESS_WIP PROCESSED]`)

	_, err = f.service.List(t.Context(), f.admin, services.ListSequencesRequest{SortBy: "password"})
	assert.True(t, services.IsValidationError(err))
}

func TestSequence_StatusTransitions(t *testing.T) {
	f := newFixture(t)
	sequence := f.create(t)

	actions := []models.Action{{Position: 1, Type: models.ActionTypeWait, Param: map[string]any{"milliseconds": 200}}}

	updated, err := f.service.SendToProcess(t.Context(), f.learner, sequence.ID, &actions)
	require.NoError(t, err)
	assert.Equal(t, models.SequenceStatusToProcess, updated.Status)
	assert.Len(t, updated.Actions, 1)

	updated, err = f.service.SendProcessed(t.Context(), f.admin, sequence.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.SequenceStatusProcessed, updated.Status)
	assert.Len(t, updated.Actions, 1)

	updated, err = f.service.SendToWIP(t.Context(), f.admin, sequence.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.SequenceStatusWIP, updated.Status)

	assert.Empty(t, f.device.uploads)
	assert.Equal(t, []events.EventType{
		events.SequenceStatusChangedEvent,
		events.SequenceStatusChangedEvent,
		events.SequenceStatusChangedEvent,
	}, f.publisher.types())
}

func TestSequence_SendToDevice(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.persistence.Pins().Save(t.Context(), &models.PinEntry{
		MaterialType: models.MaterialTypePeripheral, MaterialID: 7, Action: "water",
	}))
	f.device.pins[models.MaterialTypePeripheral] = []models.DevicePin{{ID: 31, Pin: 7, Mode: 0, Label: "Water"}}

	sequence := f.create(t,
		models.Action{Position: 1, Type: models.ActionTypeFindHome, Param: map[string]any{"value": "all"}},
		models.Action{Position: 2, Type: models.ActionTypeWater, Param: map[string]any{"type": "write", "value": 1}},
	)

	dispatch, err := f.service.SendToDevice(t.Context(), f.learner, sequence.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, "Arrosage / marie", dispatch.Document.Name)
	assert.Len(t, dispatch.Document.Body, 2)
	assert.Equal(t, models.SequenceStatusProcessWIP, dispatch.Sequence.Status)
	require.NotNil(t, dispatch.Sequence.DeviceSequenceID)
	assert.Equal(t, 42, *dispatch.Sequence.DeviceSequenceID)

	stored, err := f.persistence.Sequences().GetByID(t.Context(), sequence.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SequenceStatusProcessWIP, stored.Status)
	require.NotNil(t, stored.DeviceSequenceID)
	assert.Equal(t, 42, *stored.DeviceSequenceID)

	// A second dispatch updates the existing device sequence.
	_, err = f.service.SendToDevice(t.Context(), f.learner, sequence.ID, nil)
	require.NoError(t, err)
	require.Len(t, f.device.uploads, 2)
	assert.Nil(t, f.device.uploads[0])
	require.NotNil(t, f.device.uploads[1])
	assert.Equal(t, 42, *f.device.uploads[1])

	assert.Contains(t, f.publisher.types(), events.SequenceDispatchedEvent)
}

func TestSequence_SendToDeviceGating(t *testing.T) {
	f := newFixture(t)
	sequence := f.create(t)

	_, err := f.service.SendToProcess(t.Context(), f.learner, sequence.ID, nil)
	require.NoError(t, err)

	actions := []models.Action{
		{Position: 1, Type: models.ActionTypeWait, Param: map[string]any{"milliseconds": 500}},
		{Position: 2, Type: models.ActionTypeWater, Param: map[string]any{"type": "write", "value": 1}},
		{Position: 3, Type: models.ActionTypeTakePhoto},
	}

	_, err = f.service.SendToDevice(t.Context(), f.learner, sequence.ID, &actions)
	require.Error(t, err)

	var resolutionErr *pins.ResolutionError
	require.ErrorAs(t, err, &resolutionErr)
	assert.Equal(t, "no_water_action_pin", resolutionErr.Code)

	var compileErr *compiler.CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, 1, compileErr.Index)

	stored, err := f.persistence.Sequences().GetByID(t.Context(), sequence.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SequenceStatusToProcess, stored.Status)
	assert.Empty(t, stored.Actions)
	assert.Nil(t, stored.DeviceSequenceID)
	assert.Empty(t, f.device.uploads)
}

func TestSequence_SendToDeviceFailures(t *testing.T) {
	f := newFixture(t)
	sequence := f.create(t, models.Action{Position: 1, Type: models.ActionTypeTakePhoto})

	f.tokens.err = &farmbot.DeviceAuthError{Status: 401, Err: farmbot.ErrDeviceAuth}

	_, err := f.service.SendToDevice(t.Context(), f.learner, sequence.ID, nil)
	assert.ErrorIs(t, err, farmbot.ErrDeviceAuth)

	f.tokens.err = nil
	f.device.uploadErr = &farmbot.DeviceAPIError{Op: "create_sequence", Status: 422, Err: farmbot.ErrDeviceAPI}

	_, err = f.service.SendToDevice(t.Context(), f.learner, sequence.ID, nil)
	assert.ErrorIs(t, err, farmbot.ErrDeviceAPI)

	stored, err := f.persistence.Sequences().GetByID(t.Context(), sequence.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SequenceStatusWIP, stored.Status)
	assert.Nil(t, stored.DeviceSequenceID)
}

func TestSequence_Delete(t *testing.T) {
	f := newFixture(t)
	sequence := f.create(t, models.Action{Position: 1, Type: models.ActionTypeTakePhoto})

	_, err := f.service.SendToDevice(t.Context(), f.learner, sequence.ID, nil)
	require.NoError(t, err)

	_, err = f.service.Delete(t.Context(), f.learner, sequence.ID)
	assert.True(t, services.IsNotFoundError(err))

	f.device.deleteErr = &farmbot.DeviceAPIError{Op: "delete_sequence", Status: 500, Err: farmbot.ErrDeviceAPI}

	result, err := f.service.Delete(t.Context(), f.admin, sequence.ID)
	require.NoError(t, err)
	assert.False(t, result.DeviceDeleted)
	assert.NotEmpty(t, result.DeviceError)
	require.NotNil(t, result.DeviceSequenceID)
	assert.Equal(t, 42, *result.DeviceSequenceID)
	assert.Equal(t, []int{42}, f.device.deletes)

	_, err = f.persistence.Sequences().GetByID(t.Context(), sequence.ID)
	assert.True(t, persistence.IsNotFound(err))
}

func TestSequence_DeleteWithoutDeviceCopy(t *testing.T) {
	f := newFixture(t)
	sequence := f.create(t)

	result, err := f.service.Delete(t.Context(), f.admin, sequence.ID)
	require.NoError(t, err)
	assert.Nil(t, result.DeviceSequenceID)
	assert.Empty(t, f.device.deletes)
	assert.Zero(t, f.tokens.calls)
}

func TestSequence_AddComment(t *testing.T) {
	f := newFixture(t)
	sequence := f.create(t)

	_, err := f.service.AddComment(t.Context(), f.learner, sequence.ID, "premier essai")
	require.NoError(t, err)

	comments, err := f.service.AddComment(t.Context(), f.admin, sequence.ID, "pense au temps d'attente")
	require.NoError(t, err)

	require.Len(t, comments, 2)
	assert.Equal(t, models.CommentAuthor{ID: f.learner.UserID, Pseudo: "marie"}, comments[0].User)
	assert.Equal(t, "prof", comments[1].User.Pseudo)

	_, err = f.service.AddComment(t.Context(), f.other, sequence.ID, "spam")
	assert.True(t, services.IsNotFoundError(err))
}

func TestSequence_PublishFailureDoesNotFailTransition(t *testing.T) {
	p := file.NewPersistence(t.TempDir())
	challenge := &models.Challenge{Title: "Semis", Active: true}
	require.NoError(t, p.Challenges().Save(t.Context(), challenge))

	caller := auth.Identity{UserID: "0197a1c2-0000-7000-8000-000000000003", Pseudo: "lea", Role: models.RoleUser}
	service := services.NewSequence(p, nil, &staticTokens{}, &fakeDevice{}, failingPublisher{}, slog.Default())

	sequence, err := service.Create(t.Context(), caller, services.CreateSequenceRequest{ChallengeID: challenge.ID})
	require.NoError(t, err)

	updated, err := service.SendToProcess(t.Context(), caller, sequence.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.SequenceStatusToProcess, updated.Status)
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, string, eventbus.Event) error {
	return errors.New("broker unavailable")
}
