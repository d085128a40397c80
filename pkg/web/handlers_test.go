package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/incaya/farmbot-school-backend/pkg/auth"
	"github.com/incaya/farmbot-school-backend/pkg/compiler"
	"github.com/incaya/farmbot-school-backend/pkg/farmbot"
	"github.com/incaya/farmbot-school-backend/pkg/models"
	"github.com/incaya/farmbot-school-backend/pkg/persistence"
	"github.com/incaya/farmbot-school-backend/pkg/persistence/file"
	"github.com/incaya/farmbot-school-backend/pkg/pins"
	"github.com/incaya/farmbot-school-backend/pkg/services"
	"github.com/incaya/farmbot-school-backend/pkg/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type stubTokens struct {
	err error
}

func (s stubTokens) GetValidToken(context.Context) (*models.DeviceToken, error) {
	if s.err != nil {
		return nil, s.err
	}

	return &models.DeviceToken{Token: "device-token", ExpiresAt: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}, nil
}

type stubDevice struct {
	deleteErr error
}

func (stubDevice) ListPins(context.Context, string, models.MaterialType) ([]models.DevicePin, error) {
	return []models.DevicePin{{ID: 51, Pin: 9, Mode: 0, Label: "Water"}}, nil
}

func (stubDevice) CreateOrUpdateSequence(context.Context, string, *models.Document, *int) (int, error) {
	return 77, nil
}

func (d stubDevice) DeleteSequence(context.Context, string, int) error {
	return d.deleteErr
}

type testEnv struct {
	app         *fiber.App
	persistence persistence.Persistence
	challenge   *models.Challenge
	learner     *models.User
	admin       *models.User
}

func setupTestApp(t *testing.T, tokens stubTokens, device stubDevice) *testEnv {
	t.Helper()

	p := file.NewPersistence(t.TempDir())
	logger := slog.Default()

	resolver := pins.NewResolver(p.Pins(), tokens, device, logger)
	handlers := web.NewAPIHandlers(
		services.NewSequence(p, compiler.New(resolver, logger), tokens, device, nil, logger),
		services.NewPin(p, logger),
		services.NewChallenge(p, logger),
		services.NewDevice(tokens, logger),
		validator.New(validator.WithRequiredStructEnabled()),
	)

	app := fiber.New()
	app.Get("/health", handlers.HealthCheck)
	web.Mount(app, handlers, testSecret)

	env := &testEnv{
		app:         app,
		persistence: p,
		challenge:   &models.Challenge{Title: "Arrosage", Active: true},
		learner:     &models.User{Pseudo: "marie", Email: "marie@example.org", Role: models.RoleUser},
		admin:       &models.User{Pseudo: "prof", Email: "prof@example.org", Role: models.RoleAdmin},
	}

	require.NoError(t, p.Challenges().Save(t.Context(), env.challenge))
	require.NoError(t, p.Users().Save(t.Context(), env.learner))
	require.NoError(t, p.Users().Save(t.Context(), env.admin))

	return env
}

func bearer(t *testing.T, user *models.User) string {
	t.Helper()

	token, err := auth.GenerateToken(user, testSecret, time.Hour)
	require.NoError(t, err)

	return "Bearer " + token
}

func (env *testEnv) do(t *testing.T, method, path string, user *models.User, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader

	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	if user != nil {
		req.Header.Set("Authorization", bearer(t, user))
	}

	resp, err := env.app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, data
}

func (env *testEnv) createSequence(t *testing.T, actions []map[string]any) models.Sequence {
	t.Helper()

	status, body := env.do(t, http.MethodPost, "/sequences", env.learner, map[string]any{
		"challenge_id": env.challenge.ID,
		"actions":      actions,
	})
	require.Equal(t, http.StatusCreated, status, string(body))

	var sequence models.Sequence
	require.NoError(t, json.Unmarshal(body, &sequence))

	return sequence
}

func problemType(t *testing.T, body []byte) string {
	t.Helper()

	var problem struct {
		Type string `json:"type"`
	}
	require.NoError(t, json.Unmarshal(body, &problem))

	return problem.Type
}

func TestAPIHandlers_Authentication(t *testing.T) {
	env := setupTestApp(t, stubTokens{}, stubDevice{})

	status, _ := env.do(t, http.MethodGet, "/sequences", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	req := httptest.NewRequest(http.MethodGet, "/sequences", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.NoError(t, resp.Body.Close())

	status, _ = env.do(t, http.MethodGet, "/pins", env.learner, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = env.do(t, http.MethodGet, "/pins", env.admin, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestAPIHandlers_CreateSequence(t *testing.T) {
	env := setupTestApp(t, stubTokens{}, stubDevice{})

	tests := []struct {
		name           string
		body           map[string]any
		expectedStatus int
		expectedDetail string
	}{
		{
			name:           "missing challenge",
			body:           map[string]any{"actions": []any{}},
			expectedStatus: http.StatusBadRequest,
			expectedDetail: "challenge_id",
		},
		{
			name:           "actions not an array",
			body:           map[string]any{"challenge_id": env.challenge.ID, "actions": "wait"},
			expectedStatus: http.StatusBadRequest,
			expectedDetail: "invalid actions",
		},
		{
			name: "action without type",
			body: map[string]any{
				"challenge_id": env.challenge.ID,
				"actions":      []any{map[string]any{"position": 1}},
			},
			expectedStatus: http.StatusBadRequest,
			expectedDetail: "type",
		},
		{
			name:           "unknown challenge",
			body:           map[string]any{"challenge_id": "0197a1c2-0000-7000-8000-00000000ffff"},
			expectedStatus: http.StatusBadRequest,
			expectedDetail: "challenge_id",
		},
		{
			name: "created",
			body: map[string]any{
				"challenge_id": env.challenge.ID,
				"actions":      []any{map[string]any{"position": 1, "type": "take_photo"}},
			},
			expectedStatus: http.StatusCreated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := env.do(t, http.MethodPost, "/sequences", env.learner, tt.body)
			assert.Equal(t, tt.expectedStatus, status, string(body))

			if tt.expectedDetail != "" {
				assert.Contains(t, string(body), tt.expectedDetail)
			}
		})
	}
}

func TestAPIHandlers_SequenceWireFormat(t *testing.T) {
	env := setupTestApp(t, stubTokens{}, stubDevice{})
	sequence := env.createSequence(t, []map[string]any{{"position": 1, "type": "wait", "param": map[string]any{"milliseconds": 1500}}})

	status, body := env.do(t, http.MethodGet, "/sequences/"+sequence.ID, env.learner, nil)
	require.Equal(t, http.StatusOK, status)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(body, &raw))

	assert.Equal(t, map[string]any{"code": "WIP", "label": "En cours"}, raw["status"])
	assert.Nil(t, raw["fb_seq_id"])
	assert.Equal(t, []any{map[string]any{"position": float64(1), "type": "wait", "param": map[string]any{"milliseconds": float64(1500)}}}, raw["actions"])
	assert.Equal(t, []any{}, raw["comments"])
}

func TestAPIHandlers_OwnershipIsNotFound(t *testing.T) {
	env := setupTestApp(t, stubTokens{}, stubDevice{})
	sequence := env.createSequence(t, nil)

	other := &models.User{Pseudo: "paul", Email: "paul@example.org", Role: models.RoleUser}
	require.NoError(t, env.persistence.Users().Save(t.Context(), other))

	status, body := env.do(t, http.MethodGet, "/sequences/"+sequence.ID, other, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", problemType(t, body))

	status, _ = env.do(t, http.MethodGet, "/sequences/0197a1c2-0000-7000-8000-00000000ffff", other, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = env.do(t, http.MethodGet, "/sequences", other, nil)
	require.Equal(t, http.StatusOK, status)

	var list web.ListSequencesResponse
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Empty(t, list.Sequences)
}

func TestAPIHandlers_SendToDeviceWithoutPin(t *testing.T) {
	env := setupTestApp(t, stubTokens{}, stubDevice{})
	sequence := env.createSequence(t, []map[string]any{
		{"position": 1, "type": "wait", "param": map[string]any{"milliseconds": 500}},
		{"position": 2, "type": "water", "param": map[string]any{"type": "write", "value": 1}},
	})

	status, body := env.do(t, http.MethodPut, "/sequences/"+sequence.ID+"/process-wip", env.learner, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "no_water_action_pin", problemType(t, body))

	stored, err := env.persistence.Sequences().GetByID(t.Context(), sequence.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SequenceStatusWIP, stored.Status)
}

func TestAPIHandlers_SendToDevice(t *testing.T) {
	env := setupTestApp(t, stubTokens{}, stubDevice{})
	require.NoError(t, env.persistence.Pins().Save(t.Context(), &models.PinEntry{
		MaterialType: models.MaterialTypePeripheral, MaterialID: 9, Action: "water",
	}))

	sequence := env.createSequence(t, nil)

	status, body := env.do(t, http.MethodPut, "/sequences/"+sequence.ID+"/process-wip", env.learner, map[string]any{
		"actions": []any{map[string]any{"position": 1, "type": "water", "param": map[string]any{"type": "read"}}},
	})
	require.Equal(t, http.StatusOK, status, string(body))

	var raw map[string]any
	require.NoError(t, json.Unmarshal(body, &raw))

	assert.Equal(t, float64(77), raw["fb_seq_id"])
	assert.Equal(t, "PROCESS_WIP", raw["status"].(map[string]any)["code"])
	assert.JSONEq(t, `{
		"name": "Arrosage / marie",
		"kind": "sequence",
		"body": [{"kind": "read_pin", "args": {
			"pin_number": {"kind": "named_pin", "args": {"pin_type": "Peripheral", "pin_id": 51}},
			"pin_mode": 0,
			"label": "Water"
		}}]
	}`, mustJSON(t, raw["celery"]))
}

func TestAPIHandlers_DeviceFailures(t *testing.T) {
	authErr := &farmbot.DeviceAuthError{Status: 422, Payload: map[string]any{"auth": "bad credentials"}}
	env := setupTestApp(t, stubTokens{err: authErr}, stubDevice{})
	sequence := env.createSequence(t, []map[string]any{{"position": 1, "type": "take_photo"}})

	status, body := env.do(t, http.MethodPut, "/sequences/"+sequence.ID+"/process-wip", env.learner, nil)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, "device_auth_error", problemType(t, body))

	var problem struct {
		Extensions struct {
			Payload map[string]any `json:"payload"`
		} `json:"extensions"`
	}
	require.NoError(t, json.Unmarshal(body, &problem))
	assert.Equal(t, map[string]any{"auth": "bad credentials"}, problem.Extensions.Payload)

	status, body = env.do(t, http.MethodPost, "/farmbot/token", env.admin, nil)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, "device_auth_error", problemType(t, body))
}

func TestAPIHandlers_StatusTransitionsAndComments(t *testing.T) {
	env := setupTestApp(t, stubTokens{}, stubDevice{})
	sequence := env.createSequence(t, nil)

	status, body := env.do(t, http.MethodPut, "/sequences/"+sequence.ID+"/to-process", env.learner, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Contains(t, string(body), `"code":"TO_PROCESS"`)

	status, body = env.do(t, http.MethodPut, "/sequences/"+sequence.ID+"/processed", env.admin, map[string]any{
		"actions": []any{map[string]any{"position": 1, "type": "take_photo"}},
	})
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Contains(t, string(body), `"code":"PROCESSED"`)

	status, body = env.do(t, http.MethodPost, "/sequences/"+sequence.ID+"/comments", env.admin, map[string]any{"comment": "bravo"})
	require.Equal(t, http.StatusCreated, status, string(body))
	assert.JSONEq(t, `[{"user": {"id": "`+env.admin.ID+`", "pseudo": "prof"}, "comment": "bravo"}]`, string(body))

	status, _ = env.do(t, http.MethodPost, "/sequences/"+sequence.ID+"/comments", env.admin, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAPIHandlers_DeleteSequence(t *testing.T) {
	deviceErr := &farmbot.DeviceAPIError{Op: "delete_sequence", Status: 500}
	env := setupTestApp(t, stubTokens{}, stubDevice{deleteErr: deviceErr})
	sequence := env.createSequence(t, []map[string]any{{"position": 1, "type": "take_photo"}})

	status, _ := env.do(t, http.MethodPut, "/sequences/"+sequence.ID+"/process-wip", env.learner, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = env.do(t, http.MethodDelete, "/sequences/"+sequence.ID, env.learner, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body := env.do(t, http.MethodDelete, "/sequences/"+sequence.ID, env.admin, nil)
	require.Equal(t, http.StatusOK, status, string(body))

	var result services.Deletion
	require.NoError(t, json.Unmarshal(body, &result))
	assert.False(t, result.DeviceDeleted)
	assert.NotEmpty(t, result.DeviceError)

	status, _ = env.do(t, http.MethodGet, "/sequences/"+sequence.ID, env.admin, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPIHandlers_Pins(t *testing.T) {
	env := setupTestApp(t, stubTokens{}, stubDevice{})

	status, body := env.do(t, http.MethodPost, "/pins", env.admin, map[string]any{
		"material_type": "PERIPHERAL", "material_id": 9, "action": "water",
	})
	require.Equal(t, http.StatusCreated, status, string(body))

	var pin models.PinEntry
	require.NoError(t, json.Unmarshal(body, &pin))

	status, body = env.do(t, http.MethodPost, "/pins", env.admin, map[string]any{
		"material_type": "SENSOR", "material_id": 9, "action": "humidity",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "conflict", problemType(t, body))

	status, body = env.do(t, http.MethodPost, "/pins", env.admin, map[string]any{
		"material_type": "SENSOR", "action": "humidity",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(body), "material_id")

	status, body = env.do(t, http.MethodPost, "/pins", env.admin, map[string]any{
		"material_type": "SENSOR", "material_id": 0, "action": "humidity",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", problemType(t, body))

	status, _ = env.do(t, http.MethodDelete, "/pins/"+pin.ID, env.admin, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = env.do(t, http.MethodGet, "/pins/"+pin.ID, env.admin, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPIHandlers_Challenges(t *testing.T) {
	env := setupTestApp(t, stubTokens{}, stubDevice{})

	body := map[string]any{"title": "Semis", "end_date": "2026-12-01T00:00:00Z", "active": false}

	status, _ := env.do(t, http.MethodPost, "/challenges", env.learner, body)
	assert.Equal(t, http.StatusForbidden, status)

	status, data := env.do(t, http.MethodPost, "/challenges", env.admin, body)
	require.Equal(t, http.StatusCreated, status, string(data))

	status, data = env.do(t, http.MethodGet, "/challenges?active=true", env.learner, nil)
	require.Equal(t, http.StatusOK, status)

	var list struct {
		Challenges []models.Challenge `json:"challenges"`
	}
	require.NoError(t, json.Unmarshal(data, &list))
	require.Len(t, list.Challenges, 1)
	assert.Equal(t, "Arrosage", list.Challenges[0].Title)
}

func TestAPIHandlers_AdminGuards(t *testing.T) {
	env := setupTestApp(t, stubTokens{}, stubDevice{})
	sequence := env.createSequence(t, nil)

	tests := []struct {
		name       string
		method     string
		path       string
		user       *models.User
		body       any
		wantStatus int
		wantType   string
	}{
		{"learner creates challenge", http.MethodPost, "/challenges", env.learner,
			map[string]any{"title": "Semis", "end_date": "2026-12-01T00:00:00Z", "active": true},
			http.StatusForbidden, "forbidden"},
		{"learner deletes sequence", http.MethodDelete, "/sequences/" + sequence.ID, env.learner, nil,
			http.StatusForbidden, "forbidden"},
		{"learner refreshes device token", http.MethodPost, "/farmbot/token", env.learner, nil,
			http.StatusForbidden, "forbidden"},
		{"anonymous refreshes device token", http.MethodPost, "/farmbot/token", nil, nil,
			http.StatusUnauthorized, "unauthorized"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := env.do(t, tt.method, tt.path, tt.user, tt.body)
			assert.Equal(t, tt.wantStatus, status, string(body))
			assert.Equal(t, tt.wantType, problemType(t, body))
		})
	}

	status, _ := env.do(t, http.MethodGet, "/sequences/"+sequence.ID, env.learner, nil)
	assert.Equal(t, http.StatusOK, status)

	status, body := env.do(t, http.MethodPost, "/farmbot/token", env.admin, nil)
	require.Equal(t, http.StatusOK, status, string(body))

	var token web.DeviceTokenResponse
	require.NoError(t, json.Unmarshal(body, &token))
	assert.Equal(t, "device-token", token.Token)
}

func TestAPIHandlers_HealthCheck(t *testing.T) {
	env := setupTestApp(t, stubTokens{}, stubDevice{})

	status, body := env.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"status":"healthy"`)
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()

	data, err := json.Marshal(v)
	require.NoError(t, err)

	return string(data)
}
