// Package farmbot talks to the FarmBot web API: authentication, pin listing and sequence upload. It also
// owns the device token cache shared by every compile.
package farmbot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/incaya/farmbot-school-backend/pkg/models"
	"github.com/incaya/farmbot-school-backend/pkg/otelhelper"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
)

const DefaultTimeout = 10 * time.Second

// Config holds the device API location and the vendor credentials.
type Config struct {
	BaseURL  string
	Email    string
	Password string
	Timeout  time.Duration
}

// Client performs one round trip per call against the device API. Nothing is retried.
type Client struct {
	baseURL  string
	email    string
	password string
	http     *http.Client
	logger   *slog.Logger
}

// NewClient creates a device API client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		email:    cfg.Email,
		password: cfg.Password,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		},
		logger: logger.With("module", "farmbot_client"),
	}
}

type tokenRequest struct {
	User struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	} `json:"user"`
}

type tokenResponse struct {
	Token *struct {
		Encoded   string `json:"encoded"`
		Unencoded struct {
			Exp int64 `json:"exp"`
		} `json:"unencoded"`
	} `json:"token"`
}

// Authenticate exchanges the vendor credentials for a fresh token.
func (c *Client) Authenticate(ctx context.Context) (token *models.DeviceToken, err error) {
	ctx, span := otelhelper.StartSpan(ctx, "farmbot.authenticate",
		attribute.String(otelhelper.DeviceOperationKey, "authenticate"))
	defer func() {
		_ = otelhelper.SetError(span, err)

		span.End()
	}()

	var body tokenRequest
	body.User.Email = c.email
	body.User.Password = c.password

	status, raw, err := c.do(ctx, http.MethodPost, "/tokens", "", body)
	if err != nil {
		return nil, &DeviceAuthError{Err: err}
	}

	var response tokenResponse

	decodeErr := json.Unmarshal(raw, &response)
	if status < 200 || status > 299 || decodeErr != nil || response.Token == nil || response.Token.Encoded == "" {
		c.logger.WarnContext(ctx, "device authentication rejected", "status", status)

		return nil, &DeviceAuthError{Status: status, Payload: payload(raw)}
	}

	return &models.DeviceToken{
		Token:     response.Token.Encoded,
		ExpiresAt: time.Unix(response.Token.Unencoded.Exp, 0).UTC(),
	}, nil
}

// ListPins returns the live descriptors of one material collection (peripherals or sensors).
func (c *Client) ListPins(ctx context.Context, token string, materialType models.MaterialType) (pins []models.DevicePin, err error) {
	op := "list_" + materialType.Resource()

	ctx, span := otelhelper.StartSpan(ctx, "farmbot.list_pins",
		attribute.String(otelhelper.DeviceOperationKey, op))
	defer func() {
		_ = otelhelper.SetError(span, err)

		span.End()
	}()

	err = c.call(ctx, op, http.MethodGet, "/"+materialType.Resource(), token, nil, &pins)
	if err != nil {
		return nil, err
	}

	return pins, nil
}

type sequenceResponse struct {
	ID *int `json:"id"`
}

// CreateOrUpdateSequence uploads a compiled document. It updates the device sequence when id is set and
// creates one otherwise, returning the device-side id.
func (c *Client) CreateOrUpdateSequence(ctx context.Context, token string, doc *models.Document, id *int) (deviceID int, err error) {
	op, method, path := "create_sequence", http.MethodPost, "/sequences"
	if id != nil {
		op, method, path = "update_sequence", http.MethodPut, "/sequences/"+strconv.Itoa(*id)
	}

	ctx, span := otelhelper.StartSpan(ctx, "farmbot."+op, attribute.String(otelhelper.DeviceOperationKey, op))
	defer func() {
		_ = otelhelper.SetError(span, err)

		span.End()
	}()

	var response sequenceResponse

	err = c.call(ctx, op, method, path, token, doc, &response)
	if err != nil {
		return 0, err
	}

	if response.ID == nil {
		return 0, &DeviceAPIError{Op: op, Err: errMissingID}
	}

	span.SetAttributes(attribute.Int(otelhelper.DeviceSequenceIDKey, *response.ID))

	return *response.ID, nil
}

// DeleteSequence removes a device sequence.
func (c *Client) DeleteSequence(ctx context.Context, token string, id int) (err error) {
	ctx, span := otelhelper.StartSpan(ctx, "farmbot.delete_sequence",
		attribute.String(otelhelper.DeviceOperationKey, "delete_sequence"),
		attribute.Int(otelhelper.DeviceSequenceIDKey, id))
	defer func() {
		_ = otelhelper.SetError(span, err)

		span.End()
	}()

	return c.call(ctx, "delete_sequence", http.MethodDelete, "/sequences/"+strconv.Itoa(id), token, nil, nil)
}

var errMissingID = errors.New("response has no id")

// call runs a request and decodes a 2xx JSON body into out when out is non-nil.
func (c *Client) call(ctx context.Context, op, method, path, token string, in, out any) error {
	status, raw, err := c.do(ctx, method, path, token, in)
	if err != nil {
		return &DeviceAPIError{Op: op, Err: err}
	}

	if status < 200 || status > 299 {
		c.logger.WarnContext(ctx, "device api call failed", "operation", op, "status", status)

		return &DeviceAPIError{Op: op, Status: status, Payload: payload(raw)}
	}

	if out == nil {
		return nil
	}

	err = json.Unmarshal(raw, out)
	if err != nil {
		return &DeviceAPIError{Op: op, Status: status, Payload: payload(raw), Err: fmt.Errorf("malformed response: %w", err)}
	}

	return nil
}

func (c *Client) do(ctx context.Context, method, path, token string, in any) (int, []byte, error) {
	var body io.Reader

	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
		}

		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create http request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.logger.DebugContext(ctx, "calling device api", "method", method, "path", path)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("http request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return resp.StatusCode, raw, nil
}

// payload decodes a provider body for error reporting, falling back to the raw text.
func payload(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}

	var decoded any

	err := json.Unmarshal(raw, &decoded)
	if err != nil {
		return string(raw)
	}

	return decoded
}
