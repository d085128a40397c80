package compiler

import (
	"errors"
	"fmt"

	"github.com/incaya/farmbot-school-backend/pkg/farmbot"
	"github.com/incaya/farmbot-school-backend/pkg/models"
	"github.com/incaya/farmbot-school-backend/pkg/pins"
)

// Error codes for failures that do not carry their own.
const (
	CodeInvalidParam = "invalid_action_param"
	CodeDeviceAuth   = "device_auth_error"
	CodeDeviceAPI    = "device_api_error"
	CodeInternal     = "internal_error"
)

// CompileError is the failure of the first offending action. Err keeps the underlying error, so a pin
// resolution or device failure is still reachable with errors.As.
type CompileError struct {
	Index    int // index in the actions array
	Position int
	Type     models.ActionType
	Code     string
	Message  string
	Err      error
}

func (e *CompileError) Error() string {
	return e.Message
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

func newCompileError(action models.Action, err error) *CompileError {
	compileErr := &CompileError{
		Position: action.Position,
		Type:     action.Type,
		Message:  err.Error(),
		Err:      err,
	}

	var (
		paramErr      *models.ParamError
		resolutionErr *pins.ResolutionError
	)

	switch {
	case errors.As(err, &paramErr):
		compileErr.Code = CodeInvalidParam
	case errors.As(err, &resolutionErr):
		compileErr.Code = resolutionErr.Code
	case errors.Is(err, farmbot.ErrDeviceAuth):
		compileErr.Code = CodeDeviceAuth
	case errors.Is(err, farmbot.ErrDeviceAPI):
		compileErr.Code = CodeDeviceAPI
	default:
		compileErr.Code = CodeInternal
		compileErr.Message = fmt.Sprintf("failed to compile %s action", action.Type)
	}

	return compileErr
}
