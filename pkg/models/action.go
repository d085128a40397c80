// Package models defines the domain models shared by the sequence compiler, the lifecycle services and
// the persistence layer.
package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ActionType identifies the kind of step a learner puts in a sequence.
type ActionType string

const (
	ActionTypeFindHome     ActionType = "find_home"
	ActionTypeMoveAbsolute ActionType = "move_absolute"
	ActionTypeMoveRelative ActionType = "move_relative"
	ActionTypeTakePhoto    ActionType = "take_photo"
	ActionTypeWait         ActionType = "wait"
	ActionTypeWater        ActionType = "water"
	ActionTypeVacuum       ActionType = "vacuum"
	ActionTypeHumidity     ActionType = "humidity"
)

// IsPinAction reports whether the action is bound to a physical pin or sensor.
func (t ActionType) IsPinAction() bool {
	return t == ActionTypeWater || t == ActionTypeVacuum || t == ActionTypeHumidity
}

// Action is one step of a sequence as authored by the learner. Param is kept as the raw JSON object so
// the sequence round-trips exactly: an absent param stays nil and an empty one stays empty. Params decodes
// it into the variant matching Type.
type Action struct {
	Position int            `json:"position"`
	Type     ActionType     `json:"type"`
	Param    map[string]any `json:"param,omitzero"`
}

// ActionParams is the typed form of an action's param object. Exactly one implementation exists per
// action type.
type ActionParams interface {
	ActionType() ActionType
}

// FindHomeParams homes the robot on one axis.
type FindHomeParams struct {
	Axis any
}

func (FindHomeParams) ActionType() ActionType { return ActionTypeFindHome }

// TakePhotoParams carries nothing.
type TakePhotoParams struct{}

func (TakePhotoParams) ActionType() ActionType { return ActionTypeTakePhoto }

// WaitParams pauses the sequence.
type WaitParams struct {
	Milliseconds int
}

func (WaitParams) ActionType() ActionType { return ActionTypeWait }

// MoveCategory is the family a move field belongs to. The order of the constants is the order in which
// the compiler emits the fields.
type MoveCategory int

const (
	MoveCategoryValue MoveCategory = iota
	MoveCategoryOffset
	MoveCategoryVariance
	MoveCategorySpeed
)

var moveCategorySuffix = map[MoveCategory]string{
	MoveCategoryValue:    "_value",
	MoveCategoryOffset:   "_offset",
	MoveCategoryVariance: "_variance",
	MoveCategorySpeed:    "_speed",
}

// Axes are the three robot axes in emission order.
var Axes = []string{"x", "y", "z"}

// MoveField is one present `{axis}{suffix}` key of a move action.
type MoveField struct {
	Category MoveCategory
	Axis     string
	Value    int
}

// MoveParams holds the present move fields in emission order: category first, then axis.
type MoveParams struct {
	Relative bool
	Fields   []MoveField
}

func (p MoveParams) ActionType() ActionType {
	if p.Relative {
		return ActionTypeMoveRelative
	}

	return ActionTypeMoveAbsolute
}

// PinKind selects between reading and writing a pin.
type PinKind string

const (
	PinKindRead  PinKind = "read"
	PinKindWrite PinKind = "write"
)

// Command returns the device command kind for the pin operation.
func (k PinKind) Command() string {
	return string(k) + "_pin"
}

// PinParams describes a water, vacuum or humidity action.
type PinParams struct {
	Action ActionType
	Kind   PinKind
	// Value is only set for write actions.
	Value int
}

func (p PinParams) ActionType() ActionType { return p.Action }

// ParamError reports a param object that does not match its action type.
type ParamError struct {
	Action  ActionType
	Field   string
	Message string
}

func (e *ParamError) Error() string {
	return e.Message
}

// Params decodes the raw param object into the typed variant for the action type. It returns
// (nil, nil) for action types it does not know.
func (a Action) Params() (ActionParams, error) {
	if a.Type.IsPinAction() {
		return a.pinParams()
	}

	switch a.Type {
	case ActionTypeFindHome:
		value, ok := a.Param["value"]
		if !ok {
			return nil, missingParam(a.Type, "value")
		}

		return FindHomeParams{Axis: value}, nil
	case ActionTypeTakePhoto:
		return TakePhotoParams{}, nil
	case ActionTypeWait:
		ms, err := intParam(a, "milliseconds")
		if err != nil {
			return nil, err
		}

		return WaitParams{Milliseconds: ms}, nil
	case ActionTypeMoveAbsolute, ActionTypeMoveRelative:
		return a.moveParams()
	default:
		return nil, nil
	}
}

func (a Action) moveParams() (MoveParams, error) {
	params := MoveParams{Relative: a.Type == ActionTypeMoveRelative}

	for _, category := range []MoveCategory{MoveCategoryValue, MoveCategoryOffset, MoveCategoryVariance, MoveCategorySpeed} {
		// Relative moves are expressed with offsets only.
		if params.Relative && category == MoveCategoryValue {
			continue
		}

		for _, axis := range Axes {
			key := axis + moveCategorySuffix[category]
			if _, ok := a.Param[key]; !ok {
				continue
			}

			value, err := intParam(a, key)
			if err != nil {
				return MoveParams{}, err
			}

			params.Fields = append(params.Fields, MoveField{Category: category, Axis: axis, Value: value})
		}
	}

	return params, nil
}

func (a Action) pinParams() (PinParams, error) {
	if a.Param == nil {
		return PinParams{}, &ParamError{
			Action:  a.Type,
			Message: fmt.Sprintf("param not in %s action", a.Type),
		}
	}

	rawKind, ok := a.Param["type"]
	if !ok {
		return PinParams{}, &ParamError{
			Action:  a.Type,
			Field:   "type",
			Message: fmt.Sprintf("type not in %s action param", a.Type),
		}
	}

	kindStr, _ := rawKind.(string)
	kind := PinKind(strings.TrimSuffix(kindStr, "_pin"))

	switch kind {
	case PinKindRead:
		return PinParams{Action: a.Type, Kind: kind}, nil
	case PinKindWrite:
		value, err := intParam(a, "value")
		if err != nil {
			return PinParams{}, err
		}

		return PinParams{Action: a.Type, Kind: kind, Value: value}, nil
	default:
		return PinParams{}, &ParamError{
			Action:  a.Type,
			Field:   "type",
			Message: fmt.Sprintf("invalid type %q in %s action param", kindStr, a.Type),
		}
	}
}

func missingParam(action ActionType, field string) *ParamError {
	return &ParamError{
		Action:  action,
		Field:   field,
		Message: fmt.Sprintf("%s not in %s action param", field, action),
	}
}

func intParam(a Action, field string) (int, error) {
	raw, ok := a.Param[field]
	if !ok {
		return 0, missingParam(a.Type, field)
	}

	value, ok := ToInt(raw)
	if !ok {
		return 0, &ParamError{
			Action:  a.Type,
			Field:   field,
			Message: fmt.Sprintf("%s in %s action param is not a number", field, a.Type),
		}
	}

	return value, nil
}

// ToInt converts a JSON scalar to an int, truncating decimals. Numeric strings are accepted.
func ToInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}

		return int(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}

		f, err := n.Float64()
		if err != nil {
			return 0, false
		}

		return int(f), true
	case string:
		s := strings.TrimSpace(n)
		if i, err := strconv.Atoi(s); err == nil {
			return i, true
		}

		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}

		return int(f), true
	default:
		return 0, false
	}
}
