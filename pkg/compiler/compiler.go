// Package compiler translates a learner's sequence into the command document uploaded to the device.
package compiler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/incaya/farmbot-school-backend/pkg/models"
	"github.com/incaya/farmbot-school-backend/pkg/otelhelper"
	"github.com/incaya/farmbot-school-backend/pkg/pins"
	"go.opentelemetry.io/otel/attribute"
)

// PinResolver maps a hardware action to its live device pin.
type PinResolver interface {
	Resolve(ctx context.Context, action string, kind models.PinKind) (*pins.ResolvedPin, error)
}

type Compiler struct {
	resolver PinResolver
	logger   *slog.Logger
}

func New(resolver PinResolver, logger *slog.Logger) *Compiler {
	return &Compiler{
		resolver: resolver,
		logger:   logger.With("module", "compiler"),
	}
}

// CompileAction returns the nodes of one action. Unknown action types yield no node and no error.
func (c *Compiler) CompileAction(ctx context.Context, action models.Action) ([]models.CommandNode, error) {
	params, err := action.Params()
	if err != nil {
		return nil, newCompileError(action, err)
	}

	switch p := params.(type) {
	case nil:
		c.logger.WarnContext(ctx, "skipping unknown action type", "type", action.Type, "position", action.Position)

		return nil, nil
	case models.FindHomeParams:
		return []models.CommandNode{findHomeNode(p)}, nil
	case models.TakePhotoParams:
		return []models.CommandNode{takePhotoNode()}, nil
	case models.WaitParams:
		return []models.CommandNode{waitNode(p)}, nil
	case models.MoveParams:
		return moveNodes(p), nil
	case models.PinParams:
		pin, err := c.resolver.Resolve(ctx, string(p.Action), p.Kind)
		if err != nil {
			return nil, newCompileError(action, err)
		}

		return []models.CommandNode{pinNode(p, pin)}, nil
	default:
		return nil, nil
	}
}

// Compile translates the actions in array order and stops at the first failure, returning no document.
// The document is named "<challenge title> / <pseudo>".
func (c *Compiler) Compile(ctx context.Context, sequence *models.Sequence, challengeTitle, pseudo string) (doc *models.Document, err error) {
	ctx, span := otelhelper.StartSpan(ctx, "compiler.compile",
		attribute.String(otelhelper.SequenceIDKey, sequence.ID),
		attribute.Int("farmbot_school.sequence.actions", len(sequence.Actions)))
	defer func() {
		_ = otelhelper.SetError(span, err)

		span.End()
	}()

	body := make([]models.CommandNode, 0, len(sequence.Actions))

	for i, action := range sequence.Actions {
		nodes, err := c.CompileAction(ctx, action)
		if err != nil {
			var compileErr *CompileError
			if errors.As(err, &compileErr) {
				compileErr.Index = i
			}

			span.SetAttributes(
				attribute.String(otelhelper.ActionTypeKey, string(action.Type)),
				attribute.Int(otelhelper.ActionPositionKey, action.Position),
			)

			return nil, err
		}

		body = append(body, nodes...)
	}

	return &models.Document{
		Name: challengeTitle + " / " + pseudo,
		Kind: models.DocumentKind,
		Body: body,
	}, nil
}
