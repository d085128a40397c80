package compiler

import (
	"github.com/incaya/farmbot-school-backend/pkg/models"
	"github.com/incaya/farmbot-school-backend/pkg/pins"
)

// HomeSpeed is the speed of every find_home command.
const HomeSpeed = 100

func findHomeNode(p models.FindHomeParams) models.CommandNode {
	return models.CommandNode{
		Kind: "find_home",
		Args: map[string]any{"axis": p.Axis, "speed": HomeSpeed},
	}
}

func takePhotoNode() models.CommandNode {
	return models.CommandNode{Kind: "take_photo", Args: map[string]any{}}
}

func waitNode(p models.WaitParams) models.CommandNode {
	return models.CommandNode{Kind: "wait", Args: map[string]any{"milliseconds": p.Milliseconds}}
}

// moveNodes emits one node per present field, in the order decoded by models.Action.Params.
func moveNodes(p models.MoveParams) []models.CommandNode {
	nodes := make([]models.CommandNode, 0, len(p.Fields))

	for _, field := range p.Fields {
		kind, argKey := "axis_addition", "axis_operand"

		switch field.Category {
		case models.MoveCategoryValue:
			if !p.Relative {
				kind = "axis_overwrite"
			}
		case models.MoveCategorySpeed:
			kind, argKey = "speed_overwrite", "speed_setting"
		}

		operand := models.CommandNode{Kind: "numeric", Args: map[string]any{"number": field.Value}}
		if field.Category == models.MoveCategoryVariance {
			operand = models.CommandNode{Kind: "random", Args: map[string]any{"variance": field.Value}}
		}

		nodes = append(nodes, models.CommandNode{
			Kind: kind,
			Args: map[string]any{"axis": field.Axis, argKey: operand},
		})
	}

	return nodes
}

func pinNode(p models.PinParams, pin *pins.ResolvedPin) models.CommandNode {
	args := map[string]any{
		"pin_number": models.CommandNode{
			Kind: "named_pin",
			Args: map[string]any{"pin_type": pin.MaterialType.Label(), "pin_id": pin.ID},
		},
		"pin_mode": pin.Mode,
	}

	if p.Kind == models.PinKindWrite {
		args["pin_value"] = p.Value
	} else {
		args["label"] = pin.Label
	}

	return models.CommandNode{Kind: p.Kind.Command(), Args: args}
}
