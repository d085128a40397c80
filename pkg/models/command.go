package models

// DocumentKind is the kind of every compiled document sent to the device.
const DocumentKind = "sequence"

// CommandNode is one node of the device command tree. Args values are scalars, maps or nested nodes.
type CommandNode struct {
	Kind string         `json:"kind"`
	Args map[string]any `json:"args"`
	Body []CommandNode  `json:"body,omitempty"`
}

// Document is the compiled form of a sequence, ready for the device sequence endpoint.
type Document struct {
	Name string        `json:"name"`
	Kind string        `json:"kind"`
	Body []CommandNode `json:"body"`
}
