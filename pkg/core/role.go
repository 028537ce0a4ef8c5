// Package core defines the declarative role/task metadata model for agents.
package core

// Role is the capability descriptor attached to an agent type. The persona
// is the system-level voice the chat backend adopts for every operation of
// that type.
type Role struct {
	Name    string
	Persona string
}

// OutputFormat declares what an operation's response is expected to be.
type OutputFormat string

const (
	// OutputText means the raw completion content is the result.
	OutputText OutputFormat = "text"
	// OutputJSON means the completion content is expected to conform to the
	// operation's declared return schema. Conformance is a caller concern.
	OutputJSON OutputFormat = "json"
)

// Task is the capability descriptor attached to one operation of an agent
// type. Returns holds a prototype of the declared return shape; nil means
// the operation returns no structured value and no schema contract is added
// to the prompt.
type Task struct {
	Instructions string
	Output       OutputFormat
	Returns      any
}
