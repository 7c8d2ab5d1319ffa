package model

// Context is the payload the host attaches to a modeling action.
// Which fields are set depends on the action; rules must treat every
// field as optional.
type Context struct {
	// Shape is the element being created or moved.
	Shape *Node `json:"shape,omitempty" yaml:"shape,omitempty"`

	// Target is the drop container for shape actions and the target
	// endpoint for connection actions.
	Target *Node `json:"target,omitempty" yaml:"target,omitempty"`

	// Source is the source endpoint for connection actions.
	Source *Node `json:"source,omitempty" yaml:"source,omitempty"`

	// Connection is the existing edge during reconnects.
	Connection *Node `json:"connection,omitempty" yaml:"connection,omitempty"`

	// Hover is the element under the pointer, if any.
	Hover *Node `json:"hover,omitempty" yaml:"hover,omitempty"`
}
