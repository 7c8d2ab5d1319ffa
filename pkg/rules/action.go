package rules

import "fmt"

// Action is a modeling intent that needs authorization before the host executes it.
type Action int

const (
	// ActionUnknown is the zero value and never has rules.
	ActionUnknown Action = iota

	// ShapeCreate places a new shape into a container.
	ShapeCreate

	// ElementsMove moves one or more elements.
	ElementsMove

	// ConnectionCreate draws a new connection between two elements.
	ConnectionCreate

	// ConnectionReconnectStart drags the start of an existing connection to a new source.
	ConnectionReconnectStart

	// ConnectionReconnectEnd drags the end of an existing connection to a new target.
	ConnectionReconnectEnd
)

var actionNames = map[Action]string{
	ShapeCreate:              "shape.create",
	ElementsMove:             "elements.move",
	ConnectionCreate:         "connection.create",
	ConnectionReconnectStart: "connection.reconnectStart",
	ConnectionReconnectEnd:   "connection.reconnectEnd",
}

// Actions returns every known action in declaration order.
func Actions() []Action {
	return []Action{
		ShapeCreate,
		ElementsMove,
		ConnectionCreate,
		ConnectionReconnectStart,
		ConnectionReconnectEnd,
	}
}

// ParseAction maps a host action name such as "shape.create" onto an Action.
func ParseAction(name string) (Action, error) {
	for a, n := range actionNames {
		if n == name {
			return a, nil
		}
	}
	return ActionUnknown, fmt.Errorf("%w: %q", ErrUnknownAction, name)
}

// String returns the host action name.
func (a Action) String() string {
	if n, ok := actionNames[a]; ok {
		return n
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (a Action) MarshalText() ([]byte, error) {
	if _, ok := actionNames[a]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAction, int(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Action) UnmarshalText(text []byte) error {
	parsed, err := ParseAction(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
