package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Outcome is the three-way result of a decision function.
type Outcome int

const (
	// OutcomeDefer means no opinion; later providers decide.
	OutcomeDefer Outcome = iota

	// OutcomeAllow permits the action.
	OutcomeAllow

	// OutcomeDeny rejects the action.
	OutcomeDeny
)

// String returns "defer", "allow" or "deny".
func (o Outcome) String() string {
	switch o {
	case OutcomeAllow:
		return "allow"
	case OutcomeDeny:
		return "deny"
	default:
		return "defer"
	}
}

// Verdict is what a decision function returns for one action.
// The zero value is a Defer.
type Verdict struct {
	Outcome Outcome

	// ConnectionType qualifies an allow: the host materializes the new edge
	// as this connection type instead of a generic one.
	ConnectionType string
}

// Defer returns the "no opinion" verdict.
func Defer() Verdict { return Verdict{} }

// Allow returns an unconditional allow.
func Allow() Verdict { return Verdict{Outcome: OutcomeAllow} }

// Deny returns an unconditional deny.
func Deny() Verdict { return Verdict{Outcome: OutcomeDeny} }

// AllowAs returns an allow qualified with the connection type to create.
func AllowAs(connectionType string) Verdict {
	return Verdict{Outcome: OutcomeAllow, ConnectionType: connectionType}
}

// IsDefer reports whether the verdict leaves the decision to other providers.
func (v Verdict) IsDefer() bool { return v.Outcome == OutcomeDefer }

// IsQualified reports whether the verdict is an allow carrying a connection type.
func (v Verdict) IsQualified() bool {
	return v.Outcome == OutcomeAllow && v.ConnectionType != ""
}

// Permits resolves the verdict to a yes/no answer. A Defer resolves to fallback.
func (v Verdict) Permits(fallback bool) bool {
	switch v.Outcome {
	case OutcomeAllow:
		return true
	case OutcomeDeny:
		return false
	default:
		return fallback
	}
}

// Label is a low-cardinality name for metrics and audit records:
// "allow", "deny", "defer" or "qualified".
func (v Verdict) Label() string {
	if v.IsQualified() {
		return "qualified"
	}
	return v.Outcome.String()
}

// String renders the verdict for humans, e.g. "allow(cp:Connection)".
func (v Verdict) String() string {
	if v.IsQualified() {
		return fmt.Sprintf("allow(%s)", v.ConnectionType)
	}
	return v.Outcome.String()
}

type qualifiedJSON struct {
	Type string `json:"type" yaml:"type"`
}

// MarshalJSON encodes the verdict in the host's shape:
// null (defer), true, false or {"type": "..."}.
func (v Verdict) MarshalJSON() ([]byte, error) {
	switch {
	case v.IsQualified():
		return json.Marshal(qualifiedJSON{Type: v.ConnectionType})
	case v.Outcome == OutcomeAllow:
		return []byte("true"), nil
	case v.Outcome == OutcomeDeny:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

// MarshalYAML encodes the verdict in the same shape as MarshalJSON.
func (v Verdict) MarshalYAML() (any, error) {
	switch {
	case v.IsQualified():
		return qualifiedJSON{Type: v.ConnectionType}, nil
	case v.Outcome == OutcomeAllow:
		return true, nil
	case v.Outcome == OutcomeDeny:
		return false, nil
	default:
		return nil, nil
	}
}

// UnmarshalJSON decodes the host's verdict shape.
func (v *Verdict) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "null", "":
		*v = Defer()
		return nil
	case "true":
		*v = Allow()
		return nil
	case "false":
		*v = Deny()
		return nil
	}

	var q qualifiedJSON
	if err := json.Unmarshal(data, &q); err != nil {
		return fmt.Errorf("invalid verdict %s: %w", data, err)
	}
	if q.Type == "" {
		return fmt.Errorf("invalid verdict %s: qualified verdict requires a type", data)
	}
	*v = AllowAs(q.Type)
	return nil
}

// ParseVerdict builds a verdict from an outcome name ("allow", "deny",
// "defer") and an optional connection type, as written in scenario files.
func ParseVerdict(outcome, connectionType string) (Verdict, error) {
	switch outcome {
	case "allow":
		return Verdict{Outcome: OutcomeAllow, ConnectionType: connectionType}, nil
	case "deny":
		if connectionType != "" {
			return Verdict{}, fmt.Errorf("connection type %q is only valid with allow", connectionType)
		}
		return Deny(), nil
	case "defer", "":
		if connectionType != "" {
			return Verdict{}, fmt.Errorf("connection type %q is only valid with allow", connectionType)
		}
		return Defer(), nil
	default:
		return Verdict{}, fmt.Errorf("unknown verdict %q: must be allow, deny or defer", outcome)
	}
}
