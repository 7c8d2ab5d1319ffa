package model

import "strings"

// Namespace prefixes of the element types the rules know about.
const (
	// DomainNamespace is the namespace of clinical pathway elements.
	DomainNamespace = "cp"

	// HostNamespace is the namespace of the host's BPMN elements.
	HostNamespace = "bpmn"
)

// Kind is the closed set of element kinds recognized by the modeling rules.
type Kind int

const (
	// KindUnrecognized is any type outside the set below, including a missing node.
	KindUnrecognized Kind = iota

	// KindDecisionLogic is a clinical decision element (cp:DecisionLogic).
	KindDecisionLogic

	// KindEvidenceGateway is an evidence-based branching element (cp:EvidenceGateway).
	KindEvidenceGateway

	// KindConnection is the pathway connection between decision elements (cp:Connection).
	KindConnection

	// KindProcess is the host's process container (bpmn:Process).
	KindProcess

	// KindParticipant is the host's participant/lane container (bpmn:Participant).
	KindParticipant

	// KindCollaboration is the host's collaboration container (bpmn:Collaboration).
	KindCollaboration
)

var kindTypes = map[Kind]string{
	KindDecisionLogic:   "cp:DecisionLogic",
	KindEvidenceGateway: "cp:EvidenceGateway",
	KindConnection:      "cp:Connection",
	KindProcess:         "bpmn:Process",
	KindParticipant:     "bpmn:Participant",
	KindCollaboration:   "bpmn:Collaboration",
}

var typeKinds = func() map[string]Kind {
	m := make(map[string]Kind, len(kindTypes))
	for k, t := range kindTypes {
		m[t] = k
	}
	return m
}()

// Classify maps a raw element type string onto a Kind.
// Matching is exact; unknown types, including unknown types inside the
// cp namespace, classify as KindUnrecognized.
func Classify(typ string) Kind {
	if k, ok := typeKinds[typ]; ok {
		return k
	}
	return KindUnrecognized
}

// Type returns the namespaced type string of the kind, or "" for KindUnrecognized.
func (k Kind) Type() string {
	return kindTypes[k]
}

// Namespace returns the namespace prefix of the kind, or "" for KindUnrecognized.
func (k Kind) Namespace() string {
	ns, _, ok := strings.Cut(kindTypes[k], ":")
	if !ok {
		return ""
	}
	return ns
}

// IsDomain reports whether the kind belongs to the clinical pathway namespace.
func (k Kind) IsDomain() bool {
	return k.Namespace() == DomainNamespace
}

// IsContainer reports whether shapes may be dropped into elements of this kind.
func (k Kind) IsContainer() bool {
	switch k {
	case KindProcess, KindParticipant, KindCollaboration:
		return true
	}
	return false
}

// IsConnectable reports whether the kind can be an endpoint of a pathway connection.
func (k Kind) IsConnectable() bool {
	return k == KindDecisionLogic || k == KindEvidenceGateway
}

// String returns the type string, or "unrecognized".
func (k Kind) String() string {
	if t, ok := kindTypes[k]; ok {
		return t
	}
	return "unrecognized"
}
