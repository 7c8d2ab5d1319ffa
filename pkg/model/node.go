package model

import "strconv"

// Node is an element of the host's graph as seen by the rules.
// Connections are nodes too; for them Source and Target point at the
// connected elements.
type Node struct {
	ID             string          `json:"id,omitempty" yaml:"id,omitempty"`
	Type           string          `json:"type" yaml:"type"`
	BusinessObject *BusinessObject `json:"businessObject,omitempty" yaml:"businessObject,omitempty"`

	Source *Node `json:"source,omitempty" yaml:"source,omitempty"`
	Target *Node `json:"target,omitempty" yaml:"target,omitempty"`
}

// Kind classifies the node's type. A nil node is KindUnrecognized.
func (n *Node) Kind() Kind {
	if n == nil {
		return KindUnrecognized
	}
	return Classify(n.Type)
}

// TypeName returns the raw type string, or "" for a nil node.
func (n *Node) TypeName() string {
	if n == nil {
		return ""
	}
	return n.Type
}

// BusinessObject carries the semantic attributes of an element, including
// vendor extension attributes such as "vendor:allowDrop".
type BusinessObject struct {
	ID    string            `json:"id,omitempty" yaml:"id,omitempty"`
	Type  string            `json:"$type,omitempty" yaml:"type,omitempty"`
	Name  string            `json:"name,omitempty" yaml:"name,omitempty"`
	Attrs map[string]string `json:"$attrs,omitempty" yaml:"attrs,omitempty"`
}

// Attr returns an extension attribute. It is safe on a nil receiver.
func (bo *BusinessObject) Attr(name string) (string, bool) {
	if bo == nil || bo.Attrs == nil {
		return "", false
	}
	v, ok := bo.Attrs[name]
	return v, ok
}

// Flag interprets an extension attribute as a boolean.
// Missing or unparsable values are false.
func (bo *BusinessObject) Flag(name string) bool {
	v, ok := bo.Attr(name)
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
