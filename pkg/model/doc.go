// Package model describes the slice of the host editor's element graph that the
// modeling rules read.
//
// The host owns every element: it creates, connects and destroys nodes, and it
// builds a Context for each modeling action awaiting authorization. This package
// only gives those values a shape so rules can inspect them. Nothing here
// mutates a node or keeps a reference to one after a call returns.
//
// # Element kinds
//
// Raw type strings such as "cp:DecisionLogic" or "bpmn:Process" are mapped onto
// a closed Kind enumeration by Classify. Types this package does not know about
// classify as KindUnrecognized, which every rule treats as "not mine":
//
//	switch model.Classify(node.Type) {
//	case model.KindDecisionLogic, model.KindEvidenceGateway:
//	    // clinical pathway element
//	case model.KindUnrecognized:
//	    // leave it to the host
//	}
package model
