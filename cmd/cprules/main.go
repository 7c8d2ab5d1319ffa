// cprules authorizes clinical pathway modeling actions.
//
// It evaluates the modeling rules for diagram editors: which pathway shapes
// may be dropped where, which elements may be connected, and which connection
// type a new edge should become. Decisions can be served over HTTP, evaluated
// from files, checked against scenario suites and audited.
//
// Usage:
//
//	# Start the HTTP service with default configuration
//	cprules serve
//
//	# Start with a configuration file
//	cprules serve --config /etc/cprules/config.yaml
//
//	# Evaluate a single action
//	cprules evaluate --action connection.create --source cp:DecisionLogic --target cp:EvidenceGateway
//
//	# Run a scenario suite, re-running on change
//	cprules test scenarios.yaml --watch
//
//	# Query the audit trail
//	cprules audit query --action shape.create --since 24h
package main

import (
	"os"

	"cpathways/cprules/pkg/cli"
)

func main() {
	os.Exit(cli.ExitCode(Execute()))
}
