// Package scenario runs YAML suites of expected rule outcomes against a rule chain.
//
// A suite lists modeling actions with the context the host would send and the
// verdict the rules should return:
//
//	tests:
//	  - name: decision logic connects to evidence gateway
//	    action: connection.create
//	    context:
//	      source: {type: "cp:DecisionLogic"}
//	      target: {type: "cp:EvidenceGateway"}
//	    expect:
//	      verdict: allow
//	      connection_type: "cp:Connection"
//
// Run evaluates every case and returns a Report. Watcher re-runs a suite file
// whenever it changes on disk.
package scenario
