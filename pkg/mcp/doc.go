// Package mcp exposes the rule engine over the Model Context Protocol.
//
// Two tools are registered: evaluate, which answers a single modeling
// action, and list_rules. The registered rules are also published as the
// cprules://rules resource. Listen serves the protocol over a pair of
// streams, normally stdin and stdout of the cprules mcp command.
package mcp
