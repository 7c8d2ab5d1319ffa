// Package rules decides which clinical pathway modeling actions the editor may
// perform.
//
// The host editor asks for authorization before it executes a modeling action
// such as creating a shape or drawing a connection. Rule providers register a
// decision function per action on the host's rule bus, and the host walks the
// registered functions until one returns a conclusive verdict.
//
// # Verdicts
//
// A decision function returns one of three outcomes:
//
//   - Allow: the action may proceed. An allow may carry a connection type,
//     telling the host which connection element to create.
//   - Deny: the action is rejected.
//   - Defer: no opinion. The next provider in the chain decides.
//
// Providers that only own part of a decision return Defer for everything else,
// which lets them compose with the host's built-in rules instead of replacing
// them.
//
// # Clinical pathway rules
//
// NewCPRules registers the clinical pathway provider:
//
//	chain := rules.NewChain(logger)
//	rules.NewCPRules(chain)
//
//	v := chain.Evaluate(rules.ConnectionCreate, &model.Context{
//	    Source: decisionLogic,
//	    Target: evidenceGateway,
//	})
//	// v == rules.AllowAs("cp:Connection")
//
// # Thread Safety
//
// Decision functions are pure reads of the supplied context and keep no state.
// Chain is safe for concurrent evaluation once registration is complete.
package rules
