// Package engine resolves rule verdicts into final authorization decisions.
//
// The rule chain answers Allow, Deny or Defer. Hosts need a yes/no answer, so
// the engine applies a configured fallback to Defer verdicts and a fail-safe
// mode to faulting decision functions. Every decision is timed, counted in
// metrics and optionally handed to an audit recorder.
//
//	chain := rules.NewChain(logger)
//	rules.NewCPRules(chain)
//
//	eng, err := engine.New(chain, engine.DefaultConfig(), logger)
//	if err != nil {
//		return err
//	}
//
//	decision, err := eng.Evaluate(ctx, &engine.Request{
//		Action:  "connection.create",
//		Context: &model.Context{Source: src, Target: dst},
//	})
package engine
