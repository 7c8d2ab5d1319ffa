package rules

import (
	"fmt"

	"cpathways/cprules/pkg/model"
)

// DefaultPriority is the priority used when a rule is registered without one.
const DefaultPriority = 1000

// DecisionFunc decides a single action for the supplied context.
// It must not mutate the context and must return Defer, never panic, when
// fields it needs are missing.
type DecisionFunc func(ctx *model.Context) Verdict

// Bus is the host's rule infrastructure. Providers register their decision
// functions on it; the host owns ordering and short-circuiting across providers.
type Bus interface {
	AddRule(action Action, priority int, fn DecisionFunc)
}

// Provider holds one decision function per action and forwards each
// registration to the host bus.
type Provider struct {
	bus      Bus
	priority int
	rules    map[Action]DecisionFunc
}

// NewProvider creates a provider bound to bus. A priority <= 0 uses DefaultPriority.
// bus may be nil, in which case rules are only evaluated through the provider itself.
func NewProvider(bus Bus, priority int) *Provider {
	if priority <= 0 {
		priority = DefaultPriority
	}
	return &Provider{
		bus:      bus,
		priority: priority,
		rules:    make(map[Action]DecisionFunc),
	}
}

// Register associates fn with action. A priority <= 0 uses the provider's priority.
func (p *Provider) Register(action Action, priority int, fn DecisionFunc) error {
	if _, ok := actionNames[action]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownAction, int(action))
	}
	if fn == nil {
		return fmt.Errorf("decision function for %s cannot be nil", action)
	}
	if _, exists := p.rules[action]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateRule, action)
	}
	if priority <= 0 {
		priority = p.priority
	}

	p.rules[action] = fn
	if p.bus != nil {
		p.bus.AddRule(action, priority, fn)
	}
	return nil
}

// Evaluate runs the function registered for action. It returns Defer when no
// function is registered or ctx is nil.
func (p *Provider) Evaluate(action Action, ctx *model.Context) Verdict {
	fn, ok := p.rules[action]
	if !ok || ctx == nil {
		return Defer()
	}
	return fn(ctx)
}

// Actions returns the actions this provider has rules for, in declaration order.
func (p *Provider) Actions() []Action {
	var out []Action
	for _, a := range Actions() {
		if _, ok := p.rules[a]; ok {
			out = append(out, a)
		}
	}
	return out
}

// Priority returns the provider's default registration priority.
func (p *Provider) Priority() int {
	return p.priority
}
