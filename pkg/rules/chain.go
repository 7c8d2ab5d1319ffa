package rules

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"cpathways/cprules/pkg/model"
)

// Chain is a standalone implementation of the host's rule bus. It keeps every
// registered decision function per action, ordered by priority, and evaluates
// them until one returns a conclusive verdict.
type Chain struct {
	mu      sync.RWMutex
	entries map[Action][]chainEntry
	seq     int
	logger  *slog.Logger
}

type chainEntry struct {
	priority int
	seq      int
	fn       DecisionFunc
}

// NewChain creates an empty chain.
func NewChain(logger *slog.Logger) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{
		entries: make(map[Action][]chainEntry),
		logger:  logger.With("component", "rules.chain"),
	}
}

// AddRule implements Bus. Higher priorities run first; equal priorities run in
// registration order.
func (c *Chain) AddRule(action Action, priority int, fn DecisionFunc) {
	if fn == nil {
		return
	}
	if priority <= 0 {
		priority = DefaultPriority
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	list := append(c.entries[action], chainEntry{priority: priority, seq: c.seq, fn: fn})
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].priority != list[j].priority {
			return list[i].priority > list[j].priority
		}
		return list[i].seq < list[j].seq
	})
	c.entries[action] = list

	c.logger.Debug("rule registered", "action", action.String(), "priority", priority)
}

// Evaluate returns the first conclusive verdict for action, or Defer.
// A faulting decision function is logged and treated as Defer.
func (c *Chain) Evaluate(action Action, ctx *model.Context) Verdict {
	v, err := c.EvaluateSafe(action, ctx)
	if err != nil {
		c.logger.Error("decision function faulted", "action", action.String(), "error", err)
	}
	return v
}

// EvaluateSafe is Evaluate with faults reported as *EvaluationError.
// On a fault the returned verdict is Defer.
func (c *Chain) EvaluateSafe(action Action, ctx *model.Context) (Verdict, error) {
	if ctx == nil {
		return Defer(), nil
	}

	c.mu.RLock()
	list := c.entries[action]
	c.mu.RUnlock()

	for _, e := range list {
		v, err := invoke(action, e.fn, ctx)
		if err != nil {
			return Defer(), err
		}
		if !v.IsDefer() {
			return v, nil
		}
	}
	return Defer(), nil
}

func invoke(action Action, fn DecisionFunc, ctx *model.Context) (v Verdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &EvaluationError{Action: action, Cause: fmt.Errorf("decision function panicked: %v", r)}
		}
	}()
	return fn(ctx), nil
}

// Actions returns the actions with at least one registered function, in declaration order.
func (c *Chain) Actions() []Action {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []Action
	for _, a := range Actions() {
		if len(c.entries[a]) > 0 {
			out = append(out, a)
		}
	}
	return out
}

// Len returns the number of functions registered for action.
func (c *Chain) Len(action Action) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries[action])
}
