package rules

import "cpathways/cprules/pkg/model"

// ConnectionType is the connection element created between pathway decision elements.
var ConnectionType = model.KindConnection.Type()

// NewCPRules creates the clinical pathway rule provider and registers its
// decision functions on bus.
//
// Only clinical pathway elements are judged. Everything else defers so the
// host's own modeling rules keep working alongside these.
func NewCPRules(bus Bus) *Provider {
	return NewCPRulesAt(bus, DefaultPriority)
}

// NewCPRulesAt is NewCPRules with an explicit registration priority.
// A priority <= 0 uses DefaultPriority.
func NewCPRulesAt(bus Bus, priority int) *Provider {
	p := NewProvider(bus, priority)

	for _, r := range []struct {
		action Action
		fn     DecisionFunc
	}{
		{ShapeCreate, CanCreateShape},
		{ElementsMove, CanMoveElements},
		{ConnectionCreate, CanCreateConnection},
		{ConnectionReconnectStart, CanReconnectStart},
		{ConnectionReconnectEnd, CanReconnectEnd},
	} {
		// Each action is registered once on a fresh provider.
		if err := p.Register(r.action, 0, r.fn); err != nil {
			panic(err)
		}
	}

	return p
}

// CanCreateShape allows pathway shapes to be dropped into process,
// participant and collaboration containers. It has no opinion on anything else.
func CanCreateShape(ctx *model.Context) Verdict {
	if !ctx.Shape.Kind().IsDomain() {
		return Defer()
	}
	if ctx.Target.Kind().IsContainer() {
		return Allow()
	}
	return Defer()
}

// CanMoveElements allows every move.
func CanMoveElements(*model.Context) Verdict {
	return Allow()
}

// CanCreateConnection allows a pathway connection between a decision logic
// element and an evidence gateway, in either direction.
func CanCreateConnection(ctx *model.Context) Verdict {
	return canConnect(ctx.Source, ctx.Target)
}

// CanReconnectStart checks the connection's existing target against the new
// source, which is the hovered element if there is one.
func CanReconnectStart(ctx *model.Context) Verdict {
	if ctx.Connection == nil {
		return Defer()
	}
	source := ctx.Hover
	if source == nil {
		source = ctx.Source
	}
	return canConnect(source, ctx.Connection.Target)
}

// CanReconnectEnd checks the connection's existing source against the new
// target, which is the hovered element if there is one.
func CanReconnectEnd(ctx *model.Context) Verdict {
	if ctx.Connection == nil {
		return Defer()
	}
	target := ctx.Hover
	if target == nil {
		target = ctx.Target
	}
	return canConnect(ctx.Connection.Source, target)
}

// canConnect requires both ends to be connectable and of different types.
func canConnect(source, target *model.Node) Verdict {
	if source.Kind().IsConnectable() && target.Kind().IsConnectable() && source.Type != target.Type {
		return AllowAs(ConnectionType)
	}
	return Defer()
}
