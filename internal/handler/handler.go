// Package handler implements the Handler Graph (spec §4.3): an entry
// routing table keyed by (event type, code) that dispatches each incoming
// event to every handler registered for it, plus the Forwarder that
// writes whatever survives dispatch to the forwarded virtual output.
package handler

import (
	"inputinject/internal/evcode"
	"inputinject/internal/injcontext"
)

// Verdict is what a Handler decides about one event.
type Verdict int

const (
	// Consumed means the event produced its own output (or was absorbed
	// into combination/macro state) and must not reach the forwarder.
	Consumed Verdict = iota
	// Passthrough means the event should be written to the forwarded
	// uinput unchanged.
	Passthrough
	// Deferred means the handler has not yet decided; the graph treats a
	// Deferred verdict the same as Consumed (hold, don't forward) until a
	// later event resolves it.
	Deferred
)

// Handler is one node of the graph: something that reacts to one event
// routed to it and reports whether it should still reach the Forwarder.
type Handler interface {
	Handle(ev evcode.Event) Verdict
}

// routeKey is the entry routing table's index.
type routeKey struct {
	evType uint16
	code   uint16
}

// Graph dispatches incoming events to every handler registered for their
// (type, code) and forwards whatever no handler consumed.
type Graph struct {
	routes    map[routeKey][]Handler
	forwarder *Forwarder
	ctx       *injcontext.Context
}

// NewGraph builds an empty graph bound to forwarder. ctx's active-handler
// counter is incremented around every handler's Handle call, so the
// Supervisor's drain on stop can see real in-flight dispatch work.
func NewGraph(forwarder *Forwarder, ctx *injcontext.Context) *Graph {
	return &Graph{routes: make(map[routeKey][]Handler), forwarder: forwarder, ctx: ctx}
}

// Register adds h to the routing table for (evType, code). A handler may
// be registered under more than one key (e.g. a CombinationHandler under
// every key of every combination it arbitrates).
func (g *Graph) Register(evType, code uint16, h Handler) {
	k := routeKey{evType, code}
	g.routes[k] = append(g.routes[k], h)
}

// Dispatch routes ev to every matching handler. SYN and MSC events are
// never routed (spec §4.2: "pass-through-but-not-routed") and always
// forward. An event matching no handler also forwards unchanged. If any
// handler reports Consumed or Deferred, the event is not forwarded.
func (g *Graph) Dispatch(ev evcode.Event) error {
	if ev.IsSyn() || ev.Type == evcode.EV_MSC {
		return g.forwarder.Forward(ev)
	}

	handlers := g.routes[routeKey{ev.Type, ev.Code}]
	if len(handlers) == 0 {
		return g.forwarder.Forward(ev)
	}

	forward := true
	for _, h := range handlers {
		g.ctx.EnterHandler()
		v := h.Handle(ev)
		g.ctx.LeaveHandler()
		if v != Passthrough {
			forward = false
		}
	}
	if forward {
		return g.forwarder.Forward(ev)
	}
	return nil
}
