// Package graph implements the Builder that assembles a user-defined
// directed graph of nodes and edges, validates it at compile time, and
// produces an immutable CompiledGraph the executor walks at run time.
package graph

import (
	"context"
	"strings"

	"github.com/blueberrycongee/forge/event"
	"github.com/blueberrycongee/forge/forgeerr"
)

const (
	// Start is the sentinel entry node every compiled graph begins at.
	Start = "__start__"
	// End is the sentinel terminal node: reaching it completes the run.
	End = "__end__"
)

// State is the generic, caller-defined per-run state a graph's handlers
// read and return. Forge treats it as an opaque value it threads through
// node invocations.
type State any

// Handler is a plain node: it receives the current state and returns the
// next state, or a *forgeerr.Error (commonly KindInterrupted or
// KindExecutionError).
type Handler func(ctx context.Context, state State) (State, error)

// StreamHandler is a streaming node: in addition to state, it receives the
// executor's recording sink so it can emit events as it runs.
type StreamHandler func(ctx context.Context, state State, sink event.Sink) (State, error)

// Router inspects state and returns a routing key, consulted by conditional
// edges once a node's handler returns.
type Router func(ctx context.Context, state State) (string, error)

type handlerKind int

const (
	kindPlain handlerKind = iota
	kindStream
	kindSpec
)

type node struct {
	name    string
	kind    handlerKind
	plain   Handler
	stream  StreamHandler
	spec    NodeSpec
	router  Router
	pathMap map[string]string
}

// NodeSpec is a pre-built node registration, used by components (such as the
// loop node) that construct their own StreamHandler-shaped behavior and want
// to hand the graph builder a ready-made node under a single call.
type NodeSpec struct {
	Name    string
	Handler StreamHandler
}

// Builder accumulates nodes and edges before Compile validates and freezes
// them into a CompiledGraph.
type Builder struct {
	nodes       map[string]*node
	staticEdges map[string]string
	entry       string
	finish      string
	err         error
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		nodes:       make(map[string]*node),
		staticEdges: make(map[string]string),
	}
}

func (b *Builder) addNode(n *node) {
	if b.err != nil {
		return
	}
	if n.name == "" || n.name == Start || n.name == End || strings.HasPrefix(n.name, "__") {
		b.err = forgeerr.InvalidNodeName(n.name)
		return
	}
	if _, exists := b.nodes[n.name]; exists {
		b.err = forgeerr.NodeAlreadyExists(n.name)
		return
	}
	b.nodes[n.name] = n
}

// AddNode registers a plain handler under name.
func (b *Builder) AddNode(name string, handler Handler) *Builder {
	b.addNode(&node{name: name, kind: kindPlain, plain: handler})
	return b
}

// AddStreamNode registers a streaming handler under name.
func (b *Builder) AddStreamNode(name string, handler StreamHandler) *Builder {
	b.addNode(&node{name: name, kind: kindStream, stream: handler})
	return b
}

// AddNodeSpec registers a pre-built node, such as one produced by a loop
// node's IntoNode().
func (b *Builder) AddNodeSpec(spec NodeSpec) *Builder {
	b.addNode(&node{name: spec.Name, kind: kindSpec, spec: spec, stream: spec.Handler})
	return b
}

// AddEdge adds a static edge from -> to.
func (b *Builder) AddEdge(from, to string) *Builder {
	if b.err != nil {
		return b
	}
	if n, ok := b.nodes[from]; ok && n.router != nil {
		b.err = forgeerr.ValidationError("node " + from + " has both a static edge and a conditional router")
		return b
	}
	b.staticEdges[from] = to
	return b
}

// AddConditionalEdges attaches router to from: at dispatch time, when the
// node does not set an explicit `next` override, the router runs on state to
// produce a key, optionally translated through pathMap, yielding the next
// node. pathMap may be nil.
func (b *Builder) AddConditionalEdges(from string, router Router, pathMap map[string]string) *Builder {
	if b.err != nil {
		return b
	}
	n, ok := b.nodes[from]
	if !ok && from != Start {
		b.err = forgeerr.NodeNotFound(from)
		return b
	}
	if n != nil {
		if _, hasStatic := b.staticEdges[from]; hasStatic {
			b.err = forgeerr.ValidationError("node " + from + " has both a static edge and a conditional router")
			return b
		}
		n.router = router
		n.pathMap = pathMap
	}
	return b
}

// SetEntryPoint is sugar for AddEdge(Start, node).
func (b *Builder) SetEntryPoint(node string) *Builder {
	b.entry = node
	return b.AddEdge(Start, node)
}

// SetFinishPoint is sugar for AddEdge(node, End).
func (b *Builder) SetFinishPoint(node string) *Builder {
	b.finish = node
	return b.AddEdge(node, End)
}

// Compile validates the accumulated nodes and edges and returns an immutable
// CompiledGraph. Compile-time errors never leave the builder as panics;
// they are always a *forgeerr.Error.
func (b *Builder) Compile() (*CompiledGraph, error) {
	if b.err != nil {
		return nil, b.err
	}
	if _, ok := b.staticEdges[Start]; !ok {
		return nil, forgeerr.NoEntryPoint()
	}

	for from, to := range b.staticEdges {
		if to == End || from == Start {
			continue
		}
		if _, ok := b.nodes[from]; !ok {
			return nil, forgeerr.InvalidEdge(from, to, "source node is undefined")
		}
	}
	for from, to := range b.staticEdges {
		if to == End {
			continue
		}
		if _, ok := b.nodes[to]; !ok {
			return nil, forgeerr.InvalidEdge(from, to, "target node is undefined")
		}
	}

	if !b.hasPathToEnd() {
		return nil, forgeerr.NoEntryPoint()
	}

	routes := make(map[string]route, len(b.nodes))
	for name, n := range b.nodes {
		r := route{kind: n.kind, plain: n.plain, stream: n.stream, router: n.router, pathMap: n.pathMap}
		if next, ok := b.staticEdges[name]; ok {
			r.staticNext = next
			r.hasStaticNext = true
		}
		routes[name] = r
	}

	entryNext := b.staticEdges[Start]
	return &CompiledGraph{routes: routes, entryNext: entryNext}, nil
}

// hasPathToEnd reports whether a path exists from __start__ to __end__
// following static edges and, where present, any conditional router's
// pathMap targets (routers with no pathMap are assumed reachable to __end__
// since their key space is only known at run time).
func (b *Builder) hasPathToEnd() bool {
	visited := make(map[string]bool)
	var walk func(name string) bool
	walk = func(name string) bool {
		if name == End {
			return true
		}
		if visited[name] {
			return false
		}
		visited[name] = true

		if next, ok := b.staticEdges[name]; ok {
			if walk(next) {
				return true
			}
		}
		if n, ok := b.nodes[name]; ok && n.router != nil {
			if len(n.pathMap) == 0 {
				// Router targets are resolved only at run time; assume reachability.
				return true
			}
			for _, target := range n.pathMap {
				if walk(target) {
					return true
				}
			}
		}
		return false
	}
	return walk(Start)
}

type route struct {
	kind          handlerKind
	plain         Handler
	stream        StreamHandler
	router        Router
	pathMap       map[string]string
	staticNext    string
	hasStaticNext bool
}

// CompiledGraph is the immutable, validated routing table the executor
// dispatches against.
type CompiledGraph struct {
	routes    map[string]route
	entryNext string
}

// EntryNode returns the node __start__ routes to.
func (g *CompiledGraph) EntryNode() string { return g.entryNext }

// IsPlain reports whether name is registered as a plain handler.
func (g *CompiledGraph) IsPlain(name string) bool {
	return g.routes[name].kind == kindPlain
}

// InvokePlain runs the plain handler registered under name.
func (g *CompiledGraph) InvokePlain(ctx context.Context, name string, state State) (State, error) {
	r, ok := g.routes[name]
	if !ok || r.plain == nil {
		return nil, forgeerr.NodeNotFound(name)
	}
	return r.plain(ctx, state)
}

// InvokeStream runs the streaming handler registered under name.
func (g *CompiledGraph) InvokeStream(ctx context.Context, name string, state State, sink event.Sink) (State, error) {
	r, ok := g.routes[name]
	if !ok || r.stream == nil {
		return nil, forgeerr.NodeNotFound(name)
	}
	return r.stream(ctx, state, sink)
}

// Next resolves the node to dispatch to after `current` finishes, given the
// state's explicit override (if any). Resolution order: explicit override,
// then conditional router (translated through pathMap when present), then
// the static successor.
func (g *CompiledGraph) Next(ctx context.Context, current string, state State, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	r, ok := g.routes[current]
	if !ok {
		return "", forgeerr.NodeNotFound(current)
	}
	if r.router != nil {
		key, err := r.router(ctx, state)
		if err != nil {
			return "", forgeerr.BranchError(current, err.Error())
		}
		if r.pathMap != nil {
			if target, ok := r.pathMap[key]; ok {
				return target, nil
			}
		}
		return key, nil
	}
	if r.hasStaticNext {
		return r.staticNext, nil
	}
	return "", forgeerr.Newf(forgeerr.KindValidationError, "node %q has no route to a next node", current)
}
