// Package widget holds the interactive teaching widgets: each one owns
// its parameter state, emits a graph recipe, and wires UI gestures to
// the session, binder, transport and asset loader.
package widget

import (
	"fmt"
	"sync"
	"time"

	"tonelab/debug"
	"tonelab/engine"
	"tonelab/transport"
)

// State is the widget lifecycle.
type State int

const (
	StateLoadingAssets State = iota
	StateIdle
	StatePlaying
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoadingAssets:
		return "loading"
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StateError:
		return "error"
	}
	return "unknown"
}

// ParamKind tells the UI how to edit a parameter.
type ParamKind int

const (
	Float ParamKind = iota
	Int
	Enum
	Bool
)

// ParamSpec declares one entry of a widget's parameter surface.
type ParamSpec struct {
	Name    string
	Kind    ParamKind
	Min     float64
	Max     float64
	Step    float64
	Default float64
	Unit    string
	Binding engine.BindingKind
}

// Controller is the surface the UI drives. Every widget implements it;
// widget-specific operations live on the concrete types.
type Controller interface {
	Name() string
	Params() []ParamSpec
	Set(name string, v float64)
	Get(name string) float64
	State() State
	Err() error
	Play() error
	Stop()
	Close()
	Analyser() *engine.Analyser
}

// Env is the shared machinery injected into every widget.
type Env struct {
	Session   *engine.Session
	Transport *transport.Transport
	Loader    *engine.AssetLoader
}

// resumeSettle is the short wait after the session reaches running
// before the first graph mutation.
const resumeSettle = 50 * time.Millisecond

// base carries the lifecycle every widget shares: the parameter store
// with clamping, the build/rebuild path, and the play/stop FSM.
type base struct {
	env   Env
	name  string
	specs []ParamSpec

	// recipe is supplied by the concrete widget. assets maps sample
	// slots referenced by the recipe to decoded buffers.
	recipe func() engine.Recipe

	mu     sync.Mutex
	values map[string]float64
	state  State
	err    error
	graph  *engine.Graph
	binder *engine.Binder
	assets map[string]*engine.Buffer
}

func newBase(env Env, name string, specs []ParamSpec, recipe func() engine.Recipe) *base {
	b := &base{
		env:    env,
		name:   name,
		specs:  specs,
		recipe: recipe,
		values: make(map[string]float64, len(specs)),
		state:  StateIdle,
		assets: make(map[string]*engine.Buffer),
	}
	for _, s := range specs {
		b.values[s.Name] = s.Default
	}
	b.binder = engine.NewBinder(env.Session.Context(), b.rebuild)
	return b
}

func (b *base) Name() string { return b.name }

func (b *base) Params() []ParamSpec {
	out := make([]ParamSpec, len(b.specs))
	copy(out, b.specs)
	return out
}

func (b *base) spec(name string) (ParamSpec, bool) {
	for _, s := range b.specs {
		if s.Name == name {
			return s, true
		}
	}
	return ParamSpec{}, false
}

// Set clamps v into the parameter's declared range, snaps it to the
// step grid and pushes it through the binder. Unknown names are
// ignored; range violations clamp silently.
func (b *base) Set(name string, v float64) {
	s, ok := b.spec(name)
	if !ok {
		return
	}
	if s.Step > 0 {
		steps := (v - s.Min) / s.Step
		v = s.Min + float64(int(steps+0.5))*s.Step
	}
	if v < s.Min {
		v = s.Min
	}
	if v > s.Max {
		v = s.Max
	}

	b.mu.Lock()
	b.values[name] = v
	b.mu.Unlock()

	if err := b.binder.Apply(name, v); err != nil {
		b.setError(err)
	}
}

func (b *base) Get(name string) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.values[name]
}

func (b *base) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *base) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

func (b *base) setError(err error) {
	b.mu.Lock()
	b.state = StateError
	b.err = err
	b.mu.Unlock()
	debug.Log("widget", "%s: %v", b.name, err)
}

// clearError returns an errored widget to idle, keeping its parameters.
func (b *base) clearError() {
	b.mu.Lock()
	if b.state == StateError {
		b.state = StateIdle
		b.err = nil
	}
	b.mu.Unlock()
}

// loadAsset fetches and decodes a sample into the named recipe slot,
// holding the widget in the loading state until it settles.
func (b *base) loadAsset(slot, url string) error {
	b.mu.Lock()
	b.state = StateLoadingAssets
	b.mu.Unlock()

	res := <-b.env.Loader.Fetch(url)
	if res.Err != nil {
		b.setError(res.Err)
		return res.Err
	}

	b.mu.Lock()
	b.assets[slot] = res.Buffer
	b.state = StateIdle
	b.mu.Unlock()
	return nil
}

// asset returns the decoded buffer in a slot, nil when unloaded.
func (b *base) asset(slot string) *engine.Buffer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.assets[slot]
}

// build materialises the widget's recipe and points the binder at it.
// An existing graph is detached and disposed after the swap, so the
// render callback never sees a half-built chain.
func (b *base) build() error {
	b.mu.Lock()
	assets := make(map[string]*engine.Buffer, len(b.assets))
	for k, v := range b.assets {
		assets[k] = v
	}
	playing := b.state == StatePlaying
	old := b.graph
	b.mu.Unlock()

	g, err := engine.Build(b.recipe(), b.env.Session.Context(), assets)
	if err != nil {
		b.setError(err)
		return err
	}
	b.binder.SetGraph(g)
	// Recipes bake defaults in; re-apply live values so edits survive
	// the swap. Structural params are what caused the rebuild, skip.
	for _, s := range b.specs {
		if s.Binding != engine.BindStructural {
			b.binder.Apply(s.Name, b.Get(s.Name))
		}
	}

	b.env.Session.AttachGraph(g)
	if playing {
		g.Start()
	}
	b.mu.Lock()
	b.graph = g
	b.mu.Unlock()

	if old != nil {
		b.env.Session.DetachGraph(old)
		old.Dispose()
	}
	return nil
}

// rebuild is the binder's structural-change hook. The transport is
// paused around the swap so the musical position survives the rebuild.
func (b *base) rebuild() error {
	if b.liveGraph() == nil {
		// Nothing built yet; Play picks the new value up.
		return nil
	}
	resume := b.env.Transport.Phase() == transport.Running
	if resume {
		b.env.Transport.Pause()
	}
	err := b.build()
	if resume {
		b.env.Transport.Start()
	}
	return err
}

// Play resumes the session if needed, builds the graph on first use
// and starts the sources.
func (b *base) Play() error {
	b.mu.Lock()
	if b.state == StateLoadingAssets {
		b.mu.Unlock()
		return fmt.Errorf("%s: assets still loading", b.name)
	}
	b.mu.Unlock()

	settled := <-b.env.Session.Resume()
	if settled != engine.StateRunning {
		err := fmt.Errorf("%w: session %s", engine.ErrSessionUnavailable, settled)
		b.setError(err)
		return err
	}
	time.Sleep(resumeSettle)

	b.mu.Lock()
	needBuild := b.graph == nil
	b.mu.Unlock()
	if needBuild {
		if err := b.build(); err != nil {
			return err
		}
	}

	b.mu.Lock()
	g := b.graph
	b.state = StatePlaying
	b.err = nil
	b.mu.Unlock()
	g.Start()
	return nil
}

// Stop silences the widget's sources but keeps the graph alive for an
// instant restart.
func (b *base) Stop() {
	b.mu.Lock()
	g := b.graph
	if b.state == StatePlaying {
		b.state = StateIdle
	}
	b.mu.Unlock()
	if g != nil {
		g.Stop()
	}
}

// Close tears the widget's graph down.
func (b *base) Close() {
	b.mu.Lock()
	g := b.graph
	b.graph = nil
	b.mu.Unlock()
	if g != nil {
		b.env.Session.DetachGraph(g)
		g.Dispose()
	}
}

// graphNode resolves a node on the live graph, nil while unbuilt.
func (b *base) graphNode(id string) engine.Node {
	b.mu.Lock()
	g := b.graph
	b.mu.Unlock()
	if g == nil {
		return nil
	}
	return g.Node(id)
}

// liveGraph returns the current graph, nil while unbuilt.
func (b *base) liveGraph() *engine.Graph {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.graph
}

// Analyser returns the live graph's analyser tap, nil while unbuilt or
// when the recipe carries no analyser node.
func (b *base) Analyser() *engine.Analyser {
	g := b.liveGraph()
	if g == nil {
		return nil
	}
	return g.Analyser()
}
