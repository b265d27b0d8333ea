package pivot

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/temppivot/pkg/errors"
	"github.com/matzehuels/temppivot/pkg/mat"
	"github.com/matzehuels/temppivot/pkg/observability"
	"github.com/matzehuels/temppivot/pkg/scene"
)

// State is the lifecycle stage of an [Engine].
type State int

const (
	// Idle engines have not bound anything yet.
	Idle State = iota
	// Bound engines own a master group and follow its changes.
	Bound
	// Closed engines have torn their session down. They never bind again;
	// start a new session with a new engine.
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Bound:
		return "bound"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// PropagationResult summarizes one [Engine.Propagate] call.
type PropagationResult struct {
	Passes    int  // Passes run
	Changed   int  // Node writes across all passes
	Converged bool // Every live bound node sits at its target
}

// Engine runs one temporary pivot session.
//
// Its handlers are meant to be called by the host's notification loop, one
// at a time; an Engine is not safe for concurrent use.
type Engine struct {
	host    scene.Host
	store   OffsetStore
	factory *Factory
	cfg     Config
	logger  *log.Logger

	state     State
	master    scene.Node
	nodes     []scene.Node // topological order
	selection []scene.Node // selection order at setup
	offsets   map[scene.NodeID]mat.Matrix
	maxDepth  int

	undoOpen     bool
	clearPending bool
	stale        map[scene.NodeID]bool
	err          error

	transformSub scene.SubscriptionID
	selectionSub scene.SubscriptionID
	timeSub      scene.SubscriptionID
	attrSub      scene.SubscriptionID
}

// NewEngine returns an idle engine for host. A nil store keeps offsets on
// the scene's container node.
func NewEngine(host scene.Host, store OffsetStore, opts ...Option) *Engine {
	e := &Engine{
		host:   host,
		cfg:    DefaultConfig(),
		logger: log.Default(),
		stale:  make(map[scene.NodeID]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	if store == nil {
		store = NewContainerStore(host, e.cfg.ContainerName)
	}
	e.store = store
	e.factory = NewFactory(host, store, e.cfg.MasterGroupName, e.cfg.ContainerName, e.logger)
	return e
}

// State returns the lifecycle stage.
func (e *Engine) State() State { return e.state }

// Master returns the master group while the engine is bound.
func (e *Engine) Master() (scene.Node, bool) {
	return e.master, e.state == Bound
}

// Nodes returns the bound nodes in propagation order.
func (e *Engine) Nodes() []scene.Node {
	return append([]scene.Node(nil), e.nodes...)
}

// Offset returns the bind-time offset of id relative to the master group.
func (e *Engine) Offset(id scene.NodeID) (mat.Matrix, bool) {
	m, ok := e.offsets[id]
	return m, ok
}

// MaxDepth returns the deepest hierarchy level among the bound nodes.
func (e *Engine) MaxDepth() int { return e.maxDepth }

// UndoOpen reports whether the engine holds an open undo chunk.
func (e *Engine) UndoOpen() bool { return e.undoOpen }

// ClearPending reports whether a deferred teardown is queued.
func (e *Engine) ClearPending() bool { return e.clearPending }

// Err returns the first error raised inside a notification handler, where it
// could not be returned. Corrupt offset blobs surface here.
func (e *Engine) Err() error { return e.err }

// =============================================================================
// Setup
// =============================================================================

// Setup binds the current transform selection to a new master group.
//
// It reports false without error when there is nothing to bind: the
// selection holds no transforms, or already holds a master group. Otherwise
// the selection is sorted, the master group created and placed, each node's
// offset recorded (node = offset * master), the time slider focused on the
// bound nodes and the master group selected. Finally the engine subscribes
// to the master group's transform and matrix-attribute changes, selection
// changes and time changes.
func (e *Engine) Setup(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if e.state != Idle {
		return false, errors.New(errors.ErrCodeUnsupported, "engine is %s; start a new session instead", e.state)
	}
	if err := e.cfg.Validate(); err != nil {
		return false, err
	}

	selected := scene.TransformSelection(e.host)
	if len(selected) == 0 {
		e.logger.Debug("nothing to bind", "reason", "no transforms selected")
		return false, nil
	}
	for _, n := range selected {
		if IsMasterGroup(e.host, n.ID()) {
			e.logger.Debug("nothing to bind", "reason", "selection holds a master group", "node", n.Name())
			return false, nil
		}
	}

	ordered, err := SortSelection(selected)
	if err != nil {
		return false, err
	}
	master, err := e.factory.Create(ordered)
	if err != nil {
		return false, err
	}
	offsets, err := bindOffsets(master, ordered)
	if err != nil {
		e.factory.discard(master)
		return false, err
	}

	e.master = master
	e.nodes = ordered
	e.selection = selected
	e.offsets = offsets
	e.maxDepth = MaxDepth(ordered)

	paths := make([]string, len(ordered))
	for i, n := range ordered {
		paths[i] = n.Path()
	}
	e.host.ShowKeyframesFor(paths)
	e.host.SetSelection([]scene.NodeID{master.ID()})

	e.transformSub = e.host.OnTransformChanged(master.ID(), e.HandleTransformChange)
	e.selectionSub = e.host.OnSelectionChanged(e.Clear)
	e.timeSub = e.host.OnTimeChanged(e.HandleTimeChange)
	e.attrSub = e.host.OnAttributeChanged(master.ID(), "matrix", e.HandleMatrixAttrChange)
	e.state = Bound

	observability.Session().OnSessionStart(len(ordered), e.maxDepth)
	e.logger.Info("temp pivot bound", "master", master.Name(), "nodes", len(ordered), "depth", e.maxDepth)
	return true, nil
}

func bindOffsets(master scene.Node, nodes []scene.Node) (map[scene.NodeID]mat.Matrix, error) {
	inv, err := master.WorldInverseMatrix()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStaleReference, err, "master group")
	}
	offsets := make(map[scene.NodeID]mat.Matrix, len(nodes))
	for _, n := range nodes {
		world, err := n.WorldMatrix()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStaleReference, err, "bind %s", n.UUID())
		}
		offsets[n.ID()] = mat.Mul(world, inv)
	}
	return offsets, nil
}

// =============================================================================
// Live Handlers
// =============================================================================

// HandleTransformChange reacts to a change of the master group. Moves,
// rotations and scales open the undo chunk and propagate. Manipulator pivot
// edits store the last bound node's offset when pivot learning is on.
func (e *Engine) HandleTransformChange(kind scene.ChangeKind) {
	if e.state != Bound {
		return
	}
	switch {
	case kind.IsTransform():
		e.AddUndo()
		res := e.Propagate()
		e.logger.Debug("propagated", "kind", kind, "passes", res.Passes, "changed", res.Changed, "converged", res.Converged)
	case kind.IsPivot() && e.cfg.LearnPivotEdits:
		if _, err := e.learnLast(); err != nil {
			e.fail(err)
		}
	}
}

// Propagate moves every bound node back onto offset * master.
//
// Nodes are visited in topological order. A node further than the
// configured epsilon from its target is rewritten; moving a bound parent can
// displace bound descendants again, so passes repeat until one changes
// nothing, bounded by [Engine.MaxDepth] (at least one pass). Nodes that no
// longer exist are skipped.
func (e *Engine) Propagate() PropagationResult {
	var res PropagationResult
	if e.state != Bound {
		return res
	}
	if !e.master.Exists() {
		e.reportStale(e.master.ID(), "propagate")
		return res
	}
	start := time.Now()
	m, err := e.master.WorldMatrix()
	if err != nil {
		e.fail(errors.Wrap(errors.ErrCodeStaleReference, err, "master group"))
		return res
	}

	limit := max(e.maxDepth, 1)
	for res.Passes < limit {
		res.Passes++
		changed := e.pass(m)
		res.Changed += changed
		if changed == 0 {
			res.Converged = true
			break
		}
	}
	if !res.Converged {
		res.Converged = e.settled(m)
	}

	observability.Session().OnPropagate(res.Passes, res.Changed, res.Converged, time.Since(start))
	return res
}

func (e *Engine) pass(m mat.Matrix) int {
	changed := 0
	for _, n := range e.nodes {
		if !n.Exists() {
			e.reportStale(n.ID(), "propagate")
			continue
		}
		target := mat.Mul(e.offsets[n.ID()], m)
		current, err := n.WorldMatrix()
		if err != nil || mat.Equivalent(current, target, e.cfg.Epsilon) {
			continue
		}
		if err := n.SetWorldMatrix(target); err != nil {
			e.logger.Warn("could not move bound node", "node", n.Name(), "error", err)
			continue
		}
		changed++
	}
	return changed
}

func (e *Engine) settled(m mat.Matrix) bool {
	for _, n := range e.nodes {
		if !n.Exists() {
			continue
		}
		current, err := n.WorldMatrix()
		if err != nil || !mat.Equivalent(current, mat.Mul(e.offsets[n.ID()], m), e.cfg.Epsilon) {
			return false
		}
	}
	return true
}

// HandleTimeChange re-places the master group of a single-node session from
// the offset store once the time change has been evaluated, then rebinds the
// node to the new master pose. The node itself is not touched: the transform
// subscription is dropped around the write.
func (e *Engine) HandleTimeChange() {
	if e.state != Bound || len(e.nodes) != 1 {
		return
	}
	e.host.Defer(e.replace)
}

func (e *Engine) replace() {
	if e.state != Bound {
		return
	}
	node := e.nodes[0]
	if !e.master.Exists() {
		e.reportStale(e.master.ID(), "re-place master group")
		return
	}
	if !node.Exists() {
		e.reportStale(node.ID(), "re-place master group")
		return
	}

	e.unsubscribe(&e.transformSub)
	defer func() {
		e.transformSub = e.host.OnTransformChanged(e.master.ID(), e.HandleTransformChange)
	}()
	if err := e.factory.Place(e.master, node); err != nil {
		e.fail(err)
		return
	}

	offsets, err := bindOffsets(e.master, e.nodes)
	if err != nil {
		e.fail(err)
		return
	}
	e.offsets = offsets
}

// HandleMatrixAttrChange closes the undo chunk once the host reports the
// master group's matrix attribute settled.
func (e *Engine) HandleMatrixAttrChange() { e.EndUndo() }

// AddUndo opens an undo chunk unless one is already open.
func (e *Engine) AddUndo() {
	if e.undoOpen {
		return
	}
	e.host.OpenUndoChunk()
	e.undoOpen = true
}

// EndUndo closes the engine's undo chunk, if open.
func (e *Engine) EndUndo() {
	if !e.undoOpen {
		return
	}
	e.host.CloseUndoChunk()
	e.undoOpen = false
}

// =============================================================================
// Teardown
// =============================================================================

// Clear ends the session on the host's next idle tick. It is the
// selection-changed handler; repeated calls queue at most one teardown.
func (e *Engine) Clear() {
	if e.state != Bound || e.clearPending {
		return
	}
	e.clearPending = true
	e.host.Defer(e.clearNow)
}

// Cancel ends the session immediately. Call it only outside host
// notifications, where node deletion is allowed.
func (e *Engine) Cancel() { e.clearNow() }

// clearNow tears the session down. Every step is best effort: a failure is
// logged and the remaining steps still run.
func (e *Engine) clearNow() {
	if e.state != Bound {
		return
	}
	e.clearPending = false
	e.unsubscribeAll()

	learned := false
	if len(e.nodes) == 1 {
		ok, err := e.learnLast()
		if err != nil {
			e.fail(err)
		}
		learned = ok
	}

	e.deleteMaster()
	e.restoreSelection()
	e.host.ShowKeyframesForSelection()
	e.EndUndo()
	e.state = Closed

	observability.Session().OnSessionEnd(len(e.nodes), learned)
	e.logger.Info("temp pivot cleared", "nodes", len(e.nodes), "learned", learned)
}

// learnLast stores the last bound node's offset to the master group's pivot.
// It reports false when either node is gone.
func (e *Engine) learnLast() (bool, error) {
	node := e.nodes[len(e.nodes)-1]
	if !e.master.Exists() {
		e.reportStale(e.master.ID(), "learn offset")
		return false, nil
	}
	if !node.Exists() {
		e.reportStale(node.ID(), "learn offset")
		return false, nil
	}

	pivotWorld, err := e.master.PivotWorldMatrix()
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeStaleReference, err, "master group pivot")
	}
	inv, err := node.WorldInverseMatrix()
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeStaleReference, err, "learn %s", node.UUID())
	}
	if err := Learn(e.store, node.UUID(), mat.Mul(pivotWorld, inv)); err != nil {
		return false, err
	}
	e.logger.Debug("learned offset", "node", node.Name())
	return true, nil
}

func (e *Engine) unsubscribeAll() {
	for _, sub := range []*scene.SubscriptionID{&e.transformSub, &e.selectionSub, &e.timeSub, &e.attrSub} {
		e.unsubscribe(sub)
	}
}

func (e *Engine) unsubscribe(sub *scene.SubscriptionID) {
	if *sub == scene.InvalidSubscription {
		return
	}
	if err := e.host.Unsubscribe(*sub); err != nil {
		err = errors.Wrap(errors.ErrCodeSubscriptionCleanup, err, "unsubscribe %d", *sub)
		e.logger.Warn("ignoring subscription cleanup failure", "error", err)
	}
	*sub = scene.InvalidSubscription
}

func (e *Engine) deleteMaster() {
	if !e.master.Exists() {
		e.reportStale(e.master.ID(), "delete master group")
		return
	}
	if err := e.host.SetNodeLocked(e.master.ID(), false); err != nil {
		e.logger.Warn("could not unlock master group", "error", err)
	}
	if err := e.host.DeleteNode(e.master.ID()); err != nil {
		e.logger.Warn("could not delete master group", "error", err)
	}
}

func (e *Engine) restoreSelection() {
	ids := make([]scene.NodeID, 0, len(e.selection))
	for _, n := range e.selection {
		if n.Exists() {
			ids = append(ids, n.ID())
		} else {
			e.reportStale(n.ID(), "restore selection")
		}
	}
	e.host.SetSelection(ids)
}

func (e *Engine) reportStale(id scene.NodeID, op string) {
	if e.stale[id] {
		return
	}
	e.stale[id] = true
	observability.Session().OnStale(string(id), op)
	e.logger.Warn("skipping vanished node", "error", &errors.StaleError{NodeID: string(id), Op: op})
}

func (e *Engine) fail(err error) {
	e.logger.Error("temp pivot", "error", err)
	if e.err == nil {
		e.err = err
	}
}
