package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/temppivot/pkg/errors"
	pio "github.com/matzehuels/temppivot/pkg/io"
	"github.com/matzehuels/temppivot/pkg/mat"
	"github.com/matzehuels/temppivot/pkg/pivot"
	"github.com/matzehuels/temppivot/pkg/scene"
	"github.com/matzehuels/temppivot/pkg/scene/memscene"
)

// Player drives temp pivot sessions on an in-memory scene the way a user
// would in the editor: select nodes, manipulate the master group, scrub the
// timeline and deselect. Every operation ends with the scene's idle tick, so
// deferred work has run by the time it returns.
//
// A Player is not safe for concurrent use.
type Player struct {
	scene  *memscene.Scene
	store  pivot.OffsetStore
	cfg    pivot.Config
	logger *log.Logger

	engine   *pivot.Engine
	reported error
	sessions int
}

// NewPlayer returns a player for s. Sessions share store; a nil store keeps
// offsets on the scene's container node.
func NewPlayer(s *memscene.Scene, store pivot.OffsetStore, cfg pivot.Config, logger *log.Logger) *Player {
	if store == nil {
		store = pivot.NewContainerStore(s, cfg.ContainerName)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Player{scene: s, store: store, cfg: cfg, logger: logger}
}

// Scene returns the scene being played.
func (p *Player) Scene() *memscene.Scene { return p.scene }

// Engine returns the engine of the current or last session, nil before the
// first session.
func (p *Player) Engine() *pivot.Engine { return p.engine }

// Active reports whether a session is bound.
func (p *Player) Active() bool {
	return p.engine != nil && p.engine.State() == pivot.Bound
}

// Sessions returns the number of sessions started.
func (p *Player) Sessions() int { return p.sessions }

// Apply performs one script step.
func (p *Player) Apply(ctx context.Context, step pio.Step) error {
	if err := step.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "step")
	}
	v := mat.Vec3(step.Vec())

	var err error
	switch step.Kind() {
	case pio.StepSelect:
		_, err = p.Select(ctx, step.Select...)
	case pio.StepMove:
		err = p.Move(v)
	case pio.StepRotate:
		err = p.Rotate(v)
	case pio.StepScale:
		err = p.Scale(v)
	case pio.StepPivot:
		err = p.Pivot(v)
	case pio.StepTime:
		p.SetTime(*step.Time)
	case pio.StepDelete:
		err = p.Delete(step.Delete)
	case pio.StepDeselect:
		p.Deselect()
	case pio.StepCancel:
		p.Cancel()
	}
	if err != nil {
		return err
	}
	return p.engineErr()
}

// Select ends any running session, selects the named nodes and starts a new
// session on them. It reports whether the new session bound anything.
func (p *Player) Select(ctx context.Context, names ...string) (bool, error) {
	if len(names) == 0 {
		return false, errors.New(errors.ErrCodeInvalidSelection, "select needs at least one node")
	}
	ids, err := p.scene.Resolve(names...)
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeNotFound, err, "select")
	}
	if p.Active() {
		p.Deselect()
	}

	p.scene.SetSelection(ids)
	p.engine = pivot.NewEngine(p.scene, p.store, pivot.WithConfig(p.cfg), pivot.WithLogger(p.logger))
	p.reported = nil
	bound, err := p.engine.Setup(ctx)
	p.scene.RunDeferred()
	if err != nil {
		return false, err
	}
	if bound {
		p.sessions++
	} else {
		p.logger.Info("nothing bound", "selection", names)
	}
	return bound, nil
}

// Move translates the master group by d in world space.
func (p *Player) Move(d mat.Vec3) error {
	return p.manipulate(func(world mat.Matrix, _ mat.Vec3) mat.Matrix {
		return mat.Mul(world, mat.Translate(d[0], d[1], d[2]))
	})
}

// Rotate rotates the master group by XYZ euler degrees about its
// manipulator pivot.
func (p *Player) Rotate(deg mat.Vec3) error {
	return p.manipulate(func(world mat.Matrix, pivot mat.Vec3) mat.Matrix {
		return aboutPoint(world, mat.RotateEuler(deg[0], deg[1], deg[2]), pivot)
	})
}

// Scale scales the master group about its manipulator pivot.
func (p *Player) Scale(s mat.Vec3) error {
	return p.manipulate(func(world mat.Matrix, pivot mat.Vec3) mat.Matrix {
		return aboutPoint(world, mat.Scale(s[0], s[1], s[2]), pivot)
	})
}

// Pivot moves the master group's manipulator pivot to local.
func (p *Player) Pivot(local mat.Vec3) error {
	master, err := p.master()
	if err != nil {
		return err
	}
	if err := p.scene.SetRotatePivot(master.ID(), local); err != nil {
		return errors.Wrap(errors.ErrCodeStaleReference, err, "set pivot")
	}
	p.scene.RunDeferred()
	return nil
}

// SetTime changes the current time.
func (p *Player) SetTime(t float64) {
	p.scene.SetTime(t)
	p.scene.RunDeferred()
}

// Delete removes the named node, as a user deleting it behind the session's
// back would.
func (p *Player) Delete(name string) error {
	id, ok := p.scene.FindByName(name)
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "delete: unknown node %q", name)
	}
	err := p.scene.DeleteNode(id)
	p.scene.RunDeferred()
	if err != nil {
		if stderrors.Is(err, memscene.ErrLocked) {
			return errors.Wrap(errors.ErrCodeLocked, err, "delete %s", name)
		}
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

// Deselect clears the selection, which ends the session on the next idle
// tick.
func (p *Player) Deselect() {
	p.scene.SetSelection(nil)
	p.scene.RunDeferred()
}

// Cancel ends the session immediately.
func (p *Player) Cancel() {
	if p.engine != nil {
		p.engine.Cancel()
	}
	p.scene.RunDeferred()
}

// Close ends a running session and returns the first handler error the
// last session raised.
func (p *Player) Close() error {
	if p.Active() {
		p.Cancel()
	}
	if p.engine == nil {
		return nil
	}
	return p.engine.Err()
}

// MasterPosition returns the master group's world position.
func (p *Player) MasterPosition() (mat.Vec3, error) {
	master, err := p.master()
	if err != nil {
		return mat.Vec3{}, err
	}
	return master.WorldPosition()
}

func (p *Player) master() (scene.Node, error) {
	if !p.Active() {
		return scene.Node{}, errors.New(errors.ErrCodeInvalidSelection, "no temp pivot session; select nodes first")
	}
	master, _ := p.engine.Master()
	if !master.Exists() {
		return scene.Node{}, &errors.StaleError{NodeID: master.UUID(), Op: "manipulate master group"}
	}
	return master, nil
}

// manipulate rewrites the master group's world matrix. next receives the
// current world matrix and the manipulator pivot in world space.
func (p *Player) manipulate(next func(world mat.Matrix, pivot mat.Vec3) mat.Matrix) error {
	master, err := p.master()
	if err != nil {
		return err
	}
	world, err := master.WorldMatrix()
	if err != nil {
		return errors.Wrap(errors.ErrCodeStaleReference, err, "master group")
	}
	pivotWorld, err := master.PivotWorldMatrix()
	if err != nil {
		return errors.Wrap(errors.ErrCodeStaleReference, err, "master group pivot")
	}
	if err := master.SetWorldMatrix(next(world, mat.Position(pivotWorld))); err != nil {
		return errors.Wrap(errors.ErrCodeStaleReference, err, "move master group")
	}
	p.scene.RunDeferred()
	return nil
}

// engineErr returns a handler error once.
func (p *Player) engineErr() error {
	if p.engine == nil {
		return nil
	}
	err := p.engine.Err()
	if err == nil || err == p.reported {
		return nil
	}
	p.reported = err
	return err
}

// aboutPoint applies m to world around the world-space point c.
func aboutPoint(world, m mat.Matrix, c mat.Vec3) mat.Matrix {
	out := mat.Mul(world, mat.Translate(-c[0], -c[1], -c[2]))
	out = mat.Mul(out, m)
	return mat.Mul(out, mat.Translate(c[0], c[1], c[2]))
}
