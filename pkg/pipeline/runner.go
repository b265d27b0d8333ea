package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/temppivot/pkg/cache"
	pio "github.com/matzehuels/temppivot/pkg/io"
	"github.com/matzehuels/temppivot/pkg/mat"
	"github.com/matzehuels/temppivot/pkg/pivot"
	"github.com/matzehuels/temppivot/pkg/scene/memscene"
)

// Runner executes scripts with container caching.
//
// The Runner is stateless except for the cache and logger. Multiple
// goroutines can use the same Runner with different options; each run builds
// its own scene.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete load → restore → play pipeline.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	player, result, err := r.Open(ctx, opts)
	if err != nil {
		return nil, err
	}

	// Stage 3: Play
	playStart := time.Now()
	steps := opts.Steps()
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			player.Close()
			return nil, err
		}
		if err := player.Apply(ctx, step); err != nil {
			player.Close()
			return nil, fmt.Errorf("step %d (%s): %w", i+1, step.Kind(), err)
		}
	}
	result.Stats.Steps = len(steps)
	result.Stats.PlayTime = time.Since(playStart)

	if err := r.Finish(ctx, player, result); err != nil {
		return nil, err
	}

	r.Logger.Info("played script",
		"steps", result.Stats.Steps,
		"sessions", result.Stats.Sessions,
		"duration", result.Stats.PlayTime)

	return result, nil
}

// Open loads the scene and restores its cached container. The returned
// player drives the scene; hand it back to [Runner.Finish] when done.
func (r *Runner) Open(ctx context.Context, opts Options) (*Player, *Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, nil, fmt.Errorf("invalid options: %w", err)
	}

	// Stage 1: Load
	loadStart := time.Now()
	s, raw, err := r.Load(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("load: %w", err)
	}
	result := &Result{Scene: s, SceneHash: cache.Hash(raw)}
	result.Stats.NodeCount = len(s.NodeIDs())

	// Stage 2: Restore
	result.store = pivot.NewContainerStore(s, opts.Config.ContainerName)
	result.key = r.Keyer.ContainerKey(result.SceneHash, opts.Config.ContainerName)
	if !opts.Refresh {
		result.CacheInfo.ContainerHit = r.restore(ctx, result.store, result.key)
	}
	result.Stats.LoadTime = time.Since(loadStart)

	r.Logger.Info("loaded scene",
		"nodes", result.Stats.NodeCount,
		"cached_offsets", result.CacheInfo.ContainerHit,
		"duration", result.Stats.LoadTime)

	return NewPlayer(s, result.store, opts.Config, opts.Logger), result, nil
}

// Finish ends the player's session, saves the container blob and fills in
// the run summary.
func (r *Runner) Finish(ctx context.Context, player *Player, result *Result) error {
	if err := player.Close(); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	result.Stats.Sessions = player.Sessions()

	if result.CacheInfo.ContainerHit || result.Stats.Sessions > 0 {
		result.CacheInfo.ContainerSaved = r.save(ctx, result.store, result.key)
	}

	run, offsets, err := Summarize(result.Scene, result.store)
	if err != nil {
		return err
	}
	run.Steps = result.Stats.Steps
	result.Run = run
	result.Offsets = offsets
	return nil
}

// Load decodes the scene file and builds it. It also returns the raw file
// content the cache key is derived from.
func (r *Runner) Load(opts Options) (*memscene.Scene, []byte, error) {
	var (
		sf  *pio.SceneFile
		raw = opts.SceneData
		err error
	)
	if raw != nil {
		sf, err = pio.ReadScene(bytes.NewReader(raw), opts.SceneFormat)
	} else {
		sf, raw, err = pio.ImportScene(opts.ScenePath)
	}
	if err != nil {
		return nil, nil, err
	}
	s, err := sf.Build()
	if err != nil {
		return nil, nil, err
	}
	return s, raw, nil
}

// restore copies a cached container blob into the scene. A missing or
// undecodable entry leaves the container as it is.
func (r *Runner) restore(ctx context.Context, store *pivot.ContainerStore, key string) bool {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil || !hit {
		return false
	}
	if err := store.Restore(string(data)); err != nil {
		r.Logger.Warn("ignoring cached offsets", "error", err)
		return false
	}
	return true
}

func (r *Runner) save(ctx context.Context, store *pivot.ContainerStore, key string) bool {
	if _, null := r.Cache.(*cache.NullCache); null {
		return false
	}
	blob, err := store.Raw()
	if err != nil {
		r.Logger.Warn("could not read offsets for caching", "error", err)
		return false
	}
	if err := r.Cache.Set(ctx, key, []byte(blob), cache.ContainerTTL); err != nil {
		r.Logger.Warn("could not cache offsets", "error", err)
		return false
	}
	return true
}

// Summarize reports the world pose of every transform in s and the offsets
// held by store.
func Summarize(s *memscene.Scene, store pivot.OffsetStore) (*pio.RunResult, pivot.Offsets, error) {
	res := &pio.RunResult{Time: s.Time(), Offsets: map[string][]float64{}}
	for _, id := range s.NodeIDs() {
		if !s.IsTransform(id) {
			continue
		}
		world, err := s.WorldMatrix(id)
		if err != nil {
			return nil, nil, err
		}
		res.Nodes = append(res.Nodes, pio.NodeResult{
			Name:     s.Name(id),
			UUID:     string(id),
			Path:     s.Path(id),
			Position: [3]float64(mat.Position(world)),
			World:    mat.ToSlice(world),
		})
	}

	offsets, err := store.Get()
	if err != nil {
		return nil, nil, err
	}
	for uuid, m := range offsets {
		res.Offsets[uuid] = mat.ToSlice(m)
	}
	return res, offsets, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
