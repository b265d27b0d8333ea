// Package pipeline replays edit scripts against in-memory scenes.
//
// This package is the shared core of the `run` and `interactive` commands:
// it loads a scene file, restores the offset container from the cache,
// drives temp pivot sessions step by step and saves the container back so
// offsets learned in one run are found again in the next.
//
// # Architecture
//
// A run has three stages:
//
//  1. Load: decode the scene file and build a [memscene.Scene]
//  2. Restore: copy the cached container blob into the scene's container
//  3. Play: apply each script step through a [Player], then save the blob
//
// # Usage
//
// Create a Runner and execute a script:
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    ScenePath: "rig.toml",
//	    Script:    script,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, n := range result.Run.Nodes {
//	    fmt.Println(n.Name, n.Position)
//	}
//
// Drive a scene by hand (the interactive command does this):
//
//	p, result, err := runner.Open(ctx, opts)
//	p.Select(ctx, "hips", "head")
//	p.Move(mat.Vec3{0, 1, 0})
//	err = runner.Finish(ctx, p, result)
package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	pio "github.com/matzehuels/temppivot/pkg/io"
	"github.com/matzehuels/temppivot/pkg/pivot"
	"github.com/matzehuels/temppivot/pkg/scene/memscene"
)

// =============================================================================
// Options - Run Configuration
// =============================================================================

// Options configures a run.
type Options struct {
	// ScenePath is the scene file to load. Ignored when SceneData is set.
	ScenePath string

	// SceneData is an already read scene file in SceneFormat.
	SceneData   []byte
	SceneFormat pio.Format

	// Script is replayed against the scene. A nil script only loads the
	// scene and restores its container.
	Script *pio.Script

	// Config holds the engine settings. The zero value means
	// [pivot.DefaultConfig].
	Config pivot.Config

	// Refresh ignores the cached container blob. The blob produced by the
	// run is still saved.
	Refresh bool

	// Logger receives progress logs. Nil discards them.
	Logger *log.Logger

	validated bool
}

// Result contains the outputs of a run.
type Result struct {
	// Scene is the scene after the last step.
	Scene *memscene.Scene

	// SceneHash is the content hash of the scene file.
	SceneHash string

	// Run holds the final node poses and learned offsets.
	Run *pio.RunResult

	// Offsets is the decoded container blob after the run.
	Offsets pivot.Offsets

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks cache use.
	CacheInfo CacheInfo

	store *pivot.ContainerStore
	key   string
}

// Stats contains run statistics.
type Stats struct {
	NodeCount int
	Steps     int
	Sessions  int
	LoadTime  time.Duration
	PlayTime  time.Duration
}

// CacheInfo tracks what the cache contributed.
type CacheInfo struct {
	ContainerHit   bool // cached container blob restored into the scene
	ContainerSaved bool // container blob written back
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults.
// Calling it more than once has no further effect.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.ScenePath == "" && o.SceneData == nil {
		return fmt.Errorf("scene path or scene data is required")
	}
	if o.SceneData != nil && o.SceneFormat == "" {
		return fmt.Errorf("scene format is required with scene data")
	}
	if o.Config == (pivot.Config{}) {
		o.Config = pivot.DefaultConfig()
	}
	if err := o.Config.Validate(); err != nil {
		return err
	}
	if o.Script != nil {
		if err := o.Script.Validate(); err != nil {
			return err
		}
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// Steps returns the script steps, nil without a script.
func (o *Options) Steps() []pio.Step {
	if o.Script == nil {
		return nil
	}
	return o.Script.Steps
}
