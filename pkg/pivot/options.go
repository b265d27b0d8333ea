package pivot

import (
	"math"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/temppivot/pkg/errors"
	"github.com/matzehuels/temppivot/pkg/mat"
)

// Config holds the tunable engine settings. It is decoded from the CLI's
// config file, so every field has a TOML key.
type Config struct {
	// Epsilon is the element-wise tolerance below which a bound node is
	// considered to already sit at its target.
	Epsilon float64 `toml:"epsilon"`

	// LearnPivotEdits caches the last bound node's offset every time the
	// user relocates the manipulator pivot, not only when the session ends.
	LearnPivotEdits bool `toml:"learn_pivot_edits"`

	// MasterGroupName names new master groups.
	MasterGroupName string `toml:"master_group_name"`

	// ContainerName names the offset container when one has to be created.
	ContainerName string `toml:"container_name"`
}

// DefaultConfig returns the default settings.
func DefaultConfig() Config {
	return Config{
		Epsilon:         mat.DefaultEpsilon,
		LearnPivotEdits: true,
		MasterGroupName: DefaultMasterGroupName,
		ContainerName:   DefaultContainerName,
	}
}

// Validate checks the settings.
func (c Config) Validate() error {
	if !(c.Epsilon > 0) || math.IsInf(c.Epsilon, 0) {
		return errors.New(errors.ErrCodeInvalidInput, "epsilon must be a positive number, got %v", c.Epsilon)
	}
	if err := errors.ValidateNodeName(c.MasterGroupName); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "master_group_name")
	}
	if err := errors.ValidateNodeName(c.ContainerName); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "container_name")
	}
	return nil
}

// Option configures an [Engine].
type Option func(*Engine)

// WithConfig replaces all settings at once.
func WithConfig(c Config) Option { return func(e *Engine) { e.cfg = c } }

// WithEpsilon sets the convergence tolerance.
func WithEpsilon(eps float64) Option { return func(e *Engine) { e.cfg.Epsilon = eps } }

// WithLearnPivotEdits toggles caching on manipulator pivot edits.
func WithLearnPivotEdits(on bool) Option { return func(e *Engine) { e.cfg.LearnPivotEdits = on } }

// WithNames sets the master group and container names.
func WithNames(masterGroup, container string) Option {
	return func(e *Engine) {
		e.cfg.MasterGroupName = masterGroup
		e.cfg.ContainerName = container
	}
}

// WithLogger sets the engine logger. The default is [log.Default].
func WithLogger(l *log.Logger) Option { return func(e *Engine) { e.logger = l } }
