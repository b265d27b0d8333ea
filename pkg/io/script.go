package io

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/matzehuels/temppivot/pkg/errors"
)

// StepKind names the operation of a script [Step].
type StepKind string

// Step operations.
const (
	StepSelect   StepKind = "select"
	StepMove     StepKind = "move"
	StepRotate   StepKind = "rotate"
	StepScale    StepKind = "scale"
	StepPivot    StepKind = "pivot"
	StepTime     StepKind = "time"
	StepDelete   StepKind = "delete"
	StepDeselect StepKind = "deselect"
	StepCancel   StepKind = "cancel"
)

// Script is a replayable list of edits.
type Script struct {
	Steps []Step `toml:"steps" yaml:"steps" json:"steps"`
}

// Step is one edit. Exactly one field is set.
type Step struct {
	Select   []string  `toml:"select,omitempty" yaml:"select,omitempty" json:"select,omitempty"`
	Move     []float64 `toml:"move,omitempty" yaml:"move,omitempty" json:"move,omitempty"`
	Rotate   []float64 `toml:"rotate,omitempty" yaml:"rotate,omitempty" json:"rotate,omitempty"`
	Scale    []float64 `toml:"scale,omitempty" yaml:"scale,omitempty" json:"scale,omitempty"`
	Pivot    []float64 `toml:"pivot,omitempty" yaml:"pivot,omitempty" json:"pivot,omitempty"`
	Time     *float64  `toml:"time,omitempty" yaml:"time,omitempty" json:"time,omitempty"`
	Delete   string    `toml:"delete,omitempty" yaml:"delete,omitempty" json:"delete,omitempty"`
	Deselect bool      `toml:"deselect,omitempty" yaml:"deselect,omitempty" json:"deselect,omitempty"`
	Cancel   bool      `toml:"cancel,omitempty" yaml:"cancel,omitempty" json:"cancel,omitempty"`
}

// kinds lists the operations that are set on s.
func (s Step) kinds() []StepKind {
	var out []StepKind
	if s.Select != nil {
		out = append(out, StepSelect)
	}
	if s.Move != nil {
		out = append(out, StepMove)
	}
	if s.Rotate != nil {
		out = append(out, StepRotate)
	}
	if s.Scale != nil {
		out = append(out, StepScale)
	}
	if s.Pivot != nil {
		out = append(out, StepPivot)
	}
	if s.Time != nil {
		out = append(out, StepTime)
	}
	if s.Delete != "" {
		out = append(out, StepDelete)
	}
	if s.Deselect {
		out = append(out, StepDeselect)
	}
	if s.Cancel {
		out = append(out, StepCancel)
	}
	return out
}

// Kind returns the step's operation, or "" when none or several are set.
func (s Step) Kind() StepKind {
	if k := s.kinds(); len(k) == 1 {
		return k[0]
	}
	return ""
}

func (s Step) vecField(k StepKind) []float64 {
	switch k {
	case StepMove:
		return s.Move
	case StepRotate:
		return s.Rotate
	case StepScale:
		return s.Scale
	case StepPivot:
		return s.Pivot
	}
	return nil
}

// Vec returns the three numbers of a move, rotate, scale or pivot step.
func (s Step) Vec() [3]float64 {
	var out [3]float64
	copy(out[:], s.vecField(s.Kind()))
	return out
}

// Validate checks that exactly one well-formed operation is set.
func (s Step) Validate() error {
	kinds := s.kinds()
	switch len(kinds) {
	case 0:
		return fmt.Errorf("empty step")
	case 1:
	default:
		names := make([]string, len(kinds))
		for i, k := range kinds {
			names[i] = string(k)
		}
		return fmt.Errorf("step sets %s; want exactly one operation", strings.Join(names, ", "))
	}

	switch kinds[0] {
	case StepMove, StepRotate, StepScale, StepPivot:
		if v := s.vecField(kinds[0]); len(v) != 3 {
			return fmt.Errorf("%s: want 3 numbers, got %d", kinds[0], len(v))
		}
	case StepSelect:
		for _, name := range s.Select {
			if err := errors.ValidateNodeName(name); err != nil {
				return fmt.Errorf("select: %w", err)
			}
		}
	case StepDelete:
		if err := errors.ValidateNodeName(s.Delete); err != nil {
			return fmt.Errorf("delete: %w", err)
		}
	}
	return nil
}

// Validate checks every step.
func (s Script) Validate() error {
	for i, step := range s.Steps {
		if err := step.Validate(); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return nil
}

// ReadScript decodes and validates a script from r.
func ReadScript(r io.Reader, f Format) (*Script, error) {
	var sc Script
	if err := decode(r, f, &sc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode %s script", f)
	}
	if err := sc.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "script")
	}
	return &sc, nil
}

// ImportScript reads the script file at path.
func ImportScript(path string) (*Script, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "%s", path)
	}
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	sc, err := ReadScript(file, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}
