package io

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/temppivot/pkg/errors"
	"github.com/matzehuels/temppivot/pkg/scene/memscene"
)

// SceneFile is the on-disk form of a scene.
type SceneFile struct {
	Time      float64    `toml:"time" yaml:"time,omitempty" json:"time,omitempty"`
	Selection []string   `toml:"selection" yaml:"selection,omitempty" json:"selection,omitempty"`
	Nodes     []NodeSpec `toml:"nodes" yaml:"nodes" json:"nodes"`
}

// NodeSpec is one transform of a [SceneFile].
type NodeSpec struct {
	Name      string    `toml:"name" yaml:"name" json:"name"`
	Parent    string    `toml:"parent" yaml:"parent,omitempty" json:"parent,omitempty"`
	UUID      string    `toml:"uuid" yaml:"uuid,omitempty" json:"uuid,omitempty"`
	Translate []float64 `toml:"translate" yaml:"translate,omitempty" json:"translate,omitempty"`
	Rotate    []float64 `toml:"rotate" yaml:"rotate,omitempty" json:"rotate,omitempty"`
	Scale     []float64 `toml:"scale" yaml:"scale,omitempty" json:"scale,omitempty"`
	Pivot     []float64 `toml:"pivot" yaml:"pivot,omitempty" json:"pivot,omitempty"`
}

// Description converts the file into a buildable scene description.
// Node names are validated; hierarchy errors are left to [memscene.Build].
func (f SceneFile) Description() (memscene.Description, error) {
	desc := memscene.Description{
		Selection: f.Selection,
		Time:      f.Time,
		Nodes:     make([]memscene.NodeDesc, 0, len(f.Nodes)),
	}
	for i, n := range f.Nodes {
		if err := errors.ValidateNodeName(n.Name); err != nil {
			return desc, fmt.Errorf("node %d: %w", i, err)
		}
		nd := memscene.NodeDesc{Name: n.Name, Parent: n.Parent, UUID: n.UUID}
		for _, v := range []struct {
			field string
			in    []float64
			out   *[3]float64
		}{
			{"translate", n.Translate, &nd.Translate},
			{"rotate", n.Rotate, &nd.Rotate},
			{"scale", n.Scale, &nd.Scale},
			{"pivot", n.Pivot, &nd.RotatePivot},
		} {
			vec, err := vec3(v.in)
			if err != nil {
				return desc, fmt.Errorf("node %q: %s: %w", n.Name, v.field, err)
			}
			*v.out = vec
		}
		desc.Nodes = append(desc.Nodes, nd)
	}
	return desc, nil
}

// Build decodes the file into a live in-memory scene.
func (f SceneFile) Build() (*memscene.Scene, error) {
	desc, err := f.Description()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidScene, err, "scene")
	}
	s, err := memscene.Build(desc)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidScene, err, "scene")
	}
	return s, nil
}

func vec3(v []float64) ([3]float64, error) {
	var out [3]float64
	switch len(v) {
	case 0:
		return out, nil
	case 3:
		copy(out[:], v)
		return out, nil
	}
	return out, fmt.Errorf("want 3 numbers, got %d", len(v))
}

// ReadScene decodes a scene from r.
func ReadScene(r io.Reader, f Format) (*SceneFile, error) {
	var sf SceneFile
	if err := decode(r, f, &sf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode %s scene", f)
	}
	if len(sf.Nodes) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidScene, "scene has no nodes")
	}
	return &sf, nil
}

// ImportScene reads the scene file at path. It also returns the raw file
// content, whose hash identifies the scene in the cache.
func ImportScene(path string) (*SceneFile, []byte, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "%s", path)
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	sf, err := ReadScene(bytes.NewReader(data), f)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return sf, data, nil
}
