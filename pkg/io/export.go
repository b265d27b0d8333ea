package io

import (
	"fmt"
	"io"
	"os"
)

// RunResult is the outcome of replaying a script against a scene.
type RunResult struct {
	Time    float64              `toml:"time" yaml:"time" json:"time"`
	Steps   int                  `toml:"steps" yaml:"steps" json:"steps"`
	Nodes   []NodeResult         `toml:"nodes" yaml:"nodes" json:"nodes"`
	Offsets map[string][]float64 `toml:"offsets" yaml:"offsets" json:"offsets"`
}

// NodeResult is the final pose of one scene transform.
type NodeResult struct {
	Name     string     `toml:"name" yaml:"name" json:"name"`
	UUID     string     `toml:"uuid" yaml:"uuid" json:"uuid"`
	Path     string     `toml:"path" yaml:"path" json:"path"`
	Position [3]float64 `toml:"position" yaml:"position,flow" json:"position"`
	World    []float64  `toml:"world" yaml:"world,flow" json:"world"`
}

// WriteResult encodes res to w.
func WriteResult(w io.Writer, res *RunResult, f Format) error {
	if res.Offsets == nil {
		res.Offsets = map[string][]float64{}
	}
	if err := encode(w, f, res); err != nil {
		return fmt.Errorf("encode %s result: %w", f, err)
	}
	return nil
}

// ExportResult writes res to path, picking the format from its extension.
func ExportResult(path string, res *RunResult) error {
	f, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteResult(out, res, f); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
