package io

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/temppivot/pkg/errors"
)

const sceneTOML = `
time = 1
selection = ["hips", "head"]

[[nodes]]
name = "head"
parent = "hips"
translate = [0, 0.6, 0]
rotate = [0, 0, 15]
pivot = [0, 0.1, 0]

[[nodes]]
name = "hips"
translate = [0, 1, 0]
`

const sceneYAML = `
time: 1
selection: [hips, head]
nodes:
  - name: head
    parent: hips
    translate: [0, 0.6, 0]
    rotate: [0, 0, 15]
    pivot: [0, 0.1, 0]
  - name: hips
    translate: [0, 1, 0]
`

const sceneJSON = `{
  "time": 1,
  "selection": ["hips", "head"],
  "nodes": [
    {"name": "head", "parent": "hips", "translate": [0, 0.6, 0], "rotate": [0, 0, 15], "pivot": [0, 0.1, 0]},
    {"name": "hips", "translate": [0, 1, 0]}
  ]
}`

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"scene.toml", FormatTOML, false},
		{"scene.YAML", FormatYAML, false},
		{"dir/scene.yml", FormatYAML, false},
		{"scene.json", FormatJSON, false},
		{"scene.txt", "", true},
		{"scene", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatFromPath(tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FormatFromPath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("FormatFromPath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"toml": FormatTOML, "YAML": FormatYAML, "yml": FormatYAML, "json": FormatJSON} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat(xml) should fail")
	}
}

func TestReadScene_AllFormats(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		data   string
	}{
		{"toml", FormatTOML, sceneTOML},
		{"yaml", FormatYAML, sceneYAML},
		{"json", FormatJSON, sceneJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sf, err := ReadScene(strings.NewReader(tt.data), tt.format)
			if err != nil {
				t.Fatalf("ReadScene: %v", err)
			}
			if sf.Time != 1 {
				t.Errorf("Time = %v, want 1", sf.Time)
			}
			if len(sf.Nodes) != 2 || sf.Nodes[0].Name != "head" || sf.Nodes[0].Parent != "hips" {
				t.Fatalf("Nodes = %+v", sf.Nodes)
			}

			s, err := sf.Build()
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			head, ok := s.FindByName("head")
			if !ok {
				t.Fatal("head not built")
			}
			if got := s.Path(head); got != "|hips|head" {
				t.Errorf("Path(head) = %q, want |hips|head", got)
			}
			pivot, err := s.RotatePivot(head)
			if err != nil || pivot[1] != 0.1 {
				t.Errorf("RotatePivot(head) = %v, %v; want y=0.1", pivot, err)
			}
			if len(s.Selection()) != 2 {
				t.Errorf("Selection = %v, want 2 nodes", s.Selection())
			}
		})
	}
}

func TestReadScene_Errors(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		data   string
		code   errors.Code
	}{
		{"unknown toml key", FormatTOML, "[[nodes]]\nname = \"a\"\ncolour = \"red\"\n", errors.ErrCodeInvalidFormat},
		{"unknown yaml key", FormatYAML, "nodes:\n  - name: a\n    colour: red\n", errors.ErrCodeInvalidFormat},
		{"unknown json key", FormatJSON, `{"nodes":[{"name":"a","colour":"red"}]}`, errors.ErrCodeInvalidFormat},
		{"malformed", FormatJSON, `{"nodes":`, errors.ErrCodeInvalidFormat},
		{"no nodes", FormatYAML, "time: 3\n", errors.ErrCodeInvalidScene},
		{"empty document", FormatYAML, "", errors.ErrCodeInvalidScene},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadScene(strings.NewReader(tt.data), tt.format)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.GetCode(err); got != tt.code {
				t.Errorf("code = %s, want %s (%v)", got, tt.code, err)
			}
		})
	}
}

func TestSceneFile_BuildErrors(t *testing.T) {
	tests := []struct {
		name string
		sf   SceneFile
	}{
		{"short vector", SceneFile{Nodes: []NodeSpec{{Name: "a", Translate: []float64{1, 2}}}}},
		{"empty name", SceneFile{Nodes: []NodeSpec{{Name: ""}}}},
		{"unknown parent", SceneFile{Nodes: []NodeSpec{{Name: "a", Parent: "b"}}}},
		{"unknown selection", SceneFile{Nodes: []NodeSpec{{Name: "a"}}, Selection: []string{"z"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.sf.Build()
			if !errors.Is(err, errors.ErrCodeInvalidScene) {
				t.Errorf("Build() error = %v, want INVALID_SCENE", err)
			}
		})
	}
}

func TestImportScene(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rig.yaml")
	if err := os.WriteFile(path, []byte(sceneYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	sf, raw, err := ImportScene(path)
	if err != nil {
		t.Fatalf("ImportScene: %v", err)
	}
	if string(raw) != sceneYAML {
		t.Error("ImportScene should return the raw file content")
	}
	if len(sf.Nodes) != 2 {
		t.Errorf("Nodes = %d, want 2", len(sf.Nodes))
	}

	_, _, err = ImportScene(filepath.Join(dir, "missing.yaml"))
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing file error = %v, want FILE_NOT_FOUND", err)
	}
	_, _, err = ImportScene(filepath.Join(dir, "rig.txt"))
	if !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("bad extension error = %v, want INVALID_FORMAT", err)
	}
}

func TestReadScript(t *testing.T) {
	data := `
steps:
  - select: [hips, head]
  - move: [0, 2, 0]
  - rotate: [0, 90, 0]
  - scale: [2, 2, 2]
  - pivot: [0, 1, 0]
  - time: 24
  - delete: head
  - deselect: true
  - cancel: true
`
	sc, err := ReadScript(strings.NewReader(data), FormatYAML)
	if err != nil {
		t.Fatalf("ReadScript: %v", err)
	}

	want := []StepKind{StepSelect, StepMove, StepRotate, StepScale, StepPivot, StepTime, StepDelete, StepDeselect, StepCancel}
	if len(sc.Steps) != len(want) {
		t.Fatalf("got %d steps, want %d", len(sc.Steps), len(want))
	}
	for i, k := range want {
		if got := sc.Steps[i].Kind(); got != k {
			t.Errorf("step %d kind = %q, want %q", i, got, k)
		}
	}
	if got := sc.Steps[2].Vec(); got != [3]float64{0, 90, 0} {
		t.Errorf("rotate Vec = %v", got)
	}
	if *sc.Steps[5].Time != 24 {
		t.Errorf("time = %v, want 24", *sc.Steps[5].Time)
	}
}

func TestReadScript_TOML(t *testing.T) {
	data := `
[[steps]]
select = ["a"]

[[steps]]
time = 0

[[steps]]
deselect = true
`
	sc, err := ReadScript(strings.NewReader(data), FormatTOML)
	if err != nil {
		t.Fatalf("ReadScript: %v", err)
	}
	if got := sc.Steps[1].Kind(); got != StepTime {
		t.Errorf("time = 0 should still be a time step, got %q", got)
	}
}

func TestStep_Validate(t *testing.T) {
	zero := 0.0
	tests := []struct {
		name    string
		step    Step
		wantErr string
	}{
		{"move", Step{Move: []float64{1, 2, 3}}, ""},
		{"time zero", Step{Time: &zero}, ""},
		{"empty", Step{}, "empty step"},
		{"two ops", Step{Move: []float64{1, 2, 3}, Deselect: true}, "move, deselect"},
		{"short vector", Step{Scale: []float64{2}}, "want 3 numbers"},
		{"bad select name", Step{Select: []string{""}}, "select"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.step.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}

	if k := (Step{Move: []float64{1, 2, 3}, Cancel: true}).Kind(); k != "" {
		t.Errorf("Kind() of a two-op step = %q, want empty", k)
	}
}

func TestReadScript_Invalid(t *testing.T) {
	_, err := ReadScript(strings.NewReader(`{"steps":[{"move":[1]}]}`), FormatJSON)
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("error = %v, want INVALID_INPUT", err)
	}
	if err != nil && !strings.Contains(err.Error(), "step 1") {
		t.Errorf("error %q should name the step", err)
	}
}

func TestWriteResult(t *testing.T) {
	res := &RunResult{
		Time:  2,
		Steps: 3,
		Nodes: []NodeResult{{
			Name:     "hips",
			UUID:     "0b4c7a9e-3f55-4d5e-8a55-2e8f3bb8b0a1",
			Path:     "|hips",
			Position: [3]float64{0, 3, 0},
			World:    []float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 3, 0, 1},
		}},
	}

	for _, f := range []Format{FormatTOML, FormatYAML, FormatJSON} {
		t.Run(string(f), func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteResult(&buf, res, f); err != nil {
				t.Fatalf("WriteResult: %v", err)
			}
			out := buf.String()
			for _, want := range []string{"hips", "|hips", "0b4c7a9e"} {
				if !strings.Contains(out, want) {
					t.Errorf("%s output missing %q:\n%s", f, want, out)
				}
			}
		})
	}
}

func TestExportResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	res := &RunResult{Offsets: map[string][]float64{"u": make([]float64, 16)}}
	if err := ExportResult(path, res); err != nil {
		t.Fatalf("ExportResult: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"offsets"`) {
		t.Errorf("output missing offsets: %s", data)
	}
	if err := ExportResult(filepath.Join(t.TempDir(), "out.xml"), res); err == nil {
		t.Error("ExportResult should reject unknown extensions")
	}
}
