package scene

import "strings"

// ChangeKind is the bitmask passed to transform-changed callbacks.
type ChangeKind uint32

const (
	Translate ChangeKind = 1 << iota
	Rotate
	Scale
	RotatePivot
	ScalePivot
)

// TRS covers the bits that move the node itself.
const TRS = Translate | Rotate | Scale

// Pivot covers the bits that only move the manipulator pivot.
const Pivot = RotatePivot | ScalePivot

// IsTransform reports whether the change moves the node.
func (k ChangeKind) IsTransform() bool { return k&TRS != 0 }

// IsPivot reports whether the change relocates the manipulator pivot.
func (k ChangeKind) IsPivot() bool { return k&Pivot != 0 }

func (k ChangeKind) String() string {
	if k == 0 {
		return "none"
	}
	names := []struct {
		bit  ChangeKind
		name string
	}{
		{Translate, "translate"},
		{Rotate, "rotate"},
		{Scale, "scale"},
		{RotatePivot, "rotatePivot"},
		{ScalePivot, "scalePivot"},
	}
	var parts []string
	for _, n := range names {
		if k&n.bit != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}
