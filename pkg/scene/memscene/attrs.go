package memscene

import (
	"fmt"

	"github.com/matzehuels/temppivot/pkg/scene"
)

func (s *Scene) attr(id scene.NodeID, name string, kind attrKind) (*attribute, error) {
	n, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	a, ok := n.attrs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrAttrNotFound, n.name, name)
	}
	if a.kind != kind {
		return nil, fmt.Errorf("%w: %s.%s", ErrAttrType, n.name, name)
	}
	return a, nil
}

func (s *Scene) addAttr(id scene.NodeID, name string, a *attribute) error {
	n, err := s.lookup(id)
	if err != nil {
		return err
	}
	if _, ok := n.attrs[name]; ok {
		return fmt.Errorf("%w: %s.%s", ErrAttrExists, n.name, name)
	}
	n.attrs[name] = a
	return nil
}

// HasAttr reports whether the node has a dynamic attribute called name.
func (s *Scene) HasAttr(id scene.NodeID, name string) bool {
	n, ok := s.nodes[id]
	if !ok {
		return false
	}
	_, ok = n.attrs[name]
	return ok
}

// AddBoolAttr adds a boolean attribute.
func (s *Scene) AddBoolAttr(id scene.NodeID, name string, value bool) error {
	return s.addAttr(id, name, &attribute{kind: attrBool, b: value})
}

// BoolAttr reads a boolean attribute.
func (s *Scene) BoolAttr(id scene.NodeID, name string) (bool, error) {
	a, err := s.attr(id, name, attrBool)
	if err != nil {
		return false, err
	}
	return a.b, nil
}

// AddStringAttr adds a string attribute.
func (s *Scene) AddStringAttr(id scene.NodeID, name, value string) error {
	return s.addAttr(id, name, &attribute{kind: attrString, s: value})
}

// StringAttr reads a string attribute.
func (s *Scene) StringAttr(id scene.NodeID, name string) (string, error) {
	a, err := s.attr(id, name, attrString)
	if err != nil {
		return "", err
	}
	return a.s, nil
}

// SetStringAttr writes a string attribute and queues attribute-changed.
func (s *Scene) SetStringAttr(id scene.NodeID, name, value string) error {
	a, err := s.attr(id, name, attrString)
	if err != nil {
		return err
	}
	if a.locked {
		return fmt.Errorf("set %s.%s: %w", s.Name(id), name, ErrLocked)
	}
	a.s = value
	s.queueAttrChanged(id, name)
	return nil
}

// SetAttrLocked toggles the attribute lock.
func (s *Scene) SetAttrLocked(id scene.NodeID, name string, locked bool) error {
	n, err := s.lookup(id)
	if err != nil {
		return err
	}
	a, ok := n.attrs[name]
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrAttrNotFound, n.name, name)
	}
	a.locked = locked
	return nil
}

// AttrLocked reports whether the attribute is locked.
func (s *Scene) AttrLocked(id scene.NodeID, name string) bool {
	n, ok := s.nodes[id]
	if !ok {
		return false
	}
	a, ok := n.attrs[name]
	return ok && a.locked
}
