package pivot

import (
	"encoding/json"
	"maps"

	"github.com/matzehuels/temppivot/pkg/errors"
	"github.com/matzehuels/temppivot/pkg/mat"
	"github.com/matzehuels/temppivot/pkg/observability"
	"github.com/matzehuels/temppivot/pkg/scene"
)

const (
	// ContainerAttr is the string attribute holding the offset blob.
	ContainerAttr = "tempPivotData"

	// DefaultContainerName names the container created on first use.
	DefaultContainerName = "TempPivotManager"
)

// Offsets maps node uuids to learned offset matrices. A missing key means
// no offset was learned for that node.
type Offsets map[string]mat.Matrix

// OffsetStore persists learned offsets.
//
// Get returns the full mapping; Set replaces it. Implementations must
// round-trip exactly: Get after Set(m) returns a mapping equal to m.
type OffsetStore interface {
	Get() (Offsets, error)
	Set(Offsets) error
}

// Learn records m as the offset for uuid with a read-modify-write of the
// whole mapping.
func Learn(s OffsetStore, uuid string, m mat.Matrix) error {
	offsets, err := s.Get()
	if err != nil {
		return err
	}
	if offsets == nil {
		offsets = Offsets{}
	}
	offsets[uuid] = m
	return s.Set(offsets)
}

// =============================================================================
// Wire Codec
// =============================================================================

// EncodeOffsets serializes offsets as a JSON object of 16-element arrays.
// Keys are sorted and floats use the shortest text that parses back to the
// same value.
func EncodeOffsets(o Offsets) (string, error) {
	raw := make(map[string][]float64, len(o))
	for k, m := range o {
		raw[k] = mat.ToSlice(m)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidInput, err, "encode offsets")
	}
	return string(data), nil
}

// DecodeOffsets parses a blob written by [EncodeOffsets].
// Anything that is not a JSON object of 16-element number arrays is an
// [errors.ErrCodeCorruptState] error.
func DecodeOffsets(blob string) (Offsets, error) {
	var raw map[string][]float64
	if err := json.Unmarshal([]byte(blob), &raw); err != nil {
		return nil, errors.Wrap(errors.ErrCodeCorruptState, err, "decode offset blob")
	}
	if raw == nil {
		return nil, errors.New(errors.ErrCodeCorruptState, "decode offset blob: not a JSON object")
	}
	out := make(Offsets, len(raw))
	for k, values := range raw {
		m, err := mat.FromSlice(values)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeCorruptState, err, "offset for %s", k)
		}
		out[k] = m
	}
	return out, nil
}

// =============================================================================
// Container Store
// =============================================================================

// ContainerHost is the part of the host a [ContainerStore] needs.
type ContainerHost interface {
	scene.Attributes
	scene.Containers
}

// LocateContainer returns the scene's offset container: the first container
// node carrying [ContainerAttr] that does not come from a referenced file.
// When there is none, a container called name is created with an empty,
// locked blob.
func LocateContainer(h ContainerHost, name string) (scene.NodeID, error) {
	for _, id := range h.ContainerNodes() {
		if h.HasAttr(id, ContainerAttr) && !h.IsReferenced(id) {
			return id, nil
		}
	}

	id, err := h.CreateContainer(name)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "create container %s", name)
	}
	if err := h.AddStringAttr(id, ContainerAttr, "{}"); err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "add %s", ContainerAttr)
	}
	if err := h.SetAttrLocked(id, ContainerAttr, true); err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "lock %s", ContainerAttr)
	}
	return id, nil
}

// ContainerStore keeps offsets on the scene's container node. The container
// is located (or created) on every access, so a store stays valid when the
// container is deleted or a new scene is loaded.
type ContainerStore struct {
	host ContainerHost
	name string
}

// NewContainerStore returns a store backed by h. An empty name uses
// [DefaultContainerName].
func NewContainerStore(h ContainerHost, name string) *ContainerStore {
	if name == "" {
		name = DefaultContainerName
	}
	return &ContainerStore{host: h, name: name}
}

// Container returns the id of the backing container node.
func (s *ContainerStore) Container() (scene.NodeID, error) {
	return LocateContainer(s.host, s.name)
}

// Raw returns the blob exactly as stored.
func (s *ContainerStore) Raw() (string, error) {
	id, err := s.Container()
	if err != nil {
		return "", err
	}
	blob, err := s.host.StringAttr(id, ContainerAttr)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "read %s", ContainerAttr)
	}
	return blob, nil
}

// Get decodes the stored blob.
func (s *ContainerStore) Get() (Offsets, error) {
	blob, err := s.Raw()
	if err != nil {
		return nil, err
	}
	return DecodeOffsets(blob)
}

// Set encodes o and writes it, unlocking the attribute for the duration of
// the write only.
func (s *ContainerStore) Set(o Offsets) error {
	blob, err := EncodeOffsets(o)
	if err != nil {
		return err
	}
	if err := s.write(blob); err != nil {
		return err
	}
	observability.Store().OnOffsetWrite(len(o), len(blob))
	return nil
}

// Restore replaces the stored blob with one previously read by [ContainerStore.Raw].
// The blob must decode.
func (s *ContainerStore) Restore(blob string) error {
	if _, err := DecodeOffsets(blob); err != nil {
		return err
	}
	return s.write(blob)
}

func (s *ContainerStore) write(blob string) error {
	id, err := s.Container()
	if err != nil {
		return err
	}
	if err := s.host.SetAttrLocked(id, ContainerAttr, false); err != nil {
		return errors.Wrap(errors.ErrCodeLocked, err, "unlock %s", ContainerAttr)
	}
	werr := s.host.SetStringAttr(id, ContainerAttr, blob)
	if err := s.host.SetAttrLocked(id, ContainerAttr, true); err != nil && werr == nil {
		return errors.Wrap(errors.ErrCodeLocked, err, "relock %s", ContainerAttr)
	}
	if werr != nil {
		return errors.Wrap(errors.ErrCodeInternal, werr, "write %s", ContainerAttr)
	}
	return nil
}

// =============================================================================
// Memory Store
// =============================================================================

// MemoryStore is an [OffsetStore] held in memory. It copies on both Get and
// Set so callers cannot alias the stored mapping.
type MemoryStore struct {
	offsets Offsets
}

// NewMemoryStore returns a store seeded with a copy of initial.
func NewMemoryStore(initial Offsets) *MemoryStore {
	return &MemoryStore{offsets: maps.Clone(initial)}
}

// Get returns a copy of the stored offsets, never nil.
func (s *MemoryStore) Get() (Offsets, error) {
	out := maps.Clone(s.offsets)
	if out == nil {
		out = Offsets{}
	}
	return out, nil
}

// Set replaces the stored offsets with a copy of o.
func (s *MemoryStore) Set(o Offsets) error {
	s.offsets = maps.Clone(o)
	return nil
}

var (
	_ OffsetStore = (*ContainerStore)(nil)
	_ OffsetStore = (*MemoryStore)(nil)
)
