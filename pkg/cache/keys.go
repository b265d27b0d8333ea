package cache

// Keyer builds cache keys.
type Keyer interface {
	// ContainerKey keys the offset blob of the container called container
	// in the scene whose description hashes to sceneHash.
	ContainerKey(sceneHash, container string) string
}

// DefaultKeyer is the standard [Keyer].
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// ContainerKey implements [Keyer].
func (DefaultKeyer) ContainerKey(sceneHash, container string) string {
	return hashKey("container", sceneHash, container)
}
