package errors

import (
	"strings"
	"unicode"
)

// maxNodeNameLen bounds node names read from scene files.
const maxNodeNameLen = 256

// ValidateNodeName validates a node name read from a scene or script file.
//
// The rules mirror what the editor host accepts for short node names:
//   - No empty names
//   - No control characters or whitespace
//   - No path separators ("|" is the host's DAG path separator)
//   - No namespace separators (":")
//   - Maximum length of 256 characters
func ValidateNodeName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidScene, "node name cannot be empty")
	}

	if len(name) > maxNodeNameLen {
		return New(ErrCodeInvalidScene, "node name too long (max %d characters)", maxNodeNameLen)
	}

	for _, r := range name {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidScene, "node name %q contains whitespace or control characters", name)
		}
	}

	for _, sep := range []string{"|", ":"} {
		if strings.Contains(name, sep) {
			return New(ErrCodeInvalidScene, "node name %q contains reserved separator %q", name, sep)
		}
	}

	return nil
}
