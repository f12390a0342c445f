package transcript

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Scratch is the directory holding transient audio artifacts.
type Scratch struct {
	Dir string
}

// Slot is a per-invocation base path inside Scratch: <dir>/<media id>-<token>.
// Every file a stage writes for one invocation shares this prefix.
type Slot struct {
	Base string
}

// Reserve creates the scratch directory if needed and returns a fresh slot for mediaID.
// Two reservations for the same id never share a path.
func (s Scratch) Reserve(mediaID string) (Slot, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return Slot{}, fmt.Errorf("create scratch dir %s: %w", s.Dir, err)
	}
	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return Slot{Base: filepath.Join(s.Dir, mediaID+"-"+token)}, nil
}

// Path returns the slot's file with the given extension (".wav", ".txt").
func (s Slot) Path(ext string) string {
	return s.Base + ext
}

// Release removes every file that starts with the slot's base name,
// including partial downloads left by a failed extractor run.
func (s Slot) Release() error {
	if s.Base == "" {
		return nil
	}
	dir, prefix := filepath.Dir(s.Base), filepath.Base(s.Base)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var firstErr error
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
