// Package identity manages the per-installation user ID sent to the
// assistant backend. The backend scopes sessions, uploads and generated
// files to this ID, so it must be stable across CLI invocations.
package identity

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/Kirito123l/emission-agent/pkg/dotdir"
)

const identityFile = "user_id"

// Load returns the persisted user ID from the .emission/ directory,
// generating and persisting a new one on first use. If overrideDir is
// non-empty, it is used instead of the default dotdir resolution.
func Load(overrideDir string) (string, error) {
	ddm := dotdir.NewManager()
	dir, err := ddm.Target(overrideDir)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, identityFile)
	data, err := os.ReadFile(path)
	if err == nil {
		id := strings.TrimSpace(string(data))
		if _, parseErr := uuid.Parse(id); parseErr == nil {
			return id, nil
		}
		// Corrupt identity file, mint a fresh one.
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("reading user identity: %w", err)
	}

	id := uuid.NewString()
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("writing user identity: %w", err)
	}

	return id, nil
}
