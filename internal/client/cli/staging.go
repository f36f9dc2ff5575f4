package cli

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// stagingPath maps a file identity to its staged envelope location. The
// identity is hashed because it embeds the original filename, which may
// contain path separators or characters the filesystem rejects.
func (a *App) stagingPath(fileID string) string {
	sum := sha256.Sum256([]byte(fileID))
	return filepath.Join(a.stagingDir, hex.EncodeToString(sum[:8])+".enc")
}

// stageEnvelope writes the encrypted envelope next to the session store so
// an interrupted upload can be resumed after a restart without re-entering
// the password.
func (a *App) stageEnvelope(fileID string, envelope []byte) (string, error) {
	path := a.stagingPath(fileID)
	if err := os.WriteFile(path, envelope, 0o600); err != nil {
		return "", fmt.Errorf("staging envelope: %w", err)
	}
	return path, nil
}

// openStagedEnvelope reattaches the staged envelope for a resumed session
// and verifies it still matches the recorded envelope size.
func (a *App) openStagedEnvelope(fileID string, wantSize int64) (*os.File, error) {
	path := a.stagingPath(fileID)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("staged envelope missing, start the upload again: %w", err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if fi.Size() != wantSize {
		f.Close()
		return nil, fmt.Errorf("staged envelope size %d does not match session size %d", fi.Size(), wantSize)
	}
	return f, nil
}

func (a *App) discardStagedEnvelope(fileID string) {
	if err := os.Remove(a.stagingPath(fileID)); err != nil && !os.IsNotExist(err) {
		a.log.Warn(context.Background(), "removing staged envelope failed", "err", err)
	}
}
