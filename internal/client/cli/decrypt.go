package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"

	"github.com/dmitrijs2005/sendvault/internal/common"
	"github.com/dmitrijs2005/sendvault/internal/cryptox"
)

// Decrypt opens a downloaded envelope and writes the original file to the
// current directory (or the given output directory).
func (a *App) Decrypt(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("usage: decrypt <envelope> [output-dir]")
	}

	envelope, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	outDir := "."
	if len(args) == 2 {
		outDir = args[1]
	}

	password, err := GetPassword(os.Stdout, "Enter password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	result, err := cryptox.Decrypt(envelope, password, func(p float64) {
		fmt.Printf("\rDecrypting... %3.0f%%", p*100)
	})
	fmt.Println()
	if err != nil {
		if errors.Is(err, common.ErrInvalidPassword) {
			return errors.New("wrong password or damaged envelope header")
		}
		return err
	}

	name := result.OriginalName
	if name == cryptox.PlaceholderName {
		// The encrypted name did not survive; sniff the content so the
		// output at least gets a usable extension.
		name += mimetype.Detect(result.Plaintext).Extension()
	}

	outPath := filepath.Join(outDir, filepath.Base(name))
	if _, err := os.Stat(outPath); err == nil {
		return fmt.Errorf("%s already exists, not overwriting", outPath)
	}
	if err := os.WriteFile(outPath, result.Plaintext, 0o600); err != nil {
		return err
	}

	fmt.Printf("Decrypted to %s (%d bytes)\n", outPath, len(result.Plaintext))
	return nil
}
