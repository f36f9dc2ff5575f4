package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/sendvault/internal/filex"
)

// CancelUpload cancels an interrupted upload for the given file and discards
// its staged envelope.
func (a *App) CancelUpload(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: cancel <file>")
	}

	file, err := filex.Stat(args[0])
	if err != nil {
		return err
	}

	if err := a.transfers.Cancel(ctx, file.ID()); err != nil {
		return err
	}
	a.discardStagedEnvelope(file.ID())

	fmt.Printf("Cancelled upload of %s.\n", file.Name)
	return nil
}
