package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/sendvault/internal/client/models"
	"github.com/dmitrijs2005/sendvault/internal/common"
	"github.com/dmitrijs2005/sendvault/internal/filex"
)

// Resume continues an interrupted upload for the given file.
func (a *App) Resume(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: resume <file>")
	}

	file, err := filex.Stat(args[0])
	if err != nil {
		return err
	}

	session, found, err := a.transfers.CheckIncompleteUpload(ctx, file)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no interrupted upload for %s", file.Name)
	}

	return a.resumeSession(ctx, session)
}

func (a *App) resumeSession(ctx context.Context, session *models.TransferSession) error {
	resumed, err := a.transfers.ResumeUpload(ctx, session.FileID)
	if err != nil {
		if errors.Is(err, common.ErrSessionExpired) {
			a.discardStagedEnvelope(session.FileID)
			return errors.New("the upload session has expired, start the upload again")
		}
		return err
	}

	envelope, err := a.openStagedEnvelope(resumed.FileID, resumed.FileSize)
	if err != nil {
		return err
	}
	defer envelope.Close()

	fmt.Printf("Resuming %s from %.0f%%\n", resumed.FileName, resumed.ProgressPercent)
	return a.runUpload(ctx, resumed, envelope)
}
