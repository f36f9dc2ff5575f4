package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/sendvault/internal/client/models"
	"github.com/dmitrijs2005/sendvault/internal/common"
	"github.com/dmitrijs2005/sendvault/internal/cryptox"
	"github.com/dmitrijs2005/sendvault/internal/filex"
)

// Upload encrypts the given file and transfers the envelope. If an
// interrupted session exists for the same file identity, the user is offered
// a resume instead of re-encrypting and starting over.
func (a *App) Upload(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: upload <file>")
	}

	file, err := filex.Stat(args[0])
	if err != nil {
		return err
	}

	session, found, err := a.transfers.CheckIncompleteUpload(ctx, file)
	if err != nil {
		return err
	}
	if found {
		answer, err := GetSimpleText(a.reader,
			fmt.Sprintf("Found an interrupted upload for %s (%.0f%% done). Resume? [Y/n]", file.Name, session.ProgressPercent),
			os.Stdout)
		if err != nil {
			return err
		}
		if answer == "" || strings.EqualFold(answer, "y") || strings.EqualFold(answer, "yes") {
			return a.resumeSession(ctx, session)
		}
		if err := a.transfers.Cancel(ctx, file.ID()); err != nil {
			return err
		}
		a.discardStagedEnvelope(file.ID())
	}

	password, err := GetNewPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	src, err := os.Open(file.Path)
	if err != nil {
		return err
	}
	defer src.Close()

	fmt.Printf("Encrypting %s (%d bytes)\n", file.Name, file.Size)
	envelope, err := cryptox.Encrypt(file.Name, src, file.Size, password, func(p float64) {
		fmt.Printf("\rEncrypting... %3.0f%%", p*100)
	})
	fmt.Println()
	if err != nil {
		return err
	}

	if _, err := a.stageEnvelope(file.ID(), envelope); err != nil {
		return err
	}

	session, err = a.transfers.InitiateUpload(ctx, file, int64(len(envelope)), nil)
	if err != nil {
		return err
	}

	return a.runUpload(ctx, session, bytes.NewReader(envelope))
}

// runUpload drives UploadFile with console progress and prints the retrieval
// details on success.
func (a *App) runUpload(ctx context.Context, session *models.TransferSession, src io.ReaderAt) error {
	opts := models.DefaultUploadOptions()
	opts.ExpirationHours = int(a.config.DefaultExpiration.Hours())

	result, err := a.transfers.UploadFile(ctx, session, src, opts, func(p models.Progress) {
		fmt.Printf("\rUploading... %3.0f%% (%d/%d chunks)", p.Progress*100, p.CompletedChunks, p.TotalChunks)
	})
	fmt.Println()
	if errors.Is(err, common.ErrSessionPaused) {
		fmt.Println("Upload paused; run 'resume' to continue.")
		return nil
	}
	if err != nil {
		return err
	}

	a.discardStagedEnvelope(session.FileID)

	fmt.Printf("Done.\n  Retrieval code: %s\n  URL: %s\n  Expires: %s\n",
		result.RetrievalCode, result.RetrievalURL, result.ExpiresAt.Format("2006-01-02 15:04 MST"))
	return nil
}
