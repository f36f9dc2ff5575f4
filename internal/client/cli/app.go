package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/sendvault/internal/client/api"
	"github.com/dmitrijs2005/sendvault/internal/client/config"
	"github.com/dmitrijs2005/sendvault/internal/client/repositories/sessions"
	"github.com/dmitrijs2005/sendvault/internal/client/services"
	"github.com/dmitrijs2005/sendvault/internal/filex"
	"github.com/dmitrijs2005/sendvault/internal/logging"

	_ "modernc.org/sqlite"
)

const stagingDirName = "sendvault"

// App wires config, the upload backend, the local session store and the
// transfer service behind the one-shot subcommands.
type App struct {
	config     *config.Config
	api        api.Client
	transfers  *services.TransferService
	log        logging.Logger
	stagingDir string
	reader     *bufio.Reader
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	stagingDir := c.StagingDir
	if stagingDir == "" {
		dir, err := filex.EnsureSubDir(stagingDirName)
		if err != nil {
			return nil, err
		}
		stagingDir = dir
	}

	dsn := c.DatabaseDSN
	if dsn == "" {
		dsn = filepath.Join(stagingDir, "sessions.db")
	}
	db, err := sessions.InitDatabase(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("initializing session store: %w", err)
	}

	apiClient, err := newAPIClient(ctx, c)
	if err != nil {
		return nil, err
	}

	maxAttempts := c.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = services.DefaultMaxAttempts
	}

	repo := sessions.NewSQLiteRepository(db)
	transfers := services.NewTransferService(apiClient, repo, log,
		services.WithConcurrency(c.Concurrency),
		services.WithBackoffFactory(func() retry.Backoff {
			return retry.WithMaxRetries(uint64(maxAttempts-1), retry.NewExponential(2*time.Second))
		}))

	return &App{
		config:     c,
		api:        apiClient,
		transfers:  transfers,
		log:        log,
		stagingDir: stagingDir,
		reader:     bufio.NewReader(os.Stdin),
	}, nil
}

func newAPIClient(ctx context.Context, c *config.Config) (api.Client, error) {
	switch c.Backend {
	case "s3":
		return api.NewS3Client(ctx, api.S3Config{
			Endpoint:  c.S3.Endpoint,
			Region:    c.S3.Region,
			Bucket:    c.S3.Bucket,
			AccessKey: c.S3.AccessKey,
			SecretKey: c.S3.SecretKey,
		})
	case "rest", "":
		return api.NewRESTClient(c.APIBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown backend %q (want rest or s3)", c.Backend)
	}
}

// Run dispatches the subcommand. Global flags have already been consumed by
// the config loader; args is everything after them.
func (a *App) Run(ctx context.Context, args []string) error {
	defer a.api.Close()

	if len(args) == 0 {
		a.usage()
		return nil
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "upload":
		return a.Upload(ctx, rest)
	case "resume":
		return a.Resume(ctx, rest)
	case "sessions":
		return a.Sessions(ctx)
	case "cancel":
		return a.CancelUpload(ctx, rest)
	case "decrypt":
		return a.Decrypt(ctx, rest)
	case "help":
		a.usage()
		return nil
	default:
		a.usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *App) usage() {
	fmt.Println(`Usage: sendvault [flags] <command>

Commands:
  upload <file>      encrypt a file and upload it
  resume <file>      resume an interrupted upload
  sessions           list interrupted uploads
  cancel <file>      cancel an upload and discard its state
  decrypt <envelope> decrypt a downloaded envelope
  help               show this message`)
}
