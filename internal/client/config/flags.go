package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/sendvault/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the upload service (default from Config)
//	-b string   backend: rest or s3
//	-p int      maximum parallel chunk transfers
//	-r int      per-chunk attempt budget
//	-e int      default retention for completed uploads, in hours
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with subcommand arguments.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-b", "-p", "-r", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "base URL of the upload service")
	fs.StringVar(&cfg.Backend, "b", cfg.Backend, "backend: rest or s3")
	fs.IntVar(&cfg.Concurrency, "p", cfg.Concurrency, "maximum parallel chunk transfers")
	fs.IntVar(&cfg.MaxAttempts, "r", cfg.MaxAttempts, "attempts per chunk before the transfer fails")
	expirationHours := fs.Int("e", int(cfg.DefaultExpiration.Hours()), "default retention for completed uploads (in hours)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.DefaultExpiration = time.Duration(*expirationHours) * time.Hour
}
