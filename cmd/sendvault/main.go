package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/sendvault/internal/buildinfo"
	"github.com/dmitrijs2005/sendvault/internal/client/cli"
	"github.com/dmitrijs2005/sendvault/internal/client/config"
	"github.com/dmitrijs2005/sendvault/internal/flagx"
)

// globalFlags are the value-taking flags owned by the config layer; anything
// else on the command line is a subcommand argument.
var globalFlags = []string{"-a", "-b", "-p", "-r", "-e", "-c", "-config"}

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := cli.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	args := flagx.Positionals(os.Args[1:], globalFlags)
	if err := app.Run(ctx, args); err != nil {
		log.Fatalf("%v", err)
	}
}
