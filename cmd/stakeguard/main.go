package main

import (
	"fmt"
	"log"
	"os"

	"github.com/brojonat/stakeguard/service/stacks"
	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "stakeguard",
		Usage: "STX transfer coordinator CLI",
		Description: `A command-line tool for making and following STX transfers to the platform address.

Use this CLI to validate transfer parameters, read balances, follow transaction
status on the Stacks indexer, and drive a transfer through a wallet bridge.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			validateCommand(),
			balanceCommand(),
			{
				Name:  "tx",
				Usage: "Transaction status commands",
				Subcommands: []*cli.Command{
					txStatusCommand(),
					txAwaitCommand(),
					txWatchCommand(),
				},
			},
			transferCommand(),
			versionCommand(),
		},
		// Global flags available to all commands
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "network",
				Aliases: []string{"n"},
				Usage:   "Stacks network (mainnet or testnet)",
				EnvVars: []string{"STACKS_NETWORK"},
				Value:   string(stacks.Testnet),
			},
			&cli.StringFlag{
				Name:    "api-url",
				Usage:   "Stacks indexer API base URL (defaults to the public URL for --network)",
				EnvVars: []string{"STACKS_API_URL"},
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output in JSON format",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level for diagnostics on stderr (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "error",
			},
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Action: func(c *cli.Context) error {
			w := c.App.Writer
			fmt.Fprintf(w, "stakeguard CLI\n")
			fmt.Fprintf(w, "  Version: %s\n", version)
			fmt.Fprintf(w, "  Commit:  %s\n", commit)
			fmt.Fprintf(w, "  Built:   %s\n", date)
			return nil
		},
	}
}
