package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v2"
)

func balanceCommand() *cli.Command {
	return &cli.Command{
		Name:      "balance",
		Usage:     "Show the spendable STX balance of an address",
		ArgsUsage: "ADDRESS",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "jq",
				Usage: "jq expression applied to the JSON output",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Request timeout",
				Value: 30 * time.Second,
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("address is required")
			}
			address := c.Args().Get(0)

			client, err := newStacksClient(c, newLogger(c))
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
			defer cancel()

			snapshot, err := client.Balance(ctx, address)
			if err != nil {
				return err
			}

			return emit(c, snapshot, func(w io.Writer) {
				fmt.Fprintf(w, "Address: %s\n", snapshot.Address)
				fmt.Fprintf(w, "Network: %s\n", client.Network())
				fmt.Fprintf(w, "Balance: %s STX\n", snapshot.Available)
			})
		},
	}
}
