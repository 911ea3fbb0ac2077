package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brojonat/stakeguard/service/confirm"
	"github.com/brojonat/stakeguard/service/temporal"
	"github.com/brojonat/stakeguard/service/transfer"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
)

func txStatusCommand() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "Probe a transaction once and show its classified status",
		ArgsUsage: "TXID",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "jq",
				Usage: "jq expression applied to the JSON output",
			},
			&cli.StringSliceFlag{
				Name:  "must-jq",
				Usage: "jq filter expression that must evaluate to true (can be specified multiple times, all must match)",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("transaction id is required")
			}
			txID := c.Args().Get(0)

			logger := newLogger(c)
			client, err := newStacksClient(c, logger)
			if err != nil {
				return err
			}
			poller := confirm.NewPoller(client, 0, 0, nil, logger)

			ctx, cancel := context.WithTimeout(c.Context, 30*time.Second)
			defer cancel()

			status, err := poller.Probe(ctx, txID)
			if err != nil {
				return fmt.Errorf("failed to probe transaction: %w", err)
			}

			if err := emit(c, status, func(w io.Writer) { printStatus(w, status) }); err != nil {
				return err
			}
			return mustMatch(c.StringSlice("must-jq"), status)
		},
	}
}

func txAwaitCommand() *cli.Command {
	return &cli.Command{
		Name:      "await",
		Usage:     "Block until a transaction is confirmed or failed",
		ArgsUsage: "TXID",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:    "timeout",
				Aliases: []string{"t"},
				Value:   confirm.DefaultTimeout,
				Usage:   "How long to wait before giving up (the outcome is then unknown)",
			},
			&cli.DurationFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Value:   confirm.DefaultPollInterval,
				Usage:   "Time between status probes",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("transaction id is required")
			}
			txID := c.Args().Get(0)
			timeout := c.Duration("timeout")
			interval := c.Duration("interval")

			logger := newLogger(c)
			client, err := newStacksClient(c, logger)
			if err != nil {
				return err
			}
			poller := confirm.NewPoller(client, timeout, interval, nil, logger)

			if !c.Bool("json") {
				fmt.Fprintf(os.Stderr, "Waiting for transaction %s...\n", txID)
				fmt.Fprintf(os.Stderr, "  Timeout:  %v\n", timeout)
				fmt.Fprintf(os.Stderr, "  Interval: %v\n\n", interval)
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			status, err := poller.Await(ctx, transfer.Handle{ID: txID}, timeout, interval)
			if err != nil {
				if errors.Is(err, transfer.ErrConfirmationTimeout) {
					return fmt.Errorf("transaction %s not final after %v (last probe: %s): %w", txID, timeout, status.State, err)
				}
				return err
			}

			if err := emit(c, status, func(w io.Writer) { printStatus(w, status) }); err != nil {
				return err
			}
			if status.State == transfer.StateFailed {
				return &transfer.FailedError{TxID: txID, Reason: status.Reason}
			}
			return nil
		},
	}
}

func txWatchCommand() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Start a durable confirmation workflow on Temporal",
		ArgsUsage: "TXID",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "temporal-host",
				Usage:   "Temporal server address",
				EnvVars: []string{"TEMPORAL_HOST"},
				Value:   "localhost:7233",
			},
			&cli.StringFlag{
				Name:    "temporal-namespace",
				Usage:   "Temporal namespace",
				EnvVars: []string{"TEMPORAL_NAMESPACE"},
				Value:   "default",
			},
			&cli.StringFlag{
				Name:    "task-queue",
				Usage:   "Temporal task queue the worker listens on",
				EnvVars: []string{"TEMPORAL_TASK_QUEUE"},
				Value:   "stakeguard-confirmations",
			},
			&cli.StringFlag{
				Name:  "sender",
				Usage: "Sender address, used for the published outcome subject",
			},
			&cli.StringFlag{
				Name:    "recipient",
				Usage:   "Recipient address, recorded on the published outcome",
				EnvVars: []string{"PLATFORM_ADDRESS"},
			},
			&cli.StringFlag{
				Name:  "amount",
				Usage: "Transfer amount in whole STX, recorded on the published outcome",
			},
			&cli.StringFlag{
				Name:  "reference",
				Usage: "Reference id, recorded on the published outcome",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: temporal.DefaultConfirmTimeout,
				Usage: "How long the workflow waits for a terminal status",
			},
			&cli.DurationFlag{
				Name:  "interval",
				Value: temporal.DefaultPollInterval,
				Usage: "Time between status probes",
			},
			&cli.BoolFlag{
				Name:  "wait",
				Usage: "Block until the workflow completes and print its result",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("transaction id is required")
			}

			input, err := watchInput(c)
			if err != nil {
				return err
			}

			tc, err := temporal.NewClient(
				c.String("temporal-host"),
				c.String("temporal-namespace"),
				c.String("task-queue"),
				newLogger(c),
			)
			if err != nil {
				return err
			}
			defer tc.Close()

			ctx := c.Context
			runID, err := tc.StartConfirmation(ctx, input)
			if err != nil {
				return err
			}

			if !c.Bool("wait") {
				out := map[string]string{"tx_id": input.TxID, "run_id": runID, "status": "started"}
				return emit(c, out, func(w io.Writer) {
					fmt.Fprintf(w, "✓ Confirmation workflow started\n")
					fmt.Fprintf(w, "  Transaction: %s\n", input.TxID)
					fmt.Fprintf(w, "  Run ID:      %s\n", runID)
				})
			}

			result, err := tc.AwaitConfirmation(ctx, input.TxID)
			if err != nil {
				return err
			}
			return emit(c, result, func(w io.Writer) {
				fmt.Fprintf(w, "Transaction: %s\n", result.TxID)
				fmt.Fprintf(w, "Status:      %s\n", result.Status)
				if result.Reason != "" {
					fmt.Fprintf(w, "Reason:      %s\n", result.Reason)
				}
				fmt.Fprintf(w, "Probes:      %d\n", result.Probes)
			})
		},
	}
}

// watchInput builds the workflow input from the watch command's flags.
func watchInput(c *cli.Context) (temporal.ConfirmTransferInput, error) {
	input := temporal.ConfirmTransferInput{
		TxID:         c.Args().Get(0),
		Sender:       c.String("sender"),
		Recipient:    c.String("recipient"),
		ReferenceID:  c.String("reference"),
		Timeout:      c.Duration("timeout"),
		PollInterval: c.Duration("interval"),
	}
	if input.PollInterval > input.Timeout {
		return input, fmt.Errorf("--interval (%v) cannot be greater than --timeout (%v)", input.PollInterval, input.Timeout)
	}
	if s := c.String("amount"); s != "" {
		amount, err := decimal.NewFromString(s)
		if err != nil {
			return input, fmt.Errorf("invalid --amount %q: %w", s, err)
		}
		input.Amount = amount
	}
	return input, nil
}

func printStatus(w io.Writer, s transfer.Status) {
	fmt.Fprintf(w, "Transaction: %s\n", s.TxID)
	fmt.Fprintf(w, "State:       %s\n", s.State)
	if s.RawStatus != "" {
		fmt.Fprintf(w, "Raw Status:  %s\n", s.RawStatus)
	} else {
		fmt.Fprintf(w, "Raw Status:  (not yet indexed)\n")
	}
	if s.BlockHeight != nil {
		fmt.Fprintf(w, "Block:       %d\n", *s.BlockHeight)
	}
	if s.Reason != "" {
		fmt.Fprintf(w, "Reason:      %s\n", s.Reason)
	}
	if s.Probes > 0 {
		fmt.Fprintf(w, "Probes:      %d\n", s.Probes)
	}
}
