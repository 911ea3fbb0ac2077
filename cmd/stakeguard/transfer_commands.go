package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/brojonat/stakeguard/service/confirm"
	natspkg "github.com/brojonat/stakeguard/service/nats"
	"github.com/brojonat/stakeguard/service/session"
	"github.com/brojonat/stakeguard/service/transfer"
	"github.com/brojonat/stakeguard/service/wallet"
	"github.com/urfave/cli/v2"
)

func transferCommand() *cli.Command {
	return &cli.Command{
		Name:  "transfer",
		Usage: "Send STX to the platform address through the wallet bridge and wait for confirmation",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "amount",
				Aliases:  []string{"a"},
				Usage:    "Amount in whole STX (e.g., 2.5)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "reference",
				Aliases:  []string{"r"},
				Usage:    "Reference id the transfer is made for (e.g., a pool id)",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "memo",
				Usage: "Optional memo attached to the transfer",
			},
			&cli.StringFlag{
				Name:    "bridge-url",
				Usage:   "Wallet bridge JSON-RPC endpoint",
				EnvVars: []string{"WALLET_BRIDGE_URL"},
				Value:   "http://localhost:8999/rpc",
			},
			&cli.StringFlag{
				Name:    "platform-address",
				Usage:   "Recipient address of every transfer",
				EnvVars: []string{"PLATFORM_ADDRESS"},
			},
			&cli.StringFlag{
				Name:    "nats-url",
				Usage:   "NATS server URL; when set, the outcome is published",
				EnvVars: []string{"NATS_URL"},
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Aliases: []string{"t"},
				Value:   confirm.DefaultTimeout,
				Usage:   "How long to wait for confirmation",
			},
			&cli.DurationFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Value:   confirm.DefaultPollInterval,
				Usage:   "Time between status probes",
			},
		},
		Action: func(c *cli.Context) error {
			amount, err := transfer.ParseAmount(c.String("amount"))
			if err != nil {
				return err
			}
			recipient := c.String("platform-address")
			if len(recipient) < transfer.MinAddressLength {
				return fmt.Errorf("platform address is required (set PLATFORM_ADDRESS env var or use --platform-address)")
			}

			logger := newLogger(c)
			client, err := newStacksClient(c, logger)
			if err != nil {
				return err
			}

			provider := wallet.NewRPCProvider(c.String("bridge-url"), nil, logger)
			cfg := session.Config{
				Provider:       provider,
				Oracle:         client,
				Submitter:      wallet.NewSubmitter(provider, recipient, nil, logger),
				Confirmer:      confirm.NewPoller(client, c.Duration("timeout"), c.Duration("interval"), nil, logger),
				ConfirmTimeout: c.Duration("timeout"),
				PollInterval:   c.Duration("interval"),
				Logger:         logger,
			}

			if natsURL := c.String("nats-url"); natsURL != "" {
				publisher, err := natspkg.NewPublisher(natsURL, nil, logger)
				if err != nil {
					return err
				}
				defer publisher.Close()
				cfg.Publisher = publisher
			}

			manager := session.NewManager(cfg)
			defer manager.Wait()

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			sess, err := manager.Connect(ctx)
			if err != nil {
				return err
			}
			if !c.Bool("json") {
				fmt.Fprintf(os.Stderr, "Connected as %s", sess.Address)
				if sess.Balance.Valid {
					fmt.Fprintf(os.Stderr, " (balance %s STX)", sess.Balance.Decimal)
				}
				fmt.Fprintf(os.Stderr, "\nApprove the transfer of %s STX in your wallet...\n", amount)
			}

			txID, err := manager.SubmitAndConfirm(ctx, session.SubmitRequest{
				Amount:      amount,
				ReferenceID: c.String("reference"),
				Memo:        c.String("memo"),
			})

			out := map[string]interface{}{
				"tx_id":        txID,
				"sender":       sess.Address,
				"recipient":    recipient,
				"amount":       amount.String(),
				"reference_id": c.String("reference"),
				"status":       outcome(err),
			}
			var failed *transfer.FailedError
			if errors.As(err, &failed) {
				out["reason"] = failed.Reason
			}

			if txID != "" {
				if emitErr := emit(c, out, func(w io.Writer) {
					fmt.Fprintf(w, "Transaction: %s\n", txID)
					fmt.Fprintf(w, "Status:      %s\n", out["status"])
				}); emitErr != nil {
					return emitErr
				}
			}
			return err
		},
	}
}

// outcome names the result of SubmitAndConfirm for output.
func outcome(err error) string {
	var failed *transfer.FailedError
	switch {
	case err == nil:
		return string(transfer.StateConfirmed)
	case errors.As(err, &failed):
		return string(transfer.StateFailed)
	case errors.Is(err, transfer.ErrConfirmationTimeout):
		return "unknown"
	case errors.Is(err, transfer.ErrSubmissionRejected):
		return "rejected"
	default:
		return "error"
	}
}
