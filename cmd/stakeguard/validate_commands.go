package main

import (
	"fmt"
	"io"

	"github.com/brojonat/stakeguard/service/transfer"
	"github.com/urfave/cli/v2"
)

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Check transfer parameters without contacting the network",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "amount",
				Aliases:  []string{"a"},
				Usage:    "Amount in whole STX (e.g., 2.5)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "address",
				Usage:    "Sender address",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "reference",
				Aliases:  []string{"r"},
				Usage:    "Reference id the transfer is made for (e.g., a pool id)",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			amount, err := transfer.ParseAmount(c.String("amount"))
			if err != nil {
				return err
			}

			req := transfer.Request{
				Amount:        amount,
				SenderAddress: c.String("address"),
				ReferenceID:   c.String("reference"),
			}
			if err := transfer.Validate(req); err != nil {
				return err
			}

			out := map[string]interface{}{
				"valid":        true,
				"amount":       amount.String(),
				"amount_micro": transfer.ToMicro(amount),
				"sender":       req.SenderAddress,
				"reference_id": req.ReferenceID,
			}
			return emit(c, out, func(w io.Writer) {
				fmt.Fprintf(w, "✓ Transfer parameters are valid\n")
				fmt.Fprintf(w, "  Amount:    %s STX (%d micro-STX)\n", amount, transfer.ToMicro(amount))
				fmt.Fprintf(w, "  Sender:    %s\n", req.SenderAddress)
				fmt.Fprintf(w, "  Reference: %s\n", req.ReferenceID)
			})
		},
	}
}
