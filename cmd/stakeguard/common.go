package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/brojonat/stakeguard/service/stacks"
	"github.com/urfave/cli/v2"
	"golang.org/x/time/rate"
)

// newLogger creates the stderr logger for a command. The CLI is quiet
// unless --log-level asks otherwise.
func newLogger(c *cli.Context) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.String("log-level")) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	default:
		level = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newStacksClient builds an indexer client from the global flags.
func newStacksClient(c *cli.Context, logger *slog.Logger) (*stacks.Client, error) {
	network, err := stacks.ParseNetwork(c.String("network"))
	if err != nil {
		return nil, err
	}
	return stacks.NewClient(stacks.ClientConfig{
		Network: network,
		BaseURL: c.String("api-url"),
		Limiter: rate.NewLimiter(rate.Limit(5), 1),
		Logger:  logger,
	}), nil
}

// printJSON writes v as indented JSON to the app's writer.
func printJSON(c *cli.Context, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(c.App.Writer, string(data))
	return nil
}

// emit writes v for the user: through --jq when given, as JSON with --json,
// and otherwise through human.
func emit(c *cli.Context, v interface{}, human func(w io.Writer)) error {
	if expr := c.String("jq"); expr != "" {
		code, err := compileJQ(expr)
		if err != nil {
			return err
		}
		results, err := runJQ(code, v)
		if err != nil {
			return err
		}
		for _, r := range results {
			data, err := json.Marshal(r)
			if err != nil {
				return fmt.Errorf("failed to marshal jq result: %w", err)
			}
			fmt.Fprintln(c.App.Writer, string(data))
		}
		return nil
	}
	if c.Bool("json") {
		return printJSON(c, v)
	}
	human(c.App.Writer)
	return nil
}
