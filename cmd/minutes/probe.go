package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/adeilh/minutes/httpx"
)

var probeFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "url",
		Usage:   "base URL of the server",
		Value:   "http://localhost:8000",
		Sources: cli.NewValueSourceChain(cli.EnvVar("MINUTES_URL")),
	},
	&cli.DurationFlag{
		Name:  "timeout",
		Usage: "request timeout",
		Value: 5 * time.Second,
	},
}

type health struct {
	Status       string `json:"status"`
	CacheEnabled bool   `json:"cache_enabled"`
}

func probe(ctx context.Context, cmd *cli.Command) error {
	client := httpx.NewClient(
		httpx.WithBaseURL(cmd.String("url")),
		httpx.WithClientTimeout(cmd.Duration("timeout")),
	)
	var out health
	if _, err := client.Get(ctx, "/healthz", &out); err != nil {
		return fmt.Errorf("probe: %w", err)
	}
	fmt.Fprintf(cmd.Root().Writer, "status=%s cache_enabled=%t\n", out.Status, out.CacheEnabled)
	return nil
}
