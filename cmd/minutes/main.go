package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/adeilh/minutes/internal/config"
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	app := &cli.Command{
		Name:  "minutes",
		Usage: "meeting minutes service",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Flags:  config.ServeFlags(config.Path()),
				Action: serve,
			},
			{
				Name:   "probe",
				Usage:  "query a running server's health endpoint",
				Flags:  probeFlags,
				Action: probe,
			},
		},
	}
	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
