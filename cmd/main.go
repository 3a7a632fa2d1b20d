package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/tender-barbarian/chronos/config"
	"github.com/tender-barbarian/chronos/server"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <config-file>\n", os.Args[0])
		os.Exit(2)
	}

	cfg, err := config.Load(os.Args[1])
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}

	if err := server.Run(context.Background(), cfg); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}
