package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/distrischool/authservice/internal/client/cli"
	"github.com/distrischool/authservice/internal/client/config"
	"github.com/distrischool/authservice/internal/flagx"
)

func main() {
	cfg := config.LoadConfig()

	app, err := cli.NewApp(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(context.Background(), flagx.DropArgs(os.Args[1:], config.GlobalFlags)); err != nil {
		if errors.Is(err, cli.ErrUsage) {
			os.Exit(2)
		}
		log.Fatalf("%v", err)
	}
}
