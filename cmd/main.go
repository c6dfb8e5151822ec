package main

import (
	"context"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/admin/astro-natal/internal/app"
)

const appName = "astro_natal"

func main() {
	cfg, err := app.NewEnvConfig(appName)
	if err != nil {
		panic(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := app.New(appName, cfg)
	if err != nil {
		panic(err)
	}

	if err := app.Run(ctx); err != nil {
		panic(err)
	}
}
