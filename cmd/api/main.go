package main

import (
	"context"
	"fmt"
	"os"

	"user-management-api/cmd/api/app"
	"user-management-api/cmd/api/server"

	"github.com/joho/godotenv"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"
)

func main() {
	// A local .env is optional; app.env and the environment still apply
	_ = godotenv.Load()

	ctx, stop := server.WithSignal(context.Background())
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "application failed to start: %v\n", err)
		os.Exit(1)
	}

	if err := a.Run(ctx); err != nil {
		a.Logger.Error("application exited with error", zap.Error(err))
		os.Exit(1)
	}
}
