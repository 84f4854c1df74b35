// Command arcollectctl runs operator tasks: migrations, sample data, cache
// warmups, queue inspection and dependency checks.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "arcollectctl: load .env: %v\n", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := newRootCommand(loadConfig)
	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
