package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	mnemocmder "github.com/mnemohq/mnemo/cmd/mnemo"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := mnemocmder.NewMnemoCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
