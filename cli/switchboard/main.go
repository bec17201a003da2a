package main

import (
	"context"
	"os"
	"os/signal"

	switchboardcmder "github.com/papercomputeco/switchboard/cmd/switchboard"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := switchboardcmder.NewSwitchboardCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
