package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/zond/wizmud"
	"github.com/zond/wizmud/server"
)

func main() {
	config, err := server.LoadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log := server.NewLogger(config)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.New(config, log).Start(ctx); err != nil {
		log.Errorw("server failed", "error", err, "stack", wizmud.StackTrace(err))
		os.Exit(1)
	}
}
