package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"dca-grid-console/internal/config"
	"dca-grid-console/internal/logger"
	"dca-grid-console/internal/store"

	"go.uber.org/zap"
)

const usage = `usage: console <command> [flags]

commands:
  register   create an account
  login      authenticate against the bot service
  logout     revoke the session and clear local state
  balance    check the exchange balance for a key pair
  plan       print the order ladder the parameters imply
  start      set up a bot configuration and open the first cycle
  stop       stop the running bot
  configs    list bot configurations
  watch      follow the dashboard of the running bot
`

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Open the local state store
	st, err := store.Open(cfg.Store.Path, log)
	if err != nil {
		log.Fatal("Failed to open local store", zap.Error(err))
	}

	app := newApp(&cfg, st, log)

	// Setup context cancelled on interrupt so a watch loop or an
	// in-flight call winds down cleanly.
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		cancel()
	}()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err := app.Run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", renderError(err))
		os.Exit(1)
	}
}
