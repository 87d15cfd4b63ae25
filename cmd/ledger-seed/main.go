package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"ledger/internal/cli"
	"ledger/internal/config"
	"ledger/internal/log"
	"ledger/internal/services"
)

func main() {
	all := flag.Bool("all", false, "seed default categories for every user")
	userID := flag.String("user", "", "seed default categories for one user id")
	flag.Parse()

	if *all == (*userID != "") {
		fmt.Fprintln(os.Stderr, "usage: ledger-seed -all | -user <id>")
		os.Exit(2)
	}

	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig((*config.Config).Validate)
	logger := cli.SetupLogger(cfg, log.ComponentStorage)

	ctx := context.Background()
	store := cli.OpenStore(ctx, logger, cfg)
	defer store.Close()

	var (
		added int
		err   error
	)
	if *all {
		added, err = services.SeedAllUsers(ctx, store)
	} else {
		added, err = services.SeedUser(ctx, store, *userID)
	}
	if err != nil {
		logger.Error("Seeding failed", log.FieldError, err)
		store.Close()
		os.Exit(1)
	}
	logger.Info("Seeding complete", "added", added)
}
