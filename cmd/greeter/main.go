package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	greetercmd "github.com/louisbranch/greeting.space/internal/cmd/greeter"
	"github.com/louisbranch/greeting.space/internal/platform/config"
)

func main() {
	cfg, err := greetercmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse greeter config: %v", err)
	}
	log.SetPrefix("[GREETER] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := greetercmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
