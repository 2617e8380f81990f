package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	gm "github.com/louisbranch/tabletop.chat/internal/cmd/gamemaster"
)

// main runs the tabletop gamemaster over MCP stdio.
func main() {
	cfg, err := gm.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[GM] ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := gm.Run(ctx, cfg); err != nil {
		log.Fatalf("gamemaster: %v", err)
	}
}
