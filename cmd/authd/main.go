package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/manimate/passkey/internal/authd"
	platformotel "github.com/manimate/passkey/internal/platform/otel"
)

func main() {
	log.SetPrefix("[AUTHD] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := authd.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	shutdown, err := platformotel.Setup(ctx, "authd")
	if err != nil {
		log.Fatalf("setup telemetry: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Printf("shutdown telemetry: %v", err)
		}
	}()

	if err := authd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
