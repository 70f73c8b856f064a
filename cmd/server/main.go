// Command main is the entry point for the Scribio backend server.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scribio/internal/config"
	"scribio/internal/middleware"
	"scribio/internal/observability"
	"scribio/internal/server"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	middleware.InitMiddleware(cfg)

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "scribio-api",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.OTLPEndpoint != "",
		Exporter:       "otlp",
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   1.0,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		if err := shutdownTracing(ctx); err != nil {
			log.Printf("Tracing shutdown error: %v", err)
		}
		os.Exit(0)
	}()

	log.Fatal(srv.Start())
}
