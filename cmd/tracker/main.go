package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fitlife/tracker/internal/db"
	"github.com/fitlife/tracker/internal/version"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("failed to load .env: %v", err)
	}

	o, err := parseFlags(os.Args[1:], os.Getenv, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatal(err)
	}

	if o.Version {
		fmt.Println(version.String())
		return
	}

	if len(o.Args) > 0 && o.Args[0] == "migrate" {
		if err := db.RunMigrateCommand(o.Args[1:], o.DB, os.Stdout); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		return
	}
	if len(o.Args) > 0 {
		log.Fatalf("unknown command %q", o.Args[0])
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, o); err != nil {
		log.Fatal(err)
	}
	log.Printf("Graceful shutdown complete")
}

// run serves until ctx is cancelled.
func run(ctx context.Context, o *options) error {
	svc, err := newService(ctx, o)
	if err != nil {
		return err
	}
	defer svc.Close()

	server := &http.Server{
		Addr:    o.Listen,
		Handler: svc.handler,
		// event streams end when ctx is cancelled
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", o.Listen)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- fmt.Errorf("failed to start server: %w", err)
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}
	log.Printf("HTTP server routine stopped")
	return nil
}
