// Command server runs the whiteboard collaboration engine: an HTTP
// acceptor that upgrades every non-health request to a WebSocket and
// hands it to a Session. Grounded on the teacher's main.go bootstrap
// (godotenv.Load, port/bind, background cleanup goroutines), adapted to
// use context-scoped shutdown instead of running cleanups forever.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/arjunxplorer/sketch/internal/dispatch"
	"github.com/arjunxplorer/sketch/internal/presence"
	"github.com/arjunxplorer/sketch/internal/ratelimit"
	"github.com/arjunxplorer/sketch/internal/registry"
	"github.com/arjunxplorer/sketch/internal/transport"
)

const defaultPort = "8080"
const ipLimiterCleanupInterval = 10 * time.Minute
const ipLimiterStaleAfter = time.Hour
const shutdownGrace = 10 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("server: no .env file found, continuing with process environment")
	}

	addr := ":" + resolvePort()

	reg := registry.NewDefault()
	pres := presence.NewSubsystem()
	d := dispatch.New(reg, pres)
	ipLimiter := ratelimit.NewIPLimiter(transport.IPConnectionRate, transport.IPConnectionBurst)
	srv := transport.New(d, ipLimiter)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go cleanupIPLimiter(ctx, ipLimiter)

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("server: listening on %s", addr)
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: fatal listen error: %v", err)
		}
	case <-ctx.Done():
		log.Println("server: shutdown signal received, draining connections")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("server: shutdown error: %v", err)
			os.Exit(1)
		}
	}

	log.Println("server: stopped cleanly")
}

// resolvePort honors a port given as the first CLI argument, falling
// back to PORT, then the spec's default bind port.
func resolvePort() string {
	if len(os.Args) > 1 && os.Args[1] != "" {
		return os.Args[1]
	}
	if p := os.Getenv("PORT"); p != "" {
		return p
	}
	return defaultPort
}

func cleanupIPLimiter(ctx context.Context, limiter *ratelimit.IPLimiter) {
	ticker := time.NewTicker(ipLimiterCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			limiter.Cleanup(ipLimiterStaleAfter)
		case <-ctx.Done():
			return
		}
	}
}
