// Worker runs the background maintenance loops: expired password-reset
// tokens are deleted on an interval so the hot validation path never has to.
// Shares the server's configuration; HTTP_ADDR is required by config but
// unused here (e.g. set to :0).
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tenant-identity-service/internal/config"
	"tenant-identity-service/internal/db"
	"tenant-identity-service/internal/passwordreset"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("worker: shutting down...")
		cancel()
	}()

	client, err := db.Open(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatalf("worker: mongo: %v", err)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	resets := passwordreset.NewMongoRepository(client.Database(cfg.MongoDatabase))
	interval := cfg.ResetSweepInterval()
	log.Printf("worker: sweeping expired reset tokens every %s", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Println("worker: stopped")
			return
		case <-ticker.C:
			sweepCtx, sweepCancel := context.WithTimeout(ctx, 30*time.Second)
			n, err := resets.DeleteExpired(sweepCtx)
			sweepCancel()
			if err != nil {
				log.Printf("worker: reset token sweep: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("worker: removed %d expired reset tokens", n)
			}
		}
	}
}
