// Command pgsub-writer is a demo producer: it generates a synthetic
// telemetry snapshot on a fixed tick and publishes it through the L2
// presentation layer, the way a real pits-n-giggles producer would.
// It is example tooling for the library, not the telemetry receiver
// itself — that remains out of scope for this repository.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashwin-nat/pits-n-giggles-sub002/config"
	"github.com/ashwin-nat/pits-n-giggles-sub002/internal/telemetry"
	"github.com/ashwin-nat/pits-n-giggles-sub002/region"
	"github.com/ashwin-nat/pits-n-giggles-sub002/topics"
)

func main() {
	log.Println("pgsub-writer: starting")

	cfgPath := "config.toml"
	if p := os.Getenv("PNG_SHM_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	w, err := region.OpenOrCreate(cfg.Name, cfg.BufferCapacity,
		region.WithUnlinkOnClose(cfg.WriterUnlinkOnClose))
	if err != nil {
		log.Fatalf("region: %v", err)
	}
	defer w.Close()
	log.Printf("pgsub-writer: region /dev/shm/%s (%d bytes/slot)", cfg.Name, cfg.BufferCapacity)

	l2 := topics.NewWriter(w)
	gen := telemetry.NewGenerator(1, 120)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("pgsub-writer: stopped")
			return
		case <-ticker.C:
			gen.Next().Publish(l2)
			if err := l2.Write(); err != nil {
				log.Printf("pgsub-writer: write: %v", err)
				continue
			}
			stats := w.Stats()
			if stats.Seq%50 == 0 {
				log.Printf("pgsub-writer: published seq=%d total=%d", stats.Seq, stats.Published)
			}
		}
	}
}
