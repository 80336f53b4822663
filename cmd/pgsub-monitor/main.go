// Command pgsub-monitor is a demo consumer: it attaches N independent
// readers to the same region and prints whatever topics each one
// dispatches, to exercise multi-reader fan-out and crash/reattach
// behavior by hand.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ashwin-nat/pits-n-giggles-sub002/config"
	"github.com/ashwin-nat/pits-n-giggles-sub002/region"
	"github.com/ashwin-nat/pits-n-giggles-sub002/topics"
)

func main() {
	readers := flag.Int("readers", 1, "number of independent readers to attach")
	flag.Parse()

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

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < *readers; i++ {
		id := i
		g.Go(func() error {
			return runMonitor(ctx, id, cfg)
		})
	}

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Fatalf("pgsub-monitor: %v", err)
	}
	log.Println("pgsub-monitor: stopped")
}

func runMonitor(ctx context.Context, id int, cfg *config.Config) error {
	r, err := region.Attach(cfg.Name, cfg.BufferCapacity,
		region.WithMaxRetryOnInterleave(cfg.ReaderMaxRetryOnInterleave))
	if err != nil {
		return err
	}
	defer r.Close()

	l2 := topics.NewReader(r)
	for _, topic := range []string{"speed", "gear", "brake", "rpm"} {
		t := topic
		l2.On(t, func(payload json.RawMessage) {
			log.Printf("monitor[%d]: %s = %s", id, t, payload)
		})
	}

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			res := l2.Read()
			switch res.Kind {
			case topics.ReadDetached:
				if err := r.Reattach(); err != nil {
					log.Printf("monitor[%d]: reattach: %v", id, err)
				}
			case topics.ReadCorrupt:
				log.Printf("monitor[%d]: corrupt frame seq=%d", id, res.Seq)
			case topics.ReadDecodeError:
				log.Printf("monitor[%d]: decode error", id)
			}
		}
	}
}
