package region

import (
	"fmt"
	"math/rand"
	"testing"
)

func BenchmarkPublish(b *testing.B) {
	name := fmt.Sprintf("pgsub-bench-%d", rand.Int63())
	w, err := OpenOrCreate(name, DefaultBufferCapacity)
	if err != nil {
		b.Fatalf("OpenOrCreate: %v", err)
	}
	defer func() {
		w.Close()
		_ = unlink(name)
	}()

	payload := make([]byte, 256)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if err := w.Publish(payload); err != nil {
			b.Fatalf("Publish: %v", err)
		}
	}
}

// BenchmarkPublishWithReaders exercises property P4: publish latency
// should not depend on how many readers are attached or how slowly they
// drain, since the writer never blocks on reader progress.
func BenchmarkPublishWithReaders(b *testing.B) {
	for _, n := range []int{0, 1, 4, 16} {
		b.Run(fmt.Sprintf("readers=%d", n), func(b *testing.B) {
			name := fmt.Sprintf("pgsub-bench-%d", rand.Int63())
			w, err := OpenOrCreate(name, DefaultBufferCapacity)
			if err != nil {
				b.Fatalf("OpenOrCreate: %v", err)
			}
			defer func() {
				w.Close()
				_ = unlink(name)
			}()

			readers := make([]*Reader, n)
			for i := range readers {
				r, err := Attach(name, DefaultBufferCapacity)
				if err != nil {
					b.Fatalf("Attach: %v", err)
				}
				defer r.Close()
				readers[i] = r
			}

			payload := make([]byte, 256)
			b.ResetTimer()
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if err := w.Publish(payload); err != nil {
					b.Fatalf("Publish: %v", err)
				}
				// Readers never drain — they deliberately lag behind to
				// prove the writer's cost is independent of their progress.
			}
		})
	}
}

func BenchmarkPoll(b *testing.B) {
	name := fmt.Sprintf("pgsub-bench-%d", rand.Int63())
	w, err := OpenOrCreate(name, DefaultBufferCapacity)
	if err != nil {
		b.Fatalf("OpenOrCreate: %v", err)
	}
	defer func() {
		w.Close()
		_ = unlink(name)
	}()

	if err := w.Publish(make([]byte, 256)); err != nil {
		b.Fatalf("Publish: %v", err)
	}

	r, err := Attach(name, DefaultBufferCapacity)
	if err != nil {
		b.Fatalf("Attach: %v", err)
	}
	defer r.Close()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		r.Poll()
	}
}
