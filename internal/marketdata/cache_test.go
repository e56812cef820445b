package marketdata

import (
	"sync"
	"testing"
)

func TestCacheUnknownToken(t *testing.T) {
	c := NewCache()

	price, ok := c.Get(12345)
	if ok {
		t.Fatalf("expected unknown token, got price %.2f", price)
	}
	if price != 0 {
		t.Errorf("expected zero price for unknown token, got %.2f", price)
	}
}

func TestCacheLastWriteWins(t *testing.T) {
	c := NewCache()

	c.Update(100, 2500.0)
	c.Update(100, 2501.5)
	c.Update(100, 2499.0)

	price, ok := c.Get(100)
	if !ok {
		t.Fatal("expected price for token 100")
	}
	if price != 2499.0 {
		t.Errorf("expected last written price 2499.0, got %.2f", price)
	}
}

func TestCacheReadIsIdempotent(t *testing.T) {
	c := NewCache()
	c.Update(7, 150.25)

	first, _ := c.Get(7)
	second, _ := c.Get(7)
	if first != second {
		t.Errorf("repeated reads differ: %.2f vs %.2f", first, second)
	}
}

func TestCacheTokensAreIndependent(t *testing.T) {
	c := NewCache()
	c.Update(1, 100)
	c.Update(2, 200)

	if p, _ := c.Get(1); p != 100 {
		t.Errorf("token 1: expected 100, got %.2f", p)
	}
	if p, _ := c.Get(2); p != 200 {
		t.Errorf("token 2: expected 200, got %.2f", p)
	}
}

// Concurrent writers on distinct tokens must not corrupt each other's
// entries, and readers must only ever observe written values.
func TestCacheConcurrentAccess(t *testing.T) {
	c := NewCache()

	const writers = 8
	const writesPerWriter = 1000

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(token uint32) {
			defer wg.Done()
			for i := 1; i <= writesPerWriter; i++ {
				c.Update(token, float64(token)*10000+float64(i))
			}
		}(uint32(w))
	}

	// Concurrent readers: any observed value must be one some writer produced.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for i := 0; i < 5000; i++ {
			for tok := uint32(0); tok < writers; tok++ {
				if price, ok := c.Get(tok); ok {
					base := float64(tok) * 10000
					if price <= base || price > base+writesPerWriter {
						t.Errorf("token %d: read value %.0f that was never written", tok, price)
						return
					}
				}
			}
		}
	}()

	wg.Wait()
	<-readDone

	for tok := uint32(0); tok < writers; tok++ {
		price, ok := c.Get(tok)
		if !ok {
			t.Fatalf("token %d missing after writes", tok)
		}
		want := float64(tok)*10000 + writesPerWriter
		if price != want {
			t.Errorf("token %d: expected final value %.0f, got %.0f", tok, want, price)
		}
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	c := NewCache()
	c.Update(1, 100)

	snap := c.Snapshot()
	snap[1] = 999

	if p, _ := c.Get(1); p != 100 {
		t.Errorf("mutating a snapshot leaked into the cache: got %.2f", p)
	}
}
