package marketdata

import (
	"testing"

	"pgregory.net/rapid"
)

// Property: after any sequence of updates, Get returns exactly the last
// price written for each token and ok=false for tokens never written.
func TestProperty_LastWriteWinsPerToken(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		c := NewCache()
		want := map[uint32]float64{}

		n := rapid.IntRange(0, 200).Draw(t, "n")
		for i := 0; i < n; i++ {
			token := rapid.Uint32Range(0, 15).Draw(t, "token")
			price := rapid.Float64Range(0.05, 50000).Draw(t, "price")
			c.Update(token, price)
			want[token] = price
		}

		for token := uint32(0); token <= 15; token++ {
			got, ok := c.Get(token)
			expected, written := want[token]
			if ok != written {
				t.Fatalf("token %d: ok=%v, want %v", token, ok, written)
			}
			if written && got != expected {
				t.Fatalf("token %d: got %.4f, want last write %.4f", token, got, expected)
			}
		}
	})
}

// Property: a snapshot agrees with per-token reads taken at the same time.
func TestProperty_SnapshotMatchesReads(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		c := NewCache()

		n := rapid.IntRange(1, 50).Draw(t, "n")
		for i := 0; i < n; i++ {
			c.Update(rapid.Uint32Range(0, 7).Draw(t, "token"),
				rapid.Float64Range(1, 10000).Draw(t, "price"))
		}

		snap := c.Snapshot()
		for token, price := range snap {
			got, ok := c.Get(token)
			if !ok || got != price {
				t.Fatalf("token %d: snapshot %.4f disagrees with Get (%.4f, %v)", token, price, got, ok)
			}
		}
	})
}
