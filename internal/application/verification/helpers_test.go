package verification

import (
	"sync"
	"time"
)

// fakeClock is a settable clock shared by the ledger and the token provider.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// seqCodes hands out predetermined codes in order.
type seqCodes struct {
	mu    sync.Mutex
	codes []string
}

func (g *seqCodes) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.codes) == 0 {
		return "000000", nil
	}
	c := g.codes[0]
	g.codes = g.codes[1:]
	return c, nil
}
