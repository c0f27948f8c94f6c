package clock

import (
	"sync"
	"time"

	"github.com/dkeye/imposter/internal/domain"
	"github.com/rs/zerolog/log"
)

const DefaultInterval = time.Second

// Executor runs fn on the goroutine that owns room state. Tick goroutines
// never touch game state directly.
type Executor func(fn func())

type (
	TickFunc   func(remaining int)
	ExpireFunc func()
)

// Coordinator holds at most one countdown per room. A fire that reaches the
// executor after its timer was cleared or replaced is dropped.
type Coordinator struct {
	mu       sync.Mutex
	timers   map[domain.RoomCode]*timer
	exec     Executor
	interval time.Duration
}

type timer struct {
	tag       string
	remaining int
	stop      chan struct{}
}

type Option func(*Coordinator)

// WithInterval shortens the tick for tests.
func WithInterval(d time.Duration) Option {
	return func(c *Coordinator) { c.interval = d }
}

func New(exec Executor, opts ...Option) *Coordinator {
	c := &Coordinator{
		timers:   make(map[domain.RoomCode]*timer),
		exec:     exec,
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start replaces any countdown for room, reports the full duration through
// onTick right away, then ticks once per interval. At zero it calls onExpire
// once and forgets the timer.
func (c *Coordinator) Start(room domain.RoomCode, tag string, seconds int, onTick TickFunc, onExpire ExpireFunc) {
	t := &timer{tag: tag, remaining: seconds, stop: make(chan struct{})}

	c.mu.Lock()
	if old, ok := c.timers[room]; ok {
		close(old.stop)
	}
	c.timers[room] = t
	c.mu.Unlock()

	log.Debug().Str("module", "app.clock").Str("room", string(room)).Str("tag", tag).Int("seconds", seconds).Msg("timer started")
	if onTick != nil {
		onTick(seconds)
	}
	go c.run(room, t, onTick, onExpire)
}

func (c *Coordinator) run(room domain.RoomCode, t *timer, onTick TickFunc, onExpire ExpireFunc) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			c.exec(func() { c.step(room, t, onTick, onExpire) })
		}
	}
}

func (c *Coordinator) step(room domain.RoomCode, t *timer, onTick TickFunc, onExpire ExpireFunc) {
	c.mu.Lock()
	if c.timers[room] != t {
		c.mu.Unlock()
		log.Debug().Str("module", "app.clock").Str("room", string(room)).Str("tag", t.tag).Msg("stale tick dropped")
		return
	}
	t.remaining--
	rem := t.remaining
	if rem <= 0 {
		rem = 0
		delete(c.timers, room)
		close(t.stop)
	}
	c.mu.Unlock()

	if onTick != nil {
		onTick(rem)
	}
	if rem == 0 {
		log.Debug().Str("module", "app.clock").Str("room", string(room)).Str("tag", t.tag).Msg("timer expired")
		if onExpire != nil {
			onExpire()
		}
	}
}

// Clear cancels the countdown for room. Safe without a live timer.
func (c *Coordinator) Clear(room domain.RoomCode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.timers[room]; ok {
		delete(c.timers, room)
		close(t.stop)
	}
}

func (c *Coordinator) Remaining(room domain.RoomCode) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.timers[room]
	if !ok {
		return 0, false
	}
	return t.remaining, true
}

func (c *Coordinator) HasTimer(room domain.RoomCode) bool {
	_, ok := c.Remaining(room)
	return ok
}

// Tag names the purpose of the live countdown, empty without one.
func (c *Coordinator) Tag(room domain.RoomCode) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.timers[room]; ok {
		return t.tag
	}
	return ""
}

// Stop cancels every countdown.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for room, t := range c.timers {
		delete(c.timers, room)
		close(t.stop)
	}
}
