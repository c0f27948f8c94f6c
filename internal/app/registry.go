package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/dkeye/imposter/internal/domain"
	"github.com/rs/zerolog/log"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

type Frame []byte

// Conn is the outbound half of one live client connection.
type Conn interface {
	TrySend(f Frame) error
	Close()
}

type connEntry struct {
	conn   Conn
	cancel context.CancelFunc
	misses int
}

// Registry maps connection ids to live transports. It is the only place
// that knows how a payload reaches a socket.
type Registry struct {
	mu     sync.RWMutex
	conns  map[domain.ConnID]*connEntry
	policy Policy
}

func NewRegistry(policy Policy) *Registry {
	if policy == nil {
		policy = SimplePolicy{}
	}
	return &Registry{
		conns:  make(map[domain.ConnID]*connEntry),
		policy: policy,
	}
}

func (r *Registry) Bind(id domain.ConnID, conn Conn, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[id] = &connEntry{conn: conn, cancel: cancel}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("bound connection")
}

func (r *Registry) Unbind(id domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, id)
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("unbound connection")
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Send encodes msg as JSON and queues it on the connection. Unknown ids are
// ignored; the player may have disconnected since the event was produced.
func (r *Registry) Send(id domain.ConnID, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("module", "app.registry").Msg("marshal outbound")
		return
	}

	r.mu.Lock()
	e, ok := r.conns[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	err = e.conn.TrySend(data)
	if err == nil {
		e.misses = 0
		r.mu.Unlock()
		return
	}
	if !errors.Is(err, ErrBackpressure) {
		r.mu.Unlock()
		return
	}
	e.misses++
	action := r.policy.OnBackPressure(id, e.misses)
	cancel := e.cancel
	r.mu.Unlock()

	switch action {
	case KickMember:
		log.Warn().Str("module", "app.registry").Str("conn", string(id)).Msg("slow connection kicked")
		if cancel != nil {
			cancel()
		}
		e.conn.Close()
	case DropFrame:
		log.Debug().Str("module", "app.registry").Str("conn", string(id)).Msg("frame dropped")
	case NoAction:
	}
}

// Connected reports whether id is still bound to a live transport.
func (r *Registry) Connected(id domain.ConnID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[id]
	return ok
}

// Drop cancels and closes the connection. The transport unbinds it when its
// read loop exits.
func (r *Registry) Drop(id domain.ConnID) bool {
	r.mu.RLock()
	e, ok := r.conns[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.cancel != nil {
		e.cancel()
	}
	e.conn.Close()
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("dropped connection")
	return true
}
