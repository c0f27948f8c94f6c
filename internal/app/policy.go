package app

import "github.com/dkeye/imposter/internal/domain"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

// Policy decides what happens to a connection whose send buffer is full.
// misses counts consecutive dropped frames for that connection.
type Policy interface {
	OnBackPressure(conn domain.ConnID, misses int) BackpressureAction
}

const DefaultMaxMisses = 8

// SimplePolicy drops frames until MaxMisses in a row, then kicks.
type SimplePolicy struct {
	MaxMisses int
}

func (p SimplePolicy) OnBackPressure(_ domain.ConnID, misses int) BackpressureAction {
	limit := p.MaxMisses
	if limit <= 0 {
		limit = DefaultMaxMisses
	}
	if misses >= limit {
		return KickMember
	}
	return DropFrame
}
