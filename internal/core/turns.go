package core

import (
	"strings"

	"github.com/dkeye/imposter/internal/domain"
)

const (
	// PlaceholderSilent replaces an empty or timed-out description.
	PlaceholderSilent = "(no description)"
	// PlaceholderDisconnected is written for players who left before their turn.
	PlaceholderDisconnected = "(disconnected)"

	MaxDescriptionLen = 120
)

// TurnResult reports one accepted description and any entries auto-filled
// while the pointer skipped departed players.
type TurnResult struct {
	Entry    Description
	Filled   []Description
	Complete bool
}

// SubmitDescription records the current speaker's text and advances the turn.
func (m *Machine) SubmitDescription(room *Room, id domain.PlayerID, text string) (*TurnResult, error) {
	s, ok := room.state.(*descriptionState)
	if !ok {
		return nil, domain.ErrInvalidPhase
	}
	p, ok := room.Player(id)
	if !ok {
		return nil, domain.ErrPlayerNotInRoom
	}
	if _, done := s.entries[id]; done {
		return nil, domain.ErrAlreadySubmitted
	}
	if s.cursor >= len(s.order) || s.order[s.cursor] != id {
		return nil, domain.ErrNotYourTurn
	}

	normalized, silent := normalizeDescription(text)
	entry := Description{PlayerID: id, Name: p.Name, Text: normalized, Auto: silent}
	s.entries[id] = entry

	filled := s.advance(room)
	return &TurnResult{Entry: entry, Filled: filled, Complete: s.complete()}, nil
}

// normalizeDescription collapses whitespace and truncates. silent is set when
// nothing was said and the placeholder was substituted.
func normalizeDescription(text string) (normalized string, silent bool) {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return PlaceholderSilent, true
	}
	if r := []rune(text); len(r) > MaxDescriptionLen {
		text = string(r[:MaxDescriptionLen])
	}
	return text, false
}

// advance moves the pointer past the current entry and then past every entry
// that is already filled or whose player has left, filling the latter. The
// loop is bounded by the order length.
func (s *descriptionState) advance(room *Room) []Description {
	var filled []Description
	s.cursor++
	for s.cursor < len(s.order) {
		id := s.order[s.cursor]
		if _, done := s.entries[id]; !done {
			if room.has(id) {
				break
			}
			d := s.fill(id, PlaceholderDisconnected)
			filled = append(filled, d)
		}
		s.cursor++
	}
	return filled
}

func (s *descriptionState) fill(id domain.PlayerID, text string) Description {
	d := Description{PlayerID: id, Name: s.names[id], Text: text, Auto: true}
	s.entries[id] = d
	return d
}

func (s *descriptionState) complete() bool { return s.cursor >= len(s.order) }

// DescriptionsComplete reports whether every speaker has an entry.
func (r *Room) DescriptionsComplete() bool {
	s, ok := r.state.(*descriptionState)
	return ok && s.complete()
}

// ExpireTurn submits the silent placeholder for whoever holds the turn.
func (m *Machine) ExpireTurn(room *Room) (*TurnResult, error) {
	p, ok := room.CurrentSpeaker()
	if !ok {
		return nil, domain.ErrInvalidPhase
	}
	return m.SubmitDescription(room, p.ID, "")
}
