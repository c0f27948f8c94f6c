package core

import "github.com/dkeye/imposter/internal/domain"

// DisconnectReport tells the orchestrator whether the departure finished the
// current phase.
type DisconnectReport struct {
	Phase                domain.Phase
	Filled               []Description
	SpeakerAdvanced      bool
	DescriptionsComplete bool
	VotesComplete        bool
}

// HandleDisconnectMidGame must run before the player is removed from the
// Store so the player still counts as a member.
func (m *Machine) HandleDisconnectMidGame(room *Room, id domain.PlayerID) (*DisconnectReport, error) {
	if !room.has(id) {
		return nil, domain.ErrPlayerNotInRoom
	}
	rep := &DisconnectReport{Phase: room.Phase()}
	switch s := room.state.(type) {
	case *descriptionState:
		before := s.cursor
		rep.Filled = room.releaseSeat(id)
		rep.SpeakerAdvanced = s.cursor != before
		rep.DescriptionsComplete = s.complete()
	case *votingState:
		rep.VotesComplete = !s.tied && s.othersConfirmed(room, id)
	}
	return rep, nil
}

// releaseSeat applies the phase cleanup for a departing member. It is
// idempotent, so the Store can call it again on removal. Votes are left
// alone: a confirmed vote never changes.
func (r *Room) releaseSeat(id domain.PlayerID) []Description {
	switch s := r.state.(type) {
	case *descriptionState:
		if _, done := s.entries[id]; done {
			return nil
		}
		filled := []Description{s.fill(id, PlaceholderDisconnected)}
		if s.cursor < len(s.order) && s.order[s.cursor] == id {
			filled = append(filled, s.advance(r)...)
		}
		return filled
	}
	return nil
}
