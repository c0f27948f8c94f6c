package core

import (
	"slices"
	"strings"

	"github.com/dkeye/imposter/internal/domain"
)

const DefaultChatMaxLength = 200

// Tally is one line of the disclosed vote summary.
type Tally struct {
	PlayerID domain.PlayerID `json:"playerId"`
	Name     string          `json:"name"`
	Votes    int             `json:"votes"`
}

// Outcome is what the results phase discloses. The imposter is named, never
// identified by id.
type Outcome struct {
	Round          int             `json:"round"`
	Topic          string          `json:"topic"`
	Word           string          `json:"word"`
	ImposterName   string          `json:"imposterName"`
	EliminatedID   domain.PlayerID `json:"eliminatedId,omitempty"`
	EliminatedName string          `json:"eliminatedName,omitempty"`
	ImposterCaught bool            `json:"imposterCaught"`
	Summary        []Tally         `json:"summary"`
}

// Resolution is the result of counting votes: either a tie or an outcome.
type Resolution struct {
	Tie     bool
	Tied    []domain.PlayerID
	Outcome *Outcome
}

// VoteProgress never carries targets.
type VoteProgress struct {
	Confirmed int `json:"confirmed"`
	Total     int `json:"total"`
}

func (m *Machine) voting(room *Room) (*votingState, error) {
	s, ok := room.state.(*votingState)
	if !ok || s.tied {
		return nil, domain.ErrInvalidPhase
	}
	return s, nil
}

// SelectVote records or replaces a pending selection.
func (m *Machine) SelectVote(room *Room, voter, target domain.PlayerID) error {
	s, err := m.voting(room)
	if err != nil {
		return err
	}
	if err := s.validate(room, voter, target); err != nil {
		return err
	}
	s.pending[voter] = target
	return nil
}

// ConfirmVote makes the pending selection binding.
func (m *Machine) ConfirmVote(room *Room, voter domain.PlayerID) error {
	s, err := m.voting(room)
	if err != nil {
		return err
	}
	if !room.has(voter) {
		return domain.ErrPlayerNotInRoom
	}
	if _, done := s.confirmed[voter]; done {
		return domain.ErrAlreadyConfirmed
	}
	target, ok := s.pending[voter]
	if !ok {
		return domain.ErrNoSelection
	}
	if !room.has(target) {
		return domain.ErrTargetNotInRoom
	}
	s.confirmed[voter] = target
	return nil
}

// SubmitVote selects and confirms in one step.
func (m *Machine) SubmitVote(room *Room, voter, target domain.PlayerID) error {
	s, err := m.voting(room)
	if err != nil {
		return err
	}
	if err := s.validate(room, voter, target); err != nil {
		return err
	}
	s.pending[voter] = target
	s.confirmed[voter] = target
	return nil
}

func (s *votingState) validate(room *Room, voter, target domain.PlayerID) error {
	if !room.has(voter) {
		return domain.ErrPlayerNotInRoom
	}
	if _, done := s.confirmed[voter]; done {
		return domain.ErrAlreadyConfirmed
	}
	if voter == target {
		return domain.ErrCannotVoteSelf
	}
	if !room.has(target) {
		return domain.ErrTargetNotInRoom
	}
	return nil
}

// AutoConfirmPending promotes every unconfirmed selection whose voter and
// target are still members. Players who never selected stay abstainers.
func (m *Machine) AutoConfirmPending(room *Room) (int, error) {
	s, err := m.voting(room)
	if err != nil {
		return 0, err
	}
	n := 0
	for voter, target := range s.pending {
		if _, done := s.confirmed[voter]; done {
			continue
		}
		if !room.has(voter) || !room.has(target) {
			continue
		}
		s.confirmed[voter] = target
		n++
	}
	return n, nil
}

// VoteProgress counts confirmed votes of current members.
func (r *Room) VoteProgress() VoteProgress {
	s, ok := r.state.(*votingState)
	if !ok {
		return VoteProgress{}
	}
	vp := VoteProgress{Total: len(r.players)}
	for _, p := range r.players {
		if _, done := s.confirmed[p.ID]; done {
			vp.Confirmed++
		}
	}
	return vp
}

// VotingComplete reports whether every current member has confirmed.
func (r *Room) VotingComplete() bool {
	s, ok := r.state.(*votingState)
	if !ok || s.tied {
		return false
	}
	vp := r.VoteProgress()
	return vp.Total > 0 && vp.Confirmed == vp.Total
}

func (s *votingState) othersConfirmed(room *Room, leaving domain.PlayerID) bool {
	for _, p := range room.players {
		if p.ID == leaving {
			continue
		}
		if _, done := s.confirmed[p.ID]; !done {
			return false
		}
	}
	return true
}

// PendingVote returns the voter's current selection, confirmed or not.
func (r *Room) PendingVote(voter domain.PlayerID) (domain.PlayerID, bool) {
	s, ok := r.state.(*votingState)
	if !ok {
		return "", false
	}
	t, ok := s.pending[voter]
	return t, ok
}

func (r *Room) HasConfirmed(voter domain.PlayerID) bool {
	s, ok := r.state.(*votingState)
	if !ok {
		return false
	}
	_, done := s.confirmed[voter]
	return done
}

// CalculateVoteResults tallies confirmed votes for current members; votes for
// a player who has left count for nobody. A shared maximum is a tie:
// nothing is eliminated, the room stays in voting and only
// RestartRoundWithSameImposter may follow.
func (m *Machine) CalculateVoteResults(room *Room) (*Resolution, error) {
	s, err := m.voting(room)
	if err != nil {
		return nil, err
	}

	tallies := make(map[domain.PlayerID]int, len(room.players))
	for _, target := range s.confirmed {
		tallies[target]++
	}

	best := 0
	var leaders []domain.PlayerID
	for _, p := range room.players {
		n := tallies[p.ID]
		switch {
		case n == 0:
		case n > best:
			best = n
			leaders = []domain.PlayerID{p.ID}
		case n == best:
			leaders = append(leaders, p.ID)
		}
	}

	if len(leaders) > 1 {
		s.tied = true
		return &Resolution{Tie: true, Tied: leaders}, nil
	}

	out := &Outcome{
		Round: s.round.Number,
		Topic: s.round.Topic,
		Word:  s.round.word,
	}
	for _, p := range room.players {
		out.Summary = append(out.Summary, Tally{PlayerID: p.ID, Name: p.Name, Votes: tallies[p.ID]})
		if s.round.IsImposter(p.ID) {
			out.ImposterName = p.Name
		}
	}
	slices.SortStableFunc(out.Summary, func(a, b Tally) int { return b.Votes - a.Votes })

	if len(leaders) == 1 {
		p, _ := room.Player(leaders[0])
		out.EliminatedID = p.ID
		out.EliminatedName = p.Name
		out.ImposterCaught = s.round.IsImposter(p.ID)
	}

	room.state = &resultsState{
		round:   s.round,
		order:   s.order,
		entries: s.entries,
		outcome: out,
	}
	return &Resolution{Outcome: out}, nil
}

// RestartRoundWithSameImposter replays a tied round: same imposter and
// players, a new topic/word, a fresh speaking order.
func (m *Machine) RestartRoundWithSameImposter(room *Room) error {
	s, ok := room.state.(*votingState)
	if !ok || !s.tied {
		return domain.ErrInvalidPhase
	}
	round := s.round
	topic, word := m.topics.Pick(m.rng, round.word)
	next := &Round{
		Number:     round.Number,
		Topic:      topic,
		TieBreaks:  round.TieBreaks + 1,
		word:       word,
		imposterID: round.imposterID,
	}
	room.state = m.newDescriptionState(room, next)
	return nil
}

// PostChat appends to the voting-phase transcript.
func (m *Machine) PostChat(room *Room, from domain.PlayerID, text string) (*ChatMessage, error) {
	s, ok := room.state.(*votingState)
	if !ok {
		return nil, domain.ErrInvalidPhase
	}
	p, ok := room.Player(from)
	if !ok {
		return nil, domain.ErrPlayerNotInRoom
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrEmptyMessage
	}
	if r := []rune(text); len(r) > m.chatMax {
		text = string(r[:m.chatMax])
	}
	msg := ChatMessage{PlayerID: p.ID, Name: p.Name, Text: text, At: m.now()}
	s.chat = append(s.chat, msg)
	return &msg, nil
}
