package core

import (
	"math/rand/v2"
	"time"

	"github.com/dkeye/imposter/internal/domain"
)

const DefaultMinPlayers = 4

// TopicSource supplies topic/word pairs. exclude is the word of the round
// being replaced, empty for a fresh round.
type TopicSource interface {
	Pick(rng *rand.Rand, exclude string) (topic, word string)
}

// Machine owns every phase transition. All methods check the current phase
// first and return domain.ErrInvalidPhase without mutating anything when it
// does not match, so a late duplicate trigger fails harmlessly.
type Machine struct {
	topics     TopicSource
	rng        *rand.Rand
	minPlayers int
	chatMax    int
	now        func() time.Time
}

type MachineOption func(*Machine)

func WithRand(rng *rand.Rand) MachineOption {
	return func(m *Machine) { m.rng = rng }
}

func WithMinPlayers(n int) MachineOption {
	return func(m *Machine) { m.minPlayers = n }
}

func WithChatMaxLength(n int) MachineOption {
	return func(m *Machine) { m.chatMax = n }
}

func WithMachineClock(now func() time.Time) MachineOption {
	return func(m *Machine) { m.now = now }
}

func NewMachine(topics TopicSource, opts ...MachineOption) *Machine {
	m := &Machine{
		topics:     topics,
		rng:        rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		minPlayers: DefaultMinPlayers,
		chatMax:    DefaultChatMaxLength,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Machine) MinPlayers() int { return m.minPlayers }

// RoleAssignment pairs a player with the payload only that player may see.
type RoleAssignment struct {
	PlayerID domain.PlayerID
	Role     RolePayload
}

func (m *Machine) StartGame(room *Room, caller domain.PlayerID) ([]RoleAssignment, error) {
	if room.Phase() != domain.PhaseLobby {
		return nil, domain.ErrGameAlreadyStarted
	}
	if err := m.checkHost(room, caller); err != nil {
		return nil, err
	}
	if n := room.PlayerCount(); n < m.minPlayers {
		return nil, domain.NotEnoughPlayers(m.minPlayers, n)
	}

	topic, word := m.topics.Pick(m.rng, "")
	imposter := room.players[m.rng.IntN(len(room.players))]
	round := &Round{
		Number:     room.RoundNumber,
		Topic:      topic,
		word:       word,
		imposterID: imposter.ID,
	}
	room.state = roleRevealState{round: round}

	out := make([]RoleAssignment, 0, len(room.players))
	for _, p := range room.players {
		out = append(out, RoleAssignment{PlayerID: p.ID, Role: round.RoleFor(p.ID)})
	}
	return out, nil
}

func (m *Machine) TransitionToDescriptionPhase(room *Room) error {
	s, ok := room.state.(roleRevealState)
	if !ok {
		return domain.ErrInvalidPhase
	}
	room.state = m.newDescriptionState(room, s.round)
	return nil
}

func (m *Machine) newDescriptionState(room *Room, round *Round) *descriptionState {
	order := make([]domain.PlayerID, len(room.players))
	names := make(map[domain.PlayerID]string, len(room.players))
	for i, idx := range m.rng.Perm(len(room.players)) {
		p := room.players[idx]
		order[i] = p.ID
		names[p.ID] = p.Name
	}
	return &descriptionState{
		round:   round,
		order:   order,
		names:   names,
		entries: make(map[domain.PlayerID]Description, len(order)),
	}
}

func (m *Machine) TransitionToVotingPhase(room *Room) error {
	s, ok := room.state.(*descriptionState)
	if !ok {
		return domain.ErrInvalidPhase
	}
	room.state = &votingState{
		round:     s.round,
		order:     s.order,
		entries:   s.entries,
		pending:   make(map[domain.PlayerID]domain.PlayerID),
		confirmed: make(map[domain.PlayerID]domain.PlayerID),
		chat:      []ChatMessage{},
	}
	return nil
}

func (m *Machine) TransitionToPostGame(room *Room) error {
	s, ok := room.state.(*resultsState)
	if !ok {
		return domain.ErrInvalidPhase
	}
	room.state = postGameState{round: s.round, outcome: s.outcome}
	return nil
}

// ResetRoomForNewGame returns a finished room to the lobby for replay.
func (m *Machine) ResetRoomForNewGame(room *Room, caller domain.PlayerID) error {
	switch room.Phase() {
	case domain.PhaseResults, domain.PhasePostGame:
	default:
		return domain.ErrInvalidPhase
	}
	if err := m.checkHost(room, caller); err != nil {
		return err
	}
	if n := room.PlayerCount(); n < m.minPlayers {
		return domain.NotEnoughPlayers(m.minPlayers, n)
	}
	room.state = lobbyState{}
	room.RoundNumber++
	return nil
}

// AbortRound discards an active round without disclosing it.
func (m *Machine) AbortRound(room *Room) error {
	if !room.Phase().Active() {
		return domain.ErrInvalidPhase
	}
	room.state = lobbyState{}
	return nil
}

func (m *Machine) UpdateSettings(room *Room, caller domain.PlayerID, s Settings) error {
	if !room.Phase().Joinable() {
		return domain.ErrInvalidPhase
	}
	if err := m.checkHost(room, caller); err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}
	room.Settings = s
	return nil
}

func (m *Machine) checkHost(room *Room, caller domain.PlayerID) error {
	if !room.has(caller) {
		return domain.ErrPlayerNotInRoom
	}
	if !room.IsHost(caller) {
		return domain.ErrNotHost
	}
	return nil
}
