package core

import (
	"slices"
	"time"

	"github.com/dkeye/imposter/internal/domain"
)

// Player is a member of one room. Its ID is stable for the membership;
// Conn is rebound on rejoin.
type Player struct {
	ID       domain.PlayerID `json:"id"`
	Name     string          `json:"name"`
	Conn     domain.ConnID   `json:"-"`
	JoinedAt time.Time       `json:"joinedAt"`
}

// Round holds the hidden information of one round. It is never serialized.
type Round struct {
	Number    int
	Topic     string
	TieBreaks int

	word       string
	imposterID domain.PlayerID
}

func (r *Round) IsImposter(id domain.PlayerID) bool { return r.imposterID == id }

// RoleFor returns the private role payload for one player.
func (r *Round) RoleFor(id domain.PlayerID) RolePayload {
	if r.IsImposter(id) {
		return RolePayload{IsImposter: true, Topic: r.Topic}
	}
	return RolePayload{Topic: r.Topic, Word: r.word}
}

// RolePayload is unicast to exactly one player.
type RolePayload struct {
	IsImposter bool   `json:"isImposter"`
	Topic      string `json:"topic"`
	Word       string `json:"word,omitempty"`
}

type Description struct {
	PlayerID domain.PlayerID `json:"playerId"`
	Name     string          `json:"name"`
	Text     string          `json:"text"`
	Auto     bool            `json:"auto,omitempty"`
}

type ChatMessage struct {
	PlayerID domain.PlayerID `json:"playerId"`
	Name     string          `json:"name"`
	Text     string          `json:"text"`
	At       time.Time       `json:"at"`
}

// Room is the authoritative record of one session. Phase-scoped data lives in
// state, whose concrete type is tied to the phase.
type Room struct {
	Code        domain.RoomCode
	HostID      domain.PlayerID
	CreatedAt   time.Time
	RoundNumber int
	Settings    Settings

	players []*Player
	state   phaseState
}

func newRoom(code domain.RoomCode, now time.Time, settings Settings) *Room {
	return &Room{
		Code:        code,
		CreatedAt:   now,
		RoundNumber: 1,
		Settings:    settings,
		state:       lobbyState{},
	}
}

func (r *Room) Phase() domain.Phase { return r.state.phase() }

// Players returns members in join order.
func (r *Room) Players() []*Player { return slices.Clone(r.players) }

func (r *Room) PlayerCount() int { return len(r.players) }

func (r *Room) Player(id domain.PlayerID) (*Player, bool) {
	for _, p := range r.players {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// PlayerNamed finds a member by trimmed, case-insensitive name.
func (r *Room) PlayerNamed(name string) (*Player, bool) {
	return r.playerByName(domain.TrimName(name))
}

func (r *Room) playerByName(name string) (*Player, bool) {
	for _, p := range r.players {
		if domain.SameName(p.Name, name) {
			return p, true
		}
	}
	return nil, false
}

func (r *Room) has(id domain.PlayerID) bool {
	_, ok := r.Player(id)
	return ok
}

func (r *Room) IsHost(id domain.PlayerID) bool { return r.HostID == id }

// Round returns the hidden round data for every phase past the lobby.
func (r *Room) Round() (*Round, bool) {
	switch s := r.state.(type) {
	case roleRevealState:
		return s.round, true
	case *descriptionState:
		return s.round, true
	case *votingState:
		return s.round, true
	case *resultsState:
		return s.round, true
	case postGameState:
		return s.round, true
	default:
		return nil, false
	}
}

// CurrentSpeaker is the player expected to describe next.
func (r *Room) CurrentSpeaker() (*Player, bool) {
	s, ok := r.state.(*descriptionState)
	if !ok || s.cursor >= len(s.order) {
		return nil, false
	}
	return r.Player(s.order[s.cursor])
}

// TurnIndex is the current-speaker pointer, terminal at len(SpeakingOrder).
func (r *Room) TurnIndex() int {
	if s, ok := r.state.(*descriptionState); ok {
		return s.cursor
	}
	return 0
}

func (r *Room) SpeakingOrder() []domain.PlayerID {
	switch s := r.state.(type) {
	case *descriptionState:
		return slices.Clone(s.order)
	case *votingState:
		return slices.Clone(s.order)
	case *resultsState:
		return slices.Clone(s.order)
	default:
		return nil
	}
}

// Descriptions lists submitted entries in speaking order.
func (r *Room) Descriptions() []Description {
	var (
		order   []domain.PlayerID
		entries map[domain.PlayerID]Description
	)
	switch s := r.state.(type) {
	case *descriptionState:
		order, entries = s.order, s.entries
	case *votingState:
		order, entries = s.order, s.entries
	case *resultsState:
		order, entries = s.order, s.entries
	default:
		return nil
	}
	out := make([]Description, 0, len(entries))
	for _, id := range order {
		if d, ok := entries[id]; ok {
			out = append(out, d)
		}
	}
	return out
}

func (r *Room) Chat() []ChatMessage {
	if s, ok := r.state.(*votingState); ok {
		return slices.Clone(s.chat)
	}
	return nil
}

// Outcome is the disclosed result of the last resolved round.
func (r *Room) Outcome() (*Outcome, bool) {
	switch s := r.state.(type) {
	case *resultsState:
		return s.outcome, true
	case postGameState:
		return s.outcome, true
	default:
		return nil, false
	}
}
