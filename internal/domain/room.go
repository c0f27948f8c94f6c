package domain

import "strings"

type RoomCode string

// ParseRoomCode upper-cases user input so codes match case-insensitively.
func ParseRoomCode(raw string) RoomCode {
	return RoomCode(strings.ToUpper(strings.TrimSpace(raw)))
}

type Phase string

const (
	PhaseLobby       Phase = "lobby"
	PhaseRoleReveal  Phase = "roleReveal"
	PhaseDescription Phase = "description"
	PhaseVoting      Phase = "voting"
	PhaseResults     Phase = "results"
	PhasePostGame    Phase = "postGame"
)

func (p Phase) String() string { return string(p) }

// Joinable reports whether new players may enter a room in this phase.
func (p Phase) Joinable() bool {
	return p == PhaseLobby || p == PhasePostGame
}

// Active reports whether a round is being played.
func (p Phase) Active() bool {
	switch p {
	case PhaseRoleReveal, PhaseDescription, PhaseVoting:
		return true
	default:
		return false
	}
}
