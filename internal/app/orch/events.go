package orch

import (
	"github.com/dkeye/imposter/internal/core"
	"github.com/dkeye/imposter/internal/domain"
)

// Outbound message types.
const (
	TypeRoomState            = "room_state"
	TypePlayerJoined         = "player_joined"
	TypePlayerLeft           = "player_left"
	TypeHostChanged          = "host_changed"
	TypeSettingsUpdated      = "settings_updated"
	TypeRoleAssigned         = "role_assigned"
	TypePhaseChanged         = "phase_changed"
	TypeTurnChanged          = "turn_changed"
	TypeDescriptionSubmitted = "description_submitted"
	TypeTimer                = "timer"
	TypeVoteSelected         = "vote_selected"
	TypeVoteProgress         = "vote_progress"
	TypeVoteTie              = "vote_tie"
	TypeResults              = "results"
	TypeChatMessage          = "chat_message"
	TypeRoundAborted         = "round_aborted"
	TypeError                = "error"
)

// Round abort reasons.
const (
	ReasonImposterLeft     = "imposter_left"
	ReasonNotEnoughPlayers = "not_enough_players"
)

type roomStateMsg struct {
	Type  string    `json:"type"`
	State core.View `json:"state"`
}

type playerJoinedMsg struct {
	Type   string          `json:"type"`
	Player core.PlayerView `json:"player"`
}

type playerLeftMsg struct {
	Type     string          `json:"type"`
	PlayerID domain.PlayerID `json:"playerId"`
	Name     string          `json:"name"`
}

type hostChangedMsg struct {
	Type   string          `json:"type"`
	HostID domain.PlayerID `json:"hostId"`
}

type settingsUpdatedMsg struct {
	Type     string        `json:"type"`
	Settings core.Settings `json:"settings"`
}

// roleAssignedMsg is unicast only.
type roleAssignedMsg struct {
	Type      string           `json:"type"`
	Round     int              `json:"round"`
	TieBreaks int              `json:"tieBreaks,omitempty"`
	Role      core.RolePayload `json:"role"`
}

type phaseChangedMsg struct {
	Type          string            `json:"type"`
	Phase         domain.Phase      `json:"phase"`
	Round         int               `json:"round"`
	SpeakingOrder []domain.PlayerID `json:"speakingOrder,omitempty"`
}

type turnChangedMsg struct {
	Type      string          `json:"type"`
	SpeakerID domain.PlayerID `json:"speakerId"`
	Name      string          `json:"name"`
	TurnIndex int             `json:"turnIndex"`
}

type descriptionSubmittedMsg struct {
	Type        string           `json:"type"`
	Description core.Description `json:"description"`
}

type timerMsg struct {
	Type      string `json:"type"`
	Tag       string `json:"tag"`
	Remaining int    `json:"remaining"`
}

// voteSelectedMsg is an ack to the voter only.
type voteSelectedMsg struct {
	Type      string          `json:"type"`
	Target    domain.PlayerID `json:"target"`
	Confirmed bool            `json:"confirmed"`
}

type voteProgressMsg struct {
	Type string `json:"type"`
	core.VoteProgress
}

type voteTieMsg struct {
	Type  string   `json:"type"`
	Names []string `json:"names"`
}

type resultsMsg struct {
	Type   string        `json:"type"`
	Result *core.Outcome `json:"result"`
}

type chatMessageMsg struct {
	Type    string           `json:"type"`
	Message core.ChatMessage `json:"message"`
}

type roundAbortedMsg struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

type errorMsg struct {
	Type  string        `json:"type"`
	Error *domain.Error `json:"error"`
}

// Timer tags.
const (
	TagRoleReveal = "roleReveal"
	TagTurn       = "turn"
	TagVoting     = "voting"
	TagResults    = "results"
)
