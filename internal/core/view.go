package core

import "github.com/dkeye/imposter/internal/domain"

// View is the point-in-time state one player is entitled to see. It is built
// from stored round data only; nothing new is drawn.
type View struct {
	Code        domain.RoomCode `json:"code"`
	Phase       domain.Phase    `json:"phase"`
	HostID      domain.PlayerID `json:"hostId"`
	You         domain.PlayerID `json:"you"`
	RoundNumber int             `json:"roundNumber"`
	Settings    Settings        `json:"settings"`
	MinPlayers  int             `json:"minPlayers"`
	Players     []PlayerView    `json:"players"`

	Role      *RolePayload `json:"role,omitempty"`
	TieBreaks int          `json:"tieBreaks,omitempty"`

	SpeakingOrder  []domain.PlayerID `json:"speakingOrder,omitempty"`
	CurrentSpeaker domain.PlayerID   `json:"currentSpeaker,omitempty"`
	TurnIndex      int               `json:"turnIndex"`
	Descriptions   []Description     `json:"descriptions,omitempty"`
	Submitted      int               `json:"submitted"`

	Votes  *VoteProgress `json:"votes,omitempty"`
	MyVote *MyVote       `json:"myVote,omitempty"`
	Tie    bool          `json:"tie,omitempty"`
	Chat   []ChatMessage `json:"chat,omitempty"`
	Result *Outcome      `json:"result,omitempty"`
	Timer  *TimerInfo    `json:"timer,omitempty"`
}

type PlayerView struct {
	ID     domain.PlayerID `json:"id"`
	Name   string          `json:"name"`
	IsHost bool            `json:"isHost"`
}

// MyVote is the viewer's own selection; it is only ever sent to the voter.
type MyVote struct {
	Target    domain.PlayerID `json:"target"`
	Confirmed bool            `json:"confirmed"`
}

// TimerInfo is filled in by the caller that owns the room countdown.
type TimerInfo struct {
	Tag       string `json:"tag"`
	Remaining int    `json:"remaining"`
}

// Snapshot reconstructs the view for viewer. A viewer that is not a member
// gets the public part only.
func (m *Machine) Snapshot(room *Room, viewer domain.PlayerID) View {
	v := View{
		Code:        room.Code,
		Phase:       room.Phase(),
		HostID:      room.HostID,
		RoundNumber: room.RoundNumber,
		Settings:    room.Settings,
		MinPlayers:  m.minPlayers,
		Players:     make([]PlayerView, 0, len(room.players)),
	}
	for _, p := range room.players {
		v.Players = append(v.Players, PlayerView{ID: p.ID, Name: p.Name, IsHost: room.IsHost(p.ID)})
	}
	member := room.has(viewer)
	if member {
		v.You = viewer
	}

	if round, ok := room.Round(); ok {
		v.TieBreaks = round.TieBreaks
		if member && !v.Phase.Joinable() {
			role := round.RoleFor(viewer)
			v.Role = &role
		}
	}

	switch s := room.state.(type) {
	case *descriptionState:
		v.SpeakingOrder = room.SpeakingOrder()
		v.TurnIndex = s.cursor
		if p, ok := room.CurrentSpeaker(); ok {
			v.CurrentSpeaker = p.ID
		}
		v.Descriptions = room.Descriptions()
		v.Submitted = len(s.entries)
	case *votingState:
		v.SpeakingOrder = room.SpeakingOrder()
		v.TurnIndex = len(s.order)
		v.Descriptions = room.Descriptions()
		v.Submitted = len(s.entries)
		vp := room.VoteProgress()
		v.Votes = &vp
		v.Tie = s.tied
		v.Chat = room.Chat()
		if target, ok := s.pending[viewer]; ok && member {
			_, done := s.confirmed[viewer]
			v.MyVote = &MyVote{Target: target, Confirmed: done}
		}
	case *resultsState:
		v.SpeakingOrder = room.SpeakingOrder()
		v.TurnIndex = len(s.order)
		v.Descriptions = room.Descriptions()
		v.Submitted = len(s.entries)
		v.Result = s.outcome
	case postGameState:
		v.Result = s.outcome
	}
	return v
}
