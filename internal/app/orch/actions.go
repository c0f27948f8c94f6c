package orch

import (
	"github.com/dkeye/imposter/internal/core"
	"github.com/dkeye/imposter/internal/domain"
)

// Msg is anything the dispatcher accepts. Player actions carry the
// connection they arrived on.
type Msg interface{ isOrchMsg() }

type CreateRoom struct {
	Conn domain.ConnID
	Name string
}

type JoinRoom struct {
	Conn domain.ConnID
	Code domain.RoomCode
	Name string
}

type Leave struct{ Conn domain.ConnID }

// Disconnect is posted by the transport when a socket is gone.
type Disconnect struct{ Conn domain.ConnID }

type StartGame struct{ Conn domain.ConnID }

type UpdateSettings struct {
	Conn     domain.ConnID
	Settings core.Settings
}

// Advance lets the host skip the role reveal or results countdown.
type Advance struct{ Conn domain.ConnID }

type SubmitDescription struct {
	Conn domain.ConnID
	Text string
}

type SelectVote struct {
	Conn   domain.ConnID
	Target domain.PlayerID
}

type ConfirmVote struct{ Conn domain.ConnID }

type SubmitVote struct {
	Conn   domain.ConnID
	Target domain.PlayerID
}

type Chat struct {
	Conn domain.ConnID
	Text string
}

type PlayAgain struct{ Conn domain.ConnID }

type RequestState struct{ Conn domain.ConnID }

// RoomInfo is a query; the reply is sent on Reply, which must be buffered.
type RoomInfo struct {
	Code  domain.RoomCode
	Reply chan RoomSummary
}

type RoomSummary struct {
	Code     domain.RoomCode `json:"code"`
	Phase    domain.Phase    `json:"phase"`
	Players  int             `json:"players"`
	Joinable bool            `json:"joinable"`
	Found    bool            `json:"-"`
}

// task runs a closure on the dispatcher; timers use it.
type task struct{ fn func() }

func (CreateRoom) isOrchMsg()        {}
func (JoinRoom) isOrchMsg()          {}
func (Leave) isOrchMsg()             {}
func (Disconnect) isOrchMsg()        {}
func (StartGame) isOrchMsg()         {}
func (UpdateSettings) isOrchMsg()    {}
func (Advance) isOrchMsg()           {}
func (SubmitDescription) isOrchMsg() {}
func (SelectVote) isOrchMsg()        {}
func (ConfirmVote) isOrchMsg()       {}
func (SubmitVote) isOrchMsg()        {}
func (Chat) isOrchMsg()              {}
func (PlayAgain) isOrchMsg()         {}
func (RequestState) isOrchMsg()      {}
func (RoomInfo) isOrchMsg()          {}
func (task) isOrchMsg()              {}
