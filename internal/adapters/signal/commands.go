package signal

import (
	"encoding/json"

	"github.com/dkeye/imposter/internal/app/orch"
	"github.com/dkeye/imposter/internal/core"
	"github.com/dkeye/imposter/internal/domain"
	"github.com/rs/zerolog/log"
)

// Inbound message types.
const (
	TypeCreate      = "create"
	TypeJoin        = "join"
	TypeLeave       = "leave"
	TypeStart       = "start"
	TypeSettings    = "settings"
	TypeAdvance     = "advance"
	TypeDescribe    = "describe"
	TypeSelectVote  = "select_vote"
	TypeConfirmVote = "confirm_vote"
	TypeVote        = "vote"
	TypeChat        = "chat"
	TypePlayAgain   = "play_again"
	TypeState       = "state"
	TypePing        = "ping"
)

type envelope struct {
	Type     string          `json:"type"`
	Name     string          `json:"name"`
	Code     string          `json:"code"`
	Text     *string         `json:"text"`
	Target   domain.PlayerID `json:"target"`
	Settings *core.Settings  `json:"settings"`
}

type pongMsg struct {
	Type string `json:"type"`
}

type errorMsg struct {
	Type  string        `json:"type"`
	Error *domain.Error `json:"error"`
}

func (ctl *SignalWSController) handleSignal(id domain.ConnID, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("bad json")
		ctl.reject(id, domain.ErrBadRequest)
		return
	}

	switch env.Type {
	case TypePing:
		ctl.registry.Send(id, pongMsg{Type: "pong"})
		return
	case TypeChat:
		if !ctl.chat.Allow(id) {
			ctl.reject(id, domain.ErrRateLimited)
			return
		}
	}

	msg, err := env.toMsg(id)
	if err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("type", env.Type).Msg("rejected signal")
		ctl.reject(id, err)
		return
	}
	if !ctl.orch.Post(msg) {
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("dispatcher stopped, dropping signal")
	}
}

func (ctl *SignalWSController) reject(id domain.ConnID, err error) {
	ctl.registry.Send(id, errorMsg{Type: orch.TypeError, Error: domain.AsError(err)})
}

// toMsg maps a decoded frame onto the dispatcher message it stands for.
func (env envelope) toMsg(id domain.ConnID) (orch.Msg, error) {
	switch env.Type {
	case TypeCreate:
		return orch.CreateRoom{Conn: id, Name: env.Name}, nil
	case TypeJoin:
		return orch.JoinRoom{Conn: id, Code: domain.ParseRoomCode(env.Code), Name: env.Name}, nil
	case TypeLeave:
		return orch.Leave{Conn: id}, nil
	case TypeStart:
		return orch.StartGame{Conn: id}, nil
	case TypeSettings:
		if env.Settings == nil {
			return nil, domain.ErrBadRequest
		}
		return orch.UpdateSettings{Conn: id, Settings: *env.Settings}, nil
	case TypeAdvance:
		return orch.Advance{Conn: id}, nil
	case TypeDescribe:
		if env.Text == nil {
			return nil, domain.ErrEmptyDescription
		}
		return orch.SubmitDescription{Conn: id, Text: *env.Text}, nil
	case TypeSelectVote:
		return orch.SelectVote{Conn: id, Target: env.Target}, nil
	case TypeConfirmVote:
		return orch.ConfirmVote{Conn: id}, nil
	case TypeVote:
		return orch.SubmitVote{Conn: id, Target: env.Target}, nil
	case TypeChat:
		if env.Text == nil {
			return nil, domain.ErrEmptyMessage
		}
		return orch.Chat{Conn: id, Text: *env.Text}, nil
	case TypePlayAgain:
		return orch.PlayAgain{Conn: id}, nil
	case TypeState:
		return orch.RequestState{Conn: id}, nil
	}
	return nil, domain.ErrBadRequest
}
