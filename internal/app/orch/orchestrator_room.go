package orch

import (
	"github.com/dkeye/imposter/internal/core"
	"github.com/dkeye/imposter/internal/domain"
	"github.com/rs/zerolog/log"
)

func (o *Orchestrator) createRoom(msg CreateRoom) {
	if _, _, ok := o.store.Lookup(msg.Conn); ok {
		o.removeConn(msg.Conn, "switch room")
	}
	room, p, err := o.store.CreateRoom(msg.Name, msg.Conn)
	if err != nil {
		o.sendError(msg.Conn, err)
		return
	}
	log.Info().Str("module", "orch").Str("room", string(room.Code)).Str("player", string(p.ID)).Msg("room created")
	o.sendState(room, p)
}

// joinRoom resumes an existing seat with the same name when its owner may be
// reconnecting: always during a round, and in the lobby only once the old
// socket is gone. Otherwise the name is taken. The replaced socket is closed.
func (o *Orchestrator) joinRoom(msg JoinRoom) {
	code := domain.ParseRoomCode(string(msg.Code))
	if room, _, ok := o.store.Lookup(msg.Conn); ok && room.Code != code {
		o.removeConn(msg.Conn, "switch room")
	}

	if o.mayRejoin(code, msg) {
		if rj, ok := o.store.AttemptRejoin(code, msg.Name, msg.Conn); ok {
			log.Info().Str("module", "orch").Str("room", string(code)).Str("player", string(rj.Player.ID)).Msg("rejoin")
			if rj.PreviousConn != msg.Conn {
				o.out.Drop(rj.PreviousConn)
			}
			o.sendState(rj.Room, rj.Player)
			return
		}
	}

	room, p, err := o.store.JoinRoom(code, msg.Name, msg.Conn)
	if err != nil {
		o.sendError(msg.Conn, err)
		return
	}
	o.sendState(room, p)
	o.broadcastExcept(room, p.ID, playerJoinedMsg{
		Type:   TypePlayerJoined,
		Player: core.PlayerView{ID: p.ID, Name: p.Name, IsHost: room.IsHost(p.ID)},
	})
}

func (o *Orchestrator) mayRejoin(code domain.RoomCode, msg JoinRoom) bool {
	room, ok := o.store.Room(code)
	if !ok {
		return false
	}
	seat, ok := room.PlayerNamed(msg.Name)
	if !ok {
		return false
	}
	return seat.Conn == msg.Conn || !room.Phase().Joinable() || !o.out.Connected(seat.Conn)
}

// removeConn handles both voluntary leave and a dropped socket. Mid-round
// cleanup runs while the player still counts as a member; completion is
// re-checked after removal.
func (o *Orchestrator) removeConn(conn domain.ConnID, why string) {
	room, p, ok := o.store.Lookup(conn)
	if !ok {
		return
	}
	phase := room.Phase()

	var rep *core.DisconnectReport
	if phase == domain.PhaseDescription || phase == domain.PhaseVoting {
		var err error
		if rep, err = o.machine.HandleDisconnectMidGame(room, p.ID); err != nil {
			log.Warn().Err(err).Str("module", "orch").Str("room", string(room.Code)).Msg("disconnect cleanup")
		}
	}
	wasImposter := false
	if round, ok := room.Round(); ok && phase.Active() {
		wasImposter = round.IsImposter(p.ID)
	}

	res, ok := o.store.RemovePlayer(conn)
	if !ok {
		return
	}
	log.Info().Str("module", "orch").Str("room", string(room.Code)).Str("player", string(p.ID)).Str("reason", why).Msg("player removed")
	if res.RoomDeleted {
		o.clock.Clear(room.Code)
		return
	}

	o.broadcast(room, playerLeftMsg{Type: TypePlayerLeft, PlayerID: p.ID, Name: p.Name})
	if res.NewHostID != "" {
		o.broadcast(room, hostChangedMsg{Type: TypeHostChanged, HostID: res.NewHostID})
	}

	if phase.Active() {
		switch {
		case wasImposter:
			o.abort(room, ReasonImposterLeft)
			return
		case room.PlayerCount() < MinActivePlayers:
			o.abort(room, ReasonNotEnoughPlayers)
			return
		}
	}
	if rep == nil {
		return
	}

	switch rep.Phase {
	case domain.PhaseDescription:
		for _, d := range rep.Filled {
			o.broadcast(room, descriptionSubmittedMsg{Type: TypeDescriptionSubmitted, Description: d})
		}
		switch {
		case rep.DescriptionsComplete:
			o.enterVoting(room)
		case rep.SpeakerAdvanced:
			o.startTurn(room)
		}
	case domain.PhaseVoting:
		o.broadcastVoteProgress(room)
		if room.VotingComplete() {
			o.resolveVotes(room)
		}
	}
}

func (o *Orchestrator) updateSettings(msg UpdateSettings) {
	room, p, ok := o.member(msg.Conn)
	if !ok {
		return
	}
	if err := o.machine.UpdateSettings(room, p.ID, msg.Settings); err != nil {
		o.sendError(msg.Conn, err)
		return
	}
	o.broadcast(room, settingsUpdatedMsg{Type: TypeSettingsUpdated, Settings: room.Settings})
}

func (o *Orchestrator) requestState(msg RequestState) {
	room, p, ok := o.member(msg.Conn)
	if !ok {
		return
	}
	o.sendState(room, p)
}

func (o *Orchestrator) roomInfo(msg RoomInfo) {
	var s RoomSummary
	if room, ok := o.store.Room(domain.ParseRoomCode(string(msg.Code))); ok {
		s = RoomSummary{
			Code:     room.Code,
			Phase:    room.Phase(),
			Players:  room.PlayerCount(),
			Joinable: room.Phase().Joinable(),
			Found:    true,
		}
	}
	select {
	case msg.Reply <- s:
	default:
		log.Warn().Str("module", "orch").Msg("room info reply dropped")
	}
}
