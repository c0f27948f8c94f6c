package orch

import (
	"github.com/dkeye/imposter/internal/core"
	"github.com/dkeye/imposter/internal/domain"
	"github.com/rs/zerolog/log"
)

func (o *Orchestrator) startGame(msg StartGame) {
	room, p, ok := o.member(msg.Conn)
	if !ok {
		return
	}
	roles, err := o.machine.StartGame(room, p.ID)
	if err != nil {
		o.sendError(msg.Conn, err)
		return
	}
	o.clock.Clear(room.Code)
	log.Info().Str("module", "orch").Str("room", string(room.Code)).Int("round", room.RoundNumber).Msg("round started")

	o.broadcast(room, phaseChangedMsg{Type: TypePhaseChanged, Phase: room.Phase(), Round: room.RoundNumber})
	o.sendRoles(room, roles)
	o.startTimer(room, TagRoleReveal, o.cfg.RoleRevealSeconds, o.enterDescription)
}

// sendRoles unicasts each payload to its owner only.
func (o *Orchestrator) sendRoles(room *core.Room, roles []core.RoleAssignment) {
	round, _ := room.Round()
	for _, r := range roles {
		p, ok := room.Player(r.PlayerID)
		if !ok {
			continue
		}
		o.out.Send(p.Conn, roleAssignedMsg{
			Type:      TypeRoleAssigned,
			Round:     round.Number,
			TieBreaks: round.TieBreaks,
			Role:      r.Role,
		})
	}
}

func (o *Orchestrator) advance(msg Advance) {
	room, p, ok := o.member(msg.Conn)
	if !ok {
		return
	}
	if !room.IsHost(p.ID) {
		o.sendError(msg.Conn, domain.ErrNotHost)
		return
	}
	switch room.Phase() {
	case domain.PhaseRoleReveal:
		o.enterDescription(room)
	case domain.PhaseResults:
		o.enterPostGame(room)
	default:
		o.sendError(msg.Conn, domain.ErrInvalidPhase)
	}
}

func (o *Orchestrator) enterDescription(room *core.Room) {
	if err := o.machine.TransitionToDescriptionPhase(room); err != nil {
		log.Debug().Err(err).Str("module", "orch").Str("room", string(room.Code)).Msg("description transition skipped")
		return
	}
	o.clock.Clear(room.Code)
	o.broadcastDescriptionStart(room)
}

func (o *Orchestrator) broadcastDescriptionStart(room *core.Room) {
	o.broadcast(room, phaseChangedMsg{
		Type:          TypePhaseChanged,
		Phase:         room.Phase(),
		Round:         room.RoundNumber,
		SpeakingOrder: room.SpeakingOrder(),
	})
	o.startTurn(room)
}

// startTurn announces the current speaker and arms the per-turn countdown.
func (o *Orchestrator) startTurn(room *core.Room) {
	speaker, ok := room.CurrentSpeaker()
	if !ok {
		return
	}
	o.broadcast(room, turnChangedMsg{
		Type:      TypeTurnChanged,
		SpeakerID: speaker.ID,
		Name:      speaker.Name,
		TurnIndex: room.TurnIndex(),
	})
	id := speaker.ID
	o.startTimer(room, TagTurn, room.Settings.DescriptionSeconds, func(r *core.Room) {
		if cur, ok := r.CurrentSpeaker(); !ok || cur.ID != id {
			return
		}
		res, err := o.machine.ExpireTurn(r)
		if err != nil {
			log.Debug().Err(err).Str("module", "orch").Str("room", string(r.Code)).Msg("turn expiry skipped")
			return
		}
		o.afterTurn(r, res)
	})
}

func (o *Orchestrator) submitDescription(msg SubmitDescription) {
	room, p, ok := o.member(msg.Conn)
	if !ok {
		return
	}
	res, err := o.machine.SubmitDescription(room, p.ID, msg.Text)
	if err != nil {
		o.sendError(msg.Conn, err)
		return
	}
	o.afterTurn(room, res)
}

func (o *Orchestrator) afterTurn(room *core.Room, res *core.TurnResult) {
	o.clock.Clear(room.Code)
	o.broadcast(room, descriptionSubmittedMsg{Type: TypeDescriptionSubmitted, Description: res.Entry})
	for _, d := range res.Filled {
		o.broadcast(room, descriptionSubmittedMsg{Type: TypeDescriptionSubmitted, Description: d})
	}
	if res.Complete {
		o.enterVoting(room)
		return
	}
	o.startTurn(room)
}

func (o *Orchestrator) enterVoting(room *core.Room) {
	if err := o.machine.TransitionToVotingPhase(room); err != nil {
		log.Debug().Err(err).Str("module", "orch").Str("room", string(room.Code)).Msg("voting transition skipped")
		return
	}
	o.clock.Clear(room.Code)
	o.broadcast(room, phaseChangedMsg{Type: TypePhaseChanged, Phase: room.Phase(), Round: room.RoundNumber})
	o.broadcastVoteProgress(room)
	o.startTimer(room, TagVoting, room.Settings.VotingSeconds, func(r *core.Room) {
		n, err := o.machine.AutoConfirmPending(r)
		if err != nil {
			log.Debug().Err(err).Str("module", "orch").Str("room", string(r.Code)).Msg("voting expiry skipped")
			return
		}
		log.Info().Str("module", "orch").Str("room", string(r.Code)).Int("auto_confirmed", n).Msg("voting timed out")
		o.resolveVotes(r)
	})
}

// broadcastVoteProgress sends counts only; targets never leave the voter.
func (o *Orchestrator) broadcastVoteProgress(room *core.Room) {
	o.broadcast(room, voteProgressMsg{Type: TypeVoteProgress, VoteProgress: room.VoteProgress()})
}

func (o *Orchestrator) selectVote(msg SelectVote) {
	room, p, ok := o.member(msg.Conn)
	if !ok {
		return
	}
	if err := o.machine.SelectVote(room, p.ID, msg.Target); err != nil {
		o.sendError(msg.Conn, err)
		return
	}
	o.out.Send(msg.Conn, voteSelectedMsg{Type: TypeVoteSelected, Target: msg.Target})
}

func (o *Orchestrator) confirmVote(msg ConfirmVote) {
	room, p, ok := o.member(msg.Conn)
	if !ok {
		return
	}
	if err := o.machine.ConfirmVote(room, p.ID); err != nil {
		o.sendError(msg.Conn, err)
		return
	}
	target, _ := room.PendingVote(p.ID)
	o.afterVote(room, msg.Conn, target)
}

func (o *Orchestrator) submitVote(msg SubmitVote) {
	room, p, ok := o.member(msg.Conn)
	if !ok {
		return
	}
	if err := o.machine.SubmitVote(room, p.ID, msg.Target); err != nil {
		o.sendError(msg.Conn, err)
		return
	}
	o.afterVote(room, msg.Conn, msg.Target)
}

func (o *Orchestrator) afterVote(room *core.Room, conn domain.ConnID, target domain.PlayerID) {
	o.out.Send(conn, voteSelectedMsg{Type: TypeVoteSelected, Target: target, Confirmed: true})
	o.broadcastVoteProgress(room)
	if room.VotingComplete() {
		o.resolveVotes(room)
	}
}

// resolveVotes ends voting. A tie replays the round right away with the
// same imposter; otherwise results are disclosed.
func (o *Orchestrator) resolveVotes(room *core.Room) {
	res, err := o.machine.CalculateVoteResults(room)
	if err != nil {
		log.Debug().Err(err).Str("module", "orch").Str("room", string(room.Code)).Msg("resolution skipped")
		return
	}
	o.clock.Clear(room.Code)

	if res.Tie {
		names := make([]string, 0, len(res.Tied))
		for _, id := range res.Tied {
			if p, ok := room.Player(id); ok {
				names = append(names, p.Name)
			}
		}
		o.broadcast(room, voteTieMsg{Type: TypeVoteTie, Names: names})
		if err := o.machine.RestartRoundWithSameImposter(room); err != nil {
			log.Error().Err(err).Str("module", "orch").Str("room", string(room.Code)).Msg("tie replay")
			return
		}
		round, _ := room.Round()
		log.Info().Str("module", "orch").Str("room", string(room.Code)).Int("tie_breaks", round.TieBreaks).Msg("tie, replaying round")
		roles := make([]core.RoleAssignment, 0, room.PlayerCount())
		for _, p := range room.Players() {
			roles = append(roles, core.RoleAssignment{PlayerID: p.ID, Role: round.RoleFor(p.ID)})
		}
		o.sendRoles(room, roles)
		o.broadcastDescriptionStart(room)
		return
	}

	log.Info().Str("module", "orch").Str("room", string(room.Code)).Bool("caught", res.Outcome.ImposterCaught).Msg("round resolved")
	o.broadcast(room, phaseChangedMsg{Type: TypePhaseChanged, Phase: room.Phase(), Round: room.RoundNumber})
	o.broadcast(room, resultsMsg{Type: TypeResults, Result: res.Outcome})
	o.startTimer(room, TagResults, o.cfg.ResultsSeconds, o.enterPostGame)
}

func (o *Orchestrator) enterPostGame(room *core.Room) {
	if err := o.machine.TransitionToPostGame(room); err != nil {
		log.Debug().Err(err).Str("module", "orch").Str("room", string(room.Code)).Msg("post-game transition skipped")
		return
	}
	o.clock.Clear(room.Code)
	o.broadcast(room, phaseChangedMsg{Type: TypePhaseChanged, Phase: room.Phase(), Round: room.RoundNumber})
}

func (o *Orchestrator) chat(msg Chat) {
	room, p, ok := o.member(msg.Conn)
	if !ok {
		return
	}
	m, err := o.machine.PostChat(room, p.ID, msg.Text)
	if err != nil {
		o.sendError(msg.Conn, err)
		return
	}
	o.broadcast(room, chatMessageMsg{Type: TypeChatMessage, Message: *m})
}

func (o *Orchestrator) playAgain(msg PlayAgain) {
	room, p, ok := o.member(msg.Conn)
	if !ok {
		return
	}
	if err := o.machine.ResetRoomForNewGame(room, p.ID); err != nil {
		o.sendError(msg.Conn, err)
		return
	}
	o.clock.Clear(room.Code)
	o.broadcast(room, phaseChangedMsg{Type: TypePhaseChanged, Phase: room.Phase(), Round: room.RoundNumber})
	o.broadcastState(room)
}

// abort discards a running round without disclosing it.
func (o *Orchestrator) abort(room *core.Room, reason string) {
	if err := o.machine.AbortRound(room); err != nil {
		return
	}
	o.clock.Clear(room.Code)
	log.Info().Str("module", "orch").Str("room", string(room.Code)).Str("reason", reason).Msg("round aborted")
	o.broadcast(room, roundAbortedMsg{Type: TypeRoundAborted, Reason: reason})
	o.broadcastState(room)
}
