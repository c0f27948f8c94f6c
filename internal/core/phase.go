package core

import "github.com/dkeye/imposter/internal/domain"

type phaseState interface {
	phase() domain.Phase
}

type lobbyState struct{}

type roleRevealState struct {
	round *Round
}

type descriptionState struct {
	round   *Round
	order   []domain.PlayerID
	names   map[domain.PlayerID]string
	cursor  int
	entries map[domain.PlayerID]Description
}

type votingState struct {
	round     *Round
	order     []domain.PlayerID
	entries   map[domain.PlayerID]Description
	pending   map[domain.PlayerID]domain.PlayerID
	confirmed map[domain.PlayerID]domain.PlayerID
	chat      []ChatMessage
	tied      bool
}

type resultsState struct {
	round   *Round
	order   []domain.PlayerID
	entries map[domain.PlayerID]Description
	outcome *Outcome
}

type postGameState struct {
	round   *Round
	outcome *Outcome
}

func (lobbyState) phase() domain.Phase        { return domain.PhaseLobby }
func (roleRevealState) phase() domain.Phase   { return domain.PhaseRoleReveal }
func (*descriptionState) phase() domain.Phase { return domain.PhaseDescription }
func (*votingState) phase() domain.Phase      { return domain.PhaseVoting }
func (*resultsState) phase() domain.Phase     { return domain.PhaseResults }
func (postGameState) phase() domain.Phase     { return domain.PhasePostGame }
