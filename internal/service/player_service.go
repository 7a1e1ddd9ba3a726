package service

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/weilan/team-roster/internal/model"
	"github.com/weilan/team-roster/internal/repository"
	"github.com/weilan/team-roster/pkg/logger"
	"go.uber.org/zap"
)

type PlayerService struct {
	players repository.PlayerRepository
}

func NewPlayerService() *PlayerService {
	return &PlayerService{}
}

func (p *PlayerService) AddPlayer(ctx context.Context, gameID, class string) (*model.Player, *Error) {
	l := logger.FromContext(ctx)
	l.Info("adding player", zap.String("game_id", gameID), zap.String("class", class))

	if !model.IsValidClass(class) {
		return nil, NewError(ErrorCodeValidation, fmt.Sprintf("unknown class %q", class))
	}

	repoPlayer := &repository.Player{
		GameID:     gameID,
		Class:      class,
		IsSelected: false,
	}

	err := p.players.Create(ctx, repoPlayer)
	if errors.Is(err, repository.ErrAlreadyExists) {
		l.Warn("player already exists", zap.String("game_id", gameID))
		return nil, NewError(ErrorCodeConflict, "game_id already registered")
	}
	if err != nil {
		l.Error("failed to create player", zap.String("game_id", gameID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to create player")
	}

	return &model.Player{
		GameID:     repoPlayer.GameID,
		DisplayID:  repoPlayer.DisplayID,
		Class:      repoPlayer.Class,
		IsSelected: repoPlayer.IsSelected,
	}, nil
}

func (p *PlayerService) ListPlayers(ctx context.Context) ([]*model.Player, *Error) {
	repoPlayers, err := p.players.List(ctx)
	if err != nil {
		logger.FromContext(ctx).Error("failed to list players", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to list players")
	}

	players := make([]*model.Player, 0, len(repoPlayers))
	for _, rp := range repoPlayers {
		players = append(players, &model.Player{
			GameID:     rp.GameID,
			DisplayID:  rp.DisplayID,
			Class:      rp.Class,
			IsSelected: rp.IsSelected,
		})
	}

	return players, nil
}

// ResetSelections clears every player's selection flag. Admin
// maintenance action; team rows are untouched, so a reconciler sweep
// afterwards will re-mark players that still belong to teams.
func (p *PlayerService) ResetSelections(ctx context.Context) *Error {
	l := logger.FromContext(ctx)
	l.Info("resetting all selection flags")

	if err := p.players.ResetSelections(ctx); err != nil {
		l.Error("failed to reset selections", zap.Error(err))
		return NewError(ErrorCodeUnspecified, "failed to reset selections")
	}
	return nil
}

func (p *PlayerService) WithPlayerRepo(r repository.PlayerRepository) *PlayerService {
	p.players = r
	return p
}
