package service

import (
	"context"
	"sort"

	"github.com/weilan/team-roster/internal/repository"
	"github.com/weilan/team-roster/pkg/logger"
	"go.uber.org/zap"
)

// SweepReport lists the players whose selection flag disagreed with
// actual team membership. FalsePositives were selected without a team;
// FalseNegatives were in a team but unselected. Both are corrected.
type SweepReport struct {
	FalsePositives []string `json:"false_positives"`
	FalseNegatives []string `json:"false_negatives"`
}

// ReconcilerService repairs drift between players.is_selected and real
// membership. Membership mutations are non-transactional by design, so
// this sweep is the only mechanism that restores the invariant.
type ReconcilerService struct {
	players repository.PlayerRepository
	teams   repository.TeamRepository
}

func NewReconcilerService() *ReconcilerService {
	return &ReconcilerService{}
}

// Sweep compares a full snapshot of both tables and applies at most two
// batched corrective writes, one per drift category. Idempotent: a
// clean state produces zero writes and an empty report.
func (r *ReconcilerService) Sweep(ctx context.Context) (*SweepReport, *Error) {
	l := logger.FromContext(ctx)
	l.Info("running selection consistency sweep")

	players, err := r.players.List(ctx)
	if err != nil {
		l.Error("failed to load players", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to load players")
	}

	teams, err := r.teams.List(ctx)
	if err != nil {
		l.Error("failed to load teams", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to load teams")
	}

	inTeam := make(map[string]struct{})
	for _, team := range teams {
		inTeam[team.Captain] = struct{}{}
		for _, member := range team.Members {
			inTeam[member] = struct{}{}
		}
	}

	report := &SweepReport{
		FalsePositives: []string{},
		FalseNegatives: []string{},
	}
	for _, player := range players {
		_, selected := inTeam[player.GameID]
		switch {
		case player.IsSelected && !selected:
			report.FalsePositives = append(report.FalsePositives, player.GameID)
		case !player.IsSelected && selected:
			report.FalseNegatives = append(report.FalseNegatives, player.GameID)
		}
	}
	sort.Strings(report.FalsePositives)
	sort.Strings(report.FalseNegatives)

	if len(report.FalsePositives) > 0 {
		if err = r.players.SetSelectedIn(ctx, report.FalsePositives, false); err != nil {
			l.Error("failed to clear stale selections", zap.Error(err))
			return nil, NewError(ErrorCodeUnspecified, "failed to apply corrections")
		}
	}
	if len(report.FalseNegatives) > 0 {
		if err = r.players.SetSelectedIn(ctx, report.FalseNegatives, true); err != nil {
			l.Error("failed to restore missing selections", zap.Error(err))
			return nil, NewError(ErrorCodeUnspecified, "failed to apply corrections")
		}
	}

	if len(report.FalsePositives)+len(report.FalseNegatives) > 0 {
		l.Info("sweep repaired drift",
			zap.Strings("false_positives", report.FalsePositives),
			zap.Strings("false_negatives", report.FalseNegatives))
	}

	return report, nil
}

func (r *ReconcilerService) WithPlayerRepo(repo repository.PlayerRepository) *ReconcilerService {
	r.players = repo
	return r
}

func (r *ReconcilerService) WithTeamRepo(repo repository.TeamRepository) *ReconcilerService {
	r.teams = repo
	return r
}
