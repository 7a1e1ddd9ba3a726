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

// createIDRetries bounds re-allocation attempts when two concurrent
// creates computed the same max+1 and the primary key rejected one.
const createIDRetries = 3

type TeamService struct {
	players repository.PlayerRepository
	teams   repository.TeamRepository
}

func NewTeamService() *TeamService {
	return &TeamService{}
}

// CreateTeam registers a team of captain plus members and marks every
// participant selected. The selection flips are separate best-effort
// writes: a failure part-way leaves drift for the reconciler.
func (t *TeamService) CreateTeam(ctx context.Context, captain string, members []string) (*model.Team, *Error) {
	l := logger.FromContext(ctx)
	l.Info("creating team", zap.String("captain", captain), zap.Strings("members", members))

	members = excludeMember(members, captain)

	if len(members)+1 > model.MaxTeamSize {
		return nil, NewError(ErrorCodeValidation, fmt.Sprintf("team size cannot exceed %d", model.MaxTeamSize))
	}
	if len(members)+1 < model.MinTeamSize {
		return nil, NewError(ErrorCodeValidation, fmt.Sprintf("team size cannot be below %d", model.MinTeamSize))
	}

	var repoTeam *repository.Team
	for attempt := 0; attempt < createIDRetries; attempt++ {
		// Recompute max+1 from a fresh read on every attempt; a cached
		// value is already stale by the time the insert runs.
		maxID, err := t.teams.MaxID(ctx)
		if err != nil {
			l.Error("failed to read max team id", zap.Error(err))
			return nil, NewError(ErrorCodeUnspecified, "failed to allocate team id")
		}

		candidate := &repository.Team{
			ID:      maxID + 1,
			Captain: captain,
			Members: members,
		}

		err = t.teams.Create(ctx, candidate)
		if errors.Is(err, repository.ErrAlreadyExists) {
			l.Warn("team id allocation raced, retrying", zap.Int("team_id", candidate.ID))
			continue
		}
		if err != nil {
			l.Error("failed to create team", zap.Error(err))
			return nil, NewError(ErrorCodeUnspecified, "failed to create team")
		}

		repoTeam = candidate
		break
	}
	if repoTeam == nil {
		return nil, NewError(ErrorCodeConflict, "team id allocation kept racing, giving up")
	}

	for _, gameID := range append([]string{captain}, members...) {
		if err := t.setSelected(ctx, gameID, true); err != nil {
			l.Error("failed to mark participant selected",
				zap.Int("team_id", repoTeam.ID),
				zap.String("game_id", gameID),
				zap.Error(err))
			return nil, NewError(ErrorCodeUnspecified, "failed to update participant selection")
		}
	}

	l.Debug("team created", zap.Int("team_id", repoTeam.ID))

	return toModelTeam(repoTeam), nil
}

// Dissolve unselects every participant before deleting the team row, so
// a concurrent reader can observe "unselected but still a member" but
// never "selected with no team".
func (t *TeamService) Dissolve(ctx context.Context, teamID int, participants []string) *Error {
	l := logger.FromContext(ctx)
	l.Info("dissolving team", zap.Int("team_id", teamID), zap.Strings("participants", participants))

	for _, gameID := range participants {
		if err := t.setSelected(ctx, gameID, false); err != nil {
			l.Error("failed to unselect participant",
				zap.Int("team_id", teamID),
				zap.String("game_id", gameID),
				zap.Error(err))
			return NewError(ErrorCodeUnspecified, "failed to update participant selection")
		}
	}

	err := t.teams.Delete(ctx, teamID)
	if errors.Is(err, repository.ErrNotFound) {
		return NewError(ErrorCodeNotFound, "team not found")
	}
	if err != nil {
		l.Error("failed to delete team", zap.Int("team_id", teamID), zap.Error(err))
		return NewError(ErrorCodeUnspecified, "failed to delete team")
	}

	return nil
}

// SetCaptain is the handover primitive: the new captain leaves the
// member list and the old captain joins its tail.
func (t *TeamService) SetCaptain(ctx context.Context, teamID int, newCaptain string) (*model.Team, *Error) {
	l := logger.FromContext(ctx)
	l.Info("changing captain", zap.Int("team_id", teamID), zap.String("new_captain", newCaptain))

	repoTeam, err := t.teams.Get(ctx, teamID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(ErrorCodeNotFound, "team not found")
	}
	if err != nil {
		return nil, NewError(ErrorCodeUnspecified, "failed to get team")
	}

	if newCaptain == repoTeam.Captain {
		return toModelTeam(repoTeam), nil
	}
	if !containsMember(repoTeam.Members, newCaptain) {
		return nil, NewError(ErrorCodeValidation, "new captain must already be a team member")
	}

	captain, members := handover(repoTeam, newCaptain)

	updated, err := t.teams.Patch(ctx, &repository.TeamPatch{
		ID:      teamID,
		Captain: &captain,
		Members: &members,
	})
	if err != nil {
		l.Error("failed to update captain", zap.Int("team_id", teamID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to update captain")
	}

	return toModelTeam(updated), nil
}

func (t *TeamService) SetMembers(ctx context.Context, teamID int, members []string) (*model.Team, *Error) {
	if hasDuplicates(members) {
		return nil, NewError(ErrorCodeValidation, "member list contains duplicates")
	}

	updated, err := t.teams.Patch(ctx, &repository.TeamPatch{
		ID:      teamID,
		Members: &members,
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(ErrorCodeNotFound, "team not found")
	}
	if err != nil {
		logger.FromContext(ctx).Error("failed to update members", zap.Int("team_id", teamID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to update members")
	}

	return toModelTeam(updated), nil
}

func (t *TeamService) RemoveMember(ctx context.Context, teamID int, member string) (*model.Team, *Error) {
	l := logger.FromContext(ctx)
	l.Info("removing member", zap.Int("team_id", teamID), zap.String("game_id", member))

	repoTeam, err := t.teams.Get(ctx, teamID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(ErrorCodeNotFound, "team not found")
	}
	if err != nil {
		return nil, NewError(ErrorCodeUnspecified, "failed to get team")
	}

	if !containsMember(repoTeam.Members, member) {
		return nil, NewError(ErrorCodeValidation, "player is not in this team")
	}

	team, serviceErr := t.SetMembers(ctx, teamID, excludeMember(repoTeam.Members, member))
	if serviceErr != nil {
		return nil, serviceErr
	}

	if err = t.setSelected(ctx, member, false); err != nil {
		l.Error("failed to unselect removed member", zap.String("game_id", member), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to update member selection")
	}

	return team, nil
}

func (t *TeamService) GetTeam(ctx context.Context, teamID int) (*model.Team, *Error) {
	repoTeam, err := t.teams.Get(ctx, teamID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(ErrorCodeNotFound, "team not found")
	}
	if err != nil {
		return nil, NewError(ErrorCodeUnspecified, "failed to get team")
	}
	return toModelTeam(repoTeam), nil
}

func (t *TeamService) ListTeams(ctx context.Context) ([]*model.Team, *Error) {
	repoTeams, err := t.teams.List(ctx)
	if err != nil {
		logger.FromContext(ctx).Error("failed to list teams", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to list teams")
	}

	teams := make([]*model.Team, 0, len(repoTeams))
	for _, rt := range repoTeams {
		teams = append(teams, toModelTeam(rt))
	}
	return teams, nil
}

// ListIncomplete returns teams still below the maximum size.
func (t *TeamService) ListIncomplete(ctx context.Context) ([]*model.Team, *Error) {
	teams, serviceErr := t.ListTeams(ctx)
	if serviceErr != nil {
		return nil, serviceErr
	}

	incomplete := make([]*model.Team, 0, len(teams))
	for _, team := range teams {
		if team.Size() < model.MaxTeamSize {
			incomplete = append(incomplete, team)
		}
	}
	return incomplete, nil
}

func (t *TeamService) setSelected(ctx context.Context, gameID string, selected bool) error {
	_, err := t.players.Patch(ctx, &repository.PlayerPatch{
		GameID:     gameID,
		IsSelected: &selected,
	})
	return err
}

func (t *TeamService) WithPlayerRepo(r repository.PlayerRepository) *TeamService {
	t.players = r
	return t
}

func (t *TeamService) WithTeamRepo(r repository.TeamRepository) *TeamService {
	t.teams = r
	return t
}

// handover computes the captain swap shared by every workflow that
// reassigns captaincy: newCaptain leaves the member list, the demoted
// captain is appended to it.
func handover(team *repository.Team, newCaptain string) (string, []string) {
	members := excludeMember(team.Members, newCaptain)
	members = append(members, team.Captain)
	return newCaptain, members
}

func excludeMember(members []string, gameID string) []string {
	out := make([]string, 0, len(members))
	for _, m := range members {
		if m != gameID {
			out = append(out, m)
		}
	}
	return out
}

func containsMember(members []string, gameID string) bool {
	for _, m := range members {
		if m == gameID {
			return true
		}
	}
	return false
}

func hasDuplicates(members []string) bool {
	seen := make(map[string]struct{}, len(members))
	for _, m := range members {
		if _, ok := seen[m]; ok {
			return true
		}
		seen[m] = struct{}{}
	}
	return false
}

func toModelTeam(t *repository.Team) *model.Team {
	return &model.Team{
		ID:        t.ID,
		Captain:   t.Captain,
		Members:   t.Members,
		CreatedAt: t.CreatedAt,
	}
}
