package service

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/pkg/errors"
	"github.com/weilan/team-roster/internal/model"
	"github.com/weilan/team-roster/internal/repository"
	"github.com/weilan/team-roster/pkg/logger"
	"go.uber.org/zap"
)

// CaptainPicker chooses a temporary captain from the candidates. Never
// called with an empty slice.
type CaptainPicker func(candidates []string) string

func randomCaptainPicker(candidates []string) string {
	return candidates[rand.Intn(len(candidates))]
}

type IdentityService struct {
	players  repository.PlayerRepository
	teams    repository.TeamRepository
	requests repository.IdentityRequestRepository

	pickCaptain CaptainPicker
}

func NewIdentityService() *IdentityService {
	return &IdentityService{
		pickCaptain: randomCaptainPicker,
	}
}

// Submit records a rename request. Duplicate pending requests for the
// same player are allowed; the admin review queue is the dedup point.
func (s *IdentityService) Submit(ctx context.Context, gameID, newGameID, newClass string) (*model.IdentityChangeRequest, *Error) {
	l := logger.FromContext(ctx)
	l.Info("submitting identity change",
		zap.String("game_id", gameID),
		zap.String("new_game_id", newGameID),
		zap.String("new_class", newClass))

	if newGameID == "" {
		newGameID = gameID
	}
	if newClass != "" && !model.IsValidClass(newClass) {
		return nil, NewError(ErrorCodeValidation, fmt.Sprintf("unknown class %q", newClass))
	}

	repoReq := &repository.IdentityRequest{
		GameID:    gameID,
		NewGameID: newGameID,
		NewClass:  newClass,
		Status:    model.RequestStatusPending,
	}

	if err := s.requests.Create(ctx, repoReq); err != nil {
		l.Error("failed to create identity request", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to create request")
	}

	return toModelIdentityRequest(repoReq), nil
}

type captainSwap struct {
	teamID     int
	oldCaptain string
}

// Approve applies a rename across the player row and every team that
// references the old id. Captained teams get a temporary captain first
// so the captain column never points at a missing id mid-flight; if any
// later write fails, the recorded swaps are replayed to restore the
// original captains before the error is surfaced.
func (s *IdentityService) Approve(ctx context.Context, requestID int64) (*model.IdentityChangeRequest, *Error) {
	l := logger.FromContext(ctx)

	repoReq, err := s.requests.Get(ctx, requestID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(ErrorCodeNotFound, "request not found")
	}
	if err != nil {
		return nil, NewError(ErrorCodeUnspecified, "failed to get request")
	}

	oldID := repoReq.GameID
	newID := repoReq.NewGameID
	if newID == "" {
		newID = oldID
	}

	l.Info("approving identity change",
		zap.Int64("request_id", requestID),
		zap.String("game_id", oldID),
		zap.String("new_game_id", newID))

	// 1. Discovery: every team where oldID is captain or member.
	related, err := s.teams.FindByPlayer(ctx, oldID)
	if err != nil {
		l.Error("failed to discover related teams", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to load related teams")
	}

	// 2. Captaincy preservation: park each captained team on a
	// temporary captain. Swaps are recorded before the write so a
	// half-applied step still rolls back.
	swaps := make([]captainSwap, 0, len(related))
	for _, team := range related {
		if team.Captain != oldID {
			continue
		}

		candidates := excludeMember(team.Members, oldID)
		if len(candidates) == 0 {
			s.rollbackCaptains(ctx, swaps)
			return nil, NewError(ErrorCodeValidation,
				fmt.Sprintf("team %d has no other member to hold captaincy", team.ID))
		}

		temp := s.pickCaptain(candidates)
		swaps = append(swaps, captainSwap{teamID: team.ID, oldCaptain: oldID})

		if _, err = s.teams.Patch(ctx, &repository.TeamPatch{ID: team.ID, Captain: &temp}); err != nil {
			l.Error("failed to set temporary captain", zap.Int("team_id", team.ID), zap.Error(err))
			s.rollbackCaptains(ctx, swaps)
			return nil, NewError(ErrorCodeUnspecified, "failed to set temporary captain")
		}
	}

	// 3. Identity mutation, one write.
	patch := &repository.PlayerPatch{GameID: oldID}
	if newID != oldID {
		patch.NewGameID = &newID
	}
	if repoReq.NewClass != "" {
		patch.Class = &repoReq.NewClass
	}
	if patch.NewGameID != nil || patch.Class != nil {
		if _, err = s.players.Patch(ctx, patch); err != nil {
			l.Error("failed to update player identity", zap.String("game_id", oldID), zap.Error(err))
			s.rollbackCaptains(ctx, swaps)
			if errors.Is(err, repository.ErrNotFound) {
				return nil, NewError(ErrorCodeNotFound, "player not found")
			}
			return nil, NewError(ErrorCodeUnspecified, "failed to update player")
		}
	}

	// 4. Propagation to every discovered team.
	for _, team := range related {
		teamPatch := &repository.TeamPatch{ID: team.ID}
		if team.Captain == oldID {
			teamPatch.Captain = &newID
		}
		if containsMember(team.Members, oldID) {
			members := replaceMember(team.Members, oldID, newID)
			teamPatch.Members = &members
		}
		if teamPatch.Captain == nil && teamPatch.Members == nil {
			continue
		}

		if _, err = s.teams.Patch(ctx, teamPatch); err != nil {
			l.Error("failed to propagate identity change", zap.Int("team_id", team.ID), zap.Error(err))
			s.rollbackCaptains(ctx, swaps)
			return nil, NewError(ErrorCodeUnspecified, "failed to update team")
		}
	}

	// 5. Finalize.
	if err = s.requests.SetStatus(ctx, requestID, model.RequestStatusApproved); err != nil {
		l.Error("failed to finalize request", zap.Int64("request_id", requestID), zap.Error(err))
		s.rollbackCaptains(ctx, swaps)
		return nil, NewError(ErrorCodeUnspecified, "failed to finalize request")
	}

	repoReq.Status = model.RequestStatusApproved
	return toModelIdentityRequest(repoReq), nil
}

func (s *IdentityService) Reject(ctx context.Context, requestID int64) *Error {
	err := s.requests.SetStatus(ctx, requestID, model.RequestStatusRejected)
	if errors.Is(err, repository.ErrNotFound) {
		return NewError(ErrorCodeNotFound, "request not found")
	}
	if err != nil {
		logger.FromContext(ctx).Error("failed to reject request", zap.Int64("request_id", requestID), zap.Error(err))
		return NewError(ErrorCodeUnspecified, "failed to reject request")
	}
	return nil
}

func (s *IdentityService) List(ctx context.Context, status model.RequestStatus) ([]*model.IdentityChangeRequest, *Error) {
	repoReqs, err := s.requests.List(ctx, status)
	if err != nil {
		logger.FromContext(ctx).Error("failed to list identity requests", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to list requests")
	}

	reqs := make([]*model.IdentityChangeRequest, 0, len(repoReqs))
	for _, rr := range repoReqs {
		reqs = append(reqs, toModelIdentityRequest(rr))
	}
	return reqs, nil
}

// rollbackCaptains replays recorded swaps to restore original captains.
// Best effort: a failing compensation is logged and skipped.
func (s *IdentityService) rollbackCaptains(ctx context.Context, swaps []captainSwap) {
	l := logger.FromContext(ctx)
	for _, swap := range swaps {
		oldCaptain := swap.oldCaptain
		if _, err := s.teams.Patch(ctx, &repository.TeamPatch{ID: swap.teamID, Captain: &oldCaptain}); err != nil {
			l.Error("rollback failed to restore captain",
				zap.Int("team_id", swap.teamID),
				zap.String("captain", swap.oldCaptain),
				zap.Error(err))
		}
	}
}

func (s *IdentityService) WithPlayerRepo(r repository.PlayerRepository) *IdentityService {
	s.players = r
	return s
}

func (s *IdentityService) WithTeamRepo(r repository.TeamRepository) *IdentityService {
	s.teams = r
	return s
}

func (s *IdentityService) WithRequestRepo(r repository.IdentityRequestRepository) *IdentityService {
	s.requests = r
	return s
}

// WithCaptainPicker overrides the random temporary-captain choice.
func (s *IdentityService) WithCaptainPicker(pick CaptainPicker) *IdentityService {
	s.pickCaptain = pick
	return s
}

func replaceMember(members []string, oldID, newID string) []string {
	out := make([]string, 0, len(members))
	for _, m := range members {
		if m == oldID {
			out = append(out, newID)
			continue
		}
		out = append(out, m)
	}
	return out
}

func toModelIdentityRequest(r *repository.IdentityRequest) *model.IdentityChangeRequest {
	return &model.IdentityChangeRequest{
		ID:        r.ID,
		GameID:    r.GameID,
		NewGameID: r.NewGameID,
		NewClass:  r.NewClass,
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
	}
}
