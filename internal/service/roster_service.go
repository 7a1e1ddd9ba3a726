package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/weilan/team-roster/internal/model"
	"github.com/weilan/team-roster/internal/repository"
	"github.com/weilan/team-roster/pkg/logger"
	"go.uber.org/zap"
)

// RosterService mediates team-change requests: captain handover, member
// addition and member removal, each submitted by a team member and
// applied after admin approval.
type RosterService struct {
	players  repository.PlayerRepository
	teams    repository.TeamRepository
	requests repository.TeamRequestRepository

	notifier Notifier
	now      func() time.Time
}

func NewRosterService() *RosterService {
	return &RosterService{
		notifier: NewLogNotifier(),
		now:      time.Now,
	}
}

// Submit validates a team-change request against the team's current
// shape and stores it. A remove_member request targeting the captain is
// rewritten here, once, into a change_captain request; approval never
// re-derives the transformation.
func (s *RosterService) Submit(ctx context.Context, req *model.TeamChangeRequest) (*model.TeamChangeRequest, *Error) {
	l := logger.FromContext(ctx)
	l.Info("submitting team change request",
		zap.Int("team_id", req.TeamID),
		zap.String("request_type", string(req.RequestType)),
		zap.String("requester_id", req.RequesterID))

	team, err := s.teams.Get(ctx, req.TeamID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(ErrorCodeNotFound, "team not found")
	}
	if err != nil {
		return nil, NewError(ErrorCodeUnspecified, "failed to get team")
	}

	isCaptain := req.RequesterID == team.Captain
	if !isCaptain && !containsMember(team.Members, req.RequesterID) {
		return nil, NewError(ErrorCodeForbidden, "only team members can submit requests")
	}

	repoReq := &repository.TeamRequest{
		TeamID:         req.TeamID,
		RequestType:    req.RequestType,
		RequesterID:    req.RequesterID,
		CurrentCaptain: team.Captain,
		Reason:         req.Reason,
		Status:         model.RequestStatusPending,
	}

	switch req.RequestType {
	case model.RequestTypeChangeCaptain:
		if !isCaptain {
			return nil, NewError(ErrorCodeForbidden, "only the captain can propose a captain change")
		}
		if !containsMember(team.Members, req.ProposedCaptain) {
			return nil, NewError(ErrorCodeValidation, "proposed captain must already be a team member")
		}
		repoReq.ProposedCaptain = req.ProposedCaptain

	case model.RequestTypeAddMember:
		player, err := s.players.Get(ctx, req.MemberToAdd)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewError(ErrorCodeNotFound, "player not found")
		}
		if err != nil {
			return nil, NewError(ErrorCodeUnspecified, "failed to get player")
		}
		if player.IsSelected {
			return nil, NewError(ErrorCodeValidation, "player already belongs to a team")
		}
		repoReq.MemberToAdd = req.MemberToAdd

	case model.RequestTypeRemoveMember:
		if req.MemberToRemove == team.Captain {
			if len(team.Members) == 0 {
				return nil, NewError(ErrorCodeValidation, "cannot remove the last member of a team")
			}
			// Captain removal only exists as a handover past this
			// point. The original type and target stay on the row.
			repoReq.RequestType = model.RequestTypeChangeCaptain
			repoReq.OriginalRequest = string(model.RequestTypeRemoveMember)
			repoReq.MemberToRemove = req.MemberToRemove
			if isCaptain {
				repoReq.ProposedCaptain = team.Members[0]
			} else {
				repoReq.ProposedCaptain = req.RequesterID
			}
		} else {
			if !containsMember(team.Members, req.MemberToRemove) {
				return nil, NewError(ErrorCodeValidation, "target player is not in this team")
			}
			repoReq.MemberToRemove = req.MemberToRemove
		}

	default:
		return nil, NewError(ErrorCodeValidation, fmt.Sprintf("invalid request type %q", req.RequestType))
	}

	if err = s.requests.Create(ctx, repoReq); err != nil {
		l.Error("failed to create team change request", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to create request")
	}

	s.notifier.Notify(ctx, req.TeamID,
		fmt.Sprintf("new team change request: %s", repoReq.RequestType),
		fmt.Sprintf("submitted by %s", req.RequesterID))

	return toModelTeamRequest(repoReq), nil
}

// Approve applies a stored request against the team's current state.
// The writes are independent round trips; a failure part-way leaves
// prior writes in place for the reconciler to repair.
func (s *RosterService) Approve(ctx context.Context, requestID int64) (*model.TeamChangeRequest, *Error) {
	l := logger.FromContext(ctx)

	repoReq, err := s.requests.Get(ctx, requestID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(ErrorCodeNotFound, "request not found")
	}
	if err != nil {
		return nil, NewError(ErrorCodeUnspecified, "failed to get request")
	}

	l.Info("approving team change request",
		zap.Int64("request_id", requestID),
		zap.Int("team_id", repoReq.TeamID),
		zap.String("request_type", string(repoReq.RequestType)))

	team, err := s.teams.Get(ctx, repoReq.TeamID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(ErrorCodeNotFound, "team not found")
	}
	if err != nil {
		return nil, NewError(ErrorCodeUnspecified, "failed to get team")
	}

	switch repoReq.RequestType {
	case model.RequestTypeRemoveMember:
		if serviceErr := s.approveRemoveMember(ctx, repoReq, team); serviceErr != nil {
			return nil, serviceErr
		}
	case model.RequestTypeChangeCaptain:
		if serviceErr := s.approveChangeCaptain(ctx, repoReq, team); serviceErr != nil {
			return nil, serviceErr
		}
	case model.RequestTypeAddMember:
		if serviceErr := s.approveAddMember(ctx, repoReq, team); serviceErr != nil {
			return nil, serviceErr
		}
	default:
		return nil, NewError(ErrorCodeValidation, fmt.Sprintf("invalid request type %q", repoReq.RequestType))
	}

	processedAt := s.now()
	if err = s.requests.SetStatus(ctx, requestID, model.RequestStatusApproved, processedAt); err != nil {
		l.Error("failed to finalize request", zap.Int64("request_id", requestID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to finalize request")
	}

	repoReq.Status = model.RequestStatusApproved
	repoReq.ProcessedAt = &processedAt
	return toModelTeamRequest(repoReq), nil
}

func (s *RosterService) approveRemoveMember(ctx context.Context, req *repository.TeamRequest, team *repository.Team) *Error {
	target := req.MemberToRemove

	if target == team.Captain {
		// Legacy rows submitted before the rewrite existed: promote the
		// first member and drop the old captain entirely.
		if len(team.Members) == 0 {
			return NewError(ErrorCodeValidation, "cannot remove the last member of a team")
		}
		captain, members := handover(team, team.Members[0])
		members = excludeMember(members, team.Captain)
		if _, err := s.teams.Patch(ctx, &repository.TeamPatch{ID: team.ID, Captain: &captain, Members: &members}); err != nil {
			return NewError(ErrorCodeUnspecified, "failed to update team")
		}
	} else {
		members := excludeMember(team.Members, target)
		if _, err := s.teams.Patch(ctx, &repository.TeamPatch{ID: team.ID, Members: &members}); err != nil {
			return NewError(ErrorCodeUnspecified, "failed to update team")
		}
	}

	if err := s.setSelected(ctx, target, false); err != nil {
		return NewError(ErrorCodeUnspecified, "failed to update member selection")
	}
	return nil
}

func (s *RosterService) approveChangeCaptain(ctx context.Context, req *repository.TeamRequest, team *repository.Team) *Error {
	captain, members := handover(team, req.ProposedCaptain)

	removingOldCaptain := req.OriginalRequest == string(model.RequestTypeRemoveMember)
	if removingOldCaptain {
		members = excludeMember(members, team.Captain)
	}

	if _, err := s.teams.Patch(ctx, &repository.TeamPatch{ID: team.ID, Captain: &captain, Members: &members}); err != nil {
		return NewError(ErrorCodeUnspecified, "failed to update team")
	}

	if removingOldCaptain {
		if err := s.setSelected(ctx, team.Captain, false); err != nil {
			return NewError(ErrorCodeUnspecified, "failed to update member selection")
		}
	}
	return nil
}

func (s *RosterService) approveAddMember(ctx context.Context, req *repository.TeamRequest, team *repository.Team) *Error {
	// Re-validate against current state; the player may have joined
	// another team since submission.
	player, err := s.players.Get(ctx, req.MemberToAdd)
	if errors.Is(err, repository.ErrNotFound) {
		return NewError(ErrorCodeNotFound, "player not found")
	}
	if err != nil {
		return NewError(ErrorCodeUnspecified, "failed to get player")
	}
	if player.IsSelected {
		return NewError(ErrorCodeValidation, "player already belongs to a team")
	}

	members := append(team.Members, req.MemberToAdd)
	if _, err = s.teams.Patch(ctx, &repository.TeamPatch{ID: team.ID, Members: &members}); err != nil {
		return NewError(ErrorCodeUnspecified, "failed to update team")
	}

	if err = s.setSelected(ctx, req.MemberToAdd, true); err != nil {
		return NewError(ErrorCodeUnspecified, "failed to update member selection")
	}
	return nil
}

// Reject flips the status and stamps processed_at; membership is never
// touched.
func (s *RosterService) Reject(ctx context.Context, requestID int64) *Error {
	err := s.requests.SetStatus(ctx, requestID, model.RequestStatusRejected, s.now())
	if errors.Is(err, repository.ErrNotFound) {
		return NewError(ErrorCodeNotFound, "request not found")
	}
	if err != nil {
		logger.FromContext(ctx).Error("failed to reject request", zap.Int64("request_id", requestID), zap.Error(err))
		return NewError(ErrorCodeUnspecified, "failed to reject request")
	}
	return nil
}

func (s *RosterService) List(ctx context.Context, status model.RequestStatus) ([]*model.TeamChangeRequest, *Error) {
	repoReqs, err := s.requests.List(ctx, status)
	if err != nil {
		logger.FromContext(ctx).Error("failed to list team change requests", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to list requests")
	}

	reqs := make([]*model.TeamChangeRequest, 0, len(repoReqs))
	for _, rr := range repoReqs {
		reqs = append(reqs, toModelTeamRequest(rr))
	}
	return reqs, nil
}

func (s *RosterService) setSelected(ctx context.Context, gameID string, selected bool) error {
	_, err := s.players.Patch(ctx, &repository.PlayerPatch{
		GameID:     gameID,
		IsSelected: &selected,
	})
	return err
}

func (s *RosterService) WithPlayerRepo(r repository.PlayerRepository) *RosterService {
	s.players = r
	return s
}

func (s *RosterService) WithTeamRepo(r repository.TeamRepository) *RosterService {
	s.teams = r
	return s
}

func (s *RosterService) WithRequestRepo(r repository.TeamRequestRepository) *RosterService {
	s.requests = r
	return s
}

func (s *RosterService) WithNotifier(n Notifier) *RosterService {
	s.notifier = n
	return s
}

func (s *RosterService) WithClock(now func() time.Time) *RosterService {
	s.now = now
	return s
}

func toModelTeamRequest(r *repository.TeamRequest) *model.TeamChangeRequest {
	return &model.TeamChangeRequest{
		ID:              r.ID,
		TeamID:          r.TeamID,
		RequestType:     r.RequestType,
		RequesterID:     r.RequesterID,
		CurrentCaptain:  r.CurrentCaptain,
		ProposedCaptain: r.ProposedCaptain,
		MemberToAdd:     r.MemberToAdd,
		MemberToRemove:  r.MemberToRemove,
		OriginalRequest: r.OriginalRequest,
		Reason:          r.Reason,
		Status:          r.Status,
		CreatedAt:       r.CreatedAt,
		ProcessedAt:     r.ProcessedAt,
	}
}
