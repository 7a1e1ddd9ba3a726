package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/weilan/team-roster/internal/model"
	"github.com/weilan/team-roster/internal/repository"
)

func firstCandidatePicker(candidates []string) string {
	return candidates[0]
}

func TestIdentityService_Submit(t *testing.T) {
	tests := []struct {
		name          string
		gameID        string
		newGameID     string
		newClass      string
		setupMocks    func(*MockIdentityRequestRepository)
		expectedError bool
		errorCode     ErrorCode
		expectedNewID string
	}{
		{
			name:      "rename with class change",
			gameID:    "old",
			newGameID: "new",
			newClass:  "emei",
			setupMocks: func(rr *MockIdentityRequestRepository) {
				rr.On("Create", mock.Anything, mock.MatchedBy(func(r *repository.IdentityRequest) bool {
					return r.GameID == "old" && r.NewGameID == "new" && r.Status == model.RequestStatusPending
				})).Return(nil)
			},
			expectedNewID: "new",
		},
		{
			name:     "empty new id defaults to current id",
			gameID:   "old",
			newClass: "wudang",
			setupMocks: func(rr *MockIdentityRequestRepository) {
				rr.On("Create", mock.Anything, mock.MatchedBy(func(r *repository.IdentityRequest) bool {
					return r.NewGameID == "old"
				})).Return(nil)
			},
			expectedNewID: "old",
		},
		{
			name:          "unknown class rejected",
			gameID:        "old",
			newClass:      "paladin",
			setupMocks:    func(rr *MockIdentityRequestRepository) {},
			expectedError: true,
			errorCode:     ErrorCodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRequestRepo := new(MockIdentityRequestRepository)
			tt.setupMocks(mockRequestRepo)

			service := NewIdentityService().WithRequestRepo(mockRequestRepo)

			got, err := service.Submit(context.Background(), tt.gameID, tt.newGameID, tt.newClass)

			if tt.expectedError {
				assert.Error(t, err)
				assert.Equal(t, tt.errorCode, err.Code)
			} else {
				assert.Nil(t, err)
				assert.Equal(t, tt.expectedNewID, got.NewGameID)
				assert.Equal(t, model.RequestStatusPending, got.Status)
			}

			mockRequestRepo.AssertExpectations(t)
		})
	}
}

func TestIdentityService_Approve_PropagatesAcrossTeams(t *testing.T) {
	mockPlayerRepo := new(MockPlayerRepository)
	mockTeamRepo := new(MockTeamRepository)
	mockRequestRepo := new(MockIdentityRequestRepository)

	mockRequestRepo.On("Get", mock.Anything, int64(1)).Return(&repository.IdentityRequest{
		ID: 1, GameID: "A", NewGameID: "A2", NewClass: "emei", Status: model.RequestStatusPending,
	}, nil)

	captained := &repository.Team{ID: 10, Captain: "A", Members: []string{"B", "C"}}
	memberOf := &repository.Team{ID: 11, Captain: "X", Members: []string{"A", "Y"}}
	mockTeamRepo.On("FindByPlayer", mock.Anything, "A").Return([]*repository.Team{captained, memberOf}, nil)

	// Temporary captain for the captained team, picked deterministically.
	mockTeamRepo.On("Patch", mock.Anything, mock.MatchedBy(func(p *repository.TeamPatch) bool {
		return p.ID == 10 && p.Captain != nil && *p.Captain == "B" && p.Members == nil
	})).Return(captained, nil).Once()

	// Single-write identity mutation.
	mockPlayerRepo.On("Patch", mock.Anything, mock.MatchedBy(func(p *repository.PlayerPatch) bool {
		return p.GameID == "A" &&
			p.NewGameID != nil && *p.NewGameID == "A2" &&
			p.Class != nil && *p.Class == "emei"
	})).Return(&repository.Player{GameID: "A2", Class: "emei"}, nil).Once()

	// Propagation: captain pointer on team 10, member entry on team 11.
	mockTeamRepo.On("Patch", mock.Anything, mock.MatchedBy(func(p *repository.TeamPatch) bool {
		return p.ID == 10 && p.Captain != nil && *p.Captain == "A2" && p.Members == nil
	})).Return(captained, nil).Once()
	mockTeamRepo.On("Patch", mock.Anything, mock.MatchedBy(func(p *repository.TeamPatch) bool {
		return p.ID == 11 && p.Captain == nil &&
			p.Members != nil && assert.ObjectsAreEqual([]string{"A2", "Y"}, *p.Members)
	})).Return(memberOf, nil).Once()

	mockRequestRepo.On("SetStatus", mock.Anything, int64(1), model.RequestStatusApproved).Return(nil)

	service := NewIdentityService().
		WithPlayerRepo(mockPlayerRepo).
		WithTeamRepo(mockTeamRepo).
		WithRequestRepo(mockRequestRepo).
		WithCaptainPicker(firstCandidatePicker)

	got, err := service.Approve(context.Background(), 1)

	assert.Nil(t, err)
	assert.Equal(t, model.RequestStatusApproved, got.Status)

	mockPlayerRepo.AssertExpectations(t)
	mockTeamRepo.AssertExpectations(t)
	mockRequestRepo.AssertExpectations(t)
}

func TestIdentityService_Approve_RollsBackOnIdentityFailure(t *testing.T) {
	mockPlayerRepo := new(MockPlayerRepository)
	mockTeamRepo := new(MockTeamRepository)
	mockRequestRepo := new(MockIdentityRequestRepository)

	mockRequestRepo.On("Get", mock.Anything, int64(2)).Return(&repository.IdentityRequest{
		ID: 2, GameID: "A", NewGameID: "A2", Status: model.RequestStatusPending,
	}, nil)

	team := &repository.Team{ID: 5, Captain: "A", Members: []string{"B"}}
	mockTeamRepo.On("FindByPlayer", mock.Anything, "A").Return([]*repository.Team{team}, nil)

	mockTeamRepo.On("Patch", mock.Anything, mock.MatchedBy(func(p *repository.TeamPatch) bool {
		return p.ID == 5 && p.Captain != nil && *p.Captain == "B"
	})).Return(team, nil).Once()

	mockPlayerRepo.On("Patch", mock.Anything, mock.Anything).Return(nil, errors.New("db error")).Once()

	// The compensating write puts the original captain back.
	mockTeamRepo.On("Patch", mock.Anything, mock.MatchedBy(func(p *repository.TeamPatch) bool {
		return p.ID == 5 && p.Captain != nil && *p.Captain == "A"
	})).Return(team, nil).Once()

	service := NewIdentityService().
		WithPlayerRepo(mockPlayerRepo).
		WithTeamRepo(mockTeamRepo).
		WithRequestRepo(mockRequestRepo).
		WithCaptainPicker(firstCandidatePicker)

	got, err := service.Approve(context.Background(), 2)

	assert.Error(t, err)
	assert.Equal(t, ErrorCodeUnspecified, err.Code)
	assert.Nil(t, got)

	mockRequestRepo.AssertNotCalled(t, "SetStatus", mock.Anything, mock.Anything, mock.Anything)
	mockPlayerRepo.AssertExpectations(t)
	mockTeamRepo.AssertExpectations(t)
}

func TestIdentityService_Approve_NoSubstituteCaptain(t *testing.T) {
	mockPlayerRepo := new(MockPlayerRepository)
	mockTeamRepo := new(MockTeamRepository)
	mockRequestRepo := new(MockIdentityRequestRepository)

	mockRequestRepo.On("Get", mock.Anything, int64(3)).Return(&repository.IdentityRequest{
		ID: 3, GameID: "A", NewGameID: "A2", Status: model.RequestStatusPending,
	}, nil)

	// First captained team gets a temporary captain; the second has no
	// other member, so the whole approval aborts and the first team is
	// restored.
	withSub := &repository.Team{ID: 1, Captain: "A", Members: []string{"B"}}
	withoutSub := &repository.Team{ID: 2, Captain: "A", Members: []string{}}
	mockTeamRepo.On("FindByPlayer", mock.Anything, "A").Return([]*repository.Team{withSub, withoutSub}, nil)

	mockTeamRepo.On("Patch", mock.Anything, mock.MatchedBy(func(p *repository.TeamPatch) bool {
		return p.ID == 1 && p.Captain != nil && *p.Captain == "B"
	})).Return(withSub, nil).Once()
	mockTeamRepo.On("Patch", mock.Anything, mock.MatchedBy(func(p *repository.TeamPatch) bool {
		return p.ID == 1 && p.Captain != nil && *p.Captain == "A"
	})).Return(withSub, nil).Once()

	service := NewIdentityService().
		WithPlayerRepo(mockPlayerRepo).
		WithTeamRepo(mockTeamRepo).
		WithRequestRepo(mockRequestRepo).
		WithCaptainPicker(firstCandidatePicker)

	got, err := service.Approve(context.Background(), 3)

	assert.Error(t, err)
	assert.Equal(t, ErrorCodeValidation, err.Code)
	assert.Nil(t, got)

	mockPlayerRepo.AssertNotCalled(t, "Patch", mock.Anything, mock.Anything)
	mockTeamRepo.AssertExpectations(t)
}

func TestIdentityService_Reject(t *testing.T) {
	mockRequestRepo := new(MockIdentityRequestRepository)
	mockRequestRepo.On("SetStatus", mock.Anything, int64(9), model.RequestStatusRejected).Return(nil)

	service := NewIdentityService().WithRequestRepo(mockRequestRepo)

	err := service.Reject(context.Background(), 9)

	assert.Nil(t, err)
	mockRequestRepo.AssertExpectations(t)
}
