package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/weilan/team-roster/internal/model"
	"github.com/weilan/team-roster/internal/repository"
)

type MockPlayerRepository struct {
	mock.Mock
}

func (m *MockPlayerRepository) Create(ctx context.Context, player *repository.Player) error {
	args := m.Called(ctx, player)
	return args.Error(0)
}

func (m *MockPlayerRepository) Get(ctx context.Context, gameID string) (*repository.Player, error) {
	args := m.Called(ctx, gameID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Player), args.Error(1)
}

func (m *MockPlayerRepository) List(ctx context.Context) ([]*repository.Player, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.Player), args.Error(1)
}

func (m *MockPlayerRepository) Patch(ctx context.Context, patch *repository.PlayerPatch) (*repository.Player, error) {
	args := m.Called(ctx, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Player), args.Error(1)
}

func (m *MockPlayerRepository) SetSelectedIn(ctx context.Context, gameIDs []string, selected bool) error {
	args := m.Called(ctx, gameIDs, selected)
	return args.Error(0)
}

func (m *MockPlayerRepository) ResetSelections(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockTeamRepository struct {
	mock.Mock
}

func (m *MockTeamRepository) Create(ctx context.Context, team *repository.Team) error {
	args := m.Called(ctx, team)
	return args.Error(0)
}

func (m *MockTeamRepository) Get(ctx context.Context, id int) (*repository.Team, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Team), args.Error(1)
}

func (m *MockTeamRepository) List(ctx context.Context) ([]*repository.Team, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.Team), args.Error(1)
}

func (m *MockTeamRepository) MaxID(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockTeamRepository) FindByPlayer(ctx context.Context, gameID string) ([]*repository.Team, error) {
	args := m.Called(ctx, gameID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.Team), args.Error(1)
}

func (m *MockTeamRepository) Patch(ctx context.Context, patch *repository.TeamPatch) (*repository.Team, error) {
	args := m.Called(ctx, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Team), args.Error(1)
}

func (m *MockTeamRepository) Delete(ctx context.Context, id int) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockIdentityRequestRepository struct {
	mock.Mock
}

func (m *MockIdentityRequestRepository) Create(ctx context.Context, req *repository.IdentityRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockIdentityRequestRepository) Get(ctx context.Context, id int64) (*repository.IdentityRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.IdentityRequest), args.Error(1)
}

func (m *MockIdentityRequestRepository) List(ctx context.Context, status model.RequestStatus) ([]*repository.IdentityRequest, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.IdentityRequest), args.Error(1)
}

func (m *MockIdentityRequestRepository) SetStatus(ctx context.Context, id int64, status model.RequestStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

type MockTeamRequestRepository struct {
	mock.Mock
}

func (m *MockTeamRequestRepository) Create(ctx context.Context, req *repository.TeamRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockTeamRequestRepository) Get(ctx context.Context, id int64) (*repository.TeamRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.TeamRequest), args.Error(1)
}

func (m *MockTeamRequestRepository) List(ctx context.Context, status model.RequestStatus) ([]*repository.TeamRequest, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.TeamRequest), args.Error(1)
}

func (m *MockTeamRequestRepository) SetStatus(ctx context.Context, id int64, status model.RequestStatus, processedAt time.Time) error {
	args := m.Called(ctx, id, status, processedAt)
	return args.Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, teamID int, title, message string) {
	m.Called(ctx, teamID, title, message)
}
