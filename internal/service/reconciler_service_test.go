package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/weilan/team-roster/internal/repository"
)

func TestReconcilerService_Sweep(t *testing.T) {
	mockPlayerRepo := new(MockPlayerRepository)
	mockTeamRepo := new(MockTeamRepository)

	// "ghost" is flagged selected but belongs to no team; "drifter" is a
	// member nobody flagged.
	mockPlayerRepo.On("List", mock.Anything).Return([]*repository.Player{
		{GameID: "captain", IsSelected: true},
		{GameID: "member", IsSelected: true},
		{GameID: "ghost", IsSelected: true},
		{GameID: "drifter", IsSelected: false},
		{GameID: "bystander", IsSelected: false},
	}, nil)
	mockTeamRepo.On("List", mock.Anything).Return([]*repository.Team{
		{ID: 1, Captain: "captain", Members: []string{"member", "drifter"}},
	}, nil)
	mockPlayerRepo.On("SetSelectedIn", mock.Anything, []string{"ghost"}, false).Return(nil)
	mockPlayerRepo.On("SetSelectedIn", mock.Anything, []string{"drifter"}, true).Return(nil)

	service := NewReconcilerService().
		WithPlayerRepo(mockPlayerRepo).
		WithTeamRepo(mockTeamRepo)

	report, err := service.Sweep(context.Background())

	assert.Nil(t, err)
	assert.Equal(t, []string{"ghost"}, report.FalsePositives)
	assert.Equal(t, []string{"drifter"}, report.FalseNegatives)

	mockPlayerRepo.AssertExpectations(t)
	mockTeamRepo.AssertExpectations(t)
}

func TestReconcilerService_Sweep_CleanState(t *testing.T) {
	mockPlayerRepo := new(MockPlayerRepository)
	mockTeamRepo := new(MockTeamRepository)

	mockPlayerRepo.On("List", mock.Anything).Return([]*repository.Player{
		{GameID: "captain", IsSelected: true},
		{GameID: "member", IsSelected: true},
		{GameID: "bystander", IsSelected: false},
	}, nil)
	mockTeamRepo.On("List", mock.Anything).Return([]*repository.Team{
		{ID: 1, Captain: "captain", Members: []string{"member"}},
	}, nil)

	service := NewReconcilerService().
		WithPlayerRepo(mockPlayerRepo).
		WithTeamRepo(mockTeamRepo)

	report, err := service.Sweep(context.Background())

	assert.Nil(t, err)
	assert.Empty(t, report.FalsePositives)
	assert.Empty(t, report.FalseNegatives)

	mockPlayerRepo.AssertNotCalled(t, "SetSelectedIn", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcilerService_Sweep_SortsReport(t *testing.T) {
	mockPlayerRepo := new(MockPlayerRepository)
	mockTeamRepo := new(MockTeamRepository)

	mockPlayerRepo.On("List", mock.Anything).Return([]*repository.Player{
		{GameID: "zeta", IsSelected: true},
		{GameID: "alpha", IsSelected: true},
	}, nil)
	mockTeamRepo.On("List", mock.Anything).Return([]*repository.Team{}, nil)
	mockPlayerRepo.On("SetSelectedIn", mock.Anything, []string{"alpha", "zeta"}, false).Return(nil)

	service := NewReconcilerService().
		WithPlayerRepo(mockPlayerRepo).
		WithTeamRepo(mockTeamRepo)

	report, err := service.Sweep(context.Background())

	assert.Nil(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, report.FalsePositives)
	mockPlayerRepo.AssertExpectations(t)
}
