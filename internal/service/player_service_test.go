package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/weilan/team-roster/internal/model"
	"github.com/weilan/team-roster/internal/repository"
)

func TestPlayerService_AddPlayer(t *testing.T) {
	tests := []struct {
		name          string
		gameID        string
		class         string
		setupMocks    func(*MockPlayerRepository)
		expectedError bool
		errorCode     ErrorCode
	}{
		{
			name:   "success",
			gameID: "frostblade",
			class:  "wudang",
			setupMocks: func(pr *MockPlayerRepository) {
				pr.On("Create", mock.Anything, mock.MatchedBy(func(p *repository.Player) bool {
					return p.GameID == "frostblade" && p.Class == "wudang" && !p.IsSelected
				})).Return(nil)
			},
		},
		{
			name:          "unknown class",
			gameID:        "frostblade",
			class:         "paladin",
			setupMocks:    func(pr *MockPlayerRepository) {},
			expectedError: true,
			errorCode:     ErrorCodeValidation,
		},
		{
			name:   "duplicate game id",
			gameID: "frostblade",
			class:  "wudang",
			setupMocks: func(pr *MockPlayerRepository) {
				pr.On("Create", mock.Anything, mock.Anything).Return(repository.ErrAlreadyExists)
			},
			expectedError: true,
			errorCode:     ErrorCodeConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPlayerRepo := new(MockPlayerRepository)
			tt.setupMocks(mockPlayerRepo)

			service := NewPlayerService().WithPlayerRepo(mockPlayerRepo)

			player, err := service.AddPlayer(context.Background(), tt.gameID, tt.class)

			if tt.expectedError {
				assert.Error(t, err)
				assert.Equal(t, tt.errorCode, err.Code)
			} else {
				assert.Nil(t, err)
				assert.Equal(t, tt.gameID, player.GameID)
				assert.False(t, player.IsSelected)
			}

			mockPlayerRepo.AssertExpectations(t)
		})
	}
}

func TestPlayerService_ListPlayers(t *testing.T) {
	mockPlayerRepo := new(MockPlayerRepository)
	mockPlayerRepo.On("List", mock.Anything).Return([]*repository.Player{
		{GameID: "frostblade", DisplayID: 1, Class: "wudang", IsSelected: true},
		{GameID: "nightsong", DisplayID: 2, Class: "emei", IsSelected: false},
	}, nil)

	service := NewPlayerService().WithPlayerRepo(mockPlayerRepo)

	players, err := service.ListPlayers(context.Background())

	assert.Nil(t, err)
	assert.Equal(t, []*model.Player{
		{GameID: "frostblade", DisplayID: 1, Class: "wudang", IsSelected: true},
		{GameID: "nightsong", DisplayID: 2, Class: "emei", IsSelected: false},
	}, players)
}

func TestPlayerService_ResetSelections(t *testing.T) {
	mockPlayerRepo := new(MockPlayerRepository)
	mockPlayerRepo.On("ResetSelections", mock.Anything).Return(nil)

	service := NewPlayerService().WithPlayerRepo(mockPlayerRepo)

	err := service.ResetSelections(context.Background())

	assert.Nil(t, err)
	mockPlayerRepo.AssertExpectations(t)
}
