package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/weilan/team-roster/internal/auth"
	"github.com/weilan/team-roster/internal/model"
	"github.com/weilan/team-roster/internal/service"
	"github.com/weilan/team-roster/pkg/logger"
	"go.uber.org/zap"
)

const adminTokenTTL = 12 * time.Hour

type Handler struct {
	players    *service.PlayerService
	teams      *service.TeamService
	identity   *service.IdentityService
	roster     *service.RosterService
	reconciler *service.ReconcilerService

	healthChecker     HealthChecker
	adminPasswordHash string

	logger *zap.Logger
}

func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{
		logger: logger,
	}
}

func (h *Handler) WithHealthChecker(c HealthChecker) *Handler {
	h.healthChecker = c
	return h
}

func (h *Handler) WithAdminPasswordHash(hash string) *Handler {
	h.adminPasswordHash = hash
	return h
}

func (h *Handler) WithPlayerService(s *service.PlayerService) *Handler {
	h.players = s
	return h
}

func (h *Handler) WithTeamService(s *service.TeamService) *Handler {
	h.teams = s
	return h
}

func (h *Handler) WithIdentityService(s *service.IdentityService) *Handler {
	h.identity = s
	return h
}

func (h *Handler) WithRosterService(s *service.RosterService) *Handler {
	h.roster = s
	return h
}

func (h *Handler) WithReconcilerService(s *service.ReconcilerService) *Handler {
	h.reconciler = s
	return h
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.Validator = NewValidator()
	e.Use(middleware.RequestID())
	e.Use(ZapLoggerMiddleware(h.logger))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.GET("/health", h.healthChecker.HealthCheck())
	e.POST("/auth/login", h.Login)

	e.GET("/players", h.ListPlayers)
	e.POST("/players/add", h.AddPlayer)

	e.GET("/teams", h.ListTeams)
	e.GET("/teams/incomplete", h.ListIncompleteTeams)
	e.GET("/team", h.GetTeam)

	e.POST("/identityRequest/submit", h.SubmitIdentityRequest)
	e.GET("/identityRequest/list", h.ListIdentityRequests)
	e.POST("/teamRequest/submit", h.SubmitTeamRequest)
	e.GET("/teamRequest/list", h.ListTeamRequests)

	adminSecurity := e.Group("", AuthMiddleware(auth.TokenTypeAdmin))

	adminSecurity.POST("/team/create", h.CreateTeam)
	adminSecurity.POST("/team/dissolve", h.DissolveTeam)
	adminSecurity.POST("/players/resetSelection", h.ResetSelections)
	adminSecurity.POST("/identityRequest/approve", h.ApproveIdentityRequest)
	adminSecurity.POST("/identityRequest/reject", h.RejectIdentityRequest)
	adminSecurity.POST("/teamRequest/approve", h.ApproveTeamRequest)
	adminSecurity.POST("/teamRequest/reject", h.RejectTeamRequest)
	adminSecurity.POST("/maintenance/sweep", h.Sweep)
}

// Login exchanges the admin shared secret for a bearer token. This is
// the gate in front of every approve/reject operation.
func (h *Handler) Login(e echo.Context) error {
	var req struct {
		Password string `json:"password" validate:"required"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		return h.transportError(e, err)
	}

	if !auth.CheckAdminPassword(req.Password, h.adminPasswordHash) {
		return e.JSON(http.StatusUnauthorized, echo.Map{"error": "wrong password"})
	}

	token, err := auth.GenerateToken(auth.TokenTypeAdmin, adminTokenTTL)
	if err != nil {
		logger.FromContext(e.Request().Context()).Error("failed to generate token", zap.Error(err))
		return e.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to generate token"})
	}

	return e.JSON(http.StatusOK, echo.Map{"token": token})
}

func (h *Handler) ListPlayers(e echo.Context) error {
	players, err := h.players.ListPlayers(e.Request().Context())
	if err != nil {
		return h.transportError(e, err)
	}
	return e.JSON(http.StatusOK, players)
}

func (h *Handler) AddPlayer(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	var req struct {
		GameID string `json:"game_id" validate:"required"`
		Class  string `json:"class" validate:"required"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	player, err := h.players.AddPlayer(e.Request().Context(), req.GameID, req.Class)
	if err != nil {
		l.Error("failed to add player", zap.String("game_id", req.GameID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusCreated, player)
}

func (h *Handler) ResetSelections(e echo.Context) error {
	if err := h.players.ResetSelections(e.Request().Context()); err != nil {
		return h.transportError(e, err)
	}
	return e.NoContent(http.StatusNoContent)
}

func (h *Handler) ListTeams(e echo.Context) error {
	teams, err := h.teams.ListTeams(e.Request().Context())
	if err != nil {
		return h.transportError(e, err)
	}
	return e.JSON(http.StatusOK, teams)
}

func (h *Handler) ListIncompleteTeams(e echo.Context) error {
	teams, err := h.teams.ListIncomplete(e.Request().Context())
	if err != nil {
		return h.transportError(e, err)
	}
	return e.JSON(http.StatusOK, teams)
}

func (h *Handler) GetTeam(e echo.Context) error {
	teamID, convErr := strconv.Atoi(e.QueryParam("team_id"))
	if convErr != nil {
		return h.transportError(e, service.NewError(service.ErrorCodeInvalidBody, "team_id must be an integer"))
	}

	team, err := h.teams.GetTeam(e.Request().Context(), teamID)
	if err != nil {
		return h.transportError(e, err)
	}
	return e.JSON(http.StatusOK, team)
}

func (h *Handler) CreateTeam(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	var req struct {
		Captain string   `json:"captain" validate:"required"`
		Members []string `json:"members" validate:"required"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	l.Info("creating team", zap.String("captain", req.Captain))

	team, err := h.teams.CreateTeam(e.Request().Context(), req.Captain, req.Members)
	if err != nil {
		l.Error("failed to create team", zap.String("captain", req.Captain), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusCreated, team)
}

func (h *Handler) DissolveTeam(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	var req struct {
		TeamID       int      `json:"team_id" validate:"required"`
		Participants []string `json:"participants" validate:"required"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	if err := h.teams.Dissolve(e.Request().Context(), req.TeamID, req.Participants); err != nil {
		l.Error("failed to dissolve team", zap.Int("team_id", req.TeamID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.NoContent(http.StatusNoContent)
}

func (h *Handler) SubmitIdentityRequest(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	var req struct {
		GameID    string `json:"game_id" validate:"required"`
		NewGameID string `json:"new_game_id"`
		NewClass  string `json:"new_class"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	request, err := h.identity.Submit(e.Request().Context(), req.GameID, req.NewGameID, req.NewClass)
	if err != nil {
		l.Error("failed to submit identity request", zap.String("game_id", req.GameID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusCreated, request)
}

func (h *Handler) ListIdentityRequests(e echo.Context) error {
	requests, err := h.identity.List(e.Request().Context(), model.RequestStatus(e.QueryParam("status")))
	if err != nil {
		return h.transportError(e, err)
	}
	return e.JSON(http.StatusOK, requests)
}

func (h *Handler) ApproveIdentityRequest(e echo.Context) error {
	requestID, convErr := h.requestIDParam(e)
	if convErr != nil {
		return h.transportError(e, convErr)
	}

	request, err := h.identity.Approve(e.Request().Context(), requestID)
	if err != nil {
		logger.FromContext(e.Request().Context()).Error("failed to approve identity request",
			zap.Int64("request_id", requestID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, request)
}

func (h *Handler) RejectIdentityRequest(e echo.Context) error {
	requestID, convErr := h.requestIDParam(e)
	if convErr != nil {
		return h.transportError(e, convErr)
	}

	if err := h.identity.Reject(e.Request().Context(), requestID); err != nil {
		return h.transportError(e, err)
	}

	return e.NoContent(http.StatusNoContent)
}

func (h *Handler) SubmitTeamRequest(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	req := &model.TeamChangeRequest{}

	if err := h.decodeRequest(e, req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	request, err := h.roster.Submit(e.Request().Context(), req)
	if err != nil {
		l.Error("failed to submit team change request",
			zap.Int("team_id", req.TeamID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusCreated, request)
}

func (h *Handler) ListTeamRequests(e echo.Context) error {
	requests, err := h.roster.List(e.Request().Context(), model.RequestStatus(e.QueryParam("status")))
	if err != nil {
		return h.transportError(e, err)
	}
	return e.JSON(http.StatusOK, requests)
}

func (h *Handler) ApproveTeamRequest(e echo.Context) error {
	requestID, convErr := h.requestIDParam(e)
	if convErr != nil {
		return h.transportError(e, convErr)
	}

	request, err := h.roster.Approve(e.Request().Context(), requestID)
	if err != nil {
		logger.FromContext(e.Request().Context()).Error("failed to approve team change request",
			zap.Int64("request_id", requestID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, request)
}

func (h *Handler) RejectTeamRequest(e echo.Context) error {
	requestID, convErr := h.requestIDParam(e)
	if convErr != nil {
		return h.transportError(e, convErr)
	}

	if err := h.roster.Reject(e.Request().Context(), requestID); err != nil {
		return h.transportError(e, err)
	}

	return e.NoContent(http.StatusNoContent)
}

func (h *Handler) Sweep(e echo.Context) error {
	report, err := h.reconciler.Sweep(e.Request().Context())
	if err != nil {
		return h.transportError(e, err)
	}
	return e.JSON(http.StatusOK, report)
}

func (h *Handler) requestIDParam(e echo.Context) (int64, *service.Error) {
	var req struct {
		RequestID int64 `json:"request_id" validate:"required"`
	}
	if err := h.decodeRequest(e, &req); err != nil {
		return 0, err
	}
	return req.RequestID, nil
}

func (h *Handler) decodeRequest(e echo.Context, req any) *service.Error {
	if err := e.Bind(req); err != nil {
		return service.NewError(service.ErrorCodeInvalidBody, "invalid request body")
	}

	if err := e.Validate(req); err != nil {
		return service.NewError(service.ErrorCodeInvalidBody, errors.Wrap(err, "request validation failed").Error())
	}
	return nil
}

func (h *Handler) transportError(e echo.Context, err *service.Error) error {
	response := struct {
		Error *service.Error `json:"error"`
	}{Error: err}

	switch err.Code {
	case service.ErrorCodeNotFound:
		return e.JSON(http.StatusNotFound, response)
	case service.ErrorCodeValidation, service.ErrorCodeInvalidBody:
		return e.JSON(http.StatusBadRequest, response)
	case service.ErrorCodeForbidden:
		return e.JSON(http.StatusForbidden, response)
	case service.ErrorCodeConflict:
		return e.JSON(http.StatusConflict, response)
	default:
		return e.JSON(http.StatusInternalServerError, response)
	}
}
