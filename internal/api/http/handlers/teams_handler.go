package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-notifier/internal/api/dto"
	"github.com/spec-kit/ticket-notifier/internal/repository"
	apperrors "github.com/spec-kit/ticket-notifier/pkg/util/errorutil"
)

// TeamsHandler manages user-to-team memberships.
type TeamsHandler struct {
	memberships repository.MembershipRepository
}

// NewTeamsHandler constructs handler.
func NewTeamsHandler(memberships repository.MembershipRepository) *TeamsHandler {
	return &TeamsHandler{memberships: memberships}
}

// Add handles POST /api/user-teams/add.
func (h *TeamsHandler) Add(c *fiber.Ctx) error {
	var req dto.AddUserToTeamRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	req.UserID, req.TeamID = strings.TrimSpace(req.UserID), strings.TrimSpace(req.TeamID)
	if req.UserID == "" || req.TeamID == "" {
		return apperrors.NewValidationError("userId and teamId required", nil)
	}

	if err := h.memberships.AddUserToTeam(c.UserContext(), req.UserID, req.TeamID); err != nil {
		return apperrors.MapError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": req})
}

// AddBatch handles POST /api/user-teams/add-batch.
func (h *TeamsHandler) AddBatch(c *fiber.Ctx) error {
	var req dto.AddUsersToTeamRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	req.TeamID = strings.TrimSpace(req.TeamID)
	if req.TeamID == "" || len(req.UserIDs) == 0 {
		return apperrors.NewValidationError("userIds and teamId required", nil)
	}
	for i, id := range req.UserIDs {
		req.UserIDs[i] = strings.TrimSpace(id)
		if req.UserIDs[i] == "" {
			return apperrors.NewValidationError("userIds must not contain empty values", map[string]any{"index": i})
		}
	}

	if err := h.memberships.AddUsersToTeam(c.UserContext(), req.UserIDs, req.TeamID); err != nil {
		return apperrors.MapError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": dto.TeamUsersResponse{TeamID: req.TeamID, UserIDs: req.UserIDs, Count: len(req.UserIDs)},
	})
}

// Remove handles DELETE /api/user-teams/remove?userId=&teamId=.
func (h *TeamsHandler) Remove(c *fiber.Ctx) error {
	userID, teamID := strings.TrimSpace(c.Query("userId")), strings.TrimSpace(c.Query("teamId"))
	if userID == "" || teamID == "" {
		return apperrors.NewValidationError("userId and teamId query parameters required", nil)
	}

	removed, err := h.memberships.RemoveUserFromTeam(c.UserContext(), userID, teamID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if !removed {
		return apperrors.NewNotFound("membership", map[string]any{"userId": userID, "teamId": teamID})
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"removed": true}})
}

// TeamUsers handles GET /api/user-teams/team/:teamId/users.
func (h *TeamsHandler) TeamUsers(c *fiber.Ctx) error {
	teamID := c.Params("teamId")
	users, err := h.memberships.UsersInTeam(c.UserContext(), teamID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if users == nil {
		users = []string{}
	}
	return c.JSON(fiber.Map{
		"data": dto.TeamUsersResponse{TeamID: teamID, UserIDs: users, Count: len(users)},
	})
}

// TeamsUsers handles GET /api/user-teams/users?teamIds=T1,T2.
func (h *TeamsHandler) TeamsUsers(c *fiber.Ctx) error {
	var teamIDs []string
	for _, id := range strings.Split(c.Query("teamIds"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			teamIDs = append(teamIDs, id)
		}
	}
	if len(teamIDs) == 0 {
		return apperrors.NewValidationError("teamIds query parameter required", nil)
	}

	users, err := h.memberships.UsersInTeams(c.UserContext(), teamIDs)
	if err != nil {
		return apperrors.MapError(err)
	}
	if users == nil {
		users = []string{}
	}
	return c.JSON(fiber.Map{
		"data": dto.TeamsUsersResponse{TeamIDs: teamIDs, UserIDs: users, Count: len(users)},
	})
}

// UserTeams handles GET /api/user-teams/user/:userId/teams.
func (h *TeamsHandler) UserTeams(c *fiber.Ctx) error {
	userID := c.Params("userId")
	teams, err := h.memberships.TeamsForUser(c.UserContext(), userID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if teams == nil {
		teams = []string{}
	}
	return c.JSON(fiber.Map{
		"data": dto.UserTeamsResponse{UserID: userID, TeamIDs: teams, Count: len(teams)},
	})
}

// Stats handles GET /api/user-teams/stats.
func (h *TeamsHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.memberships.Stats(c.UserContext())
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": stats})
}
