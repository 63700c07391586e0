package dto

// AddUserToTeamRequest payload for POST /api/user-teams/add.
type AddUserToTeamRequest struct {
	UserID string `json:"userId"`
	TeamID string `json:"teamId"`
}

// AddUsersToTeamRequest payload for POST /api/user-teams/add-batch.
type AddUsersToTeamRequest struct {
	UserIDs []string `json:"userIds"`
	TeamID  string   `json:"teamId"`
}

// TeamUsersResponse lists the members of a team.
type TeamUsersResponse struct {
	TeamID  string   `json:"teamId"`
	UserIDs []string `json:"userIds"`
	Count   int      `json:"count"`
}

// UserTeamsResponse lists the teams of a user.
type UserTeamsResponse struct {
	UserID  string   `json:"userId"`
	TeamIDs []string `json:"teamIds"`
	Count   int      `json:"count"`
}

// TeamsUsersResponse lists the distinct members of several teams.
type TeamsUsersResponse struct {
	TeamIDs []string `json:"teamIds"`
	UserIDs []string `json:"userIds"`
	Count   int      `json:"count"`
}
