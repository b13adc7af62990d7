package www

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tally/engine"
	"tally/engine/db"
)

// storeError maps store and engine sentinels onto stable status codes.
// Unexpected errors are logged server-side only; their text never
// reaches the client.
func storeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, engine.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
	case errors.Is(err, db.ErrInsufficientBalance):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient points"})
	case errors.Is(err, db.ErrTeamNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Team not found"})
	case errors.Is(err, db.ErrTransactionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
	case errors.Is(err, db.ErrStoreBusy):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Store busy, try again"})
	default:
		slog.Error("request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}

// getTeams returns every team including join codes for administrators,
// and only the caller's own row, without the code, for teams.
func getTeams(c *gin.Context) {
	claims, err := contextGetClaims(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if claims.Role == RoleAdmin {
		teams, err := db.GetTeams()
		if err != nil {
			storeError(c, err)
			return
		}
		out := make([]gin.H, 0, len(teams))
		for _, team := range teams {
			out = append(out, gin.H{"id": team.ID, "name": team.Name, "code": team.Code, "points": team.Points})
		}
		c.JSON(http.StatusOK, gin.H{"teams": out})
		return
	}

	team, err := db.GetTeam(claims.TeamID)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"teams": []gin.H{{"id": team.ID, "name": team.Name, "points": team.Points}}})
}

func createTeams(c *gin.Context) {
	type TeamForm struct {
		Name  string   `json:"name"`
		Names []string `json:"names"`
	}
	var teamForm TeamForm

	if err := c.ShouldBindJSON(&teamForm); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	names := teamForm.Names
	if teamForm.Name != "" {
		names = append(names, teamForm.Name)
	}
	if len(names) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing team name"})
		return
	}

	result, err := le.CreateTeams(names)
	if err != nil {
		storeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"created": result.Created, "duplicates": result.Duplicates, "codes": result.Codes})
}

func deleteTeam(c *gin.Context) {
	teamid, _ := strconv.Atoi(c.Param("teamid"))

	if err := le.DeleteTeam(uint(teamid)); err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// spendPoints settles a purchase against one team's balance. Teams may
// only spend against themselves; administrators may debit anyone.
func spendPoints(c *gin.Context) {
	type SpendForm struct {
		Amount int    `json:"amount"`
		Label  string `json:"label"`
	}
	var spendForm SpendForm

	teamid, _ := strconv.Atoi(c.Param("teamid"))

	if err := c.ShouldBindJSON(&spendForm); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claims, err := contextGetClaims(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if claims.Role != RoleAdmin && claims.TeamID != uint(teamid) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	entry, err := le.Debit(uint(teamid), spendForm.Amount, spendForm.Label, claims.Role == RoleAdmin)
	if err != nil {
		storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         "success",
		"token":          entry.Token,
		"balance_before": entry.BalanceBefore,
		"balance_after":  entry.BalanceAfter,
	})
}

// addPoints credits one team with a ledger entry.
func addPoints(c *gin.Context) {
	type CreditForm struct {
		Amount int    `json:"amount"`
		Label  string `json:"label"`
	}
	var creditForm CreditForm

	teamid, _ := strconv.Atoi(c.Param("teamid"))

	if err := c.ShouldBindJSON(&creditForm); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	label := creditForm.Label
	if label == "" {
		label = "admin grant"
	}

	entry, err := le.CreditTeam(uint(teamid), creditForm.Amount, label)
	if err != nil {
		storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "balance_after": entry.BalanceAfter})
}
