package www

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// getReports serves the paginated transaction ledger. Administrators
// see every team and may scope with the team_id parameter; teams only
// ever see their own entries.
func getReports(c *gin.Context) {
	claims, err := contextGetClaims(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	query := c.Query("q")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "0"))

	var teamID uint
	if claims.Role == RoleAdmin {
		id, _ := strconv.Atoi(c.Query("team_id"))
		teamID = uint(id)
	} else {
		teamID = claims.TeamID
	}

	report, err := le.ListTransactions(teamID, query, page, perPage)
	if err != nil {
		storeError(c, err)
		return
	}

	entries := make([]gin.H, 0, len(report.Entries))
	for _, entry := range report.Entries {
		row := gin.H{
			"id":             entry.ID,
			"team_id":        entry.TeamID,
			"team_name":      entry.Team.Name,
			"cost":           entry.Cost,
			"balance_before": entry.BalanceBefore,
			"balance_after":  entry.BalanceAfter,
			"kind":           entry.Kind,
			"token":          entry.Token,
			"checked":        entry.Checked,
			"created_at":     entry.CreatedAt,
		}
		if entry.Label != nil {
			row["label"] = *entry.Label
		}
		entries = append(entries, row)
	}

	c.JSON(http.StatusOK, gin.H{
		"entries":     entries,
		"total":       report.Total,
		"total_pages": report.TotalPages,
		"page":        report.Page,
		"per_page":    report.PerPage,
	})
}

// toggleReportCheck flips the reviewed flag on one ledger entry.
func toggleReportCheck(c *gin.Context) {
	reportid, _ := strconv.Atoi(c.Param("reportid"))

	checked, err := le.ToggleChecked(uint(reportid))
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "checked": checked})
}
