package www

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tally/engine"
	"tally/engine/db"
)

// addPointsAll grants points to every team, one ledger entry each.
func addPointsAll(c *gin.Context) {
	type CreditForm struct {
		Amount int    `json:"amount"`
		Label  string `json:"label"`
	}
	var creditForm CreditForm

	if err := c.ShouldBindJSON(&creditForm); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	label := creditForm.Label
	if label == "" {
		label = "admin grant"
	}

	if err := le.CreditAll(creditForm.Amount, label); err != nil {
		storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func resetPoints(c *gin.Context) {
	if err := le.ResetAllBalances(); err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// updateSettings applies a partial update to the tick parameters and
// returns the resulting stored values.
func updateSettings(c *gin.Context) {
	type SettingsForm struct {
		PointsPerTick *int `json:"points_per_tick"`
		TickInterval  *int `json:"tick_interval"`
	}
	var settingsForm SettingsForm

	if err := c.ShouldBindJSON(&settingsForm); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if settingsForm.PointsPerTick == nil && settingsForm.TickInterval == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No settings provided"})
		return
	}

	if err := le.UpdateSettings(settingsForm.PointsPerTick, settingsForm.TickInterval); err != nil {
		if errors.Is(err, engine.ErrInvalidSetting) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		storeError(c, err)
		return
	}

	settings, err := db.GetSettings()
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "settings": settings})
}

// getConfig exposes the live tick parameters and the spend catalogs.
func getConfig(c *gin.Context) {
	settings, err := db.GetSettings()
	if err != nil {
		storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"event_name":      conf.RequiredSettings.EventName,
		"points_per_tick": settings.PointsPerTick,
		"tick_interval":   settings.TickInterval,
		"spend_options":   conf.SpendSettings.Options,
		"spend_named":     conf.SpendSettings.Named,
	})
}
