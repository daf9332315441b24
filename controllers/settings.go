package controllers

import (
	"fmt"
	"net/http"

	"repairshop-backend/services"
	"repairshop-backend/utils"

	"github.com/gin-gonic/gin"
)

type SettingsController struct {
	Settings *services.SettingsService
}

func (sc *SettingsController) GetSettings(c *gin.Context) {
	all, err := sc.Settings.All(c.Request.Context())
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve settings")
		return
	}
	c.JSON(http.StatusOK, all)
}

// UpdateSettings upserts every key of the body. Non-string values are stored
// in their printed form, so true becomes "true".
func (sc *SettingsController) UpdateSettings(c *gin.Context) {
	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil || len(body) == 0 {
		utils.RespondWithError(c, http.StatusBadRequest, "Expected an object of settings")
		return
	}

	values := make(map[string]string, len(body))
	for k, v := range body {
		if v == nil {
			values[k] = ""
			continue
		}
		values[k] = fmt.Sprint(v)
	}

	if err := sc.Settings.Upsert(c.Request.Context(), values); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Settings updated"})
}
