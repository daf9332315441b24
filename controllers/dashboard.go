package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GetDashboard returns the shop overview: current and previous month
// figures, the six month revenue series and the latest repairs.
func (rc *ReportController) GetDashboard(c *gin.Context) {
	dashboard, err := rc.Stats.Dashboard(c.Request.Context())
	if err != nil {
		rc.Log.Error("load dashboard", zap.Error(err))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

func (rc *ReportController) GetTechnicianStats(c *gin.Context) {
	stats, err := rc.Stats.Technicians(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
