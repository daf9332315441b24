// controllers/report.go
package controllers

import (
	"fmt"
	"net/http"
	"time"

	"repairshop-backend/services"
	"repairshop-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportController serves the admin statistics.
type ReportController struct {
	Stats *services.DashboardService
	Log   *zap.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

func (rc *ReportController) now() time.Time {
	if rc.Now != nil {
		return rc.Now()
	}
	return time.Now()
}

// dateRange reads start_date and end_date. Without them the last 30 days
// including today are used.
func (rc *ReportController) dateRange(c *gin.Context) (time.Time, time.Time, bool) {
	today := utils.BeginningOfDay(rc.now())
	start, end, err := utils.ParseDateRange(c.Query("start_date"), c.Query("end_date"), today.AddDate(0, 0, -29), today)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid date format, expected YYYY-MM-DD")
		return start, end, false
	}
	if !start.Before(end) {
		utils.RespondWithError(c, http.StatusBadRequest, "start_date must not be after end_date")
		return start, end, false
	}
	return start, end, true
}

func (rc *ReportController) GetRevenue(c *gin.Context) {
	start, end, ok := rc.dateRange(c)
	if !ok {
		return
	}
	groupBy := c.DefaultQuery("group_by", "day")

	periods, err := rc.Stats.Revenue(c.Request.Context(), groupBy, start, end)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"group_by":   groupBy,
		"start_date": start.Format(utils.DateLayout),
		"end_date":   end.AddDate(0, 0, -1).Format(utils.DateLayout),
		"periods":    periods,
	})
}

// ExportRepairs streams the repairs created in the range as an xlsx workbook.
func (rc *ReportController) ExportRepairs(c *gin.Context) {
	start, end, ok := rc.dateRange(c)
	if !ok {
		return
	}

	repairs, err := rc.Stats.RepairsBetween(c.Request.Context(), start, end)
	if err != nil {
		respondError(c, err)
		return
	}
	book, err := services.ExportRepairs(repairs)
	if err != nil {
		rc.Log.Error("build repairs export", zap.Error(err))
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to build export")
		return
	}
	defer book.Close()

	filename := fmt.Sprintf("repairs_%s_%s.xlsx", start.Format(utils.DateLayout), end.AddDate(0, 0, -1).Format(utils.DateLayout))
	c.Header("Content-Type", xlsxContentType)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Status(http.StatusOK)
	if err := book.Write(c.Writer); err != nil {
		rc.Log.Warn("write repairs export", zap.Error(err))
	}
}
