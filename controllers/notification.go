package controllers

import (
	"net/http"

	"repairshop-backend/config"
	"repairshop-backend/models"
	"repairshop-backend/services"
	"repairshop-backend/utils"

	"github.com/gin-gonic/gin"
)

// NotificationController lets admins inspect and replay the outbox.
type NotificationController struct {
	Notifier *services.NotificationService
}

// ListNotifications returns outbox events, newest first, optionally filtered
// by status and repair.
func (nc *NotificationController) ListNotifications(c *gin.Context) {
	page, limit := pageParams(c, 50)

	query := config.DB.Model(&models.NotificationEvent{})
	switch status := c.Query("status"); status {
	case "":
	case models.NotificationPending, models.NotificationSending, models.NotificationSent, models.NotificationFailed:
		query = query.Where("status = ?", status)
	default:
		utils.RespondWithError(c, http.StatusBadRequest, "status must be pending, sending, sent or failed")
		return
	}
	repairID, ok := queryID(c, "repair_id")
	if !ok {
		return
	}
	if repairID != nil {
		query = query.Where("repair_id = ?", *repairID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to count notifications")
		return
	}
	events := []models.NotificationEvent{}
	if err := query.Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&events).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve notifications")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": events,
		"pagination": gin.H{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": (total + int64(limit) - 1) / int64(limit),
		},
	})
}

// RetryNotification puts a failed event back in the queue with a fresh
// attempt budget.
func (nc *NotificationController) RetryNotification(c *gin.Context) {
	id, ok := paramID(c, "id", "notification")
	if !ok {
		return
	}

	var event models.NotificationEvent
	if err := config.DB.First(&event, "id = ?", id).Error; err != nil {
		dbError(c, err, "Notification")
		return
	}
	if event.Status != models.NotificationFailed {
		utils.RespondWithError(c, http.StatusConflict, "Only failed notifications can be retried")
		return
	}

	err := config.DB.Model(&event).Updates(map[string]interface{}{
		"status":     models.NotificationPending,
		"attempts":   0,
		"last_error": "",
	}).Error
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to requeue notification")
		return
	}
	event.Status = models.NotificationPending
	event.Attempts = 0
	event.LastError = ""
	c.JSON(http.StatusOK, event)
}

// ProcessNotifications runs one delivery pass without waiting for the cron.
func (nc *NotificationController) ProcessNotifications(c *gin.Context) {
	delivered, err := nc.Notifier.ProcessPending(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"delivered": delivered})
}
