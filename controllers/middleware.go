package controllers

import (
	"net/http"

	"repairshop-backend/config"
	"repairshop-backend/models"
	"repairshop-backend/utils"

	"github.com/gin-gonic/gin"
)

const currentUserKey = "currentUser"

// LoadCurrentUser resolves the token subject to an active user. It runs after
// utils.AuthMiddleware and refreshes the "role" key from the database so that
// role changes apply without a new token.
func LoadCurrentUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("userId")

		var user models.User
		if err := config.DB.First(&user, "id = ?", userID).Error; err != nil {
			utils.RespondWithError(c, http.StatusUnauthorized, "User not found")
			return
		}
		if !user.IsActive {
			utils.RespondWithError(c, http.StatusUnauthorized, "Account is disabled")
			return
		}

		c.Set(currentUserKey, &user)
		c.Set("role", string(user.Role))
		c.Next()
	}
}

func currentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(currentUserKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}
