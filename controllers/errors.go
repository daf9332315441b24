package controllers

import (
	"errors"
	"net/http"

	"repairshop-backend/services"
	"repairshop-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Debug exposes internal error details in 500 responses.
var Debug bool

// respondError maps a service error to its HTTP status.
func respondError(c *gin.Context, err error) {
	var (
		verr *services.ValidationError
		nf   *services.NotFoundError
		aerr *services.AuthorizationError
		cerr *services.ConflictError
	)
	switch {
	case errors.As(err, &verr):
		utils.RespondWithError(c, http.StatusBadRequest, verr.Error())
	case errors.As(err, &nf):
		utils.RespondWithError(c, http.StatusNotFound, capitalize(nf.Error()))
	case errors.Is(err, gorm.ErrRecordNotFound):
		utils.RespondWithError(c, http.StatusNotFound, "Not found")
	case errors.As(err, &aerr):
		utils.RespondWithError(c, http.StatusForbidden, aerr.Error())
	case errors.As(err, &cerr):
		utils.RespondWithError(c, http.StatusConflict, cerr.Error())
	case errors.Is(err, gorm.ErrDuplicatedKey):
		utils.RespondWithError(c, http.StatusConflict, "Already exists")
	default:
		c.Error(err)
		msg := "Internal server error"
		if Debug {
			msg += ": " + err.Error()
		}
		utils.RespondWithError(c, http.StatusInternalServerError, msg)
	}
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}

// paramID parses a path parameter as a UUID, answering 400 when malformed.
func paramID(c *gin.Context, name, entity string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid "+entity+" ID format")
		return uuid.Nil, false
	}
	return id, true
}
