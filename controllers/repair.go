package controllers

import (
	"net/http"
	"strings"
	"time"

	"repairshop-backend/services"
	"repairshop-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type UpdateStatusInput struct {
	Status            string     `json:"status" binding:"required"`
	Notes             string     `json:"notes"`
	EstimatedDelivery *time.Time `json:"estimated_delivery"`
	Signature         string     `json:"signature"`
	Version           *int       `json:"version"`
}

type AddNoteInput struct {
	Note       string `json:"note" binding:"required"`
	IsInternal bool   `json:"is_internal"`
}

// RepairController exposes the repair workflow over HTTP.
type RepairController struct {
	Repairs *services.RepairService
}

func queryID(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid "+strings.ReplaceAll(name, "_", " ")+" format")
		return nil, false
	}
	return &id, true
}

func (rc *RepairController) List(c *gin.Context) {
	page, limit := pageParams(c, 20)
	customerID, ok := queryID(c, "customer_id")
	if !ok {
		return
	}
	technicianID, ok := queryID(c, "technician_id")
	if !ok {
		return
	}

	repairs, total, err := rc.Repairs.List(c.Request.Context(), currentUser(c), services.RepairFilter{
		Status:       c.Query("status"),
		CustomerID:   customerID,
		TechnicianID: technicianID,
		Search:       strings.TrimSpace(c.Query("search")),
		Page:         page,
		Limit:        limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"repairs": repairs,
		"pagination": gin.H{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": (total + int64(limit) - 1) / int64(limit),
		},
	})
}

func (rc *RepairController) Get(c *gin.Context) {
	id, ok := paramID(c, "id", "repair")
	if !ok {
		return
	}
	repair, err := rc.Repairs.Get(c.Request.Context(), currentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, repair)
}

func (rc *RepairController) Create(c *gin.Context) {
	var input services.CreateRepairInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	repair, err := rc.Repairs.Create(c.Request.Context(), currentUser(c), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, repair)
}

func (rc *RepairController) Update(c *gin.Context) {
	id, ok := paramID(c, "id", "repair")
	if !ok {
		return
	}
	var patch services.RepairPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	repair, err := rc.Repairs.Update(c.Request.Context(), currentUser(c), id, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, repair)
}

// UpdateStatus moves a repair through its lifecycle. Who may ask for which
// status is decided by the service policy.
func (rc *RepairController) UpdateStatus(c *gin.Context) {
	id, ok := paramID(c, "id", "repair")
	if !ok {
		return
	}
	var input UpdateStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Status is required")
		return
	}
	status, err := services.ParseStatus(input.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	repair, err := rc.Repairs.Transition(c.Request.Context(), currentUser(c), id, services.TransitionRequest{
		Status:            status,
		Notes:             input.Notes,
		EstimatedDelivery: input.EstimatedDelivery,
		Signature:         input.Signature,
	}, input.Version)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, repair)
}

func (rc *RepairController) AddNote(c *gin.Context) {
	id, ok := paramID(c, "id", "repair")
	if !ok {
		return
	}
	var input AddNoteInput
	if err := c.ShouldBindJSON(&input); err != nil || strings.TrimSpace(input.Note) == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "Note is required")
		return
	}

	note, err := rc.Repairs.AddNote(c.Request.Context(), currentUser(c), id, strings.TrimSpace(input.Note), input.IsInternal)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, note)
}

func (rc *RepairController) Delete(c *gin.Context) {
	id, ok := paramID(c, "id", "repair")
	if !ok {
		return
	}
	if err := rc.Repairs.Delete(c.Request.Context(), currentUser(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Repair deleted successfully"})
}
