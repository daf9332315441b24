// controllers/service.go
package controllers

import (
	"errors"
	"net/http"
	"strings"

	"repairshop-backend/config"
	"repairshop-backend/models"
	"repairshop-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateServiceInput defines the expected JSON structure for creating a service
type CreateServiceInput struct {
	Name          string     `json:"name" binding:"required"`
	Description   string     `json:"description"`
	DeviceTypeID  *uuid.UUID `json:"device_type_id"`
	BasePrice     float64    `json:"base_price" binding:"min=0"`
	EstimatedDays int        `json:"estimated_days" binding:"min=0"`
}

// UpdateServiceInput defines the expected JSON structure for updating a service
type UpdateServiceInput struct {
	Name          *string    `json:"name"`
	Description   *string    `json:"description"`
	DeviceTypeID  *uuid.UUID `json:"device_type_id"`
	BasePrice     *float64   `json:"base_price" binding:"omitempty,min=0"`
	EstimatedDays *int       `json:"estimated_days" binding:"omitempty,min=0"`
	IsActive      *bool      `json:"is_active"`
}

type CatalogItemInput struct {
	Name     *string `json:"name"`
	Icon     *string `json:"icon"`
	IsActive *bool   `json:"is_active"`
}

func dbError(c *gin.Context, err error, entity string) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		utils.RespondWithError(c, http.StatusNotFound, entity+" not found")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		utils.RespondWithError(c, http.StatusConflict, entity+" already exists")
	default:
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
	}
}

// inUse reports whether any row of model has column = id.
func inUse(model interface{}, column string, id uuid.UUID) (bool, error) {
	var count int64
	err := config.DB.Model(model).Where(column+" = ?", id).Limit(1).Count(&count).Error
	return count > 0, err
}

// GetServices lists the catalog. Services without a device type apply to all
// device types and are included in a device type filter.
func GetServices(c *gin.Context) {
	query := config.DB.Preload("DeviceType")
	if c.Query("active_only") == "true" {
		query = query.Where("is_active = ?", true)
	}
	if dt := c.Query("device_type_id"); dt != "" {
		id, err := uuid.Parse(dt)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid device type ID format")
			return
		}
		query = query.Where("device_type_id = ? OR device_type_id IS NULL", id)
	}

	services := []models.Service{}
	if err := query.Order("name").Find(&services).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve services")
		return
	}

	c.JSON(http.StatusOK, services)
}

func GetService(c *gin.Context) {
	id, ok := paramID(c, "id", "service")
	if !ok {
		return
	}

	var service models.Service
	if err := config.DB.Preload("DeviceType").First(&service, "id = ?", id).Error; err != nil {
		dbError(c, err, "Service")
		return
	}

	c.JSON(http.StatusOK, service)
}

func CreateService(c *gin.Context) {
	var input CreateServiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	service := models.Service{
		Name:          strings.TrimSpace(input.Name),
		Description:   input.Description,
		DeviceTypeID:  input.DeviceTypeID,
		BasePrice:     input.BasePrice,
		EstimatedDays: input.EstimatedDays,
		IsActive:      true,
	}
	if service.EstimatedDays == 0 {
		service.EstimatedDays = 1
	}

	if err := config.DB.Create(&service).Error; err != nil {
		dbError(c, err, "Service")
		return
	}

	c.JSON(http.StatusCreated, service)
}

func UpdateService(c *gin.Context) {
	id, ok := paramID(c, "id", "service")
	if !ok {
		return
	}

	var input UpdateServiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var service models.Service
	if err := config.DB.First(&service, "id = ?", id).Error; err != nil {
		dbError(c, err, "Service")
		return
	}

	if input.Name != nil {
		service.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		service.Description = *input.Description
	}
	if input.DeviceTypeID != nil {
		if *input.DeviceTypeID == uuid.Nil {
			service.DeviceTypeID = nil
		} else {
			service.DeviceTypeID = input.DeviceTypeID
		}
	}
	if input.BasePrice != nil {
		service.BasePrice = *input.BasePrice
	}
	if input.EstimatedDays != nil {
		service.EstimatedDays = *input.EstimatedDays
	}
	if input.IsActive != nil {
		service.IsActive = *input.IsActive
	}

	if err := config.DB.Save(&service).Error; err != nil {
		dbError(c, err, "Service")
		return
	}

	c.JSON(http.StatusOK, service)
}

// DeleteService removes a service that no repair references. Referenced
// services should be deactivated instead.
func DeleteService(c *gin.Context) {
	id, ok := paramID(c, "id", "service")
	if !ok {
		return
	}

	used, err := inUse(&models.Repair{}, "service_id", id)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}
	if used {
		utils.RespondWithError(c, http.StatusConflict, "Service is used by repairs, deactivate it instead")
		return
	}

	result := config.DB.Delete(&models.Service{}, "id = ?", id)
	if result.Error != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete service")
		return
	}
	if result.RowsAffected == 0 {
		utils.RespondWithError(c, http.StatusNotFound, "Service not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Service deleted successfully"})
}

func GetDeviceTypes(c *gin.Context) {
	query := config.DB.Order("name")
	if c.Query("all") != "true" {
		query = query.Where("is_active = ?", true)
	}

	types := []models.DeviceType{}
	if err := query.Find(&types).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve device types")
		return
	}
	c.JSON(http.StatusOK, types)
}

func CreateDeviceType(c *gin.Context) {
	var input CatalogItemInput
	if err := c.ShouldBindJSON(&input); err != nil || input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "Name is required")
		return
	}

	dt := models.DeviceType{Name: strings.TrimSpace(*input.Name), IsActive: true}
	if input.Icon != nil {
		dt.Icon = *input.Icon
	}
	if input.IsActive != nil {
		dt.IsActive = *input.IsActive
	}
	if err := config.DB.Create(&dt).Error; err != nil {
		dbError(c, err, "Device type")
		return
	}
	c.JSON(http.StatusCreated, dt)
}

func UpdateDeviceType(c *gin.Context) {
	id, ok := paramID(c, "id", "device type")
	if !ok {
		return
	}
	var input CatalogItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input")
		return
	}

	var dt models.DeviceType
	if err := config.DB.First(&dt, "id = ?", id).Error; err != nil {
		dbError(c, err, "Device type")
		return
	}
	if input.Name != nil {
		dt.Name = strings.TrimSpace(*input.Name)
	}
	if input.Icon != nil {
		dt.Icon = *input.Icon
	}
	if input.IsActive != nil {
		dt.IsActive = *input.IsActive
	}
	if err := config.DB.Save(&dt).Error; err != nil {
		dbError(c, err, "Device type")
		return
	}
	c.JSON(http.StatusOK, dt)
}

func DeleteDeviceType(c *gin.Context) {
	id, ok := paramID(c, "id", "device type")
	if !ok {
		return
	}

	for _, ref := range []struct {
		model  interface{}
		column string
	}{
		{&models.Service{}, "device_type_id"},
		{&models.Repair{}, "device_type_id"},
	} {
		used, err := inUse(ref.model, ref.column, id)
		if err != nil {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
			return
		}
		if used {
			utils.RespondWithError(c, http.StatusConflict, "Device type is in use, deactivate it instead")
			return
		}
	}

	result := config.DB.Delete(&models.DeviceType{}, "id = ?", id)
	if result.Error != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete device type")
		return
	}
	if result.RowsAffected == 0 {
		utils.RespondWithError(c, http.StatusNotFound, "Device type not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Device type deleted successfully"})
}

func GetBrands(c *gin.Context) {
	query := config.DB.Order("name")
	if c.Query("all") != "true" {
		query = query.Where("is_active = ?", true)
	}

	brands := []models.Brand{}
	if err := query.Find(&brands).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve brands")
		return
	}
	c.JSON(http.StatusOK, brands)
}

func CreateBrand(c *gin.Context) {
	var input CatalogItemInput
	if err := c.ShouldBindJSON(&input); err != nil || input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "Name is required")
		return
	}

	brand := models.Brand{Name: strings.TrimSpace(*input.Name), IsActive: true}
	if input.IsActive != nil {
		brand.IsActive = *input.IsActive
	}
	if err := config.DB.Create(&brand).Error; err != nil {
		dbError(c, err, "Brand")
		return
	}
	c.JSON(http.StatusCreated, brand)
}

func UpdateBrand(c *gin.Context) {
	id, ok := paramID(c, "id", "brand")
	if !ok {
		return
	}
	var input CatalogItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input")
		return
	}

	var brand models.Brand
	if err := config.DB.First(&brand, "id = ?", id).Error; err != nil {
		dbError(c, err, "Brand")
		return
	}
	if input.Name != nil {
		brand.Name = strings.TrimSpace(*input.Name)
	}
	if input.IsActive != nil {
		brand.IsActive = *input.IsActive
	}
	if err := config.DB.Save(&brand).Error; err != nil {
		dbError(c, err, "Brand")
		return
	}
	c.JSON(http.StatusOK, brand)
}

func DeleteBrand(c *gin.Context) {
	id, ok := paramID(c, "id", "brand")
	if !ok {
		return
	}

	used, err := inUse(&models.Repair{}, "brand_id", id)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}
	if used {
		utils.RespondWithError(c, http.StatusConflict, "Brand is used by repairs, deactivate it instead")
		return
	}

	result := config.DB.Delete(&models.Brand{}, "id = ?", id)
	if result.Error != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete brand")
		return
	}
	if result.RowsAffected == 0 {
		utils.RespondWithError(c, http.StatusNotFound, "Brand not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Brand deleted successfully"})
}
