package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"repairshop-backend/config"
	"repairshop-backend/models"
	"repairshop-backend/services"
	"repairshop-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CreateCustomerInput defines the expected JSON structure for creating a customer
type CreateCustomerInput struct {
	Email     string `json:"email" binding:"required,email"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

// UpdateCustomerInput defines the expected JSON structure for updating a customer
type UpdateCustomerInput struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
	Address   *string `json:"address"`
	IsActive  *bool   `json:"is_active"`
}

type CustomerSummary struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	Phone         string    `json:"phone"`
	Address       string    `json:"address"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	TotalRepairs  int       `json:"total_repairs"`
	ActiveRepairs int       `json:"active_repairs"`
}

type CustomerStats struct {
	TotalRepairs int     `json:"total_repairs"`
	Completed    int     `json:"completed"`
	Active       int     `json:"active"`
	TotalSpent   float64 `json:"total_spent"`
}

const tempPasswordLength = 10

func pageParams(c *gin.Context, defLimit int) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defLimit)))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = defLimit
	}
	return page, limit
}

func findCustomer(c *gin.Context) (*models.User, bool) {
	id, ok := paramID(c, "id", "customer")
	if !ok {
		return nil, false
	}
	var customer models.User
	if err := config.DB.Where("id = ? AND role = ?", id, models.RoleClient).First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Customer not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return nil, false
	}
	return &customer, true
}

// CreateCustomer registers a client from the admin panel. The temporary
// password is returned once and never stored in clear.
func CreateCustomer(c *gin.Context) {
	var input CreateCustomerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if !utils.ValidatePhone(input.Phone) {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid phone number format")
		return
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	var existing models.User
	if err := config.DB.Where("email = ?", email).First(&existing).Error; err == nil {
		utils.RespondWithError(c, http.StatusConflict, "Email already registered")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}

	tempPassword := utils.GenerateRandomString(tempPasswordLength)
	customer := models.User{
		Email:     email,
		Password:  tempPassword,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Phone:     utils.NormalizePhone(input.Phone),
		Address:   input.Address,
		Role:      models.RoleClient,
		IsActive:  true,
	}
	if err := config.DB.Create(&customer).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":       "Customer created",
		"customer":      customer,
		"temp_password": tempPassword,
	})
}

// GetCustomers lists clients with their repair counts.
func GetCustomers(c *gin.Context) {
	page, limit := pageParams(c, 10)
	search := strings.TrimSpace(c.Query("search"))

	filter := func(db *gorm.DB) *gorm.DB {
		db = db.Where("users.role = ?", models.RoleClient)
		if search != "" {
			like := "%" + strings.ToLower(search) + "%"
			db = db.Where("LOWER(users.first_name) LIKE ? OR LOWER(users.last_name) LIKE ? OR LOWER(users.email) LIKE ? OR users.phone LIKE ?",
				like, like, like, like)
		}
		return db
	}

	var total int64
	if err := config.DB.Model(&models.User{}).Scopes(filter).Count(&total).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to count customers")
		return
	}

	customers := []CustomerSummary{}
	err := config.DB.Model(&models.User{}).
		Scopes(filter).
		Select(`users.id, users.email, users.first_name, users.last_name, users.phone, users.address,
			users.is_active, users.created_at,
			COUNT(repairs.id) AS total_repairs,
			CAST(COALESCE(SUM(CASE WHEN repairs.status NOT IN (?, ?) THEN 1 ELSE 0 END), 0) AS INTEGER) AS active_repairs`,
			models.StatusDelivered, models.StatusCancelled).
		Joins("LEFT JOIN repairs ON repairs.customer_id = users.id").
		Group("users.id, users.email, users.first_name, users.last_name, users.phone, users.address, users.is_active, users.created_at").
		Order("users.created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Scan(&customers).Error
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve customers")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"customers": customers,
		"pagination": gin.H{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": (total + int64(limit) - 1) / int64(limit),
		},
	})
}

// GetCustomer returns a client with repair statistics.
func GetCustomer(c *gin.Context) {
	customer, ok := findCustomer(c)
	if !ok {
		return
	}

	var repairs []models.Repair
	if err := config.DB.Select("status", "total_cost").Where("customer_id = ?", customer.ID).Find(&repairs).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to load repairs")
		return
	}

	var stats CustomerStats
	spent := decimal.Zero
	for _, r := range repairs {
		stats.TotalRepairs++
		switch {
		case r.Status == models.StatusDelivered:
			stats.Completed++
		case !services.IsTerminal(r.Status):
			stats.Active++
		}
		spent = spent.Add(decimal.NewFromFloat(r.TotalCost))
	}
	stats.TotalSpent = spent.Round(2).InexactFloat64()

	c.JSON(http.StatusOK, gin.H{
		"customer": customer,
		"stats":    stats,
	})
}

// GetCustomerRepairs lists the repairs of one client, newest first.
func GetCustomerRepairs(c *gin.Context) {
	customer, ok := findCustomer(c)
	if !ok {
		return
	}
	page, limit := pageParams(c, 10)

	query := config.DB.Where("customer_id = ?", customer.ID)
	if status := c.Query("status"); status != "" {
		if _, err := services.ParseStatus(status); err != nil {
			respondError(c, err)
			return
		}
		query = query.Where("status = ?", status)
	}

	repairs := []models.Repair{}
	err := query.Preload("DeviceType").
		Preload("Brand").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&repairs).Error
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve repairs")
		return
	}

	c.JSON(http.StatusOK, repairs)
}

// UpdateCustomer updates an existing customer
func UpdateCustomer(c *gin.Context) {
	customer, ok := findCustomer(c)
	if !ok {
		return
	}

	var input UpdateCustomerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	updates := map[string]interface{}{}
	if input.FirstName != nil {
		updates["first_name"] = *input.FirstName
	}
	if input.LastName != nil {
		updates["last_name"] = *input.LastName
	}
	if input.Phone != nil {
		if !utils.ValidatePhone(*input.Phone) {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid phone number format")
			return
		}
		updates["phone"] = utils.NormalizePhone(*input.Phone)
	}
	if input.Address != nil {
		updates["address"] = *input.Address
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if len(updates) == 0 {
		utils.RespondWithError(c, http.StatusBadRequest, "No fields to update")
		return
	}

	if err := config.DB.Model(customer).Updates(updates).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update customer")
		return
	}
	if err := config.DB.First(customer, "id = ?", customer.ID).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}

	c.JSON(http.StatusOK, customer)
}
