package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-floor/database"
	"github.com/yeremiapane/restaurant-floor/middlewares"
	"github.com/yeremiapane/restaurant-floor/models"
	"github.com/yeremiapane/restaurant-floor/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserController struct {
	DB *gorm.DB
}

func NewUserController(db *gorm.DB) *UserController {
	return &UserController{DB: db}
}

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRoleNotAllowed     = errors.New("only an admin can assign a role")
)

func userErrorStatus(err error) int {
	switch {
	case errors.Is(err, database.ErrDuplicateEmail):
		return http.StatusConflict
	case errors.Is(err, database.ErrInvalidRole), errors.Is(err, ErrInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, database.ErrUserNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// Register -> creates a guest account. Roles are handed out by an admin.
func (uc *UserController) Register(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
		Role     string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if role := strings.ToLower(req.Role); role != "" && role != models.RoleGuest {
		utils.RespondError(c, http.StatusForbidden, ErrRoleNotAllowed)
		return
	}

	user, err := database.CreateUser(c.Request.Context(), uc.DB, req.Name, req.Email, req.Password, models.RoleGuest)
	if err != nil {
		utils.RespondError(c, userErrorStatus(err), err)
		return
	}

	utils.InfoLogger.Printf("New user registered: %s (role=%s)", user.Email, user.Role)
	utils.RespondJSON(c, http.StatusCreated, "User registered", gin.H{
		"user_id": user.ID,
		"role":    user.Role,
	})
}

// CreateUser -> admin creates an account with any role
func (uc *UserController) CreateUser(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
		Role     string `json:"role" binding:"required"` // admin, staff, host, guest
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	user, err := database.CreateUser(c.Request.Context(), uc.DB, req.Name, req.Email, req.Password, strings.ToLower(req.Role))
	if err != nil {
		utils.RespondError(c, userErrorStatus(err), err)
		return
	}

	utils.InfoLogger.Printf("User %s created by admin %d (role=%s)", user.Email, c.GetUint(middlewares.ContextUserID), user.Role)
	utils.RespondJSON(c, http.StatusCreated, "User created", user)
}

// UpdateUserRole -> admin changes the role of an account
func (uc *UserController) UpdateUserRole(c *gin.Context) {
	id, err := paramID(c, "user_id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	var req struct {
		Role string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	user, err := database.SetUserRole(c.Request.Context(), uc.DB, id, strings.ToLower(req.Role))
	if err != nil {
		utils.RespondError(c, userErrorStatus(err), err)
		return
	}

	utils.InfoLogger.Printf("User %s is now %s", user.Email, user.Role)
	utils.RespondJSON(c, http.StatusOK, "User role updated", user)
}

// Login -> returns a JWT for the account
func (uc *UserController) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var user models.User
	if err := uc.DB.Where("email = ?", input.Email).First(&user).Error; err != nil {
		utils.RespondError(c, http.StatusUnauthorized, ErrInvalidCredentials)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		utils.RespondError(c, http.StatusUnauthorized, ErrInvalidCredentials)
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Role)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("Login successful for user: %s, role: %s", user.Email, user.Role)
	utils.RespondJSON(c, http.StatusOK, "Login successful", gin.H{
		"token":     token,
		"user_role": user.Role,
	})
}

// Logout -> revokes the token used for this request
func (uc *UserController) Logout(c *gin.Context) {
	token := c.GetString(middlewares.ContextToken)
	if token == "" {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("no token to revoke"))
		return
	}
	utils.BlacklistToken(token)
	utils.RespondJSON(c, http.StatusOK, "Logged out", nil)
}

// GetProfile -> the account behind the token
func (uc *UserController) GetProfile(c *gin.Context) {
	userID := c.GetUint(middlewares.ContextUserID)
	if userID == 0 {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("user id not found in context"))
		return
	}

	var user models.User
	if err := uc.DB.First(&user, userID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Profile data retrieved successfully", user)
}
