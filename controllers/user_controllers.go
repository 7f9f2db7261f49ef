package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-reservation/services"
	"github.com/yeremiapane/restaurant-reservation/utils"
)

// AuthController issues staff tokens over plain HTTP for the dashboards.
type AuthController struct {
	Credentials *services.CredentialStore
}

func NewAuthController(credentials *services.CredentialStore) *AuthController {
	return &AuthController{Credentials: credentials}
}

func (ac *AuthController) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("username and password are required"))
		return
	}

	role, token, err := ac.Credentials.Login(req.Username, req.Password)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.InfoLogger.Printf("Staff %s logged in as %s", req.Username, role)
	utils.RespondJSON(c, http.StatusOK, "Login successful", gin.H{
		"token": token,
		"role":  role,
	})
}
