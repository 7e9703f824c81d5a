package delivery

import (
	"net/http"
	"time"

	"snapconnect-backend/internal/account/domain"
	"snapconnect-backend/internal/account/repository"

	"github.com/gin-gonic/gin"
)

// AccountHandler handles account and device-token HTTP requests
type AccountHandler struct {
	accounts repository.AccountRepository
	tokens   repository.FCMTokenRepository
}

func NewAccountHandler(accounts repository.AccountRepository, tokens repository.FCMTokenRepository) *AccountHandler {
	return &AccountHandler{accounts: accounts, tokens: tokens}
}

// PersonaRequest carries the persona profile for ai_persona accounts
type PersonaRequest struct {
	PersonalityType string            `json:"personality_type" binding:"required"`
	Tone            string            `json:"tone"`
	Interests       []string          `json:"interests"`
	ResponseStyle   string            `json:"response_style"`
	TypingSpeedCPS  float64           `json:"typing_speed_cps"`
	QuietHourStart  int               `json:"quiet_hour_start"`
	QuietHourEnd    int               `json:"quiet_hour_end"`
	RestDays        []time.Weekday    `json:"rest_days"`
	Extra           map[string]string `json:"extra"`
}

// CreateAccountRequest is the request body for account creation
type CreateAccountRequest struct {
	Kind        string          `json:"kind" binding:"required"`
	Username    string          `json:"username" binding:"required"`
	DisplayName string          `json:"display_name"`
	Persona     *PersonaRequest `json:"persona"`
}

// CreateAccount registers a human or ai_persona account. Persona accounts
// must carry a persona profile.
// POST /api/accounts
func (h *AccountHandler) CreateAccount(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	kind := domain.AccountKind(req.Kind)
	if kind != domain.KindHuman && kind != domain.KindAIPersona {
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be human or ai_persona"})
		return
	}
	if kind == domain.KindAIPersona && req.Persona == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ai_persona accounts require a persona profile"})
		return
	}
	if kind == domain.KindHuman && req.Persona != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "human accounts cannot carry a persona profile"})
		return
	}

	account := &domain.Account{
		Kind:        kind,
		Username:    req.Username,
		DisplayName: req.DisplayName,
	}
	var persona *domain.Persona
	if req.Persona != nil {
		persona = &domain.Persona{
			PersonalityType: req.Persona.PersonalityType,
			Tone:            req.Persona.Tone,
			Interests:       req.Persona.Interests,
			ResponseStyle:   req.Persona.ResponseStyle,
			TypingSpeedCPS:  req.Persona.TypingSpeedCPS,
			QuietHourStart:  req.Persona.QuietHourStart,
			QuietHourEnd:    req.Persona.QuietHourEnd,
			RestDays:        req.Persona.RestDays,
			Extra:           req.Persona.Extra,
		}
	}

	if err := h.accounts.Create(account, persona); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, account)
}

// RegisterFCMTokenRequest is the request body for registering a device token
type RegisterFCMTokenRequest struct {
	Token      string `json:"token" binding:"required"`
	DeviceInfo string `json:"device_info"`
}

// RegisterFCMToken registers a device token for push notifications
// POST /api/fcm/register
func (h *AccountHandler) RegisterFCMToken(c *gin.Context) {
	accountID := c.GetString("accountID")

	var req RegisterFCMTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.tokens.SaveToken(accountID, req.Token, req.DeviceInfo); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "token registered"})
}

// UnregisterFCMToken removes a device token
// DELETE /api/fcm/:token
func (h *AccountHandler) UnregisterFCMToken(c *gin.Context) {
	token := c.Param("token")

	if err := h.tokens.DeleteToken(token); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to unregister token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "token unregistered"})
}
