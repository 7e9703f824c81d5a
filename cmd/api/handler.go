package api

import (
	accountRepo "snapconnect-backend/internal/account/repository"
	messageUsecase "snapconnect-backend/internal/message/usecase"
	"snapconnect-backend/pkg/config"
	"snapconnect-backend/pkg/sse"

	"github.com/gin-gonic/gin"
)

// Handler owns the HTTP surface; everything it serves is injected from main
type Handler struct {
	accounts   accountRepo.AccountRepository
	fcmTokens  accountRepo.FCMTokenRepository
	messageUc  messageUsecase.MessageUsecase
	sseManager *sse.Manager
	config     *config.Config
}

func NewHandler(
	accounts accountRepo.AccountRepository,
	fcmTokens accountRepo.FCMTokenRepository,
	messageUc messageUsecase.MessageUsecase,
	sseManager *sse.Manager,
	cfg *config.Config,
) *Handler {
	return &Handler{
		accounts:   accounts,
		fcmTokens:  fcmTokens,
		messageUc:  messageUc,
		sseManager: sseManager,
		config:     cfg,
	}
}

func (h *Handler) Start(addr string) error {
	r := gin.Default()
	gin.SetMode(gin.ReleaseMode)

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Cache-Control, X-Requested-With, X-Account-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h.accounts, h.fcmTokens, h.messageUc, h.sseManager)

	return r.Run(addr)
}
