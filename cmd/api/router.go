package api

import (
	"net/http"

	accountDelivery "snapconnect-backend/internal/account/delivery"
	accountRepo "snapconnect-backend/internal/account/repository"
	messageDelivery "snapconnect-backend/internal/message/delivery"
	messageUsecase "snapconnect-backend/internal/message/usecase"
	"snapconnect-backend/pkg/sse"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	r *gin.Engine,
	accounts accountRepo.AccountRepository,
	fcmTokens accountRepo.FCMTokenRepository,
	messageUc messageUsecase.MessageUsecase,
	sseManager *sse.Manager,
) {
	accountHandler := accountDelivery.NewAccountHandler(accounts, fcmTokens)
	messageHandler := messageDelivery.NewMessageHandler(messageUc)
	identity := accountDelivery.IdentityMiddleware(accounts)

	api := r.Group("/api")
	{
		// Health check (no identity required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// SSE endpoint for realtime message delivery
		api.GET("/events", identity, func(c *gin.Context) {
			accountID := c.GetString("accountID")
			sseManager.ServeHTTP(c, accountID)
		})

		// Account provisioning (called by the account service, no identity)
		api.POST("/accounts", accountHandler.CreateAccount)

		// FCM routes (identified)
		fcm := api.Group("/fcm")
		fcm.Use(identity)
		{
			fcm.POST("/register", accountHandler.RegisterFCMToken)
			fcm.DELETE("/:token", accountHandler.UnregisterFCMToken)
		}

		// Message routes (identified)
		messages := api.Group("/messages")
		messages.Use(identity)
		{
			messages.POST("", messageHandler.SendMessage)
			messages.POST("/persona", messageHandler.SendAsPersona)
			messages.PATCH("/:id/viewed", messageHandler.MarkViewed)
		}

		// Conversation routes (identified)
		conversations := api.Group("/conversations")
		conversations.Use(identity)
		{
			conversations.GET("", messageHandler.ListConversations)
			conversations.GET("/:otherId", messageHandler.GetConversation)
		}
	}
}
