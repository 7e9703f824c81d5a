package delivery

import (
	"net/http"

	"snapconnect-backend/internal/account/repository"

	"github.com/gin-gonic/gin"
)

// IdentityMiddleware resolves the caller from the X-Account-ID header set by
// the auth gateway in front of this service. The account must exist.
func IdentityMiddleware(accounts repository.AccountRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID := c.GetHeader("X-Account-ID")
		if accountID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "X-Account-ID header required"})
			c.Abort()
			return
		}

		account, err := accounts.FindByID(accountID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "account lookup failed"})
			c.Abort()
			return
		}
		if account == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown account"})
			c.Abort()
			return
		}

		c.Set("accountID", account.ID)
		c.Set("accountKind", string(account.Kind))
		c.Next()
	}
}
