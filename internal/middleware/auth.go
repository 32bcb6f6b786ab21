package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"kpi-service/internal/models"
)

// Context keys set by AuthMiddleware
const (
	ContextUserID   = "user_id"
	ContextUserRole = "user_role"
)

// Claims are the JWT claims this service understands.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AuthMiddleware authenticates requests with a bearer JWT. When no
// Authorization header is present it falls back to the X-User-ID and
// X-User-Role headers set by the API gateway, which strips client-supplied
// copies of those headers at the edge.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")

		if header == "" {
			if fromGatewayHeaders(c) {
				c.Next()
				return
			}
			unauthorized(c, "Missing authorization")
			return
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")
		if tokenString == header {
			unauthorized(c, "Authorization header must use the Bearer scheme")
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(jwtSecret), nil
		})
		if err != nil || !token.Valid {
			unauthorized(c, "Invalid or expired token")
			return
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			unauthorized(c, "Token subject is not a valid user ID")
			return
		}
		role, err := models.ParseRole(claims.Role)
		if err != nil {
			unauthorized(c, "Token carries an unsupported role")
			return
		}

		c.Set(ContextUserID, userID)
		c.Set(ContextUserRole, role)
		c.Next()
	}
}

func fromGatewayHeaders(c *gin.Context) bool {
	rawID := c.GetHeader("X-User-ID")
	rawRole := c.GetHeader("X-User-Role")
	if rawID == "" || rawRole == "" {
		return false
	}

	userID, err := uuid.Parse(rawID)
	if err != nil {
		return false
	}
	role, err := models.ParseRole(rawRole)
	if err != nil {
		return false
	}

	c.Set(ContextUserID, userID)
	c.Set(ContextUserRole, role)
	return true
}

func unauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"message": message,
	})
	c.Abort()
}

// RequireRole allows the request through only when the authenticated user
// holds one of the given roles.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := GetUserRole(c)
		if !ok {
			unauthorized(c, "Missing authorization")
			return
		}
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"message": "Insufficient role for this operation",
		})
		c.Abort()
	}
}

// GetUserID returns the authenticated user's ID from the gin context.
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get(ContextUserID)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	return id, ok
}

// GetUserRole returns the authenticated user's role from the gin context.
func GetUserRole(c *gin.Context) (models.Role, bool) {
	value, exists := c.Get(ContextUserRole)
	if !exists {
		return "", false
	}
	role, ok := value.(models.Role)
	return role, ok
}
