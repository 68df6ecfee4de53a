package http

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	RoleClient       = "client"
	RoleProfessional = "professional"
	RoleShopAdmin    = "shop_admin"
)

const (
	ctxCallerID = "callerID"
	ctxRole     = "callerRole"
	ctxShopID   = "callerShopID"
)

// Claims is the token shape issued by the auth service. The subject is the
// caller's id: client id for clients, professional id for professionals.
type Claims struct {
	Role   string `json:"role"`
	ShopID string `json:"shop_id,omitempty"`
	jwt.RegisteredClaims
}

// RequireAuth validates the bearer token and stores the caller identity in
// the request context. Token issuance itself lives in the auth service.
func RequireAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			unauthorized(c, "authorization header required")
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			unauthorized(c, "invalid authorization header format")
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			unauthorized(c, "invalid token")
			return
		}

		callerID, err := uuid.Parse(claims.Subject)
		if err != nil {
			unauthorized(c, "invalid token subject")
			return
		}

		c.Set(ctxCallerID, callerID)
		c.Set(ctxRole, claims.Role)
		if claims.ShopID != "" {
			if shopID, err := uuid.Parse(claims.ShopID); err == nil {
				c.Set(ctxShopID, shopID)
			}
		}
		c.Next()
	}
}

// RequireRole gates a route group to the given roles. Must run after
// RequireAuth.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := callerRole(c)
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		forbidden(c, "you do not have permission to access this resource")
	}
}

func callerID(c *gin.Context) uuid.UUID {
	v, ok := c.Get(ctxCallerID)
	if !ok {
		return uuid.Nil
	}
	id, _ := v.(uuid.UUID)
	return id
}

func callerRole(c *gin.Context) string {
	v, ok := c.Get(ctxRole)
	if !ok {
		return ""
	}
	role, _ := v.(string)
	return role
}

func callerShopID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ctxShopID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
