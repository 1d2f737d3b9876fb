package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/pkg/jwt"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/pkg/response"
)

// Context keys set for downstream handlers
const (
	ctxTeacherID = "teacher_id"
	ctxClaims    = "claims"
)

// Blacklist revoked token lookup; *redis.Client satisfies it
type Blacklist interface {
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// JWTAuth validates the access token in `Authorization: Bearer <token>`.
// blacklist may be nil, in which case revoked tokens are not checked.
func JWTAuth(jwtMgr *jwt.Manager, blacklist Blacklist, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, 10002, "Header Authorization tidak ada")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, 10002, "Format header Authorization tidak valid")
			c.Abort()
			return
		}

		claims, err := jwtMgr.ParseToken(parts[1])
		if err != nil {
			response.Unauthorized(c, 10002, "Token tidak valid atau kedaluwarsa")
			c.Abort()
			return
		}

		if claims.TokenType != jwt.TokenTypeAccess {
			response.Unauthorized(c, 10002, "Jenis token tidak valid")
			c.Abort()
			return
		}

		if blacklist != nil {
			revoked, err := blacklist.IsBlacklisted(c.Request.Context(), claims.ID)
			if err != nil {
				// redis trouble degrades to signature-only checks
				logger.Warn("token blacklist lookup failed", zap.Error(err))
			} else if revoked {
				response.Unauthorized(c, 10002, "Token sudah dicabut")
				c.Abort()
				return
			}
		}

		c.Set(ctxTeacherID, claims.TeacherID)
		c.Set(ctxClaims, claims)

		c.Next()
	}
}
