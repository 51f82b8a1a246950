package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

var ErrInvalidToken = errors.New("invalid token")

// AuthMiddleware accepts HS256 bearer tokens signed with secret. The token
// may also come in the access_token query parameter, for websocket clients
// that cannot set headers. An empty secret disables the check.
func AuthMiddleware(secret string) gin.HandlerFunc {
	if secret == "" {
		return func(c *gin.Context) { c.Next() }
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}))
	key := []byte(secret)
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			token = c.Query("access_token")
		}
		subject, err := authenticate(parser, key, token)
		if err != nil {
			log.Warn().Str("module", "adapters.http").Str("path", c.FullPath()).Msg("unauthorized request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrInvalidToken.Error()})
			return
		}
		c.Set("subject", subject)
		c.Next()
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func authenticate(parser *jwt.Parser, key []byte, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}
	claims := &jwt.RegisteredClaims{}
	_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) { return key, nil })
	if err != nil {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
