package middlewares

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"ticketbroker/src/types"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

const ROLE_ADMIN = "admin"

func jwtKey() []byte {
	return []byte(os.Getenv("JWT_SECRET"))
}

func keyFunc(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
	}
	return jwtKey(), nil
}

// AuthMiddleware admits requests carrying a valid admin token and stores the
// admin as the request actor.
func AuthMiddleware(ctx *gin.Context) {
	bearerToken := ctx.GetHeader("Authorization")
	if !strings.HasPrefix(bearerToken, "Bearer ") {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return
	}
	reqToken := strings.TrimSpace(strings.TrimPrefix(bearerToken, "Bearer "))
	if reqToken == "" || len(jwtKey()) == 0 {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	claims := &types.Claims{}
	tkn, err := jwt.ParseWithClaims(reqToken, claims, keyFunc)
	if err != nil {
		log.Printf("token error: %s\n", err.Error())
		if errors.Is(err, jwt.ErrTokenExpired) {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token expired"})
			return
		}
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if !tkn.Valid {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if claims.Role != ROLE_ADMIN {
		ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	username := claims.Username
	if username == "" {
		username = claims.Subject
	}
	ctx.Set("username", username)
	ctx.Set("role", claims.Role)
	ctx.Set("actor", types.Admin(username))
	ctx.Next()
}

// GetActor returns the actor stored by AuthMiddleware, or the system actor.
func GetActor(ctx *gin.Context) types.Actor {
	if v, ok := ctx.Get("actor"); ok {
		if actor, ok := v.(types.Actor); ok {
			return actor
		}
	}
	return types.System()
}
