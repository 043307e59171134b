package middlewares

import (
	"ticketbroker/src/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func SecureHeaders(ctx *gin.Context) {
	ctx.Header("X-Content-Type-Options", "nosniff")
	ctx.Header("X-Frame-Options", "DENY")
	ctx.Header("Referrer-Policy", "strict-origin-when-cross-origin")
	ctx.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
	if utils.IsProd() {
		ctx.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
	}
	ctx.Next()
}

// RequestID tags every request with an id, reusing the caller's X-Request-ID.
func RequestID(ctx *gin.Context) {
	id := ctx.GetHeader("X-Request-ID")
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	ctx.Set("request_id", id)
	ctx.Header("X-Request-ID", id)
	ctx.Next()
}
