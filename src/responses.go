package main

import (
	"errors"
	"log"
	"net/http"
	"ticketbroker/src/common"

	"github.com/gin-gonic/gin"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, common.ErrInvalidState):
		return http.StatusUnprocessableEntity
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError writes err as {"error": code, "message": text}.
// Unclassified errors are logged and hidden behind a generic message.
func abortWithError(ctx *gin.Context, err error) {
	status := statusFor(err)
	code := common.ErrorCode(err)
	if status == http.StatusInternalServerError {
		log.Printf("Error on %s %s: %s\n", ctx.Request.Method, ctx.FullPath(), err.Error())
		code = "internal_error"
	}
	ctx.AbortWithStatusJSON(status, gin.H{
		"error":   code,
		"message": common.LocalizedMessage(err),
	})
}

func abortWithBindError(ctx *gin.Context, err error) {
	log.Printf("Error while parsing request: %s\n", err.Error())
	ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error":   "invalid_request",
		"message": err.Error(),
	})
}

func outcomeJSON(ctx *gin.Context, status int, out *common.Outcome) {
	body := gin.H{"data": out.Booking}
	if len(out.Tickets) > 0 {
		body["tickets"] = out.Tickets
	}
	if out.PaymentURL != "" {
		body["swish_url"] = out.PaymentURL
	}
	if out.AlreadyConfirmed {
		body["already_confirmed"] = true
	}
	if len(out.Warnings) > 0 {
		body["warnings"] = out.Warnings
	}
	ctx.JSON(status, body)
}
