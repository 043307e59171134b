package main

import (
	"net/http"
	"ticketbroker/src/common"
	"ticketbroker/src/middlewares"
	"ticketbroker/src/types"

	"github.com/gin-gonic/gin"
)

// publicBookingHandlers serve the buyer. Every call on an existing booking
// must present the email the booking was made with.
func (s *server) publicBookingHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/bookings", func(ctx *gin.Context) {
			var body types.CreateBookingRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				abortWithBindError(ctx, err)
				return
			}
			out, err := s.lifecycle.CreateBooking(ctx.Request.Context(), common.BookingInput{
				ShowID:         body.ShowID,
				FirstName:      body.FirstName,
				LastName:       body.LastName,
				Email:          body.Email,
				Phone:          body.Phone,
				AdultTickets:   body.AdultTickets,
				StudentTickets: body.StudentTickets,
				GDPRConsent:    body.GDPRConsent,
			})
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			outcomeJSON(ctx, http.StatusCreated, out)
		}).
		GET("/bookings/lookup", func(ctx *gin.Context) {
			var query types.BookingLookupQuery
			if err := ctx.ShouldBindQuery(&query); err != nil {
				abortWithBindError(ctx, err)
				return
			}
			booking, err := s.lifecycle.FindBooking(ctx.Request.Context(), query.Reference, query.Email)
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": booking})
		}).
		POST("/bookings/:ref/payment/initiate", func(ctx *gin.Context) {
			ref, ok := s.bindBuyer(ctx)
			if !ok {
				return
			}
			out, err := s.lifecycle.InitiatePayment(ctx.Request.Context(), ref)
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			outcomeJSON(ctx, http.StatusOK, out)
		}).
		POST("/bookings/:ref/payment/confirm", func(ctx *gin.Context) {
			ref, ok := s.bindBuyer(ctx)
			if !ok {
				return
			}
			out, err := s.lifecycle.BuyerConfirmPayment(ctx.Request.Context(), ref)
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			outcomeJSON(ctx, http.StatusOK, out)
		})
	return g
}

// bindBuyer checks that the email in the body belongs to the booking in the
// path.
func (s *server) bindBuyer(ctx *gin.Context) (string, bool) {
	var params types.ReferenceRequestParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		abortWithBindError(ctx, err)
		return "", false
	}
	var body types.BookingEmailRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		abortWithBindError(ctx, err)
		return "", false
	}
	booking, err := s.lifecycle.FindBooking(ctx.Request.Context(), params.Reference, body.Email)
	if err != nil {
		abortWithError(ctx, err)
		return "", false
	}
	return booking.Reference, true
}

func (s *server) bookingHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/bookings", func(ctx *gin.Context) {
			var query types.BookingListQuery
			if err := ctx.ShouldBindQuery(&query); err != nil {
				abortWithBindError(ctx, err)
				return
			}
			bookings, err := s.lifecycle.ListBookings(ctx.Request.Context(), common.BookingFilter{
				ShowID: query.ShowID,
				Status: types.BookingStatus(query.Status),
			})
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": bookings, "count": len(bookings)})
		}).
		GET("/bookings/:ref", func(ctx *gin.Context) {
			var params types.ReferenceRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				abortWithBindError(ctx, err)
				return
			}
			booking, err := s.lifecycle.GetBooking(ctx.Request.Context(), params.Reference)
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": booking})
		}).
		PUT("/bookings/:ref", func(ctx *gin.Context) {
			var params types.ReferenceRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				abortWithBindError(ctx, err)
				return
			}
			var body types.EditBookingRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				abortWithBindError(ctx, err)
				return
			}
			booking, err := s.lifecycle.EditBooking(ctx.Request.Context(), params.Reference, common.ContactFields{
				FirstName: body.FirstName,
				LastName:  body.LastName,
				Email:     body.Email,
				Phone:     body.Phone,
			}, middlewares.GetActor(ctx))
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": booking})
		}).
		DELETE("/bookings/:ref", func(ctx *gin.Context) {
			var params types.ReferenceRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				abortWithBindError(ctx, err)
				return
			}
			if err := s.lifecycle.DeleteBooking(ctx.Request.Context(), params.Reference, middlewares.GetActor(ctx)); err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.Status(http.StatusNoContent)
		}).
		POST("/bookings/:ref/confirm-payment", func(ctx *gin.Context) {
			var params types.ReferenceRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				abortWithBindError(ctx, err)
				return
			}
			out, err := s.lifecycle.AdminConfirmPayment(ctx.Request.Context(), params.Reference, middlewares.GetActor(ctx))
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			outcomeJSON(ctx, http.StatusOK, out)
		}).
		POST("/bookings/:ref/resend-confirmation", func(ctx *gin.Context) {
			var params types.ReferenceRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				abortWithBindError(ctx, err)
				return
			}
			out, err := s.lifecycle.ResendConfirmation(ctx.Request.Context(), params.Reference, middlewares.GetActor(ctx))
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			outcomeJSON(ctx, http.StatusOK, out)
		}).
		POST("/bookings/:ref/resend-tickets", func(ctx *gin.Context) {
			var params types.ReferenceRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				abortWithBindError(ctx, err)
				return
			}
			out, err := s.lifecycle.ResendTickets(ctx.Request.Context(), params.Reference, middlewares.GetActor(ctx))
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			outcomeJSON(ctx, http.StatusOK, out)
		}).
		POST("/buyers/resend-tickets", func(ctx *gin.Context) {
			var body types.BookingEmailRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				abortWithBindError(ctx, err)
				return
			}
			bookings, warnings, err := s.lifecycle.ResendTicketsForEmail(ctx.Request.Context(), body.Email, middlewares.GetActor(ctx))
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			res := gin.H{"data": bookings, "count": len(bookings)}
			if len(warnings) > 0 {
				res["warnings"] = warnings
			}
			ctx.JSON(http.StatusOK, res)
		})
	return g
}
