package main

import (
	"net/http"
	"ticketbroker/src/middlewares"
	"ticketbroker/src/types"

	"github.com/gin-gonic/gin"
)

func (s *server) publicShowHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/shows", func(ctx *gin.Context) {
			shows, err := s.lifecycle.ListShows(ctx.Request.Context())
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": shows, "count": len(shows)})
		}).
		GET("/shows/:id/availability", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				abortWithBindError(ctx, err)
				return
			}
			availability, err := s.lifecycle.CheckAvailability(ctx.Request.Context(), params.ID)
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": availability})
		})
	return g
}

func (s *server) showHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/shows", func(ctx *gin.Context) {
			var body types.CreateShowRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				abortWithBindError(ctx, err)
				return
			}
			show, err := s.lifecycle.CreateShow(ctx.Request.Context(), body.Date, body.StartTime, body.EndTime, body.TotalTickets, middlewares.GetActor(ctx))
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": show})
		}).
		DELETE("/shows/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				abortWithBindError(ctx, err)
				return
			}
			if err := s.lifecycle.DeleteShow(ctx.Request.Context(), params.ID, middlewares.GetActor(ctx)); err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.Status(http.StatusNoContent)
		}).
		PUT("/shows/:id/capacity", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				abortWithBindError(ctx, err)
				return
			}
			var body types.UpdateCapacityRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				abortWithBindError(ctx, err)
				return
			}
			show, err := s.lifecycle.UpdateCapacity(ctx.Request.Context(), params.ID, body.TotalTickets, body.AvailableTickets, middlewares.GetActor(ctx))
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": show})
		})
	return g
}
