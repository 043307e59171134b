package main

import (
	"net/http"
	"ticketbroker/src/middlewares"
	"ticketbroker/src/types"

	"github.com/gin-gonic/gin"
)

func (s *server) publicSettingsHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.GET("/settings/public", func(ctx *gin.Context) {
		c := ctx.Request.Context()
		ctx.JSON(http.StatusOK, gin.H{
			"data":   s.settings.Public(c),
			"prices": s.settings.Prices(c),
		})
	})
	return g
}

func (s *server) settingsHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/settings", func(ctx *gin.Context) {
			all, err := s.settings.All(ctx.Request.Context())
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": all})
		}).
		PUT("/settings", func(ctx *gin.Context) {
			var body types.UpdateSettingsRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				abortWithBindError(ctx, err)
				return
			}
			if err := s.settings.SetMany(ctx.Request.Context(), body.Settings, middlewares.GetActor(ctx)); err != nil {
				abortWithError(ctx, err)
				return
			}
			all, err := s.settings.All(ctx.Request.Context())
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": all})
		})
	return g
}
