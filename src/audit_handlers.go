package main

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"ticketbroker/src/common"
	"ticketbroker/src/config"
	"ticketbroker/src/types"
	"ticketbroker/src/utils"
	"time"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *server) auditHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/audit", func(ctx *gin.Context) {
			var query types.PaginationQuery
			if err := ctx.ShouldBindQuery(&query); err != nil {
				abortWithBindError(ctx, err)
				return
			}
			logs, total, err := common.ListAuditLogs(ctx.Request.Context(), s.db, query.Page, query.Size)
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{
				"data":  logs,
				"count": len(logs),
				"total": total,
				"page":  query.Page,
				"size":  query.Size,
			})
		}).
		GET("/export/bookings.xlsx", func(ctx *gin.Context) {
			bookings, err := s.lifecycle.ListBookings(ctx.Request.Context(), common.BookingFilter{})
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			concert := s.settings.Get(ctx.Request.Context(), config.SETTING_CONCERT_NAME, config.DefaultSettings[config.SETTING_CONCERT_NAME])
			filename := utils.ExportFilename(concert, time.Now())
			var buf bytes.Buffer
			if err := utils.WriteBookingsXLSX(&buf, bookings); err != nil {
				log.Printf("Error writing export: %s\n", err.Error())
				abortWithError(ctx, err)
				return
			}
			ctx.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
			ctx.Data(http.StatusOK, xlsxContentType, buf.Bytes())
		})
	return g
}
