package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"ticketbroker/src/common"
	"ticketbroker/src/lib"
	awslib "ticketbroker/src/lib/aws"
	"ticketbroker/src/middlewares"
	"ticketbroker/src/models"
	"ticketbroker/src/types"
	"ticketbroker/src/utils"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// share links are cached a little shorter than the presigned URL lives
const shareLinkTTL = 50 * time.Minute

func (s *server) ticketHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/bookings/:ref/tickets", func(ctx *gin.Context) {
			var params types.ReferenceRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				abortWithBindError(ctx, err)
				return
			}
			tickets, err := s.lifecycle.GenerateTicketsForBooking(ctx.Request.Context(), params.Reference, middlewares.GetActor(ctx))
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": tickets, "count": len(tickets)})
		}).
		GET("/tickets", func(ctx *gin.Context) {
			var query types.TicketListQuery
			if err := ctx.ShouldBindQuery(&query); err != nil {
				abortWithBindError(ctx, err)
				return
			}
			tickets, err := s.lifecycle.ListTickets(ctx.Request.Context(), query.ShowID)
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": tickets, "count": len(tickets)})
		}).
		DELETE("/tickets/:ref", func(ctx *gin.Context) {
			var params types.ReferenceRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				abortWithBindError(ctx, err)
				return
			}
			var body types.DeleteTicketRequestBody
			if ctx.Request.ContentLength > 0 {
				if err := ctx.ShouldBindJSON(&body); err != nil {
					abortWithBindError(ctx, err)
					return
				}
			}
			booking, err := s.lifecycle.DeleteTicket(ctx.Request.Context(), params.Reference, middlewares.GetActor(ctx), body.Reason)
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": booking})
		}).
		POST("/tickets/:ref/toggle", func(ctx *gin.Context) {
			var params types.ReferenceRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				abortWithBindError(ctx, err)
				return
			}
			ticket, err := s.lifecycle.ChangeTicketState(ctx.Request.Context(), params.Reference, middlewares.GetActor(ctx))
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": ticket})
		}).
		POST("/tickets/check", func(ctx *gin.Context) {
			var body types.CheckTicketRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				abortWithBindError(ctx, err)
				return
			}
			ref, err := utils.OpenTicketCode(s.qrKey, body.Code)
			if err != nil {
				log.Printf("Unreadable ticket code: %s\n", err.Error())
				abortWithError(ctx, common.NewValidationError(common.CodeInvalidTicketCode, ""))
				return
			}
			ticket, err := s.lifecycle.CheckTicket(ctx.Request.Context(), ref, middlewares.GetActor(ctx))
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": ticket})
		}).
		GET("/tickets/:ref/qr", func(ctx *gin.Context) {
			var params types.ReferenceRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				abortWithBindError(ctx, err)
				return
			}
			var query struct {
				ShareLink bool `form:"share_link"`
			}
			if err := ctx.ShouldBindQuery(&query); err != nil {
				abortWithBindError(ctx, err)
				return
			}
			ticket, err := s.lifecycle.GetTicket(ctx.Request.Context(), params.Reference)
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			if query.ShareLink {
				url, err := s.shareLink(ctx.Request.Context(), ticket)
				if errors.Is(err, errShareLinksDisabled) {
					ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "share_links_disabled"})
					return
				}
				if err != nil {
					abortWithError(ctx, err)
					return
				}
				ctx.JSON(http.StatusOK, gin.H{"url": url})
				return
			}
			img, err := s.ticketQR(ticket)
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.jpeg"`, ticket.Reference))
			ctx.Data(http.StatusOK, "image/jpeg", img)
		})
	return g
}

var errShareLinksDisabled = errors.New("share links are not configured")

func (s *server) ticketQR(ticket *models.Ticket) ([]byte, error) {
	code, err := utils.SealTicketCode(s.qrKey, ticket.Reference)
	if err != nil {
		return nil, err
	}
	return lib.QRCodeJPEG(code)
}

// shareLink returns a presigned URL for the ticket QR, uploading it to the
// assets bucket on first use. Links are cached per ticket in redis when
// available.
func (s *server) shareLink(ctx context.Context, ticket *models.Ticket) (string, error) {
	if s.cfg.AssetsBucket == "" {
		return "", errShareLinksDisabled
	}
	cacheKey := "qr:" + ticket.Reference
	if s.cache != nil {
		url, err := s.cache.Get(ctx, cacheKey).Result()
		if err == nil {
			return url, nil
		}
		if !errors.Is(err, redis.Nil) {
			log.Printf("[redis] Error reading %s: %s\n", cacheKey, err.Error())
		}
	}
	key := fmt.Sprintf("tickets/%s.jpeg", ticket.Reference)
	url, err := awslib.S3PresignAsset(ctx, s.cfg.AssetsBucket, key)
	if err != nil {
		return "", err
	}
	if url == nil {
		img, err := s.ticketQR(ticket)
		if err != nil {
			return "", err
		}
		url, err = awslib.S3UploadAsset(ctx, s.cfg.AssetsBucket, key, img, "image/jpeg")
		if err != nil {
			return "", err
		}
	}
	if s.cache != nil {
		if err := s.cache.SetEx(ctx, cacheKey, *url, shareLinkTTL).Err(); err != nil {
			log.Printf("[redis] Error caching %s: %s\n", cacheKey, err.Error())
		}
	}
	return *url, nil
}
