package handler

import (
	"context"
	"crypto/subtle"
	"net/http"
	"ogio/internal/core/domain"
	"ogio/internal/core/port"
	"ogio/internal/core/service"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type Renderer interface {
	Dispatch(ctx context.Context, req service.Request) (domain.Result, error)
}

type URLFilter interface {
	Filter(ctx context.Context, plugin domain.SEOPlugin, contentID int64, original string) string
}

// Image serves rendered share images and the small API around them.
type Image struct {
	renderer   Renderer
	urls       URLFilter
	errors     port.ErrorLog
	adminToken string
}

func NewImage(renderer Renderer, urls URLFilter, errors port.ErrorLog, adminToken string) *Image {
	return &Image{renderer: renderer, urls: urls, errors: errors, adminToken: adminToken}
}

// Render serves /ogio/:id and the legacy ?p= entry points.
func (h *Image) Render(c *gin.Context) {
	noStore(c)

	id := c.Param("id")
	if id == "" {
		raw, ok := c.GetQuery("p")
		if !ok {
			c.String(http.StatusNotFound, "Not found")
			return
		}
		id = raw
	}

	res, err := h.renderer.Dispatch(c.Request.Context(), service.Request{
		ID:        RequestID(c),
		ContentID: id,
	})
	if err != nil {
		failure := domain.AsError(err)
		status := failure.HTTPStatus()
		log.Debug().Str("requestId", RequestID(c)).Str("kind", failure.Kind.String()).
			Str("category", string(failure.Kind.Category())).Int("status", status).Msg("render failed")
		c.String(status, statusText(status))
		return
	}

	c.Data(http.StatusOK, res.ContentType, res.Body)
}

// ImageURL returns the share image URL a SEO plugin should advertise for a content item.
func (h *Image) ImageURL(c *gin.Context) {
	id, err := service.ParseContentID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": statusText(http.StatusBadRequest)})
		return
	}

	plugin := service.ParseSEOPlugin(c.Query("plugin"))
	original := c.Query("original")

	c.JSON(http.StatusOK, gin.H{
		"url":      h.urls.Filter(c.Request.Context(), plugin, id, original),
		"plugin":   plugin,
		"original": original,
	})
}

// Errors lists the retained failures, newest first.
func (h *Image) Errors(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"errors": h.errors.Entries()})
}

func (h *Image) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RequireToken rejects requests without the admin bearer token. An empty token
// disables the guarded routes entirely.
func (h *Image) RequireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.adminToken == "" {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": statusText(http.StatusNotFound)})
			return
		}

		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(h.adminToken)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": statusText(http.StatusUnauthorized)})
			return
		}

		c.Next()
	}
}

func noStore(c *gin.Context) {
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("X-Frame-Options", "DENY")
	c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
}

func statusText(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "Invalid content identifier"
	case http.StatusNotFound:
		return "Image not found"
	case http.StatusUnauthorized:
		return "Unauthorized"
	default:
		return "Internal server error"
	}
}
