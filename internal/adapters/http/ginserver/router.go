// Package ginserver exposes the exporter over HTTP: the Prometheus scrape
// endpoint, a health probe, and a small HTML status page.
package ginserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewRouter assembles the gin engine around the handler.
func NewRouter(h *Handler, middlewares ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	for _, mw := range middlewares {
		r.Use(mw)
	}

	r.RedirectTrailingSlash = false
	r.RemoveExtraSlash = true

	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.String(http.StatusMethodNotAllowed, "method not allowed")
	})

	r.GET("/", h.Index)
	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", h.Metrics)

	return r
}
