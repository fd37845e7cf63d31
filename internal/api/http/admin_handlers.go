package http

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Dump writes the service state as plain text
func (h *Handlers) Dump(c *gin.Context) {
	var buf bytes.Buffer
	h.service.Dump(&buf)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", buf.Bytes())
}

// ListDuckingPackages returns the packages allowed to receive ducking events
func (h *Handlers) ListDuckingPackages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"packages": h.permissions.List()})
}

// GrantDucking allows a package to receive ducking events
func (h *Handlers) GrantDucking(c *gin.Context) {
	pkg := c.Param("package")
	if !h.permissions.Grant(pkg) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "package name is required"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"package": pkg, "granted": true})
}

// RevokeDucking withdraws a package's ducking events entitlement
func (h *Handlers) RevokeDucking(c *gin.Context) {
	pkg := c.Param("package")
	if !h.permissions.Revoke(pkg) {
		c.JSON(http.StatusNotFound, gin.H{"error": "package not granted: " + pkg})
		return
	}
	c.JSON(http.StatusOK, gin.H{"package": pkg, "granted": false})
}

// DuckingAudit returns the most recent entitlement checks, optionally for a
// single package (?package=) and bounded by ?limit=.
func (h *Handlers) DuckingAudit(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit: " + raw})
			return
		}
		limit = n
	}
	c.JSON(http.StatusOK, gin.H{"entries": h.permissions.Audit(c.Query("package"), limit)})
}
