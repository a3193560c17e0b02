package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/victornm/showdown/internal/errors"
)

func (a *API) registerHTTP(r gin.IRouter) {
	g := r.Group("/api")
	g.GET("/state", a.handleGetState)
	g.GET("/leaderboard", a.handleGetLeaderboard)
}

func (a *API) handleGetState(c *gin.Context) {
	c.JSON(http.StatusOK, a.ss.State())
}

func (a *API) handleGetLeaderboard(c *gin.Context) {
	l, err := a.getLeaderboard(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, l)
}

func writeError(c *gin.Context, err error) {
	e := errors.Convert(err)
	if e.Code == errors.CodeInternal || e.Code == errors.CodeUnavailable {
		slog.ErrorContext(c.Request.Context(), "api: request failed",
			"path", c.FullPath(),
			"error", err,
		)
	}

	c.AbortWithStatusJSON(e.HTTPStatusCode(), e)
}
