package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/issue-tracker/internal/repository"
)

// DashboardHandler serves the aggregate views backing the dashboard.
type DashboardHandler struct {
	Stats *repository.StatsRepo
	Audit *repository.AuditRepo
}

func NewDashboardHandler(stats *repository.StatsRepo, audit *repository.AuditRepo) *DashboardHandler {
	if stats == nil || audit == nil {
		panic("nil repository passed to NewDashboardHandler")
	}
	return &DashboardHandler{Stats: stats, Audit: audit}
}

// GetStats returns issue counts grouped by status, priority and type.  The
// route sits behind the response cache so refresh storms hit Redis, not
// three GROUP BY queries.
func (h *DashboardHandler) GetStats(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	stats, err := h.Stats.Collect(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// GetActivity returns the most recent audit entries across all issues,
// newest first, capped at 100.
func (h *DashboardHandler) GetActivity(c echo.Context) error {
	limit := 20
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	entries, err := h.Audit.RecentActivity(ctx, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAuditResps(entries))
}
