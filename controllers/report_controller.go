package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/casaluna/casaluna-api/config"
	"github.com/casaluna/casaluna-api/services"
)

// reportRange parses the ?from= and ?to= query parameters (date or
// RFC3339), defaulting to the last 30 days. Writes the error response
// itself when it returns ok == false.
func reportRange(c *gin.Context) (from, to time.Time, ok bool) {
	to = time.Now()
	from = to.AddDate(0, 0, -30)

	parse := func(value string) (time.Time, bool) {
		if t, err := time.Parse("2006-01-02", value); err == nil {
			return t, true
		}
		if t, err := time.Parse(time.RFC3339, value); err == nil {
			return t, true
		}
		return time.Time{}, false
	}

	if value := c.Query("from"); value != "" {
		t, parsed := parse(value)
		if !parsed {
			respondBadRange(c)
			return from, to, false
		}
		from = t
	}
	if value := c.Query("to"); value != "" {
		t, parsed := parse(value)
		if !parsed {
			respondBadRange(c)
			return from, to, false
		}
		to = t
	}
	if to.Before(from) {
		respondBadRange(c)
		return from, to, false
	}

	return from, to, true
}

func respondBadRange(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "INVALID_DATE_RANGE",
			"message": "from/to must be dates (2006-01-02) or RFC3339 timestamps, with from before to",
		},
	})
}

// GetRevenueByDay handles GET /api/v1/admin/reports/revenue-by-day
func GetRevenueByDay(c *gin.Context) {
	from, to, ok := reportRange(c)
	if !ok {
		return
	}

	reportService := services.NewReportService(config.GetDB())
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    reportService.RevenueByDay(c.Request.Context(), from, to),
	})
}

// GetRevenueByType handles GET /api/v1/admin/reports/revenue-by-type
func GetRevenueByType(c *gin.Context) {
	from, to, ok := reportRange(c)
	if !ok {
		return
	}

	reportService := services.NewReportService(config.GetDB())
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    reportService.RevenueByType(c.Request.Context(), from, to),
	})
}

// GetPopularItems handles GET /api/v1/admin/reports/popular-items
func GetPopularItems(c *gin.Context) {
	from, to, ok := reportRange(c)
	if !ok {
		return
	}

	limit := 10
	if value := c.Query("limit"); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	reportService := services.NewReportService(config.GetDB())
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    reportService.PopularItems(c.Request.Context(), from, to, limit),
	})
}

// GetCompletionTimes handles GET /api/v1/admin/reports/completion-times
func GetCompletionTimes(c *gin.Context) {
	from, to, ok := reportRange(c)
	if !ok {
		return
	}

	reportService := services.NewReportService(config.GetDB())
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    reportService.CompletionPercentiles(c.Request.Context(), from, to),
	})
}

// GetCustomerSegments handles GET /api/v1/admin/reports/customer-segments
func GetCustomerSegments(c *gin.Context) {
	from, to, ok := reportRange(c)
	if !ok {
		return
	}

	reportService := services.NewReportService(config.GetDB())
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    reportService.CustomerSegments(c.Request.Context(), from, to),
	})
}
