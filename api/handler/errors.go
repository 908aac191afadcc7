package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/tablescout/models"
)

// respondError writes err as an ErrorResponse with a matching status.
func respondError(c *gin.Context, err error) {
	scrapeErr := models.AsScrapeError(err)
	c.JSON(mapErrorToStatus(scrapeErr.Code), models.ErrorResponse{
		Success: false,
		Error:   scrapeErr.ToDetail(),
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(code string) int {
	switch code {
	case models.ErrCodePageLoadTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation, models.ErrCodePagination:
		return http.StatusBadGateway // 502
	case models.ErrCodeInvalidInput, models.ErrCodeInvalidProfile:
		return http.StatusBadRequest // 400
	case models.ErrCodeProfileNotFound, models.ErrCodeJobNotFound:
		return http.StatusNotFound // 404
	case models.ErrCodeJobConflict:
		return http.StatusConflict // 409
	case models.ErrCodeNoRecords:
		return http.StatusUnprocessableEntity // 422
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
