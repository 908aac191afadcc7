package handler

import (
	"net/http"
	"testing"

	"github.com/use-agent/tablescout/models"
)

func TestMapErrorToStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{models.ErrCodePageLoadTimeout, http.StatusGatewayTimeout},
		{models.ErrCodeNavigation, http.StatusBadGateway},
		{models.ErrCodePagination, http.StatusBadGateway},
		{models.ErrCodeInvalidProfile, http.StatusBadRequest},
		{models.ErrCodeProfileNotFound, http.StatusNotFound},
		{models.ErrCodeJobConflict, http.StatusConflict},
		{models.ErrCodeNoRecords, http.StatusUnprocessableEntity},
		{models.ErrCodeRateLimited, http.StatusTooManyRequests},
		{models.ErrCodeUnauthorized, http.StatusUnauthorized},
		{models.ErrCodeBrowserLaunch, http.StatusInternalServerError},
		{models.ErrCodeSinkWrite, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := mapErrorToStatus(tt.code); got != tt.want {
				t.Errorf("mapErrorToStatus(%s) = %d, want %d", tt.code, got, tt.want)
			}
		})
	}
}
