package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dmmydply/bpizink-forecast-2025/internal/aggregate"
	"github.com/dmmydply/bpizink-forecast-2025/internal/forecast"
	"github.com/dmmydply/bpizink-forecast-2025/internal/service"
	"github.com/dmmydply/bpizink-forecast-2025/internal/stats"
)

type AnalysisHandler struct {
	service *service.AnalysisService
}

func NewAnalysisHandler(service *service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{service: service}
}

// RunAnalysis accepts a mutation ledger (and optional production ledger) and
// returns the full analysis report. A failed stage aborts the request; no
// forecast or recommendation is returned on a failed fit.
func (h *AnalysisHandler) RunAnalysis(c *gin.Context) {
	var req service.AnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	report, err := h.service.Run(c.Request.Context(), req)
	if err != nil {
		errorResponse(c, statusForError(err), err.Error())
		return
	}

	c.JSON(http.StatusOK, report)
}

// statusForError maps the pipeline's failure kinds onto HTTP statuses:
// input problems are the client's, fit failures are unprocessable.
func statusForError(err error) int {
	var (
		aggErr  *aggregate.AggregationError
		statErr *stats.StatisticsError
		divErr  *stats.DivisionError
		fitErr  *forecast.ModelFitError
	)
	switch {
	case errors.As(err, &aggErr), errors.As(err, &statErr), errors.As(err, &divErr):
		return http.StatusBadRequest
	case errors.As(err, &fitErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func errorResponse(c *gin.Context, statusCode int, message string) {
	log.Error().Msg(message)
	c.JSON(statusCode, gin.H{"error": message})
}
