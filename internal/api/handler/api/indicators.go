// internal/api/handler/api/indicators.go
package api

import (
	"context"
	"net/http"

	"github.com/newthinker/pairdash/internal/api/response"
	"github.com/newthinker/pairdash/internal/indicator"
)

// IndicatorSource produces indicator bundles.
type IndicatorSource interface {
	FetchAll(ctx context.Context) ([]indicator.StrategyIndicators, error)
	FetchByID(ctx context.Context, id string) (*indicator.StrategyIndicators, error)
}

// IndicatorsHandler serves indicator bundles with their evaluated signal.
type IndicatorsHandler struct {
	source IndicatorSource
}

// NewIndicatorsHandler creates a new indicators handler.
func NewIndicatorsHandler(source IndicatorSource) *IndicatorsHandler {
	return &IndicatorsHandler{source: source}
}

// IndicatorsResponse is one bundle plus its signal.
type IndicatorsResponse struct {
	indicator.StrategyIndicators
	Signal indicator.SignalState `json:"signal"`
}

// List returns a bundle for every strategy.
func (h *IndicatorsHandler) List(w http.ResponseWriter, r *http.Request) {
	all, err := h.source.FetchAll(r.Context())
	if err != nil {
		response.Fail(w, err)
		return
	}
	out := make([]IndicatorsResponse, 0, len(all))
	for _, si := range all {
		out = append(out, withSignal(si))
	}
	response.JSON(w, http.StatusOK, out)
}

// Get returns the bundle of one strategy.
func (h *IndicatorsHandler) Get(w http.ResponseWriter, r *http.Request) {
	si, err := h.source.FetchByID(r.Context(), r.PathValue("id"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, withSignal(*si))
}

func withSignal(si indicator.StrategyIndicators) IndicatorsResponse {
	return IndicatorsResponse{StrategyIndicators: si, Signal: indicator.Evaluate(si)}
}
