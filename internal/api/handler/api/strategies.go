// internal/api/handler/api/strategies.go
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/newthinker/pairdash/internal/api/response"
	"github.com/newthinker/pairdash/internal/core"
	"github.com/newthinker/pairdash/internal/strategy"
)

// StrategyStore defines the persistence the strategy endpoints need.
type StrategyStore interface {
	List(ctx context.Context) ([]strategy.Strategy, error)
	Get(ctx context.Context, id string) (*strategy.Strategy, error)
	Save(ctx context.Context, st strategy.Strategy) (*strategy.Strategy, error)
	Delete(ctx context.Context, id string) error
}

// StrategiesHandler handles strategy CRUD requests.
type StrategiesHandler struct {
	store StrategyStore
}

// NewStrategiesHandler creates a new strategies handler.
func NewStrategiesHandler(store StrategyStore) *StrategiesHandler {
	return &StrategiesHandler{store: store}
}

// StrategyRequest is the body of create and update requests.
type StrategyRequest struct {
	Name       string               `json:"name"`
	Parameters *strategy.Parameters `json:"parameters"`
}

// List returns every saved strategy.
func (h *StrategiesHandler) List(w http.ResponseWriter, r *http.Request) {
	all, err := h.store.List(r.Context())
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"strategies": all,
		"count":      len(all),
	})
}

// Defaults returns the default parameters and the allowed choices.
func (h *StrategiesHandler) Defaults(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]any{
		"parameters":     strategy.DefaultParameters(),
		"timeframes":     strategy.Timeframes,
		"currency_pairs": strategy.CurrencyPairs,
	})
}

// Get returns one strategy.
func (h *StrategiesHandler) Get(w http.ResponseWriter, r *http.Request) {
	st, err := h.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, st)
}

// Create saves a new strategy. Missing parameters take the defaults.
func (h *StrategiesHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeStrategy(w, r)
	if !ok {
		return
	}
	params := strategy.DefaultParameters()
	if req.Parameters != nil {
		params = *req.Parameters
	}

	st, err := h.store.Save(r.Context(), strategy.Strategy{Name: req.Name, Parameters: params})
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, st)
}

// Update replaces the name and parameters of an existing strategy.
func (h *StrategiesHandler) Update(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeStrategy(w, r)
	if !ok {
		return
	}
	if req.Parameters == nil {
		response.Fail(w, core.WithMessage(core.ErrBadRequest, "parameters are required"))
		return
	}

	st, err := h.store.Save(r.Context(), strategy.Strategy{
		ID:         r.PathValue("id"),
		Name:       req.Name,
		Parameters: *req.Parameters,
	})
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, st)
}

// Delete removes a strategy.
func (h *StrategiesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.store.Delete(r.Context(), id); err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"deleted": id})
}

func decodeStrategy(w http.ResponseWriter, r *http.Request) (StrategyRequest, bool) {
	var req StrategyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Fail(w, core.WrapError(core.ErrBadRequest, err))
		return req, false
	}
	return req, true
}
