// internal/api/handler/api/connection.go
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/newthinker/pairdash/internal/api/job"
	"github.com/newthinker/pairdash/internal/api/response"
	"github.com/newthinker/pairdash/internal/core"
	"github.com/newthinker/pairdash/internal/session"
)

// SessionManager defines what the connection endpoints need from session.Manager.
type SessionManager interface {
	State() session.State
	Connect(ctx context.Context, creds core.Credentials) (*core.AccountSnapshot, error)
	Disconnect(ctx context.Context) error
	Reconnect(ctx context.Context) (*core.AccountSnapshot, error)
	Refresh(ctx context.Context) (*core.AccountSnapshot, error)
}

// ConnectionHandler handles connection lifecycle API requests.
type ConnectionHandler struct {
	session SessionManager
	jobs    *job.Store
}

// NewConnectionHandler creates a new connection handler.
func NewConnectionHandler(s SessionManager, jobs *job.Store) *ConnectionHandler {
	return &ConnectionHandler{session: s, jobs: jobs}
}

// ConnectRequest is the request body for a login.
type ConnectRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Server   string `json:"server"`
	Terminal string `json:"terminal"`
}

// Get returns the current session state.
func (h *ConnectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.session.State())
}

// Connect logs in. With ?async=true it answers 202 with a job to poll.
func (h *ConnectionHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Fail(w, core.WrapError(core.ErrBadRequest, err))
		return
	}
	creds := core.Credentials(req)

	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		// Reject incomplete credentials up front rather than in the job.
		if err := creds.Validate(); err != nil {
			response.Fail(w, err)
			return
		}
		j := h.jobs.Run(context.WithoutCancel(r.Context()), "connect", func(ctx context.Context) (any, error) {
			if _, err := h.session.Connect(ctx, creds); err != nil {
				return nil, err
			}
			return h.session.State(), nil
		})
		response.JSON(w, http.StatusAccepted, map[string]any{
			"job_id": j.ID,
			"status": j.Status,
		})
		return
	}

	if _, err := h.session.Connect(r.Context(), creds); err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, h.session.State())
}

// Disconnect ends the session.
func (h *ConnectionHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Disconnect(r.Context()); err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, h.session.State())
}

// Reconnect logs in again with the remembered credentials.
func (h *ConnectionHandler) Reconnect(w http.ResponseWriter, r *http.Request) {
	if _, err := h.session.Reconnect(r.Context()); err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, h.session.State())
}

// Refresh reloads the account figures from the terminal.
func (h *ConnectionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if _, err := h.session.Refresh(r.Context()); err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, h.session.State())
}
