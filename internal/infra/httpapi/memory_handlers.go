package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"genui/internal/domain"
)

type interactionRequest struct {
	InteractionType string         `json:"interaction_type"`
	Content         string         `json:"content"`
	Metadata        map[string]any `json:"metadata"`
}

type stateChangeRequest struct {
	StateKey      string `json:"state_key"`
	StateValue    any    `json:"state_value"`
	PreviousValue any    `json:"previous_value"`
}

type toolOutputRequest struct {
	ToolName string         `json:"tool_name"`
	Inputs   map[string]any `json:"inputs"`
	Output   any            `json:"output"`
	Success  *bool          `json:"success"`
}

type observationRequest struct {
	Observation string `json:"observation"`
	Category    string `json:"category"`
	Importance  int    `json:"importance"`
}

type searchRequest struct {
	Query      string                  `json:"query"`
	Collection domain.MemoryCollection `json:"collection"`
	NResults   int                     `json:"n_results"`
	Where      map[string]any          `json:"where"`
}

func (a *api) memoryRoutes(r chi.Router) {
	r.Use(a.requireMemory)
	r.Get("/health", a.memoryHealth)
	r.Get("/summary", a.memorySummary)
	r.Post("/interaction", a.storeInteraction)
	r.Post("/state", a.storeState)
	r.Get("/state", a.currentState)
	r.Post("/tool", a.storeTool)
	r.Post("/observation", a.storeObservation)
	r.Post("/search", a.searchMemory)
	r.Get("/recent", a.recentInteractions)
	r.Delete("/clear", a.clearMemory)
}

func (a *api) requireMemory(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.memory == nil {
			writeDomainErr(w, domain.ErrMemoryDisabled)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *api) memoryHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "healthy", "session_id": a.memory.SessionID()})
}

func (a *api) memorySummary(w http.ResponseWriter, r *http.Request) {
	summary, err := a.memory.Summary(r.Context())
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *api) storeInteraction(w http.ResponseWriter, r *http.Request) {
	var req interactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainErr(w, err)
		return
	}
	if req.InteractionType == "" {
		writeErr(w, http.StatusBadRequest, domain.CodeInvalidArgument, "interaction_type is required")
		return
	}
	id, err := a.memory.StoreInteraction(r.Context(), req.InteractionType, req.Content, req.Metadata)
	a.writeStored(w, id, err)
}

func (a *api) storeState(w http.ResponseWriter, r *http.Request) {
	var req stateChangeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainErr(w, err)
		return
	}
	if req.StateKey == "" {
		writeErr(w, http.StatusBadRequest, domain.CodeInvalidArgument, "state_key is required")
		return
	}
	id, err := a.memory.StoreStateChange(r.Context(), req.StateKey, req.StateValue, req.PreviousValue)
	a.writeStored(w, id, err)
}

func (a *api) storeTool(w http.ResponseWriter, r *http.Request) {
	var req toolOutputRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainErr(w, err)
		return
	}
	if req.ToolName == "" {
		writeErr(w, http.StatusBadRequest, domain.CodeInvalidArgument, "tool_name is required")
		return
	}
	success := true
	if req.Success != nil {
		success = *req.Success
	}
	id, err := a.memory.StoreToolOutput(r.Context(), req.ToolName, req.Inputs, req.Output, success)
	a.writeStored(w, id, err)
}

func (a *api) storeObservation(w http.ResponseWriter, r *http.Request) {
	var req observationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainErr(w, err)
		return
	}
	if req.Observation == "" {
		writeErr(w, http.StatusBadRequest, domain.CodeInvalidArgument, "observation is required")
		return
	}
	id, err := a.memory.StoreObservation(r.Context(), req.Observation, req.Category, req.Importance)
	a.writeStored(w, id, err)
}

func (a *api) writeStored(w http.ResponseWriter, id string, err error) {
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "id": id})
}

func (a *api) searchMemory(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainErr(w, err)
		return
	}
	results, err := a.memory.SearchContext(r.Context(), req.Query, req.Collection, req.NResults, req.Where)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (a *api) recentInteractions(w http.ResponseWriter, r *http.Request) {
	limit := domain.DefaultRecentInteractionLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeErr(w, http.StatusBadRequest, domain.CodeInvalidArgument, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	interactions, err := a.memory.RecentInteractions(r.Context(), limit)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"interactions": interactions})
}

func (a *api) currentState(w http.ResponseWriter, r *http.Request) {
	state, err := a.memory.CurrentState(r.Context())
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": state})
}

func (a *api) clearMemory(w http.ResponseWriter, r *http.Request) {
	if err := a.memory.Clear(r.Context()); err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "cleared"})
}
