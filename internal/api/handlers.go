package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/defiscope/holderwatch/internal/infra/storage"
	"github.com/defiscope/holderwatch/internal/query"
	"github.com/defiscope/holderwatch/internal/reconcile"
)

// handleSync triggers a reconciliation run and returns its summary.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	s.log.Info("received sync request")

	result, err := s.sync.Sync(r.Context())
	switch {
	case errors.Is(err, reconcile.ErrSyncInProgress):
		writeError(w, http.StatusConflict, "sync already in progress")
	case errors.Is(err, reconcile.ErrRunAborted):
		writeJSON(w, http.StatusServiceUnavailable, "sync aborted: current price unavailable", result)
	case err != nil:
		s.log.Error("sync failed", "error", err)
		writeError(w, http.StatusInternalServerError, "sync failed")
	default:
		writeJSON(w, http.StatusOK, "sync completed successfully", result)
	}
}

// handleList serves the paged holder listing.
// Query params: page, size, sortBy, order, minHolding (all optional).
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := s.queries.ListHolders(r.Context(), params)
	switch {
	case errors.Is(err, query.ErrInvalidQuery):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		s.log.Error("holder listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "query failed")
	default:
		writeJSON(w, http.StatusOK, "query successful", page)
	}
}

// handleGet serves a single holder record by exact address key.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")

	holder, err := s.queries.GetHolder(r.Context(), address)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "holder not found for address: "+address)
	case err != nil:
		s.log.Error("holder lookup failed", "address", address, "error", err)
		writeError(w, http.StatusInternalServerError, "query failed")
	default:
		writeJSON(w, http.StatusOK, "query successful", holder)
	}
}

// handleHealth pings all registered dependencies.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	checks := make(map[string]string, len(s.deps))
	code := http.StatusOK

	for name, dep := range s.deps {
		if dep == nil {
			continue
		}
		if err := dep.Health(r.Context()); err != nil {
			checks[name] = err.Error()
			status = "unhealthy"
			code = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	writeJSON(w, code, status, checks)
}

func parseListParams(r *http.Request) (query.ListParams, error) {
	var params query.ListParams
	q := r.URL.Query()

	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil {
			return params, errors.New("page must be an integer")
		}
		params.Page = &page
	}
	if v := q.Get("size"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			return params, errors.New("size must be an integer")
		}
		params.Size = &size
	}
	params.SortBy = externalSortField(q.Get("sortBy"))
	params.Order = q.Get("order")
	if v := q.Get("minHolding"); v != "" {
		min, err := decimal.NewFromString(v)
		if err != nil {
			return params, errors.New("minHolding must be a decimal number")
		}
		params.MinHolding = &min
	}
	return params, nil
}

// externalSortField maps the API's camelCase sort names onto storage column
// names. Unknown values pass through so validation can reject them.
func externalSortField(v string) string {
	switch v {
	case "holdingAmount":
		return storage.SortByHoldingAmount
	case "profitLossPercentage":
		return storage.SortByProfitLossPercentage
	default:
		return v
	}
}
