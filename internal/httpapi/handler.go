package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/StricklySoft/cypher-gateway/internal/authadapter"
	"github.com/StricklySoft/cypher-gateway/internal/codec"
	"github.com/StricklySoft/cypher-gateway/internal/orchestrator"
	sserr "github.com/StricklySoft/cypher-gateway/pkg/errors"
)

// Orchestrator is the subset of *orchestrator.Orchestrator the HTTP layer
// drives. Declared locally so handler tests can substitute a fake without
// constructing a real evaluator/router pair.
type Orchestrator interface {
	Run(ctx context.Context, principal authadapter.Principal, database string, queries []codec.AnnotatedQuery) *orchestrator.ResultContainer
	Stream(ctx context.Context, principal authadapter.Principal, database string, query codec.AnnotatedQuery) (*orchestrator.StreamResult, error)
}

// NewHandler registers the `/db/{database}/tx/commit` route on mux, wrapped
// with request-ID and authentication middleware. The caller owns mux and
// may register additional routes (e.g. `/healthz`) on the same instance;
// keeping route registration in the caller's hands, rather than this
// package constructing and returning its own *http.Server, is what lets
// cmd/gateway add ambient endpoints without internal/httpapi needing to
// know about them.
func NewHandler(mux *http.ServeMux, orch Orchestrator, adapter *authadapter.Adapter, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{orch: orch}
	chain := requestID(logger)(basicOrBearerAuth(adapter)(http.HandlerFunc(h.commit)))
	mux.Handle("POST /db/{database}/tx/commit", chain)
}

type handler struct {
	orch Orchestrator
}

// commit dispatches to the batch or streaming view per the Accept header,
// per spec.md §6.2.
func (h *handler) commit(w http.ResponseWriter, r *http.Request) {
	database := r.PathValue("database")
	if strings.Contains(r.Header.Get("Accept"), "application/x-ndjson") {
		h.stream(w, r, database)
		return
	}
	h.batch(w, r, database)
}

type legacyError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type batchResponse struct {
	Results       []codec.LegacyResult `json:"results"`
	Notifications []codec.Notification `json:"notifications"`
	Errors        []legacyError        `json:"errors"`
}

func (h *handler) batch(w http.ResponseWriter, r *http.Request, database string) {
	container, err := codec.DecodeQueryContainer(r.Body)
	if err != nil {
		writeError(w, err)
		return
	}

	principal, _ := principalFromContext(r.Context())
	result := h.orch.Run(r.Context(), principal, database, container.Statements)
	if result.AbortErr != nil {
		writeError(w, result.AbortErr)
		return
	}

	resp := batchResponse{
		Notifications: codec.RenderNotifications(result.Notifications),
	}
	for _, eager := range result.Results {
		if eager.Failed() {
			resp.Errors = append(resp.Errors, legacyError{
				Code:    string(sserr.GetCode(eager.Err)),
				Message: eager.Err.Error(),
			})
			continue
		}

		legacy := codec.LegacyResult{Columns: eager.Columns}
		wantGraph := eager.Statement.WantsGraph()
		for _, rec := range eager.Records {
			legacy.Data = append(legacy.Data, codec.RenderLegacyRow(rec.Values, wantGraph))
		}
		if eager.Statement.IncludeStats {
			stats := codec.StatsFromCounters(eager.Summary.Counters())
			legacy.Stats = &stats
		}
		resp.Results = append(resp.Results, legacy)
	}

	writeJSON(w, http.StatusOK, resp)
}

// streamLine is the ndjson line written when a statement fails partway
// through streaming. The batch API has an `errors` array to isolate a
// failure from the rest of the response; a streaming body has already
// committed its 200 status and Content-Type by the time a DATABASE_ERROR
// can occur, so the failure can only be reported as the stream's final
// line instead of an HTTP-level error response.
type streamLine struct {
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
	*codec.StreamRecord
}

func (h *handler) stream(w http.ResponseWriter, r *http.Request, database string) {
	query, err := codec.DecodeAnnotatedQuery(r.Body)
	if err != nil {
		writeError(w, err)
		return
	}

	principal, _ := principalFromContext(r.Context())
	streamResult, err := h.orch.Stream(r.Context(), principal, database, query)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	flusher, canFlush := w.(http.Flusher)

	for rec, recErr := range streamResult.Records {
		if recErr != nil {
			_ = enc.Encode(streamLine{Error: recErr.Error(), Code: string(sserr.GetCode(recErr))})
			if canFlush {
				flusher.Flush()
			}
			return
		}
		row := codec.RenderStreamRecord(rec.Values)
		_ = enc.Encode(streamLine{StreamRecord: &row})
		if canFlush {
			flusher.Flush()
		}
	}

	if streamResult.SummaryErr != nil {
		_ = enc.Encode(streamLine{Error: streamResult.SummaryErr.Error(), Code: string(sserr.GetCode(streamResult.SummaryErr))})
		return
	}
	trailer := codec.StreamSummary{Notifications: codec.RenderNotifications(streamResult.Summary.Notifications())}
	if query.IncludeStats {
		stats := codec.StatsFromCounters(streamResult.Summary.Counters())
		trailer.Stats = &stats
	}
	_ = enc.Encode(trailer)
	if canFlush {
		flusher.Flush()
	}
}
