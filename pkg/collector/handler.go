package collector

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/JailtonJunior94/logkit/pkg/logentry"
)

// IngestResponse summarizes one received batch.
type IngestResponse struct {
	Accepted int           `json:"accepted"`
	Rejected int           `json:"rejected"`
	Errors   []RecordError `json:"errors,omitempty"`
}

// RecordError explains why the record at Index was rejected.
type RecordError struct {
	Index  int    `json:"index"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ListResponse is the body of GET /api/logs.
type ListResponse struct {
	Records []Record `json:"records"`
	Total   int      `json:"total"`
	Evicted uint64   `json:"evicted"`
}

// ingestHandler accepts a JSON array of wire records. Valid records are
// stored, invalid ones reported by index. A batch where every record is
// invalid answers 422 so senders treat it as permanent.
func (s *Server) ingestHandler(w http.ResponseWriter, r *http.Request) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil || raw == nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeErrorResponse(w, r, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		writeErrorResponse(w, r, http.StatusBadRequest, "Body must be a JSON array of log records")
		return
	}

	s.metrics.Batches.Inc()
	requestID := RequestIDFromContext(r.Context())
	now := time.Now().UTC()

	resp := IngestResponse{}
	accepted := make([]Record, 0, len(raw))
	for i, item := range raw {
		var entry map[string]any
		if err := json.Unmarshal(item, &entry); err != nil {
			resp.Errors = append(resp.Errors, RecordError{Index: i, Field: "record", Reason: "must be a JSON object"})
			continue
		}

		if err := s.validator.ValidateRecord(entry); err != nil {
			recErr := RecordError{Index: i, Field: "record", Reason: err.Error()}
			var verr *logentry.ValidationError
			if errors.As(err, &verr) {
				recErr.Field = verr.Field
				recErr.Reason = verr.Reason
			}
			resp.Errors = append(resp.Errors, recErr)
			continue
		}

		accepted = append(accepted, Record{ReceivedAt: now, RequestID: requestID, Entry: entry})
		s.logger.InfoContext(r.Context(), "log record received",
			"level", entry["level"],
			"layer", entry["layer"],
			"module", entry["module"],
			"function", entry["function"],
			"message", entry["message"],
		)
	}

	s.store.Add(accepted...)
	resp.Accepted = len(accepted)
	resp.Rejected = len(resp.Errors)
	s.metrics.Records.WithLabelValues("accepted").Add(float64(resp.Accepted))
	s.metrics.Records.WithLabelValues("rejected").Add(float64(resp.Rejected))

	if resp.Rejected > 0 {
		s.logger.WarnContext(r.Context(), "log records rejected",
			"request_id", requestID,
			"accepted", resp.Accepted,
			"rejected", resp.Rejected,
		)
	}

	code := http.StatusAccepted
	if len(raw) > 0 && resp.Accepted == 0 {
		code = http.StatusUnprocessableEntity
	}
	writeJSON(w, code, resp)
}

// listHandler returns stored records. Supports ?level= (minimum level) and
// ?limit= (newest N).
func (s *Server) listHandler(w http.ResponseWriter, r *http.Request) {
	var minLevel logentry.Level
	if raw := r.URL.Query().Get("level"); raw != "" {
		lvl, err := logentry.ParseLevel(raw)
		if err != nil {
			writeErrorResponse(w, r, http.StatusBadRequest, err.Error())
			return
		}
		minLevel = lvl
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeErrorResponse(w, r, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	records := s.store.List(minLevel, limit)
	writeJSON(w, http.StatusOK, ListResponse{
		Records: records,
		Total:   len(records),
		Evicted: s.store.Evicted(),
	})
}

func (s *Server) resetHandler(w http.ResponseWriter, _ *http.Request) {
	s.store.Reset()
	w.WriteHeader(http.StatusNoContent)
}
