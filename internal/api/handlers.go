package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"koabot/internal/item"
	"koabot/internal/itemparser"
	"koabot/internal/ops"
	"koabot/internal/report"
	"koabot/internal/storage"
)

// writeServiceError maps service errors to HTTP statuses. Parse failures
// carry a message meant for staff and are passed through as is.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var le *itemparser.LineError
	var pe *item.ParseError
	switch {
	case errors.As(err, &le), errors.As(err, &pe):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ops.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	default:
		s.log.WithError(err).WithField("path", r.URL.Path).Error("request failed")
		writeError(w, http.StatusInternalServerError, "Internal error")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   s.now().UTC().Format(time.RFC3339),
	})
}

// ParseRequest is the body of POST /parse.
type ParseRequest struct {
	Text  string `json:"text"`
	Kind  string `json:"kind,omitempty"` // "wastage" enables the "motivo:" line.
	Trace bool   `json:"trace,omitempty"`
}

// ParseResponse lists parsed items, or per-line traces when asked.
type ParseResponse struct {
	Items  []item.Line         `json:"items,omitempty"`
	Reason string              `json:"reason,omitempty"`
	Traces []*itemparser.Trace `json:"traces,omitempty"`
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req ParseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	var resp ParseResponse
	text := req.Text
	if req.Kind == "wastage" {
		text, resp.Reason = itemparser.SplitReason(text)
	}

	if req.Trace {
		for _, line := range strings.Split(text, "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			resp.Traces = append(resp.Traces, itemparser.TraceLine(line))
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	lines, err := s.svc.ParseText(r.Context(), text, "api")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	resp.Items = lines
	writeJSON(w, http.StatusOK, resp)
}

type upsertUserRequest struct {
	TelegramID string `json:"telegram_id"`
	Name       string `json:"name"`
}

func (s *Server) handleUpsertUser(w http.ResponseWriter, r *http.Request) {
	var req upsertUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id, err := s.svc.UpsertUser(r.Context(), req.TelegramID, req.Name)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"user_id": id})
}

func (s *Server) handleCreateReception(w http.ResponseWriter, r *http.Request) {
	var req ops.ReceptionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rec, err := s.svc.CreateReception(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleCreateWastage(w http.ResponseWriter, r *http.Request) {
	var req ops.WastageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ws, err := s.svc.CreateWastage(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ws)
}

func (s *Server) handleCreateWastageBatch(w http.ResponseWriter, r *http.Request) {
	var req ops.WastageBatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ws, err := s.svc.CreateWastageBatch(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ws)
}

func (s *Server) handleCreateProduction(w http.ResponseWriter, r *http.Request) {
	var req ops.ProductionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := s.svc.CreateProduction(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// dateRange reads from and to, defaulting to the current week.
func (s *Server) dateRange(r *http.Request) (string, string) {
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	if from == "" && to == "" {
		return ops.CurrentWeek(s.now())
	}
	if to == "" {
		to = from
	}
	if from == "" {
		from = to
	}
	return from, to
}

func (s *Server) handleListReceptions(w http.ResponseWriter, r *http.Request) {
	from, to := s.dateRange(r)
	list, err := s.svc.Receptions(r.Context(), from, to)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleListWastages(w http.ResponseWriter, r *http.Request) {
	from, to := s.dateRange(r)
	list, err := s.svc.Wastages(r.Context(), from, to)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleListProductions(w http.ResponseWriter, r *http.Request) {
	from, to := s.dateRange(r)
	list, err := s.svc.Productions(r.Context(), from, to)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func limitParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return ops.DefaultRecent
	}
	if n > 50 {
		return 50
	}
	return n
}

func (s *Server) handleRecentSuppliers(w http.ResponseWriter, r *http.Request) {
	names, err := s.svc.RecentSuppliers(r.Context(), limitParam(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"suppliers": names})
}

func (s *Server) handleRecentBatches(w http.ResponseWriter, r *http.Request) {
	names, err := s.svc.RecentBatches(r.Context(), limitParam(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"batches": names})
}

type undoRequest struct {
	ChatID string `json:"chat_id"`
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	var req undoRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	op, err := s.svc.Undo(r.Context(), req.ChatID)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "No hay operaciones para deshacer")
		return
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, op)
}

func (s *Server) handleWeeklyReport(w http.ResponseWriter, r *http.Request) {
	from, to := s.dateRange(r)
	weekly, err := report.Build(r.Context(), s.reports, from, to, s.now())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	pdf, err := report.Bytes(weekly)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if s.archive != nil && r.URL.Query().Get("archive") == "true" {
		key, err := s.archive.Put(r.Context(), from, to, pdf)
		if err != nil {
			s.log.WithError(err).WithField("from", from).Warn("report archive failed")
		} else {
			w.Header().Set("X-Report-Key", key)
		}
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.Filename(from, to)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (s *Server) handleGrammarStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		writeError(w, http.StatusNotFound, "Line audit is disabled")
		return
	}
	since := s.now().AddDate(0, 0, -7)
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)")
			return
		}
		since = t
	}
	stats, err := s.stats.GrammarStats(r.Context(), since)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"since": since.UTC().Format(time.RFC3339),
		"stats": stats,
	})
}
