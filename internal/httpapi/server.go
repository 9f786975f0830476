package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/qrscan/internal/qrscan/classify"
	"github.com/BrandonDHaskell/qrscan/internal/qrscan/service"
	"github.com/BrandonDHaskell/qrscan/internal/qrscan/types"
)

type Dependencies struct {
	Logger      *zap.Logger
	Addr        string
	History     *service.HistoryService
	Preferences *service.Preferences
	Generator   *service.Generator

	// DefaultSize is used by /v1/generate when the request omits size.
	DefaultSize int
	// Now stamps export file names.  Defaults to time.Now.
	Now func() time.Time
}

type Server struct {
	httpServer  *http.Server
	logger      *zap.Logger
	mux         *http.ServeMux
	history     *service.HistoryService
	preferences *service.Preferences
	generator   *service.Generator
	defaultSize int
	now         func() time.Time
}

func NewServer(d Dependencies) *Server {
	mux := http.NewServeMux()

	s := &Server{
		logger:      d.Logger,
		mux:         mux,
		history:     d.History,
		preferences: d.Preferences,
		generator:   d.Generator,
		defaultSize: d.DefaultSize,
		now:         d.Now,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.defaultSize == 0 {
		s.defaultSize = 256
	}

	mux.HandleFunc("POST /v1/classify", s.handleClassify)

	mux.HandleFunc("GET /v1/history", s.handleListHistory)
	mux.HandleFunc("POST /v1/history", s.handleAddHistory)
	mux.HandleFunc("DELETE /v1/history", s.handleClearHistory)
	mux.HandleFunc("DELETE /v1/history/{id}", s.handleDeleteHistory)
	mux.HandleFunc("GET /v1/history/export", s.handleExportHistory)
	mux.HandleFunc("POST /v1/history/import", s.handleImportHistory)

	mux.HandleFunc("POST /v1/generate", s.handleGenerate)

	mux.HandleFunc("GET /v1/preferences/dark_mode", s.handleGetDarkMode)
	mux.HandleFunc("PUT /v1/preferences/dark_mode", s.handlePutDarkMode)

	degraded := func() bool { return s.history.PersistErr() != nil }
	handler := loggingMiddleware(s.logger, degraded, mux)

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type dataRequest struct {
	Data string `json:"data"`
}

type generateRequest struct {
	Text string `json:"text"`
	Size int    `json:"size"`
}

type darkModeBody struct {
	DarkMode bool `json:"dark_mode"`
}

// decodeJSON reads a single JSON object and rejects unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// ── Classify ─────────────────────────────────────────────────────────────────

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req dataRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	writeJSON(w, http.StatusOK, classify.Describe(req.Data))
}

// ── History ──────────────────────────────────────────────────────────────────

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	recs := s.history.Records()

	if wantsProtobuf(r) {
		list, err := historyToProto(recs)
		if err != nil {
			s.logger.Error("history to proto", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
			return
		}
		writeProto(w, http.StatusOK, list)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleAddHistory(w http.ResponseWriter, r *http.Request) {
	var req dataRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	rec, err := s.history.Append(r.Context(), req.Data)
	if err != nil {
		if errors.Is(err, service.ErrEmptyData) {
			writeError(w, http.StatusBadRequest, "empty_data", err.Error())
			return
		}
		s.logger.Error("append history", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "id must be an integer")
		return
	}
	if !s.history.DeleteByID(r.Context(), id) {
		writeError(w, http.StatusNotFound, "not_found", "no scan record with id "+strconv.FormatInt(id, 10))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleClearHistory requires ?confirm=true, the API's stand-in for the
// confirmation prompt.
func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if ok, _ := strconv.ParseBool(r.URL.Query().Get("confirm")); !ok {
		writeError(w, http.StatusBadRequest, "confirmation_required", "pass confirm=true to clear all history")
		return
	}
	s.history.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExportHistory(w http.ResponseWriter, r *http.Request) {
	f, err := s.history.Export(s.now())
	if err != nil {
		s.logger.Error("export history", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}
	writeAttachment(w, "application/json", f.Name, f.Data)
}

func (s *Server) handleImportHistory(w http.ResponseWriter, r *http.Request) {
	var contents []byte
	if isProtobuf(r) {
		var list structpb.ListValue
		if err := readProto(r, maxImportBody, &list); err != nil {
			writeError(w, http.StatusBadRequest, string(types.ImportParseFailure), "invalid protobuf body")
			return
		}
		b, err := importFromProto(&list)
		if err != nil {
			writeError(w, http.StatusBadRequest, string(types.ImportMalformedFormat), err.Error())
			return
		}
		contents = b
	} else {
		b, err := io.ReadAll(io.LimitReader(r.Body, maxImportBody))
		if err != nil {
			writeError(w, http.StatusBadRequest, string(types.ImportParseFailure), "could not read body")
			return
		}
		contents = b
	}

	n, err := s.history.Import(r.Context(), contents)
	if err != nil {
		var ie *types.ImportError
		if errors.As(err, &ie) {
			writeError(w, http.StatusBadRequest, string(ie.Kind), ie.Error())
			return
		}
		s.logger.Error("import history", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"imported": n})
}

// ── Generate ─────────────────────────────────────────────────────────────────

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	if req.Size == 0 {
		req.Size = s.defaultSize
	}

	gr, err := s.generator.Generate(req.Text, req.Size)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyText):
			writeError(w, http.StatusBadRequest, "empty_text", err.Error())
		case errors.Is(err, service.ErrSizeOutOfRange):
			writeError(w, http.StatusBadRequest, "size_out_of_range", err.Error())
		default:
			// Payload too long for any QR version, or for the requested size.
			writeError(w, http.StatusUnprocessableEntity, "encode_failed", err.Error())
		}
		return
	}

	if r.URL.Query().Get("format") == "svg" {
		w.Header().Set("Content-Type", "image/svg+xml")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, gr.SVG())
		return
	}

	f, err := service.DownloadAsImage(gr)
	if err != nil {
		s.logger.Error("png encode", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}
	writeAttachment(w, "image/png", f.Name, f.Data)
}

// ── Preferences ──────────────────────────────────────────────────────────────

func (s *Server) handleGetDarkMode(w http.ResponseWriter, r *http.Request) {
	on, err := s.preferences.DarkMode(r.Context())
	if err != nil {
		s.logger.Warn("read dark mode", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "persistence_unavailable", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, darkModeBody{DarkMode: on})
}

func (s *Server) handlePutDarkMode(w http.ResponseWriter, r *http.Request) {
	var req darkModeBody
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	if err := s.preferences.SetDarkMode(r.Context(), req.DarkMode); err != nil {
		s.logger.Warn("write dark mode", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "persistence_unavailable", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, req)
}
