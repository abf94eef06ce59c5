package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"portfolio-service/internal/application"
	"portfolio-service/internal/domain"
	"portfolio-service/internal/infrastructure/logx"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"
)

const idempotencyHeader = "X-Idempotency-Key"

type Server struct {
	svc     *application.PortfolioService
	ping    func(ctx context.Context) error
	origins []string
}

func NewServer(svc *application.PortfolioService) *Server { return &Server{svc: svc} }

// SetReadyCheck installs the probe used by /readyz.
func (s *Server) SetReadyCheck(fn func(ctx context.Context) error) { s.ping = fn }

// SetAllowedOrigins enables CORS for the given browser origins. Call before NewRouter.
func (s *Server) SetAllowedOrigins(origins []string) { s.origins = origins }

type errorEnvelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (s *Server) ListStocks(w http.ResponseWriter, r *http.Request) {
	pf, err := s.svc.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pf)
}

func (s *Server) AddStock(w http.ResponseWriter, r *http.Request) {
	var body domain.Position
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	out, err := s.svc.Add(r.Context(), body, r.Header.Get(idempotencyHeader))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) UpdateStock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathParam(w, r, "id")
	if !ok {
		return
	}
	var body domain.Position
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	out, err := s.svc.Update(r.Context(), id, body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) DeleteStock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathParam(w, r, "id")
	if !ok {
		return
	}
	out, err := s.svc.Delete(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) StockHistory(w http.ResponseWriter, r *http.Request) {
	ticker, ok := pathParam(w, r, "id")
	if !ok {
		return
	}
	period := string(domain.DefaultPeriod)
	if err := runtime.BindQueryParameter("form", true, false, "period", r.URL.Query(), &period); err != nil {
		badRequest(w, "invalid period")
		return
	}
	h, err := s.svc.History(r.Context(), ticker, domain.ParsePeriod(period))
	if err != nil {
		logx.WithFields(r.Context()).Warn("history_failed", zap.String("ticker", ticker), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) ExchangeRate(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]float64{"USD_to_AED": s.svc.ExchangeRate()})
}

func pathParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	var v string
	err := runtime.BindStyledParameterWithLocation("simple", false, name, runtime.ParamLocationPath, chi.URLParam(r, name), &v)
	if err != nil || v == "" {
		badRequest(w, "invalid "+name)
		return "", false
	}
	return v, true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, application.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, application.ErrNotFound):
		writeError(w, http.StatusNotFound, "Stock not found")
	case errors.Is(err, application.ErrConflict):
		writeError(w, http.StatusConflict, "duplicate request")
	default:
		logx.WithFields(r.Context()).Error("request_failed", zap.Error(err))
		internalError(w)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorEnvelope{Code: status, Message: msg})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusBadRequest, msg)
}

func internalError(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}
