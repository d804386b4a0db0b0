package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/matchbook/internal/service"
)

// NewRouter creates a chi router with all routes registered, request logging,
// and Content-Type validation middleware on routes that take a body.
func NewRouter(
	orderSvc *service.OrderService,
	instrumentSvc *service.InstrumentService,
	marketSvc *service.MarketService,
	logger *slog.Logger,
) chi.Router {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(requestLogging(logger))

	orderH := NewOrderHandler(orderSvc)
	instrumentH := NewInstrumentHandler(instrumentSvc, marketSvc)

	// Health check.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Order routes.
	r.With(contentTypeJSON).Post("/orders", orderH.SubmitOrder)
	r.Get("/orders/{order_id}", orderH.GetOrder)
	r.Delete("/orders/{order_id}", orderH.CancelOrder)

	// Trader routes.
	r.Get("/traders/{trader_id}/orders", orderH.ListTraderOrders)

	// Instrument routes.
	r.Get("/instruments", instrumentH.List)
	r.With(contentTypeJSON).Post("/instruments", instrumentH.Register)
	r.Get("/instruments/{instrument_id}", instrumentH.Get)
	r.Get("/instruments/{instrument_id}/book", instrumentH.GetBook)
	r.Get("/instruments/{instrument_id}/trades", instrumentH.GetTrades)
	r.Post("/instruments/{instrument_id}/process", instrumentH.Process)

	return r
}

// requestLogging returns middleware that logs each request's method, path,
// status code, and duration using slog.
func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// contentTypeJSON rejects requests whose Content-Type doesn't start with
// "application/json" with 400 Bad Request before the handler runs.
func contentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(ct, "application/json") {
			WriteError(w, http.StatusBadRequest, "invalid_request",
				"Content-Type must be application/json")
			return
		}
		next.ServeHTTP(w, r)
	})
}
