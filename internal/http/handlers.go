package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/example/ride-dispatch/internal/dispatch"
	"github.com/example/ride-dispatch/internal/ledger"
	"github.com/example/ride-dispatch/internal/matcher"
)

type Server struct {
	Matcher *matcher.Service
	WSReg   *dispatch.WSRegistry
	logger  zerolog.Logger
	mux     *mux.Router
	timed   http.Handler
	closers []func() error
}

// NewServer routes the dispatch API. Read-only calls are cut off after
// requestTimeout. Mutations always run to completion so a client never sees
// a timeout for a change the ledger already applied.
func NewServer(m *matcher.Service, ws *dispatch.WSRegistry, logger zerolog.Logger, requestTimeout time.Duration) *Server {
	s := &Server{Matcher: m, WSReg: ws, logger: logger, mux: mux.NewRouter()}
	s.registerMiddleware()
	s.routes()
	s.timed = http.TimeoutHandler(s.mux, requestTimeout, `{"error":"request timed out"}`)
	return s
}

func (s *Server) routes() {
	api := s.mux.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/drivers", s.handleRegisterDriver).Methods(http.MethodPost)
	api.HandleFunc("/drivers", s.handleListDrivers).Methods(http.MethodGet)
	api.HandleFunc("/rides/request", s.handleRideRequest).Methods(http.MethodPost)
	api.HandleFunc("/rides/complete", s.handleCompleteRide).Methods(http.MethodPost)
	api.HandleFunc("/rides/undo", s.handleUndoRequest).Methods(http.MethodPost)
	api.HandleFunc("/rides/scheduled", s.handleListScheduled).Methods(http.MethodGet)
	api.HandleFunc("/rides/completed", s.handleListCompleted).Methods(http.MethodGet)
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods(http.MethodGet)
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/ws/drivers/{name}", s.handleWS)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/ws/") || !readOnly(r.Method) {
		s.mux.ServeHTTP(w, r)
		return
	}
	s.timed.ServeHTTP(w, r)
}

func readOnly(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}

// Close releases the sinks attached by NewServerFromConfig.
func (s *Server) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

type nameRequest struct {
	Name string `json:"name"`
}

type passengerRequest struct {
	Passenger string `json:"passenger"`
}

type registerResponse struct {
	Driver    ledger.Driver `json:"driver"`
	Cancelled *ledger.Ride  `json:"cancelled,omitempty"`
}

func (s *Server) handleRegisterDriver(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "invalid_name", "name is required")
		return
	}
	resp := registerResponse{Driver: ledger.Driver{Name: name, Available: true}}
	if cancelled, ok := s.Matcher.RegisterDriver(r.Context(), name); ok {
		resp.Cancelled = &cancelled
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleRideRequest(w http.ResponseWriter, r *http.Request) {
	var req passengerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	passenger := strings.TrimSpace(req.Passenger)
	if passenger == "" {
		writeError(w, http.StatusBadRequest, "invalid_passenger", "passenger is required")
		return
	}
	ride, err := s.Matcher.RequestRide(r.Context(), passenger)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ride)
}

func (s *Server) handleCompleteRide(w http.ResponseWriter, r *http.Request) {
	ride, err := s.Matcher.CompleteRide(r.Context())
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ride)
}

func (s *Server) handleUndoRequest(w http.ResponseWriter, r *http.Request) {
	ride, err := s.Matcher.UndoRequest(r.Context())
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ride)
}

func (s *Server) handleListDrivers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Matcher.Drivers())
}

func (s *Server) handleListScheduled(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Matcher.Scheduled())
}

func (s *Server) handleListCompleted(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Matcher.Completed())
}

var upgrader = websocket.Upgrader{}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	// drop the server read deadline inherited from the upgrade request
	_ = conn.SetReadDeadline(time.Time{})
	s.WSReg.Add(name, conn)
	s.logger.Debug().Str("driver", name).Msg("ws session opened")
	go func() {
		defer func() {
			s.WSReg.Remove(name, conn)
			_ = conn.Close()
			s.logger.Debug().Str("driver", name).Msg("ws session closed")
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrNoDriverAvailable):
		writeError(w, http.StatusConflict, "no_driver_available", err.Error())
	case errors.Is(err, ledger.ErrQueueEmpty):
		writeError(w, http.StatusConflict, "queue_empty", err.Error())
	case errors.Is(err, ledger.ErrNothingToUndo):
		writeError(w, http.StatusConflict, "nothing_to_undo", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: msg, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
