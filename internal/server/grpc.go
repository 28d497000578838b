package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"TokenLedger/internal/observability"
	"TokenLedger/internal/persistence"
	"TokenLedger/internal/projection"
	"TokenLedger/internal/query"
	"TokenLedger/internal/token"
)

// SubmitFunc injects a raw action payload into the ingestion pipeline.
// It blocks until the action is accepted or the context is done.
type SubmitFunc func(ctx context.Context, actionType string, payload []byte) error

// Server hosts the gRPC endpoint (health + reflection) and the HTTP/JSON
// API on the gateway mux. Queries read projections; submissions feed the
// same pipeline as NATS ingestion.
type Server struct {
	grpcServer    *grpc.Server
	httpServer    *http.Server
	grpcAddr      string
	httpAddr      string
	healthChecker *observability.HealthChecker
	deps          *ServerDeps
}

// ServerDeps holds all dependencies needed by the API handlers.
type ServerDeps struct {
	DB            *sql.DB
	QueryService  *query.QueryService
	SnapshotMgr   *persistence.SnapshotManager
	Submit        SubmitFunc
	StartTime     time.Time
	HealthChecker *observability.HealthChecker
}

func NewServer(grpcAddr, httpAddr string, deps *ServerDeps) *Server {
	grpcServer := grpc.NewServer()

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	// Reflection for grpcurl / grpcui
	reflection.Register(grpcServer)

	return &Server{
		grpcServer:    grpcServer,
		grpcAddr:      grpcAddr,
		httpAddr:      httpAddr,
		healthChecker: deps.HealthChecker,
		deps:          deps,
	}
}

// StartGRPC starts the gRPC server (blocking).
func (s *Server) StartGRPC(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.grpcAddr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}

	go func() {
		<-ctx.Done()
		log.Println("INFO: gRPC server shutting down...")
		s.grpcServer.GracefulStop()
	}()

	log.Printf("INFO: gRPC server listening on %s", s.grpcAddr)
	return s.grpcServer.Serve(lis)
}

// StartHTTP starts the HTTP/JSON API (blocking).
func (s *Server) StartHTTP(ctx context.Context) error {
	mux := runtime.NewServeMux()
	if err := s.registerRoutes(mux); err != nil {
		return fmt.Errorf("register routes: %w", err)
	}

	httpMux := http.NewServeMux()
	if s.healthChecker != nil {
		httpMux.HandleFunc("/healthz", s.healthChecker.LivenessHandler)
		httpMux.HandleFunc("/readyz", s.healthChecker.ReadinessHandler)
	}
	httpMux.Handle("/", mux)

	s.httpServer = &http.Server{
		Addr:    s.httpAddr,
		Handler: httpMux,
	}

	go func() {
		<-ctx.Done()
		log.Println("INFO: HTTP server shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	log.Printf("INFO: HTTP API listening on %s", s.httpAddr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) registerRoutes(mux *runtime.ServeMux) error {
	routes := []struct {
		method  string
		path    string
		handler runtime.HandlerFunc
	}{
		{"POST", "/v1/actions", s.handleSubmitAction},
		{"GET", "/v1/balance/{owner}/{symbol}", s.handleGetBalance},
		{"GET", "/v1/accounts/{owner}", s.handleListAccounts},
		{"GET", "/v1/supply/{symbol}", s.handleGetSupply},
		{"GET", "/v1/allowance/{owner}/{spender}/{symbol}", s.handleGetAllowance},
		{"GET", "/v1/actions", s.handleActionHistory},
		{"GET", "/v1/admin/integrity", s.handleVerifyIntegrity},
		{"GET", "/v1/admin/log-info", s.handleLogInfo},
		{"POST", "/v1/admin/rebuild-projections", s.handleRebuildProjections},
	}

	for _, r := range routes {
		if err := mux.HandlePath(r.method, r.path, r.handler); err != nil {
			return fmt.Errorf("%s %s: %w", r.method, r.path, err)
		}
	}
	return nil
}

// --- action submission ---

type submitActionRequest struct {
	ActionType string          `json:"action_type"`
	Payload    json.RawMessage `json:"payload"`
}

func (s *Server) handleSubmitAction(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	if s.deps.Submit == nil {
		writeError(w, http.StatusServiceUnavailable, "action submission not available")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}

	var req submitActionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request: "+err.Error())
		return
	}
	if req.ActionType == "" || len(req.Payload) == 0 {
		writeError(w, http.StatusBadRequest, "action_type and payload are required")
		return
	}

	if err := s.deps.Submit(r.Context(), req.ActionType, req.Payload); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]bool{"accepted": true})
}

// --- queries ---

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	resp, err := s.deps.QueryService.GetBalance(r.Context(), pathParams["owner"], pathParams["symbol"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	accounts, err := s.deps.QueryService.ListAccounts(r.Context(), pathParams["owner"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"accounts": accounts})
}

func (s *Server) handleGetSupply(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	resp, err := s.deps.QueryService.GetSupply(r.Context(), pathParams["symbol"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetAllowance(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	resp, err := s.deps.QueryService.GetAllowance(
		r.Context(), pathParams["owner"], pathParams["spender"], pathParams["symbol"],
	)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleActionHistory(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	q := r.URL.Query()

	limit := 100
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			writeError(w, http.StatusBadRequest, "limit must be 1..1000")
			return
		}
		limit = n
	}

	var symbolCode *string
	if v := q.Get("symbol"); v != "" {
		symbolCode = &v
	}

	var beforeSeq *int64
	if v := q.Get("before_sequence"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "before_sequence must be an integer")
			return
		}
		beforeSeq = &n
	}

	entries, err := s.deps.QueryService.GetActionHistory(r.Context(), symbolCode, limit, beforeSeq)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"actions": entries})
}

// --- admin ---

func (s *Server) handleVerifyIntegrity(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	report, err := s.deps.QueryService.VerifyIntegrity(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleLogInfo(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	latestSeq, err := s.deps.SnapshotMgr.GetLatestSequence(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"last_sequence":  latestSeq,
		"uptime_seconds": int64(time.Since(s.deps.StartTime).Seconds()),
	})
}

func (s *Server) handleRebuildProjections(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	if err := projection.RebuildProjections(r.Context(), s.deps.DB); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"rebuilt": true})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeDomainError maps the ledger error taxonomy onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, token.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, token.ErrUnauthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, token.ErrState):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
