package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/copyleftdev/gradviz/internal/config"
	apperrors "github.com/copyleftdev/gradviz/internal/errors"
	"github.com/copyleftdev/gradviz/internal/logging"
	"github.com/copyleftdev/gradviz/internal/optimization"
	"github.com/copyleftdev/gradviz/internal/optimization/controller"
	"github.com/copyleftdev/gradviz/internal/optimization/descent"
)

// Logger defines the logging interface used by the server
// This allows us to be flexible with our logging implementation
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithRegistry replaces the default objective catalog.
func WithRegistry(r *optimization.Registry) Option {
	return func(s *Server) { s.registry = r }
}

// WithScheduler replaces the wall-clock scheduler used by session
// controllers.
func WithScheduler(sched controller.Scheduler) Option {
	return func(s *Server) { s.scheduler = sched }
}

// Server exposes the objective catalog and interactive descent sessions
// over REST and JSON-RPC 2.0.
type Server struct {
	cfg       *config.Config
	logger    Logger
	registry  *optimization.Registry
	scheduler controller.Scheduler
	metricReg *prometheus.Registry
	metrics   *Metrics
	sessions  *SessionManager
}

// NewServer creates a new server instance with the given config and logger
// The logger parameter accepts any type that implements the Logger interface
func NewServer(cfg *config.Config, logger Logger, opts ...Option) *Server {
	s := &Server{
		cfg:       cfg,
		logger:    logger,
		registry:  optimization.DefaultRegistry(),
		scheduler: controller.WallScheduler{},
		metricReg: prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.metricReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s.metrics = NewMetrics(s.metricReg)

	s.sessions = &SessionManager{
		registry: s.registry,
		policy: descent.Policy{
			LossThreshold: cfg.Descent.LossThreshold,
			MaxIterations: cfg.Descent.MaxIterations,
		},
		scheduler:        s.scheduler,
		defaultObjective: cfg.Descent.DefaultObjective,
		defaultSpeed:     cfg.Descent.DefaultSpeed,
		maxSessions:      cfg.Descent.MaxSessions,
		logger:           logger.WithFields(map[string]interface{}{"component": "sessions"}),
		metrics:          s.metrics,
		sessions:         make(map[string]*Session),
	}
	return s
}

// Sessions returns the session manager.
func (s *Server) Sessions() *SessionManager {
	return s.sessions
}

// MetricsHandler serves the server's Prometheus registry.
func (s *Server) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(s.metricReg, promhttp.HandlerOpts{})
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/objectives", s.handleListObjectives)
		r.Get("/objectives/{name}", s.handleGetObjective)
		r.Get("/objectives/{name}/surface", s.handleSurface)

		r.Post("/sessions", s.handleCreateSession)
		r.Get("/sessions", s.handleListSessions)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleCloseSession)
			r.Post("/start", s.handleSessionAction(actionStart))
			r.Post("/step", s.handleSessionAction(actionStep))
			r.Post("/reset", s.handleSessionAction(actionReset))
			r.Put("/learning-rate", s.handleSetLearningRate)
			r.Put("/speed", s.handleSetSpeed)
			r.Put("/objective", s.handleSelectObjective)
		})
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

// Close stops every session's cadence.
func (s *Server) Close() error {
	s.sessions.CloseAll()
	return nil
}

// Views returned to clients.

type sessionView struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	controller.Snapshot
}

func viewOf(sess *Session, snap controller.Snapshot) sessionView {
	return sessionView{ID: sess.ID, CreatedAt: sess.CreatedAt, Snapshot: snap}
}

type surfaceView struct {
	Objective  string              `json:"objective"`
	Domain     optimization.Domain `json:"domain"`
	Resolution int                 `json:"resolution"`
	Step       float64             `json:"step"`
	Min        float64             `json:"min"`
	Max        float64             `json:"max"`
	Values     [][]float64         `json:"values"`
}

// Parameter types shared by REST bodies and JSON-RPC params.

type createSessionParams struct {
	Objective    string   `json:"objective"`
	LearningRate *float64 `json:"learning_rate"`
	Speed        *int     `json:"speed"`
}

type sessionParams struct {
	SessionID string `json:"session_id"`
}

type learningRateParams struct {
	SessionID string   `json:"session_id"`
	Value     *float64 `json:"value"`
}

type speedParams struct {
	SessionID string `json:"session_id"`
	Level     *int   `json:"level"`
}

type objectiveParams struct {
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
}

type sessionAction string

const (
	actionStart sessionAction = "start"
	actionStep  sessionAction = "step"
	actionReset sessionAction = "reset"
)

// Operations shared by both transports.

func (s *Server) listObjectives() []optimization.Description {
	objs := s.registry.All()
	out := make([]optimization.Description, len(objs))
	for i, obj := range objs {
		out[i] = optimization.Describe(obj)
	}
	return out
}

func (s *Server) getObjective(name string) (optimization.Description, error) {
	obj, err := s.registry.Get(name)
	if err != nil {
		return optimization.Description{}, apperrors.Wrap(err, http.StatusNotFound, apperrors.CodeNotFound, "get objective")
	}
	return optimization.Describe(obj), nil
}

func (s *Server) sampleSurface(name string, resolution int) (surfaceView, error) {
	obj, err := s.registry.Get(name)
	if err != nil {
		return surfaceView{}, apperrors.Wrap(err, http.StatusNotFound, apperrors.CodeNotFound, "sample surface")
	}
	surf, err := optimization.SampleSurface(obj, resolution)
	if err != nil {
		return surfaceView{}, apperrors.Wrap(err, http.StatusBadRequest, apperrors.CodeInvalidParams, "sample surface")
	}
	return surfaceView{
		Objective:  surf.Objective,
		Domain:     surf.Domain,
		Resolution: surf.Resolution,
		Step:       surf.Step,
		Min:        surf.Min,
		Max:        surf.Max,
		Values:     surf.Rows(),
	}, nil
}

func (s *Server) createSession(p createSessionParams) (sessionView, error) {
	sess, err := s.sessions.Create(SessionOptions{
		Objective:    p.Objective,
		LearningRate: p.LearningRate,
		Speed:        p.Speed,
	})
	if err != nil {
		return sessionView{}, err
	}
	return viewOf(sess, sess.Controller.Snapshot()), nil
}

func (s *Server) getSession(id string) (sessionView, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return sessionView{}, err
	}
	return viewOf(sess, sess.Controller.Snapshot()), nil
}

func (s *Server) listSessions() []sessionView {
	sessions := s.sessions.List()
	out := make([]sessionView, len(sessions))
	for i, sess := range sessions {
		out[i] = viewOf(sess, sess.Controller.Snapshot())
	}
	return out
}

func (s *Server) runAction(id string, action sessionAction) (sessionView, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return sessionView{}, err
	}

	var snap controller.Snapshot
	switch action {
	case actionStart:
		snap = sess.Controller.Start()
	case actionStep:
		snap = sess.Controller.StepOnce()
	case actionReset:
		snap = sess.Controller.Reset()
	default:
		return sessionView{}, apperrors.BadRequest("unknown action %q", action)
	}
	return viewOf(sess, snap), nil
}

func (s *Server) setLearningRate(p learningRateParams) (sessionView, error) {
	if p.Value == nil {
		return sessionView{}, apperrors.BadRequest("value is required")
	}
	sess, err := s.sessions.Get(p.SessionID)
	if err != nil {
		return sessionView{}, err
	}
	sess.Controller.SetLearningRate(*p.Value)
	return viewOf(sess, sess.Controller.Snapshot()), nil
}

func (s *Server) setSpeed(p speedParams) (sessionView, error) {
	if p.Level == nil {
		return sessionView{}, apperrors.BadRequest("level is required")
	}
	sess, err := s.sessions.Get(p.SessionID)
	if err != nil {
		return sessionView{}, err
	}
	sess.Controller.SetSpeed(*p.Level)
	return viewOf(sess, sess.Controller.Snapshot()), nil
}

func (s *Server) selectObjective(p objectiveParams) (sessionView, error) {
	if p.Name == "" {
		return sessionView{}, apperrors.BadRequest("name is required")
	}
	sess, err := s.sessions.Get(p.SessionID)
	if err != nil {
		return sessionView{}, err
	}
	snap, err := sess.Controller.SelectObjective(p.Name)
	if err != nil {
		return sessionView{}, apperrors.Wrap(err, http.StatusBadRequest, apperrors.CodeInvalidParams, "select objective")
	}
	return viewOf(sess, snap), nil
}

func (s *Server) closeSession(id string) error {
	return s.sessions.Close(id)
}

// REST handlers.

func (s *Server) handleListObjectives(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.listObjectives())
}

func (s *Server) handleGetObjective(w http.ResponseWriter, r *http.Request) {
	desc, err := s.getObjective(chi.URLParam(r, "name"))
	if err != nil {
		s.respondHTTPError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, desc)
}

func (s *Server) handleSurface(w http.ResponseWriter, r *http.Request) {
	resolution := optimization.DefaultResolution
	if raw := r.URL.Query().Get("resolution"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.respondHTTPError(w, r, apperrors.BadRequest("resolution must be an integer, got %q", raw))
			return
		}
		resolution = n
	}

	view, err := s.sampleSurface(chi.URLParam(r, "name"), resolution)
	if err != nil {
		s.respondHTTPError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var p createSessionParams
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		s.respondHTTPError(w, r, apperrors.BadRequest("invalid request body: %v", err))
		return
	}

	view, err := s.createSession(p)
	if err != nil {
		s.respondHTTPError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, view)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.listSessions())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.getSession(chi.URLParam(r, "id"))
	if err != nil {
		s.respondHTTPError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.closeSession(chi.URLParam(r, "id")); err != nil {
		s.respondHTTPError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSessionAction(action sessionAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := s.runAction(chi.URLParam(r, "id"), action)
		if err != nil {
			s.respondHTTPError(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, view)
	}
}

func (s *Server) handleSetLearningRate(w http.ResponseWriter, r *http.Request) {
	var p learningRateParams
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.respondHTTPError(w, r, apperrors.BadRequest("invalid request body: %v", err))
		return
	}
	p.SessionID = chi.URLParam(r, "id")

	view, err := s.setLearningRate(p)
	if err != nil {
		s.respondHTTPError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleSetSpeed(w http.ResponseWriter, r *http.Request) {
	var p speedParams
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.respondHTTPError(w, r, apperrors.BadRequest("invalid request body: %v", err))
		return
	}
	p.SessionID = chi.URLParam(r, "id")

	view, err := s.setSpeed(p)
	if err != nil {
		s.respondHTTPError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleSelectObjective(w http.ResponseWriter, r *http.Request) {
	var p objectiveParams
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.respondHTTPError(w, r, apperrors.BadRequest("invalid request body: %v", err))
		return
	}
	p.SessionID = chi.URLParam(r, "id")

	view, err := s.selectObjective(p)
	if err != nil {
		s.respondHTTPError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, view)
}

// JSON-RPC.

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcMethod func(s *Server, params json.RawMessage) (interface{}, error)

var rpcMethods = map[string]rpcMethod{
	"objectives.list": func(s *Server, _ json.RawMessage) (interface{}, error) {
		return s.listObjectives(), nil
	},
	"session.create": func(s *Server, raw json.RawMessage) (interface{}, error) {
		var p createSessionParams
		if err := decodeParams(raw, &p); err != nil {
			return nil, err
		}
		return s.createSession(p)
	},
	"session.get": func(s *Server, raw json.RawMessage) (interface{}, error) {
		p, err := decodeSessionParams(raw)
		if err != nil {
			return nil, err
		}
		return s.getSession(p.SessionID)
	},
	"session.start": rpcAction(actionStart),
	"session.step":  rpcAction(actionStep),
	"session.reset": rpcAction(actionReset),
	"session.setLearningRate": func(s *Server, raw json.RawMessage) (interface{}, error) {
		var p learningRateParams
		if err := decodeParams(raw, &p); err != nil {
			return nil, err
		}
		return s.setLearningRate(p)
	},
	"session.setSpeed": func(s *Server, raw json.RawMessage) (interface{}, error) {
		var p speedParams
		if err := decodeParams(raw, &p); err != nil {
			return nil, err
		}
		return s.setSpeed(p)
	},
	"session.selectObjective": func(s *Server, raw json.RawMessage) (interface{}, error) {
		var p objectiveParams
		if err := decodeParams(raw, &p); err != nil {
			return nil, err
		}
		return s.selectObjective(p)
	},
	"session.close": func(s *Server, raw json.RawMessage) (interface{}, error) {
		p, err := decodeSessionParams(raw)
		if err != nil {
			return nil, err
		}
		if err := s.closeSession(p.SessionID); err != nil {
			return nil, err
		}
		return map[string]string{"status": "closed"}, nil
	},
}

func rpcAction(action sessionAction) rpcMethod {
	return func(s *Server, raw json.RawMessage) (interface{}, error) {
		p, err := decodeSessionParams(raw)
		if err != nil {
			return nil, err
		}
		return s.runAction(p.SessionID, action)
	}
}

// decodeParams accepts params either as an object or as a one-element array
// holding the object.
func decodeParams(raw json.RawMessage, v interface{}) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return apperrors.BadRequest("missing required parameters")
	}
	if raw[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return apperrors.BadRequest("invalid parameter format: %v", err)
		}
		if len(list) == 0 {
			return apperrors.BadRequest("missing required parameters")
		}
		raw = list[0]
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return apperrors.BadRequest("invalid parameter format, expected object: %v", err)
	}
	return nil
}

func decodeSessionParams(raw json.RawMessage) (sessionParams, error) {
	var p sessionParams
	if err := decodeParams(raw, &p); err != nil {
		return p, err
	}
	if p.SessionID == "" {
		return p, apperrors.BadRequest("session_id is required")
	}
	return p, nil
}

// handleJSONRPC handles JSON-RPC 2.0 requests
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondWithError(w, apperrors.CodeParseError, "Parse error", nil)
		return
	}

	if request.JSONRPC != "2.0" || request.Method == "" {
		s.respondWithError(w, apperrors.CodeInvalidRequest, "Invalid Request", request.ID)
		return
	}

	method, ok := rpcMethods[request.Method]
	if !ok {
		s.respondWithError(w, apperrors.CodeMethodNotFound, "Method not found", request.ID)
		return
	}

	result, err := method(s, request.Params)
	if err != nil {
		e := apperrors.From(err)
		if e.Status >= http.StatusInternalServerError {
			s.logger.Error("RPC method failed", map[string]interface{}{
				"method": request.Method,
				"error":  err.Error(),
			})
		}
		s.respondWithError(w, e.Code, err.Error(), request.ID)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	})
}

// respondWithError sends a JSON-RPC 2.0 error response
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id interface{}) {
	s.logger.Debug("RPC error", map[string]interface{}{
		"code":    code,
		"message": message,
	})

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
		"id": id,
	})
}

func (s *Server) respondHTTPError(w http.ResponseWriter, r *http.Request, err error) {
	e := apperrors.From(err)
	status := e.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error("Request failed", map[string]interface{}{
			"error": err.Error(),
			"stack": e.StackTrace(),
		})
	}
	s.respondJSON(w, status, map[string]interface{}{
		"error": err.Error(),
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", map[string]interface{}{
			"error": fmt.Sprintf("%v", err),
		})
	}
}
