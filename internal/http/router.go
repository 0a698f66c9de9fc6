package httpx

import (
	"bufio"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/modelplane/modelplane/internal/domain"
	"github.com/modelplane/modelplane/internal/service/serving"
	"github.com/modelplane/modelplane/internal/service/telemetry"
	"github.com/modelplane/modelplane/internal/ws"
)

// Router wires HTTP endpoints to services.
type Router struct {
	mux        *http.ServeMux
	logger     *slog.Logger
	serving    serving.Service
	telemetry  telemetry.Service
	hub        *ws.Hub
	upgrader   websocket.Upgrader
	limiter    RateLimiter
	agentToken string

	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	rateLimitHits      *prometheus.CounterVec
}

const (
	rateWindowDefault    = time.Minute
	rateWindowRealtime   = 30 * time.Second
	rateLimitConsole     = 120
	rateLimitWebsocket   = 30
	rateLimitAgent       = 600
	sseHeartbeatInterval = 25 * time.Second
)

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, servingSvc serving.Service, telemetrySvc telemetry.Service, hub *ws.Hub, limiter RateLimiter, agentToken string) *Router {
	r := &Router{
		mux:       http.NewServeMux(),
		logger:    logger,
		serving:   servingSvc,
		telemetry: telemetrySvc,
		hub:       hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		limiter:    limiter,
		agentToken: strings.TrimSpace(agentToken),
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	r.initMetrics()
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.mux.HandleFunc("/healthz", r.audit("/healthz", r.handleHealthz))
	r.mux.Handle("/metrics", promhttp.Handler())
	r.mux.HandleFunc("/services", r.audit("/services", r.withRateLimit("/services", rateLimitConsole, rateWindowDefault, rateLimitKeyIP, r.handleServices)))
	r.mux.HandleFunc("/services/", r.audit("/services/{id}", r.withRateLimit("/services/{id}", rateLimitConsole, rateWindowDefault, rateLimitKeyIP, r.handleServiceSubroutes)))
	r.mux.HandleFunc("/agent/services/", r.audit("/agent/services/{id}", r.handleAgentSubroutes))
	r.mux.HandleFunc("/ws/events", r.audit("/ws/events", r.withRateLimit("/ws/events", rateLimitWebsocket, rateWindowRealtime, rateLimitKeyIP, r.handleEventsWS)))
	r.mux.HandleFunc("/events/stream", r.audit("/events/stream", r.withRateLimit("/events/stream", rateLimitWebsocket, rateWindowRealtime, rateLimitKeyIP, r.handleEventsSSE)))
}

func actorOf(req *http.Request) string {
	actor := strings.TrimSpace(req.Header.Get("X-Actor"))
	if actor == "" {
		actor = "console"
	}
	return actor
}

type revisionPayload struct {
	ModelVersionID string `json:"model_version_id"`
	Runtime        string `json:"runtime"`
	Resources      struct {
		GPUModel      string `json:"gpu_model"`
		GPUCount      int    `json:"gpu_count"`
		CPURequest    string `json:"cpu_request"`
		CPULimit      string `json:"cpu_limit"`
		MemoryRequest string `json:"memory_request"`
		MemoryLimit   string `json:"memory_limit"`
	} `json:"resources"`
	Autoscaling struct {
		Metric                string `json:"metric"`
		MinReplicas           int    `json:"min_replicas"`
		MaxReplicas           int    `json:"max_replicas"`
		ScaleDownDelaySeconds int    `json:"scale_down_delay_seconds"`
		ScaleToZero           bool   `json:"scale_to_zero"`
	} `json:"autoscaling"`
}

func (p revisionPayload) toSpec() serving.RevisionSpec {
	return serving.RevisionSpec{
		ModelVersionID: p.ModelVersionID,
		Runtime:        domain.RuntimeKind(p.Runtime),
		Resources: domain.ResourceSpec{
			GPUModel:      p.Resources.GPUModel,
			GPUCount:      p.Resources.GPUCount,
			CPURequest:    p.Resources.CPURequest,
			CPULimit:      p.Resources.CPULimit,
			MemoryRequest: p.Resources.MemoryRequest,
			MemoryLimit:   p.Resources.MemoryLimit,
		},
		Autoscaling: domain.AutoscalingSpec{
			Metric:                domain.AutoscalingMetric(p.Autoscaling.Metric),
			MinReplicas:           p.Autoscaling.MinReplicas,
			MaxReplicas:           p.Autoscaling.MaxReplicas,
			ScaleDownDelaySeconds: p.Autoscaling.ScaleDownDelaySeconds,
			ScaleToZero:           p.Autoscaling.ScaleToZero,
		},
	}
}

func (r *Router) handleServices(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodPost:
		var payload struct {
			Name            string          `json:"name"`
			Description     string          `json:"description"`
			Env             string          `json:"env"`
			NetworkExposure string          `json:"network_exposure"`
			IPAllowlist     []string        `json:"ip_allowlist"`
			Revision        revisionPayload `json:"revision"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		svc, err := r.serving.CreateService(req.Context(), serving.CreateInput{
			Name:            payload.Name,
			Description:     payload.Description,
			Env:             domain.Env(payload.Env),
			NetworkExposure: domain.NetworkExposure(payload.NetworkExposure),
			IPAllowlist:     payload.IPAllowlist,
			Revision:        payload.Revision.toSpec(),
			Actor:           actorOf(req),
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toServiceView(svc))
	case http.MethodGet:
		services, err := r.serving.List(req.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		views := make([]serviceSummaryView, 0, len(services))
		for _, svc := range services {
			views = append(views, toServiceSummaryView(svc))
		}
		writeJSON(w, http.StatusOK, views)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleServiceSubroutes(w http.ResponseWriter, req *http.Request) {
	trimmed := strings.TrimPrefix(req.URL.Path, "/services/")
	parts := strings.Split(trimmed, "/")
	if len(parts) < 1 || parts[0] == "" {
		r.notFound(w)
		return
	}
	serviceID := parts[0]
	switch {
	case len(parts) == 1:
		r.handleService(w, req, serviceID)
	case len(parts) == 2 && parts[1] == "revisions":
		r.handleRevisions(w, req, serviceID)
	case len(parts) == 2 && parts[1] == "events":
		r.handleEvents(w, req, serviceID)
	case len(parts) == 2 && parts[1] == "audits":
		r.handleAudits(w, req, serviceID)
	case len(parts) == 2 && parts[1] == "traffic":
		r.handleTraffic(w, req, serviceID)
	case len(parts) == 2 && parts[1] == "rollback":
		r.handleRollback(w, req, serviceID)
	case len(parts) == 2 && parts[1] == "state":
		r.handleDesiredState(w, req, serviceID)
	default:
		r.notFound(w)
	}
}

func (r *Router) handleService(w http.ResponseWriter, req *http.Request, serviceID string) {
	switch req.Method {
	case http.MethodGet:
		svc, err := r.serving.Get(req.Context(), serviceID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toServiceView(svc))
	case http.MethodPatch:
		var payload struct {
			Name            *string  `json:"name"`
			Description     *string  `json:"description"`
			NetworkExposure *string  `json:"network_exposure"`
			IPAllowlist     []string `json:"ip_allowlist"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		input := serving.UpdateSettingsInput{
			ServiceID:   serviceID,
			Name:        payload.Name,
			Description: payload.Description,
			IPAllowlist: payload.IPAllowlist,
			Actor:       actorOf(req),
		}
		if payload.NetworkExposure != nil {
			exposure := domain.NetworkExposure(*payload.NetworkExposure)
			input.NetworkExposure = &exposure
		}
		svc, err := r.serving.UpdateSettings(req.Context(), input)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toServiceView(svc))
	case http.MethodDelete:
		var payload struct {
			ConfirmName string `json:"confirm_name"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := r.serving.DeleteService(req.Context(), serviceID, payload.ConfirmName, actorOf(req)); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleRevisions(w http.ResponseWriter, req *http.Request, serviceID string) {
	switch req.Method {
	case http.MethodPost:
		r.handleDeploy(w, req, serviceID)
	case http.MethodGet:
		svc, err := r.serving.Get(req.Context(), serviceID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		views := make([]revisionView, 0, len(svc.Revisions))
		for _, rev := range svc.Revisions {
			views = append(views, toRevisionView(rev))
		}
		writeJSON(w, http.StatusOK, views)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleEvents(w http.ResponseWriter, req *http.Request, serviceID string) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	svc, err := r.serving.Get(req.Context(), serviceID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	views := make([]eventView, 0, len(svc.Events))
	for _, event := range svc.Events {
		views = append(views, eventView{
			ID:          event.ID,
			Type:        string(event.Type),
			Title:       event.Title,
			Description: event.Description,
			HappenedAt:  formatTime(event.HappenedAt),
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func (r *Router) handleAudits(w http.ResponseWriter, req *http.Request, serviceID string) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	svc, err := r.serving.Get(req.Context(), serviceID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	views := make([]auditView, 0, len(svc.Audits))
	for _, audit := range svc.Audits {
		views = append(views, auditView{
			ID:         audit.ID,
			Action:     audit.Action,
			Actor:      audit.Actor,
			HappenedAt: formatTime(audit.HappenedAt),
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func (r *Router) handleDeploy(w http.ResponseWriter, req *http.Request, serviceID string) {
	var payload struct {
		Revision     revisionPayload `json:"revision"`
		Strategy     string          `json:"strategy"`
		CanaryWeight *float64        `json:"canary_weight"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	svc, err := r.serving.DeployRevision(req.Context(), serving.DeployInput{
		ServiceID:    serviceID,
		Revision:     payload.Revision.toSpec(),
		Strategy:     serving.DeployStrategy(payload.Strategy),
		CanaryWeight: payload.CanaryWeight,
		Actor:        actorOf(req),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toServiceView(svc))
}

func (r *Router) handleTraffic(w http.ResponseWriter, req *http.Request, serviceID string) {
	if req.Method != http.MethodPut {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Weights []trafficWeightView `json:"weights"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	weights := make([]domain.TrafficWeight, 0, len(payload.Weights))
	for _, entry := range payload.Weights {
		weights = append(weights, domain.TrafficWeight{RevisionID: entry.RevisionID, Weight: entry.Weight})
	}
	svc, err := r.serving.CommitTraffic(req.Context(), serviceID, weights, actorOf(req))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toServiceView(svc))
}

func (r *Router) handleRollback(w http.ResponseWriter, req *http.Request, serviceID string) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		RevisionID string `json:"revision_id"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	svc, err := r.serving.Rollback(req.Context(), serviceID, payload.RevisionID, actorOf(req))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toServiceView(svc))
}

func (r *Router) handleDesiredState(w http.ResponseWriter, req *http.Request, serviceID string) {
	if req.Method != http.MethodPut {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		DesiredState string `json:"desired_state"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	svc, err := r.serving.SetDesiredState(req.Context(), serviceID, domain.DesiredState(payload.DesiredState), actorOf(req))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toServiceView(svc))
}

func (r *Router) handleAgentSubroutes(w http.ResponseWriter, req *http.Request) {
	if !r.verifyAgentToken(w, req) {
		return
	}
	trimmed := strings.TrimPrefix(req.URL.Path, "/agent/services/")
	parts := strings.Split(trimmed, "/")
	if len(parts) < 2 || parts[0] == "" {
		r.notFound(w)
		return
	}
	serviceID := parts[0]
	limited := func(next http.HandlerFunc) http.HandlerFunc {
		return r.withRateLimit("/agent/services/{id}", rateLimitAgent, rateWindowDefault, rateLimitKeyAgent(serviceID), next)
	}
	switch {
	case len(parts) == 4 && parts[1] == "revisions" && parts[3] == "status":
		limited(func(w http.ResponseWriter, req *http.Request) {
			r.handleAgentRevisionStatus(w, req, serviceID, parts[2])
		})(w, req)
	case len(parts) == 2 && parts[1] == "metrics":
		limited(func(w http.ResponseWriter, req *http.Request) {
			r.handleAgentMetrics(w, req, serviceID)
		})(w, req)
	case len(parts) == 2 && parts[1] == "stage":
		limited(func(w http.ResponseWriter, req *http.Request) {
			r.handleAgentStage(w, req, serviceID)
		})(w, req)
	default:
		r.notFound(w)
	}
}

func (r *Router) handleAgentRevisionStatus(w http.ResponseWriter, req *http.Request, serviceID, revisionID string) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if _, err := r.telemetry.ReportRevisionStatus(req.Context(), serviceID, revisionID, domain.RevisionStatus(payload.Status)); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "recorded"})
}

func (r *Router) handleAgentMetrics(w http.ResponseWriter, req *http.Request, serviceID string) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Points []struct {
			Timestamp string  `json:"timestamp"`
			QPS       float64 `json:"qps"`
			P95MS     float64 `json:"p95_ms"`
			ErrorRate float64 `json:"error_rate"`
		} `json:"points"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	points := make([]domain.MetricPoint, 0, len(payload.Points))
	for _, p := range payload.Points {
		point := domain.MetricPoint{QPS: p.QPS, P95MS: p.P95MS, ErrorRate: p.ErrorRate}
		if p.Timestamp != "" {
			parsed, err := time.Parse(time.RFC3339Nano, p.Timestamp)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid timestamp format")
				return
			}
			point.Timestamp = parsed.UTC()
		}
		points = append(points, point)
	}
	if _, err := r.telemetry.IngestMetrics(req.Context(), serviceID, points); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "ingested"})
}

func (r *Router) handleAgentStage(w http.ResponseWriter, req *http.Request, serviceID string) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Stage string `json:"stage"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if _, err := r.telemetry.ReportStage(req.Context(), serviceID, domain.CurrentState(payload.Stage)); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "recorded"})
}

func (r *Router) handleEventsWS(w http.ResponseWriter, req *http.Request) {
	if r.hub == nil {
		writeError(w, http.StatusServiceUnavailable, "event stream unavailable")
		return
	}
	serviceID := req.URL.Query().Get("service_id")
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	client := ws.NewClient(conn, r.logger)
	r.hub.Register(serviceID, client)
	go func() {
		defer func() {
			r.hub.Unregister(serviceID, client)
			client.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (r *Router) handleEventsSSE(w http.ResponseWriter, req *http.Request) {
	if r.hub == nil {
		writeError(w, http.StatusServiceUnavailable, "event stream unavailable")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	serviceID := req.URL.Query().Get("service_id")
	headers := w.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	client := ws.NewSSEClient(w, flusher, r.logger)
	r.hub.Register(serviceID, client)
	defer func() {
		r.hub.Unregister(serviceID, client)
		client.Close()
	}()

	ticker := time.NewTicker(sseHeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-req.Context().Done():
			return
		case <-ticker.C:
			if err := client.Heartbeat(); err != nil {
				return
			}
		}
	}
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (r *Router) audit(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if reqID := strings.TrimSpace(req.Header.Get("X-Request-ID")); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}
		actor := actorOf(req)
		if strings.HasPrefix(req.URL.Path, "/agent/") {
			actor = "agent"
		}
		fields = append(fields, "actor", actor)

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
		r.recordRequestMetrics(req.Method, route, status, duration)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}

func (r *Router) applyRateHeaders(w http.ResponseWriter, limit int, decision rateDecision) {
	if limit <= 0 {
		return
	}
	remaining := limit - decision.count
	if remaining < 0 {
		remaining = 0
	}
	headers := w.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	if !decision.windowEnd.IsZero() {
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.windowEnd.Unix(), 10))
	}
}

// verifyAgentToken ensures agent reports include the configured secret.
func (r *Router) verifyAgentToken(w http.ResponseWriter, req *http.Request) bool {
	expected := r.agentToken
	if expected == "" {
		r.logger.Error("agent token not configured", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "agent authentication misconfigured")
		return false
	}
	token := strings.TrimSpace(req.Header.Get("X-Agent-Token"))
	if token == "" {
		token = strings.TrimSpace(req.URL.Query().Get("agent_token"))
	}
	if len(token) != len(expected) || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
		r.logger.Warn("agent token mismatch", "path", req.URL.Path)
		writeError(w, http.StatusUnauthorized, "invalid agent token")
		return false
	}
	return true
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func (r *Router) notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "not found")
}
