// Package mockapi is an in-memory stand-in for the router's rule API, used
// for development and by tests that exercise the real HTTP client.
package mockapi

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"grimm.is/rulestage/internal/client"
	"grimm.is/rulestage/internal/clock"
	"grimm.is/rulestage/internal/i18n"
	"grimm.is/rulestage/internal/logging"
	"grimm.is/rulestage/internal/metrics"
	"grimm.is/rulestage/internal/rules"
)

// WebSocketPath is where rule-change notifications are published.
const WebSocketPath = "/api/ws/rules"

// Options configures a Server.
type Options struct {
	// ApplyDelay hides writes from GET until it has elapsed.
	ApplyDelay time.Duration
	// ReturnState makes POST and DELETE responses carry the collection's
	// post-mutation list.
	ReturnState bool
	// APIKey, when set, is required in X-API-Key.
	APIKey  string
	Clock   clock.Clock
	Logger  *logging.Logger
	Metrics *metrics.Registry
}

// Server serves the eight rule collections.
type Server struct {
	opts   Options
	clock  clock.Clock
	logger *logging.Logger

	mu          sync.Mutex
	collections map[rules.Category]*collection

	wsMu      sync.RWMutex
	wsClients map[*websocket.Conn]map[string]bool
	upgrader  websocket.Upgrader
}

// New creates an empty server.
func New(opts Options) *Server {
	if opts.Clock == nil {
		opts.Clock = clock.Default()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	s := &Server{
		opts:        opts,
		clock:       opts.Clock,
		logger:      opts.Logger.WithComponent("mockapi"),
		collections: make(map[rules.Category]*collection),
		wsClients:   make(map[*websocket.Conn]map[string]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	for _, cat := range rules.All() {
		s.collections[cat] = newCollection(rules.MustLookup(cat))
	}
	return s
}

// Handler returns the HTTP handler for every collection plus the
// websocket endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	for _, cat := range rules.All() {
		path := rules.MustLookup(cat).Path
		mux.HandleFunc("GET "+path, s.handleList(cat))
		mux.HandleFunc("POST "+path, s.handleCreate(cat))
		mux.HandleFunc("DELETE "+path+"/{key}", s.handleDelete(cat))
	}
	mux.HandleFunc("GET "+WebSocketPath, s.handleWebSocket)
	return s.instrument(i18n.Middleware(s.authenticate(mux)))
}

// Seed stores records immediately visible, as if configured before start.
func (s *Server) Seed(cat rules.Category, records ...map[string]any) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	col := s.collections[cat]
	now := s.clock.Now()
	keys := make([]string, 0, len(records))
	for _, r := range records {
		keys = append(keys, col.add(r, now))
	}
	return keys
}

// SeedRaw stores a router-form record under an explicit key.
func (s *Server) SeedRaw(cat rules.Category, key string, fields map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	col := s.collections[cat]
	rec := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		rec[k] = v
	}
	rec[col.desc.KeyField] = key
	col.entries = append(col.entries, &entry{key: key, fields: rec, visibleAt: s.clock.Now()})
}

// Keys lists the keys currently visible in cat.
func (s *Server) Keys(cat rules.Category) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collections[cat].keys(s.clock.Now())
}

func (s *Server) handleList(cat rules.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		col := s.collections[cat]
		now := s.clock.Now()
		col.compact(now)
		list := col.list(now)
		s.mu.Unlock()

		sendJSON(w, http.StatusOK, list)
	}
}

func (s *Server) handleCreate(cat rules.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := i18n.GetPrinter(r.Context())

		var body struct {
			Rules []map[string]any `json:"rules"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			sendJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		if len(body.Rules) == 0 {
			sendJSON(w, http.StatusOK, map[string]any{
				"success": false,
				"message": p.Sprintf(i18n.MsgNoRulesInBody),
			})
			return
		}

		s.mu.Lock()
		col := s.collections[cat]
		now := s.clock.Now()
		keys := make([]string, 0, len(body.Rules))
		for _, rec := range body.Rules {
			keys = append(keys, col.add(rec, now.Add(s.opts.ApplyDelay)))
		}
		resp := map[string]any{
			"success": true,
			"message": p.Sprintf(i18n.MsgAdded, len(keys)),
			"keys":    keys,
		}
		if s.opts.ReturnState {
			resp["rules"] = col.list(now.Add(s.opts.ApplyDelay))
		}
		s.mu.Unlock()

		s.logger.Info("rules added", "category", cat, "count", len(keys))
		s.announce(col.desc.Path)
		sendJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) handleDelete(cat rules.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := i18n.GetPrinter(r.Context())
		key := r.PathValue("key")

		s.mu.Lock()
		col := s.collections[cat]
		now := s.clock.Now()
		ok := col.remove(key, now.Add(s.opts.ApplyDelay))
		var state []map[string]any
		if ok && s.opts.ReturnState {
			state = col.list(now.Add(s.opts.ApplyDelay))
		}
		s.mu.Unlock()

		if !ok {
			s.logger.Warn("delete of unknown rule", "category", cat, "key", key)
			sendJSON(w, http.StatusOK, map[string]any{
				"success": false,
				"message": p.Sprintf(i18n.MsgRuleNotFound),
			})
			return
		}

		s.logger.Info("rule deleted", "category", cat, "key", key)
		s.announce(col.desc.Path)
		resp := map[string]any{"success": true}
		if state != nil {
			resp["rules"] = state
		}
		sendJSON(w, http.StatusOK, resp)
	}
}

// announce broadcasts a change once it is visible.
func (s *Server) announce(path string) {
	publish := func() {
		s.broadcastWS(client.RulesTopic, map[string]any{"path": path})
	}
	if s.opts.ApplyDelay <= 0 {
		publish()
		return
	}
	s.clock.AfterFunc(s.opts.ApplyDelay, publish)
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.APIKey != "" && r.Header.Get("X-API-Key") != s.opts.APIKey {
			sendJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid API key"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == WebSocketPath {
			// The upgrader needs the raw writer's Hijacker.
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := r.URL.Path
		if cat, ok := categoryOf(path); ok {
			path = rules.MustLookup(cat).Path
		}
		s.opts.Metrics.RecordAPIRequest(r.Method, path, rec.status, time.Since(start).Seconds())
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", rec.status)
	})
}

// categoryOf maps a collection or item path to its category.
func categoryOf(path string) (rules.Category, bool) {
	if cat, ok := rules.ByPath(path); ok {
		return cat, true
	}
	for i := len(path) - 1; i > 0; i-- {
		if path[i] == '/' {
			return rules.ByPath(path[:i])
		}
	}
	return "", false
}

func sendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
