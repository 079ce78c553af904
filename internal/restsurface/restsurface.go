// Package restsurface implements the node's REST surface: cluster
// inspection, health/readiness probes, version/config introspection, and a
// static UI fallback. Grounded on cmd/api's mux.HandleFunc routing and
// mid.Chain middleware composition.
package restsurface

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"

	"github.com/wessley-ai/querent-node/internal/cluster"
	"github.com/wessley-ai/querent-node/internal/config"
	"github.com/wessley-ai/querent-node/internal/ratelimit"
	"github.com/wessley-ai/querent-node/pkg/mid"
)

// Version is set at build time via -ldflags, defaulting to "dev".
var Version = "dev"

// Server wires the REST surface's dependencies.
type Server struct {
	cluster *cluster.Cluster
	config  *config.Config
	limiter *ratelimit.RESTLimiter
	uiDir   string
	log     *slog.Logger
}

// New builds a Server. uiDir may be empty, in which case /ui/* 404s. limiter
// may be nil, in which case requests are never throttled.
func New(c *cluster.Cluster, cfg *config.Config, limiter *ratelimit.RESTLimiter, uiDir string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{cluster: c, config: cfg, limiter: limiter, uiDir: uiDir, log: log}
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limited")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Handler returns the fully wrapped http.Handler for this surface.
func (s *Server) Handler(corsOrigin string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /cluster", s.handleCluster)
	mux.HandleFunc("GET /health/livez", s.handleLivez)
	mux.HandleFunc("GET /health/readyz", s.handleReadyz)
	mux.HandleFunc("GET /version", s.handleVersion)
	mux.HandleFunc("GET /config", s.handleConfig)
	mux.HandleFunc("GET /ui/", s.handleUI)

	return mid.Chain(mux,
		mid.Recover(s.log),
		mid.Logger(s.log),
		mid.CORS(corsOrigin),
		mid.OTel("querent-node"),
		s.rateLimit,
	)
}

type clusterNode struct {
	NodeID   string `json:"node_id"`
	GRPCAddr string `json:"grpc_addr"`
	Ready    bool   `json:"ready"`
	Self     bool   `json:"is_self"`
}

func (s *Server) handleCluster(w http.ResponseWriter, r *http.Request) {
	clusterID := s.config.ClusterID
	if q := r.URL.Query().Get("cluster_id"); q != "" {
		clusterID = q
	}
	states, err := s.cluster.FetchClusterState(clusterID)
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	nodes := make([]clusterNode, 0, len(states))
	for _, st := range states {
		nodes = append(nodes, clusterNode{
			NodeID: st.ChitchatID,
			Ready:  st.KV["is_ready"] == "true",
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"cluster_id": clusterID, "nodes": nodes})
}

func (s *Server) handleLivez(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "live"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	if !s.cluster.IsSelfNodeReady() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": Version})
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	data, err := s.config.Marshal()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.Write(data)
}

func (s *Server) handleUI(w http.ResponseWriter, r *http.Request) {
	if s.uiDir == "" {
		http.NotFound(w, r)
		return
	}
	http.StripPrefix("/ui/", http.FileServer(http.Dir(s.uiDir))).ServeHTTP(w, r)
	if _, err := os.Stat(s.uiDir); err != nil {
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
