// Package main is the querent node entrypoint: load config, connect every
// configured storage backend, join the gossip cluster, run the semantic
// pipeline, and serve the RPC and REST surfaces until signalled to stop.
// Grounded on cmd/api/main.go's Config/run()/graceful-shutdown shape.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/automaxprocs/maxprocs"
	"google.golang.org/grpc"

	"github.com/wessley-ai/querent-node/internal/actor"
	"github.com/wessley-ai/querent-node/internal/cluster"
	"github.com/wessley-ai/querent-node/internal/config"
	"github.com/wessley-ai/querent-node/internal/discovery"
	"github.com/wessley-ai/querent-node/internal/engine"
	"github.com/wessley-ai/querent-node/internal/eventbus"
	"github.com/wessley-ai/querent-node/internal/eventstate"
	"github.com/wessley-ai/querent-node/internal/insight"
	"github.com/wessley-ai/querent-node/internal/model"
	"github.com/wessley-ai/querent-node/internal/pipeline"
	"github.com/wessley-ai/querent-node/internal/ratelimit"
	"github.com/wessley-ai/querent-node/internal/restsurface"
	"github.com/wessley-ai/querent-node/internal/rpcsurface"
	"github.com/wessley-ai/querent-node/internal/secretstore"
	"github.com/wessley-ai/querent-node/internal/storage"
	"github.com/wessley-ai/querent-node/internal/storage/graphstore"
	"github.com/wessley-ai/querent-node/internal/storage/indexstore"
	"github.com/wessley-ai/querent-node/internal/storage/vectorstore"
	"github.com/wessley-ai/querent-node/pkg/metrics"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if _, err := maxprocs.Set(maxprocs.Logger(func(f string, a ...any) { logger.Info(fmt.Sprintf(f, a...)) })); err != nil {
		logger.Warn("maxprocs: could not set GOMAXPROCS", "error", err)
	}

	configPath := envOr("QUERENT_CONFIG", "/etc/querent/node.yaml")
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("node exited with error", "error", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backends, err := dialStorageBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backends.Close(ctx)

	secrets, err := secretstore.Open(envOr("QUERENT_SECRETS_FILE", "/var/lib/querent/querent_secrets.msgpack"))
	if err != nil {
		return fmt.Errorf("open secret store: %w", err)
	}
	_ = secrets // opened so a bad secrets file fails startup; nothing else in run reads it

	rt := actor.InitializeRuntimes(0)

	reg, err := buildEventStorages(backends)
	if err != nil {
		return err
	}

	var secretStorage storage.Storage
	if len(backends.index) > 0 {
		secretStorage = backends.index[0]
	}

	pl := pipeline.New(pipeline.Settings{
		PipelineID:    cfg.NodeID + "-pipeline",
		EventStorages: reg,
		IndexStorages: toStorageSlice(backends.index),
		SecretStorage: secretStorage,
		SourceConfigs: []pipeline.SourceConfig{{Kind: "filesystem", URI: envOr("QUERENT_INGEST_DIR", "/var/lib/querent/ingest")}},
		EngineConfig:  pipeline.EngineConfig{Name: "reference-engine"},
		MaxRestarts:   pipeline.DefaultMaxRestarts,
	}, newSource(envOr("QUERENT_INGEST_DIR", "/var/lib/querent/ingest")), engine.NewReferenceEngine(cfg.NodeID))

	pipelineHandle := pipeline.Start(rt, pl, nil)
	pipelines := rpcsurface.NewPipelineRegistry()
	pipelines.Register(cfg.NodeID+"-pipeline", pipelineHandle)

	var nc *nats.Conn
	if url := os.Getenv("QUERENT_NATS_URL"); url != "" {
		nc, err = nats.Connect(url)
		if err != nil {
			logger.Warn("eventbus: nats connect failed, continuing without it", "error", err)
		} else {
			defer nc.Close()
		}
	}
	bus := eventbus.New(nc, logger)

	metricsReg := metrics.New()
	gossipAddr := fmt.Sprintf("%s:%d", cfg.ListenAddress, cfg.GossipListenPort)
	grpcAdvertise := cfg.GRPCConfig.AdvertiseAddr
	if grpcAdvertise == "" {
		grpcAdvertise = cfg.GRPCAdvertiseAddr
	}
	clst, cancelCluster := cluster.Join(ctx, cluster.Config{
		ClusterID: cfg.ClusterID,
		Self: model.ClusterMember{
			NodeId:              model.NodeId(cfg.NodeID),
			GenerationId:        model.NowGenerationId(),
			IsReady:             false,
			GossipAdvertiseAddr: gossipAddr,
			GRPCAdvertiseAddr:   grpcAdvertise,
			CPUCapacityMillis:   model.CpuCapacityFromMillis(cfg.CPUCapacity),
		},
		GossipAddr: gossipAddr,
		PeerSeeds:  cfg.PeerSeeds,
		Transport:  cluster.NewMemoryTransport(),
	}, metricsReg)
	defer cancelCluster()

	go bus.WatchClusterChanges(ctx, clst.ChangeStream())

	rateLimits := ratelimit.NewRegistry(nil)
	discoveryStore := discovery.NewStore()
	var discoveryRunner discovery.Runner
	if len(backends.vector) > 0 && len(backends.index) > 0 {
		discoveryRunner = discovery.NewRunner(backends.vector[0], backends.index[0], discoveryStore)
	}
	insights := insight.NewRegistry()

	grpcSrv := grpc.NewServer(rpcsurface.UnaryInterceptor(rateLimits))
	rpcsurface.Register(grpcSrv, rpcsurface.Deps{
		Cluster:   clst,
		Pipelines: pipelines,
		Discovery: discoveryRunner,
		Insights:  insights,
	})

	grpcLis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCConfig.ListenPort))
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}

	restLimiter := ratelimit.NewRESTLimiter(ratelimit.Config{RequestsPerSecond: 100, Burst: 200})
	restSrv := restsurface.New(clst, cfg, restLimiter, envOr("QUERENT_UI_DIR", ""), logger)
	httpSrv := &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      restSrv.Handler("*"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("grpc surface starting", "port", cfg.GRPCConfig.ListenPort)
		clst.MarkRPCReady()
		errCh <- grpcSrv.Serve(grpcLis)
	}()
	go func() {
		logger.Info("rest surface starting", "addr", cfg.ListenAddress)
		clst.MarkRESTReady()
		err := httpSrv.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	clst.SetSelfNodeReadiness(false)
	grpcSrv.GracefulStop()
	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutCtx); err != nil {
		logger.Warn("rest surface shutdown", "error", err)
	}

	pipelineHandle.Send(context.Background(), pipeline.Msg{StopPipeline: &pipeline.StopPipelineMsg{PipelineID: cfg.NodeID + "-pipeline"}})
	<-pipelineHandle.Done()
	return nil
}

// storageBackends holds every dialed backend, grouped by the capability it
// serves; a backend can appear in more than one group (the graph store
// also serves as an index backend).
type storageBackends struct {
	graph   []storage.Storage
	vector  []vectorstoreSearcher
	index   []indexBackend
	closers []func(context.Context) error
}

// vectorstoreSearcher is storage.Storage plus storage.VectorSearcher, the
// shape vectorstore.Store provides.
type vectorstoreSearcher interface {
	storage.Storage
	storage.VectorSearcher
}

// indexBackend is storage.Storage plus storage.IndexLookup, the shape both
// graphstore.Store and indexstore.Store provide.
type indexBackend interface {
	storage.Storage
	storage.IndexLookup
}

func (b *storageBackends) Close(ctx context.Context) {
	for _, c := range b.closers {
		_ = c(ctx)
	}
}

func dialStorageBackends(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*storageBackends, error) {
	out := &storageBackends{}
	for _, sc := range cfg.StorageConfigs {
		switch sc.Kind {
		case config.KindNeo4j:
			uri, _ := sc.Config["uri"].(string)
			user, _ := sc.Config["user"].(string)
			pass, _ := sc.Config["password"].(string)
			driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, pass, ""))
			if err != nil {
				return nil, fmt.Errorf("neo4j driver: %w", err)
			}
			gs := graphstore.New("neo4j", driver)
			out.graph = append(out.graph, gs)
			out.index = append(out.index, gs)
			out.closers = append(out.closers, func(ctx context.Context) error { return driver.Close(ctx) })
		case config.KindQdrant:
			addr, _ := sc.Config["addr"].(string)
			dims := 8
			if d, ok := sc.Config["dims"].(int); ok {
				dims = d
			}
			vs, err := vectorstore.Dial("qdrant", addr, dims)
			if err != nil {
				return nil, fmt.Errorf("qdrant dial: %w", err)
			}
			out.vector = append(out.vector, vs)
			out.closers = append(out.closers, func(context.Context) error { vs.Close(); return nil })
		default:
			logger.Warn("storage_configs: kind has no built-in driver, skipping", "kind", sc.Kind)
		}
	}
	if len(out.index) == 0 {
		out.index = append(out.index, indexstore.New("memory-index"))
	}
	return out, nil
}

func buildEventStorages(b *storageBackends) (map[eventstate.Kind][]storage.Storage, error) {
	reg := make(map[eventstate.Kind][]storage.Storage)
	for _, g := range b.graph {
		reg[eventstate.KindGraph] = append(reg[eventstate.KindGraph], g)
	}
	for _, v := range b.vector {
		reg[eventstate.KindVector] = append(reg[eventstate.KindVector], v)
	}
	return reg, nil
}

func toStorageSlice[T storage.Storage](in []T) []storage.Storage {
	out := make([]storage.Storage, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func newSource(root string) pipeline.EventSource {
	return &pipeline.FilesystemSource{Root: root, DocSource: "node-ingest"}
}
