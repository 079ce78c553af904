package rpcsurface

import (
	"context"

	"google.golang.org/grpc"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/wessley-ai/querent-node/internal/cluster"
	"github.com/wessley-ai/querent-node/internal/discovery"
	"github.com/wessley-ai/querent-node/internal/errtax"
	"github.com/wessley-ai/querent-node/internal/insight"
	"github.com/wessley-ai/querent-node/internal/ratelimit"
)

// unaryFunc is the simplified shape every service method implements; it
// hides the interceptor-plumbing boilerplate grpc.MethodDesc.Handler needs.
type unaryFunc func(ctx context.Context, dec func(any) error) (any, error)

// unaryMethod wraps fn into a grpc.MethodDesc.Handler. The interceptor
// argument is supplied by grpc-go itself at dispatch time, sourced from
// whatever interceptor was installed on the *grpc.Server via
// grpc.UnaryInterceptor (see UnaryInterceptor below); it is not
// something callers of Register configure per service. The
// UnaryServerInfo it receives carries the bare method name (e.g.
// "Discover") as FullMethod, not "/service/method".
func unaryMethod(name string, fn unaryFunc) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(_ any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			if interceptor == nil {
				return fn(ctx, dec)
			}
			var decoded any
			info := &grpc.UnaryServerInfo{FullMethod: name}
			handler := func(ctx context.Context, _ any) (any, error) {
				return fn(ctx, func(v any) error {
					decoded = v
					return dec(v)
				})
			}
			return interceptor(ctx, decoded, info, handler)
		},
	}
}

// Deps wires every backing dependency the four services need.
type Deps struct {
	Cluster   *cluster.Cluster
	Pipelines *PipelineRegistry
	Discovery discovery.Runner
	Insights  *insight.Registry
}

// Register builds all four service descriptors and registers them on srv.
// Install rate limiting via UnaryInterceptor when constructing srv.
func Register(srv *grpc.Server, deps Deps) {
	cs := &clusterServer{c: deps.Cluster}
	ss := &semanticsServer{registry: deps.Pipelines}
	ds := &discoveryServer{runner: deps.Discovery}
	is := &insightServer{registry: deps.Insights}

	srv.RegisterService(newClusterServiceDesc(cs), cs)
	srv.RegisterService(newSemanticsServiceDesc(ss), ss)
	srv.RegisterService(newDiscoveryServiceDesc(ds), ds)
	srv.RegisterService(newInsightServiceDesc(is), is)
}

// UnaryInterceptor returns a grpc.ServerOption that rate-limits every
// unary call per info.FullMethod via reg (for methods built by
// unaryMethod that is the bare method name), for use with
// grpc.NewServer(rpcsurface.UnaryInterceptor(reg)).
func UnaryInterceptor(reg *ratelimit.Registry) grpc.ServerOption {
	return grpc.UnaryInterceptor(func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !reg.Allow(info.FullMethod) {
			return nil, grpcstatus.Error(errtax.GRPCCode(errtax.RateLimited), "rate limited")
		}
		return handler(ctx, req)
	})
}
