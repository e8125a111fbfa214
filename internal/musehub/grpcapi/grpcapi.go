// Package grpcapi exposes read-only introspection over gRPC: repo
// branch/PR counts and per-project variation counts by state. It has no
// generated stubs; requests and responses are google.protobuf.Struct so
// the wire contract needs no .proto compilation step.
package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cgcardona/maestro/internal/musehub"
	"github.com/cgcardona/maestro/internal/variation/statemachine"
	"github.com/cgcardona/maestro/internal/variation/store"
	"github.com/cgcardona/maestro/pkg/mlog"
)

// Dependencies are the components introspection reads from. It never
// mutates either.
type Dependencies struct {
	MuseHub    *musehub.Service
	Variations *store.VariationStore
	Logger     mlog.Logger
}

// Server implements the MuseHubIntrospection service.
type Server struct {
	deps Dependencies
}

// NewServer builds a Server.
func NewServer(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = &mlog.NoneLogger{}
	}

	return &Server{deps: deps}
}

// GetRepoStats reports branch and pull-request counts for a repo. Input
// fields: "repoId" (string).
func (s *Server) GetRepoStats(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	repoID := req.GetFields()["repoId"].GetStringValue()

	branches, err := s.deps.MuseHub.Store.ListBranches(ctx, repoID)
	if err != nil {
		return nil, err
	}

	prs, err := s.deps.MuseHub.Store.ListPullRequests(ctx, repoID, nil)
	if err != nil {
		return nil, err
	}

	openPRs := 0

	for _, pr := range prs {
		if pr.State == musehub.PROpen {
			openPRs++
		}
	}

	return structpb.NewStruct(map[string]any{
		"repoId":           repoID,
		"branchCount":      float64(len(branches)),
		"pullRequestCount": float64(len(prs)),
		"openPullRequests": float64(openPRs),
	})
}

// GetVariationStats reports variation counts by state for a project.
// Input fields: "projectId" (string).
func (s *Server) GetVariationStats(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	projectID := req.GetFields()["projectId"].GetStringValue()

	records := s.deps.Variations.ListForProject(projectID, nil)

	counts := map[statemachine.Status]int{}
	for _, r := range records {
		counts[r.SnapshotStatus()]++
	}

	fields := map[string]any{
		"projectId": projectID,
		"total":     float64(len(records)),
	}

	for status, n := range counts {
		fields[string(status)] = float64(n)
	}

	return structpb.NewStruct(fields)
}

func getRepoStatsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(*Server).GetRepoStats(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/musehub.v1.MuseHubIntrospection/GetRepoStats"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(*Server).GetRepoStats(ctx, req.(*structpb.Struct))
	}

	return interceptor(ctx, in, info, handler)
}

func getVariationStatsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(*Server).GetVariationStats(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/musehub.v1.MuseHubIntrospection/GetVariationStats"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(*Server).GetVariationStats(ctx, req.(*structpb.Struct))
	}

	return interceptor(ctx, in, info, handler)
}

// ServiceDesc is hand-authored in place of a protoc-generated
// *_grpc.pb.go, since the request/response types are plain
// google.protobuf.Struct values.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "musehub.v1.MuseHubIntrospection",
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetRepoStats", Handler: getRepoStatsHandler},
		{MethodName: "GetVariationStats", Handler: getVariationStatsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "musehub/introspection.proto",
}

// Register attaches Server to a *grpc.Server under ServiceDesc.
func Register(gs *grpc.Server, srv *Server) {
	gs.RegisterService(&ServiceDesc, srv)
}
