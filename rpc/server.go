// Copyright (c) 2024, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

package rpc

import (
	"context"
	"net"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/sdnwifi/wifistats/logger"
	"github.com/sdnwifi/wifistats/stats"
	"github.com/sdnwifi/wifistats/tracing"
)

// CommandFunc runs one console command and returns its output lines.
type CommandFunc func(cmd string) ([]string, error)

type Server struct {
	store   *Store
	command CommandFunc
	server  *grpc.Server
	address string
}

// NewServer creates the query server. command may be nil, in which case Command is
// unimplemented. Extra interceptors run after the tracing interceptor.
func NewServer(address string, store *Store, command CommandFunc, interceptors ...grpc.UnaryServerInterceptor) *Server {
	chain := append([]grpc.UnaryServerInterceptor{tracing.UnaryServerInterceptor()}, interceptors...)
	gs := &Server{
		store:   store,
		command: command,
		address: address,
		server: grpc.NewServer(
			grpc.StatsHandler(otelgrpc.NewServerHandler()),
			grpc.ChainUnaryInterceptor(chain...),
		),
	}
	RegisterStatsServer(gs.server, gs)
	return gs
}

func (gs *Server) Latest(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	ss, ok := gs.store.Latest()
	if !ok {
		return nil, status.Error(codes.NotFound, "no sample reported yet")
	}
	return sampleSetToStruct(ss)
}

func (gs *Server) Series(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	m, err := stats.ParseMetric(req.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	return seriesToStruct(m, gs.store.Series(m))
}

func (gs *Server) Totals(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return totalsToStruct(gs.store.Totals())
}

func (gs *Server) Command(ctx context.Context, req *wrapperspb.StringValue) (*structpb.ListValue, error) {
	if gs.command == nil {
		return nil, status.Error(codes.Unimplemented, "commands not available")
	}
	output, err := gs.command(strings.TrimSpace(req.GetValue()))
	if err != nil {
		return nil, status.Error(codes.FailedPrecondition, err.Error())
	}
	lines := make([]interface{}, 0, len(output))
	for _, l := range output {
		lines = append(lines, l)
	}
	return structpb.NewList(lines)
}

// Watch streams every sample set reported after the call until the run ends or the client
// goes away.
func (gs *Server) Watch(_ *emptypb.Empty, stream grpc.ServerStream) error {
	ch, cancel := gs.store.Subscribe()
	defer cancel()
	logger.Debugf("new watch stream")

	for {
		select {
		case ss, ok := <-ch:
			if !ok {
				return nil
			}
			msg, err := sampleSetToStruct(ss)
			if err != nil {
				return err
			}
			if err = stream.SendMsg(msg); err != nil {
				return err
			}
		case <-stream.Context().Done():
			err := stream.Context().Err()
			logger.Debugf("watch stream exit: %v", err)
			return err
		}
	}
}

func (gs *Server) Run() error {
	lis, err := net.Listen("tcp", gs.address)
	if err != nil {
		return err
	}
	return gs.Serve(lis)
}

func (gs *Server) Serve(lis net.Listener) error {
	logger.Infof("gRPC query server serving on %s ...", lis.Addr())
	return gs.server.Serve(lis)
}

func (gs *Server) Stop() {
	gs.server.Stop()
}
