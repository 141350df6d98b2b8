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
	"io"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/sdnwifi/wifistats/stats"
)

type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to a query server. Without options the connection is insecure.
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.Dial(target, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", target)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) Latest(ctx context.Context) (stats.SampleSet, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, fullMethod("Latest"), &emptypb.Empty{}, out); err != nil {
		return stats.SampleSet{}, err
	}
	return structToSampleSet(out), nil
}

func (c *Client) Series(ctx context.Context, m stats.Metric) ([]stats.Sample, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, fullMethod("Series"), wrapperspb.String(m.String()), out); err != nil {
		return nil, err
	}
	return structToSeries(out)
}

func (c *Client) Totals(ctx context.Context) (stats.Totals, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, fullMethod("Totals"), &emptypb.Empty{}, out); err != nil {
		return stats.Totals{}, err
	}
	return structToTotals(out), nil
}

func (c *Client) Command(ctx context.Context, cmd string) ([]string, error) {
	out := new(structpb.ListValue)
	if err := c.conn.Invoke(ctx, fullMethod("Command"), wrapperspb.String(cmd), out); err != nil {
		return nil, err
	}
	lines := make([]string, 0, len(out.GetValues()))
	for _, v := range out.GetValues() {
		lines = append(lines, v.GetStringValue())
	}
	return lines, nil
}

// Watch calls fn for every streamed sample set until the server ends the stream, ctx is
// done or fn returns an error.
func (c *Client) Watch(ctx context.Context, fn func(ss stats.SampleSet) error) error {
	stream, err := c.conn.NewStream(ctx, &statsServiceDesc.Streams[0], fullMethod("Watch"))
	if err != nil {
		return err
	}
	if err = stream.SendMsg(&emptypb.Empty{}); err != nil {
		return err
	}
	if err = stream.CloseSend(); err != nil {
		return err
	}
	for {
		msg := new(structpb.Struct)
		err = stream.RecvMsg(msg)
		if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}
		if err = fn(structToSampleSet(msg)); err != nil {
			return err
		}
	}
}
