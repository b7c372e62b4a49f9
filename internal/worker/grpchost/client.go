// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package grpchost provides a gRPC-backed execution worker. It relays
// request/response envelopes over a bidirectional stream to the hosted
// compute service, which runs the same WASM module the in-process host runs
// locally. Envelopes travel as protobuf Struct values, so the wire shape
// matches the JSON envelope schema field for field.
//
// The package manages connection lifecycle, stream handling, and conversion
// between envelope types and the Struct wire format.
package grpchost

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	apperrors "seedfast/credrelay/internal/errors"
	"seedfast/credrelay/internal/worker"
)

// relayMethod is the literal path of the compute host's relay stream.
const relayMethod = "/credrelay.v1.ComputeHost/Relay"

// Client implements worker.Worker over the ComputeHost.Relay bidi stream.
type Client struct {
	addr string

	conn   *grpc.ClientConn
	stream *grpc.GenericClientStream[structpb.Struct, structpb.Struct]

	out chan worker.Response

	// sendMu serializes stream writes and guards the token fields.
	sendMu sync.Mutex

	// In-memory token storage with TTL
	accessToken string
	tokenExpiry time.Time
}

// NewClient creates a client for the compute host at addr. The access token
// is stored in-memory with a 20-minute TTL and sent with each request.
func NewClient(addr string, accessToken string) *Client {
	return &Client{
		addr:        addr,
		accessToken: accessToken,
		tokenExpiry: time.Now().Add(20 * time.Minute),
		out:         make(chan worker.Response, 64),
	}
}

// Start dials the compute host and opens the relay stream. Responses are
// received from the moment the stream is up.
func (c *Client) Start(ctx context.Context) error {
	// Derive SNI and ensure default port if missing
	host := c.addr
	if h, _, err := net.SplitHostPort(c.addr); err == nil {
		host = h
	}
	target := c.addr
	if _, _, err := net.SplitHostPort(c.addr); err != nil {
		target = net.JoinHostPort(c.addr, "443")
	}

	tlsCfg := &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
	creds := credentials.NewTLS(tlsCfg)
	dctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var err error
	c.conn, err = grpc.DialContext(dctx, target, grpc.WithTransportCredentials(creds), grpc.WithBlock())
	if err != nil {
		return apperrors.Wrap(apperrors.WorkerUnavailable, "dial compute host", err)
	}

	// Attach authorization metadata to context
	md := metadata.Pairs("authorization", "Bearer "+c.accessToken)
	ctx = metadata.NewOutgoingContext(ctx, md)

	// The hosted service exposes the relay stream under its literal path.
	cs, sErr := c.conn.NewStream(ctx, &grpc.StreamDesc{ServerStreams: true, ClientStreams: true}, relayMethod)
	if sErr != nil {
		_ = c.conn.Close()
		return apperrors.Wrap(apperrors.StreamFailed, "open relay stream", sErr)
	}
	c.stream = &grpc.GenericClientStream[structpb.Struct, structpb.Struct]{ClientStream: cs}
	go c.receiveLoop()
	go func() { <-ctx.Done(); _ = c.Close(context.Background()) }()
	return nil
}

// Send posts a request envelope over the stream.
func (c *Client) Send(ctx context.Context, req worker.Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.stream == nil {
		return apperrors.New(apperrors.StreamFailed, "stream not initialized")
	}
	if ok, expiry := c.tokenValid(); !ok {
		return &apperrors.SessionError{TokenKind: "access", ExpiresAt: expiry, Refreshable: false}
	}

	msg, err := requestStruct(req)
	if err != nil {
		return apperrors.Wrap(apperrors.StreamFailed, "encode request envelope", err)
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if err := c.stream.Send(msg); err != nil {
		return apperrors.Wrap(apperrors.StreamFailed, "send request envelope", err)
	}
	return nil
}

// Responses returns the envelope stream. Closed when the relay stream ends.
func (c *Client) Responses() <-chan worker.Response {
	return c.out
}

// Close tears the stream and connection down and clears the token from
// memory. Outstanding computations on the host are abandoned.
func (c *Client) Close(ctx context.Context) error {
	c.sendMu.Lock()
	c.accessToken = ""
	c.tokenExpiry = time.Time{}
	if c.stream != nil {
		_ = c.stream.CloseSend()
	}
	c.sendMu.Unlock()

	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// tokenValid reports whether the access token is still valid (not expired)
// and returns its expiry for error reporting.
func (c *Client) tokenValid() (bool, time.Time) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.accessToken != "" && time.Now().Before(c.tokenExpiry), c.tokenExpiry
}

func (c *Client) receiveLoop() {
	defer close(c.out)
	for {
		msg, err := c.stream.Recv()
		if err != nil {
			// Differentiate normal close vs error; a plain EOF is not a fault
			if errors.Is(err, io.EOF) {
				return
			}
			if st, ok := status.FromError(err); ok {
				c.out <- worker.Response{Type: worker.TypeError, Error: st.Code().String() + ": " + st.Message()}
			} else {
				c.out <- worker.Response{Type: worker.TypeError, Error: err.Error()}
			}
			return
		}
		c.out <- responseFromStruct(msg)
	}
}

// requestStruct converts a request envelope to its Struct wire form.
func requestStruct(req worker.Request) (*structpb.Struct, error) {
	fields := map[string]any{"type": string(req.Type)}
	if req.Data != nil {
		fields["data"] = req.Data
	}
	if req.RequestID != 0 {
		fields["requestId"] = req.RequestID
	}
	return structpb.NewStruct(fields)
}

// responseFromStruct converts a Struct wire message back to a response
// envelope. Struct numbers arrive as float64.
func responseFromStruct(msg *structpb.Struct) worker.Response {
	m := msg.AsMap()
	resp := worker.Response{}
	if s, ok := m["type"].(string); ok {
		resp.Type = worker.MessageType(s)
	}
	if r, ok := m["result"].(map[string]any); ok {
		resp.Result = r
	}
	if e, ok := m["error"].(string); ok {
		resp.Error = e
	}
	if id, ok := m["requestId"].(float64); ok {
		resp.RequestID = uint64(id)
	}
	if cx, ok := m["context"].(map[string]any); ok {
		resp.Context = cx
	}
	return resp
}
