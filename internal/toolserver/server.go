// Package toolserver exposes the converter as JSON-RPC 2.0 tools over a
// newline-delimited stream, in the shape used by model context protocol
// clients.
package toolserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/sourcegraph/jsonrpc2"

	"martianoff/vbapy/internal/batch"
	"martianoff/vbapy/internal/converter"
	"martianoff/vbapy/internal/extract"
)

// ProtocolVersion is reported by initialize.
const ProtocolVersion = "2024-11-05"

// ServerName is reported by initialize.
const ServerName = "Excel VBA to Python Converter"

// Server answers tool requests on one connection.
type Server struct {
	conv      *converter.Converter
	extractor *extract.Extractor
	runner    *batch.Runner
	logger    *slog.Logger
	version   string
	tools     []tool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithVersion sets the version reported by initialize.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// New creates a Server. conv must be configured with ext as its extractor.
func New(conv *converter.Converter, ext *extract.Extractor, runner *batch.Runner, opts ...Option) *Server {
	s := &Server{
		conv:      conv,
		extractor: ext,
		runner:    runner,
		logger:    slog.Default(),
		version:   "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tools = s.registerTools()
	return s
}

// Serve handles requests on rwc until the peer disconnects or ctx is done.
func (s *Server) Serve(ctx context.Context, rwc io.ReadWriteCloser) error {
	stream := jsonrpc2.NewBufferedStream(rwc, jsonrpc2.PlainObjectCodec{})
	conn := jsonrpc2.NewConn(ctx, stream, jsonrpc2.HandlerWithError(s.handle))
	s.logger.Info("tool server started", "tools", len(s.tools))

	select {
	case <-ctx.Done():
		conn.Close()
		return ctx.Err()
	case <-conn.DisconnectNotify():
		return nil
	}
}

// ServeStdio serves on the process's standard input and output.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.Serve(ctx, stdio{Reader: os.Stdin, Writer: os.Stdout})
}

type stdio struct {
	io.Reader
	io.Writer
}

func (stdio) Close() error {
	return nil
}

type initializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ServerInfo      serverInfo     `json:"serverInfo"`
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type listResult struct {
	Tools []Tool `json:"tools"`
}

type callParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

func (s *Server) handle(ctx context.Context, _ *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	s.logger.Debug("request", "method", req.Method, "notification", req.Notif)

	switch req.Method {
	case "initialize":
		return initializeResult{
			ProtocolVersion: ProtocolVersion,
			Capabilities:    map[string]any{"tools": map[string]any{}},
			ServerInfo:      serverInfo{Name: ServerName, Version: s.version},
		}, nil

	case "notifications/initialized":
		return nil, nil

	case "ping":
		return map[string]any{}, nil

	case "tools/list":
		return listResult{Tools: s.Tools()}, nil

	case "tools/call":
		var p callParams
		if req.Params == nil {
			return nil, invalidParams("missing params")
		}
		if err := json.Unmarshal(*req.Params, &p); err != nil {
			return nil, invalidParams(err.Error())
		}
		return s.CallTool(ctx, p.Name, p.Arguments)
	}

	return nil, &jsonrpc2.Error{
		Code:    jsonrpc2.CodeMethodNotFound,
		Message: fmt.Sprintf("method not found: %s", req.Method),
	}
}

func invalidParams(msg string) *jsonrpc2.Error {
	return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: msg}
}
