package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// maxLineBytes bounds a single JSON-RPC message.
const maxLineBytes = 4 << 20

// Server answers MCP requests read one per line.
type Server struct {
	registry *Registry
	log      logrus.FieldLogger
	name     string
	version  string

	writeMu sync.Mutex
}

// NewServer creates a server exposing the tools in reg.
func NewServer(reg *Registry, log logrus.FieldLogger, version string) *Server {
	return &Server{
		registry: reg,
		log:      log,
		name:     "nextask",
		version:  version,
	}
}

// Serve reads requests from r until EOF or ctx is cancelled and writes
// responses to w. Requests are handled in order.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		resp := s.handleLine(ctx, line)
		if resp == nil {
			continue
		}
		if err := s.write(w, resp); err != nil {
			return fmt.Errorf("writing response: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading requests: %w", err)
	}
	return nil
}

func (s *Server) write(w io.Writer, resp *response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err = w.Write(append(data, '\n'))
	return err
}

func (s *Server) handleLine(ctx context.Context, line []byte) *response {
	var req request
	if err := json.Unmarshal(line, &req); err != nil {
		s.log.WithError(err).Warn("malformed MCP request")
		return errorResponse(json.RawMessage("null"), codeParseError, "parse error")
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		if req.isNotification() {
			return nil
		}
		return errorResponse(req.ID, codeInvalidRequest, "invalid request")
	}

	log := s.log.WithField("method", req.Method)
	result, rpcErr := s.dispatch(ctx, &req)
	if req.isNotification() {
		log.Debug("notification handled")
		return nil
	}
	if rpcErr != nil {
		log.WithField("code", rpcErr.Code).Debug(rpcErr.Message)
		return &response{JSONRPC: "2.0", ID: req.ID, Error: rpcErr}
	}
	log.Debug("request handled")
	return &response{JSONRPC: "2.0", ID: req.ID, Result: result}
}

func (s *Server) dispatch(ctx context.Context, req *request) (interface{}, *rpcError) {
	switch req.Method {
	case "initialize":
		return initializeResult{
			ProtocolVersion: ProtocolVersion,
			Capabilities:    map[string]interface{}{"tools": map[string]interface{}{}},
			ServerInfo:      serverInfo{Name: s.name, Version: s.version},
		}, nil
	case "notifications/initialized", "ping":
		return map[string]interface{}{}, nil
	case "tools/list":
		return map[string]interface{}{"tools": s.registry.List()}, nil
	case "tools/call":
		return s.callTool(ctx, req.Params)
	default:
		return nil, &rpcError{Code: codeMethodNotFound, Message: "method not found: " + req.Method}
	}
}

func (s *Server) callTool(ctx context.Context, raw json.RawMessage) (interface{}, *rpcError) {
	var params callParams
	if len(raw) == 0 {
		return nil, &rpcError{Code: codeInvalidParams, Message: "missing params"}
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: "invalid params: " + err.Error()}
	}

	_, handler, ok := s.registry.Get(params.Name)
	if !ok {
		return nil, &rpcError{Code: codeInvalidParams, Message: "unknown tool: " + params.Name}
	}
	if params.Arguments == nil {
		params.Arguments = map[string]interface{}{}
	}

	result, err := handler(ctx, params.Arguments)
	if err != nil {
		s.log.WithError(err).WithField("tool", params.Name).Warn("tool call failed")
		return ErrorResult(err.Error()), nil
	}
	if result == nil {
		return nil, &rpcError{Code: codeInternalError, Message: "tool returned no result"}
	}
	return result, nil
}

func errorResponse(id json.RawMessage, code int, msg string) *response {
	return &response{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: msg}}
}
