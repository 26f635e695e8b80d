// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package mcpserver exposes a pipeline session as MCP tools, so that an
// editor in another process can parse, edit and run pipelines.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/marcelocantos/stagecraft/internal/ast"
	"github.com/marcelocantos/stagecraft/internal/pipeline"
	"github.com/marcelocantos/stagecraft/internal/session"
	"github.com/marcelocantos/stagecraft/internal/stage"
)

// Server serves one session.
type Server struct {
	sess   *session.Session
	exec   *pipeline.Executor
	logger *zap.Logger
	mcp    *server.MCPServer
}

// New builds a server for sess, running pipelines with exec. A nil logger
// discards.
func New(sess *session.Session, exec *pipeline.Executor, logger *zap.Logger, version string) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		sess:   sess,
		exec:   exec,
		logger: logger,
		mcp:    server.NewMCPServer("stagecraft", version, server.WithToolCapabilities(false)),
	}

	s.mcp.AddTool(mcp.NewTool("parse_pipeline",
		mcp.WithDescription("Set the session's pipeline text and return its syntax tree and stage list."),
		mcp.WithString("text", mcp.Required(), mcp.Description("shell pipeline text")),
	), s.parsePipeline)

	s.mcp.AddTool(mcp.NewTool("compile_pipeline",
		mcp.WithDescription("Render a syntax tree or a stage list as pipeline text. Does not change the session."),
		mcp.WithObject("ast", mcp.Description("syntax tree as returned by parse_pipeline")),
		mcp.WithArray("modules", mcp.Description("stage list as returned by parse_pipeline")),
	), s.compilePipeline)

	s.mcp.AddTool(mcp.NewTool("run_pipeline",
		mcp.WithDescription("Run the session's pipeline, returning the output after every stage. "+
			"A newer run supersedes an older one."),
		mcp.WithString("text", mcp.Description("replace the session text before running")),
	), s.runPipeline)

	s.mcp.AddTool(mcp.NewTool("update_stage",
		mcp.WithDescription("Merge fields into one stage and return the regenerated text."),
		mcp.WithNumber("index", mcp.Required(), mcp.Description("stage index, from 0")),
		mcp.WithObject("fields", mcp.Required(), mcp.Description("field values to set")),
	), s.updateStage)

	s.mcp.AddTool(mcp.NewTool("get_state",
		mcp.WithDescription("Return the session's text, stage list, sync state and last error."),
	), s.getState)

	s.mcp.AddTool(mcp.NewTool("list_stages",
		mcp.WithDescription("List the stage types with their descriptions and field schemas."),
	), s.listStages)

	return s
}

// MCP returns the underlying MCP server.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// ServeStdio serves requests on stdin and stdout until stdin closes.
func (s *Server) ServeStdio() error {
	s.logger.Info("serving MCP on stdio")
	return server.ServeStdio(s.mcp)
}

type stateView struct {
	Text    string                 `json:"text"`
	Modules []stage.EnhancedModule `json:"modules"`
	State   string                 `json:"state,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

type parseView struct {
	AST     json.RawMessage        `json:"ast"`
	Modules []stage.EnhancedModule `json:"modules"`
}

type stageView struct {
	Command string `json:"command"`
	Stdout  string `json:"stdout"`
	Stderr  string `json:"stderr,omitempty"`
}

type pluginView struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Schema      map[string]any `json:"schema,omitempty"`
}

// jsonResult wraps v as a text result. Failures to marshal become error
// results so that the protocol itself never fails.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) toolError(tool string, err error) (*mcp.CallToolResult, error) {
	s.logger.Debug("tool failed", zap.String("tool", tool), zap.Error(err))
	return mcp.NewToolResultError(err.Error()), nil
}

func (s *Server) parsePipeline(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return s.toolError("parse_pipeline", err)
	}
	if err := s.sess.SetText(text); err != nil {
		return s.toolError("parse_pipeline", err)
	}
	tree, err := ast.Encode(s.sess.Script())
	if err != nil {
		return s.toolError("parse_pipeline", err)
	}
	return jsonResult(parseView{AST: tree, Modules: s.sess.Modules()})
}

func (s *Server) compilePipeline(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	if raw, ok := args["ast"]; ok && raw != nil {
		data, err := json.Marshal(raw)
		if err != nil {
			return s.toolError("compile_pipeline", err)
		}
		n, err := ast.Decode(data)
		if err != nil {
			return s.toolError("compile_pipeline", err)
		}
		return mcp.NewToolResultText(s.sess.Printer().Print(n)), nil
	}
	if raw, ok := args["modules"]; ok && raw != nil {
		data, err := json.Marshal(raw)
		if err != nil {
			return s.toolError("compile_pipeline", err)
		}
		var mods []stage.EnhancedModule
		if err := json.Unmarshal(data, &mods); err != nil {
			return s.toolError("compile_pipeline", fmt.Errorf("decode modules: %w", err))
		}
		reg := s.sess.Registry()
		for i, m := range mods {
			if err := reg.Validate(m.Module); err != nil {
				return s.toolError("compile_pipeline", fmt.Errorf("stage %d: %w", i, err))
			}
		}
		return mcp.NewToolResultText(session.CompileCommand(reg, s.sess.Printer(), mods)), nil
	}
	return s.toolError("compile_pipeline", errors.New("one of ast or modules is required"))
}

func (s *Server) runPipeline(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if text := req.GetString("text", ""); text != "" {
		if err := s.sess.SetText(text); err != nil {
			return s.toolError("run_pipeline", err)
		}
	}
	results, err := s.exec.Incremental(ctx, s.sess.Script(), nil)
	if err != nil {
		return s.toolError("run_pipeline", err)
	}
	out := make([]stageView, len(results))
	for i, r := range results {
		out[i] = stageView{Command: r.Command, Stdout: string(r.Stdout), Stderr: string(r.Stderr)}
	}
	return jsonResult(map[string]any{"results": out})
}

func (s *Server) updateStage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	index, err := req.RequireInt("index")
	if err != nil {
		return s.toolError("update_stage", err)
	}
	fields, ok := req.GetArguments()["fields"].(map[string]any)
	if !ok {
		return s.toolError("update_stage", errors.New("fields must be an object"))
	}
	if err := s.sess.UpdateStage(index, stage.Fields(fields)); err != nil {
		return s.toolError("update_stage", err)
	}
	snap := s.sess.Snapshot()
	return jsonResult(stateView{Text: snap.Text, Modules: snap.Modules})
}

func (s *Server) getState(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap := s.sess.Snapshot()
	v := stateView{Text: snap.Text, Modules: snap.Modules, State: s.sess.State().String()}
	if v.Modules == nil {
		v.Modules = []stage.EnhancedModule{}
	}
	if err := s.sess.LastError(); err != nil {
		v.Error = err.Error()
	}
	return jsonResult(v)
}

func (s *Server) listStages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var out []pluginView
	for _, p := range s.sess.Registry().All() {
		out = append(out, pluginView{Name: p.CommandName(), Description: p.Description(), Schema: p.Schema()})
	}
	return jsonResult(out)
}
