// Package mcp exposes session operations as Model Context Protocol tools so
// that editors and agents can drive the assistant.
package mcp

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/m-mizutani/devpilot/pkg/model"
	"github.com/m-mizutani/devpilot/pkg/usecase/session"
	"github.com/m-mizutani/goerr/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const defaultListLimit = 20

type codeParams struct {
	Code     string `json:"code" jsonschema:"Source code to work on"`
	Language string `json:"language,omitempty" jsonschema:"Programming language, javascript when omitted"`
}

type generateParams struct {
	Prompt   string `json:"prompt" jsonschema:"Natural language description of the code to write"`
	Language string `json:"language,omitempty" jsonschema:"Programming language, javascript when omitted"`
}

type chatParams struct {
	Message string `json:"message" jsonschema:"Message to the assistant"`
}

type createWorkflowParams struct {
	Description string `json:"description" jsonschema:"What the workflow should accomplish"`
}

type workflowIDParams struct {
	ID string `json:"id" jsonschema:"Workflow task ID"`
}

type failWorkflowParams struct {
	ID     string `json:"id" jsonschema:"Workflow task ID"`
	Reason string `json:"reason" jsonschema:"Why the workflow failed"`
}

type listInteractionsParams struct {
	Kind  string `json:"kind,omitempty" jsonschema:"Filter by kind: code, text, workflow or voice"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of newest interactions to return"`
}

type noParams struct{}

// Server registers tools backed by one session
type Server struct {
	sess   *session.Session
	server *mcp.Server
}

// NewServer creates an MCP server over sess
func NewServer(sess *session.Session, version string) *Server {
	s := &Server{
		sess: sess,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "devpilot",
			Version: version,
		}, nil),
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "complete_code",
		Description: "Continue the given code",
	}, s.completeCode)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "generate_code",
		Description: "Write code from a natural language prompt",
	}, s.generateCode)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_code",
		Description: "Review code and return feedback",
	}, s.analyzeCode)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "chat",
		Description: "Ask the development assistant a question",
	}, s.chat)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "create_workflow",
		Description: "Plan a workflow task from a description. The task starts pending.",
	}, s.createWorkflow)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "start_workflow",
		Description: "Start running a pending workflow task",
	}, s.startWorkflow)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "pause_workflow",
		Description: "Pause a running workflow task. Progress resets to 0.",
	}, s.pauseWorkflow)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "fail_workflow",
		Description: "Mark a running workflow task as failed with a reason",
	}, s.failWorkflow)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_workflows",
		Description: "List workflow tasks with status and progress",
	}, s.listWorkflows)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_interactions",
		Description: "List recorded interactions, newest first",
	}, s.listInteractions)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_metrics",
		Description: "Return aggregate usage metrics",
	}, s.getMetrics)

	return s
}

// Run serves on transport until ctx is canceled or the peer disconnects
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	if err := s.server.Run(ctx, transport); err != nil {
		return goerr.Wrap(err, "MCP server stopped")
	}
	return nil
}

// Handler returns a streamable HTTP handler for the server
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// MCPServer returns the underlying SDK server
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}

func (s *Server) completeCode(ctx context.Context, _ *mcp.CallToolRequest, params *codeParams) (*mcp.CallToolResult, any, error) {
	suggestion, err := s.sess.Code.Complete(ctx, params.Code, params.Language)
	if err != nil {
		return nil, nil, err
	}
	return textResult(suggestion.Code), nil, nil
}

func (s *Server) generateCode(ctx context.Context, _ *mcp.CallToolRequest, params *generateParams) (*mcp.CallToolResult, any, error) {
	suggestion, err := s.sess.Code.Generate(ctx, params.Prompt, params.Language)
	if err != nil {
		return nil, nil, err
	}
	return textResult(suggestion.Code), nil, nil
}

func (s *Server) analyzeCode(ctx context.Context, _ *mcp.CallToolRequest, params *codeParams) (*mcp.CallToolResult, any, error) {
	analysis, err := s.sess.Code.Analyze(ctx, params.Code, params.Language)
	if err != nil {
		return nil, nil, err
	}
	return textResult(analysis), nil, nil
}

func (s *Server) chat(ctx context.Context, _ *mcp.CallToolRequest, params *chatParams) (*mcp.CallToolResult, any, error) {
	reply, err := s.sess.Chat.Send(ctx, params.Message)
	if err != nil {
		return nil, nil, err
	}
	return textResult(reply), nil, nil
}

func (s *Server) createWorkflow(ctx context.Context, _ *mcp.CallToolRequest, params *createWorkflowParams) (*mcp.CallToolResult, any, error) {
	task, err := s.sess.Workflow.Create(ctx, params.Description)
	if err != nil {
		return nil, nil, err
	}
	return jsonResult(task)
}

func (s *Server) startWorkflow(ctx context.Context, _ *mcp.CallToolRequest, params *workflowIDParams) (*mcp.CallToolResult, any, error) {
	id := model.WorkflowID(params.ID)
	if err := s.sess.Workflow.Start(ctx, id); err != nil {
		return nil, nil, err
	}
	return s.workflowResult(id)
}

func (s *Server) pauseWorkflow(ctx context.Context, _ *mcp.CallToolRequest, params *workflowIDParams) (*mcp.CallToolResult, any, error) {
	id := model.WorkflowID(params.ID)
	if err := s.sess.Workflow.Pause(ctx, id); err != nil {
		return nil, nil, err
	}
	return s.workflowResult(id)
}

func (s *Server) failWorkflow(ctx context.Context, _ *mcp.CallToolRequest, params *failWorkflowParams) (*mcp.CallToolResult, any, error) {
	if params.Reason == "" {
		return nil, nil, model.InputError("reason is required")
	}
	id := model.WorkflowID(params.ID)
	if err := s.sess.Workflow.Fail(ctx, id, params.Reason); err != nil {
		return nil, nil, err
	}
	return s.workflowResult(id)
}

func (s *Server) listWorkflows(_ context.Context, _ *mcp.CallToolRequest, _ *noParams) (*mcp.CallToolResult, any, error) {
	return jsonResult(s.sess.State().Workflows)
}

func (s *Server) listInteractions(_ context.Context, _ *mcp.CallToolRequest, params *listInteractionsParams) (*mcp.CallToolResult, any, error) {
	var kind model.InteractionKind
	if params.Kind != "" {
		kind = model.InteractionKind(params.Kind)
		if err := kind.Validate(); err != nil {
			return nil, nil, err
		}
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	return jsonResult(recentInteractions(s.sess.State().Interactions, kind, limit))
}

// recentInteractions returns up to limit interactions of kind, newest first.
// An empty kind matches every interaction.
func recentInteractions(interactions []model.Interaction, kind model.InteractionKind, limit int) []model.Interaction {
	out := make([]model.Interaction, 0, min(limit, len(interactions)))
	for i := len(interactions) - 1; i >= 0 && len(out) < limit; i-- {
		if kind == "" || interactions[i].Kind == kind {
			out = append(out, interactions[i])
		}
	}
	return out
}

func (s *Server) getMetrics(_ context.Context, _ *mcp.CallToolRequest, _ *noParams) (*mcp.CallToolResult, any, error) {
	return jsonResult(s.sess.RefreshMetrics())
}

func (s *Server) workflowResult(id model.WorkflowID) (*mcp.CallToolResult, any, error) {
	task, ok := s.sess.Store().Workflow(id)
	if !ok {
		return nil, nil, goerr.Wrap(model.ErrWorkflowNotFound, "workflow disappeared", goerr.V("id", id))
	}
	return jsonResult(task)
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to marshal tool result")
	}
	return textResult(string(raw)), nil, nil
}
