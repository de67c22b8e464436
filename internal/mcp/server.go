package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/ppiankov/cyberlab/internal/labs"
)

// Server exposes the labs as MCP tools.
type Server struct {
	mcpServer *mcpsdk.Server
	svc       *labs.Service
	log       *zap.Logger
}

// New creates an MCP server backed by svc.
func New(svc *labs.Service, version string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		svc: svc,
		log: log.Named("mcp"),
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "cyberlab",
			Version: version,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport. Blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// registerTools adds all lab tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "cyberlab_labs",
		Description: "List the security training labs with their modes and payload counts.",
	}, s.handleLabs)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "cyberlab_payloads",
		Description: "List the example attack payloads for one lab.",
	}, s.handlePayloads)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "cyberlab_classify",
		Description: "Submit a payload to a lab in a given mode and return the simulated outcome. Nothing is executed.",
	}, s.handleClassify)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "cyberlab_jwt_token",
		Description: "Issue a lab-signed JWT, or edit the claims of an existing token without re-signing it.",
	}, s.handleToken)
}
