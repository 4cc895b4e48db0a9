package resources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/graphreports/internal/logging"
	"github.com/teemow/graphreports/internal/server"
)

// SessionInfoURI is the URI of the session information resource.
const SessionInfoURI = "session://info"

// sessionInfo never carries the client secret, tokens or the full mailbox address.
type sessionInfo struct {
	AuthFlow      string   `json:"authFlow"`
	Tenant        string   `json:"tenant"`
	MailboxDomain string   `json:"mailboxDomain"`
	GraphBaseURL  string   `json:"graphBaseURL"`
	Scopes        []string `json:"scopes"`
	Authenticated bool     `json:"authenticated"`
}

// RegisterSessionResources registers the session information resource.
func RegisterSessionResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if s == nil || sc == nil {
		return errors.New("mcp server and server context are required")
	}

	infoResource := mcp.NewResource(
		SessionInfoURI,
		"Session Information",
		mcp.WithResourceDescription("Authentication flow, tenant, program mailbox domain and granted scopes of the reports session"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(infoResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleSessionInfo(ctx, request, sc)
	})

	return nil
}

func handleSessionInfo(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	session, err := sc.Session(ctx)
	if err != nil {
		return nil, fmt.Errorf("no reports session available: %w", err)
	}

	cfg := session.Config()
	info := sessionInfo{
		AuthFlow:      cfg.Flow(),
		Tenant:        cfg.Tenant(),
		MailboxDomain: logging.ExtractDomain(cfg.ProgramEmail),
		GraphBaseURL:  cfg.BaseURL(),
		Scopes:        session.Scopes(),
		Authenticated: session.Account().IsAuthenticated(ctx),
	}

	jsonData, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session info: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
