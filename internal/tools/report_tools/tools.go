package report_tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/graphreports/internal/reports"
	"github.com/teemow/graphreports/internal/server"
	"github.com/teemow/graphreports/internal/tools/common"
)

// RegisterReportTools registers the mail and workforce report tools.
func RegisterReportTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if s == nil || sc == nil {
		return errors.New("mcp server and server context are required")
	}

	searchTool := mcp.NewTool("mail_search",
		mcp.WithDescription("Search a mailbox for the most recent messages whose subject contains a pattern"),
		mcp.WithString("pattern",
			mcp.Required(),
			mcp.Description("Text the subject must contain"),
		),
		mcp.WithString("mailbox",
			mcp.Description("Mailbox address to search (default: the configured program mailbox)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of messages to return (default: 1)"),
		),
	)
	s.AddTool(searchTool, common.InstrumentedToolHandler("mail_search", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSearchMail(ctx, request, sc)
		}))

	fetchTool := mcp.NewTool("reports_fetch_workforce",
		mcp.WithDescription("Fetch the latest automated workforce report mail for a DRO and list its attachments by classification key"),
		mcp.WithString("dro_id",
			mcp.Required(),
			mcp.Description("DRO identifier as it appears in the report subject"),
		),
		mcp.WithNumber("limit",
			mcp.Description("1 returns a single report; any other value returns a list (default: 1)"),
		),
		mcp.WithBoolean("include_content",
			mcp.Description("Include base64-encoded attachment content (default: false)"),
		),
	)
	s.AddTool(fetchTool, common.InstrumentedToolHandler("reports_fetch_workforce", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleFetchWorkforce(ctx, request, sc)
		}))

	return nil
}

func sessionFor(ctx context.Context, sc *server.ServerContext) (*reports.Session, *mcp.CallToolResult) {
	session, err := sc.Session(ctx)
	if err == nil {
		return session, nil
	}

	var authErr *reports.AuthenticationError
	if errors.As(err, &authErr) {
		return nil, mcp.NewToolResultError(fmt.Sprintf(`%v

Run "graphreports auth" in a terminal to grant access, then retry.`, err))
	}
	return nil, mcp.NewToolResultError(fmt.Sprintf("Failed to open reports session: %v", err))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
