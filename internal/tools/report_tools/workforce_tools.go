package report_tools

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/graphreports/internal/reports"
	"github.com/teemow/graphreports/internal/server"
	"github.com/teemow/graphreports/internal/tools/common"
)

type reportAttachment struct {
	Key     string `json:"key"`
	Size    int    `json:"size"`
	Content string `json:"content,omitempty"`
}

type reportSummary struct {
	Subject     string             `json:"subject"`
	Attachments []reportAttachment `json:"attachments"`
}

func summarizeReport(r reports.Report, includeContent bool) reportSummary {
	out := reportSummary{
		Subject:     r.Subject,
		Attachments: make([]reportAttachment, 0, len(r.Attachments)),
	}
	for _, key := range slices.Sorted(maps.Keys(r.Attachments)) {
		data := r.Attachments[key]
		a := reportAttachment{Key: key, Size: len(data)}
		if includeContent {
			a.Content = base64.StdEncoding.EncodeToString(data)
		}
		out.Attachments = append(out.Attachments, a)
	}
	return out
}

func handleFetchWorkforce(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	droID, err := common.RequireStringArg(args, "dro_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit, err := common.GetIntArg(args, "limit", reports.DefaultLimit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	includeContent := common.GetBoolArg(args, "include_content", false)

	session, errResult := sessionFor(ctx, sc)
	if errResult != nil {
		return errResult, nil
	}

	set, err := session.FetchWorkforceReports(ctx, droID, limit)
	if err != nil {
		var notFound *reports.NotFoundError
		if errors.As(err, &notFound) {
			return mcp.NewToolResultError(notFound.Error()), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Failed to fetch workforce reports: %v", err)), nil
	}

	if set.Single != nil {
		return jsonResult(summarizeReport(*set.Single, includeContent))
	}

	summaries := make([]reportSummary, 0, len(set.All))
	for _, r := range set.All {
		summaries = append(summaries, summarizeReport(r, includeContent))
	}
	return jsonResult(summaries)
}
