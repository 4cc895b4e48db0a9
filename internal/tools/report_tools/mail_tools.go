package report_tools

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/graphreports/internal/mail"
	"github.com/teemow/graphreports/internal/reports"
	"github.com/teemow/graphreports/internal/server"
	"github.com/teemow/graphreports/internal/tools/common"
)

type attachmentSummary struct {
	Name           string `json:"name"`
	Classification string `json:"classification"`
	ContentType    string `json:"contentType,omitempty"`
	Size           int64  `json:"size"`
}

type messageSummary struct {
	ID          string              `json:"id"`
	Subject     string              `json:"subject"`
	From        string              `json:"from,omitempty"`
	Sent        time.Time           `json:"sent"`
	Attachments []attachmentSummary `json:"attachments"`
}

func summarizeMessage(msg mail.Message) messageSummary {
	out := messageSummary{
		ID:          msg.ID,
		Subject:     msg.Subject,
		From:        msg.From.EmailAddress.Address,
		Sent:        msg.SentDateTime,
		Attachments: make([]attachmentSummary, 0, len(msg.Attachments)),
	}
	for _, a := range msg.Attachments {
		out.Attachments = append(out.Attachments, attachmentSummary{
			Name:           a.Name,
			Classification: reports.ClassificationKey(a.Name),
			ContentType:    a.ContentType,
			Size:           a.Size,
		})
	}
	return out
}

func handleSearchMail(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	pattern, err := common.RequireStringArg(args, "pattern")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit, err := common.GetIntArg(args, "limit", reports.DefaultLimit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	session, errResult := sessionFor(ctx, sc)
	if errResult != nil {
		return errResult, nil
	}

	mailbox := common.GetStringArg(args, "mailbox", session.Config().ProgramEmail)

	messages, err := session.SearchMail(ctx, mailbox, pattern, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to search mail: %v", err)), nil
	}

	summaries := make([]messageSummary, 0, len(messages))
	for _, msg := range messages {
		summaries = append(summaries, summarizeMessage(msg))
	}
	return jsonResult(summaries)
}
