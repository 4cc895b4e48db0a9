package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/teemow/graphreports/internal/instrumentation"
	"github.com/teemow/graphreports/internal/logging"
)

// MaxPageSize is the largest $top requested per page.
const MaxPageSize = 100

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 * 1024

// Mailbox fetches messages from one mailbox.
type Mailbox interface {
	FetchMessages(ctx context.Context, opts FetchOptions) ([]Message, error)
}

// APIError is a Microsoft Graph error response.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("graph API error: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("graph API error: status %d: %s: %s", e.StatusCode, e.Code, e.Message)
}

// Client talks to the Graph mail endpoints through an authorized HTTP client.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	logger     *slog.Logger
	metrics    *instrumentation.Metrics
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(metrics *instrumentation.Metrics) ClientOption {
	return func(c *Client) { c.metrics = metrics }
}

// NewClient creates a client for the Graph service root baseURL, for example
// https://graph.microsoft.com/v1.0. httpClient must add authorization.
func NewClient(httpClient *http.Client, baseURL string, opts ...ClientOption) *Client {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		// config validates the base URL; keep a usable value for callers that did not.
		u = &url.URL{Scheme: "https", Host: "graph.microsoft.com", Path: "/v1.0"}
	}

	c := &Client{
		httpClient: httpClient,
		baseURL:    u,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mailbox returns the mailbox of resource. An empty resource is the
// signed-in user's own mailbox.
func (c *Client) Mailbox(resource string) *UserMailbox {
	return &UserMailbox{client: c, resource: resource}
}

// UserMailbox is a single user's or shared mailbox.
type UserMailbox struct {
	client   *Client
	resource string
}

// Resource returns the mailbox owner as given to Client.Mailbox.
func (m *UserMailbox) Resource() string {
	return m.resource
}

type messagePage struct {
	Value    []Message `json:"value"`
	NextLink string    `json:"@odata.nextLink"`
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// FetchMessages lists messages matching opts, following @odata.nextLink
// until opts.Limit messages have been collected or no pages remain.
func (m *UserMailbox) FetchMessages(ctx context.Context, opts FetchOptions) ([]Message, error) {
	start := time.Now()
	logger := logging.WithOperation(m.client.logger, "mail.fetch_messages")

	ctx, span := instrumentation.StartGraphAPISpan(ctx, instrumentation.ServiceMail, instrumentation.OperationList,
		instrumentation.NewSpanAttributeBuilder().
			WithMailbox(m.resource).
			WithLimit(opts.Limit).
			Build()...,
	)
	defer span.End()

	messages, err := m.fetch(ctx, opts, logger)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
		logger.Debug("fetch failed", logging.Mailbox(m.resource), logging.Err(err))
	} else {
		instrumentation.SetResultCount(span, len(messages))
		instrumentation.SetSpanSuccess(span)
	}
	m.client.metrics.RecordGraphAPIOperation(ctx, instrumentation.ServiceMail, instrumentation.OperationList,
		status, m.resource, time.Since(start))

	return messages, err
}

func (m *UserMailbox) fetch(ctx context.Context, opts FetchOptions, logger *slog.Logger) ([]Message, error) {
	next := m.client.messagesURL(m.resource, opts)

	var messages []Message
	for page := 1; next != ""; page++ {
		var p messagePage
		if err := m.client.getJSON(ctx, next, &p); err != nil {
			return nil, err
		}
		logger.Debug("fetched page", slog.Int("page", page), logging.Count(len(p.Value)))

		messages = append(messages, p.Value...)
		if opts.Limit > 0 && len(messages) >= opts.Limit {
			return messages[:opts.Limit], nil
		}

		next = p.NextLink
		if next != "" {
			if err := m.client.checkSameOrigin(next); err != nil {
				return nil, err
			}
		}
	}

	if messages == nil {
		messages = []Message{}
	}
	return messages, nil
}

// messagesURL builds the first page URL. Query values are percent-encoded
// with %20 for spaces.
func (c *Client) messagesURL(resource string, opts FetchOptions) string {
	path := "/me/messages"
	if resource != "" {
		path = "/users/" + url.PathEscape(resource) + "/messages"
	}

	var params []string
	add := func(key, value string) {
		params = append(params, key+"="+strings.ReplaceAll(url.QueryEscape(value), "+", "%20"))
	}
	if !opts.Query.IsZero() {
		add("$filter", opts.Query.String())
	}
	if opts.OrderBy != "" {
		add("$orderby", opts.OrderBy)
	}
	top := MaxPageSize
	if opts.Limit > 0 && opts.Limit < top {
		top = opts.Limit
	}
	add("$top", strconv.Itoa(top))
	if opts.IncludeAttachments {
		add("$expand", "attachments")
	}

	return c.baseURL.String() + path + "?" + strings.Join(params, "&")
}

// checkSameOrigin refuses to send the bearer token to a host other than
// the configured service root.
func (c *Client) checkSameOrigin(link string) error {
	u, err := url.Parse(link)
	if err != nil {
		return fmt.Errorf("invalid next link: %w", err)
	}
	if u.Scheme != c.baseURL.Scheme || u.Host != c.baseURL.Host {
		return fmt.Errorf("next link %q leaves %s", u.Redacted(), c.baseURL.Host)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("graph request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode graph response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: resp.Status}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return apiErr
	}

	var envelope errorEnvelope
	if json.Unmarshal(body, &envelope) == nil && envelope.Error.Code != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	}
	return apiErr
}
