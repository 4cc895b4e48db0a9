package reports

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/teemow/graphreports/internal/config"
	"github.com/teemow/graphreports/internal/graph"
	"github.com/teemow/graphreports/internal/instrumentation"
	"github.com/teemow/graphreports/internal/logging"
	"github.com/teemow/graphreports/internal/mail"
)

// DefaultLimit is the number of messages searched when the caller gives none.
const DefaultLimit = 1

// Mailbox fetches messages from one mailbox.
type Mailbox = mail.Mailbox

// Account is the authenticated Graph account a Session works through.
// *graph.Account implements it.
type Account interface {
	IsAuthenticated(ctx context.Context) bool
	Authenticate(ctx context.Context, scopes []string) (bool, error)
	Mailbox(resource string) mail.Mailbox
}

// Session is an authenticated handle on the reports mailbox.
type Session struct {
	cfg     config.Config
	account Account
	scopes  []string
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

type options struct {
	scopes     []string
	additional []string
	account    Account
	logger     *slog.Logger
	metrics    *instrumentation.Metrics
	in         io.Reader
	out        io.Writer
}

// Option configures Init.
type Option func(*options)

// WithScopes replaces the default scope set.
func WithScopes(scopes []string) Option {
	return func(o *options) { o.scopes = scopes }
}

// WithAdditionalScopes appends scopes to the effective scope set.
func WithAdditionalScopes(scopes []string) Option {
	return func(o *options) { o.additional = scopes }
}

// WithAccount uses account instead of a graph.Account built from the config.
func WithAccount(account Account) Option {
	return func(o *options) { o.account = account }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(metrics *instrumentation.Metrics) Option {
	return func(o *options) { o.metrics = metrics }
}

// WithPrompt lets the default account ask for consent on out and read the
// answer from in. Without it, a missing token cannot be replaced.
func WithPrompt(in io.Reader, out io.Writer) Option {
	return func(o *options) {
		o.in = in
		o.out = out
	}
}

// Init returns an authenticated Session. The token is kept under
// tokenFilename (default o365_token.txt). When the stored token is missing
// or unusable, Init authenticates with exactly the effective scopes and
// fails with *AuthenticationError if that does not succeed.
func Init(ctx context.Context, cfg config.Config, tokenFilename string, opts ...Option) (*Session, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logging.WithOperation(logger, "reports.init")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if o.scopes == nil {
		logger.Info("no scopes given, using defaults")
	} else {
		logger.Info("using requested scopes", logging.Scopes(o.scopes))
	}
	scopes := graph.ResolveScopes(o.scopes, o.additional)

	if tokenFilename == "" {
		tokenFilename = graph.DefaultTokenFilename
	}

	account := o.account
	if account == nil {
		store, err := graph.NewTokenStore(cfg, tokenFilename)
		if err != nil {
			return nil, &UnexpectedError{Op: "open token store", Err: err}
		}
		accountOpts := []graph.Option{
			graph.WithLogger(logger),
			graph.WithMetrics(o.metrics),
		}
		if o.in != nil {
			accountOpts = append(accountOpts, graph.WithPrompt(o.in, o.out))
		}
		account = graph.NewAccount(cfg, store, accountOpts...)
	}

	if !account.IsAuthenticated(ctx) {
		logger.Info("authenticating account",
			logging.TokenFile(tokenFilename),
			logging.Scopes(scopes),
		)

		ok, err := account.Authenticate(ctx, scopes)
		if err != nil || !ok || !account.IsAuthenticated(ctx) {
			logger.Error("cannot authenticate account", logging.TokenFile(tokenFilename), logging.Err(err))
			return nil, &AuthenticationError{
				Message: "could not authenticate with MS Graph API",
				Err:     err,
			}
		}
	}

	return &Session{
		cfg:     cfg,
		account: account,
		scopes:  scopes,
		logger:  o.logger,
		metrics: o.metrics,
	}, nil
}

// Account returns the authenticated account.
func (s *Session) Account() Account {
	return s.account
}

// Scopes returns a copy of the effective scope set.
func (s *Session) Scopes() []string {
	return append([]string(nil), s.scopes...)
}

// Config returns the configuration the session was built from.
func (s *Session) Config() config.Config {
	return s.cfg
}

func (s *Session) log() *slog.Logger {
	if s.logger == nil {
		return slog.Default()
	}
	return s.logger
}

// SearchMail returns up to limit messages of the mailbox emailAddress whose
// subject contains subjectPattern, newest first, attachments included. A
// limit of zero or less means DefaultLimit. No match is not an error.
func (s *Session) SearchMail(ctx context.Context, emailAddress, subjectPattern string, limit int) ([]mail.Message, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	logger := logging.WithOperation(s.log(), "reports.search_mail")

	query := mail.And(
		mail.Greater(mail.FieldSentDateTime, mail.Epoch),
		mail.Contains(mail.FieldSubject, subjectPattern),
	)

	messages, err := s.account.Mailbox(emailAddress).FetchMessages(ctx, mail.FetchOptions{
		Query:              query,
		OrderBy:            mail.OrderBySentDesc,
		Limit:              limit,
		IncludeAttachments: true,
	})
	if err != nil {
		return nil, &UnexpectedError{Op: "search mail", Err: err}
	}

	if len(messages) > limit {
		messages = messages[:limit]
	}

	if len(messages) == 0 {
		logger.Debug("no messages found", logging.Mailbox(emailAddress), logging.Pattern(subjectPattern))
		return []mail.Message{}, nil
	}

	logger.Debug("found messages",
		logging.Count(len(messages)),
		logging.Mailbox(emailAddress),
		logging.Pattern(subjectPattern),
	)
	return messages, nil
}

// ReportSet is the shaped result of FetchWorkforceReports. Single is set
// when one report was asked for; All otherwise.
type ReportSet struct {
	Single *Report
	All    []Report
}

// Reports returns the reports regardless of shape.
func (rs *ReportSet) Reports() []Report {
	if rs == nil {
		return nil
	}
	if rs.Single != nil {
		return []Report{*rs.Single}
	}
	return rs.All
}

// WorkforceSubjectPattern is the subject of the workforce report mail for droID.
func WorkforceSubjectPattern(droID string) string {
	return fmt.Sprintf("DR %s Automated Workforce Reports", droID)
}

// FetchWorkforceReports fetches the latest workforce report mail for droID
// from the configured program mailbox and decodes its attachments.
//
// Only the most recent matching message is ever searched, whatever limit
// is. A limit of exactly one yields ReportSet.Single; any other limit,
// zero and negative included, yields ReportSet.All. No match fails with
// *NotFoundError.
func (s *Session) FetchWorkforceReports(ctx context.Context, droID string, limit int) (*ReportSet, error) {
	start := time.Now()
	pattern := WorkforceSubjectPattern(droID)
	logger := logging.WithOperation(s.log(), "reports.fetch_workforce")

	ctx, span := instrumentation.StartSpan(ctx, "reports.fetch_workforce",
		instrumentation.NewSpanAttributeBuilder().
			WithReportID(droID).
			WithPattern(pattern).
			WithLimit(limit).
			Build()...,
	)
	defer span.End()

	set, err := s.fetchWorkforceReports(ctx, pattern, limit, logger)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		s.metrics.RecordReportsFetched(ctx, instrumentation.StatusError, 1)
		return nil, err
	}

	n := len(set.Reports())
	instrumentation.SetResultCount(span, n)
	instrumentation.SetSpanSuccess(span)
	s.metrics.RecordReportsFetched(ctx, instrumentation.StatusSuccess, n)
	logger.Info("fetched workforce reports",
		logging.Pattern(pattern),
		logging.Count(n),
		slog.Duration("duration", time.Since(start)),
	)
	return set, nil
}

func (s *Session) fetchWorkforceReports(ctx context.Context, pattern string, limit int, logger *slog.Logger) (*ReportSet, error) {
	// The search is pinned to one message; limit only shapes the result.
	messages, err := s.SearchMail(ctx, s.cfg.ProgramEmail, pattern, 1)
	if err != nil {
		return nil, err
	}

	if len(messages) == 0 {
		notFound := &NotFoundError{Pattern: pattern}
		logger.Error(notFound.Error(), logging.Pattern(pattern))
		return nil, notFound
	}

	reports := make([]Report, 0, len(messages))
	for _, msg := range messages {
		r, err := BuildReport(msg)
		if err != nil {
			return nil, err
		}
		s.metrics.RecordAttachmentsDecoded(ctx, len(msg.Attachments))
		reports = append(reports, r)
	}

	if limit == 1 {
		return &ReportSet{Single: &reports[0]}, nil
	}
	return &ReportSet{All: reports}, nil
}

// FetchWorkforceReport fetches the single latest workforce report for droID.
func (s *Session) FetchWorkforceReport(ctx context.Context, droID string) (*Report, error) {
	set, err := s.FetchWorkforceReports(ctx, droID, 1)
	if err != nil {
		return nil, err
	}
	return set.Single, nil
}
