// Package mail reads messages from Microsoft Graph mailboxes.
//
// Queries are built from predicates and rendered as OData $filter
// expressions:
//
//	q := mail.And(
//		mail.Greater(mail.FieldSentDateTime, mail.Epoch),
//		mail.Contains(mail.FieldSubject, "DR 42 Automated Workforce Reports"),
//	)
//	// sentDateTime gt 1900-01-01T00:00:00Z and contains(subject,'DR 42 Automated Workforce Reports')
//
// A Client wraps an HTTP client that already authorizes requests; see the
// graph package for one.
//
//	box := mail.NewClient(httpClient, "https://graph.microsoft.com/v1.0").Mailbox("reports@example.org")
//	msgs, err := box.FetchMessages(ctx, mail.FetchOptions{
//		Query:              q,
//		OrderBy:            mail.OrderBySentDesc,
//		Limit:              1,
//		IncludeAttachments: true,
//	})
package mail
