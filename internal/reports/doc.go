// Package reports pulls the automated workforce reports out of the program
// mailbox.
//
// Init establishes an authenticated Session, running the consent or client
// credentials flow when no usable token is stored. FetchWorkforceReports
// then finds the newest message titled "DR <id> Automated Workforce Reports"
// and turns its attachments into a Report: each attachment is decoded and
// stored under the part of its file name before the first underscore, and
// the message subject is kept alongside.
//
//	session, err := reports.Init(ctx, *cfg, "o365_token.txt",
//		reports.WithPrompt(os.Stdin, os.Stderr))
//	if err != nil {
//		return err
//	}
//	report, err := session.FetchWorkforceReport(ctx, "42")
//	// report.Attachments["Hours"], report.Subject
//
// Failures are typed: *AuthenticationError, *NotFoundError and
// *UnexpectedError, the last wrapping the Graph or decode error.
package reports
