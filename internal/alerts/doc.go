// Package alerts evaluates threshold rules against scored curves and
// delivers webhook notifications when a rule fires or resolves.
//
// The Engine is a scoring.Sink. Each result of a successful batch is checked
// against every rule whose ensemble filter matches; the deduplication key is
// rule name, ensemble ID and curve ID. Webhooks go to Teams, Slack or a
// generic HTTP target.
package alerts
