package connectors

import "quotescribe/internal"

// MailConnector fetches unread messages from one mail provider.
type MailConnector interface {
	FetchInbox(label string, max int) ([]internal.FetchedMailMessage, error)
}
