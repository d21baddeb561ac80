package imap

import (
	"crypto/tls"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	imapclient "github.com/emersion/go-imap/client"

	"quotescribe/internal"
	"quotescribe/internal/config"
)

// Connector pulls unseen messages from a plain IMAP mailbox. It shares the
// FetchedMailMessage contract with the Gmail connector: the raw RFC 5322
// body is stored untouched and parsed later by the pipeline.
type Connector struct {
	cfg config.Config
}

func NewConnector(cfg config.Config) (*Connector, error) {
	if err := cfg.Require("IMAP_HOST", cfg.IMAPHost); err != nil {
		return nil, err
	}
	if err := cfg.Require("IMAP_USER", cfg.IMAPUser); err != nil {
		return nil, err
	}
	if err := cfg.Require("IMAP_PASSWORD", cfg.IMAPPassword); err != nil {
		return nil, err
	}
	return &Connector{cfg: cfg}, nil
}

func (c *Connector) FetchInbox(label string, max int) ([]internal.FetchedMailMessage, error) {
	client, err := c.dial()
	if err != nil {
		return nil, err
	}
	defer client.Logout()

	if err := client.Login(c.cfg.IMAPUser, c.cfg.IMAPPassword); err != nil {
		return nil, err
	}
	if _, err := client.Select(label, false); err != nil {
		return nil, err
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	ids, err := client.Search(criteria)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	// Search results run oldest to newest; keep the newest max.
	if len(ids) > max {
		ids = ids[len(ids)-max:]
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchInternalDate, imap.FetchUid, section.FetchItem()}
	messages := make(chan *imap.Message, len(ids))
	fetchDone := make(chan error, 1)
	go func() { fetchDone <- client.Fetch(seqset, items, messages) }()

	out := make([]internal.FetchedMailMessage, 0, len(ids))
	for msg := range messages {
		if msg == nil {
			continue
		}
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		raw, err := io.ReadAll(body)
		if err != nil {
			return nil, err
		}

		out = append(out, toFetchedMessage(msg, raw))

		if c.cfg.IMAPMarkSeen {
			if err := markSeen(client, msg.SeqNum); err != nil {
				return nil, err
			}
		}
	}

	if err := <-fetchDone; err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Connector) dial() (*imapclient.Client, error) {
	addr := fmt.Sprintf("%s:%d", c.cfg.IMAPHost, c.cfg.IMAPPort)
	if c.cfg.IMAPSecure {
		return imapclient.DialTLS(addr, &tls.Config{ServerName: c.cfg.IMAPHost})
	}
	return imapclient.Dial(addr)
}

// toFetchedMessage flattens one fetched message. ReceivedAt prefers the
// server's internal date, then the envelope date, then now.
func toFetchedMessage(msg *imap.Message, raw []byte) internal.FetchedMailMessage {
	messageID, subject, from := "", "", ""
	var envelopeDate time.Time
	if msg.Envelope != nil {
		messageID = msg.Envelope.MessageId
		subject = msg.Envelope.Subject
		from = formatAddresses(msg.Envelope.From)
		envelopeDate = msg.Envelope.Date
	}
	if messageID == "" {
		messageID = fmt.Sprintf("imap-%d", msg.Uid)
	}

	received := msg.InternalDate
	if received.IsZero() {
		received = envelopeDate
	}
	receivedAt := time.Now().UTC().Format(time.RFC3339)
	if !received.IsZero() {
		receivedAt = received.UTC().Format(time.RFC3339)
	}

	return internal.FetchedMailMessage{
		Provider:   "imap",
		MessageID:  messageID,
		Subject:    subject,
		From:       from,
		ReceivedAt: receivedAt,
		Raw:        raw,
	}
}

func markSeen(client *imapclient.Client, seqNum uint32) error {
	single := new(imap.SeqSet)
	single.AddNum(seqNum)
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	return client.Store(single, item, []interface{}{imap.SeenFlag}, nil)
}

func formatAddresses(addrs []*imap.Address) string {
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a == nil {
			continue
		}
		if a.PersonalName != "" {
			parts = append(parts, fmt.Sprintf("%s <%s>", a.PersonalName, a.Address()))
		} else {
			parts = append(parts, a.Address())
		}
	}
	return strings.Join(parts, ", ")
}
