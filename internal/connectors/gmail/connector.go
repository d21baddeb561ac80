package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"quotescribe/internal"
	"quotescribe/internal/config"
)

type Connector struct {
	service *gmail.Service
}

func NewConnector(cfg config.Config) (*Connector, error) {
	if err := cfg.Require("GOOGLE_CLIENT_ID", cfg.GoogleClientID); err != nil {
		return nil, err
	}
	if err := cfg.Require("GOOGLE_CLIENT_SECRET", cfg.GoogleClientSecret); err != nil {
		return nil, err
	}
	if err := cfg.Require("GOOGLE_REFRESH_TOKEN", cfg.GoogleRefreshToken); err != nil {
		return nil, err
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.GoogleRedirectURI,
		Scopes:       []string{gmail.GmailReadonlyScope},
	}

	tokenSource := oauthCfg.TokenSource(context.Background(), &oauth2.Token{RefreshToken: cfg.GoogleRefreshToken})
	svc, err := gmail.NewService(context.Background(), option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, err
	}

	return &Connector{service: svc}, nil
}

func (c *Connector) FetchInbox(label string, max int) ([]internal.FetchedMailMessage, error) {
	listResp, err := c.service.Users.Messages.List("me").LabelIds(label).MaxResults(int64(max)).Do()
	if err != nil {
		return nil, err
	}

	out := make([]internal.FetchedMailMessage, 0, len(listResp.Messages))
	for _, msgRef := range listResp.Messages {
		if msgRef.Id == "" {
			continue
		}

		rawResp, err := c.service.Users.Messages.Get("me", msgRef.Id).Format("raw").Do()
		if err != nil {
			return nil, err
		}
		metaResp, err := c.service.Users.Messages.Get("me", msgRef.Id).Format("metadata").MetadataHeaders("Subject", "From", "Date", "Message-ID").Do()
		if err != nil {
			return nil, err
		}

		if rawResp.Raw == "" {
			continue
		}

		rawBytes, err := decodeBase64URL(rawResp.Raw)
		if err != nil {
			return nil, err
		}

		headers := map[string]string{}
		if metaResp.Payload != nil {
			for _, h := range metaResp.Payload.Headers {
				headers[strings.ToLower(h.Name)] = h.Value
			}
		}

		received := time.Now().UTC().Format(time.RFC3339)
		if dateHeader := headers["date"]; dateHeader != "" {
			if t, err := parseMailDate(dateHeader); err == nil {
				received = t.UTC().Format(time.RFC3339)
			}
		}

		messageID := headers["message-id"]
		if messageID == "" {
			messageID = msgRef.Id
		}

		out = append(out, internal.FetchedMailMessage{
			Provider:   "gmail",
			MessageID:  messageID,
			Subject:    headers["subject"],
			From:       headers["from"],
			ReceivedAt: received,
			Raw:        rawBytes,
		})
	}

	return out, nil
}

func parseMailDate(value string) (time.Time, error) {
	layouts := []string{time.RFC1123Z, time.RFC1123, "Mon, 2 Jan 2006 15:04:05 -0700", "2 Jan 2006 15:04:05 -0700"}
	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func decodeBase64URL(input string) ([]byte, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(input)
	if err == nil {
		return decoded, nil
	}
	decoded, err = base64.URLEncoding.DecodeString(input)
	if err == nil {
		return decoded, nil
	}
	return nil, fmt.Errorf("decode gmail raw payload: %w", err)
}
