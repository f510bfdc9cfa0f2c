// Package gmail implements the notification gateway over the Gmail API.
// Authorization uses an OAuth client plus a previously issued token
// (see cmd/oauth-init); both may be supplied inline or as files.
package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
	goption "google.golang.org/api/option"

	"walletwatch/internal/notify"
)

type Sender struct {
	svc  *gmailapi.Service
	from string
}

var _ notify.Gateway = (*Sender)(nil)

// NewFromEnv builds a Gmail sender from environment configuration.
// Required: EMAIL_FROM plus OAuth client and token material via
// GOOGLE_OAUTH_CLIENT_JSON / GOOGLE_OAUTH_CLIENT_FILE and
// GOOGLE_OAUTH_TOKEN_JSON / GOOGLE_OAUTH_TOKEN_FILE.
func NewFromEnv(ctx context.Context) (*Sender, error) {
	from := strings.TrimSpace(os.Getenv("EMAIL_FROM"))
	if from == "" {
		return nil, errors.New("missing EMAIL_FROM")
	}

	clientJSON, err := readCredential("GOOGLE_OAUTH_CLIENT_JSON", "GOOGLE_OAUTH_CLIENT_FILE")
	if err != nil {
		return nil, fmt.Errorf("oauth client: %w", err)
	}
	tokenJSON, err := readCredential("GOOGLE_OAUTH_TOKEN_JSON", "GOOGLE_OAUTH_TOKEN_FILE")
	if err != nil {
		return nil, fmt.Errorf("oauth token: %w", err)
	}

	cfg, err := google.ConfigFromJSON(clientJSON, gmailapi.GmailSendScope)
	if err != nil {
		return nil, fmt.Errorf("parse oauth client: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(tokenJSON, &token); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}

	svc, err := gmailapi.NewService(ctx, goption.WithHTTPClient(cfg.Client(ctx, &token)))
	if err != nil {
		return nil, fmt.Errorf("gmail service: %w", err)
	}

	return &Sender{svc: svc, from: from}, nil
}

// readCredential returns inline JSON from jsonEnv when set, otherwise
// the contents of the file named by fileEnv.
func readCredential(jsonEnv, fileEnv string) ([]byte, error) {
	if inline := strings.TrimSpace(os.Getenv(jsonEnv)); inline != "" {
		return []byte(inline), nil
	}
	path := strings.TrimSpace(os.Getenv(fileEnv))
	if path == "" {
		return nil, fmt.Errorf("set %s or %s", jsonEnv, fileEnv)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// Send delivers one email through the Gmail API.
func (s *Sender) Send(ctx context.Context, msg notify.Message) notify.Result {
	if strings.TrimSpace(msg.To) == "" {
		return notify.Failed(errors.New("missing recipient"))
	}

	raw := buildRawMessage(s.from, msg)
	_, err := s.svc.Users.Messages.Send("me", &gmailapi.Message{Raw: raw}).Context(ctx).Do()
	if err != nil {
		slog.ErrorContext(ctx, "Failed to send email",
			"to", msg.To,
			"subject", msg.Subject,
			"error", err)
		return notify.Failed(fmt.Errorf("gmail send: %w", err))
	}

	slog.InfoContext(ctx, "Email sent",
		"to", msg.To,
		"subject", msg.Subject)
	return notify.Ok()
}

// buildRawMessage assembles an RFC 2822 message and base64url-encodes
// it for the Gmail API.
func buildRawMessage(from string, msg notify.Message) string {
	var b strings.Builder
	b.WriteString("From: WalletWatch <" + from + ">\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + msg.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTMLBody)
	return base64.URLEncoding.EncodeToString([]byte(b.String()))
}
