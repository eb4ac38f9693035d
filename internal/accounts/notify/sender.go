// Package notify renders account notifications to email and delivers them
// in the background.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/mrz1836/postmark"
)

var (
	ErrFailedToSend  = errors.New("notify: failed to send email")
	ErrInvalidConfig = errors.New("notify: invalid config")
	ErrInvalidEmail  = errors.New("notify: invalid email")
)

// Email is a rendered message ready for a Sender.
type Email struct {
	To      string
	Subject string
	Tag     string
	HTML    string
}

func (e Email) Validate() error {
	if _, err := mail.ParseAddress(e.To); err != nil {
		return fmt.Errorf("%w: recipient %q: %v", ErrInvalidEmail, e.To, err)
	}
	if e.Subject == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidEmail)
	}
	if e.HTML == "" {
		return fmt.Errorf("%w: body is required", ErrInvalidEmail)
	}
	return nil
}

// Sender delivers one email. Implementations must be safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, e Email) error
}

// PostmarkConfig holds the Postmark credentials and sender identity.
type PostmarkConfig struct {
	ServerToken  string
	AccountToken string
	From         string
	ReplyTo      string
}

type postmarkAPI interface {
	SendEmail(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error)
}

// PostmarkSender sends through Postmark's transactional API.
type PostmarkSender struct {
	client postmarkAPI
	cfg    PostmarkConfig
}

func NewPostmarkSender(cfg PostmarkConfig) (*PostmarkSender, error) {
	if cfg.ServerToken == "" {
		return nil, fmt.Errorf("%w: POSTMARK_SERVER_TOKEN is required", ErrInvalidConfig)
	}
	if cfg.AccountToken == "" {
		return nil, fmt.Errorf("%w: POSTMARK_ACCOUNT_TOKEN is required", ErrInvalidConfig)
	}
	if _, err := mail.ParseAddress(cfg.From); err != nil {
		return nil, fmt.Errorf("%w: sender address %q", ErrInvalidConfig, cfg.From)
	}
	if cfg.ReplyTo == "" {
		cfg.ReplyTo = cfg.From
	}
	return &PostmarkSender{
		client: postmark.NewClient(cfg.ServerToken, cfg.AccountToken),
		cfg:    cfg,
	}, nil
}

// Send tracks opens and HTML link clicks only. Replies go to ReplyTo.
func (s *PostmarkSender) Send(ctx context.Context, e Email) error {
	if err := e.Validate(); err != nil {
		return err
	}

	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:       s.cfg.From,
		ReplyTo:    s.cfg.ReplyTo,
		To:         e.To,
		Subject:    e.Subject,
		Tag:        e.Tag,
		HTMLBody:   e.HTML,
		TrackOpens: true,
		TrackLinks: "HtmlOnly",
	})
	if err != nil {
		return errors.Join(ErrFailedToSend, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(
			ErrFailedToSend,
			fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message),
		)
	}
	return nil
}

// DevSender writes each email to Dir as an .html body and a .json envelope
// instead of sending it.
type DevSender struct {
	Dir string
}

type devEnvelope struct {
	Timestamp string `json:"timestamp"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Tag       string `json:"tag,omitempty"`
}

func (d *DevSender) Send(_ context.Context, e Email) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return fmt.Errorf("%w: create directory: %v", ErrFailedToSend, err)
	}

	now := time.Now()
	id := e.Tag
	if id == "" {
		id = e.Subject
	}
	base := fmt.Sprintf("%s_%s_%s", now.Format("2006_01_02_150405.000000"), sanitizeFilename(id), sanitizeFilename(e.To))

	if err := os.WriteFile(filepath.Join(d.Dir, base+".html"), []byte(e.HTML), 0o644); err != nil {
		return fmt.Errorf("%w: write html: %v", ErrFailedToSend, err)
	}

	envelope, err := json.MarshalIndent(devEnvelope{
		Timestamp: now.Format(time.RFC3339),
		To:        e.To,
		Subject:   e.Subject,
		Tag:       e.Tag,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal envelope: %v", ErrFailedToSend, err)
	}
	if err := os.WriteFile(filepath.Join(d.Dir, base+".json"), envelope, 0o644); err != nil {
		return fmt.Errorf("%w: write envelope: %v", ErrFailedToSend, err)
	}
	return nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

func sanitizeFilename(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "@", "_at_")
	s = unsafeFilenameChars.ReplaceAllString(s, "")
	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" {
		s = "email"
	}
	return strings.ToLower(s)
}

// LogSender only logs the envelope. The body is not logged since it carries
// live tokens and codes.
type LogSender struct {
	Logger *slog.Logger
}

func (l *LogSender) Send(ctx context.Context, e Email) error {
	if err := e.Validate(); err != nil {
		return err
	}
	l.Logger.InfoContext(ctx, "email suppressed by log mail driver", "to", e.To, "subject", e.Subject, "tag", e.Tag)
	return nil
}
