package email

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/mixelka/mailsync/internal/config"
	"github.com/mixelka/mailsync/pkg/models"
)

// Settings keys of the imap category
const (
	KeyHost               = "imap_host"
	KeyPort               = "imap_port"
	KeyUsername           = "imap_username"
	KeyPassword           = "imap_password"
	KeyUseSSL             = "imap_use_ssl"
	KeyRejectUnauthorized = "imap_tls_reject_unauthorized"
	KeyFolder             = "imap_folder"
	KeyConnectionTimeout  = "imap_connection_timeout"
)

// SettingsSource provides decrypted settings of a category
type SettingsSource interface {
	Object(ctx context.Context, category string) map[string]string
}

// HostResolver finds the IMAP server of a mailbox address
type HostResolver func(ctx context.Context, address string) (string, error)

// FetchResult is the outcome of a latest-messages fetch
type FetchResult struct {
	Emails []models.EmailUpdate `json:"emails"`
	Total  uint32               `json:"total"`
	Server string               `json:"server"`
	Folder string               `json:"folder"`
}

// MessageBody is the body of a single message
type MessageBody struct {
	ID   string `json:"id"`
	Body string `json:"body"`
}

// ConnectionInfo describes a successful connection test
type ConnectionInfo struct {
	Server   string `json:"server"`
	Folder   string `json:"folder"`
	Messages uint32 `json:"messages"`
}

// Fetcher opens a short-lived IMAP session per call, configured from the
// imap settings category with environment fallbacks
type Fetcher struct {
	settings SettingsSource
	defaults config.IMAPConfig
	resolve  HostResolver
	logger   *slog.Logger
}

// NewFetcher creates a new fetcher
func NewFetcher(settings SettingsSource, defaults config.IMAPConfig, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		settings: settings,
		defaults: defaults,
		resolve:  ResolveIMAPServer,
		logger:   logger.With("component", "imap_fetcher"),
	}
}

// SetResolver replaces the host resolver
func (f *Fetcher) SetResolver(r HostResolver) {
	f.resolve = r
}

// SessionConfig builds the session configuration from settings
func (f *Fetcher) SessionConfig(ctx context.Context) (SessionConfig, error) {
	s := f.settings.Object(ctx, string(models.CategoryIMAP))

	cfg := SessionConfig{
		Host:               firstNonEmpty(s[KeyHost], f.defaults.Host),
		Port:               f.defaults.Port,
		Username:           firstNonEmpty(s[KeyUsername], f.defaults.User),
		Password:           firstNonEmpty(s[KeyPassword], f.defaults.Password),
		UseTLS:             f.defaults.Secure,
		InsecureSkipVerify: false,
		Folder:             firstNonEmpty(s[KeyFolder], "INBOX"),
		DialTimeout:        f.defaults.DialTimeout,
	}

	if v := s[KeyPort]; v != "" {
		port, err := cast.ToIntE(v)
		if err != nil || port <= 0 || port > 65535 {
			return cfg, fmt.Errorf("invalid %s %q", KeyPort, v)
		}
		cfg.Port = port
	}
	if v := s[KeyUseSSL]; v != "" {
		cfg.UseTLS = models.ToBool(v)
	}
	if v := s[KeyRejectUnauthorized]; v != "" {
		cfg.InsecureSkipVerify = !models.ToBool(v)
	}
	if v := s[KeyConnectionTimeout]; v != "" {
		if secs := cast.ToInt(v); secs > 0 {
			cfg.DialTimeout = time.Duration(secs) * time.Second
		}
	}
	if cfg.Port == 0 {
		cfg.Port = 993
	}

	if cfg.Username == "" || cfg.Password == "" {
		return cfg, fmt.Errorf("IMAP username and password are not configured")
	}

	if cfg.Host == "" {
		server, err := f.resolve(ctx, cfg.Username)
		if err != nil {
			return cfg, fmt.Errorf("failed to resolve IMAP server: %w", err)
		}
		host, port, err := net.SplitHostPort(server)
		if err != nil {
			return cfg, fmt.Errorf("invalid resolved server %q: %w", server, err)
		}
		cfg.Host = host
		cfg.Port, _ = strconv.Atoi(port)
		f.logger.Info("resolved IMAP server", "user", cfg.Username, "server", server)
	}

	return cfg, nil
}

// FetchLatest returns the last count messages of the folder
func (f *Fetcher) FetchLatest(ctx context.Context, count int, includeBody bool) (*FetchResult, error) {
	var result *FetchResult
	err := f.withSession(ctx, func(s *Session, cfg SessionConfig) error {
		mbox, err := s.Select()
		if err != nil {
			return err
		}

		messages, err := s.FetchLatest(mbox, count, includeBody)
		if err != nil {
			return err
		}

		emails := make([]models.EmailUpdate, 0, len(messages))
		for _, m := range messages {
			emails = append(emails, m.Update())
		}

		result = &FetchResult{
			Emails: emails,
			Total:  mbox.Messages,
			Server: cfg.Host,
			Folder: s.folder(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	f.logger.Info("fetched emails", "count", len(result.Emails), "total", result.Total)
	return result, nil
}

// FetchBodies returns the bodies of the given UIDs. UIDs that are not
// in the folder are left out.
func (f *Fetcher) FetchBodies(ctx context.Context, uids []uint32) ([]MessageBody, error) {
	var bodies []MessageBody
	err := f.withSession(ctx, func(s *Session, _ SessionConfig) error {
		if _, err := s.Select(); err != nil {
			return err
		}

		messages, err := s.FetchBodies(uids)
		if err != nil {
			return err
		}

		bodies = make([]MessageBody, 0, len(messages))
		for _, m := range messages {
			bodies = append(bodies, MessageBody{ID: m.ID(), Body: m.Body})
		}
		return nil
	})
	return bodies, err
}

// FetchBody returns the body of one UID, empty when it is not found
func (f *Fetcher) FetchBody(ctx context.Context, uid uint32) (MessageBody, error) {
	bodies, err := f.FetchBodies(ctx, []uint32{uid})
	if err != nil {
		return MessageBody{}, err
	}
	for _, b := range bodies {
		if b.ID == strconv.FormatUint(uint64(uid), 10) {
			return b, nil
		}
	}
	return MessageBody{ID: strconv.FormatUint(uint64(uid), 10)}, nil
}

// TestConnection logs in and selects the folder
func (f *Fetcher) TestConnection(ctx context.Context) (*ConnectionInfo, error) {
	var info *ConnectionInfo
	err := f.withSession(ctx, func(s *Session, cfg SessionConfig) error {
		mbox, err := s.Select()
		if err != nil {
			return err
		}
		info = &ConnectionInfo{
			Server:   cfg.Addr(),
			Folder:   mbox.Name,
			Messages: mbox.Messages,
		}
		return nil
	})
	return info, err
}

func (f *Fetcher) withSession(ctx context.Context, fn func(s *Session, cfg SessionConfig) error) error {
	cfg, err := f.SessionConfig(ctx)
	if err != nil {
		return err
	}

	s, err := Dial(ctx, cfg, f.logger)
	if err != nil {
		return err
	}
	defer s.Close()

	return fn(s, cfg)
}

// Update converts a fetched message into a store update. The body is
// only set when it was fetched.
func (m Message) Update() models.EmailUpdate {
	subject, from, date, seen := m.Subject, m.From, m.Date, m.Seen
	upd := models.EmailUpdate{
		ID:      m.ID(),
		Subject: &subject,
		From:    &from,
		Date:    &date,
		IsRead:  &seen,
	}
	if m.Date.IsZero() {
		upd.Date = nil
	}
	if m.HasBody {
		body := m.Body
		upd.Body = &body
	}
	return upd
}

// ParseUIDs converts loosely typed ids into UIDs, skipping invalid ones
func ParseUIDs(ids []any) []uint32 {
	uids := make([]uint32, 0, len(ids))
	for _, id := range ids {
		n, err := cast.ToUint32E(strings.TrimSpace(cast.ToString(id)))
		if err != nil || n == 0 {
			continue
		}
		uids = append(uids, n)
	}
	return uids
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
