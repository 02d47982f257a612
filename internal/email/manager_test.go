package email

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/emersion/go-imap/backend/memory"
	"github.com/emersion/go-imap/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mixelka/mailsync/internal/config"
)

type staticSettings map[string]string

func (s staticSettings) Object(context.Context, string) map[string]string {
	return s
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var defaultIMAP = config.IMAPConfig{
	Port:        993,
	Secure:      true,
	DialTimeout: 30 * time.Second,
}

// startIMAPServer serves the in-memory backend (user "username",
// password "password", one message in INBOX) on a local port
func startIMAPServer(t *testing.T) (string, int) {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := server.New(memory.New())
	s.AllowInsecureAuth = true
	go s.Serve(l)
	t.Cleanup(func() { s.Close() })

	addr := l.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port
}

func newTestFetcher(t *testing.T) *Fetcher {
	host, port := startIMAPServer(t)
	settings := staticSettings{
		KeyHost:     host,
		KeyPort:     strconv.Itoa(port),
		KeyUsername: "username",
		KeyPassword: "password",
		KeyUseSSL:   "false",
	}
	return NewFetcher(settings, defaultIMAP, discardLogger())
}

func TestSessionConfigFromSettings(t *testing.T) {
	f := NewFetcher(staticSettings{
		KeyHost:               "imap.example.com",
		KeyPort:               "143",
		KeyUsername:           "ops@example.com",
		KeyPassword:           "p",
		KeyUseSSL:             "false",
		KeyRejectUnauthorized: "false",
		KeyFolder:             "Support",
		KeyConnectionTimeout:  "10",
	}, defaultIMAP, discardLogger())

	cfg, err := f.SessionConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SessionConfig{
		Host:               "imap.example.com",
		Port:               143,
		Username:           "ops@example.com",
		Password:           "p",
		UseTLS:             false,
		InsecureSkipVerify: true,
		Folder:             "Support",
		DialTimeout:        10 * time.Second,
	}, cfg)
	assert.Equal(t, "imap.example.com:143", cfg.Addr())
}

func TestSessionConfigFallsBackToEnvironment(t *testing.T) {
	defaults := defaultIMAP
	defaults.Host = "mail.example.com"
	defaults.User = "env@example.com"
	defaults.Password = "envpass"

	f := NewFetcher(staticSettings{}, defaults, discardLogger())

	cfg, err := f.SessionConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "mail.example.com", cfg.Host)
	assert.Equal(t, 993, cfg.Port)
	assert.Equal(t, "env@example.com", cfg.Username)
	assert.True(t, cfg.UseTLS)
	assert.False(t, cfg.InsecureSkipVerify)
	assert.Equal(t, "INBOX", cfg.Folder)
}

func TestSessionConfigResolvesMissingHost(t *testing.T) {
	f := NewFetcher(staticSettings{KeyUsername: "ops@example.com", KeyPassword: "p"}, defaultIMAP, discardLogger())

	var asked string
	f.SetResolver(func(_ context.Context, address string) (string, error) {
		asked = address
		return "imap.example.com:1993", nil
	})

	cfg, err := f.SessionConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", asked)
	assert.Equal(t, "imap.example.com", cfg.Host)
	assert.Equal(t, 1993, cfg.Port)
}

func TestSessionConfigErrors(t *testing.T) {
	tests := []struct {
		name     string
		settings staticSettings
		resolve  HostResolver
		wantErr  string
	}{
		{
			name:     "missing credentials",
			settings: staticSettings{KeyHost: "imap.example.com"},
			wantErr:  "not configured",
		},
		{
			name:     "bad port",
			settings: staticSettings{KeyHost: "h", KeyPort: "imap", KeyUsername: "u", KeyPassword: "p"},
			wantErr:  "invalid imap_port",
		},
		{
			name:     "unresolvable host",
			settings: staticSettings{KeyUsername: "u@example.com", KeyPassword: "p"},
			resolve: func(context.Context, string) (string, error) {
				return "", errors.New("no route")
			},
			wantErr: "failed to resolve",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFetcher(tt.settings, defaultIMAP, discardLogger())
			if tt.resolve != nil {
				f.SetResolver(tt.resolve)
			}
			_, err := f.SessionConfig(context.Background())
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestFetchLatest(t *testing.T) {
	f := newTestFetcher(t)

	result, err := f.FetchLatest(context.Background(), 5, true)
	require.NoError(t, err)
	require.Len(t, result.Emails, 1)
	assert.Equal(t, uint32(1), result.Total)
	assert.Equal(t, "INBOX", result.Folder)

	upd := result.Emails[0]
	assert.NotEmpty(t, upd.ID)
	require.NotNil(t, upd.Subject)
	assert.Equal(t, "A little message, just for you", *upd.Subject)
	require.NotNil(t, upd.From)
	assert.Equal(t, "contact@example.org", *upd.From)
	require.NotNil(t, upd.Body)
	assert.Contains(t, *upd.Body, "Hi there")
	require.NotNil(t, upd.IsRead)
}

func TestFetchLatestHeadersOnly(t *testing.T) {
	f := newTestFetcher(t)

	result, err := f.FetchLatest(context.Background(), 5, false)
	require.NoError(t, err)
	require.Len(t, result.Emails, 1)

	upd := result.Emails[0]
	require.NotNil(t, upd.Subject)
	assert.Equal(t, "A little message, just for you", *upd.Subject)
	assert.Nil(t, upd.Body)
}

func TestFetchBodies(t *testing.T) {
	f := newTestFetcher(t)
	ctx := context.Background()

	latest, err := f.FetchLatest(ctx, 1, false)
	require.NoError(t, err)
	require.Len(t, latest.Emails, 1)
	uid, err := strconv.ParseUint(latest.Emails[0].ID, 10, 32)
	require.NoError(t, err)

	body, err := f.FetchBody(ctx, uint32(uid))
	require.NoError(t, err)
	assert.Equal(t, latest.Emails[0].ID, body.ID)
	assert.Contains(t, body.Body, "Hi there")

	missing, err := f.FetchBody(ctx, 9999)
	require.NoError(t, err)
	assert.Equal(t, MessageBody{ID: "9999"}, missing)
}

func TestTestConnection(t *testing.T) {
	f := newTestFetcher(t)

	info, err := f.TestConnection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "INBOX", info.Folder)
	assert.Equal(t, uint32(1), info.Messages)
}

func TestTestConnectionBadPassword(t *testing.T) {
	host, port := startIMAPServer(t)
	f := NewFetcher(staticSettings{
		KeyHost:     host,
		KeyPort:     strconv.Itoa(port),
		KeyUsername: "username",
		KeyPassword: "wrong",
		KeyUseSSL:   "false",
	}, defaultIMAP, discardLogger())

	_, err := f.TestConnection(context.Background())
	assert.ErrorContains(t, err, "failed to login")
}

func TestMessageUpdate(t *testing.T) {
	date := time.UnixMilli(1700000000000)

	upd := Message{UID: 12, Subject: "s", From: "f@x", Date: date, Seen: true}.Update()
	assert.Equal(t, "12", upd.ID)
	assert.True(t, *upd.IsRead)
	assert.Equal(t, date, *upd.Date)
	assert.Nil(t, upd.Body)

	upd = Message{UID: 13, HasBody: true}.Update()
	require.NotNil(t, upd.Body)
	assert.Equal(t, "", *upd.Body)
	assert.Nil(t, upd.Date)
}

func TestFirstOfLatest(t *testing.T) {
	tests := []struct {
		total uint32
		count int
		want  uint32
	}{
		{10, 3, 8},
		{10, 10, 1},
		{10, 50, 1},
		{3, 4294967297, 1},
		{3, 1 << 40, 1},
		{1, 1, 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, firstOfLatest(tt.total, tt.count), "total=%d count=%d", tt.total, tt.count)
	}
}

func TestParseUIDs(t *testing.T) {
	got := ParseUIDs([]any{"4", float64(7), " 9 ", "abc", 0, "-2"})
	assert.Equal(t, []uint32{4, 7, 9}, got)
}

func TestResolveKnownProvider(t *testing.T) {
	server, err := ResolveIMAPServer(context.Background(), "someone@Gmail.com")
	require.NoError(t, err)
	assert.Equal(t, "imap.gmail.com:993", server)

	_, err = ResolveIMAPServer(context.Background(), "not-an-address")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestResolverProbesCandidates(t *testing.T) {
	tests := []struct {
		name string
		up   string
		mx   string
		want string
	}{
		{"imap prefix", "imap.corp.example:993", "", "imap.corp.example:993"},
		{"mail prefix", "mail.corp.example:993", "", "mail.corp.example:993"},
		{"bare domain", "corp.example:993", "", "corp.example:993"},
		{"via mx domain", "imap.hosting.example:993", "mx1.hosting.example.", "imap.hosting.example:993"},
		{"nothing answers", "", "mx1.hosting.example.", "imap.corp.example:993"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var probed []string
			r := &Resolver{
				Probe: func(_ context.Context, addr string) bool {
					probed = append(probed, addr)
					return addr == tt.up
				},
				LookupMX: func(context.Context, string) ([]*net.MX, error) {
					if tt.mx == "" {
						return nil, errors.New("no such host")
					}
					return []*net.MX{{Host: tt.mx, Pref: 10}}, nil
				},
			}

			got, err := r.Resolve(context.Background(), "Ops Team <ops@Corp.Example>")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, "imap.corp.example:993", probed[0])
		})
	}
}

func TestDomainOf(t *testing.T) {
	domain, err := DomainOf(" user@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "example.com", domain)

	for _, bad := range []string{"", "user", "@example.com"} {
		_, err := DomainOf(bad)
		assert.ErrorIs(t, err, ErrInvalidAddress, bad)
	}
}
