package email

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
)

// ErrInvalidAddress is returned for usernames that are not email addresses
var ErrInvalidAddress = errors.New("invalid email format")

const imapsPort = 993

// Providers whose IMAP host cannot be guessed from the domain
var knownHosts = map[string]string{
	"gmail.com":      "imap.gmail.com",
	"googlemail.com": "imap.gmail.com",
	"outlook.com":    "outlook.office365.com",
	"hotmail.com":    "outlook.office365.com",
	"live.com":       "outlook.office365.com",
	"office365.com":  "outlook.office365.com",
	"yahoo.com":      "imap.mail.yahoo.com",
	"icloud.com":     "imap.mail.me.com",
	"me.com":         "imap.mail.me.com",
	"zoho.com":       "imap.zoho.com",
	"fastmail.com":   "imap.fastmail.com",
	"gmx.com":        "imap.gmx.com",
	"yandex.ru":      "imap.yandex.ru",
	"mail.ru":        "imap.mail.ru",
}

// Resolver guesses the IMAP server of a mailbox from its address.
type Resolver struct {
	// Probe reports whether addr accepts TCP connections
	Probe func(ctx context.Context, addr string) bool
	// LookupMX returns the mail exchangers of a domain, most preferred first
	LookupMX func(ctx context.Context, domain string) ([]*net.MX, error)
}

// NewResolver creates a Resolver that dials and queries DNS for real
func NewResolver() *Resolver {
	return &Resolver{
		Probe:    dialProbe,
		LookupMX: net.DefaultResolver.LookupMX,
	}
}

// ResolveIMAPServer resolves address with the default resolver
func ResolveIMAPServer(ctx context.Context, address string) (string, error) {
	return NewResolver().Resolve(ctx, address)
}

// Resolve returns "host:port" for the mailbox. Known providers are
// answered without network access. Otherwise imap.<domain>, mail.<domain>
// and the bare domain are probed, then the same prefixes under the
// primary MX domain. When nothing answers imap.<domain> is returned.
func (r *Resolver) Resolve(ctx context.Context, address string) (string, error) {
	domain, err := DomainOf(address)
	if err != nil {
		return "", err
	}

	if host, ok := knownHosts[domain]; ok {
		return hostPort(host), nil
	}

	for _, host := range r.candidates(ctx, domain) {
		if r.Probe(ctx, hostPort(host)) {
			return hostPort(host), nil
		}
	}
	return hostPort("imap." + domain), nil
}

func (r *Resolver) candidates(ctx context.Context, domain string) []string {
	hosts := []string{"imap." + domain, "mail." + domain, domain}

	if r.LookupMX != nil {
		if mx, err := r.LookupMX(ctx, domain); err == nil && len(mx) > 0 {
			mxHost := strings.TrimSuffix(mx[0].Host, ".")
			if _, base, ok := strings.Cut(mxHost, "."); ok && base != domain {
				hosts = append(hosts, "imap."+base, "mail."+base)
			}
		}
	}
	return hosts
}

// DomainOf returns the lowercased domain of an email address
func DomainOf(address string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(address))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	_, domain, ok := strings.Cut(addr.Address, "@")
	if !ok || domain == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	return strings.ToLower(domain), nil
}

func hostPort(host string) string {
	return net.JoinHostPort(host, strconv.Itoa(imapsPort))
}

func dialProbe(ctx context.Context, addr string) bool {
	dialer := &net.Dialer{Timeout: 3 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
