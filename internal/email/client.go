package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/mixelka/mailsync/internal/parser"
)

// ErrNotConnected is returned by session calls after Close
var ErrNotConnected = errors.New("not connected")

// Message is a message read from the mailbox
type Message struct {
	UID     uint32
	Subject string
	From    string
	Date    time.Time
	Seen    bool
	Body    string
	HasBody bool
}

// ID returns the UID as the record id
func (m Message) ID() string {
	return strconv.FormatUint(uint64(m.UID), 10)
}

// SessionConfig configures a single IMAP session
type SessionConfig struct {
	Host               string
	Port               int
	Username           string
	Password           string
	UseTLS             bool
	InsecureSkipVerify bool
	Folder             string
	DialTimeout        time.Duration
}

// Addr returns host:port
func (c SessionConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Session is one logged-in IMAP connection. It is not reused across
// requests.
type Session struct {
	config SessionConfig
	client *client.Client
	text   *parser.BodyText
	logger *slog.Logger
	mu     sync.Mutex
	stop   chan struct{}
}

// Dial connects and logs in. The connection is terminated when ctx is
// done before Close is called.
func Dial(ctx context.Context, cfg SessionConfig, logger *slog.Logger) (*Session, error) {
	logger = logger.With("server", cfg.Addr(), "user", cfg.Username)
	logger.Debug("connecting to IMAP server")

	// Connect with timeout
	timeout := cfg.DialTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	dialer := &net.Dialer{Timeout: timeout}
	var conn net.Conn
	var err error
	if cfg.UseTLS {
		tlsDialer := &tls.Dialer{
			NetDialer: dialer,
			Config: &tls.Config{
				ServerName:         cfg.Host,
				InsecureSkipVerify: cfg.InsecureSkipVerify,
			},
		}
		conn, err = tlsDialer.DialContext(ctx, "tcp", cfg.Addr())
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", cfg.Addr())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	imapClient, err := client.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create IMAP client: %w", err)
	}
	imapClient.Timeout = timeout

	s := &Session{
		config: cfg,
		client: imapClient,
		text:   parser.NewBodyText(),
		logger: logger,
		stop:   make(chan struct{}),
	}

	// Abort blocking commands once the request is gone
	go func() {
		select {
		case <-ctx.Done():
			s.terminate()
		case <-s.stop:
		}
	}()

	if err := imapClient.Login(cfg.Username, cfg.Password); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to login: %w", err)
	}

	logger.Debug("logged in to IMAP server")
	return s, nil
}

// Select opens the configured folder read-only
func (s *Session) Select() (*imap.MailboxStatus, error) {
	c, err := s.conn()
	if err != nil {
		return nil, err
	}

	mbox, err := c.Select(s.folder(), true)
	if err != nil {
		return nil, fmt.Errorf("failed to select %s: %w", s.folder(), err)
	}
	return mbox, nil
}

// FetchLatest returns the last count messages of the selected folder by
// sequence number
func (s *Session) FetchLatest(mbox *imap.MailboxStatus, count int, includeBody bool) ([]Message, error) {
	if mbox.Messages == 0 || count <= 0 {
		return []Message{}, nil
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddRange(firstOfLatest(mbox.Messages, count), mbox.Messages)

	section := &imap.BodySectionName{Peek: true}
	if !includeBody {
		section.BodyPartName = imap.BodyPartName{
			Specifier: imap.HeaderSpecifier,
			Fields:    []string{"FROM", "TO", "SUBJECT", "DATE"},
		}
	}

	return s.fetch(false, seqSet, section, includeBody)
}

// firstOfLatest returns the first sequence number of the last count of
// total messages
func firstOfLatest(total uint32, count int) uint32 {
	if count <= 0 || uint64(count) >= uint64(total) {
		return 1
	}
	return total - uint32(count) + 1
}

// FetchBodies fetches full messages by UID
func (s *Session) FetchBodies(uids []uint32) ([]Message, error) {
	if len(uids) == 0 {
		return []Message{}, nil
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	return s.fetch(true, seqSet, &imap.BodySectionName{Peek: true}, true)
}

func (s *Session) fetch(byUID bool, seqSet *imap.SeqSet, section *imap.BodySectionName, includeBody bool) ([]Message, error) {
	c, err := s.conn()
	if err != nil {
		return nil, err
	}

	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, imap.FetchFlags, imap.FetchInternalDate, section.FetchItem()}

	messages := make(chan *imap.Message, 16)
	done := make(chan error, 1)

	go func() {
		if byUID {
			done <- c.UidFetch(seqSet, items, messages)
		} else {
			done <- c.Fetch(seqSet, items, messages)
		}
	}()

	result := []Message{}
	for msg := range messages {
		result = append(result, s.parseMessage(msg, section, includeBody))
	}

	if err := <-done; err != nil {
		return result, fmt.Errorf("failed to fetch: %w", err)
	}

	return result, nil
}

// parseMessage converts a fetched message. Parsing problems are logged
// and leave the affected fields empty.
func (s *Session) parseMessage(msg *imap.Message, section *imap.BodySectionName, includeBody bool) Message {
	m := Message{
		UID:     msg.Uid,
		Date:    msg.InternalDate,
		HasBody: includeBody,
	}

	for _, flag := range msg.Flags {
		if flag == imap.SeenFlag {
			m.Seen = true
			break
		}
	}

	if msg.Envelope != nil {
		m.Subject = msg.Envelope.Subject
		if len(msg.Envelope.From) > 0 {
			m.From = msg.Envelope.From[0].Address()
		}
		if m.Date.IsZero() {
			m.Date = msg.Envelope.Date
		}
	}

	bodyReader := msg.GetBody(section)
	if bodyReader == nil {
		return m
	}

	mr, err := mail.CreateReader(bodyReader)
	if err != nil {
		s.logger.Warn("failed to create mail reader", "uid", msg.Uid, "error", err)
		return m
	}

	if m.Subject == "" {
		m.Subject, _ = mr.Header.Subject()
	}
	if m.From == "" {
		if addrs, err := mr.Header.AddressList("From"); err == nil && len(addrs) > 0 {
			m.From = addrs[0].Address
		}
	}

	if includeBody {
		m.Body = s.readBody(mr, msg.Uid)
	}
	return m
}

// readBody returns the text part, or the HTML part converted to text
func (s *Session) readBody(mr *mail.Reader, uid uint32) string {
	var text, html string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			s.logger.Warn("failed to read part", "uid", uid, "error", err)
			break
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		ct, _, _ := h.ContentType()
		body, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}

		switch {
		case strings.HasPrefix(ct, "text/plain") && text == "":
			text = string(body)
		case strings.HasPrefix(ct, "text/html") && html == "":
			html = string(body)
		}
	}

	if text != "" {
		return text
	}
	if html == "" {
		return ""
	}

	plain, err := s.text.FromHTML(html)
	if err != nil {
		s.logger.Warn("failed to convert HTML body", "uid", uid, "error", err)
		return html
	}
	return plain
}

// Close logs out and releases the connection
func (s *Session) Close() {
	s.mu.Lock()
	c := s.client
	s.client = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	close(s.stop)

	// Try logout with timeout, then force close
	done := make(chan struct{})
	go func() {
		c.Logout()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		c.Terminate()
	}
}

func (s *Session) terminate() {
	s.mu.Lock()
	c := s.client
	s.mu.Unlock()

	if c != nil {
		s.logger.Debug("request cancelled, terminating IMAP connection")
		c.Terminate()
	}
}

func (s *Session) conn() (*client.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil, ErrNotConnected
	}
	return s.client, nil
}

func (s *Session) folder() string {
	if s.config.Folder == "" {
		return "INBOX"
	}
	return s.config.Folder
}
