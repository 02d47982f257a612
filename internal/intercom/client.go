package intercom

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// APIVersion is sent with every request
const APIVersion = "2.11"

// ErrNotConfigured is returned when no access token is available
var ErrNotConfigured = errors.New("intercom not configured")

// Client is an Intercom REST API client
type Client struct {
	baseURL    string
	token      string
	tokenFunc  func(ctx context.Context) string
	httpClient *http.Client
}

// Config for Intercom client
type Config struct {
	BaseURL string // e.g., https://api.intercom.io
	Token   string
	// TokenFunc, when set, is asked first on every request so a token
	// saved in settings takes effect without a restart
	TokenFunc func(ctx context.Context) string
}

// Admin is the owner of the access token
type Admin struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	App   *struct {
		IDCode string `json:"id_code"`
		Name   string `json:"name"`
	} `json:"app,omitempty"`
}

// Conversation is a message started on behalf of a contact
type Conversation struct {
	FromEmail string
	FromName  string
	Body      string // HTML
}

// APIError is a non-2xx response
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("intercom API error: %s: %s (status %d)", e.Code, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("intercom API error: %s (status %d)", e.Message, e.StatusCode)
}

type errorList struct {
	Type   string `json:"type"`
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

type contact struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// NewClient creates a new Intercom API client
func NewClient(cfg Config) *Client {
	return &Client{
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		token:     cfg.Token,
		tokenFunc: cfg.TokenFunc,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// IsConfigured returns true if a token is available
func (c *Client) IsConfigured(ctx context.Context) bool {
	return c.accessToken(ctx) != ""
}

// Me returns the admin owning the token. Used as a connection test.
func (c *Client) Me(ctx context.Context) (*Admin, error) {
	var admin Admin
	if err := c.do(ctx, http.MethodGet, "/me", nil, &admin); err != nil {
		return nil, err
	}
	return &admin, nil
}

// FindOrCreateContact returns the id of the contact with the given email,
// creating a lead when there is none
func (c *Client) FindOrCreateContact(ctx context.Context, email, name string) (string, error) {
	search := map[string]any{
		"query": map[string]any{
			"field":    "email",
			"operator": "=",
			"value":    email,
		},
	}

	var found struct {
		Data []contact `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/contacts/search", search, &found); err != nil {
		return "", fmt.Errorf("failed to search contact: %w", err)
	}
	if len(found.Data) > 0 {
		return found.Data[0].ID, nil
	}

	create := map[string]any{
		"role":  "lead",
		"email": email,
	}
	if name != "" {
		create["name"] = name
	}

	var created contact
	if err := c.do(ctx, http.MethodPost, "/contacts", create, &created); err != nil {
		return "", fmt.Errorf("failed to create contact: %w", err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("empty contact id in response")
	}
	return created.ID, nil
}

// CreateConversation starts a conversation from the sender and returns
// the conversation id
func (c *Client) CreateConversation(ctx context.Context, conv Conversation) (string, error) {
	if conv.FromEmail == "" {
		return "", fmt.Errorf("conversation sender is required")
	}

	contactID, err := c.FindOrCreateContact(ctx, conv.FromEmail, conv.FromName)
	if err != nil {
		return "", err
	}

	req := map[string]any{
		"from": map[string]string{
			"type": "contact",
			"id":   contactID,
		},
		"body": conv.Body,
	}

	var resp struct {
		ID             string `json:"id"`
		ConversationID string `json:"conversation_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/conversations", req, &resp); err != nil {
		return "", fmt.Errorf("failed to create conversation: %w", err)
	}

	if resp.ConversationID != "" {
		return resp.ConversationID, nil
	}
	if resp.ID == "" {
		return "", fmt.Errorf("empty conversation id in response")
	}
	return resp.ID, nil
}

// ConversationURL returns the inbox link of a conversation, or "" when
// the workspace is unknown
func ConversationURL(workspaceID, conversationID string) string {
	if workspaceID == "" || conversationID == "" {
		return ""
	}
	return fmt.Sprintf("https://app.intercom.com/a/inbox/%s/inbox/conversation/%s", workspaceID, conversationID)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	token := c.accessToken(ctx)
	if token == "" {
		return ErrNotConfigured
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Intercom-Version", APIVersion)
	if in != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		var list errorList
		if json.Unmarshal(respBody, &list) == nil && len(list.Errors) > 0 {
			apiErr.Code = list.Errors[0].Code
			apiErr.Message = list.Errors[0].Message
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w (body: %s)", err, string(respBody))
	}
	return nil
}

func (c *Client) accessToken(ctx context.Context) string {
	if c.tokenFunc != nil {
		if t := c.tokenFunc(ctx); t != "" {
			return t
		}
	}
	return c.token
}
