// Package client is the HTTP adapter for the emission assistant backend.
// It owns request construction, the per-user identity header and response
// decoding; stream bodies are handed off unread so the caller can run them
// through the chat processor.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// userIDHeader carries the per-installation identity on every request.
const userIDHeader = "X-User-ID"

// ErrEmptyRequest is returned when a chat send has neither a message nor
// an attached file. The request is rejected locally and no connection is
// opened.
var ErrEmptyRequest = errors.New("nothing to send: provide a message or a file")

// Client talks to one emission assistant backend on behalf of one user.
type Client struct {
	target string
	userID string
	http   *http.Client
	logger *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the request timeout. Assistant responses can take
// minutes, so the default is deliberately long.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a Client for the backend at target, authenticating as userID.
func New(target, userID string, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		target: strings.TrimRight(target, "/"),
		userID: userID,
		http: &http.Client{
			// Assistant replies can be slow
			Timeout: 5 * time.Minute,
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UserID returns the identity sent with every request.
func (c *Client) UserID() string {
	return c.userID
}

// ChatStream sends a chat turn and returns the raw newline-delimited JSON
// response body. The caller owns the body and must close it.
//
// filePath may be empty. sessionID may be empty for a fresh conversation;
// the stream's final event carries the session the backend routed the turn
// to.
func (c *Client) ChatStream(ctx context.Context, msg, sessionID, filePath string) (io.ReadCloser, error) {
	if strings.TrimSpace(msg) == "" && filePath == "" {
		return nil, ErrEmptyRequest
	}

	body, contentType, err := chatForm(msg, sessionID, filePath)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.target+"/api/chat/stream", body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(userIDHeader, c.userID)

	c.logger.Debug("opening chat stream",
		zap.String("session_id", sessionID),
		zap.Bool("has_file", filePath != ""),
	)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, decodeAPIError(respBody))
	}

	return resp.Body, nil
}

// Chat sends a chat turn over the non-streaming endpoint and returns the
// complete reply.
func (c *Client) Chat(ctx context.Context, msg, sessionID, filePath string) (*ChatReply, error) {
	if strings.TrimSpace(msg) == "" && filePath == "" {
		return nil, ErrEmptyRequest
	}

	body, contentType, err := chatForm(msg, sessionID, filePath)
	if err != nil {
		return nil, err
	}

	var reply ChatReply
	if err := c.do(ctx, http.MethodPost, "/api/chat", body, contentType, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// NewSession creates a fresh conversation and returns its ID.
func (c *Client) NewSession(ctx context.Context) (string, error) {
	var resp newSessionResponse
	if err := c.do(ctx, http.MethodPost, "/api/sessions/new", nil, "", &resp); err != nil {
		return "", err
	}
	return resp.SessionID, nil
}

// Sessions lists the user's conversations, most recently updated first.
func (c *Client) Sessions(ctx context.Context) ([]Session, error) {
	var resp sessionsResponse
	if err := c.do(ctx, http.MethodGet, "/api/sessions", nil, "", &resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

// History returns the stored messages of one conversation.
func (c *Client) History(ctx context.Context, sessionID string) ([]HistoryMessage, error) {
	var resp historyResponse
	path := "/api/sessions/" + url.PathEscape(sessionID) + "/history"
	if err := c.do(ctx, http.MethodGet, path, nil, "", &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// RenameSession changes a conversation's title.
func (c *Client) RenameSession(ctx context.Context, sessionID, title string) error {
	payload, err := json.Marshal(map[string]string{"title": title})
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}
	path := "/api/sessions/" + url.PathEscape(sessionID) + "/title"
	return c.do(ctx, http.MethodPatch, path, bytes.NewReader(payload), "application/json", nil)
}

// DeleteSession removes a conversation and its messages.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	path := "/api/sessions/" + url.PathEscape(sessionID)
	return c.do(ctx, http.MethodDelete, path, nil, "", nil)
}

// PreviewFile uploads a spreadsheet for inspection without starting a chat
// turn.
func (c *Client) PreviewFile(ctx context.Context, filePath string) (*FilePreview, error) {
	body, contentType, err := fileForm(filePath)
	if err != nil {
		return nil, err
	}

	var preview FilePreview
	if err := c.do(ctx, http.MethodPost, "/api/file/preview", body, contentType, &preview); err != nil {
		return nil, err
	}
	return &preview, nil
}

// DownloadFile streams a generated result file by ID into w and returns
// the filename the server suggested.
func (c *Client) DownloadFile(ctx context.Context, fileID string, w io.Writer) (string, error) {
	return c.download(ctx, "/api/file/download/"+url.PathEscape(fileID), w)
}

// DownloadMessageFile streams the result file attached to one assistant
// message.
func (c *Client) DownloadMessageFile(ctx context.Context, sessionID, messageID string, w io.Writer) (string, error) {
	path := fmt.Sprintf("/api/file/download/message/%s/%s",
		url.PathEscape(sessionID), url.PathEscape(messageID))
	return c.download(ctx, path, w)
}

// DownloadTemplate streams an input template ("route" or "fleet") into w.
func (c *Client) DownloadTemplate(ctx context.Context, templateType string, w io.Writer) (string, error) {
	return c.download(ctx, "/api/file/template/"+url.PathEscape(templateType), w)
}

// Health checks backend liveness.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/health", nil, "", nil)
}

// do runs a request and decodes a JSON response into out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.target+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set(userIDHeader, c.userID)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, decodeAPIError(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// download streams a file response into w and extracts the suggested
// filename from the Content-Disposition header.
func (c *Client) download(ctx context.Context, path string, w io.Writer) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.target+path, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set(userIDHeader, c.userID)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("server returned status %d: %s", resp.StatusCode, decodeAPIError(respBody))
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", fmt.Errorf("downloading file: %w", err)
	}

	return dispositionFilename(resp.Header.Get("Content-Disposition")), nil
}

func dispositionFilename(disposition string) string {
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	return params["filename"]
}

// chatForm builds the multipart body for a chat turn.
func chatForm(msg, sessionID, filePath string) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("message", msg); err != nil {
		return nil, "", fmt.Errorf("building form: %w", err)
	}
	if sessionID != "" {
		if err := mw.WriteField("session_id", sessionID); err != nil {
			return nil, "", fmt.Errorf("building form: %w", err)
		}
	}
	if filePath != "" {
		if err := attachFile(mw, filePath); err != nil {
			return nil, "", err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("building form: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

// fileForm builds a multipart body holding only a file upload.
func fileForm(filePath string) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := attachFile(mw, filePath); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("building form: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

func attachFile(mw *multipart.Writer, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	part, err := mw.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return fmt.Errorf("building form: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	return nil
}
