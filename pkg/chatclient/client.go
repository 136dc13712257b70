// Package chatclient is a Go client for a partychat server. It speaks the
// room websocket protocol and routes file messages by size: small files are
// embedded as data URLs, larger ones are uploaded first.
package chatclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"partychat/internal/models"
)

const (
	// Files below this size are sent inline as data URLs.
	SmallFileThreshold = 5 << 20
	// Files above this size are refused.
	MaxFileSize = 15 << 20
)

var (
	ErrFileTooLarge  = errors.New("file exceeds the 15 MiB limit")
	ErrNotConnected  = errors.New("client is not connected")
	ErrUploadRefused = errors.New("upload refused by server")
)

// Client is one participant in one room.
type Client struct {
	base *url.URL
	room string
	user string

	HTTPClient *http.Client
	Dialer     *websocket.Dialer

	mu   sync.Mutex // serialises websocket writes
	conn *websocket.Conn
}

// New prepares a client for room on the server at baseURL (http or https).
// An empty user picks a random display name.
func New(baseURL, room, user string) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid server url %q: scheme must be http or https", baseURL)
	}
	if err := models.ValidateRoomName(room); err != nil {
		return nil, err
	}
	if user == "" {
		user = RandomName()
	}
	return &Client{
		base:       base,
		room:       room,
		user:       user,
		HTTPClient: &http.Client{Timeout: 2 * time.Minute},
		Dialer:     websocket.DefaultDialer,
	}, nil
}

// User returns the display name the client sends messages as.
func (c *Client) User() string {
	return c.user
}

func (c *Client) websocketURL() string {
	u := *c.base
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/parties/chat/" + c.room
	return u.String()
}

func (c *Client) resolve(ref string) string {
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return c.base.ResolveReference(r).String()
}

// Dial opens the room connection. The first event received is the room's
// full message list.
func (c *Client) Dial(ctx context.Context) error {
	conn, _, err := c.Dialer.DialContext(ctx, c.websocketURL(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect to room %s: %w", c.room, err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	return nil
}

// Next blocks until the next event arrives.
func (c *Client) Next() (models.Event, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil, ErrNotConnected
	}

	_, frame, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return models.DecodeEvent(frame)
}

func (c *Client) send(ev models.Event) error {
	frame, err := models.EncodeEvent(ev)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

func (c *Client) newMessage(content string) models.ChatMessage {
	return models.ChatMessage{
		ID:        uuid.NewString(),
		Content:   content,
		User:      c.user,
		Role:      models.RoleUser,
		Timestamp: time.Now().UnixMilli(),
		MsgType:   models.MsgTypeText,
	}
}

// SendText adds a text message to the room.
func (c *Client) SendText(content string) (models.ChatMessage, error) {
	msg := c.newMessage(content)
	return msg, c.send(models.AddEvent{Message: msg})
}

// Update replaces a message the client sent earlier.
func (c *Client) Update(msg models.ChatMessage) error {
	msg.Timestamp = time.Now().UnixMilli()
	return c.send(models.UpdateEvent{Message: msg})
}

// SendFile prepares a file message and adds it to the room.
func (c *Client) SendFile(ctx context.Context, name, contentType string, data []byte) (models.ChatMessage, error) {
	msg, err := c.PrepareFile(ctx, name, contentType, data)
	if err != nil {
		return models.ChatMessage{}, err
	}
	return msg, c.send(models.AddEvent{Message: msg})
}

// PrepareFile builds a file message without sending it. Files under
// SmallFileThreshold are embedded; files up to MaxFileSize are uploaded and
// referenced by URL. Larger files fail before any request is made.
func (c *Client) PrepareFile(ctx context.Context, name, contentType string, data []byte) (models.ChatMessage, error) {
	size := len(data)
	if size > MaxFileSize {
		return models.ChatMessage{}, fmt.Errorf("%w: %s is %d bytes", ErrFileTooLarge, name, size)
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	var content string
	if size < SmallFileThreshold {
		mediaType, _, _ := strings.Cut(contentType, ";")
		content = "data:" + strings.TrimSpace(mediaType) + ";base64," + base64.StdEncoding.EncodeToString(data)
	} else {
		ref, err := c.Upload(ctx, name, contentType, data)
		if err != nil {
			return models.ChatMessage{}, err
		}
		content = ref
	}

	msg := c.newMessage(content)
	msg.MsgType = models.MsgTypeFile
	msg.FileName = name
	msg.FileType = contentType
	return msg, nil
}

type uploadResponse struct {
	URL     string `json:"url"`
	Error   string `json:"error"`
	Details string `json:"details"`
}

// Upload posts a file to the server and returns its absolute URL.
func (c *Client) Upload(ctx context.Context, name, contentType string, data []byte) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve("/upload"), &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", name, err)
	}
	defer resp.Body.Close()

	var out uploadResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode upload response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %d %s %s", ErrUploadRefused, resp.StatusCode, out.Error, out.Details)
	}
	if out.URL == "" {
		return "", fmt.Errorf("%w: empty url", ErrUploadRefused)
	}
	return c.resolve(out.URL), nil
}

// Close sends a close frame and tears the connection down.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	err := c.conn.Close()
	c.conn = nil
	return err
}
