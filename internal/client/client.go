// Package client is the typed HTTP client for the nobat API. It holds no
// view state: every method issues one request and returns parsed results or
// a typed failure.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/cerita/nobat/internal/model"
)

// Session is the explicit session context attached to every request,
// replacing ad-hoc global credential state. Safe for concurrent use.
type Session struct {
	mu    sync.RWMutex
	token string
}

func NewSession(token string) *Session {
	return &Session{token: token}
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) Set(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

func (s *Session) Clear() { s.Set("") }

// APIError is a non-2xx response; Message is the server's error text,
// surfaced verbatim (e.g. "slot already taken").
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (%d): %s", e.Status, e.Message)
}

// DayPage is the list response: a day context plus that day's turns.
type DayPage struct {
	Date  model.DayContext
	Turns []model.Turn
}

// TurnInput carries the write fields; the phone must be normalized before
// being put here.
type TurnInput struct {
	RefName     string
	RefPhone    string
	User        string
	Description string
	Slot        model.Slot
}

type Client struct {
	baseURL string
	session *Session
	http    *http.Client
}

// New builds a client. A nil httpClient means the default client with no
// timeout of its own; the transport and server limits apply.
func New(baseURL string, session *Session, httpClient *http.Client) *Client {
	if session == nil {
		session = NewSession("")
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{baseURL: baseURL, session: session, http: httpClient}
}

func (c *Client) Session() *Session { return c.session }

type wireDayPage struct {
	Date  model.DayContext `json:"date"`
	Turns []model.TurnWire `json:"turns"`
}

type wireTurnReq struct {
	ID          string `json:"id,omitempty"`
	RefName     string `json:"refname,omitempty"`
	RefPhone    string `json:"refphone"`
	User        string `json:"user,omitempty"`
	Description string `json:"description,omitempty"`
	Date        string `json:"date"`
}

func turnBody(id string, in TurnInput) wireTurnReq {
	return wireTurnReq{
		ID:          id,
		RefName:     in.RefName,
		RefPhone:    in.RefPhone,
		User:        in.User,
		Description: in.Description,
		Date:        in.Slot.String(),
	}
}

// ListTurns fetches one day. Empty cursor and direction mean "today".
func (c *Client) ListTurns(ctx context.Context, cursor, direction string) (DayPage, error) {
	path := "/turns"
	if direction != "" {
		path += "/" + direction
		if cursor != "" {
			path += "/" + cursor
		}
	}

	var wire wireDayPage
	if err := c.do(ctx, http.MethodGet, path, nil, &wire); err != nil {
		return DayPage{}, err
	}

	page := DayPage{Date: wire.Date, Turns: make([]model.Turn, 0, len(wire.Turns))}
	for _, w := range wire.Turns {
		t, err := model.TurnFromWire(w)
		if err != nil {
			return DayPage{}, fmt.Errorf("decode turn %s: %w", w.ID, err)
		}
		page.Turns = append(page.Turns, t)
	}
	return page, nil
}

func (c *Client) CreateTurn(ctx context.Context, in TurnInput) (model.Turn, error) {
	var wire model.TurnWire
	if err := c.do(ctx, http.MethodPost, "/turn", turnBody("", in), &wire); err != nil {
		return model.Turn{}, err
	}
	return model.TurnFromWire(wire)
}

func (c *Client) UpdateTurn(ctx context.Context, id string, in TurnInput) (model.Turn, error) {
	var wire model.TurnWire
	if err := c.do(ctx, http.MethodPut, "/turn", turnBody(id, in), &wire); err != nil {
		return model.Turn{}, err
	}
	return model.TurnFromWire(wire)
}

func (c *Client) DeleteTurn(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/turn/"+id, nil, nil)
}

// SendCommentSMS triggers the survey workflow; the caller re-lists to
// observe the status flag change.
func (c *Client) SendCommentSMS(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPut, "/commentSms/"+id, nil, nil)
}

// Login exchanges an operator ID for a session token. The caller decides
// where to persist it; the client's Session is not mutated here.
func (c *Client) Login(ctx context.Context, userID string) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/login", map[string]string{"userId": userID}, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		return decodeAPIError(res)
	}

	if out == nil || res.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(res *http.Response) error {
	apiErr := &APIError{Status: res.StatusCode, Message: http.StatusText(res.StatusCode)}

	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err == nil && body.Error != "" {
		apiErr.Message = body.Error
	}
	return apiErr
}
