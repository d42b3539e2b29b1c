package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"echosync/internal/cases"
	"echosync/internal/config"
)

const userAgent = "echosync/0.1.0"

// HTTPDoer describes the HTTP client used by the remote adapter.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// TokenSource yields the current session bearer token, or "" when none is
// held. Absence of a token is not an error; some endpoints are public.
type TokenSource func() string

// Client is the remote API adapter.
type Client struct {
	baseURL string
	client  HTTPDoer
	tokens  TokenSource
}

// NewFromConfig builds a client for the configured backend, reading the
// session token from the configured session file on every request.
func NewFromConfig(cfg *config.Config) *Client {
	timeout := time.Duration(cfg.Remote.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return New(cfg.Remote.BaseURL, &http.Client{Timeout: timeout}, FileTokenSource(cfg.Paths.SessionTokenPath))
}

// New constructs a client around an explicit transport and token source.
func New(baseURL string, client HTTPDoer, tokens TokenSource) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	if tokens == nil {
		tokens = func() string { return "" }
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  client,
		tokens:  tokens,
	}
}

// BaseURL returns the normalized backend address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// List fetches cases, optionally filtered by a substring query.
func (c *Client) List(ctx context.Context, query string) ([]*cases.Case, error) {
	path := "/api/cases"
	if trimmed := strings.TrimSpace(query); trimmed != "" {
		path += "?q=" + url.QueryEscape(trimmed)
	}
	var list []*cases.Case
	if err := c.getJSON(ctx, path, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Get fetches a single case by identifier.
func (c *Client) Get(ctx context.Context, caseID string) (*cases.Case, error) {
	var record cases.Case
	if err := c.getJSON(ctx, "/api/cases/"+url.PathEscape(caseID), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Create posts a new case. The metadata always transfers; the video stream
// is included only when the payload carries one.
func (c *Client) Create(ctx context.Context, payload NewCase) (*CreateAck, error) {
	var (
		body        io.Reader
		contentType string
	)
	if payload.Video != nil {
		buf, mpContentType, err := encodeMultipart(payload)
		if err != nil {
			return nil, cases.Wrap(cases.ErrValidation, "remote", "create", "encode multipart", err)
		}
		body = buf
		contentType = mpContentType
	} else {
		data, err := json.Marshal(payload.Case)
		if err != nil {
			return nil, cases.Wrap(cases.ErrValidation, "remote", "create", "encode payload", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/cases", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	var ack CreateAck
	if err := c.do(req, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

// Delete removes a case by identifier.
func (c *Client) Delete(ctx context.Context, caseID string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/api/cases/"+url.PathEscape(caseID), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// Results fetches the analysis result for a case.
func (c *Client) Results(ctx context.Context, caseID string) (*cases.Result, error) {
	var result cases.Result
	if err := c.getJSON(ctx, "/api/cases/"+url.PathEscape(caseID)+"/results", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Patients fetches the grouped patient listing.
func (c *Client) Patients(ctx context.Context) ([]*cases.Patient, error) {
	var list []*cases.Patient
	if err := c.getJSON(ctx, "/api/patients", &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Login authenticates and returns the issued session.
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	data, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return nil, cases.Wrap(cases.ErrValidation, "remote", "login", "encode payload", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/auth/login", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var session Session
	if err := c.do(req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, cases.Wrap(cases.ErrTransport, "remote", "build request", path, err)
	}
	req.Header.Set("User-Agent", userAgent)
	if token := strings.TrimSpace(c.tokens()); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return cases.Wrap(cases.ErrTransport, "remote", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return classifyStatus(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return cases.Wrap(cases.ErrTransport, "remote", req.Method, "decode response", err)
	}
	return nil
}

// classifyStatus maps a non-success response to an error kind, surfacing the
// server-provided message when the body carries one.
func classifyStatus(resp *http.Response) error {
	message := serverMessage(resp.Body)
	if message == "" {
		message = "status " + strconv.Itoa(resp.StatusCode)
	}

	var marker error
	switch {
	case resp.StatusCode == http.StatusNotFound:
		marker = cases.ErrNotFound
	case resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError:
		marker = cases.ErrValidation
	default:
		marker = cases.ErrTransport
	}
	return cases.Wrap(marker, "remote", resp.Request.Method, message, nil)
}

func serverMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil || len(data) == 0 {
		return ""
	}
	var parsed errorBody
	if err := json.Unmarshal(data, &parsed); err == nil && parsed.Message != "" {
		return parsed.Message
	}
	return strings.TrimSpace(string(data))
}

func encodeMultipart(payload NewCase) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)

	fields := map[string]string{
		"patientName":   payload.Case.PatientName,
		"medicalId":     payload.Case.MedicalID,
		"examDate":      payload.Case.ExamDate,
		"clinicalNotes": payload.Case.ClinicalNotes,
		"gender":        payload.Case.Gender,
	}
	if payload.Case.Age > 0 {
		fields["age"] = strconv.Itoa(payload.Case.Age)
	}
	for name, value := range fields {
		if value == "" {
			continue
		}
		if err := writer.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", name, err)
		}
	}

	name := payload.VideoName
	if name == "" {
		name = "exam.mp4"
	}
	part, err := writer.CreateFormFile("video", name)
	if err != nil {
		return nil, "", fmt.Errorf("create video part: %w", err)
	}
	if _, err := io.Copy(part, payload.Video); err != nil {
		return nil, "", fmt.Errorf("copy video: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize multipart body: %w", err)
	}
	return buf, writer.FormDataContentType(), nil
}
