// Package client talks to the Maktab API the way the web app does and keeps the
// state a front end needs: the persisted session, the selection flow and the chat log.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/maktab/core/catalog"
	"github.com/trezcool/maktab/core/chat"
)

const (
	apiPrefix  = "/api"
	noResponse = "No response"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

type Option func(*Client)

// WithHTTPClient replaces the default http client, which never times out.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/") + apiPrefix,
		http:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encoding request")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out interface{}) error {
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "network failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return readError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decoding response")
	}
	return nil
}

// readError prefers the body's "error" then "message" field, then up to 100 bytes of raw body.
func readError(resp *http.Response) error {
	apiErr := &APIError{
		Status:  resp.StatusCode,
		Message: fmt.Sprintf("Server Error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apiErr
	}

	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		if len(raw) > 100 {
			raw = raw[:100]
		}
		if text := string(raw); text != "" {
			apiErr.Message = text
		}
		return apiErr
	}
	switch {
	case body.Error != "":
		apiErr.Message = body.Error
	case body.Message != "":
		apiErr.Message = body.Message
	}
	return apiErr
}

func optional(s string) *string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return &s
}

// Grades

func (c *Client) Grades(ctx context.Context) ([]catalog.Grade, error) {
	var grades []catalog.Grade
	err := c.do(ctx, http.MethodGet, "/grades", nil, &grades)
	return grades, err
}

func (c *Client) AddGrade(ctx context.Context, name string) (catalog.Grade, error) {
	var grade catalog.Grade
	err := c.do(ctx, http.MethodPost, "/grades", catalog.NewGrade{ID: uuid.NewString(), Name: name}, &grade)
	return grade, err
}

func (c *Client) UpdateGrade(ctx context.Context, id, name string) (catalog.Grade, error) {
	var grade catalog.Grade
	err := c.do(ctx, http.MethodPut, "/grades/"+url.PathEscape(id), catalog.UpdateGrade{Name: name}, &grade)
	return grade, err
}

func (c *Client) DeleteGrade(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/grades/"+url.PathEscape(id), nil, nil)
}

// Subjects

// Subjects lists the subjects of a grade.
func (c *Client) Subjects(ctx context.Context, gradeID string) ([]catalog.Subject, error) {
	var subjects []catalog.Subject
	err := c.do(ctx, http.MethodGet, "/subjects/"+url.PathEscape(gradeID), nil, &subjects)
	return subjects, err
}

func (c *Client) AllSubjects(ctx context.Context) ([]catalog.Subject, error) {
	var subjects []catalog.Subject
	err := c.do(ctx, http.MethodGet, "/subjects", nil, &subjects)
	return subjects, err
}

// GetSubject reports ok=false on any failure, not found included.
func (c *Client) GetSubject(ctx context.Context, id string) (subject catalog.Subject, ok bool) {
	if err := c.do(ctx, http.MethodGet, "/subject/"+url.PathEscape(id), nil, &subject); err != nil {
		return catalog.Subject{}, false
	}
	return subject, true
}

// SubjectGrade returns the grade a subject belongs to.
func (c *Client) SubjectGrade(ctx context.Context, subjectID string) (catalog.Grade, error) {
	var grade catalog.Grade
	err := c.do(ctx, http.MethodGet, "/subject/"+url.PathEscape(subjectID)+"/grade", nil, &grade)
	return grade, err
}

func (c *Client) AddSubject(ctx context.Context, gradeID, name, pdfURI string) (catalog.Subject, error) {
	var subject catalog.Subject
	ns := catalog.NewSubject{ID: uuid.NewString(), GradeID: gradeID, Name: name, PDFURI: optional(pdfURI)}
	err := c.do(ctx, http.MethodPost, "/subjects", ns, &subject)
	return subject, err
}

// UpdateSubject keeps the stored textbook when pdfURI is empty.
func (c *Client) UpdateSubject(ctx context.Context, id, gradeID, name, pdfURI string) (catalog.Subject, error) {
	var subject catalog.Subject
	us := catalog.UpdateSubject{GradeID: gradeID, Name: name, PDFURI: optional(pdfURI)}
	err := c.do(ctx, http.MethodPut, "/subjects/"+url.PathEscape(id), us, &subject)
	return subject, err
}

func (c *Client) DeleteSubject(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/subjects/"+url.PathEscape(id), nil, nil)
}

// Topics

func (c *Client) Topics(ctx context.Context, subjectID, search string) ([]catalog.Topic, error) {
	path := "/topics/" + url.PathEscape(subjectID)
	if search = strings.TrimSpace(search); search != "" {
		path += "?search=" + url.QueryEscape(search)
	}
	var topics []catalog.Topic
	err := c.do(ctx, http.MethodGet, path, nil, &topics)
	return topics, err
}

func (c *Client) GetTopic(ctx context.Context, id string) (topic catalog.Topic, ok bool) {
	if err := c.do(ctx, http.MethodGet, "/topic/"+url.PathEscape(id), nil, &topic); err != nil {
		return catalog.Topic{}, false
	}
	return topic, true
}

func (c *Client) AddTopic(ctx context.Context, nt catalog.NewTopic) (catalog.Topic, error) {
	if nt.ID == "" {
		nt.ID = uuid.NewString()
	}
	var topic catalog.Topic
	err := c.do(ctx, http.MethodPost, "/topics", nt, &topic)
	return topic, err
}

func (c *Client) UpdateTopic(ctx context.Context, id string, ut catalog.UpdateTopic) (catalog.Topic, error) {
	var topic catalog.Topic
	err := c.do(ctx, http.MethodPut, "/topics/"+url.PathEscape(id), ut, &topic)
	return topic, err
}

func (c *Client) DeleteTopic(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/topics/"+url.PathEscape(id), nil, nil)
}

// Upload & chat

// UploadSubjectPDF sends a textbook to the model file store and returns its URI.
// With a subjectID the server also attaches the URI to that subject.
func (c *Client) UploadSubjectPDF(ctx context.Context, filename string, r io.Reader, subjectID string) (string, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	if subjectID != "" {
		if err := form.WriteField("subjectId", subjectID); err != nil {
			return "", err
		}
	}
	part, err := form.CreateFormFile("pdf", filename)
	if err != nil {
		return "", err
	}
	if _, err = io.Copy(part, r); err != nil {
		return "", errors.Wrap(err, "reading textbook")
	}
	if err = form.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/admin/upload", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	var resp struct {
		Success bool   `json:"success"`
		URI     string `json:"uri"`
	}
	if err = c.send(req, &resp); err != nil {
		return "", err
	}
	return resp.URI, nil
}

// Actions returns the localized quick actions offered to role.
func (c *Client) Actions(ctx context.Context, role chat.Role, lang chat.Language) ([]chat.ActionItem, error) {
	q := url.Values{"role": {string(role)}, "lang": {string(lang)}}
	var items []chat.ActionItem
	err := c.do(ctx, http.MethodGet, "/actions?"+q.Encode(), nil, &items)
	return items, err
}

// Chat always returns something to show: the reply, "No response" for an empty one,
// or the localized connection error. err carries the failure cause.
func (c *Client) Chat(ctx context.Context, req chat.Request) (string, error) {
	var resp struct {
		Text string `json:"text"`
	}
	if err := c.do(ctx, http.MethodPost, "/chat", req, &resp); err != nil {
		return chat.T(chat.ParseLanguage(req.Language), chat.MsgAIError), err
	}
	if resp.Text == "" {
		return noResponse, nil
	}
	return resp.Text, nil
}
