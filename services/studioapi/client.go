// Package studioapi is the HTTP client of the studio REST backend.
package studioapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/studio/core"
	"github.com/trezcool/studio/core/payment"
	"github.com/trezcool/studio/core/roster"
)

// Session holds the credentials of the signed in staff member.
type Session struct {
	Token string
}

// Client calls the backend on behalf of a Session.
type Client struct {
	baseURL string
	http    *http.Client
	session Session
}

var (
	_ roster.Backend   = (*Client)(nil)
	_ roster.Directory = (*Client)(nil)
	_ payment.Gateway  = (*Client)(nil)
)

// New returns a client of the backend at baseURL. Redirects are never followed.
func New(baseURL string, session Session, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	noRedirect := *httpClient
	noRedirect.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &noRedirect,
		session: session,
	}
}

// Login exchanges staff credentials for a Session.
func Login(ctx context.Context, baseURL string, httpClient *http.Client, username, password string) (Session, error) {
	c := New(baseURL, Session{}, httpClient)
	var resp struct {
		Token string `json:"token"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/v1/login", nil, body, &resp, paymentError); err != nil {
		return Session{}, err
	}
	return Session{Token: resp.Token}, nil
}

// errorMapper turns a decoded error body into the caller's error type.
type errorMapper func(body payment.ErrorBody) error

func rosterError(body payment.ErrorBody) error {
	if err := roster.FromErrorType(body.ErrorType); err != nil {
		return err
	}
	return paymentError(body)
}

func paymentError(body payment.ErrorBody) error {
	pErr := payment.FromWire(body.ErrorType, body.Message)
	pErr.Fields = body.Fields
	return pErr
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out interface{}, mapErr errorMapper) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encoding request")
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.session.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.session.Token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Wrap(ctxErr, method+" "+path)
		}
		return &payment.Error{Kind: payment.KindTransport, Err: errors.Wrap(err, method+" "+path)}
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusMultipleChoices {
		return c.decodeError(res, mapErr)
	}
	if out == nil {
		return nil
	}
	if err = json.NewDecoder(res.Body).Decode(out); err != nil {
		return &payment.Error{Kind: payment.KindTransport, Err: errors.Wrap(err, "decoding response")}
	}
	return nil
}

func (c *Client) decodeError(res *http.Response, mapErr errorMapper) error {
	var body payment.ErrorBody
	decodeErr := json.NewDecoder(res.Body).Decode(&body)

	switch res.StatusCode {
	case http.StatusUnauthorized:
		return payment.NewError(payment.KindUnauthenticated, body.Message)
	case http.StatusForbidden:
		return payment.NewError(payment.KindPermissionDenied, body.Message)
	}
	if decodeErr != nil || body.ErrorType == "" {
		return &payment.Error{
			Kind: payment.KindTransport,
			Err:  fmt.Errorf("unexpected response: %s", res.Status),
		}
	}
	return mapErr(body)
}

func (c *Client) AssignTeacher(ctx context.Context, classID, teacherID string) error {
	return c.do(ctx, http.MethodPost, classPath(classID, "teachers", teacherID), nil, nil, nil, rosterError)
}

func (c *Client) UnassignTeacher(ctx context.Context, classID, teacherID string) error {
	return c.do(ctx, http.MethodDelete, classPath(classID, "teachers", teacherID), nil, nil, nil, rosterError)
}

func (c *Client) EnrollStudent(ctx context.Context, studentID, classID string) error {
	return c.do(ctx, http.MethodPost, studentPath(studentID, "classes", classID), nil, nil, nil, rosterError)
}

func (c *Client) UnenrollStudent(ctx context.Context, studentID, classID string) error {
	return c.do(ctx, http.MethodDelete, studentPath(studentID, "classes", classID), nil, nil, nil, rosterError)
}

func (c *Client) GetClassByID(ctx context.Context, classID string) (roster.Class, error) {
	var dto roster.ClassDTO
	if err := c.do(ctx, http.MethodGet, classPath(classID), nil, nil, &dto, rosterError); err != nil {
		return roster.Class{}, err
	}
	return dto.Class(), nil
}

func (c *Client) GetEnrolledStudents(ctx context.Context, classID string) ([]roster.Student, error) {
	var students []roster.Student
	err := c.do(ctx, http.MethodGet, classPath(classID, "students"), nil, nil, &students, rosterError)
	return students, err
}

func (c *Client) GetAssignedTeachers(ctx context.Context, classID string) ([]roster.Teacher, error) {
	var teachers []roster.Teacher
	err := c.do(ctx, http.MethodGet, classPath(classID, "teachers"), nil, nil, &teachers, rosterError)
	return teachers, err
}

func (c *Client) GetStudentByID(ctx context.Context, studentID string) (roster.Student, error) {
	var student roster.Student
	err := c.do(ctx, http.MethodGet, studentPath(studentID), nil, nil, &student, rosterError)
	return student, err
}

func (c *Client) QueryStudents(ctx context.Context) ([]roster.Student, error) {
	var students []roster.Student
	err := c.do(ctx, http.MethodGet, "/v1/students", nil, nil, &students, rosterError)
	return students, err
}

func (c *Client) QueryClasses(ctx context.Context) ([]roster.Class, error) {
	var dtos []roster.ClassDTO
	if err := c.do(ctx, http.MethodGet, "/v1/classes", nil, nil, &dtos, rosterError); err != nil {
		return nil, err
	}
	classes := make([]roster.Class, 0, len(dtos))
	for _, dto := range dtos {
		classes = append(classes, dto.Class())
	}
	return classes, nil
}

func (c *Client) CreatePayment(ctx context.Context, req payment.SingleClassRequest) (payment.Record, error) {
	return c.createPayment(ctx, "/v1/payments", req)
}

func (c *Client) CreateMultiClassPayment(ctx context.Context, req payment.MultiClassRequest) (payment.Record, error) {
	return c.createPayment(ctx, "/v1/payments/multi-class", req)
}

func (c *Client) createPayment(ctx context.Context, path string, req interface{}) (payment.Record, error) {
	var dto payment.RecordDTO
	if err := c.do(ctx, http.MethodPost, path, nil, req, &dto, paymentError); err != nil {
		return payment.Record{}, err
	}
	rec, err := dto.Record()
	if err != nil {
		return payment.Record{}, &payment.Error{Kind: payment.KindTransport, Err: err}
	}
	return rec, nil
}

func (c *Client) DeletePayment(ctx context.Context, paymentID string) error {
	return c.do(ctx, http.MethodDelete, "/v1/payments/"+url.PathEscape(paymentID), nil, nil, nil, paymentError)
}

func (c *Client) ListPayments(ctx context.Context, filter payment.Filter) ([]payment.Record, error) {
	query := url.Values{}
	setIf(query, "studentId", filter.StudentID)
	setIf(query, "classId", filter.ClassID)
	setIf(query, "month", filter.Month)
	setIf(query, "ordering", core.FormatOrdering(filter.Ordering))

	var dtos []payment.RecordDTO
	if err := c.do(ctx, http.MethodGet, "/v1/payments", query, nil, &dtos, paymentError); err != nil {
		return nil, err
	}
	records := make([]payment.Record, 0, len(dtos))
	for _, dto := range dtos {
		rec, err := dto.Record()
		if err != nil {
			return nil, &payment.Error{Kind: payment.KindTransport, Err: err}
		}
		records = append(records, rec)
	}
	return records, nil
}

func setIf(query url.Values, key, value string) {
	if value != "" {
		query.Set(key, value)
	}
}

func classPath(classID string, rest ...string) string {
	return resourcePath("classes", classID, rest...)
}

func studentPath(studentID string, rest ...string) string {
	return resourcePath("students", studentID, rest...)
}

func resourcePath(resource, id string, rest ...string) string {
	parts := []string{"/v1", resource, url.PathEscape(id)}
	for _, r := range rest {
		parts = append(parts, url.PathEscape(r))
	}
	return strings.Join(parts, "/")
}
