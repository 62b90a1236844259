// Package lmsproxy talks to the backend that proxies the Canvas LMS API.
package lmsproxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/duetable-api/internal/models"
	appErrors "github.com/noah-isme/duetable-api/pkg/errors"
)

const (
	pathAssignments      = "/api/assignments/db"
	pathAssignmentDetail = "/api/assignments/detail"
	pathCourses          = "/api/courses"
	pathUsers            = "/api/users"
	pathUserByEmail      = "/api/users/email/"
	defaultFinishedPath  = "/api/assignments/finished"
)

// Observer receives per-request timing, e.g. for Prometheus.
type Observer interface {
	ObserveUpstream(endpoint, outcome string, duration time.Duration)
}

// Config configures the client.
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	FinishedPath string
	HTTPClient   *http.Client
	Logger       *zap.Logger
	Observer     Observer
}

// Client is a thin JSON client for the LMS proxy.
type Client struct {
	baseURL      string
	finishedPath string
	http         *http.Client
	logger       *zap.Logger
	observer     Observer
}

// SummaryRequest is the body of the assignment summary fetch.
type SummaryRequest struct {
	APIKey    string   `json:"apiKey"`
	BaseURL   string   `json:"baseUrl"`
	CourseIDs []string `json:"courseIds"`
	Email     string   `json:"email"`
	Term      string   `json:"term"`
}

// DetailRequest identifies one assignment detail lookup.
type DetailRequest struct {
	APIKey       string
	BaseURL      string
	CourseID     string
	AssignmentID string
}

// FinishedUpdate is the finished-status write payload.
type FinishedUpdate struct {
	AssignmentID int64  `json:"assignmentId"`
	Term         string `json:"term"`
	Email        string `json:"email"`
	IfFinished   bool   `json:"ifFinished"`
}

// New builds a client.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	finishedPath := cfg.FinishedPath
	if finishedPath == "" {
		finishedPath = defaultFinishedPath
	}
	if !strings.HasPrefix(finishedPath, "/") {
		finishedPath = "/" + finishedPath
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		finishedPath: finishedPath,
		http:         httpClient,
		logger:       logger,
		observer:     cfg.Observer,
	}
}

// FetchAllAssignments returns assignment summaries for the given courses and term.
func (c *Client) FetchAllAssignments(ctx context.Context, req SummaryRequest) ([]models.AssignmentSummary, error) {
	if req.CourseIDs == nil {
		req.CourseIDs = []string{}
	}
	var raw json.RawMessage
	if err := c.do(ctx, "assignments", http.MethodPost, pathAssignments, nil, req, &raw); err != nil {
		return nil, err
	}
	return decodeSummaries(raw)
}

// FetchAssignmentDetail returns the current user's submission for one assignment.
func (c *Client) FetchAssignmentDetail(ctx context.Context, req DetailRequest) (*models.AssignmentDetail, error) {
	query := url.Values{}
	query.Set("apiKey", req.APIKey)
	query.Set("baseUrl", req.BaseURL)
	query.Set("courseId", req.CourseID)
	query.Set("assignmentId", req.AssignmentID)

	var detail models.AssignmentDetail
	if err := c.do(ctx, "assignment_detail", http.MethodGet, pathAssignmentDetail, query, nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FetchCourses lists every course visible to the credential.
func (c *Client) FetchCourses(ctx context.Context, apiKey, baseURL string) ([]models.Course, error) {
	query := url.Values{}
	query.Set("apiKey", apiKey)
	query.Set("baseUrl", baseURL)

	var courses []models.Course
	if err := c.do(ctx, "courses", http.MethodGet, pathCourses, query, nil, &courses); err != nil {
		return nil, err
	}
	if courses == nil {
		courses = []models.Course{}
	}
	return courses, nil
}

// UpdateFinished writes the finished flag for one assignment.
func (c *Client) UpdateFinished(ctx context.Context, update FinishedUpdate) error {
	return c.do(ctx, "finished", http.MethodPost, c.finishedPath, nil, update, nil)
}

// GetUserByEmail looks up a registered user. A 404 maps to appErrors.ErrNotFound.
func (c *Client) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, "user_by_email", http.MethodGet, pathUserByEmail+url.PathEscape(email), nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser registers a new user.
func (c *Client) CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	if req.ScheduleIDs == nil {
		req.ScheduleIDs = []string{}
	}
	var user models.User
	if err := c.do(ctx, "create_user", http.MethodPost, pathUsers, nil, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) do(ctx context.Context, endpoint, method, path string, query url.Values, body, dest interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return appErrors.FetchError("encode request body", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return appErrors.FetchError("build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(endpoint, "network_error", start)
		return appErrors.FetchError(err.Error(), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.observe(endpoint, "read_error", start)
		return appErrors.FetchError("read response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.observe(endpoint, fmt.Sprintf("http_%d", resp.StatusCode), start)
		message := errorMessage(raw, resp.StatusCode)
		if resp.StatusCode == http.StatusNotFound {
			return appErrors.Wrap(errors.New(message), appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, message)
		}
		return appErrors.FetchError(message, fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode))
	}
	c.observe(endpoint, "ok", start)

	if dest == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.logger.Warn("decode upstream response failed", zap.String("endpoint", endpoint), zap.Error(err))
		return appErrors.FetchError("decode response body", err)
	}
	return nil
}

func (c *Client) observe(endpoint, outcome string, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveUpstream(endpoint, outcome, time.Since(start))
	}
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func errorMessage(raw []byte, status int) string {
	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return fmt.Sprintf("HTTP error! status: %d", status)
}

type summaryEnvelope struct {
	Assignments []models.AssignmentSummary `json:"assignments"`
}

// decodeSummaries accepts both {"assignments": [...]} and a bare array.
func decodeSummaries(raw json.RawMessage) ([]models.AssignmentSummary, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []models.AssignmentSummary{}, nil
	}
	if trimmed[0] == '[' {
		var list []models.AssignmentSummary
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, appErrors.FetchError("decode assignments", err)
		}
		return list, nil
	}
	var envelope summaryEnvelope
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, appErrors.FetchError("decode assignments", err)
	}
	if envelope.Assignments == nil {
		return []models.AssignmentSummary{}, nil
	}
	return envelope.Assignments, nil
}
