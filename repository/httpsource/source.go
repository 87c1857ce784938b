// Package httpsource talks to another instance of the task API as its remote store.
package httpsource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/fastygo/todo/api/transport"
	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/repository"
)

var _ repository.TaskDataSource = (*Source)(nil)

type Source struct {
	baseURL string
	token   string
	timeout time.Duration
	client  *fasthttp.Client
}

type Option func(*Source)

// WithToken sends token as a bearer Authorization header.
func WithToken(token string) Option {
	return func(s *Source) { s.token = token }
}

// WithTimeout bounds each request when ctx has no earlier deadline.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Source) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithClient replaces the default fasthttp client.
func WithClient(client *fasthttp.Client) Option {
	return func(s *Source) {
		if client != nil {
			s.client = client
		}
	}
}

func New(baseURL string, opts ...Option) *Source {
	s := &Source{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: 5 * time.Second,
		client: &fasthttp.Client{
			Name:                "todo-remote",
			MaxIdleConnDuration: time.Minute,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Source) GetTasks(ctx context.Context) ([]domain.Task, error) {
	var tasks []domain.Task
	if err := s.read(ctx, "/api/v1/tasks?filter=all", &tasks); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return tasks, nil
}

func (s *Source) GetTask(ctx context.Context, id string) (domain.Task, error) {
	var task domain.Task
	if err := s.read(ctx, taskPath(id), &task); err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

func (s *Source) SaveTask(ctx context.Context, task domain.Task) error {
	if task.ID == "" {
		return domain.ErrMissingTaskID
	}
	body, err := json.Marshal(transport.SaveTaskRequest{
		Title:       task.Title,
		Description: task.Description,
		Completed:   task.Completed,
	})
	if err != nil {
		return err
	}
	_, err = s.do(ctx, http.MethodPut, taskPath(task.ID), body)
	return err
}

func (s *Source) CompleteTask(ctx context.Context, task domain.Task) error {
	return s.SaveTask(ctx, task.WithCompleted(true))
}

func (s *Source) CompleteTaskByID(ctx context.Context, id string) error {
	return s.write(ctx, http.MethodPost, taskPath(id)+"/complete")
}

func (s *Source) ActivateTask(ctx context.Context, task domain.Task) error {
	return s.SaveTask(ctx, task.WithCompleted(false))
}

func (s *Source) ActivateTaskByID(ctx context.Context, id string) error {
	return s.write(ctx, http.MethodPost, taskPath(id)+"/activate")
}

func (s *Source) ClearCompletedTasks(ctx context.Context) error {
	_, err := s.do(ctx, http.MethodDelete, "/api/v1/tasks?status=completed", nil)
	return err
}

func (s *Source) RefreshTasks(context.Context) {}

func (s *Source) DeleteTask(ctx context.Context, id string) error {
	return s.write(ctx, http.MethodDelete, taskPath(id))
}

func (s *Source) DeleteAllTasks(ctx context.Context) error {
	_, err := s.do(ctx, http.MethodDelete, "/api/v1/tasks", nil)
	return err
}

// Ping reports whether the remote API answers without a server error.
func (s *Source) Ping(ctx context.Context) error {
	_, err := s.do(ctx, http.MethodGet, "/api/v1/stats", nil)
	return err
}

// read decodes the envelope data of a GET into out. Every failure is DATA_NOT_AVAILABLE.
func (s *Source) read(ctx context.Context, path string, out interface{}) error {
	env, err := s.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return domain.NotAvailable(err)
	}
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return domain.NotAvailable(err)
	}
	return nil
}

// write runs a by-id operation; a task unknown to the remote is not an error.
func (s *Source) write(ctx context.Context, method, path string) error {
	_, err := s.do(ctx, method, path, nil)
	if domain.IsDomainError(err, domain.ErrCodeNotAvailable) {
		return nil
	}
	return err
}

func (s *Source) do(ctx context.Context, method, path string, body []byte) (transport.RawEnvelope, error) {
	var env transport.RawEnvelope

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(s.baseURL + path)
	req.Header.SetMethod(method)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	if s.token != "" {
		req.Header.Set(fasthttp.HeaderAuthorization, "Bearer "+s.token)
	}
	if body != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}

	if err := s.client.DoDeadline(req, resp, s.deadline(ctx)); err != nil {
		return env, fmt.Errorf("%s %s: %w", method, path, err)
	}

	status := resp.StatusCode()
	if raw := resp.Body(); len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && status < 300 {
			return env, fmt.Errorf("%s %s: decode response: %w", method, path, err)
		}
	}

	switch {
	case status < 300:
		return env, nil
	case status == http.StatusNotFound:
		return env, domain.WrapError(domain.ErrCodeNotAvailable, method+" "+path, domain.ErrDataNotAvailable)
	case status == http.StatusUnauthorized:
		return env, domain.WrapError(domain.ErrCodeUnauthorized, method+" "+path, domain.ErrUnauthorized)
	default:
		return env, fmt.Errorf("%s %s: status %d: %s", method, path, status, env.Error)
	}
}

func (s *Source) deadline(ctx context.Context) time.Time {
	deadline := time.Now().Add(s.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		return d
	}
	return deadline
}

func taskPath(id string) string {
	return "/api/v1/tasks/" + url.PathEscape(id)
}
