// Package userdirectory is an HTTP client for the user directory API.
package userdirectory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"

	domainauth "github.com/target/todo-platform/internal/domain/auth"
	"github.com/target/todo-platform/internal/domain/model"
	apperrors "github.com/target/todo-platform/internal/errors"
	"github.com/target/todo-platform/internal/ports"
)

var _ ports.UserDirectory = (*Client)(nil)

const (
	defaultTimeout = 3 * time.Second
	// maxBodyBytes caps how much of a directory response is read.
	maxBodyBytes = 1 << 20
)

// Config configures the directory client.
type Config struct {
	BaseURL    string        // e.g. http://localhost:8082/api
	Timeout    time.Duration // per request; defaults to 3s
	RolesExpr  string        // JMESPath applied to the roles body; "@" or empty means a plain string array
	HTTPClient *http.Client  // Optional: overrides the default client
}

// Client calls the user directory over plain JSON/HTTP. It attaches no auth header.
//
// Transport failures, timeouts, unexpected statuses and malformed bodies wrap
// domainauth.ErrRemoteUnavailable. 404, 409 and 400 map to not_found, conflict
// and validation AppErrors.
type Client struct {
	base      string
	http      *http.Client
	rolesExpr string
}

// New builds a Client. It fails when RolesExpr does not compile.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("user directory base URL is required")
	}

	expr := strings.TrimSpace(cfg.RolesExpr)
	if expr == "@" {
		expr = ""
	}
	if expr != "" {
		if _, err := jmespath.Compile(expr); err != nil {
			return nil, fmt.Errorf("compile roles expression %q: %w", expr, err)
		}
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{base: base, http: hc, rolesExpr: expr}, nil
}

// UserRoles returns the role names held by userID.
func (c *Client) UserRoles(ctx context.Context, userID int64) ([]string, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, userPath(userID, "roles"), nil, &raw); err != nil {
		return nil, err
	}
	roles, err := c.extractRoles(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: roles for user %d: %w", domainauth.ErrRemoteUnavailable, userID, err)
	}
	return roles, nil
}

func (c *Client) extractRoles(raw json.RawMessage) ([]string, error) {
	if c.rolesExpr == "" {
		var roles []string
		if err := json.Unmarshal(raw, &roles); err != nil {
			return nil, fmt.Errorf("malformed roles body: %w", err)
		}
		return roles, nil
	}

	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("malformed roles body: %w", err)
	}
	res, err := jmespath.Search(c.rolesExpr, data)
	if err != nil {
		return nil, fmt.Errorf("evaluate roles expression: %w", err)
	}
	list, ok := res.([]any)
	if !ok {
		return nil, fmt.Errorf("roles expression yielded %T, want a list", res)
	}
	roles := make([]string, 0, len(list))
	for _, v := range list {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("roles expression yielded a %T element, want string", v)
		}
		roles = append(roles, s)
	}
	return roles, nil
}

// GrantAdmin adds ROLE_ADMIN to userID.
func (c *Client) GrantAdmin(ctx context.Context, userID int64) error {
	return c.do(ctx, http.MethodPost, userPath(userID, "roles/admin"), nil, nil)
}

// RevokeAdmin removes ROLE_ADMIN from userID.
func (c *Client) RevokeAdmin(ctx context.Context, userID int64) error {
	return c.do(ctx, http.MethodDelete, userPath(userID, "roles/admin"), nil, nil)
}

// ListUsers returns every user.
func (c *Client) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := c.do(ctx, http.MethodGet, "/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// GetUser returns one user.
func (c *Client) GetUser(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	if err := c.do(ctx, http.MethodGet, userPath(id, ""), nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser creates a user; the directory assigns ROLE_USER.
func (c *Client) CreateUser(ctx context.Context, req model.CreateUserRequest) (*model.User, error) {
	var u model.User
	if err := c.do(ctx, http.MethodPost, "/users", req, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateUser applies a partial update.
func (c *Client) UpdateUser(ctx context.Context, id int64, req model.UpdateUserRequest) (*model.User, error) {
	var u model.User
	if err := c.do(ctx, http.MethodPut, userPath(id, ""), req, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// DeleteUser removes a user.
func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, userPath(id, ""), nil, nil)
}

// FixRoles assigns ROLE_USER to every user without a role.
func (c *Client) FixRoles(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/users/fix-roles", nil, nil)
}

func userPath(id int64, suffix string) string {
	p := "/users/" + strconv.FormatInt(id, 10)
	if suffix != "" {
		p += "/" + suffix
	}
	return p
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", domainauth.ErrRemoteUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: read %s %s: %w", domainauth.ErrRemoteUnavailable, method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(method, path, resp.StatusCode, payload)
	}

	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		if out != nil {
			return fmt.Errorf("%w: %s %s: empty body", domainauth.ErrRemoteUnavailable, method, path)
		}
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %w", domainauth.ErrRemoteUnavailable, method, path, err)
	}
	return nil
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func statusError(method, path string, status int, payload []byte) error {
	var eb errorBody
	_ = json.Unmarshal(payload, &eb)
	msg := eb.Message
	if msg == "" {
		msg = http.StatusText(status)
	}

	switch status {
	case http.StatusNotFound:
		return apperrors.Wrap(domainauth.ErrNotFound, apperrors.ErrCodeNotFound, msg)
	case http.StatusConflict:
		return apperrors.Conflict(msg)
	case http.StatusBadRequest:
		return apperrors.Validation(msg)
	default:
		return fmt.Errorf("%w: %s %s: status %d", domainauth.ErrRemoteUnavailable, method, path, status)
	}
}
