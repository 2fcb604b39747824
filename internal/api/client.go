// Package api is the REST client for the Book dot backend.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"bookdot/internal/models"

	"github.com/gofiber/fiber/v2"
)

// TokenSource supplies the bearer token for each request.
type TokenSource interface {
	Token() string
}

// Client talks to the backend over HTTP using fiber's client agent.
type Client struct {
	baseURL string
	timeout time.Duration
	tokens  TokenSource
}

// NewClient creates a client for baseURL (including the /api prefix).
func NewClient(baseURL string, timeout time.Duration, tokens TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		timeout: timeout,
		tokens:  tokens,
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, dest any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target := c.baseURL + path
	var a *fiber.Agent
	switch method {
	case fiber.MethodGet:
		a = fiber.Get(target)
	case fiber.MethodPost:
		a = fiber.Post(target)
	case fiber.MethodPut:
		a = fiber.Put(target)
	case fiber.MethodDelete:
		a = fiber.Delete(target)
	default:
		return fmt.Errorf("unsupported method %s", method)
	}

	if len(query) > 0 {
		a.QueryString(query.Encode())
	}
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			a.Set(fiber.HeaderAuthorization, "Bearer "+tok)
		}
	}
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); timeout <= 0 || left < timeout {
			timeout = left
		}
	}
	if timeout > 0 {
		a.Timeout(timeout)
	}
	if body != nil {
		a.JSON(body)
	}

	status, respBody, errs := a.Bytes()
	if len(errs) > 0 {
		return models.NewInternalError(fmt.Errorf("%s %s: %w", method, path, errors.Join(errs...)))
	}
	if status < 200 || status >= 300 {
		return decodeError(status, respBody)
	}
	if dest == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, dest); err != nil {
		return models.NewInternalError(fmt.Errorf("decode %s %s: %w", method, path, err))
	}
	return nil
}

// decodeError turns an error response back into an application error.
func decodeError(status int, body []byte) error {
	var resp models.ErrorResponse
	_ = json.Unmarshal(body, &resp)

	code := resp.Code
	if code == "" {
		switch status {
		case fiber.StatusUnauthorized:
			code = models.CodeNotAuthenticated
		case fiber.StatusNotFound:
			code = models.CodeNotFound
		case fiber.StatusForbidden:
			code = models.CodeNotOwner
		case fiber.StatusBadRequest:
			code = models.CodeValidation
		default:
			code = models.CodeInternal
		}
	}
	msg := resp.Error
	if msg == "" {
		msg = fmt.Sprintf("backend returned status %d", status)
	}
	appErr := &models.AppError{Code: code, Message: msg}
	if resp.Details != "" {
		appErr.Err = errors.New(resp.Details)
	}
	return appErr
}

func escape(segment string) string {
	return url.PathEscape(segment)
}
