package backend

import (
	"context"
	"encoding/json"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// AdminRole is attached to every login and registration request.
const AdminRole = "admin"

// AuthRequest is the body of POST /auth/login and POST /auth/register.
type AuthRequest struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
	Role     string `json:"role"`
}

type authResponse struct {
	User *struct {
		Token string `json:"token"`
	} `json:"user"`
}

func (r *authResponse) Validate() error {
	if err := validation.ValidateStruct(r, validation.Field(&r.User, validation.NotNil)); err != nil {
		return err
	}
	return validation.ValidateStruct(r.User, validation.Field(&r.User.Token, validation.Required))
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, req AuthRequest) (string, error) {
	return c.authenticate(ctx, "/auth/login", req)
}

// Register creates an administrator and returns its bearer token.
func (c *Client) Register(ctx context.Context, req AuthRequest) (string, error) {
	return c.authenticate(ctx, "/auth/register", req)
}

// authenticate posts without a credential. Every non-2xx status, 403
// included, is returned as *APIError so the caller can map it.
func (c *Client) authenticate(ctx context.Context, path string, req AuthRequest) (string, error) {
	req.Role = AdminRole
	headers := http.Header{}
	headers.Set("Content-Type", "application/json")

	status, body, err := c.do(ctx, http.MethodPost, path, headers, []RequestOption{WithJSON(req)})
	if err != nil {
		return "", err
	}
	raw, err := c.interpret(endpointLabel(path), status, body)
	if err != nil {
		return "", err
	}

	var resp authResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", &DecodeError{Endpoint: endpointLabel(path), Err: err}
	}
	if err := resp.Validate(); err != nil {
		return "", &DecodeError{Endpoint: endpointLabel(path), Err: err}
	}
	return resp.User.Token, nil
}
