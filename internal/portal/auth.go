package portal

import (
	"context"
	"fmt"
)

// Login authenticates with email and password and stores the returned token.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	req := LoginRequest{Email: email, Password: password}
	if err := c.validatePayload(req); err != nil {
		return nil, err
	}

	result, err := doPostJSON[loginResponse](ctx, c, "auth/login", req)
	if err != nil {
		return nil, err
	}
	if err := c.validatePayload(result); err != nil {
		return nil, err
	}

	if err := c.tokens.SetToken(result.Token); err != nil {
		return nil, fmt.Errorf("storing token: %w", err)
	}

	if result.User != nil {
		return result.User, nil
	}
	return &User{Name: result.Name, Role: result.Role, Email: email}, nil
}

// CurrentUser returns the account the stored token belongs to.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	result, err := doGetJSON[currentUserResponse](ctx, c, "auth/me")
	if err != nil {
		return nil, err
	}
	if err := c.validatePayload(result); err != nil {
		return nil, err
	}
	return result.User, nil
}

// Logout drops the stored token. The portal keeps no server-side session.
func (c *Client) Logout() error {
	return c.tokens.Clear()
}
