package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client represents an HTTP client for the Orbo API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a new API client. token may be empty for unauthenticated calls.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// APIError is a non-2xx response from the server
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request failed (status %d): %s", e.StatusCode, e.Message)
}

// StatusCode returns the HTTP status of an APIError, or 0 for other errors
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// User is the authenticated account
type User struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Superadmin bool   `json:"superadmin"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

// Organization is one of the caller's organizations
type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// AccessContext is the server's authorization decision for one organization
type AccessContext struct {
	User struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
	OrgID      string `json:"org_id"`
	Role       string `json:"role"`
	Superadmin bool   `json:"superadmin"`
}

// Login authenticates the user and returns a JWT token
func (c *Client) Login(email, password string) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.do(http.MethodPost, "/api/auth/login", LoginRequest{Email: email, Password: password}, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Me returns the authenticated user
func (c *Client) Me() (*User, error) {
	var user User
	if err := c.do(http.MethodGet, "/api/auth/me", nil, http.StatusOK, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListOrganizations returns the caller's organizations
func (c *Client) ListOrganizations() ([]Organization, error) {
	var orgs []Organization
	if err := c.do(http.MethodGet, "/api/orgs", nil, http.StatusOK, &orgs); err != nil {
		return nil, err
	}
	return orgs, nil
}

// CheckAccess asks the server whether the caller may act in orgID with one of roles
func (c *Client) CheckAccess(orgID string, roles ...string) (*AccessContext, error) {
	path := "/api/orgs/" + url.PathEscape(orgID) + "/access"
	if len(roles) > 0 {
		q := url.Values{}
		for _, r := range roles {
			q.Add("role", r)
		}
		path += "?" + q.Encode()
	}

	var accessCtx AccessContext
	if err := c.do(http.MethodGet, path, nil, http.StatusOK, &accessCtx); err != nil {
		return nil, err
	}
	return &accessCtx, nil
}

func (c *Client) do(method, path string, body any, wantStatus int, out any) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		respBody, _ := io.ReadAll(resp.Body)
		var errBody struct {
			Error string `json:"error"`
		}
		message := strings.TrimSpace(string(respBody))
		if json.Unmarshal(respBody, &errBody) == nil && errBody.Error != "" {
			message = errBody.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
