// Package githubapp provides a client that authenticates as a GitHub App and
// exchanges signed assertions for installation access tokens
package githubapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	internaljwt "github.com/OpsMx/githubapp-client/internal/jwt"
	"github.com/OpsMx/githubapp-client/pkg/jwt"
)

const (
	// DefaultBaseURL is the public GitHub REST API
	DefaultBaseURL = "https://api.github.com"
	// DefaultTimeout bounds every outbound call
	DefaultTimeout = 5 * time.Second
	// DefaultConcurrency bounds ExchangeAll fan-out
	DefaultConcurrency = 4

	apiVersion       = "2022-11-28"
	defaultUserAgent = "githubapp-client/1.0"
	maxErrorBody     = 1 << 20
)

// Config holds everything the client needs; nothing is read from the environment
type Config struct {
	AppID         string        // GitHub App ID, used as the assertion issuer
	PrivateKeyPEM []byte        // PEM-encoded RSA private key of the App
	BaseURL       string        // REST API base URL, defaults to DefaultBaseURL
	Timeout       time.Duration // Per-call deadline, defaults to DefaultTimeout
	Concurrency   int           // ExchangeAll fan-out limit, defaults to DefaultConcurrency
	UserAgent     string

	HTTPClient *http.Client     // Optional; a client with Timeout is built otherwise
	Logger     *zap.Logger      // Optional; no-op when nil
	Clock      func() time.Time // Optional; time.Now when nil
}

// Client represents the GitHub App client
type Client struct {
	baseURL     string
	base        *url.URL
	signer      jwt.Signer
	httpClient  *http.Client
	timeout     time.Duration
	concurrency int
	userAgent   string
	logger      *zap.Logger
	now         func() time.Time
}

// InstallationToken is the outcome of one exchange in ExchangeAll
type InstallationToken struct {
	Installation Installation
	Token        *AccessToken
	Err          error
}

// NewClient creates a new GitHub App client from an explicit configuration
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.AppID) == "" {
		return nil, NewClientError(ErrCodeConfigurationError, "app ID is required")
	}
	if len(bytes.TrimSpace(cfg.PrivateKeyPEM)) == 0 {
		return nil, NewClientError(ErrCodeConfigurationError, "private key is required")
	}

	privateKey, err := jwt.LoadPrivateKey(cfg.PrivateKeyPEM, strings.TrimSpace(cfg.AppID))
	if err != nil {
		return nil, fmt.Errorf("failed to load private key: %w", err)
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, NewClientErrorWithDetails(ErrCodeConfigurationError, "invalid base URL", baseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	return &Client{
		baseURL:     baseURL,
		base:        base,
		signer:      privateKey,
		httpClient:  httpClient,
		timeout:     timeout,
		concurrency: concurrency,
		userAgent:   userAgent,
		logger:      logger,
		now:         now,
	}, nil
}

// AppID returns the App ID the client signs assertions for
func (c *Client) AppID() string {
	return c.signer.AppID()
}

// Assertion mints a fresh signed assertion at the current time
// Assertions are never cached; call this again once the previous one expires
func (c *Client) Assertion() (*Assertion, error) {
	assertion, err := c.signer.Sign(c.now())
	if err != nil {
		return nil, fmt.Errorf("failed to create assertion: %w", err)
	}
	return assertion, nil
}

// ParseAssertion wraps an already-encoded assertion so it can be passed to the client
func ParseAssertion(token string) (*Assertion, error) {
	claims, err := internaljwt.Inspect(token)
	if err != nil {
		return nil, WrapClientError(ErrCodeAuthenticationError, "malformed assertion", err)
	}
	return internaljwt.ToAssertion(token, claims), nil
}

// GetApp retrieves the authenticated GitHub App
func (c *Client) GetApp(ctx context.Context, assertion *Assertion) (*App, error) {
	if err := c.checkAssertion(assertion); err != nil {
		return nil, err
	}

	var app App
	if _, err := c.do(ctx, http.MethodGet, "/app", assertion.Token, nil, &app); err != nil {
		return nil, fmt.Errorf("failed to get app: %w", err)
	}
	return &app, nil
}

// ListInstallations lists the installations of the authenticated App
// An App without installations yields an empty slice
func (c *Client) ListInstallations(ctx context.Context, assertion *Assertion) ([]Installation, error) {
	if err := c.checkAssertion(assertion); err != nil {
		return nil, err
	}

	installations := []Installation{}
	header, err := c.do(ctx, http.MethodGet, "/app/installations?per_page=100", assertion.Token, nil, &installations)
	if err != nil {
		return nil, fmt.Errorf("failed to list installations: %w", err)
	}
	if installations == nil {
		installations = []Installation{}
	}
	if parseLinkNext(header.Get("Link")) != "" {
		c.logger.Warn("installation list truncated to the first page",
			zap.Int("returned", len(installations)))
	}
	return installations, nil
}

// GetInstallation retrieves a single installation of the authenticated App, including its permissions
func (c *Client) GetInstallation(ctx context.Context, assertion *Assertion, installationID int64) (*Installation, error) {
	if installationID <= 0 {
		return nil, NewClientErrorWithDetails(ErrCodeConfigurationError, "installation ID is required", strconv.FormatInt(installationID, 10))
	}
	if err := c.checkAssertion(assertion); err != nil {
		return nil, err
	}

	var installation Installation
	path := "/app/installations/" + strconv.FormatInt(installationID, 10)
	if _, err := c.do(ctx, http.MethodGet, path, assertion.Token, nil, &installation); err != nil {
		return nil, fmt.Errorf("failed to get installation %d: %w", installationID, err)
	}
	return &installation, nil
}

// GetOrgInstallation retrieves the App's installation on org
// An App that is not installed there yields a NotFound error
func (c *Client) GetOrgInstallation(ctx context.Context, assertion *Assertion, org string) (*Installation, error) {
	if org == "" {
		return nil, NewClientError(ErrCodeConfigurationError, "organization is required")
	}
	if err := c.checkAssertion(assertion); err != nil {
		return nil, err
	}

	var installation Installation
	if _, err := c.do(ctx, http.MethodGet, "/orgs/"+url.PathEscape(org)+"/installation", assertion.Token, nil, &installation); err != nil {
		return nil, fmt.Errorf("failed to get installation for %s: %w", org, err)
	}
	return &installation, nil
}

// ExchangeToken creates an installation access token for the given installation
// permissions is optional ("contents:read" form) - if not provided, the token gets all installation permissions
func (c *Client) ExchangeToken(ctx context.Context, assertion *Assertion, installationID int64, permissions ...string) (*AccessToken, error) {
	if installationID <= 0 {
		return nil, NewClientErrorWithDetails(ErrCodeConfigurationError, "installation ID is required", strconv.FormatInt(installationID, 10))
	}
	if err := c.checkAssertion(assertion); err != nil {
		return nil, err
	}

	var requestBody interface{}
	if permissionMap := parsePermissions(permissions); len(permissionMap) > 0 {
		requestBody = &TokenRequest{Permissions: permissionMap}
	}

	path := "/app/installations/" + strconv.FormatInt(installationID, 10) + "/access_tokens"

	var token AccessToken
	if _, err := c.do(ctx, http.MethodPost, path, assertion.Token, requestBody, &token); err != nil {
		return nil, fmt.Errorf("failed to create token for installation %d: %w", installationID, err)
	}
	if token.Token == "" {
		return nil, NewClientErrorWithDetails(ErrCodeDecodeError, "token exchange returned empty token", path)
	}

	return &token, nil
}

// ExchangeAll exchanges the assertion for a token per installation, concurrently
// Each result carries its own error; one failure never cancels the others
func (c *Client) ExchangeAll(ctx context.Context, assertion *Assertion, installations []Installation, permissions ...string) []InstallationToken {
	results := make([]InstallationToken, len(installations))

	// A bad assertion fails every installation without a request
	if err := c.checkAssertion(assertion); err != nil {
		for i, installation := range installations {
			results[i] = InstallationToken{Installation: installation, Err: err}
		}
		return results
	}

	var group errgroup.Group
	group.SetLimit(c.concurrency)

	for i, installation := range installations {
		group.Go(func() error {
			token, err := c.ExchangeToken(ctx, assertion, installation.ID, permissions...)
			results[i] = InstallationToken{Installation: installation, Token: token, Err: err}
			return nil
		})
	}
	_ = group.Wait()

	return results
}

// checkAssertion refuses nil or expired assertions before anything is sent
// The assertion is only read; callers may share one across goroutines
func (c *Client) checkAssertion(assertion *Assertion) error {
	if assertion == nil || assertion.Token == "" {
		return NewClientError(ErrCodeAuthenticationError, "assertion is required")
	}

	checked := *assertion
	if checked.ExpiresAt.IsZero() {
		claims, err := internaljwt.Inspect(assertion.Token)
		if err != nil {
			return WrapClientError(ErrCodeAuthenticationError, "malformed assertion", err)
		}
		checked = *internaljwt.ToAssertion(assertion.Token, claims)
	}

	if checked.Expired(c.now()) {
		return NewClientErrorWithDetails(ErrCodeAuthenticationError, "assertion expired",
			"expired at "+checked.ExpiresAt.UTC().Format(time.RFC3339))
	}
	return nil
}

// do performs a single authenticated request and decodes a JSON response into result
// path is either relative to the base URL or an absolute URL (pagination links)
func (c *Client) do(ctx context.Context, method, path, credential string, body interface{}, result interface{}) (http.Header, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	requestURL := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		requestURL = c.baseURL + path
	} else if err := c.sameOrigin(path); err != nil {
		return nil, err
	}

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, WrapClientError(ErrCodeValidationError, "failed to marshal request body", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, bodyReader)
	if err != nil {
		return nil, WrapClientError(ErrCodeValidationError, "failed to create HTTP request", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("github request failed",
			zap.String("method", method),
			zap.String("path", req.URL.Path),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return nil, WrapClientError(ErrCodeNetworkError, "HTTP request failed", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("github request",
		zap.String("method", method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode >= 400 {
		return resp.Header, parseErrorResponse(resp)
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			if ctx.Err() != nil {
				return resp.Header, WrapClientError(ErrCodeNetworkError, "failed to read response", err)
			}
			return resp.Header, WrapClientError(ErrCodeDecodeError, "failed to decode response", err)
		}
	}

	return resp.Header, nil
}

// sameOrigin refuses absolute URLs outside the configured API host so credentials never leave it
func (c *Client) sameOrigin(rawURL string) error {
	target, err := url.Parse(rawURL)
	if err != nil {
		return WrapClientError(ErrCodeHTTPError, "invalid link URL", err)
	}
	if !strings.EqualFold(target.Scheme, c.base.Scheme) || !strings.EqualFold(target.Host, c.base.Host) {
		return NewClientErrorWithDetails(ErrCodeHTTPError, "refusing to send credentials to a foreign host", target.Scheme+"://"+target.Host)
	}
	return nil
}

// parseErrorResponse maps a GitHub error response onto a ClientError
func parseErrorResponse(resp *http.Response) *ClientError {
	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var apiErr ErrorResponse
	message := strings.TrimSpace(string(bodyBytes))
	if json.Unmarshal(bodyBytes, &apiErr) == nil && apiErr.Message != "" {
		message = apiErr.Message
	}

	code := ErrCodeHTTPError
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		code = ErrCodeAuthenticationError
	case http.StatusNotFound:
		code = ErrCodeNotFound
	}

	var details []string
	for _, validationErr := range apiErr.Errors {
		detail := validationErr.Message
		if detail == "" {
			detail = validationErr.Code
		}
		details = append(details, fmt.Sprintf("%s.%s: %s", validationErr.Resource, validationErr.Field, detail))
	}

	return &ClientError{
		Code:       code,
		Message:    fmt.Sprintf("HTTP %d: %s", resp.StatusCode, message),
		Details:    strings.Join(details, "; "),
		StatusCode: resp.StatusCode,
	}
}

// parsePermissions converts "name:level" pairs into the map GitHub expects
func parsePermissions(permissions []string) map[string]string {
	if len(permissions) == 0 {
		return nil
	}
	permissionMap := make(map[string]string)
	for _, perm := range permissions {
		if parts := strings.Split(perm, ":"); len(parts) == 2 && parts[0] != "" && parts[1] != "" {
			permissionMap[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return permissionMap
}
