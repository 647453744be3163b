package magento

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// TokenSource yields a bearer token for source API calls. The two
// implementations cover the two credential shapes: customer username and
// password for on-prem stores, OAuth client credentials (Adobe IMS) for
// cloud.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// PasswordTokenSource exchanges customer credentials for a token via
// POST /rest/V1/integration/customer/token. The token is fetched once and
// reused for the rest of the run.
type PasswordTokenSource struct {
	storeURL string
	username string
	password string
	http     *retryablehttp.Client

	mu    sync.Mutex
	token string
}

// NewPasswordTokenSource builds a password-grant token source for an
// on-prem store.
func NewPasswordTokenSource(storeURL, username, password string) (*PasswordTokenSource, error) {
	if storeURL == "" {
		return nil, fmt.Errorf("store URL is required")
	}
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if password == "" {
		return nil, fmt.Errorf("password is required")
	}
	return &PasswordTokenSource{
		storeURL: strings.TrimRight(storeURL, "/"),
		username: username,
		password: password,
		http:     newRetryingClient(),
	}, nil
}

// Token returns the cached customer token, authenticating on first use.
func (s *PasswordTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" {
		return s.token, nil
	}

	payload, err := json.Marshal(map[string]string{
		"username": s.username,
		"password": s.password,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode token request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, s.storeURL+"/rest/V1/integration/customer/token", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("authentication failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	// The endpoint returns the token as a bare JSON string.
	var token string
	if err := json.Unmarshal(body, &token); err != nil {
		return "", fmt.Errorf("unexpected token response: %w", err)
	}
	if token == "" {
		return "", fmt.Errorf("authentication returned an empty token")
	}

	s.token = token
	return token, nil
}

// defaultIMSTokenURL is the Adobe IMS v3 token endpoint used by Commerce
// Cloud tenants.
const defaultIMSTokenURL = "https://ims-na1.adobelogin.com/ims/token/v3"

// expirySkew refreshes tokens slightly before the server-reported expiry.
const expirySkew = 60 * time.Second

// ClientCredentialsTokenSource acquires OAuth access tokens via the
// client_credentials grant and caches them until shortly before expiry.
type ClientCredentialsTokenSource struct {
	tokenURL     string
	clientID     string
	clientSecret string
	scopes       string
	http         *retryablehttp.Client
	now          func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewClientCredentialsTokenSource builds an OAuth token source. An empty
// tokenURL selects the default IMS endpoint; an empty scopes string
// selects "openid,AdobeID".
func NewClientCredentialsTokenSource(tokenURL, clientID, clientSecret, scopes string) (*ClientCredentialsTokenSource, error) {
	if clientID == "" {
		return nil, fmt.Errorf("client ID is required")
	}
	if clientSecret == "" {
		return nil, fmt.Errorf("client secret is required")
	}
	if tokenURL == "" {
		tokenURL = defaultIMSTokenURL
	}
	if scopes == "" {
		scopes = "openid,AdobeID"
	}
	return &ClientCredentialsTokenSource{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		scopes:       scopes,
		http:         newRetryingClient(),
		now:          time.Now,
	}, nil
}

// Token returns a valid access token, refreshing when the cached one is
// within the expiry skew.
func (s *ClientCredentialsTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" && s.now().Before(s.expiresAt.Add(-expirySkew)) {
		return s.token, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {s.clientID},
		"client_secret": {s.clientSecret},
		"scope":         {s.scopes},
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("authentication failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("unexpected token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("authentication returned an empty token")
	}
	if payload.ExpiresIn <= 0 {
		payload.ExpiresIn = 3600
	}

	s.token = payload.AccessToken
	s.expiresAt = s.now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	return s.token, nil
}
