package github

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenSlack is subtracted from an installation token's expiry so a token is
// refreshed before GitHub rejects it mid-request.
const tokenSlack = time.Minute

// parsePrivateKey parses an RSA private key in PKCS1 or PKCS8 PEM form.
func parsePrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("failed to parse PEM block containing the private key")
	}

	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		// Try PKCS8 format if PKCS1 fails
		parsedKey, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		var ok bool
		key, ok = parsedKey.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("private key is not RSA")
		}
	}
	return key, nil
}

// appJWT generates a short-lived JWT for GitHub App authentication.
func appJWT(appID string, key *rsa.PrivateKey) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iat": now.Unix(),
		"exp": now.Add(10 * time.Minute).Unix(), // GitHub App JWTs expire after 10 minutes max
		"iss": appID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(key)
}

type installationToken struct {
	token     string
	expiresAt time.Time
}

// installationToken returns a cached installation access token, exchanging
// the App JWT for a fresh one when the cache is empty or near expiry.
func (c *Client) installationToken(ctx context.Context, installationID int64) (string, error) {
	c.mu.Lock()
	if cached, ok := c.instTokens[installationID]; ok && time.Now().Before(cached.expiresAt.Add(-tokenSlack)) {
		c.mu.Unlock()
		return cached.token, nil
	}
	c.mu.Unlock()

	signed, err := appJWT(c.appID, c.privateKey)
	if err != nil {
		return "", fmt.Errorf("generate app JWT: %w", err)
	}

	url := fmt.Sprintf("%s/app/installations/%d/access_tokens", c.baseURL, installationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+signed)
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request installation token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("installation token request failed (status %d): %s", resp.StatusCode, string(body))
	}

	var tokenResp struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("decode installation token: %w", err)
	}

	c.mu.Lock()
	c.instTokens[installationID] = installationToken{token: tokenResp.Token, expiresAt: tokenResp.ExpiresAt}
	c.mu.Unlock()

	return tokenResp.Token, nil
}

// authToken returns the bearer token for a request scoped to an installation.
func (c *Client) authToken(ctx context.Context, installationID int64) (string, error) {
	if c.privateKey != nil {
		return c.installationToken(ctx, installationID)
	}
	if c.token == "" {
		return "", errors.New("github client has no credentials")
	}
	return c.token, nil
}
