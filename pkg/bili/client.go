// Package bili wraps the bilibili member and passport APIs used by the
// upload/download pipeline: session validation, publish/edit/list/delete,
// cover upload and upload-line negotiation.
package bili

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

	"github.com/bilistream/bilistream/internal/domain"
)

// Default API hosts. Overridable through ClientConfig for tests.
const (
	defaultMemberBase   = "https://member.bilibili.com"
	defaultPassportBase = "https://passport.bilibili.com"
	defaultAPIBase      = "https://api.bilibili.com"

	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// ClientConfig configures a Session or Passport client.
type ClientConfig struct {
	UserAgent    string
	Timeout      time.Duration
	MemberBase   string
	PassportBase string
	APIBase      string
}

func (c ClientConfig) withDefaults() ClientConfig {
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MemberBase == "" {
		c.MemberBase = defaultMemberBase
	}
	if c.PassportBase == "" {
		c.PassportBase = defaultPassportBase
	}
	if c.APIBase == "" {
		c.APIBase = defaultAPIBase
	}
	return c
}

// Session is an authenticated handle bound to one account. Immutable after
// construction; all methods are read-only with respect to session state.
type Session struct {
	client      *http.Client
	cfg         ClientConfig
	cred        *Credential
	cookieLine  string
	csrf        string
	accessToken string
	mid         int64
}

// NewSession builds a Session from a credential without touching the
// network. Call Validate to check the credential against the platform.
func NewSession(cred *Credential, cfg ClientConfig) *Session {
	cfg = cfg.withDefaults()

	var pairs []string
	for _, ck := range cred.CookieInfo.Cookies {
		pairs = append(pairs, ck.Name+"="+ck.Value)
	}

	return &Session{
		client:      &http.Client{Timeout: cfg.Timeout},
		cfg:         cfg,
		cred:        cred,
		cookieLine:  strings.Join(pairs, "; "),
		csrf:        cred.CookieInfo.Get("bili_jct"),
		accessToken: cred.TokenInfo.AccessToken,
		mid:         cred.TokenInfo.Mid,
	}
}

// Credential returns the credential this session was built from.
func (s *Session) Credential() *Credential { return s.cred }

// Mid returns the account id, once Validate has filled it in.
func (s *Session) Mid() int64 { return s.mid }

// Validate checks the session cookies against the nav endpoint.
// Returns domain.ErrInvalidCredential when the platform rejects them.
func (s *Session) Validate(ctx context.Context) error {
	raw, err := s.getJSON(ctx, s.cfg.APIBase+"/x/web-interface/nav", nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return fmt.Errorf("%w: %s", domain.ErrInvalidCredential, apiErr.Message)
		}
		return err
	}

	var nav navData
	if err := json.Unmarshal(raw, &nav); err != nil {
		return fmt.Errorf("decode nav response: %w", err)
	}
	if !nav.IsLogin {
		return domain.ErrInvalidCredential
	}
	s.mid = nav.Mid
	return nil
}

// newRequest builds a request carrying the session cookies and user agent.
func (s *Session) newRequest(ctx context.Context, method, rawurl string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawurl, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Referer", "https://www.bilibili.com/")
	if s.cookieLine != "" {
		req.Header.Set("Cookie", s.cookieLine)
	}
	return req, nil
}

// getJSON performs a GET and unwraps the standard envelope.
func (s *Session) getJSON(ctx context.Context, rawurl string, query url.Values) (json.RawMessage, error) {
	if query != nil {
		rawurl += "?" + query.Encode()
	}
	req, err := s.newRequest(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		return nil, err
	}
	return s.doEnvelope(req)
}

// postForm performs a form POST and unwraps the standard envelope.
func (s *Session) postForm(ctx context.Context, rawurl string, form url.Values) (json.RawMessage, error) {
	req, err := s.newRequest(ctx, http.MethodPost, rawurl, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.doEnvelope(req)
}

// postJSON performs a JSON POST and unwraps the standard envelope.
func (s *Session) postJSON(ctx context.Context, rawurl string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	req, err := s.newRequest(ctx, http.MethodPost, rawurl, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return s.doEnvelope(req)
}

// doEnvelope sends the request with the session client.
func (s *Session) doEnvelope(req *http.Request) (json.RawMessage, error) {
	return doEnvelope(s.client, req)
}

// doEnvelope sends a request expecting the {code, message, data} envelope.
// A non-zero code becomes an *APIError.
func doEnvelope(client *http.Client, req *http.Request) (json.RawMessage, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var env Response
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if env.Code != 0 {
		return nil, &APIError{Code: env.Code, Message: env.Message}
	}
	return env.Data, nil
}
