package bili

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bilistream/bilistream/internal/domain"
)

// Passport performs login flows against the passport API. It carries no
// account state; every successful flow yields a fresh Credential.
type Passport struct {
	client *http.Client
	cfg    ClientConfig
}

// NewPassport creates a passport client.
func NewPassport(cfg ClientConfig) *Passport {
	cfg = cfg.withDefaults()
	return &Passport{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
	}
}

// QR poll result codes.
const (
	qrCodeExpired      = 86038
	qrCodeNotConfirmed = 86090
	qrCodeNotScanned   = 86039
)

// NewQRCode requests a login challenge. The URL is rendered as a QR image
// by the caller; the auth code is round-tripped to PollQRCode.
func (p *Passport) NewQRCode(ctx context.Context) (*QRCode, error) {
	form := signForm(url.Values{
		"local_id": {"0"},
		"ts":       {strconv.FormatInt(time.Now().Unix(), 10)},
	})
	raw, err := p.postForm(ctx, "/x/passport-tv-login/qrcode/auth_code", form)
	if err != nil {
		return nil, fmt.Errorf("request qr code: %w", err)
	}

	var qr QRCode
	if err := json.Unmarshal(raw, &qr); err != nil {
		return nil, fmt.Errorf("decode qr response: %w", err)
	}
	return &qr, nil
}

// PollQRCode checks whether the challenge has been scanned and confirmed.
// Returns domain.ErrQRNotScanned while pending and domain.ErrQRExpired once
// the challenge is dead; both are distinguishable from transport failures.
func (p *Passport) PollQRCode(ctx context.Context, authCode string) (*Credential, error) {
	form := signForm(url.Values{
		"auth_code": {authCode},
		"local_id":  {"0"},
		"ts":        {strconv.FormatInt(time.Now().Unix(), 10)},
	})
	raw, err := p.postForm(ctx, "/x/passport-tv-login/qrcode/poll", form)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			switch apiErr.Code {
			case qrCodeExpired:
				return nil, domain.ErrQRExpired
			case qrCodeNotScanned, qrCodeNotConfirmed:
				return nil, domain.ErrQRNotScanned
			}
		}
		return nil, fmt.Errorf("poll qr code: %w", err)
	}

	var cred Credential
	if err := json.Unmarshal(raw, &cred); err != nil {
		return nil, fmt.Errorf("decode credential: %w", err)
	}
	return &cred, nil
}

// SMSChallenge correlates the send and submit steps of an SMS login.
type SMSChallenge struct {
	CaptchaKey  string `json:"captcha_key"`
	CountryCode int    `json:"cid"`
	Phone       string `json:"tel"`
}

// SendSMS requests a verification code for the given phone number and
// returns the correlation token submitted together with the code.
func (p *Passport) SendSMS(ctx context.Context, countryCode int, phone string) (*SMSChallenge, error) {
	form := signForm(url.Values{
		"cid": {strconv.Itoa(countryCode)},
		"tel": {phone},
		"ts":  {strconv.FormatInt(time.Now().Unix(), 10)},
	})
	raw, err := p.postForm(ctx, "/x/passport-login/sms/send", form)
	if err != nil {
		return nil, fmt.Errorf("send sms: %w", err)
	}

	ch := SMSChallenge{CountryCode: countryCode, Phone: phone}
	if err := json.Unmarshal(raw, &ch); err != nil {
		return nil, fmt.Errorf("decode sms response: %w", err)
	}
	return &ch, nil
}

// LoginBySMS submits the received code. A rejected code surfaces as
// domain.ErrInvalidSMSCode.
func (p *Passport) LoginBySMS(ctx context.Context, code string, ch *SMSChallenge) (*Credential, error) {
	form := signForm(url.Values{
		"captcha_key": {ch.CaptchaKey},
		"cid":         {strconv.Itoa(ch.CountryCode)},
		"tel":         {ch.Phone},
		"code":        {code},
		"ts":          {strconv.FormatInt(time.Now().Unix(), 10)},
	})
	raw, err := p.postForm(ctx, "/x/passport-login/login/sms", form)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("%w: %s", domain.ErrInvalidSMSCode, apiErr.Message)
		}
		return nil, fmt.Errorf("sms login: %w", err)
	}

	var cred Credential
	if err := json.Unmarshal(raw, &cred); err != nil {
		return nil, fmt.Errorf("decode credential: %w", err)
	}
	return &cred, nil
}

func (p *Passport) postForm(ctx context.Context, path string, form url.Values) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.PassportBase+path,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", p.cfg.UserAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return doEnvelope(p.client, req)
}

// FromWebCookies wraps an externally obtained SESSDATA/bili_jct pair into a
// credential without any network round trip.
func FromWebCookies(sessData, biliJCT string) *Credential {
	return &Credential{CookieInfo: CookieInfo{Cookies: []Cookie{
		{Name: "SESSDATA", Value: sessData},
		{Name: "bili_jct", Value: biliJCT},
	}}}
}

// FromWebQRCode wraps a QR-derived SESSDATA/DedeUserID pair the same way.
func FromWebQRCode(sessData, dedeUserID string) *Credential {
	return &Credential{CookieInfo: CookieInfo{Cookies: []Cookie{
		{Name: "SESSDATA", Value: sessData},
		{Name: "DedeUserID", Value: dedeUserID},
	}}}
}
