package bili

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bilistream/bilistream/internal/domain"
)

func testPassport(srv *httptest.Server) *Passport {
	return NewPassport(ClientConfig{PassportBase: srv.URL, Timeout: 5 * time.Second})
}

const credentialJSON = `{
	"cookie_info":{"cookies":[
		{"name":"SESSDATA","value":"sess"},
		{"name":"bili_jct","value":"csrf"},
		{"name":"DedeUserID","value":"12345"}]},
	"token_info":{"mid":12345,"access_token":"at","refresh_token":"rt","expires_in":2592000}
}`

func TestNewQRCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/x/passport-tv-login/qrcode/auth_code", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.NotEmpty(t, r.PostForm.Get("sign"))
		w.Write([]byte(`{"code":0,"message":"","data":{"url":"https://passport.bilibili.com/qr","auth_code":"abc123"}}`))
	}))
	defer srv.Close()

	qr, err := testPassport(srv).NewQRCode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc123", qr.AuthCode)
	assert.NotEmpty(t, qr.URL)
}

func TestPollQRCodeStates(t *testing.T) {
	tests := []struct {
		name string
		code int
		want error
	}{
		{"expired", qrCodeExpired, domain.ErrQRExpired},
		{"not scanned", qrCodeNotScanned, domain.ErrQRNotScanned},
		{"not confirmed", qrCodeNotConfirmed, domain.ErrQRNotScanned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"code":` + strconv.Itoa(tt.code) + `,"message":"pending","data":null}`))
			}))
			defer srv.Close()

			_, err := testPassport(srv).PollQRCode(context.Background(), "abc123")
			assert.True(t, errors.Is(err, tt.want))
		})
	}
}

func TestPollQRCodeConfirmed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "abc123", r.PostForm.Get("auth_code"))
		w.Write([]byte(`{"code":0,"message":"","data":` + credentialJSON + `}`))
	}))
	defer srv.Close()

	cred, err := testPassport(srv).PollQRCode(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "sess", cred.CookieInfo.Get("SESSDATA"))
	assert.Equal(t, "at", cred.TokenInfo.AccessToken)
}

func TestSMSLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		switch r.URL.Path {
		case "/x/passport-login/sms/send":
			assert.Equal(t, "13800138000", r.PostForm.Get("tel"))
			w.Write([]byte(`{"code":0,"message":"","data":{"captcha_key":"captcha-1"}}`))
		case "/x/passport-login/login/sms":
			assert.Equal(t, "captcha-1", r.PostForm.Get("captcha_key"))
			assert.Equal(t, "654321", r.PostForm.Get("code"))
			w.Write([]byte(`{"code":0,"message":"","data":` + credentialJSON + `}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := testPassport(srv)
	ch, err := p.SendSMS(context.Background(), 86, "13800138000")
	require.NoError(t, err)
	assert.Equal(t, "captcha-1", ch.CaptchaKey)

	cred, err := p.LoginBySMS(context.Background(), "654321", ch)
	require.NoError(t, err)
	assert.Equal(t, "csrf", cred.CookieInfo.Get("bili_jct"))
}

func TestLoginBySMSRejectedCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":1006,"message":"verification code error","data":null}`))
	}))
	defer srv.Close()

	ch := &SMSChallenge{CaptchaKey: "captcha-1", CountryCode: 86, Phone: "13800138000"}
	_, err := testPassport(srv).LoginBySMS(context.Background(), "000000", ch)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidSMSCode))
}

func TestFromWebCookies(t *testing.T) {
	cred := FromWebCookies("sess", "csrf")
	assert.Equal(t, "sess", cred.CookieInfo.Get("SESSDATA"))
	assert.Equal(t, "csrf", cred.CookieInfo.Get("bili_jct"))

	cred = FromWebQRCode("sess", "12345")
	assert.Equal(t, "12345", cred.CookieInfo.Get("DedeUserID"))
}
