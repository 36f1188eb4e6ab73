package bili

import (
	"encoding/json"
	"fmt"
)

// Response is the standard member/passport API envelope.
type Response struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// APIError reports a non-zero response code: the transport call succeeded
// but the platform refused the request.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Code, e.Message)
}

// Credential is the persisted login state: cookie list plus app token pair.
// The JSON layout matches the file other biliup-family tools write.
type Credential struct {
	CookieInfo CookieInfo `json:"cookie_info"`
	TokenInfo  TokenInfo  `json:"token_info"`
}

// CookieInfo holds the web session cookies.
type CookieInfo struct {
	Cookies []Cookie `json:"cookies"`
}

// Cookie is one name/value pair (SESSDATA, bili_jct, DedeUserID, sid).
type Cookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// TokenInfo holds the app-API token pair.
type TokenInfo struct {
	Mid          int64  `json:"mid"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Get returns the value of a named cookie, or "".
func (c *CookieInfo) Get(name string) string {
	for _, ck := range c.Cookies {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}

// QRCode is a login challenge: the payload to render as a QR image and the
// token to poll with.
type QRCode struct {
	URL      string `json:"url"`
	AuthCode string `json:"auth_code"`
}

// navData is the nav endpoint payload used to validate a session.
type navData struct {
	IsLogin bool   `json:"isLogin"`
	Mid     int64  `json:"mid"`
	Uname   string `json:"uname"`
}

// preuploadData is the upload negotiation payload. Unlike member API calls
// this endpoint answers flat, without the code/data envelope.
type preuploadData struct {
	OK        int    `json:"OK"`
	Endpoint  string `json:"endpoint"`
	UposURI   string `json:"upos_uri"`
	BizID     int64  `json:"biz_id"`
	ChunkSize int64  `json:"chunk_size"`
	Auth      string `json:"auth"`
}

// submitData is the publish response payload.
type submitData struct {
	Aid  int64  `json:"aid"`
	Bvid string `json:"bvid"`
}

// coverData is the cover upload payload.
type coverData struct {
	URL string `json:"url"`
}
