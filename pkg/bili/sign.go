package bili

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// App keys used by the signed (app/TV) API surface. Public knowledge,
// shared by the biliup tool family.
const (
	appKey    = "4409e2ce8ffd12b8"
	appSecret = "59b43e04ad6965f34319062b478f83dd"
)

// signForm adds appkey and sign to a form the app API will verify.
// The signature is md5 of the sorted, encoded query plus the secret.
func signForm(form url.Values) url.Values {
	form.Set("appkey", appKey)

	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(form.Get(k)))
	}
	b.WriteString(appSecret)

	sum := md5.Sum([]byte(b.String()))
	form.Set("sign", hex.EncodeToString(sum[:]))
	return form
}
