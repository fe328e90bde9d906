package ytmusic

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	origin = "https://music.youtube.com"

	// sapisidCookie is the cookie SAPISIDHASH authorization is derived from.
	sapisidCookie = "__Secure-3PAPISID"
)

// SAPISIDHash returns the Authorization header value for the browser
// session identified by sapisid at time now.
func SAPISIDHash(sapisid string, now time.Time) string {
	ts := strconv.FormatInt(now.Unix(), 10)
	sum := sha1.Sum([]byte(ts + " " + sapisid + " " + origin))
	return "SAPISIDHASH " + ts + "_" + hex.EncodeToString(sum[:])
}

// ParseCookie finds the __Secure-3PAPISID value in pasted browser request
// headers. input may be the whole header block or just the Cookie line, as
// copied from the browser ("Cookie: ..." or a quoted "cookie: ..." entry).
func ParseCookie(input string) (string, error) {
	line, ok := cookieLine(input)
	if !ok {
		return "", fmt.Errorf("%w: no cookie header found", ErrUnauthenticated)
	}

	for _, part := range strings.Split(line, ";") {
		name, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if found && name == sapisidCookie && value != "" {
			return strings.Trim(value, `"`), nil
		}
	}
	return "", fmt.Errorf("%w: %s cookie not found", ErrUnauthenticated, sapisidCookie)
}

func cookieLine(input string) (string, bool) {
	for _, line := range strings.Split(input, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, `"`)
		if len(line) < 6 || !strings.EqualFold(line[:6], "cookie") {
			continue
		}
		rest := strings.TrimPrefix(line[6:], `"`)
		if value, ok := strings.CutPrefix(rest, ":"); ok {
			value = strings.TrimSpace(value)
			value = strings.TrimSuffix(value, ",")
			return strings.Trim(value, `"`), true
		}
	}
	return "", false
}
