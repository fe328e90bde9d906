// Package http provides the HTTP client shared by the catalog and search
// clients.
//
// The Client in this package handles:
//   - Default User-Agent headers
//   - Timeout handling
//   - Request rate limiting via golang.org/x/time/rate
//   - JSON GET/POST and form POST helpers
//
// # Basic Usage
//
//	client := http.NewClient(http.WithTimeout(30*time.Second), http.WithRateLimit(10))
//
//	var token struct {
//	    AccessToken string `json:"access_token"`
//	}
//	err := client.PostForm(ctx, tokenURL, header, url.Values{"grant_type": {"client_credentials"}}, &token)
//
// # Errors
//
// Non-2xx responses are returned as *StatusError so callers can map status
// codes to their own error kinds:
//
//	var se *http.StatusError
//	if errors.As(err, &se) && se.Code == 404 {
//	    // not found
//	}
package http
