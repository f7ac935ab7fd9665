// Package http provides the HTTP client used to fetch packages from feeds.
//
// The Client in this package handles:
//   - TLS certificate validation toggle
//   - Proxy selection (none, environment, manual)
//   - Basic authentication attached to every request
//   - Per-request timeout
//   - Streaming downloads that never leave a partial file behind
//
// # Basic Usage
//
//	client, err := http.NewClient(http.Options{
//	    Timeout:            5 * time.Minute,
//	    InsecureSkipVerify: settings.DisableSSLValidation,
//	    Username:           settings.Username,
//	    Password:           settings.Password,
//	})
//
//	n, err := client.DownloadFile(ctx, url, dest, nil)
//	var se *http.StatusError
//	if errors.As(err, &se) {
//	    fmt.Println(se.StatusCode)
//	}
package http
