// Package httpc holds the outbound HTTP client shared by the operator
// webhook and the Google Fit sync. Never use http.DefaultClient: it has no
// timeout.
package httpc

import (
	"context"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// Outbound timeouts.
const (
	DefaultTimeout  = 15 * time.Second
	DialTimeout     = 5 * time.Second
	KeepAlive       = 30 * time.Second
	IdleConnTimeout = 90 * time.Second
)

// Client is the shared outbound client.
var Client = New(DefaultTimeout)

// New creates a client with its own transport and the given overall timeout.
func New(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   DialTimeout,
				KeepAlive: KeepAlive,
			}).DialContext,
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     IdleConnTimeout,
			TLSHandshakeTimeout: DialTimeout,
		},
	}
}

// OAuthContext makes oauth2 token exchanges and refreshes on ctx use Client.
func OAuthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, Client)
}
