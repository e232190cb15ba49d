// Package proxy routes outbound connections through an optional SOCKS5 proxy.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/proxy"
)

// DialFunc matches net.Dialer.DialContext.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// NewDialer returns a direct dialer when socksAddr is empty. socksAddr is
// either host:port or a socks5:// URL with optional credentials.
func NewDialer(socksAddr string) (DialFunc, error) {
	direct := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}
	if socksAddr == "" {
		return direct.DialContext, nil
	}

	addr, auth, err := parseAddr(socksAddr)
	if err != nil {
		return nil, err
	}

	dialer, err := proxy.SOCKS5("tcp", addr, auth, direct)
	if err != nil {
		return nil, fmt.Errorf("creating socks5 dialer: %w", err)
	}

	cd, ok := dialer.(proxy.ContextDialer)
	if !ok {
		return nil, errors.New("socks5 dialer does not support contexts")
	}
	return cd.DialContext, nil
}

// NewHTTPClient builds an HTTP client whose connections go through dial.
func NewHTTPClient(dial DialFunc, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dial

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

func parseAddr(raw string) (string, *proxy.Auth, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		if _, _, splitErr := net.SplitHostPort(raw); splitErr != nil {
			return "", nil, fmt.Errorf("invalid socks proxy address %q", raw)
		}
		return raw, nil, nil
	}

	switch u.Scheme {
	case "socks5", "socks5h":
	default:
		return "", nil, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}

	var auth *proxy.Auth
	if u.User != nil {
		pass, _ := u.User.Password()
		auth = &proxy.Auth{User: u.User.Username(), Password: pass}
	}
	return u.Host, auth, nil
}
