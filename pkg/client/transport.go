package client

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"
)

const (
	// DialTimeout is the default maximum connection initialization time.
	DialTimeout = 3 * time.Second
	// KeepAlive is the default interval between keep-alive probes.
	KeepAlive = 10 * time.Second
	// TLSHandshakeTimeout is the default timeout of the TLS handshake.
	TLSHandshakeTimeout = 5 * time.Second
	// ResponseHeaderTimeout is the default time to wait for response headers.
	ResponseHeaderTimeout = 20 * time.Second
	// MaxConnectionsPerHost is the default maximum of open connections per host.
	MaxConnectionsPerHost = 32
)

// DefaultTransport returns a HTTP transport with reasonable limits.
// It is used by New, HTTP2 is preferred when the server supports it.
func DefaultTransport() http.RoundTripper {
	dialer := Dialer()
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		TLSHandshakeTimeout:   TLSHandshakeTimeout,
		ResponseHeaderTimeout: ResponseHeaderTimeout,
		MaxConnsPerHost:       MaxConnectionsPerHost,
		MaxIdleConnsPerHost:   MaxConnectionsPerHost,
	}
}

// HTTP2Transport returns a transport that forces the HTTP2 protocol.
// A nil tlsConfig uses the default configuration.
func HTTP2Transport(tlsConfig *tls.Config) http.RoundTripper {
	dialer := Dialer()
	return &http2.Transport{
		TLSClientConfig: tlsConfig,
		DialTLS: func(network, addr string, cfg *tls.Config) (net.Conn, error) {
			return tls.DialWithDialer(dialer, network, addr, cfg)
		},
		ReadIdleTimeout:  3 * time.Second,
		PingTimeout:      3 * time.Second,
		WriteByteTimeout: 3 * time.Second,
	}
}

// Dialer returns the default dialer.
func Dialer() *net.Dialer {
	return &net.Dialer{
		Timeout:   DialTimeout,
		KeepAlive: KeepAlive,
	}
}
