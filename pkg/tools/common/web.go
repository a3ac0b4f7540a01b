package common

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const UserAgent = "picosearch/1.0 (+https://github.com/sipeed/picosearch)"

// CreateHTTPClient returns a client with the given timeout, routed through
// proxyURL when set and through the environment proxy otherwise.
func CreateHTTPClient(proxyURL string, timeout time.Duration) (*http.Client, error) {
	transport := &http.Transport{
		MaxIdleConns:        10,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 15 * time.Second,
		Proxy:               http.ProxyFromEnvironment,
	}

	if proxyURL != "" {
		proxy, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		switch strings.ToLower(proxy.Scheme) {
		case "http", "https", "socks5", "socks5h":
		default:
			return nil, fmt.Errorf(
				"unsupported proxy scheme %q (supported: http, https, socks5, socks5h)",
				proxy.Scheme,
			)
		}
		if proxy.Host == "" {
			return nil, fmt.Errorf("invalid proxy URL: missing host")
		}
		transport.Proxy = http.ProxyURL(proxy)
	}

	return &http.Client{Timeout: timeout, Transport: transport}, nil
}
