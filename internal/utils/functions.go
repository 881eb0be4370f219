package utils

import (
	"net/url"
	"strings"
)

func ParseHeaderArgs(headers []string) map[string]string {
	result := make(map[string]string)
	for _, header := range headers {
		parts := strings.SplitN(header, ":", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			if key != "" {
				result[key] = value
			}
		}
	}
	return result
}

// SplitProxyAuth moves credentials embedded in a proxy URL into the separate
// username/password fields unless a username was already given explicitly.
func SplitProxyAuth(cfg HTTPClientConfig) HTTPClientConfig {
	if cfg.ProxyURL == "" {
		return cfg
	}
	parsedProxy, err := url.Parse(cfg.ProxyURL)
	if err != nil || parsedProxy.User == nil {
		return cfg
	}
	if cfg.ProxyUsername == "" {
		cfg.ProxyUsername = parsedProxy.User.Username()
		if password, set := parsedProxy.User.Password(); set {
			cfg.ProxyPassword = password
		}
	}
	parsedProxy.User = nil
	cfg.ProxyURL = parsedProxy.String()
	return cfg
}
