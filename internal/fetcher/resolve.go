package fetcher

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog/log"
)

// Release describes where versioned binaries are published.
type Release struct {
	Host   string
	Owner  string
	Repo   string
	Binary string
}

var DefaultRelease = Release{
	Host:   "https://github.com",
	Owner:  "maxbolgarin",
	Repo:   "gitbasher",
	Binary: "gitb",
}

// ReleaseURL is the download location of one released binary.
type ReleaseURL struct {
	raw     string
	version string
}

func (r ReleaseURL) String() string  { return r.raw }
func (r ReleaseURL) Version() string { return r.version }

// Resolve builds the download URL for version. It never touches the network.
// Characters that are not valid in a path segment are percent-escaped.
func (r Release) Resolve(version string) (ReleaseURL, error) {
	version = strings.TrimSpace(version)
	if version == "" {
		return ReleaseURL{}, &ConfigurationError{Field: "version", Reason: "is required but was not provided"}
	}
	if strings.HasPrefix(version, "v") {
		log.Warn().Str("op", "fetcher/resolve").Msgf("Version %q already starts with 'v', tag will be v%s", version, version)
	} else if _, err := semver.StrictNewVersion(version); err != nil {
		log.Warn().Str("op", "fetcher/resolve").Err(err).Msgf("Version %q is not a semantic version", version)
	}
	host, err := r.HostURL()
	if err != nil {
		return ReleaseURL{}, err
	}
	if r.Owner == "" || r.Repo == "" || r.Binary == "" {
		return ReleaseURL{}, &ConfigurationError{Field: "release", Reason: "needs owner, repo and binary"}
	}
	// The version is a single path segment; '/', '?', '#' and '%' must not
	// change which asset is requested.
	segment := url.PathEscape(version)
	if segment != version {
		log.Warn().Str("op", "fetcher/resolve").Msgf("Version %q contains URL-reserved characters, requesting tag v%s", version, segment)
	}
	raw := fmt.Sprintf("%s/%s/%s/releases/download/v%s/%s",
		strings.TrimRight(host.String(), "/"), r.Owner, r.Repo, segment, r.Binary)
	if _, err := url.Parse(raw); err != nil {
		return ReleaseURL{}, &ConfigurationError{Field: "version", Reason: fmt.Sprintf("produces an invalid URL: %v", err)}
	}
	log.Debug().Str("op", "fetcher/resolve").Msgf("Resolved %s", raw)
	return ReleaseURL{raw: raw, version: version}, nil
}

// HostURL parses the release host and checks that it is http or https.
func (r Release) HostURL() (*url.URL, error) {
	host, err := url.Parse(r.Host)
	if err != nil {
		return nil, &ConfigurationError{Field: "release host", Reason: fmt.Sprintf("is invalid: %v", err)}
	}
	if !supportedScheme(host.Scheme) || host.Host == "" {
		return nil, &ConfigurationError{Field: "release host", Reason: fmt.Sprintf("%q must be an absolute http(s) URL", r.Host)}
	}
	return host, nil
}

func supportedScheme(scheme string) bool {
	return scheme == "http" || scheme == "https"
}
