package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/maxbolgarin/gitb-install/internal/utils"
)

const (
	// DefaultMaxRedirects is the hop budget used when Options leaves it unset.
	DefaultMaxRedirects = 5
	// ExecutableMode is applied to the binary before it is moved into place.
	ExecutableMode = os.FileMode(0o755)
)

// Options tunes a Fetcher. The zero value follows up to DefaultMaxRedirects
// hops without credentials or progress reporting.
type Options struct {
	// MaxRedirects bounds the redirect hops of one fetch; zero or less
	// means DefaultMaxRedirects.
	MaxRedirects int
	// Token is attached only to requests whose host equals AuthHost, so
	// it never reaches a CDN behind a redirect.
	Token    *oauth2.Token
	AuthHost string
	// Headers are sent only to the host of the URL passed to Fetch.
	Headers  map[string]string
	Progress ProgressFunc
}

// Fetcher installs one binary per Fetch call. It is safe to reuse across
// calls but not meant for concurrent use on the same destination.
type Fetcher struct {
	client utils.HTTPDoer
	opts   Options
}

// Result describes a completed install.
type Result struct {
	Path      string
	URL       string
	Redirects []string
	Bytes     int64
	// Total is the advertised Content-Length, -1 if none was sent.
	Total    int64
	Duration time.Duration
}

// Message is the user-facing completion notice.
func (r *Result) Message() string {
	if r.Total < 0 {
		return "Download complete!"
	}
	return fmt.Sprintf("Downloaded %d bytes to %s", r.Bytes, r.Path)
}

// New returns a Fetcher using client for every request. The client must not
// follow redirects itself.
func New(client utils.HTTPDoer, opts Options) *Fetcher {
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = DefaultMaxRedirects
	}
	return &Fetcher{client: client, opts: opts}
}

// Fetch downloads rawURL into destPath, following at most MaxRedirects
// redirects. On success destPath holds the final response body with mode
// 0755. On failure nothing from this attempt remains on disk.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, destPath string) (*Result, error) {
	start := time.Now()
	current, err := url.Parse(rawURL)
	if err != nil {
		return nil, &ConfigurationError{Field: "url", Reason: fmt.Sprintf("is invalid: %v", err)}
	}
	if !supportedScheme(current.Scheme) {
		return nil, &ConfigurationError{Field: "url", Reason: fmt.Sprintf("has unsupported scheme %q", current.Scheme)}
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return nil, &TransportError{Op: "create install directory", URL: filepath.Dir(destPath), Err: err}
	}
	lock, err := lockTarget(ctx, destPath)
	if err != nil {
		return nil, &TransportError{Op: "lock install target", URL: destPath, Err: err}
	}
	defer lock.release()

	origin := current.Host
	chain := []string{current.String()}
	for hops := 0; ; {
		resp, err := f.get(ctx, current, origin)
		if err != nil {
			return nil, &TransportError{Op: "GET", URL: current.String(), Err: err}
		}

		switch {
		case isRedirect(resp.StatusCode):
			location := resp.Header.Get("Location")
			discardBody(resp)
			if location == "" {
				return nil, &RedirectError{URL: current.String(), Chain: chain, Err: ErrLocationMissing}
			}
			if hops >= f.opts.MaxRedirects {
				return nil, &RedirectError{URL: current.String(), Chain: chain, Err: ErrTooManyRedirects}
			}
			next, err := current.Parse(location)
			if err != nil {
				return nil, &RedirectError{URL: current.String(), Chain: chain, Err: fmt.Errorf("invalid location %q: %w", location, err)}
			}
			if !supportedScheme(next.Scheme) {
				return nil, &RedirectError{URL: current.String(), Chain: chain, Err: fmt.Errorf("%w %q", ErrUnsupportedScheme, next.Scheme)}
			}
			hops++
			log.Debug().Str("op", "fetcher/fetch").Msgf("Redirect %d/%d (%d) to %s", hops, f.opts.MaxRedirects, resp.StatusCode, next)
			chain = append(chain, next.String())
			current = next

		case resp.StatusCode == http.StatusOK:
			state, err := f.stream(resp, current.String(), destPath)
			if err != nil {
				return nil, err
			}
			result := &Result{
				Path:      destPath,
				URL:       current.String(),
				Redirects: chain[1:],
				Bytes:     state.Transferred,
				Total:     state.Total,
				Duration:  time.Since(start),
			}
			log.Debug().Str("op", "fetcher/fetch").Msgf("Installed %s (%d bytes, %d redirects) in %s", destPath, result.Bytes, len(result.Redirects), result.Duration)
			return result, nil

		default:
			discardBody(resp)
			return nil, &HTTPStatusError{URL: current.String(), StatusCode: resp.StatusCode, StatusText: statusText(resp.StatusCode, resp.Status)}
		}
	}
}

func (f *Fetcher) get(ctx context.Context, target *url.URL, origin string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, err
	}
	if target.Host == origin {
		for k, v := range f.opts.Headers {
			req.Header.Set(k, v)
		}
	}
	if f.opts.Token != nil && f.opts.AuthHost != "" && target.Host == f.opts.AuthHost {
		f.opts.Token.SetAuthHeader(req)
	}
	log.Debug().Str("op", "fetcher/fetch").Msgf("GET %s", target)
	return f.client.Do(req)
}

// stream copies the response body into a staging file and moves it over
// destPath once the body has been read completely.
func (f *Fetcher) stream(resp *http.Response, source, destPath string) (state *TransferState, err error) {
	defer resp.Body.Close()
	state = &TransferState{Total: resp.ContentLength}

	staging, err := createStaging(destPath)
	if err != nil {
		return nil, &TransportError{Op: "create staging file", URL: destPath, Err: err}
	}
	defer func() {
		if err == nil {
			return
		}
		if rmErr := staging.discard(); rmErr != nil {
			err = multierror.Append(err, rmErr)
		}
	}()

	progress := startProgress(f.opts.Progress, state.Total)
	buffer := make([]byte, utils.DefaultBufferSize)
	_, copyErr := io.CopyBuffer(struct{ io.Writer }{staging.file}, &countingReader{r: resp.Body, state: state, progress: progress}, buffer)
	progress.stop()
	if copyErr != nil {
		return nil, &TransportError{Op: "stream", URL: source, Err: copyErr}
	}
	if err := staging.commit(ExecutableMode); err != nil {
		return nil, &TransportError{Op: "finalize", URL: destPath, Err: err}
	}
	return state, nil
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func discardBody(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
	resp.Body.Close()
}
