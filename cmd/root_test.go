package cmd

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBody = "#!/bin/sh\necho hi\n"

func envWith(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func runInstaller(t *testing.T, env map[string]string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), args, envWith(env), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestInstallFollowsRedirectToAssetHost(t *testing.T) {
	assets := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testBody))
	}))
	defer assets.Close()
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, assets.URL+"/gitb", http.StatusFound)
	}))
	defer origin.Close()

	root := t.TempDir()
	code, stdout, stderr := runInstaller(t, map[string]string{"npm_package_version": "1.2.3"},
		"--root", root, "--url", origin.URL+"/download")
	require.Equal(t, 0, code, stderr)

	dest := filepath.Join(root, "bin", "gitb")
	content, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, testBody, string(content))
	if runtime.GOOS != "windows" {
		info, err := os.Stat(dest)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
	}
	assert.Contains(t, stdout, "Downloading gitbasher v1.2.3")
	assert.Contains(t, stdout, "Downloaded 18 bytes")

	entries, err := os.ReadDir(filepath.Join(root, "bin"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestInstallStatusErrorExitsNonZero(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	root := t.TempDir()
	code, _, stderr := runInstaller(t, map[string]string{"npm_package_version": "1.2.3"},
		"--root", root, "--url", server.URL)
	assert.NotEqual(t, 0, code)
	assert.Contains(t, stderr, "404")

	entries, err := os.ReadDir(filepath.Join(root, "bin"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestInstallWithoutVersionMakesNoRequest(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer server.Close()

	root := t.TempDir()
	code, _, stderr := runInstaller(t, nil, "--root", root, "--url", server.URL)
	assert.NotEqual(t, 0, code)
	assert.Contains(t, stderr, "npm_package_version")
	assert.Equal(t, int32(0), requests.Load())

	_, err := os.Stat(filepath.Join(root, "bin"))
	assert.True(t, os.IsNotExist(err))
}

func TestInstallRejectsZeroRedirectBudget(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer server.Close()

	code, _, stderr := runInstaller(t, map[string]string{"npm_package_version": "1.2.3"},
		"--root", t.TempDir(), "--url", server.URL, "--max-redirects", "0")
	assert.NotEqual(t, 0, code)
	assert.Contains(t, stderr, "max_redirects")
	assert.Equal(t, int32(0), requests.Load())
}

func TestInstallReleaseFlagOverridesEnv(t *testing.T) {
	var path atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path.Store(r.URL.Path)
		w.Write([]byte(testBody))
	}))
	defer server.Close()

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("host: "+server.URL+"\n"), 0o644))

	root := t.TempDir()
	code, _, stderr := runInstaller(t, map[string]string{"npm_package_version": "1.0.0"},
		"--root", root, "--config", cfgPath, "--release", "2.0.0", "--quiet")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "/maxbolgarin/gitbasher/releases/download/v2.0.0/gitb", path.Load())
}

func TestInstallQuietPrintsNothing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testBody))
	}))
	defer server.Close()

	code, stdout, stderr := runInstaller(t, map[string]string{"npm_package_version": "1.2.3"},
		"--root", t.TempDir(), "--url", server.URL, "--quiet")
	require.Equal(t, 0, code, stderr)
	assert.Empty(t, stdout)
	assert.Empty(t, stderr)
}

func TestURLCommand(t *testing.T) {
	code, stdout, stderr := runInstaller(t, map[string]string{"npm_package_version": "1.2.3"}, "url")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "https://github.com/maxbolgarin/gitbasher/releases/download/v1.2.3/gitb", strings.TrimSpace(stdout))

	code, _, _ = runInstaller(t, nil, "url")
	assert.NotEqual(t, 0, code)
}

func TestCleanCommand(t *testing.T) {
	root := t.TempDir()
	bin := filepath.Join(root, "bin")
	require.NoError(t, os.MkdirAll(bin, 0o755))
	leftover := filepath.Join(bin, ".gitb.0b1c.part")
	installed := filepath.Join(bin, "gitb")
	require.NoError(t, os.WriteFile(leftover, []byte("partial"), 0o600))
	require.NoError(t, os.WriteFile(installed, []byte(testBody), 0o755))

	code, stdout, stderr := runInstaller(t, nil, "clean", "--root", root)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Temporary files cleaned up")

	_, err := os.Stat(leftover)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(installed)
	assert.NoError(t, err)
}

func TestSourceName(t *testing.T) {
	assert.Equal(t, "GitHub releases", sourceName("https://github.com/maxbolgarin/gitbasher/releases/download/v1.2.3/gitb"))
	assert.Equal(t, "mirror.local:8080", sourceName("http://mirror.local:8080/gitb"))
	assert.Equal(t, "not a url", sourceName("not a url"))
}
