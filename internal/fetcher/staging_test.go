package fetcher

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStagingCommit(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "gitb")
	staging, err := createStaging(dest)
	require.NoError(t, err)
	assert.Equal(t, filepath.Dir(dest), filepath.Dir(staging.path))

	_, err = staging.file.WriteString("binary")
	require.NoError(t, err)
	_, err = os.Stat(dest)
	assert.True(t, os.IsNotExist(err), "destination must not appear before commit")

	require.NoError(t, staging.commit(ExecutableMode))
	require.NoError(t, staging.discard()) // no-op after commit

	content, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "binary", string(content))
	installed, err := IsInstalled(dest)
	require.NoError(t, err)
	assert.Equal(t, runtime.GOOS != "windows", installed)
	assert.Equal(t, []string{"gitb"}, dirEntries(t, dest))
}

func TestStagingDiscard(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "gitb")
	staging, err := createStaging(dest)
	require.NoError(t, err)
	_, err = staging.file.WriteString("partial")
	require.NoError(t, err)

	require.NoError(t, staging.discard())
	require.NoError(t, staging.discard())
	assert.Empty(t, dirEntries(t, dest))
}

func TestLockTargetSerializesInstalls(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "gitb")

	lock, err := lockTarget(context.Background(), dest)
	require.NoError(t, err)

	var wg sync.WaitGroup
	acquired := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		second, err := lockTarget(context.Background(), dest)
		if err != nil {
			t.Errorf("second lock: %v", err)
			return
		}
		close(acquired)
		second.release()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while the first is held")
	default:
	}
	lock.release()
	wg.Wait()
	assert.Empty(t, dirEntries(t, dest))
}

func TestLockTargetHonoursContext(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "gitb")
	lock, err := lockTarget(context.Background(), dest)
	require.NoError(t, err)
	defer lock.release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = lockTarget(ctx, dest)
	assert.Error(t, err)
}

func TestCleanStaging(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "gitb")
	files := map[string]bool{
		".gitb.1f0e.part":  true,
		".gitb.abcd.part":  true,
		".gitb.lock":       true,
		"gitb":             false,
		".other.1234.part": false,
		"notes.part":       false,
	}
	for name := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	removed, err := CleanStaging(dest)
	require.NoError(t, err)
	assert.Len(t, removed, 2)

	for name, gone := range files {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.Equal(t, gone, os.IsNotExist(err), name)
	}
}

func TestCleanStagingMissingDir(t *testing.T) {
	removed, err := CleanStaging(filepath.Join(t.TempDir(), "missing", "gitb"))
	assert.NoError(t, err)
	assert.Empty(t, removed)
}

func TestCleanStagingRefusesWhileLocked(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "gitb")
	lock, err := lockTarget(context.Background(), dest)
	require.NoError(t, err)
	defer lock.release()

	_, err = CleanStaging(dest)
	assert.ErrorContains(t, err, "in progress")
}

func TestIsInstalled(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not meaningful on windows")
	}
	dir := t.TempDir()
	exec := filepath.Join(dir, "exec")
	plain := filepath.Join(dir, "plain")
	require.NoError(t, os.WriteFile(exec, []byte("x"), 0o755))
	require.NoError(t, os.WriteFile(plain, []byte("x"), 0o644))

	tests := []struct {
		path string
		want bool
	}{
		{exec, true},
		{plain, false},
		{dir, false},
		{filepath.Join(dir, "missing"), false},
	}
	for _, tt := range tests {
		got, err := IsInstalled(tt.path)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.path)
	}
}

func TestProgressTracker(t *testing.T) {
	var calls [][2]int64
	p := startProgress(func(downloaded, total int64) {
		calls = append(calls, [2]int64{downloaded, total})
	}, 30)
	p.add(10)
	p.add(20)
	p.add(0)
	p.stop()

	require.NotEmpty(t, calls)
	assert.Equal(t, [2]int64{30, 30}, calls[len(calls)-1])

	var none *progressTracker
	none.add(5)
	none.stop()
	assert.Nil(t, startProgress(nil, 10))
}
