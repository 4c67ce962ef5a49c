package syncer_test

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/arthur-debert/modsync/pkg/download"
	"github.com/arthur-debert/modsync/pkg/filesystem"
	"github.com/arthur-debert/modsync/pkg/statestore"
	"github.com/arthur-debert/modsync/pkg/syncer"
	"github.com/arthur-debert/modsync/pkg/testutil"
	"github.com/arthur-debert/modsync/pkg/types"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

type testLayout struct {
	root string
}

func (l testLayout) InstanceDir(id string) string {
	return filepath.Join(l.root, "instances", id)
}

func (l testLayout) StagingDir(id string) string {
	return filepath.Join(l.InstanceDir(id), ".modsync-staging")
}

// contentHost serves fixed bodies by URL and counts fetches.
type contentHost struct {
	mu     sync.Mutex
	bodies map[string][]byte
	hits   map[string]int
}

func newContentHost() *contentHost {
	return &contentHost{bodies: make(map[string][]byte), hits: make(map[string]int)}
}

func (h *contentHost) put(url string, body []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bodies[url] = body
}

func (h *contentHost) count(url string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hits[url]
}

func (h *contentHost) total() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, c := range h.hits {
		n += c
	}
	return n
}

func (h *contentHost) Fetch(ctx context.Context, url string, w io.Writer) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	h.mu.Lock()
	body, ok := h.bodies[url]
	h.hits[url]++
	h.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("404 for %s", url)
	}
	n, err := w.Write(body)
	return int64(n), err
}

type fixture struct {
	fs     types.FS
	layout testLayout
	store  *statestore.Store
	host   *contentHost
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fsys := filesystem.NewMemory()
	layout := testLayout{root: "/data"}
	store := statestore.New(fsys, func(id string) string {
		return filepath.Join("/state", id, "state.json")
	})
	return &fixture{fs: fsys, layout: layout, store: store, host: newContentHost()}
}

func (f *fixture) engine(fetcher download.Fetcher, opts ...syncer.Option) *syncer.Engine {
	if fetcher == nil {
		fetcher = f.host
	}
	base := []syncer.Option{syncer.WithFS(f.fs), syncer.WithClock(func() time.Time { return fixedNow })}
	return syncer.NewEngine(f.layout, f.store, fetcher, append(base, opts...)...)
}

func (f *fixture) live(id, rel string) string {
	return filepath.Join(f.layout.InstanceDir(id), filepath.FromSlash(rel))
}

func (f *fixture) writeLive(t *testing.T, id, rel, content string) {
	t.Helper()
	path := f.live(id, rel)
	require.NoError(t, f.fs.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, f.fs.WriteFile(path, []byte(content), 0644))
}

func (f *fixture) readLive(t *testing.T, id, rel string) string {
	t.Helper()
	data, err := f.fs.ReadFile(f.live(id, rel))
	require.NoError(t, err)
	return string(data)
}

func (f *fixture) exists(id, rel string) bool {
	_, err := f.fs.Stat(f.live(id, rel))
	return err == nil
}

// snapshot maps every file below the instance directory to its content.
func (f *fixture) snapshot(t *testing.T, id string) map[string]string {
	t.Helper()
	out := make(map[string]string)
	var walk func(dir, prefix string)
	walk = func(dir, prefix string) {
		entries, err := f.fs.ReadDir(dir)
		if err != nil {
			return
		}
		for _, e := range entries {
			full := filepath.Join(dir, e.Name())
			rel := prefix + e.Name()
			if e.IsDir() {
				out[rel+"/"] = ""
				walk(full, rel+"/")
				continue
			}
			data, err := f.fs.ReadFile(full)
			require.NoError(t, err)
			out[rel] = string(data)
		}
	}
	walk(f.layout.InstanceDir(id), "")
	return out
}

// entry registers content on the host and returns the matching manifest entry.
func (f *fixture) entry(path, content string) types.FileEntry {
	url := "https://cdn.example/" + path
	f.host.put(url, []byte(content))
	return types.FileEntry{Path: path, URL: url, SHA1: testutil.SHA1Hex(content), Size: int64(len(content))}
}
