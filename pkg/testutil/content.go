package testutil

import (
	"archive/zip"
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
)

// ContentServer serves fixed bodies by path and counts requests.
type ContentServer struct {
	*httptest.Server

	mu     sync.Mutex
	bodies map[string][]byte
	hits   map[string]int
}

// NewContentServer starts a server; it is closed with the test.
func NewContentServer(t *testing.T) *ContentServer {
	t.Helper()
	cs := &ContentServer{
		bodies: make(map[string][]byte),
		hits:   make(map[string]int),
	}
	cs.Server = httptest.NewServer(http.HandlerFunc(cs.serve))
	t.Cleanup(cs.Close)
	return cs
}

// Put publishes body at path and returns its absolute URL.
func (cs *ContentServer) Put(path string, body []byte) string {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.bodies[path] = body
	return cs.URL + path
}

// Hits returns how often path was requested.
func (cs *ContentServer) Hits(path string) int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.hits[path]
}

func (cs *ContentServer) serve(w http.ResponseWriter, r *http.Request) {
	cs.mu.Lock()
	body, ok := cs.bodies[r.URL.Path]
	cs.hits[r.URL.Path]++
	cs.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	_, _ = w.Write(body)
}

// SHA1Hex returns the lowercase hex SHA-1 of s.
func SHA1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// ZipBytes builds an in-memory zip archive, entries written in name order.
func ZipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("Failed to add %s: %v", name, err)
		}
		if _, err := w.Write([]byte(files[name])); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Failed to close archive: %v", err)
	}
	return buf.Bytes()
}
