package registry_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/arthur-debert/modsync/pkg/errors"
	"github.com/arthur-debert/modsync/pkg/registry"
	"github.com/arthur-debert/modsync/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistryServer(t *testing.T) (*httptest.Server, *http.Request) {
	t.Helper()
	var last http.Request

	mux := http.NewServeMux()
	mux.HandleFunc("/v2/project/sodium", func(w http.ResponseWriter, r *http.Request) {
		last = *r
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"AANobbMI","slug":"sodium","title":"Sodium","icon_url":"https://cdn.example/icon.png","project_type":"mod"}`))
	})
	mux.HandleFunc("/v2/project/AANobbMI/version", func(w http.ResponseWriter, r *http.Request) {
		last = *r
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"v2","name":"Sodium 0.5","version_number":"0.5.3","game_versions":["1.20.1"],"loaders":["fabric"],
			 "files":[{"url":"https://cdn.example/sodium-0.5.3.jar","filename":"sodium-0.5.3.jar","primary":true,"hashes":{"sha1":"aa","sha512":"bb"},"size":10}],
			 "dependencies":[{"project_id":"P7dR8mSH","version_id":null,"file_name":null,"dependency_type":"required"}]},
			{"id":"v1","game_versions":["1.20.1"],"loaders":["fabric"],"files":[],"dependencies":[]}
		]`))
	})
	mux.HandleFunc("/v2/project/broken/version", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})
	mux.HandleFunc("/v2/project/garbage", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &last
}

func TestHTTPClient_GetProject(t *testing.T) {
	srv, last := newRegistryServer(t)
	client := registry.NewHTTPClient(srv.URL+"/v2/", registry.WithUserAgent("modsync-test/1.0"))

	p, err := client.GetProject(context.Background(), "sodium")
	require.NoError(t, err)
	assert.Equal(t, "AANobbMI", p.ID)
	assert.Equal(t, "Sodium", p.Title)
	assert.Equal(t, "https://cdn.example/icon.png", p.IconURL)
	assert.Equal(t, types.ProjectTypeMod, p.Type)
	assert.Equal(t, "modsync-test/1.0", last.Header.Get("User-Agent"))
}

func TestHTTPClient_GetProjectVersions(t *testing.T) {
	srv, last := newRegistryServer(t)
	client := registry.NewHTTPClient(srv.URL + "/v2")

	versions, err := client.GetProjectVersions(context.Background(), "AANobbMI",
		types.Platform{GameVersion: "1.20.1", Loader: "fabric"})
	require.NoError(t, err)
	require.Len(t, versions, 2)

	assert.Equal(t, "v2", versions[0].ID, "registry order is kept")
	assert.Equal(t, "AANobbMI", versions[0].ProjectID)
	require.Len(t, versions[0].Dependencies, 1)
	assert.Equal(t, "P7dR8mSH", versions[0].Dependencies[0].ProjectID)
	assert.True(t, versions[0].Dependencies[0].IsRequired())
	file, ok := versions[0].PrimaryFile()
	require.True(t, ok)
	assert.Equal(t, "aa", file.Hashes.SHA1)

	var gameVersions, loaders []string
	require.NoError(t, json.Unmarshal([]byte(last.URL.Query().Get("game_versions")), &gameVersions))
	require.NoError(t, json.Unmarshal([]byte(last.URL.Query().Get("loaders")), &loaders))
	assert.Equal(t, []string{"1.20.1"}, gameVersions)
	assert.Equal(t, []string{"fabric"}, loaders)
}

func TestHTTPClient_Errors(t *testing.T) {
	srv, _ := newRegistryServer(t)
	client := registry.NewHTTPClient(srv.URL + "/v2")
	ctx := context.Background()

	_, err := client.GetProject(ctx, "unknown")
	assert.True(t, errors.IsErrorCode(err, errors.ErrProjectNotFound))

	_, err = client.GetProjectVersions(ctx, "broken", types.Platform{})
	assert.True(t, errors.IsErrorCode(err, errors.ErrRegistry))
	assert.Equal(t, http.StatusTooManyRequests, errors.GetErrorDetails(err)["status"])

	_, err = client.GetProject(ctx, "garbage")
	assert.True(t, errors.IsErrorCode(err, errors.ErrRegistry))
}

func TestHTTPClient_Cancelled(t *testing.T) {
	srv, _ := newRegistryServer(t)
	client := registry.NewHTTPClient(srv.URL + "/v2")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetProject(ctx, "sodium")
	require.Error(t, err)
	assert.True(t, errors.IsCancelled(err))
}
