package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/scenegraph/internal/api"
	"github.com/gyaneshwarpardhi/scenegraph/internal/config"
	"github.com/gyaneshwarpardhi/scenegraph/internal/engine"
	"github.com/gyaneshwarpardhi/scenegraph/internal/scene"
)

func newHandler(t *testing.T, loader *config.Loader) http.Handler {
	t.Helper()
	sc := scene.New(config.UndoConf{MaxDepth: 10}, nil)
	eng := engine.New(context.Background(), sc, config.ServerConf{QueueDepth: 16, OpTimeoutMs: 2000}, nil)
	t.Cleanup(eng.Shutdown)
	return api.New(eng, loader, nil)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestNodeLifecycle(t *testing.T) {
	h := newHandler(t, nil)

	rec := do(t, h, http.MethodPost, "/v1/nodes", `{"tag":"Display","attrs":{"opacity":"0.5"}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Display", decode(t, rec)["id"])

	rec = do(t, h, http.MethodPost, "/v1/nodes", `{"tag":"Model","name":"liver","refs":[{"role":"display","id":"Display"}]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/v1/nodes/Display", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Display", body["class"])
	assert.Equal(t, []any{"Model"}, body["referenced_by"])

	rec = do(t, h, http.MethodGet, "/v1/nodes/Model/closure", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decode(t, rec)["count"])

	rec = do(t, h, http.MethodGet, "/v1/nodes/by-name/liv?match=substring", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Model", decode(t, rec)["id"])

	rec = do(t, h, http.MethodGet, "/v1/nodes?class=Model", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["count"])

	rec = do(t, h, http.MethodDelete, "/v1/nodes/Display", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/nodes/Display", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/nodes/Model", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode(t, rec)["refs"], "reference to the removed display is dropped")
}

func TestCreateNodeErrors(t *testing.T) {
	h := newHandler(t, nil)
	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"unknown tag", `{"tag":"Fiber"}`, http.StatusBadRequest},
		{"missing tag", `{}`, http.StatusBadRequest},
		{"bad attribute", `{"tag":"Volume","attrs":{"window":"wide"}}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/v1/nodes", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestPatchAndUndo(t *testing.T) {
	h := newHandler(t, nil)
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/v1/nodes", `{"tag":"Volume"}`).Code)

	rec := do(t, h, http.MethodPatch, "/v1/nodes/Volume", `{"name":"ct","attrs":{"window":"80"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "ct", body["name"])
	assert.Equal(t, "80", body["attrs"].(map[string]any)["window"])

	rec = do(t, h, http.MethodPost, "/v1/undo", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["applied"])

	body = decode(t, do(t, h, http.MethodGet, "/v1/nodes/Volume", ""))
	assert.Equal(t, "Volume", body["name"])
	assert.Equal(t, "256", body["attrs"].(map[string]any)["window"])

	rec = do(t, h, http.MethodPost, "/v1/redo", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, do(t, h, http.MethodGet, "/v1/nodes/Volume", ""))
	assert.Equal(t, "ct", body["name"])

	rec = do(t, h, http.MethodPatch, "/v1/nodes/Missing", `{"name":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckpoint(t *testing.T) {
	h := newHandler(t, nil)
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/v1/nodes", `{"tag":"Model"}`).Code)

	rec := do(t, h, http.MethodPost, "/v1/undo/checkpoint", `{"ids":["Model"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decode(t, rec)["undo_depth"])

	rec = do(t, h, http.MethodPost, "/v1/undo/checkpoint", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/undo/checkpoint", `{"ids":["Nope"]}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

const demoScene = `
version: v1
nodes:
  - { tag: Transform, id: Transform }
  - tag: Model
    id: Model
    name: skull
    refs: [ { role: transform, id: Transform } ]
`

func TestSceneImportExportClear(t *testing.T) {
	h := newHandler(t, nil)

	rec := do(t, h, http.MethodPost, "/v1/scene/import", demoScene)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode(t, rec)
	assert.EqualValues(t, 2, res["added"])
	assert.NotEmpty(t, res["batch_id"])

	rec = do(t, h, http.MethodPost, "/v1/scene/import", "nodes: [")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	summary := decode(t, do(t, h, http.MethodGet, "/v1/scene", ""))
	assert.EqualValues(t, 2, summary["nodes"])
	assert.EqualValues(t, 1, summary["edges"])
	assert.Equal(t, false, summary["modified"])

	rec = do(t, h, http.MethodGet, "/v1/scene/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "name: skull")

	rec = do(t, h, http.MethodPost, "/v1/scene/clear?keep_singletons=maybe", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/scene/clear?keep_singletons=false", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, decode(t, rec)["nodes"])

	rec = do(t, h, http.MethodPost, "/v1/scene/connect", demoScene)
	require.Equal(t, http.StatusOK, rec.Code)
	summary = decode(t, do(t, h, http.MethodGet, "/v1/scene", ""))
	assert.EqualValues(t, 2, summary["nodes"])
}

func TestQueryEndpoint(t *testing.T) {
	h := newHandler(t, nil)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/v1/scene/import", demoScene).Code)

	rec := do(t, h, http.MethodPost, "/v1/query", `{"expr":"class == \"Model\" && \"transform\" in roles"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 1, decode(t, rec)["count"])

	rec = do(t, h, http.MethodPost, "/v1/query", `{"expr":"class +"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["fields"])
}

func TestTypesAndProbes(t *testing.T) {
	h := newHandler(t, nil)

	rec := do(t, h, http.MethodGet, "/v1/types", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["types"])

	rec = do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	req.Header.Set("X-Request-ID", "abc")
	out := httptest.NewRecorder()
	h.ServeHTTP(out, req)
	assert.Equal(t, http.StatusOK, out.Code)
	assert.Equal(t, "abc", out.Header().Get("X-Request-ID"))
	assert.Equal(t, "ready", decode(t, out)["status"])
}

func TestConfigReload(t *testing.T) {
	rec := do(t, newHandler(t, nil), http.MethodPost, "/v1/config/reload", "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	path := filepath.Join(t.TempDir(), "scene.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: v1\nlog: { level: info }\n"), 0o644))
	loader, err := config.NewLoader(path)
	require.NoError(t, err)

	var applied *config.Config
	loader.OnChange(func(c *config.Config) { applied = c })
	h := newHandler(t, loader)

	require.NoError(t, os.WriteFile(path, []byte("version: v1\nlog: { level: debug }\n"), 0o644))
	rec = do(t, h, http.MethodPost, "/v1/config/reload", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "debug", decode(t, rec)["log_level"])
	require.NotNil(t, applied)
	assert.Equal(t, "debug", applied.Log.Level)

	require.NoError(t, os.WriteFile(path, []byte("version: v1\nlog: { level: loud }\n"), 0o644))
	rec = do(t, h, http.MethodPost, "/v1/config/reload", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
