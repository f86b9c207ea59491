// Package api exposes the scene over HTTP. Every handler runs its scene
// work through the engine so the scene only ever sees one writer.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyaneshwarpardhi/scenegraph/internal/config"
	"github.com/gyaneshwarpardhi/scenegraph/internal/engine"
	"github.com/gyaneshwarpardhi/scenegraph/internal/metrics"
	"github.com/gyaneshwarpardhi/scenegraph/internal/node"
	"github.com/gyaneshwarpardhi/scenegraph/internal/query"
	"github.com/gyaneshwarpardhi/scenegraph/internal/scene"
	"github.com/gyaneshwarpardhi/scenegraph/internal/sceneio"
	"github.com/gyaneshwarpardhi/scenegraph/internal/store"
)

const maxSceneBytes = 32 << 20

// Handler holds all HTTP handler dependencies.
type Handler struct {
	eng    *engine.Engine
	loader *config.Loader
	logger *slog.Logger
	mux    *http.ServeMux
}

// New creates an HTTP handler and registers all routes. loader may be nil,
// in which case config reload is unavailable.
func New(eng *engine.Engine, loader *config.Loader, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{eng: eng, loader: loader, logger: logger, mux: http.NewServeMux()}

	h.mux.HandleFunc("GET /v1/nodes", h.listNodes)
	h.mux.HandleFunc("POST /v1/nodes", h.createNode)
	h.mux.HandleFunc("GET /v1/nodes/by-name/{name}", h.nodeByName)
	h.mux.HandleFunc("GET /v1/nodes/{id}", h.getNode)
	h.mux.HandleFunc("PATCH /v1/nodes/{id}", h.patchNode)
	h.mux.HandleFunc("DELETE /v1/nodes/{id}", h.deleteNode)
	h.mux.HandleFunc("GET /v1/nodes/{id}/closure", h.closure)
	h.mux.HandleFunc("POST /v1/query", h.query)

	h.mux.HandleFunc("POST /v1/undo", h.undo)
	h.mux.HandleFunc("POST /v1/redo", h.redo)
	h.mux.HandleFunc("POST /v1/undo/checkpoint", h.checkpoint)

	h.mux.HandleFunc("GET /v1/scene", h.summary)
	h.mux.HandleFunc("POST /v1/scene/import", h.importScene)
	h.mux.HandleFunc("POST /v1/scene/connect", h.connectScene)
	h.mux.HandleFunc("POST /v1/scene/clear", h.clearScene)
	h.mux.HandleFunc("GET /v1/scene/export", h.exportScene)
	h.mux.HandleFunc("GET /v1/types", h.listTypes)

	h.mux.HandleFunc("POST /v1/config/reload", h.reloadConfig)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return requestLogger(logger, h.mux)
}

// call runs fn on the engine and narrows its result.
func call[T any](h *Handler, r *http.Request, name string, fn func(s *scene.Scene) (T, error)) (T, error) {
	v, err := h.eng.Do(r.Context(), name, func(s *scene.Scene) (any, error) { return fn(s) })
	if err != nil {
		var zero T
		return zero, err
	}
	t, _ := v.(T)
	return t, nil
}

func records(s *scene.Scene, ns []node.Node) []sceneio.NodeRecord {
	codec := sceneio.NewCodec(s.Registry())
	out := make([]sceneio.NodeRecord, 0, len(ns))
	for _, n := range ns {
		out = append(out, codec.Record(n))
	}
	return out
}

func lookup(s *scene.Scene, id string) (node.Node, error) {
	n := s.GetByID(id)
	if n == nil {
		if renamed := s.ChangedID(id); renamed != "" {
			return nil, fmt.Errorf("node %s (now %s): %w", id, renamed, store.ErrNodeNotPresent)
		}
		return nil, fmt.Errorf("node %s: %w", id, store.ErrNodeNotPresent)
	}
	return n, nil
}

// GET /v1/nodes?class=&name=: live nodes in scene order.
func (h *Handler) listNodes(w http.ResponseWriter, r *http.Request) {
	class, name := r.URL.Query().Get("class"), r.URL.Query().Get("name")
	out, err := call(h, r, "list nodes", func(s *scene.Scene) ([]sceneio.NodeRecord, error) {
		var ns []node.Node
		switch {
		case class != "" && name != "":
			ns = s.GetNodesByClassByName(class, name)
		case class != "":
			ns = s.GetAllByClass(class)
		case name != "":
			ns = s.GetNodesByName(name)
		default:
			ns = s.Nodes()
		}
		return records(s, ns), nil
	})
	if err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(out), "nodes": out})
}

// GET /v1/nodes/by-name/{name}?match=substring: first node with the name.
func (h *Handler) nodeByName(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	match := store.MatchExact
	switch r.URL.Query().Get("match") {
	case "", "exact":
	case "substring":
		match = store.MatchSubstring
	default:
		writeError(w, http.StatusBadRequest, "match must be exact or substring")
		return
	}
	rec, err := call(h, r, "node by name", func(s *scene.Scene) (*sceneio.NodeRecord, error) {
		n := s.GetByName(name, match)
		if n == nil {
			return nil, fmt.Errorf("name %q: %w", name, store.ErrNodeNotPresent)
		}
		return &records(s, []node.Node{n})[0], nil
	})
	if err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type nodeView struct {
	sceneio.NodeRecord
	Class        string   `json:"class"`
	ReferencedBy []string `json:"referenced_by"`
}

// GET /v1/nodes/{id}
func (h *Handler) getNode(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	view, err := call(h, r, "get node", func(s *scene.Scene) (*nodeView, error) {
		n, err := lookup(s, id)
		if err != nil {
			return nil, err
		}
		return &nodeView{
			NodeRecord:   records(s, []node.Node{n})[0],
			Class:        n.ClassName(),
			ReferencedBy: s.ReferencingIDs(n.ID()),
		}, nil
	})
	if err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// POST /v1/nodes: body is a node record; the ID may be reassigned.
func (h *Handler) createNode(w http.ResponseWriter, r *http.Request) {
	var rec sceneio.NodeRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	out, err := call(h, r, "create node", func(s *scene.Scene) (*sceneio.NodeRecord, error) {
		n, err := sceneio.NewCodec(s.Registry()).Decode(rec)
		if err != nil {
			return nil, invalid(err)
		}
		s.SaveStateForUndo()
		got, err := s.Add(n)
		if err != nil {
			return nil, err
		}
		if got == nil {
			return nil, invalid(fmt.Errorf("%s nodes are not added to the scene", rec.Tag))
		}
		return &records(s, []node.Node{got})[0], nil
	})
	if err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

type patchRequest struct {
	Name  *string           `json:"name"`
	Attrs map[string]string `json:"attrs"`
	Refs  map[string]string `json:"refs"` // role -> id; an empty id clears the role
}

// PATCH /v1/nodes/{id}: undoable in-place edit.
func (h *Handler) patchNode(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req patchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	out, err := call(h, r, "patch node", func(s *scene.Scene) (*sceneio.NodeRecord, error) {
		n, err := lookup(s, id)
		if err != nil {
			return nil, err
		}
		edit := node.Clone(n)
		if req.Name != nil {
			edit.SetName(*req.Name)
		}
		if len(req.Attrs) > 0 {
			p, ok := edit.(node.Persistable)
			if !ok {
				return nil, invalid(fmt.Errorf("%s has no attributes", n.ClassName()))
			}
			if err := p.ReadAttributes(req.Attrs); err != nil {
				return nil, invalid(err)
			}
		}
		for role, target := range req.Refs {
			edit.Core().SetReference(role, target)
		}
		s.SaveStateForUndo(n)
		if err := s.Overwrite(n, edit); err != nil {
			return nil, err
		}
		return &records(s, []node.Node{n})[0], nil
	})
	if err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// DELETE /v1/nodes/{id}
func (h *Handler) deleteNode(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	_, err := call(h, r, "delete node", func(s *scene.Scene) (struct{}, error) {
		n, err := lookup(s, id)
		if err != nil {
			return struct{}{}, err
		}
		s.SaveStateForUndo()
		return struct{}{}, s.Remove(n)
	})
	if err != nil {
		writeOpError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /v1/nodes/{id}/closure: the node and everything it references,
// directly or not.
func (h *Handler) closure(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	out, err := call(h, r, "closure", func(s *scene.Scene) ([]sceneio.NodeRecord, error) {
		n, err := lookup(s, id)
		if err != nil {
			return nil, err
		}
		return records(s, s.ReferencedClosure(n)), nil
	})
	if err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(out), "nodes": out})
}

// POST /v1/query: {"expr": "..."}.
func (h *Handler) query(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Expr string `json:"expr"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	f, err := query.Compile(req.Expr)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error(), "fields": query.Fields()})
		return
	}
	out, err := call(h, r, "query", func(s *scene.Scene) ([]sceneio.NodeRecord, error) {
		ns, err := f.Select(s.Nodes())
		if err != nil {
			return nil, invalid(err)
		}
		return records(s, ns), nil
	})
	if err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(out), "nodes": out})
}

type undoStatus struct {
	Applied   bool `json:"applied"`
	Enabled   bool `json:"enabled"`
	UndoDepth int  `json:"undo_depth"`
	RedoDepth int  `json:"redo_depth"`
}

func status(s *scene.Scene, applied bool) undoStatus {
	return undoStatus{Applied: applied, Enabled: s.UndoEnabled(), UndoDepth: s.UndoDepth(), RedoDepth: s.RedoDepth()}
}

// POST /v1/undo
func (h *Handler) undo(w http.ResponseWriter, r *http.Request) {
	out, err := call(h, r, "undo", func(s *scene.Scene) (undoStatus, error) {
		return status(s, s.Undo()), nil
	})
	if err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// POST /v1/redo
func (h *Handler) redo(w http.ResponseWriter, r *http.Request) {
	out, err := call(h, r, "redo", func(s *scene.Scene) (undoStatus, error) {
		return status(s, s.Redo()), nil
	})
	if err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// POST /v1/undo/checkpoint: {"ids": [...]} deep-copies the named nodes,
// {"all": true} copies every node, an empty body only records membership.
func (h *Handler) checkpoint(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
		All bool     `json:"all"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	out, err := call(h, r, "checkpoint", func(s *scene.Scene) (undoStatus, error) {
		if req.All {
			s.SaveStateForUndoAll()
			return status(s, true), nil
		}
		ns := make([]node.Node, 0, len(req.IDs))
		for _, id := range req.IDs {
			n, err := lookup(s, id)
			if err != nil {
				return undoStatus{}, err
			}
			ns = append(ns, n)
		}
		s.SaveStateForUndo(ns...)
		return status(s, true), nil
	})
	if err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type sceneSummary struct {
	ID        string         `json:"id"`
	Nodes     int            `json:"nodes"`
	Edges     int            `json:"edges"`
	Classes   map[string]int `json:"classes"`
	States    string         `json:"states"`
	Modified  bool           `json:"modified"`
	UndoDepth int            `json:"undo_depth"`
	RedoDepth int            `json:"redo_depth"`
}

// GET /v1/scene
func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	out, err := call(h, r, "summary", func(s *scene.Scene) (sceneSummary, error) {
		classes := make(map[string]int)
		for _, c := range s.NodeClasses() {
			classes[c] = s.NumberOfNodesByClass(c)
		}
		return sceneSummary{
			ID:        s.ID(),
			Nodes:     s.Len(),
			Edges:     s.EdgeCount(),
			Classes:   classes,
			States:    s.States().String(),
			Modified:  s.ModifiedSinceRead(),
			UndoDepth: s.UndoDepth(),
			RedoDepth: s.RedoDepth(),
		}, nil
	})
	if err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func readScene(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSceneBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return nil, false
	}
	return data, true
}

// POST /v1/scene/import: body is a YAML scene document.
func (h *Handler) importScene(w http.ResponseWriter, r *http.Request) {
	data, ok := readScene(w, r)
	if !ok {
		return
	}
	res, err := call(h, r, "import", func(s *scene.Scene) (*scene.ImportResult, error) {
		return s.Import(bytes.NewReader(data), sceneio.NewCodec(s.Registry()))
	})
	if err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// POST /v1/scene/connect: replaces the scene, keeping singletons.
func (h *Handler) connectScene(w http.ResponseWriter, r *http.Request) {
	data, ok := readScene(w, r)
	if !ok {
		return
	}
	res, err := call(h, r, "connect", func(s *scene.Scene) (*scene.ImportResult, error) {
		return s.Connect(bytes.NewReader(data), sceneio.NewCodec(s.Registry()))
	})
	if err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// POST /v1/scene/clear?keep_singletons=false
func (h *Handler) clearScene(w http.ResponseWriter, r *http.Request) {
	keep := true
	if v := r.URL.Query().Get("keep_singletons"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "keep_singletons must be a boolean")
			return
		}
		keep = b
	}
	left, err := call(h, r, "clear", func(s *scene.Scene) (int, error) {
		s.Clear(keep)
		return s.Len(), nil
	})
	if err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cleared": true, "nodes": left})
}

// GET /v1/scene/export: the saved nodes as a YAML document.
func (h *Handler) exportScene(w http.ResponseWriter, r *http.Request) {
	data, err := call(h, r, "export", func(s *scene.Scene) ([]byte, error) {
		var buf bytes.Buffer
		if err := s.Commit(&buf, sceneio.NewCodec(s.Registry())); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	})
	if err != nil {
		writeOpError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

type typeInfo struct {
	Tag         string `json:"tag"`
	Class       string `json:"class"`
	HasTemplate bool   `json:"has_template"`
}

// GET /v1/types: registered node types.
func (h *Handler) listTypes(w http.ResponseWriter, r *http.Request) {
	out, err := call(h, r, "types", func(s *scene.Scene) ([]typeInfo, error) {
		reg := s.Registry()
		var types []typeInfo
		for _, rg := range reg.Registrations() {
			class := rg.Prototype.ClassName()
			types = append(types, typeInfo{
				Tag:         rg.Tag,
				Class:       class,
				HasTemplate: reg.DefaultTemplate(class) != nil,
			})
		}
		return types, nil
	})
	if err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"types": out, "fields": query.Fields()})
}

// POST /v1/config/reload: re-read the config file; OnChange subscribers
// apply it.
func (h *Handler) reloadConfig(w http.ResponseWriter, r *http.Request) {
	if h.loader == nil {
		writeError(w, http.StatusNotImplemented, "no config file loaded")
		return
	}
	cfg, err := h.loader.Reload()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := config.Validate(cfg); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reloaded":       true,
		"log_level":      cfg.Log.Level,
		"undo_disabled":  cfg.Scene.Undo.Disabled,
		"undo_max_depth": cfg.Scene.Undo.MaxDepth,
	})
}

// GET /healthz: always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz: 503 if the operation queue is more than 80% full.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	util := h.eng.QueueUtilization()
	metrics.QueueUtilization.Set(util)
	if util > 0.8 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":            "overloaded",
			"queue_utilization": util,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "ready",
		"queue_utilization": util,
	})
}
