package scene

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/scenegraph/internal/event"
	"github.com/gyaneshwarpardhi/scenegraph/internal/metrics"
	"github.com/gyaneshwarpardhi/scenegraph/internal/node"
)

// ErrParseFailure is returned when an import source cannot be parsed. The
// scene is left untouched.
var ErrParseFailure = errors.New("scene parse failure")

// Parser turns a serialized scene into unintegrated nodes.
type Parser interface {
	Parse(r io.Reader) ([]node.Node, error)
}

// Writer serializes nodes.
type Writer interface {
	Write(w io.Writer, nodes []node.Node) error
}

// ImportResult summarizes one import.
type ImportResult struct {
	BatchID    string   `json:"batch_id"`
	Parsed     int      `json:"parsed"`
	Added      int      `json:"added"`
	Merged     int      `json:"merged"`
	Renamed    int      `json:"renamed"`
	Skipped    int      `json:"skipped"`
	NodeIDs    []string `json:"node_ids"`
	DurationMs int64    `json:"duration_ms"`
}

// Import parses r and integrates the nodes into the current scene. Nothing
// is integrated unless parsing succeeds.
func (s *Scene) Import(r io.Reader, p Parser) (*ImportResult, error) {
	start := time.Now()
	incoming, err := s.parse(r, p)
	if err != nil {
		return nil, err
	}
	res := s.integrate(incoming)
	s.finishImport(res, start)
	return res, nil
}

// Connect replaces the scene content with r. Singletons survive and take
// on the imported singleton content.
func (s *Scene) Connect(r io.Reader, p Parser) (*ImportResult, error) {
	start := time.Now()
	incoming, err := s.parse(r, p)
	if err != nil {
		return nil, err
	}
	s.states.Start(event.BatchProcess, 0)
	s.Clear(true)
	res := s.integrate(incoming)
	if err := s.states.End(event.BatchProcess); err != nil {
		s.logger.Error("connect: state stack", "err", err)
	}
	s.finishImport(res, start)
	return res, nil
}

func (s *Scene) parse(r io.Reader, p Parser) ([]node.Node, error) {
	incoming, err := p.Parse(r)
	if err != nil {
		metrics.Imports.WithLabelValues("parse_error").Inc()
		s.logger.Warn("import aborted", "err", err)
		return nil, fmt.Errorf("import: %w: %w", ErrParseFailure, err)
	}
	return incoming, nil
}

// integrate adds incoming nodes under the Import state. IDs carried by the
// incoming nodes are reserved first so IDs minted for conflicting nodes
// cannot collide with them. Once all are in, references to renamed IDs are
// rewritten in the incoming nodes only.
func (s *Scene) integrate(incoming []node.Node) *ImportResult {
	res := &ImportResult{BatchID: uuid.NewString(), Parsed: len(incoming)}
	ids := s.Allocator()

	s.states.Start(event.Import, len(incoming))
	for _, n := range incoming {
		ids.Reserve(n.ID())
	}

	type rename struct{ from, to string }
	var renames []rename
	landed := make(map[string]struct{}, len(incoming))
	live := make([]node.Node, 0, len(incoming))

	for i, n := range incoming {
		oldID := n.ID()
		got, err := s.Add(n)
		switch {
		case err != nil:
			s.logger.Warn("import: node skipped", "id", oldID, "class", n.ClassName(), "err", err)
			res.Skipped++
			continue
		case got == nil:
			res.Skipped++
			continue
		case got != n:
			res.Merged++
		default:
			res.Added++
		}
		if _, dup := landed[got.ID()]; !dup {
			live = append(live, got)
			res.NodeIDs = append(res.NodeIDs, got.ID())
		}
		landed[got.ID()] = struct{}{}
		if oldID != "" && oldID != got.ID() {
			renames = append(renames, rename{oldID, got.ID()})
		}
		s.states.Progress(event.Import, i+1)
	}

	accept := func(id string) bool {
		_, ok := landed[id]
		return ok
	}
	for _, rn := range renames {
		s.PropagateRename(rn.from, rn.to, accept)
	}
	res.Renamed = len(renames)
	for _, n := range live {
		n.UpdateReferences(s.Store)
		s.Reindex(n)
	}
	ids.ClearReservations()

	if err := s.states.End(event.Import); err != nil {
		s.logger.Error("import: state stack", "err", err)
	}
	s.bus.Emit(event.Notification{Kind: event.NewScene, BatchID: res.BatchID})
	return res
}

func (s *Scene) finishImport(res *ImportResult, start time.Time) {
	elapsed := time.Since(start)
	res.DurationMs = elapsed.Milliseconds()
	metrics.Imports.WithLabelValues("ok").Inc()
	metrics.ImportDuration.Observe(float64(elapsed.Microseconds()) / 1000)
	s.markRead()
	s.logger.Info("scene imported",
		"batch", res.BatchID,
		"parsed", res.Parsed,
		"added", res.Added,
		"merged", res.Merged,
		"renamed", res.Renamed,
		"skipped", res.Skipped,
		"live", s.Len())
}

// Commit writes every node saved with the scene through wr.
func (s *Scene) Commit(w io.Writer, wr Writer) error {
	s.states.Start(event.Save, 0)
	var out []node.Node
	for _, n := range s.Nodes() {
		if n.SaveWithScene() {
			out = append(out, n)
		}
	}
	err := wr.Write(w, out)
	if endErr := s.states.End(event.Save); endErr != nil {
		s.logger.Error("commit: state stack", "err", endErr)
	}
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.markRead()
	s.logger.Info("scene committed", "nodes", len(out))
	return nil
}

// Clear removes all nodes under the Close state, keeping singletons when
// asked; kept singletons are reset to their defaults. Undo history and
// issued ID counters are dropped.
func (s *Scene) Clear(keepSingletons bool) {
	s.states.Start(event.Close, 0)
	enabled := s.undo.Enabled()
	s.undo.SetEnabled(false)

	s.Store.Clear(keepSingletons)
	s.undo.Clear()
	if keepSingletons {
		s.ResetNodes()
	}

	s.undo.SetEnabled(enabled)
	if err := s.states.End(event.Close); err != nil {
		s.logger.Error("clear: state stack", "err", err)
	}
	s.logger.Info("scene cleared", "kept_singletons", keepSingletons, "live", s.Len())
}
