package store

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/seismon/vorotomo/geom"
	"github.com/seismon/vorotomo/tomo"
)

// DirWriter persists one iteration's output as four gob
// files under a directory: a velocity-model file per phase,
// a realizations file holding both ensemble stacks with
// their variances and the grid geometry, and a catalog file
// holding the events and arrivals tables.
type DirWriter struct {
	dir string
}

// Realizations is the per-iteration ensemble artifact.
type Realizations struct {
	Grid geom.Grid

	PwaveStack [][]float64
	SwaveStack [][]float64

	PwaveVariance []float64
	SwaveVariance []float64
}

// Catalog is the per-iteration events/arrivals artifact.
type Catalog struct {
	Events   []tomo.Event
	Arrivals []tomo.Arrival
}

// NewDirWriter creates the output directory if needed and
// returns a writer into it.
func NewDirWriter(dir string) (*DirWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot directory: %w", err)
	}
	return &DirWriter{dir: dir}, nil
}

// ModelPath returns the file one phase's velocity model is
// written to for a given iteration. The file uses the same
// encoding as WriteModel, so a saved model can seed a later
// run through CSVSource.
func (w *DirWriter) ModelPath(iteration int, phase tomo.Phase) string {
	name := "pwave"
	if phase == tomo.PhaseS {
		name = "swave"
	}
	return filepath.Join(w.dir, fmt.Sprintf("%s_model_%04d.gob", name, iteration))
}

// RealizationsPath returns the ensemble file for a given
// iteration.
func (w *DirWriter) RealizationsPath(iteration int) string {
	return filepath.Join(w.dir, fmt.Sprintf("realizations_%04d.gob", iteration))
}

// CatalogPath returns the events/arrivals file for a given
// iteration.
func (w *DirWriter) CatalogPath(iteration int) string {
	return filepath.Join(w.dir, fmt.Sprintf("catalog_%04d.gob", iteration))
}

// WriteIteration writes the snapshot as four files,
// replacing any previous files for the same iteration
// atomically, one file at a time.
func (w *DirWriter) WriteIteration(snap *tomo.Snapshot) error {
	if err := w.writeGob(w.ModelPath(snap.Iteration, tomo.PhaseP), snap.PwaveModel); err != nil {
		return err
	}
	if err := w.writeGob(w.ModelPath(snap.Iteration, tomo.PhaseS), snap.SwaveModel); err != nil {
		return err
	}
	real := &Realizations{
		Grid:          snap.PwaveModel.Grid,
		PwaveStack:    snap.PwaveStack,
		SwaveStack:    snap.SwaveStack,
		PwaveVariance: snap.PwaveVariance,
		SwaveVariance: snap.SwaveVariance,
	}
	if err := w.writeGob(w.RealizationsPath(snap.Iteration), real); err != nil {
		return err
	}
	cat := &Catalog{Events: snap.Events, Arrivals: snap.Arrivals}
	return w.writeGob(w.CatalogPath(snap.Iteration), cat)
}

// ReadSnapshot loads one iteration's four files back into a
// snapshot.
func (w *DirWriter) ReadSnapshot(iteration int) (*tomo.Snapshot, error) {
	pwave, err := readModel(w.ModelPath(iteration, tomo.PhaseP))
	if err != nil {
		return nil, err
	}
	swave, err := readModel(w.ModelPath(iteration, tomo.PhaseS))
	if err != nil {
		return nil, err
	}
	var real Realizations
	if err := readGob(w.RealizationsPath(iteration), &real); err != nil {
		return nil, err
	}
	var cat Catalog
	if err := readGob(w.CatalogPath(iteration), &cat); err != nil {
		return nil, err
	}
	return &tomo.Snapshot{
		Iteration:     iteration,
		PwaveModel:    pwave,
		SwaveModel:    swave,
		PwaveStack:    real.PwaveStack,
		SwaveStack:    real.SwaveStack,
		PwaveVariance: real.PwaveVariance,
		SwaveVariance: real.SwaveVariance,
		Events:        cat.Events,
		Arrivals:      cat.Arrivals,
	}, nil
}

func (w *DirWriter) writeGob(path string, value any) error {
	tmp, err := os.CreateTemp(w.dir, "snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(value); err != nil {
		tmp.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

func readGob(path string, value any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	defer f.Close()
	if err := gob.NewDecoder(f).Decode(value); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
