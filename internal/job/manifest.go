// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package job

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ManifestHeader is the column header the aggregation tool expects.
var ManifestHeader = []string{"sample_id", "molecule_h5"}

// ManifestRow maps one group member to its quantification artifact.
type ManifestRow struct {
	SampleID   string
	MoleculeH5 string
}

// Manifest is the tabular input of an Aggregate job.
type Manifest struct {
	Path string
	Rows []ManifestRow
}

// Encode writes the manifest as CSV, header first, rows in member order.
func (m *Manifest) Encode(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ManifestHeader); err != nil {
		return err
	}
	for _, r := range m.Rows {
		if err := cw.Write([]string{r.SampleID, r.MoleculeH5}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes the manifest to m.Path, creating parent directories. The
// file is replaced atomically so a concurrent reader never sees a partial
// manifest.
func (m *Manifest) WriteFile() error {
	var buf bytes.Buffer
	if err := m.Encode(&buf); err != nil {
		return fmt.Errorf("encoding manifest %s: %w", m.Path, err)
	}

	dir := filepath.Dir(m.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating manifest dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".manifest-*")
	if err != nil {
		return fmt.Errorf("creating manifest: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("writing manifest %s: %w", m.Path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing manifest %s: %w", m.Path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("writing manifest %s: %w", m.Path, err)
	}
	return os.Rename(tmp.Name(), m.Path)
}
