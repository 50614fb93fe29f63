// SPDX-License-Identifier: MIT

// Package fileio writes pipeline artefacts atomically. Every stage hands its
// output to the next stage through the filesystem, so a half-written file is
// worse than no file at all.
package fileio

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/renameio/v2"
	"github.com/klauspost/compress/gzip"

	"github.com/talosproj/talos/internal/log"
)

// WriteBytes safely writes data with full durability guarantees using renameio.
// This ensures atomic + durable writes: fsync before rename prevents partial
// artefacts on power failure.
func WriteBytes(path string, data []byte) error {
	logger := log.WithComponent("fileio")

	// renameio handles: temp file creation, fsync, atomic rename, cleanup on error
	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending file: %w", err)
	}
	defer func() {
		// Cleanup on error - renameio removes temp file if not committed
		if err := pending.Cleanup(); err != nil {
			logger.Debug().Err(err).Str("path", path).Msg("cleanup pending file")
		}
	}()

	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("write pending file: %w", err)
	}

	// CloseAtomicallyReplace: fsync + rename (durable + atomic)
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace %s: %w", path, err)
	}
	return nil
}

// CreatePending opens an atomic pending file for streamed output too large
// to buffer. The caller must CloseAtomicallyReplace on success; deferring
// Cleanup unconditionally is safe.
func CreatePending(path string) (*renameio.PendingFile, error) {
	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return nil, fmt.Errorf("create pending file %s: %w", path, err)
	}
	return pending, nil
}

// WriteJSON writes v as four-space indented JSON with a trailing newline.
// The indentation matches what downstream tooling expects from these files.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return WriteBytes(path, append(data, '\n'))
}

// ReadJSON loads a JSON artefact into v.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

type multiCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiCloser) Close() error {
	var err error
	for _, c := range m.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// OpenMaybeGzip opens a file that may be gzip-compressed. Compression is
// detected by magic bytes, not file extension.
func OpenMaybeGzip(path string) (io.ReadCloser, error) {
	// #nosec G304 -- input paths are provided by the operator via CLI
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	var sig [2]byte
	n, _ := io.ReadFull(fh, sig[:])
	if _, err := fh.Seek(0, io.SeekStart); err != nil {
		_ = fh.Close()
		return nil, fmt.Errorf("rewind %s: %w", path, err)
	}
	if n != 2 || sig[0] != 0x1f || sig[1] != 0x8b {
		return fh, nil
	}

	gz, err := gzip.NewReader(fh)
	if err != nil {
		_ = fh.Close()
		return nil, fmt.Errorf("open gzip %s: %w", path, err)
	}
	return &multiCloser{Reader: gz, closers: []io.Closer{gz, fh}}, nil
}
