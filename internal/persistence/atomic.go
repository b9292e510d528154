// Package persistence implements crash-safe, versioned JSON persistence:
// write-temp-then-rename with schema validation on load.
//
// The atomic write/rename discipline is grounded in
// fyrsmithlabs-contextd's internal/registry.(*Registry).save (marshal,
// os.WriteFile to a temp path, os.Rename, os.Remove the temp file on
// failure) and internal/vectorstore/wal.go, which adds the random temp
// suffix (keyPath + ".tmp." + randomSuffix()) that spec section 4.D
// requires (".state-<random>.tmp"). Both the state file and the ledger
// file route through AtomicWriteJSON so the discipline is implemented
// exactly once.
package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// AtomicWriteJSON marshals v to JSON (pretty-printed when pretty is true)
// and writes it to path via a sibling temp file followed by an atomic
// rename. prefix names the temp file: "<dir>/.<prefix>-<uuid>.tmp". On any
// failure the temp file is removed and a FileError is returned.
func AtomicWriteJSON(path, prefix string, v any, pretty bool) error {
	var data []byte
	var err error
	if pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return &Error{Kind: FileError, Message: "marshaling JSON", Cause: err}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &Error{Kind: FileError, Message: "creating directory " + dir, Cause: err}
	}

	tmpPath := filepath.Join(dir, fmt.Sprintf(".%s-%s.tmp", prefix, uuid.NewString()))
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		os.Remove(tmpPath)
		return &Error{Kind: FileError, Message: "writing temp file", Cause: err}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return &Error{Kind: FileError, Message: "renaming temp file into place", Cause: err}
	}

	return nil
}

// ReadFile reads the entire contents of path, wrapping any OS error in a
// FileError. A missing file is reported via os.IsNotExist on the Cause.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Kind: FileError, Message: "reading file " + path, Cause: err}
	}
	return data, nil
}
