// Package db persists the problem and user collections, each as a single
// pretty-printed JSON array file. There is no cache and no lock: every
// operation is a full read, an in-memory pass, and a full rewrite. That is
// O(records) per mutation, which is fine at personal-tracker scale, and it
// keeps the stores plain diffable files.
//
// Two processes mutating the same file can lose an update to each other.
// The deployment model is a single low-traffic process, so that race is
// accepted rather than guarded against.
package db

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
)

// ensureFile creates the backing file holding an empty collection if it does
// not exist yet, creating parent directories as needed. Idempotent.
func ensureFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create data directory for '%s': %w", path, err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat '%s': %w", path, err)
		}
		if err := os.WriteFile(path, []byte("[]"), 0644); err != nil {
			return fmt.Errorf("failed to create '%s': %w", path, err)
		}
		log.Printf("INFO: Created empty store file: %s", path)
	}
	return nil
}

// readCollection loads the entire backing file. A missing file or malformed
// content yields an empty collection, never an error: a corrupt store must
// not take the process down, it just starts over empty.
func readCollection[T any](path string) []T {
	records := make([]T, 0)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("WARN: Failed to read store file '%s': %v. Treating collection as empty.", path, err)
		}
		return records
	}

	// Probe validity before unmarshalling so truncated or hand-mangled files
	// are reported distinctly from shape mismatches.
	if !gjson.ValidBytes(data) {
		log.Printf("WARN: Store file '%s' contains malformed JSON. Treating collection as empty.", path)
		return records
	}

	if err := json.Unmarshal(data, &records); err != nil {
		log.Printf("WARN: Failed to parse store file '%s': %v. Treating collection as empty.", path, err)
		return make([]T, 0)
	}
	return records
}

// writeCollection rewrites the whole backing file with the serialized
// collection, pretty-printed so the store stays human-diffable. There is no
// partial-write protection; a crash mid-write is tolerated because
// readCollection degrades to an empty collection.
func writeCollection[T any](path string, records []T) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal collection for '%s': %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write store file '%s': %w", path, err)
	}
	return nil
}
