package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const StateFile = "manifest_state.json"

// ManifestState records the manifest version last applied by a successful sync.
type ManifestState struct {
	ManifestVersion uint32 `json:"manifest_version"`
}

// LoadManifestState reads the state from path. A missing file is not an
// error and yields version 0.
func LoadManifestState(path string) (*ManifestState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &ManifestState{}, nil
		}
		return nil, fmt.Errorf("reading manifest state: %w", err)
	}

	var state ManifestState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parsing manifest state: %w", err)
	}
	return &state, nil
}

// Save writes the state to path, creating the parent directory if needed.
func (s *ManifestState) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling manifest state: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("finalizing manifest state: %w", err)
	}
	return nil
}
