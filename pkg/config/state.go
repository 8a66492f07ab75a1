package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

// StateFileVersion is the schema version of the bricoler.json state file.
const StateFileVersion = 1

const stateFileName = "bricoler.json"

// Alias is a stored named shortcut: invoking it re-applies the recorded
// command-line parameter tokens against the recorded task.
type Alias struct {
	Alias      string   `json:"alias"`
	Task       string   `json:"task"`
	Parameters []string `json:"parameters"`
}

// State is the persistent per-workdir state: a schema version, an
// installation UUID and the stored aliases. It also carries the exclusive
// run lock guarding the workdir against concurrent invocations.
type State struct {
	Version int     `json:"version"`
	UUID    string  `json:"uuid"`
	Aliases []Alias `json:"aliases"`

	path string
	lock *flock.Flock
}

// LoadState reads the state file in workdir, creating the directory and an
// initial state file when absent. An unknown schema version or a malformed
// UUID is fatal.
func LoadState(workdir string) (*State, error) {
	if err := os.MkdirAll(workdir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create workdir %q: %w", workdir, err)
	}
	path := filepath.Join(workdir, stateFileName)
	s := &State{path: path}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		s.Version = StateFileVersion
		s.UUID = uuid.NewString()
		s.Aliases = []Alias{}
		if err := s.save(); err != nil {
			return nil, err
		}
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file %q: %w", path, err)
	}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("state file %q is not valid JSON: %w", path, err)
	}
	if s.Version != StateFileVersion {
		return nil, fmt.Errorf("unknown or unsupported state file version: %d", s.Version)
	}
	if _, err := uuid.Parse(s.UUID); err != nil {
		return nil, fmt.Errorf("state file %q has invalid UUID: %w", path, err)
	}
	return s, nil
}

func (s *State) Path() string {
	return s.path
}

func (s *State) save() error {
	data, err := json.MarshalIndent(s, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}

// AddAlias stores a named shortcut, replacing any alias with the same
// name, and persists the state file.
func (s *State) AddAlias(name, taskName string, parameters []string) error {
	kept := s.Aliases[:0]
	for _, a := range s.Aliases {
		if a.Alias != name {
			kept = append(kept, a)
		}
	}
	s.Aliases = append(kept, Alias{
		Alias:      name,
		Task:       taskName,
		Parameters: append([]string(nil), parameters...),
	})
	return s.save()
}

func (s *State) LookupAlias(name string) (*Alias, bool) {
	for i := range s.Aliases {
		if s.Aliases[i].Alias == name {
			return &s.Aliases[i], true
		}
	}
	return nil, false
}

// Lock acquires a non-blocking exclusive lock on the state file. It must
// be held before any schedule runs; failure means another invocation is
// active in the same workdir.
func (s *State) Lock() error {
	s.lock = flock.New(s.path)
	locked, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to lock state file %q: %w", s.path, err)
	}
	if !locked {
		return fmt.Errorf("could not acquire lock on %q: another instance of bricoler may be running", s.path)
	}
	return nil
}

func (s *State) Unlock() error {
	if s.lock == nil {
		return nil
	}
	return s.lock.Unlock()
}
