// Package artifacts reads compiled contracts from a Hardhat build directory.
package artifacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

var ErrNotFound = errors.New("artifact not found")

// Artifact is the subset of a hh-sol-artifact-1 file the deployer uses.
type Artifact struct {
	Format           string                               `json:"_format"`
	ContractName     string                               `json:"contractName"`
	SourceName       string                               `json:"sourceName"`
	ABI              json.RawMessage                      `json:"abi"`
	Bytecode         string                               `json:"bytecode"`
	DeployedBytecode string                               `json:"deployedBytecode"`
	LinkReferences   map[string]map[string][]LinkLocation `json:"linkReferences"`
}

type LinkLocation struct {
	Start  int `json:"start"`
	Length int `json:"length"`
}

// CreationCode decodes the artifact's bytecode. Abstract contracts and
// contracts with unlinked libraries cannot be deployed as-is.
func (a *Artifact) CreationCode() ([]byte, error) {
	if len(a.LinkReferences) > 0 {
		return nil, fmt.Errorf("%s has unlinked library references", a.ContractName)
	}
	code, err := hexutil.Decode(a.Bytecode)
	if err != nil {
		return nil, fmt.Errorf("decode %s bytecode: %w", a.ContractName, err)
	}
	if len(code) == 0 {
		return nil, fmt.Errorf("%s has no creation code", a.ContractName)
	}
	return code, nil
}

// Store loads artifacts by name and caches them.
type Store struct {
	dir string

	mu    sync.Mutex
	cache map[string]*Artifact
}

func NewStore(dir string) *Store {
	return &Store{
		dir:   dir,
		cache: make(map[string]*Artifact),
	}
}

// Load resolves either a fully qualified name ("contracts/dex/MiniChefV2.sol:MiniChefV2")
// or a bare contract name that must be unique in the build.
func (s *Store) Load(name string) (*Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a, ok := s.cache[name]; ok {
		return a, nil
	}

	path, err := s.locate(name)
	if err != nil {
		return nil, err
	}
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", name, err)
	}
	var a Artifact
	if err := json.Unmarshal(blob, &a); err != nil {
		return nil, fmt.Errorf("parse artifact %s: %w", name, err)
	}
	s.cache[name] = &a
	return &a, nil
}

// Bytecode returns the creation code of the named contract.
func (s *Store) Bytecode(name string) ([]byte, error) {
	a, err := s.Load(name)
	if err != nil {
		return nil, err
	}
	return a.CreationCode()
}

func (s *Store) locate(name string) (string, error) {
	if source, contract, ok := strings.Cut(name, ":"); ok {
		path := filepath.Join(s.dir, filepath.FromSlash(source), contract+".json")
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", fmt.Errorf("%w: %s", ErrNotFound, name)
			}
			return "", fmt.Errorf("stat artifact %s: %w", name, err)
		}
		return path, nil
	}

	var matches []string
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == "build-info" {
			return filepath.SkipDir
		}
		if !d.IsDir() && d.Name() == name+".json" {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("scan artifacts for %s: %w", name, err)
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	case 1:
		return matches[0], nil
	default:
		rel := make([]string, len(matches))
		for i, m := range matches {
			rel[i], _ = filepath.Rel(s.dir, m)
		}
		return "", fmt.Errorf("artifact %s is ambiguous, use a fully qualified name: %s", name, strings.Join(rel, ", "))
	}
}
