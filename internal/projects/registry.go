// Package projects is the project registry (spec.md §3 "Project"
// entity): tracks registered git repositories in a single
// ~/.kild/projects.json file, grounded on original_source's
// kild/src/app/project.rs command surface (add/list/remove/info/default)
// and on internal/session's atomic-save pattern for the on-disk format.
package projects

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/kildhq/kild/internal/kilderr"
)

// Project is a registered repository (spec.md §3).
type Project struct {
	ID        string    `json:"project_id" yaml:"project_id"`
	Name      string    `json:"display_name" yaml:"display_name"`
	Root      string    `json:"root_path" yaml:"root_path"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	IsDefault bool      `json:"is_default" yaml:"is_default,omitempty"`
}

// Registry is the full on-disk project list.
type Registry struct {
	Projects []Project `json:"projects" yaml:"projects"`
}

// ProjectID derives a stable id from a repo's normalized path (spec.md
// §3: "stable hash of normalized path").
func ProjectID(root string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	abs = filepath.Clean(abs)
	sum := sha256.Sum256([]byte(abs))
	return hex.EncodeToString(sum[:])[:16]
}

// Store persists the registry under homeDir/.kild/projects.json.
type Store struct {
	path string
}

// NewStore returns a Store rooted at homeDir/.kild/projects.json.
func NewStore(homeDir string) *Store {
	return &Store{path: filepath.Join(homeDir, ".kild", "projects.json")}
}

func (s *Store) Load() (*Registry, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &Registry{}, nil
	}
	if err != nil {
		return nil, kilderr.IO("reading %s", s.path).Wrap(err)
	}
	var reg Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, kilderr.IO("parsing %s", s.path).Wrap(err)
	}
	return &reg, nil
}

func (s *Store) save(reg *Registry) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return kilderr.IO("creating %s", dir).Wrap(err)
	}

	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return kilderr.IO("encoding projects registry").Wrap(err)
	}

	tmp, err := os.CreateTemp(dir, "projects-*.json.tmp")
	if err != nil {
		return kilderr.IO("creating temp file in %s", dir).Wrap(err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return kilderr.IO("writing %s", tmp.Name()).Wrap(err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return kilderr.IO("fsyncing %s", tmp.Name()).Wrap(err)
	}
	if err := tmp.Close(); err != nil {
		return kilderr.IO("closing %s", tmp.Name()).Wrap(err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return kilderr.IO("renaming into %s", s.path).Wrap(err)
	}
	return nil
}

// Register adds root to the registry (deriving its id), or returns the
// existing entry if root is already registered.
func (s *Store) Register(root, name string) (Project, error) {
	reg, err := s.Load()
	if err != nil {
		return Project{}, err
	}

	id := ProjectID(root)
	for _, p := range reg.Projects {
		if p.ID == id {
			return p, nil
		}
	}

	abs, _ := filepath.Abs(root)
	if name == "" {
		name = filepath.Base(abs)
	}
	p := Project{
		ID:        id,
		Name:      name,
		Root:      abs,
		CreatedAt: time.Now().UTC(),
		IsDefault: len(reg.Projects) == 0,
	}
	reg.Projects = append(reg.Projects, p)
	if err := s.save(reg); err != nil {
		return Project{}, err
	}
	return p, nil
}

// List returns every registered project, sorted by display name.
func (s *Store) List() ([]Project, error) {
	reg, err := s.Load()
	if err != nil {
		return nil, err
	}
	out := append([]Project(nil), reg.Projects...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Find locates a project by id or root path.
func (s *Store) Find(identifier string) (Project, error) {
	reg, err := s.Load()
	if err != nil {
		return Project{}, err
	}
	abs, _ := filepath.Abs(identifier)
	for _, p := range reg.Projects {
		if p.ID == identifier || p.Root == abs || p.Root == identifier {
			return p, nil
		}
	}
	return Project{}, kilderr.IO("no project matches %q", identifier)
}

// Remove deletes a project from the registry by id or root path.
func (s *Store) Remove(identifier string) error {
	reg, err := s.Load()
	if err != nil {
		return err
	}
	target, err := s.Find(identifier)
	if err != nil {
		return err
	}
	out := reg.Projects[:0]
	for _, p := range reg.Projects {
		if p.ID != target.ID {
			out = append(out, p)
		}
	}
	reg.Projects = out
	return s.save(reg)
}

// SetDefault marks identifier as the sole default project.
func (s *Store) SetDefault(identifier string) error {
	reg, err := s.Load()
	if err != nil {
		return err
	}
	target, err := s.Find(identifier)
	if err != nil {
		return err
	}
	for i := range reg.Projects {
		reg.Projects[i].IsDefault = reg.Projects[i].ID == target.ID
	}
	return s.save(reg)
}

// Detect walks up from startDir looking for a .git directory, mirroring
// the original implementation's git/handler.rs detect_project: the
// nearest enclosing repo root is the project root.
func Detect(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", kilderr.IO("resolving %s", startDir).Wrap(err)
	}
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info != nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", kilderr.IO("no git repository found above %s", startDir)
		}
		dir = parent
	}
}
