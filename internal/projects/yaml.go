package projects

import (
	"gopkg.in/yaml.v3"

	"github.com/kildhq/kild/internal/kilderr"
)

// ExportYAML renders the registry as YAML for hand-editing or sharing
// between machines — projects.json itself stays JSON (spec.md §6.1),
// this is a separate human-facing surface the way the teacher's own
// config files are YAML even though its other on-disk state isn't.
func (s *Store) ExportYAML() ([]byte, error) {
	reg, err := s.Load()
	if err != nil {
		return nil, err
	}
	out, err := yaml.Marshal(reg)
	if err != nil {
		return nil, kilderr.IO("encoding projects registry as yaml").Wrap(err)
	}
	return out, nil
}

// ImportYAML merges a YAML-encoded registry into the on-disk one:
// incoming entries overwrite an existing project sharing the same ID,
// anything else is appended, and the default-project flag from the
// existing registry wins if the import doesn't name a default of its
// own.
func (s *Store) ImportYAML(data []byte) error {
	var incoming Registry
	if err := yaml.Unmarshal(data, &incoming); err != nil {
		return kilderr.ConfigInvalid("parsing imported projects yaml: %s", err)
	}

	reg, err := s.Load()
	if err != nil {
		return err
	}

	byID := make(map[string]int, len(reg.Projects))
	for i, p := range reg.Projects {
		byID[p.ID] = i
	}

	hasDefault := false
	for _, p := range reg.Projects {
		if p.IsDefault {
			hasDefault = true
		}
	}

	for _, p := range incoming.Projects {
		if p.IsDefault {
			hasDefault = true
			for i := range reg.Projects {
				reg.Projects[i].IsDefault = false
			}
		}
		if i, ok := byID[p.ID]; ok {
			reg.Projects[i] = p
			continue
		}
		byID[p.ID] = len(reg.Projects)
		reg.Projects = append(reg.Projects, p)
	}

	if !hasDefault && len(reg.Projects) > 0 {
		reg.Projects[0].IsDefault = true
	}

	return s.save(reg)
}
