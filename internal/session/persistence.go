package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/kildhq/kild/internal/kilderr"
)

// Store is the persistence layer (C1). Files live under Dir, one JSON
// per session named by replacing "/" in the session id with "_", plus
// two sidecars per session (spec.md §6.1).
type Store struct {
	Dir string
}

func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

func (s *Store) mainPath(id string) string {
	return filepath.Join(s.Dir, fileName(id)+".json")
}

func (s *Store) agentStatusPath(id string) string {
	return filepath.Join(s.Dir, fileName(id)+".agent.json")
}

func (s *Store) prInfoPath(id string) string {
	return filepath.Join(s.Dir, fileName(id)+".pr.json")
}

func fileName(sessionID string) string {
	return strings.ReplaceAll(sessionID, "/", "_")
}

// Load reads and parses a single session record.
func (s *Store) Load(id string) (*Session, error) {
	return loadFile(s.mainPath(id))
}

func loadFile(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, kilderr.SessionNotFound(path)
		}
		return nil, kilderr.IO("reading session file %s", path).Wrap(err)
	}
	return decode(data)
}

func decode(data []byte) (*Session, error) {
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, kilderr.IO("parsing session json").Wrap(err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err == nil {
		extra := make(map[string]any)
		for k, v := range raw {
			if !knownField(k) {
				extra[k] = v
			}
		}
		if len(extra) > 0 {
			sess.Extra = extra
		}
	}
	return &sess, nil
}

var knownFields = map[string]bool{
	"id": true, "project_id": true, "branch": true, "worktree_path": true,
	"agent": true, "status": true, "created_at": true, "updated_at": true,
	"port_range_start": true, "port_range_end": true, "port_count": true,
	"runtime_mode": true, "agents": true,
}

func knownField(k string) bool { return knownFields[k] }

// encode marshals a session, re-merging any preserved unknown fields so
// save(load(S)) round-trips byte-for-byte after normalization (spec §8).
func encode(sess *Session) ([]byte, error) {
	b, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}
	if len(sess.Extra) == 0 {
		return b, nil
	}
	var merged map[string]any
	if err := json.Unmarshal(b, &merged); err != nil {
		return nil, err
	}
	for k, v := range sess.Extra {
		if !knownField(k) {
			merged[k] = v
		}
	}
	return json.MarshalIndent(merged, "", "  ")
}

// LoadAll scans the sessions directory, skipping unreadable/unparseable
// files with a logged warning, returning successfully parsed records
// sorted by SessionID for deterministic output (spec §4.1).
func (s *Store) LoadAll() ([]*Session, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, kilderr.IO("scanning sessions directory %s", s.Dir).Wrap(err)
	}

	var out []*Session
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		if strings.HasSuffix(name, ".agent.json") || strings.HasSuffix(name, ".pr.json") {
			continue
		}
		sess, err := loadFile(filepath.Join(s.Dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "kild: warning: skipping unreadable session file %s: %s\n", name, err)
			continue
		}
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Save writes a session record atomically: write-temp, fsync, rename.
func (s *Store) Save(sess *Session) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return kilderr.IO("creating sessions directory").Wrap(err)
	}
	data, err := encode(sess)
	if err != nil {
		return kilderr.IO("encoding session").Wrap(err)
	}
	return atomicWrite(s.mainPath(sess.ID), data)
}

// atomicWrite implements write-temp-then-rename: the temp file lives in
// the same directory as the target (so rename stays on one filesystem
// and is atomic on POSIX), is fsynced before rename, and the rename
// itself provides the "readers never see a torn file" guarantee.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return kilderr.IO("creating temp file in %s", dir).Wrap(err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed away

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return kilderr.IO("writing temp file").Wrap(err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return kilderr.IO("fsyncing temp file").Wrap(err)
	}
	if err := tmp.Close(); err != nil {
		return kilderr.IO("closing temp file").Wrap(err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return kilderr.IO("chmod temp file").Wrap(err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return kilderr.IO("renaming temp file onto %s", path).Wrap(err)
	}
	return nil
}

// PatchFields loads a session, applies field mutations under a
// per-session advisory file lock, and saves. The lock is held for the
// whole load-mutate-save cycle to serialize concurrent patches (spec §4.1).
func (s *Store) PatchFields(id string, mutate func(*Session)) error {
	unlock, err := lockFile(s.mainPath(id))
	if err != nil {
		return err
	}
	defer unlock()

	sess, err := s.Load(id)
	if err != nil {
		return err
	}
	mutate(sess)
	sess.UpdatedAt = time.Now().UTC()
	return s.Save(sess)
}

// Remove deletes the main record and both sidecars. Missing files are success.
func (s *Store) Remove(id string) error {
	for _, p := range []string{s.mainPath(id), s.agentStatusPath(id), s.prInfoPath(id)} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return kilderr.IO("removing %s", p).Wrap(err)
		}
	}
	return nil
}

// --- Sidecars ---

// ReadAgentStatus is best-effort: a read or parse failure returns nil, never an error.
func (s *Store) ReadAgentStatus(id string) *AgentStatus {
	data, err := os.ReadFile(s.agentStatusPath(id))
	if err != nil {
		return nil
	}
	var as AgentStatus
	if err := json.Unmarshal(data, &as); err != nil {
		return nil
	}
	return &as
}

// WriteAgentStatus is best-effort: write failures are logged and returned
// to the caller (who is expected to not treat it as fatal).
func (s *Store) WriteAgentStatus(id string, as *AgentStatus) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return kilderr.IO("creating sessions directory").Wrap(err)
	}
	data, err := json.Marshal(as)
	if err != nil {
		return kilderr.IO("encoding agent_status").Wrap(err)
	}
	if err := atomicWrite(s.agentStatusPath(id), data); err != nil {
		fmt.Fprintf(os.Stderr, "kild: warning: failed to write agent_status sidecar for %s: %s\n", id, err)
		return err
	}
	return nil
}

func (s *Store) ReadPRInfo(id string) *PRInfo {
	data, err := os.ReadFile(s.prInfoPath(id))
	if err != nil {
		return nil
	}
	var pr PRInfo
	if err := json.Unmarshal(data, &pr); err != nil {
		return nil
	}
	return &pr
}

func (s *Store) WritePRInfo(id string, pr *PRInfo) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return kilderr.IO("creating sessions directory").Wrap(err)
	}
	data, err := json.Marshal(pr)
	if err != nil {
		return kilderr.IO("encoding pr_info").Wrap(err)
	}
	if err := atomicWrite(s.prInfoPath(id), data); err != nil {
		fmt.Fprintf(os.Stderr, "kild: warning: failed to write pr_info sidecar for %s: %s\n", id, err)
		return err
	}
	return nil
}

// lockFile takes an exclusive flock(2) on a sibling "<path>.lock" file
// (created if absent) and returns a function that releases it. This is
// the per-session advisory lock referenced throughout spec §4.1/§5. The
// lock is not taken on the record file itself, which Save replaces by
// rename; it serializes writers across processes, not just goroutines.
func lockFile(path string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, kilderr.IO("creating directory for lock").Wrap(err)
	}
	f, err := os.OpenFile(path+".lock", os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, kilderr.IO("opening lock file").Wrap(err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return nil, kilderr.IO("flock").Wrap(err)
	}
	return func() {
		unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
	}, nil
}
