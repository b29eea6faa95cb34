// Package lifecycle is the Lifecycle Engine (C7, spec.md §4.7): binds
// the persistence layer, git driver, daemon session manager, and forge
// registry into the user-facing create/open/stop/complete/destroy
// operations. Grounded on the teacher's processConcern in
// internal/engine/engine.go for the overall shape (validate, act,
// persist status, return a structured error on any step's failure) and
// on its per-concern sequencing for why each operation here is
// serialized per session.
package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/kildhq/kild/internal/agents"
	"github.com/kildhq/kild/internal/config"
	"github.com/kildhq/kild/internal/daemon"
	"github.com/kildhq/kild/internal/forge"
	"github.com/kildhq/kild/internal/gitops"
	"github.com/kildhq/kild/internal/kilderr"
	"github.com/kildhq/kild/internal/projects"
	"github.com/kildhq/kild/internal/session"
)

// Engine orchestrates lifecycle operations. The daemon process wires in
// its own *daemon.Manager directly; a CLI process instead wires in an
// IPC-backed daemon.Host (internal/ipcclient) that forwards each call to
// a running daemon over the unix socket — Engine only ever sees the
// daemon.Host interface, so it doesn't need to know which process it's
// running in.
type Engine struct {
	Store     *session.Store
	DaemonMgr daemon.Host // nil in a CLI process with no daemon reachable
	Config    *config.Config

	PortBase    int
	PortCeiling int

	locks sync.Map // session_id -> *sync.Mutex
}

// NewEngine wires a store, an optional daemon host (in-process or
// IPC-backed), and config.
func NewEngine(store *session.Store, mgr daemon.Host, cfg *config.Config) *Engine {
	return &Engine{
		Store:       store,
		DaemonMgr:   mgr,
		Config:      cfg,
		PortBase:    20000,
		PortCeiling: 29999,
	}
}

func (e *Engine) lockFor(sessionID string) func() {
	v, _ := e.locks.LoadOrStore(sessionID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// CreateRequest is the input to Create.
type CreateRequest struct {
	Project     projects.Project
	Branch      string
	Agent       string
	BaseRef     string
	RuntimeMode session.RuntimeMode
	Rows, Cols  uint16
}

// Create materializes a worktree, persists a session record, and
// launches the agent (spec.md §4.7 create()).
func (e *Engine) Create(ctx context.Context, req CreateRequest) (*session.Session, error) {
	if req.Agent == "" {
		req.Agent = agents.DefaultAgent
	}
	if !agents.IsValid(req.Agent) {
		return nil, kilderr.ConfigUnknownAgent(req.Agent)
	}

	sessionID := session.SessionID(req.Project.ID, req.Branch)
	unlock := e.lockFor(sessionID)
	defer unlock()

	if _, err := e.Store.Load(sessionID); err == nil {
		return nil, kilderr.SessionAlreadyExists(sessionID)
	}

	existingSessions, err := e.Store.LoadAll()
	if err != nil {
		return nil, err
	}
	rangeSize := e.Config.Ports.RangeSize
	if rangeSize <= 0 {
		rangeSize = config.DefaultPortRangeSize
	}
	start, end, err := AllocatePortRange(existingSessions, e.PortBase, e.PortCeiling, rangeSize)
	if err != nil {
		return nil, err
	}

	patterns := e.Config.Include.Patterns
	if len(patterns) == 0 {
		patterns = config.DefaultIncludePatterns()
	}
	wt, err := gitops.CreateWorktree(gitops.Project{
		ID: req.Project.ID, Name: req.Project.Name, Root: req.Project.Root,
	}, req.Branch, req.BaseRef, patterns)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sess := &session.Session{
		ID:             sessionID,
		ProjectID:      req.Project.ID,
		Branch:         wt.Branch,
		WorktreePath:   wt.Path,
		Agent:          req.Agent,
		Status:         session.StatusCreated,
		RuntimeMode:    req.RuntimeMode,
		CreatedAt:      now,
		UpdatedAt:      now,
		PortRangeStart: start,
		PortRangeEnd:   end,
		PortCount:      rangeSize,
	}
	if err := e.Store.Save(sess); err != nil {
		return nil, err
	}

	if err := e.launchAgent(ctx, sess, req.Rows, req.Cols); err != nil {
		sess.Status = session.StatusError
		_ = e.Store.Save(sess)
		return sess, err
	}

	sess.Status = session.StatusActive
	if err := e.Store.Save(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Open spawns another agent process in an existing worktree without
// touching prior AgentProcess entries (spec.md §4.7 open()).
func (e *Engine) Open(ctx context.Context, sessionID string, rows, cols uint16) (*session.Session, error) {
	unlock := e.lockFor(sessionID)
	defer unlock()

	sess, err := e.Store.Load(sessionID)
	if err != nil {
		return nil, err
	}

	if err := e.launchAgent(ctx, sess, rows, cols); err != nil {
		return nil, err
	}
	sess.Status = session.StatusActive
	if err := e.Store.Save(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (e *Engine) launchAgent(ctx context.Context, sess *session.Session, rows, cols uint16) error {
	cmd, ok := agents.ResolveCommand(sess.Agent, e.commandOverrides())
	if !ok {
		return kilderr.ConfigUnknownAgent(sess.Agent)
	}

	ap := session.AgentProcess{Agent: sess.Agent, Command: cmd, OpenedAt: time.Now().UTC()}

	switch sess.RuntimeMode {
	case session.RuntimeForeground:
		return kilderr.IO("foreground runtime mode requires an external terminal launcher (out of core scope)")
	default:
		if e.DaemonMgr == nil {
			return kilderr.IPCConnect("no daemon manager available in this process")
		}
		daemonSessionID, err := e.DaemonMgr.Open(daemon.OpenOptions{
			SessionID: sess.ID,
			Command:   cmd,
			Cwd:       sess.WorktreePath,
			Rows:      rows, Cols: cols,
		})
		if err != nil {
			return err
		}
		ap.DaemonSessionID = daemonSessionID
		go e.DaemonMgr.WaitReap(daemonSessionID)
	}

	sess.AppendAgent(ap)
	return nil
}

func (e *Engine) commandOverrides() map[string]string {
	out := make(map[string]string, len(e.Config.Agents))
	for name, ac := range e.Config.Agents {
		out[name] = ac.Command
	}
	return out
}

// Stop terminates every live agent process of a session with
// SIGTERM->grace->SIGKILL escalation, then marks it Stopped (spec.md
// §4.7 stop()).
func (e *Engine) Stop(ctx context.Context, sessionID string) (*session.Session, error) {
	unlock := e.lockFor(sessionID)
	defer unlock()

	sess, err := e.Store.Load(sessionID)
	if err != nil {
		return nil, err
	}

	grace := e.Config.Process.KillGrace()
	for i := range sess.Agents {
		ap := &sess.Agents[i]
		if ap.IsDaemon() {
			if e.DaemonMgr == nil {
				return nil, kilderr.IPCConnect("no daemon manager available in this process")
			}
			// A repeat stop() on an already-stopped session finds its
			// daemon_session_id already reaped; that's success, not an
			// error (spec's stop-then-stop round-trip property).
			if e.DaemonMgr.IsAlive(ap.DaemonSessionID) {
				if err := e.DaemonMgr.Close(ap.DaemonSessionID, "SIGTERM"); err != nil {
					return nil, err
				}
				deadline := time.Now().Add(grace)
				for time.Now().Before(deadline) {
					if !e.DaemonMgr.IsAlive(ap.DaemonSessionID) {
						break
					}
					time.Sleep(50 * time.Millisecond)
				}
				if e.DaemonMgr.IsAlive(ap.DaemonSessionID) {
					_ = e.DaemonMgr.Kill(ap.DaemonSessionID)
				}
			}
		} else if ap.ProcessID != 0 {
			if err := KillWithGrace(ap.ProcessID, grace); err != nil {
				return nil, err
			}
		}
	}

	sess.Status = session.StatusStopped
	if err := e.Store.Save(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Complete queries the configured forge backend for PR status and
// transitions to Completed when the backend reports RemoteDeleted or
// PrNotMerged; any other outcome leaves the status unchanged (spec.md
// §4.7 complete()).
func (e *Engine) Complete(ctx context.Context, sessionID, owner, repo string) (*session.Session, forge.Outcome, error) {
	unlock := e.lockFor(sessionID)
	defer unlock()

	sess, err := e.Store.Load(sessionID)
	if err != nil {
		return nil, "", err
	}

	b, ok := forge.Detect(ctx)
	if !ok {
		return sess, forge.OutcomePrCheckUnavailable, nil
	}
	status, err := b.QueryPR(ctx, owner, repo, sess.Branch)
	if err != nil {
		return sess, forge.OutcomePrCheckUnavailable, err
	}

	if status.Outcome == forge.OutcomeRemoteDeleted || status.Outcome == forge.OutcomePrNotMerged {
		sess.Status = session.StatusCompleted
		if err := e.Store.Save(sess); err != nil {
			return nil, status.Outcome, err
		}
	}
	return sess, status.Outcome, nil
}

// Destroy permanently removes a session's worktree, branch, records,
// and sidecars, subject to the safety precheck (spec.md §4.7 destroy()).
// projectRoot is the main repository's path — sessions don't carry it
// directly (only project_id), so callers resolve it via the project
// registry before calling Destroy.
func (e *Engine) Destroy(ctx context.Context, sessionID, projectRoot string, force bool, owner, repo string) error {
	unlock := e.lockFor(sessionID)
	defer unlock()

	sess, err := e.Store.Load(sessionID)
	if err != nil {
		return err
	}

	if !force {
		safety, err := CheckDestroySafety(ctx, sess.WorktreePath, sess.Branch, owner, repo)
		if err != nil {
			return err
		}
		if safety.Blocks() {
			switch {
			case safety.HasUncommitted:
				return kilderr.SafetyUncommitted(sessionID)
			case safety.HasUnpushed:
				return kilderr.SafetyUnpushed(sessionID)
			default:
				return kilderr.SafetyOpenPR(sessionID)
			}
		}
	}

	if latest := sess.LatestAgent(); latest != nil {
		if latest.IsDaemon() && e.DaemonMgr != nil {
			_ = e.DaemonMgr.Close(latest.DaemonSessionID, "SIGKILL")
		} else if latest.ProcessID != 0 {
			_ = KillWithGrace(latest.ProcessID, 0)
		}
	}

	if err := gitops.RemoveWorktree(projectRoot, sess.WorktreePath, force); err != nil {
		return err
	}
	if err := gitops.DeleteBranchIfExists(projectRoot, sess.Branch, force); err != nil {
		return err
	}

	return e.Store.Remove(sessionID)
}
