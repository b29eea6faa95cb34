package daemon

import (
	"context"
	"log/slog"
	"os"
	"syscall"
	"time"

	"github.com/kildhq/kild/internal/session"
)

// DefaultReconcileInterval is how often the reconciler compares
// persisted session state against OS/daemon reality.
const DefaultReconcileInterval = 15 * time.Second

// Reconciler is C8: periodic drift repair between the on-disk session
// store and what the daemon actually has running. Grounded on the
// teacher's ResetActiveStatuses/writeStaleFailedStatus pattern in
// internal/engine/state.go, which repairs status files left "active" by
// a process that died without updating them.
//
// Open question resolved: a daemon session the manager has no memory of
// (process gone, daemon restarted, whatever) is reconciled to Stopped,
// never a fabricated Error — Error is reserved for failures KILD itself
// observed, not absence of evidence.
type Reconciler struct {
	store *session.Store
	mgr   *Manager
	log   *slog.Logger

	interval time.Duration
}

// NewReconciler wires a store and manager together.
func NewReconciler(store *session.Store, mgr *Manager, log *slog.Logger) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{store: store, mgr: mgr, log: log, interval: DefaultReconcileInterval}
}

// Run ticks until ctx is cancelled, reconciling on every tick and once
// immediately on start (so a freshly restarted daemon repairs stale
// state before serving its first client).
func (r *Reconciler) Run(ctx context.Context) {
	r.tick()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick()
		}
	}
}

func (r *Reconciler) tick() {
	sessions, err := r.store.LoadAll()
	if err != nil {
		r.log.Warn("daemon.reconciler.load_failed", "error", err)
		return
	}

	for _, sess := range sessions {
		r.reconcileOne(sess)
	}
}

func (r *Reconciler) reconcileOne(sess *session.Session) {
	if sess.Status != session.StatusActive && sess.Status != session.StatusIdle {
		return
	}

	latest := sess.LatestAgent()
	if latest == nil {
		return
	}

	if !latest.IsDaemon() {
		// Foreground launch (spec.md §4.8): check the recorded PID directly
		// rather than consulting the daemon's own session map, which never
		// heard about it. Duplicated from lifecycle.IsProcessAlive rather
		// than imported, since internal/lifecycle already imports
		// internal/daemon (Host interface) and importing back would cycle.
		if isProcessAlive(latest.ProcessID) {
			return
		}
		r.log.Info("daemon.reconciler.marking_stopped",
			"session_id", sess.ID, "process_id", latest.ProcessID)
		if err := r.store.PatchFields(sess.ID, func(s *session.Session) {
			s.Status = session.StatusStopped
		}); err != nil {
			r.log.Warn("daemon.reconciler.patch_failed", "session_id", sess.ID, "error", err)
		}
		return
	}

	if _, err := r.mgr.Get(latest.DaemonSessionID); err == nil {
		return // daemon still has it; nothing to repair
	}

	r.log.Info("daemon.reconciler.marking_stopped",
		"session_id", sess.ID, "daemon_session_id", latest.DaemonSessionID)

	err := r.store.PatchFields(sess.ID, func(s *session.Session) {
		s.Status = session.StatusStopped
	})
	if err != nil {
		r.log.Warn("daemon.reconciler.patch_failed", "session_id", sess.ID, "error", err)
	}
}

// isProcessAlive checks whether pid still exists, grounded on the
// teacher's IsProcessAlive in internal/engine/state.go (signal 0 probe).
func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
