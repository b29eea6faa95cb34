package cli

import (
	"os"
	"path/filepath"

	"github.com/kildhq/kild/internal/config"
	"github.com/kildhq/kild/internal/daemon"
	"github.com/kildhq/kild/internal/ipcclient"
	"github.com/kildhq/kild/internal/kilderr"
	"github.com/kildhq/kild/internal/projects"
	"github.com/kildhq/kild/internal/session"
)

// kildHome returns $HOME/.kild, creating it on demand is the caller's job.
func kildHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", kilderr.IO("resolving home directory").Wrap(err)
	}
	return filepath.Join(home, ".kild"), nil
}

// loadConfig loads the hierarchical config for the current working
// directory's project, if any.
func loadConfig() (*config.Config, error) {
	home, err := kildHome()
	if err != nil {
		return nil, err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, kilderr.IO("resolving working directory").Wrap(err)
	}
	repoRoot, _ := projects.Detect(cwd)
	return config.LoadHierarchy(filepath.Dir(home), repoRoot)
}

// sessionStore opens the session store under $HOME/.kild/sessions.
func sessionStore() (*session.Store, error) {
	home, err := kildHome()
	if err != nil {
		return nil, err
	}
	return session.NewStore(filepath.Join(home, "sessions")), nil
}

// projectStore opens the project registry under $HOME/.kild.
func projectStore() (*projects.Store, error) {
	home, err := kildHome()
	if err != nil {
		return nil, err
	}
	return projects.NewStore(filepath.Dir(home)), nil
}

// currentProject resolves the project registered for the repo enclosing cwd.
func currentProject() (projects.Project, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return projects.Project{}, kilderr.IO("resolving working directory").Wrap(err)
	}
	root, err := projects.Detect(cwd)
	if err != nil {
		return projects.Project{}, err
	}
	ps, err := projectStore()
	if err != nil {
		return projects.Project{}, err
	}
	return ps.Register(root, "")
}

// dialDaemon connects to the local daemon's IPC socket.
func dialDaemon() (*ipcclient.Client, error) {
	home, err := kildHome()
	if err != nil {
		return nil, err
	}
	t, err := ipcclient.DialUnix(daemon.SocketPath(filepath.Dir(home)))
	if err != nil {
		return nil, err
	}
	return ipcclient.New(t), nil
}
