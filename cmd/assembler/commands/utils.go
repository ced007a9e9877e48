package commands

import (
	"os"
	"path/filepath"

	"github.com/luxtrace/assembler/internal/config"
	"github.com/luxtrace/assembler/pkg/errors"
	"github.com/luxtrace/assembler/pkg/registry"
	"github.com/luxtrace/assembler/pkg/session"
)

// ensureDirectories creates all necessary directories for the application
func ensureDirectories(registryPath, sessionPath, fsmDBPath string) error {
	if err := os.MkdirAll(filepath.Dir(registryPath), 0755); err != nil {
		return errors.Wrap(err, "failed to create registry directory")
	}

	if sessionPath != "" {
		if err := os.MkdirAll(sessionPath, 0755); err != nil {
			return errors.Wrap(err, "failed to create session directory")
		}
	}

	if fsmDBPath != "" {
		if err := os.MkdirAll(filepath.Dir(fsmDBPath), 0755); err != nil {
			return errors.Wrap(err, "failed to create FSM directory")
		}
	}

	return nil
}

// workspace bundles the local state every command needs
type workspace struct {
	cfg    *config.Config
	repo   *registry.Repository
	store  *session.Store
	intake *session.Intake
}

func (w *workspace) Close() {
	if w.store != nil {
		w.store.Close()
	}
	if w.repo != nil {
		w.repo.Close()
	}
}

// openWorkspace loads config and opens the registry, session store, and
// intake controller. Load happens exactly once here, at start-up.
func openWorkspace() (*workspace, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, errors.Wrap(err, "config load failed")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config invalid")
	}

	if err := ensureDirectories(cfg.RegistryPath, cfg.SessionPath, cfg.FSMDBPath); err != nil {
		return nil, err
	}

	repo, err := registry.NewRepository(cfg.RegistryPath)
	if err != nil {
		return nil, errors.Wrap(err, "registry init failed")
	}

	store, err := session.OpenStore(cfg.SessionPath)
	if err != nil {
		repo.Close()
		return nil, errors.Wrap(err, "session store init failed")
	}

	intake, err := session.NewIntake(store, repo)
	if err != nil {
		store.Close()
		repo.Close()
		return nil, errors.Wrap(err, "intake init failed")
	}

	return &workspace{cfg: cfg, repo: repo, store: store, intake: intake}, nil
}
