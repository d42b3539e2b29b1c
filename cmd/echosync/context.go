package main

import (
	"strings"
	"sync"

	"echosync/internal/config"
	"echosync/internal/remote"
	"echosync/internal/repo"
	"echosync/internal/store"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) openStore() (*store.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return store.Open(cfg)
}

func (c *commandContext) remoteClient() (*remote.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return remote.NewFromConfig(cfg), nil
}

// withRepository opens the configured backend, runs fn, and tears the
// backend down afterwards. Remote mode needs no local store.
func (c *commandContext) withRepository(fn func(*config.Config, *repo.Repository) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	var st *store.Store
	var rc *remote.Client
	if cfg.Remote.Enabled {
		rc = remote.NewFromConfig(cfg)
	} else {
		st, err = store.Open(cfg)
		if err != nil {
			return err
		}
		defer st.Close()
	}

	repository := repo.New(cfg, st, rc, nil)
	defer repository.Close()
	return fn(cfg, repository)
}

// withStore opens the local store for commands that always work locally.
func (c *commandContext) withStore(fn func(*config.Config, *store.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(cfg, st)
}
