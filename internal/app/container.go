package app

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/doeshing/agentguard/internal/application/decision"
	"github.com/doeshing/agentguard/internal/application/doctor"
	"github.com/doeshing/agentguard/internal/domain"
	"github.com/doeshing/agentguard/internal/infrastructure/config"
	"github.com/doeshing/agentguard/internal/infrastructure/history"
	"github.com/doeshing/agentguard/internal/infrastructure/pathclass"
	"github.com/doeshing/agentguard/internal/infrastructure/policy"
	"github.com/doeshing/agentguard/internal/infrastructure/shellparse"
	"github.com/doeshing/agentguard/internal/pkg/filesystem"
	"github.com/doeshing/agentguard/internal/pkg/logger"
	"github.com/doeshing/agentguard/internal/ports"
)

// Options carries the command line overrides.
type Options struct {
	ConfigPath string
	RulesPath  string
	Verbose    bool
}

// Container wires up application services with infrastructure adapters.
type Container struct {
	Config       domain.Config
	ConfigLoader *config.FileLoader
	Logger       ports.Logger
	RulesSource  policy.FileSource
	Rules        *policy.Store
	// RulesErr is set when the rule document failed to load. Decisions then
	// block everything and doctor reports it.
	RulesErr      error
	Engine        *decision.Engine
	Decisions     *decision.Service
	HistoryStore  ports.DecisionLog
	DoctorService *doctor.Service

	closers []io.Closer
}

// BuildContainer constructs the dependency graph. Only a configuration
// load failure is returned; a broken rule document is recorded in
// RulesErr so callers can still fail closed.
func BuildContainer(ctx context.Context, opts Options) (*Container, error) {
	cfgLoader := config.NewFileLoader(opts.ConfigPath)
	cfg, err := cfgLoader.Load(ctx)
	if err != nil {
		return nil, err
	}
	if opts.RulesPath != "" {
		cfg.Policy.RulesFile = config.ExpandPath(opts.RulesPath)
	}

	c := &Container{Config: cfg, ConfigLoader: cfgLoader}
	c.Logger = c.buildLogger(cfg, opts.Verbose)

	home := filesystem.UserHomeDir()
	c.RulesSource = policy.NewFileSource(cfg.Policy.RulesFile,
		policy.WithMatchBudget(cfg.GetMaxMatchInput()),
		policy.WithHomeDir(home),
	)
	store, err := policy.NewStore(ctx, c.RulesSource)
	if err != nil {
		c.RulesErr = err
		c.Logger.Error("rule document failed to load", err, map[string]interface{}{"path": cfg.Policy.RulesFile})
	} else {
		c.Rules = store
		c.Logger.Debug("rules loaded", map[string]interface{}{
			"source": store.Current().Source,
			"rules":  store.Current().Count(),
		})
	}

	c.Engine = &decision.Engine{
		Decomposer: shellparse.New(cfg.GetMaxDepth(), cfg.GetMaxFragments()),
		Classifier: pathclass.New(home),
	}

	if cfg.IsHistoryEnabled() {
		c.HistoryStore = newHistoryStore(cfg.History.Path)
		if closer, ok := c.HistoryStore.(io.Closer); ok {
			c.closers = append(c.closers, closer)
		}
	}

	c.Decisions = &decision.Service{
		Engine:  c.Engine,
		Log:     c.HistoryStore,
		Logger:  c.Logger,
		LoadErr: c.RulesErr,
	}
	if c.Rules != nil {
		c.Decisions.Rules = c.Rules
	}

	c.DoctorService = &doctor.Service{
		ConfigProvider: cfgLoader,
		RulesErr:       c.RulesErr,
		Decider:        c.Engine,
		Log:            c.HistoryStore,
	}
	if c.Rules != nil {
		c.DoctorService.Rules = c.Rules
	}
	return c, nil
}

func (c *Container) buildLogger(cfg domain.Config, verbose bool) ports.Logger {
	level := logger.ParseLevel(cfg.GetLogLevel())
	if verbose {
		level = logger.LevelDebug
	}
	var w io.Writer = os.Stderr
	if cfg.Logging.File != "" {
		if f, err := logger.OpenFile(cfg.Logging.File); err == nil {
			c.closers = append(c.closers, f)
			w = f
		}
	}
	return logger.New(w, level)
}

// newHistoryStore picks the jsonl store for .jsonl paths and SQLite
// otherwise.
func newHistoryStore(path string) ports.DecisionLog {
	if strings.EqualFold(filepath.Ext(path), ".jsonl") {
		return history.NewFileStore(path)
	}
	return history.NewSQLiteStore(path)
}

// Close releases open files and database handles.
func (c *Container) Close() error {
	var first error
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil && first == nil {
			first = err
		}
	}
	c.closers = nil
	return first
}
