package scrollytell

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/livetemplate/scrollytell/internal/charts"
	"github.com/livetemplate/scrollytell/internal/config"
	"github.com/livetemplate/scrollytell/internal/source"
	"github.com/livetemplate/scrollytell/internal/viz"
	"github.com/rs/zerolog"
)

// Options control how a project directory is opened.
type Options struct {
	// ConfigFile overrides dir/scrollytell.yaml.
	ConfigFile string
	Overrides  config.Overrides
	Logger     zerolog.Logger
	// Visualizations replaces the built-in charts, mainly for tests.
	Visualizations []viz.Visualization
}

// Project is an article directory: configuration, article and the
// visualizations it scrolls through.
type Project struct {
	Dir      string
	Config   *config.Config
	Article  *Article
	Datasets *source.Registry
	Vizzes   *viz.Registry

	log zerolog.Logger
}

// Open loads the configuration and article in dir and prepares the
// visualization registry. No dataset is read until Activate.
func Open(dir string, opts Options) (*Project, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}

	cfgPath := opts.ConfigFile
	if cfgPath == "" {
		cfgPath = filepath.Join(abs, config.FileName)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	opts.Overrides.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", filepath.Base(cfgPath), err)
	}

	articlePath := cfg.Article
	if !filepath.IsAbs(articlePath) {
		articlePath = filepath.Join(abs, articlePath)
	}
	article, err := ParseFile(articlePath)
	if err != nil {
		return nil, err
	}
	if article.Title == "" {
		article.Title = cfg.Title
	}

	datasets, err := source.NewRegistry(cfg, abs, opts.Logger)
	if err != nil {
		return nil, fmt.Errorf("datasets: %w", err)
	}

	all := viz.NewRegistry(datasets, opts.Logger.With().Str("component", "viz").Logger())
	vizzes := opts.Visualizations
	if vizzes == nil {
		vizzes = charts.All()
	}
	for _, v := range vizzes {
		if err := all.Register(v); err != nil {
			datasets.Close()
			return nil, err
		}
		all.SetOptions(v.ID(), cfg.VizOptions(v.ID()))
	}
	selected, err := all.Select(article.Order)
	if err != nil {
		datasets.Close()
		return nil, NewParseError(article.SourceFile, 1, err.Error()).
			WithHint(fmt.Sprintf("available visualizations: %v", all.IDs()))
	}

	return &Project{
		Dir:      abs,
		Config:   cfg,
		Article:  article,
		Datasets: datasets,
		Vizzes:   selected,
		log:      opts.Logger,
	}, nil
}

// Activate runs every visualization setup. It fails as a whole if any
// setup fails.
func (p *Project) Activate(ctx context.Context) (*viz.Set, error) {
	set, err := p.Vizzes.Load(ctx)
	if err != nil {
		return nil, err
	}
	for _, w := range p.Check(set) {
		p.log.Warn().Msg(w)
	}
	return set, nil
}

// Check compares the article's step blocks with the steps the
// visualizations produce. Steps without a block are unreachable; blocks
// without a step never fire.
func (p *Project) Check(set *viz.Set) []string {
	produced := make(map[string]int)
	for _, s := range set.Steps() {
		produced[s.Viz]++
	}

	var warnings []string
	for _, id := range set.IDs() {
		blocks := 0
		if vb := p.Article.Viz(id); vb != nil {
			blocks = vb.Steps
		} else {
			warnings = append(warnings, fmt.Sprintf("visualization %q has no ```viz block in the article", id))
		}
		switch n := produced[id]; {
		case blocks < n:
			warnings = append(warnings, fmt.Sprintf("visualization %q has %d steps but %d step blocks; steps %d..%d are unreachable", id, n, blocks, blocks, n-1))
		case blocks > n:
			warnings = append(warnings, fmt.Sprintf("visualization %q has %d steps but %d step blocks; the extra blocks never fire", id, n, blocks))
		}
	}
	for _, vb := range p.Article.Vizzes {
		if !contains(p.Article.Order, vb.ID) {
			warnings = append(warnings, fmt.Sprintf("visualization %q (line %d) is not in the frontmatter order", vb.ID, vb.Line))
		}
	}
	return warnings
}

// Close releases dataset connections.
func (p *Project) Close() error {
	return p.Datasets.Close()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
