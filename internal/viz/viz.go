// Package viz defines the contract between visualizations and the scroller:
// each visualization sets itself up once and yields one render step per
// narrative step it participates in.
package viz

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/livetemplate/scrollytell/internal/scene"
	"github.com/rs/zerolog"
)

// Step brings a visualization's scene to the state of one narrative step.
// Running a step twice on the same scene must leave it as running it once.
type Step func(*scene.Scene)

// Visualization is one chart module.
type Visualization interface {
	// ID is the stable identifier used in step keys and container ids.
	ID() string
	// Frame is the scene size the visualization draws into.
	Frame() scene.Frame
	// Setup loads data and computes scales, returning the ordered steps.
	Setup(ctx context.Context, vc *Context) ([]Step, error)
}

// Row is one dataset record. CSV values are strings; JSON values keep
// their decoded types.
type Row = map[string]interface{}

// DatasetLoader resolves dataset names to rows.
type DatasetLoader interface {
	Load(ctx context.Context, name string) ([]Row, error)
}

// Context is what a visualization's setup may depend on. It replaces
// shared mutable state between a visualization's steps.
type Context struct {
	ID       string
	Frame    scene.Frame
	Datasets DatasetLoader
	Options  map[string]string
	Logger   zerolog.Logger
}

// Dataset loads a named dataset.
func (c *Context) Dataset(ctx context.Context, name string) ([]Row, error) {
	if c.Datasets == nil {
		return nil, fmt.Errorf("dataset %q: no dataset loader configured", name)
	}
	rows, err := c.Datasets.Load(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("dataset %q: %w", name, err)
	}
	c.Logger.Debug().Str("dataset", name).Int("rows", len(rows)).Msg("dataset loaded")
	return rows, nil
}

// Option returns a configured option or def.
func (c *Context) Option(key, def string) string {
	if v, ok := c.Options[key]; ok && v != "" {
		return v
	}
	return def
}

// IntOption parses an integer option, falling back to def when absent or
// malformed.
func (c *Context) IntOption(key string, def int) int {
	v, ok := c.Options[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		c.Logger.Warn().Str("option", key).Str("value", v).Msg("ignoring non-integer option")
		return def
	}
	return n
}

// Key addresses a step: "<vizID>:<localIndex>".
func Key(vizID string, local int) string {
	return vizID + ":" + strconv.Itoa(local)
}

// ParseKey splits a step key.
func ParseKey(key string) (vizID string, local int, err error) {
	i := strings.LastIndexByte(key, ':')
	if i <= 0 || i == len(key)-1 {
		return "", 0, fmt.Errorf("invalid step key %q", key)
	}
	local, err = strconv.Atoi(key[i+1:])
	if err != nil || local < 0 {
		return "", 0, fmt.Errorf("invalid step index in key %q", key)
	}
	return key[:i], local, nil
}

// Func adapts plain values to Visualization.
type Func struct {
	Name      string
	Size      scene.Frame
	SetupFunc func(ctx context.Context, vc *Context) ([]Step, error)
}

// ID implements Visualization.
func (f *Func) ID() string { return f.Name }

// Frame implements Visualization.
func (f *Func) Frame() scene.Frame { return f.Size }

// Setup implements Visualization.
func (f *Func) Setup(ctx context.Context, vc *Context) ([]Step, error) {
	if f.SetupFunc == nil {
		return nil, nil
	}
	return f.SetupFunc(ctx, vc)
}
