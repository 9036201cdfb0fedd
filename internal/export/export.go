// Package export renders every step of an article to standalone SVG files.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/livetemplate/scrollytell/internal/scene"
	"github.com/livetemplate/scrollytell/internal/scroller"
	"github.com/livetemplate/scrollytell/internal/viz"
	"github.com/rs/zerolog"
)

// IndexFile is written next to the SVG files.
const IndexFile = "index.json"

// stride separates the synthetic boundaries the export scrolls through.
const stride = 100.0

// Options configure Export.
type Options struct {
	// Dir receives the files. It is created if missing.
	Dir    string
	Title  string
	Lang   string
	Minify bool
	Logger zerolog.Logger
}

// Entry describes one exported step.
type Entry struct {
	Step  int    `json:"step"`
	Viz   string `json:"viz"`
	Local int    `json:"local"`
	Key   string `json:"key"`
	File  string `json:"file"`
	Bytes int    `json:"bytes"`
}

// Index is the content of index.json.
type Index struct {
	Title  string   `json:"title"`
	Lang   string   `json:"lang,omitempty"`
	Steps  []Entry  `json:"steps"`
	Errors []string `json:"errors,omitempty"`
}

// FileName is the SVG file of a step: global index, visualization and
// local index, e.g. 03-sante-1.svg.
func FileName(info viz.StepInfo) string {
	return fmt.Sprintf("%02d-%s-%d.svg", info.Global, info.Viz, info.Local)
}

// Export scrolls a fresh scroller through every step of set in order and
// writes the scene each step leaves behind. Steps whose callback panics are
// listed in Index.Errors and skipped.
func Export(set *viz.Set, opts Options) (*Index, error) {
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", opts.Dir, err)
	}
	start := time.Now()
	log := opts.Logger

	idx := &Index{Title: opts.Title, Lang: opts.Lang, Steps: []Entry{}}
	var (
		writeErr error
		total    uint64
	)
	write := func(info viz.StepInfo, sc *scene.Scene) {
		if writeErr != nil {
			return
		}
		doc := sc.Render()
		if opts.Minify {
			if small, err := sc.RenderMinified(); err == nil {
				doc = small
			}
		}
		name := FileName(info)
		if err := os.WriteFile(filepath.Join(opts.Dir, name), []byte(doc), 0o644); err != nil {
			writeErr = fmt.Errorf("write %s: %w", name, err)
			return
		}
		total += uint64(len(doc))
		idx.Steps = append(idx.Steps, Entry{
			Step:  info.Global,
			Viz:   info.Viz,
			Local: info.Local,
			Key:   info.Key,
			File:  name,
			Bytes: len(doc),
		})
		log.Debug().Str("file", name).Msg("exported step")
	}

	offsets := make(scroller.Offsets, set.StepCount())
	for _, st := range set.Steps() {
		offsets[st.Key] = float64(st.Global) * stride
	}

	sc := scroller.New(scroller.Options{
		Mode: scroller.ModeLanding,
		OnError: func(b scroller.Boundary, err error) {
			idx.Errors = append(idx.Errors, err.Error())
		},
		Logger: &log,
	})
	sc.Initialize(set.Bind(set.NewScenes(), write), offsets, -stride)
	for i := 0; i < set.StepCount() && writeErr == nil; i++ {
		sc.Update(float64(i) * stride)
	}
	if writeErr != nil {
		return nil, writeErr
	}

	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(opts.Dir, IndexFile), append(data, '\n'), 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", IndexFile, err)
	}

	log.Info().
		Int("steps", len(idx.Steps)).
		Int("failed", len(idx.Errors)).
		Str("size", humanize.Bytes(total)).
		Dur("took", time.Since(start)).
		Str("dir", opts.Dir).
		Msg("export complete")
	if len(idx.Steps) == 0 && len(idx.Errors) > 0 {
		return idx, errors.New("every step failed to render")
	}
	return idx, nil
}
