package export

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/livetemplate/scrollytell/internal/scene"
	"github.com/livetemplate/scrollytell/internal/viz"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noData struct{}

func (noData) Load(context.Context, string) ([]viz.Row, error) {
	return nil, errors.New("no datasets")
}

// cumulative appends one bar per step, so each file shows the state the
// whole sequence has built.
func cumulative(id string, steps int) viz.Visualization {
	return &viz.Func{
		Name: id,
		Size: scene.Frame{Width: 200, Height: 100},
		SetupFunc: func(context.Context, *viz.Context) ([]viz.Step, error) {
			out := make([]viz.Step, steps)
			for i := range out {
				out[i] = func(sc *scene.Scene) {
					sc.Root().Clear()
					for j := 0; j <= i; j++ {
						sc.Root().Append("rect").Class("bar").SetAttr("x", j*10)
					}
				}
			}
			return out, nil
		},
	}
}

func loadSet(t *testing.T, vizzes ...viz.Visualization) *viz.Set {
	t.Helper()
	r := viz.NewRegistry(noData{}, zerolog.Nop())
	for _, v := range vizzes {
		require.NoError(t, r.Register(v))
	}
	set, err := r.Load(context.Background())
	require.NoError(t, err)
	return set
}

func TestExport(t *testing.T) {
	set := loadSet(t, cumulative("sante", 2), cumulative("emplois", 3))
	dir := filepath.Join(t.TempDir(), "out")

	idx, err := Export(set, Options{Dir: dir, Title: "Essai", Lang: "fr", Logger: zerolog.Nop()})
	require.NoError(t, err)
	require.Len(t, idx.Steps, 5)
	assert.Empty(t, idx.Errors)

	want := []string{"00-sante-0.svg", "01-sante-1.svg", "02-emplois-0.svg", "03-emplois-1.svg", "04-emplois-2.svg"}
	for i, e := range idx.Steps {
		assert.Equal(t, want[i], e.File)
		assert.Equal(t, i, e.Step)
		data, err := os.ReadFile(filepath.Join(dir, e.File))
		require.NoError(t, err)
		assert.Equal(t, len(data), e.Bytes)
	}

	last, err := os.ReadFile(filepath.Join(dir, "04-emplois-2.svg"))
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(last), `class="bar"`))

	raw, err := os.ReadFile(filepath.Join(dir, IndexFile))
	require.NoError(t, err)
	var onDisk Index
	require.NoError(t, json.Unmarshal(raw, &onDisk))
	assert.Equal(t, *idx, onDisk)
	assert.Equal(t, "Essai", onDisk.Title)
}

func TestExportMinified(t *testing.T) {
	set := loadSet(t, cumulative("a", 1))
	dir := t.TempDir()
	plain, err := Export(set, Options{Dir: filepath.Join(dir, "plain"), Logger: zerolog.Nop()})
	require.NoError(t, err)
	small, err := Export(set, Options{Dir: filepath.Join(dir, "small"), Minify: true, Logger: zerolog.Nop()})
	require.NoError(t, err)
	assert.LessOrEqual(t, small.Steps[0].Bytes, plain.Steps[0].Bytes)
}

func TestExportRecordsFailedSteps(t *testing.T) {
	broken := &viz.Func{
		Name: "b",
		SetupFunc: func(context.Context, *viz.Context) ([]viz.Step, error) {
			return []viz.Step{
				func(*scene.Scene) { panic("boom") },
				func(sc *scene.Scene) { sc.Root().Append("circle") },
			}, nil
		},
	}
	set := loadSet(t, broken)
	idx, err := Export(set, Options{Dir: t.TempDir(), Logger: zerolog.Nop()})
	require.NoError(t, err)
	require.Len(t, idx.Steps, 1)
	assert.Equal(t, "01-b-1.svg", idx.Steps[0].File)
	require.Len(t, idx.Errors, 1)
	assert.Contains(t, idx.Errors[0], "b:0")
}

func TestExportEmptySet(t *testing.T) {
	set := loadSet(t, cumulative("a", 0))
	idx, err := Export(set, Options{Dir: t.TempDir(), Logger: zerolog.Nop()})
	require.NoError(t, err)
	assert.Empty(t, idx.Steps)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "12-sante-3.svg", FileName(viz.StepInfo{Global: 12, Viz: "sante", Local: 3}))
	assert.Equal(t, "100-x-0.svg", FileName(viz.StepInfo{Global: 100, Viz: "x"}))
}
