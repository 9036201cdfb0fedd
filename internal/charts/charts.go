// Package charts holds the article's visualizations and the drawing
// helpers they share. Every step clears the visualization's root group and
// redraws the full state of that step, so a step renders the same scene
// whichever step preceded it.
package charts

import (
	"fmt"

	"github.com/livetemplate/scrollytell/internal/scene"
	"github.com/livetemplate/scrollytell/internal/viz"
)

// base carries the identity and frame shared by every visualization.
type base struct {
	id    string
	frame scene.Frame
}

func (b base) ID() string { return b.id }

func (b base) Frame() scene.Frame { return b.frame }

// square is the 500x500 plot with 100 margins most charts use.
func square() scene.Frame {
	return scene.Frame{
		Width:  700,
		Height: 700,
		Margin: scene.Margin{Top: 100, Right: 100, Bottom: 100, Left: 100},
	}
}

// All returns the article's visualizations in reading order.
func All() []viz.Visualization {
	return []viz.Visualization{
		NewSante(),
		NewEclosions(),
		NewEmplois(),
		NewEntreprises(),
		NewAnxiete(),
		NewAnxieteDonut(),
		NewDetresse(),
		NewMaison(),
		NewFeminicides(),
	}
}

// Register adds every visualization to r.
func Register(r *viz.Registry) error {
	for _, v := range All() {
		if err := r.Register(v); err != nil {
			return fmt.Errorf("register charts: %w", err)
		}
	}
	return nil
}

// reset clears the scene for a full redraw.
func reset(sc *scene.Scene) *scene.Element {
	sc.SVG().RemoveAll("defs")
	return sc.Root().Clear()
}
