package charts

import (
	"context"
	"fmt"

	"github.com/livetemplate/scrollytell/internal/scene"
	"github.com/livetemplate/scrollytell/internal/viz"
)

// Feminicides is a single large counter. The count comes from the "count"
// option and defaults to 10. The client counts up to the value held in
// data-count when the step activates.
type Feminicides struct {
	base
}

// NewFeminicides returns the counter visualization.
func NewFeminicides() *Feminicides {
	return &Feminicides{base{id: "feminicides", frame: square()}}
}

// Setup implements viz.Visualization.
func (v *Feminicides) Setup(_ context.Context, vc *viz.Context) ([]viz.Step, error) {
	count := vc.IntOption("count", 10)
	if count < 0 {
		return nil, fmt.Errorf("option count: must not be negative, got %d", count)
	}
	w, h := vc.Frame.InnerWidth(), vc.Frame.InnerHeight()
	return []viz.Step{func(sc *scene.Scene) {
		root := reset(sc)
		root.Append("text").
			Class("compteur").
			SetAttr("data-count", count).
			SetAttr("text-anchor", "middle").
			SetAttr("x", w/2).
			SetAttr("y", h/2).
			SetAttr("font-weight", "bold").
			SetAttr("font-size", 80).
			SetText(Count(int64(count)))
		root.Append("text").
			Class("feminicides").
			SetAttr("text-anchor", "middle").
			SetAttr("x", w/2).
			SetAttr("y", h/2+50).
			SetAttr("font-size", 40).
			SetText("féminicides")
	}}, nil
}
