package charts

import "github.com/livetemplate/scrollytell/internal/scale"

// Article palette.
const (
	Hommes     = "#00b4cf"
	Femmes     = "#fec636"
	Diverses   = "#7fbd83"
	Neutral    = "#87a3af"
	Faded      = "rgba(135,163,175,0.4)"
	GridStroke = "rgba(135,163,175,0.6)"
	Pale       = "rgb(211,224,230)"
	Purple1    = "#e6dced"
	Purple2    = "#9973b6"
	Purple3    = "#662d91"
)

// SexColor colours a series by sex label.
func SexColor(label string) string {
	switch label {
	case "Femmes", "femmes", "F", "women":
		return Femmes
	case "Hommes", "hommes", "H", "men":
		return Hommes
	default:
		return Diverses
	}
}

// sexLegend is the two-entry legend used by most charts.
var sexLegend = []Swatch{{Hommes, "Hommes"}, {Femmes, "Femmes"}}

// womenShare is the diverging scale for the proportion of women, 0 to 100.
func womenShare() *scale.Ramp {
	return scale.MustRamp([]float64{0, 50, 100}, "#04b5d0", "#ffffff", "#ffc836")
}
