package audit

import (
	"io"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/docpack/lexpack"
)

// RenderLayerChart draws the per-layer output sizes of a run as an SVG
// scatter, one point per pipeline layer in application order. Useful for
// eyeballing which tier carries the reduction.
func RenderLayerChart(w io.Writer, run *lexpack.PipelineRun) error {
	xvals := make([]float64, 0, len(run.Layers)+1)
	yvals := make([]float64, 0, len(run.Layers)+1)

	// Point zero is the uncompressed input.
	xvals = append(xvals, 0)
	yvals = append(yvals, float64(run.InputSize))
	for i, layer := range run.Layers {
		xvals = append(xvals, float64(i+1))
		yvals = append(yvals, float64(layer.OutputSize))
	}

	graph := chart.Chart{
		Series: []chart.Series{
			chart.ContinuousSeries{
				Style: chart.Style{
					DotWidth: 3,
				},
				XValues: xvals,
				YValues: yvals,
			},
		},
	}

	return graph.Render(chart.SVG, w)
}
