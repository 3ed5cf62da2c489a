// Package systems implements the behavior modules attached to cells.
// Predictor-backed modules share one dispatch: collect input, predict,
// normalize the raw output, apply it to the cell.
package systems

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/organoid/cell"
	"github.com/pthm-cable/organoid/neural"
)

// Normalize converts a tagged predictor output into its canonical flat form.
// Batched outputs yield their first row; tensors are flattened row-major.
func Normalize(out neural.Output) ([]float64, error) {
	var vals []float64
	switch out.Shape {
	case neural.ShapeScalar:
		vals = []float64{out.Scalar}
	case neural.ShapeFlat, neural.ShapeTensor:
		vals = out.Values
	case neural.ShapeBatched:
		if out.Rows > 0 && out.Cols > 0 && len(out.Values) >= out.Cols {
			vals = out.Values[:out.Cols]
		}
	default:
		return nil, fmt.Errorf("%w: unknown output shape %v", cell.ErrUsage, out.Shape)
	}
	if len(vals) == 0 {
		return nil, fmt.Errorf("%s output: %w", out.Shape, cell.ErrEmptyPrediction)
	}
	return vals, nil
}

// Predicted is the shared base of predictor-backed modules.
type Predicted struct {
	Predictor neural.Predictor
	// Collect overrides the cell's own input provider when set.
	Collect cell.InputProvider
	Verbose bool
	Logger  *slog.Logger
}

// Base exposes the shared dispatch settings of an embedding module.
func (p *Predicted) Base() *Predicted { return p }

// CollectInput gathers the predictor input for c.
func (p *Predicted) CollectInput(c *cell.Cell) ([]float64, error) {
	if p.Collect != nil {
		return p.Collect(c)
	}
	return c.InputData()
}

// Dispatch runs collect -> predict -> normalize -> apply.
func (p *Predicted) Dispatch(c *cell.Cell, apply func(c *cell.Cell, pred []float64) error) error {
	if p.Predictor == nil {
		return fmt.Errorf("%w: module on cell %d has no predictor", cell.ErrConfig, c.ID)
	}
	in, err := p.CollectInput(c)
	if err != nil {
		return err
	}
	raw, err := p.Predictor.Predict(in, p.Verbose)
	if err != nil {
		return fmt.Errorf("predicting: %w", err)
	}
	pred, err := Normalize(raw)
	if err != nil {
		return err
	}
	if p.Verbose {
		p.logger().Debug("module dispatch",
			"cell", c.ID,
			"kind", c.Kind().String(),
			"input", in,
			"shape", raw.Shape.String(),
			"prediction", pred,
		)
	}
	return apply(c, pred)
}

func (p *Predicted) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}
