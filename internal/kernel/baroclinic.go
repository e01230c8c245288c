package kernel

import (
	"go.ngs.io/spherediff/internal/deriv"
	"go.ngs.io/spherediff/internal/domain"
)

// transferScratch is one worker's view of the four input fields and the
// gradients computed for them at the current point.
type transferScratch struct {
	fields    []domain.Field
	gradients []deriv.Gradient
}

// BaroclinicTransfer writes the shallow-water baroclinic transfer
//
//	(alpha/2) (dv/dx - du/dy) (dh/dx dp/dy - dh/dy dp/dx)
//
// into out. u and v are the filtered velocity components, h the layer
// thickness and p the pressure.
func BaroclinicTransfer(d *deriv.Differentiator, u, v, h, p domain.Field, alpha float64, out domain.Field) error {
	g := d.Grid()
	if err := checkLengths(g.Extents, out, u, v, h, p); err != nil {
		return err
	}

	newScratch := func() *transferScratch {
		return &transferScratch{
			fields:    []domain.Field{u, v, h, p},
			gradients: make([]deriv.Gradient, 4),
		}
	}
	ForEachPoint(g.Size(), newScratch, func(flat int, s *transferScratch) {
		idx := g.Index(flat)
		if !d.IsWater(idx) {
			out[flat] = 0
			return
		}
		d.GradientsAtPoint(s.fields, idx, s.gradients)
		gu, gv, gh, gp := s.gradients[0], s.gradients[1], s.gradients[2], s.gradients[3]
		out[flat] = (alpha / 2) * (gv.X - gu.Y) * (gh.X*gp.Y - gh.Y*gp.X)
	})
	return nil
}
