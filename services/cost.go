package services

import (
	"repairshop-backend/models"

	"github.com/shopspring/decimal"
)

// CostInput holds the four price components of a repair. Nil means absent.
type CostInput struct {
	DiagnosisCost *float64
	LaborCost     *float64
	PartsCost     *float64
	Discount      *float64
}

// Touched reports whether any component is present.
func (c CostInput) Touched() bool {
	return c.DiagnosisCost != nil || c.LaborCost != nil || c.PartsCost != nil || c.Discount != nil
}

func component(v *float64) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*v)
}

// CalculateTotal returns diagnosis + labor + parts - discount rounded to cents.
// Absent components count as zero and the result is not clamped.
func CalculateTotal(in CostInput) float64 {
	total := component(in.DiagnosisCost).
		Add(component(in.LaborCost)).
		Add(component(in.PartsCost)).
		Sub(component(in.Discount))
	f, _ := total.Round(2).Float64()
	return f
}

// MergeCosts overlays the patch on the persisted values of r.
func MergeCosts(r *models.Repair, patch CostInput) CostInput {
	pick := func(p *float64, current float64) *float64 {
		if p != nil {
			return p
		}
		v := current
		return &v
	}
	return CostInput{
		DiagnosisCost: pick(patch.DiagnosisCost, r.DiagnosisCost),
		LaborCost:     pick(patch.LaborCost, r.LaborCost),
		PartsCost:     pick(patch.PartsCost, r.PartsCost),
		Discount:      pick(patch.Discount, r.Discount),
	}
}

// ApplyCosts writes the components and the derived total onto r.
func ApplyCosts(r *models.Repair, in CostInput) {
	r.DiagnosisCost = component(in.DiagnosisCost).InexactFloat64()
	r.LaborCost = component(in.LaborCost).InexactFloat64()
	r.PartsCost = component(in.PartsCost).InexactFloat64()
	r.Discount = component(in.Discount).InexactFloat64()
	r.TotalCost = CalculateTotal(in)
}
