package geometry

import (
	"fmt"
	"strconv"

	"github.com/fluidpower-lab/pistonsweep/internal/config"
)

// Derivation coefficients. lKG and lSK grow sub-linearly with the piston
// length because only part of each lies inside the scaled region.
const (
	lkgFactor = 0.86
	lskFactor = 0.45
)

// DerivedSet is the scaled parameter set owned by one variant. It is never
// mutated after Derive returns it.
type DerivedSet struct {
	Scale float64

	LK  float64
	LZ0 float64
	LKG float64
	LSK float64
}

// Derive computes the variant parameter set for one scale factor. Pure and
// deterministic: identical inputs yield bit-identical outputs. The lZ0 sign
// convention must be chosen by the caller; see config.SignConvention.
func Derive(base ParameterSet, scale float64, sign config.SignConvention) (DerivedSet, error) {
	for _, name := range RequiredParams {
		if _, ok := base[name]; !ok {
			return DerivedSet{}, fmt.Errorf("required parameter %s missing from base set", name)
		}
	}

	lz0 := base[ParamLZ0] - scale
	if sign == config.SignPlus {
		lz0 = base[ParamLZ0] + scale
	}

	return DerivedSet{
		Scale: scale,
		LK:    base[ParamLK] + scale,
		LZ0:   lz0,
		LKG:   base[ParamLKG] + lkgFactor*scale,
		LSK:   base[ParamLSK] + lskFactor*scale,
	}, nil
}

// Values returns the derived values keyed by parameter name, in the same
// shape as the base set.
func (d DerivedSet) Values() ParameterSet {
	return ParameterSet{
		ParamLK:  d.LK,
		ParamLZ0: d.LZ0,
		ParamLKG: d.LKG,
		ParamLSK: d.LSK,
	}
}

// FormatValue renders a parameter value for writing into consumed files:
// shortest representation that round-trips, full precision.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
