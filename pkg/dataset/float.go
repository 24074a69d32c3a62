package dataset

import (
	"math"
	"strconv"
)

// Float is a float64 that marshals NaN and infinities as JSON null. Messy
// sensor data makes NaN a normal value here (undefined correlations, empty
// summary windows), and encoding/json refuses raw NaN, so every float that
// crosses the HTTP boundary uses this type.
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

func (f *Float) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = Float(math.NaN())
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// IsNull reports whether the value marshals as JSON null.
func (f Float) IsNull() bool {
	v := float64(f)
	return math.IsNaN(v) || math.IsInf(v, 0)
}
