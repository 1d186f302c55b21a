package sqlexec

import (
	"math"
	"math/big"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// normalizeValue converts driver values into JSON-friendly scalars. Exact
// decimals become float64.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(val)
	case pgtype.Numeric:
		return numericToFloat(val)
	case *pgtype.Numeric:
		if val == nil {
			return nil
		}
		return numericToFloat(*val)
	case *big.Float:
		f, _ := val.Float64()
		return f
	case *big.Int:
		f, _ := new(big.Float).SetInt(val).Float64()
		return f
	case [16]byte:
		return uuid.UUID(val).String()
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil
		}
		return val
	case float32:
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f
	default:
		return val
	}
}

func numericToFloat(n pgtype.Numeric) any {
	if !n.Valid || n.NaN || n.InfinityModifier != pgtype.Finite {
		return nil
	}
	f, err := n.Float64Value()
	if err != nil || !f.Valid {
		return nil
	}
	return f.Float64
}
