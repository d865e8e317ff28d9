package legend

import (
	"cmp"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// CompareValues orders two cell values: NULL first, then numbers, booleans,
// times and strings. Numbers of different Go types compare by exact
// decimal value. Values of unrelated kinds order by kind, so the result is
// always a total order.
func CompareValues(a, b any) int {
	ka, kb := kindOf(a), kindOf(b)
	if ka != kb {
		return cmp.Compare(ka, kb)
	}
	switch ka {
	case kindNull:
		return 0
	case kindNumber:
		if !finite(a) || !finite(b) {
			return cmp.Compare(toFloat(a), toFloat(b))
		}
		return toDecimal(a).Cmp(toDecimal(b))
	case kindBool:
		return cmp.Compare(boolRank(a.(bool)), boolRank(b.(bool)))
	case kindTime:
		return a.(time.Time).Compare(b.(time.Time))
	case kindString:
		return cmp.Compare(toString(a), toString(b))
	default:
		return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
	}
}

type valueKind int

const (
	kindNull valueKind = iota
	kindNumber
	kindBool
	kindTime
	kindString
	kindOther
)

func kindOf(v any) valueKind {
	switch v.(type) {
	case nil:
		return kindNull
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, decimal.Decimal:
		return kindNumber
	case bool:
		return kindBool
	case time.Time:
		return kindTime
	case string, []byte:
		return kindString
	default:
		return kindOther
	}
}

func toDecimal(v any) decimal.Decimal {
	switch n := v.(type) {
	case int:
		return decimal.NewFromInt(int64(n))
	case int8:
		return decimal.NewFromInt(int64(n))
	case int16:
		return decimal.NewFromInt(int64(n))
	case int32:
		return decimal.NewFromInt(int64(n))
	case int64:
		return decimal.NewFromInt(n)
	case uint:
		return decimal.NewFromUint64(uint64(n))
	case uint8:
		return decimal.NewFromUint64(uint64(n))
	case uint16:
		return decimal.NewFromUint64(uint64(n))
	case uint32:
		return decimal.NewFromUint64(uint64(n))
	case uint64:
		return decimal.NewFromUint64(n)
	case float32:
		return decimal.NewFromFloat32(n)
	case float64:
		return decimal.NewFromFloat(n)
	case decimal.Decimal:
		return n
	default:
		panic(fmt.Sprintf("legend: %T is not a number", v))
	}
}

func finite(v any) bool {
	switch n := v.(type) {
	case float32:
		return !math.IsNaN(float64(n)) && !math.IsInf(float64(n), 0)
	case float64:
		return !math.IsNaN(n) && !math.IsInf(n, 0)
	default:
		return true
	}
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float32:
		return float64(n)
	case float64:
		return n
	default:
		return toDecimal(v).InexactFloat64()
	}
}

func toString(v any) string {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v.(string)
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}
