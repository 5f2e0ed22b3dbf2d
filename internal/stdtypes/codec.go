package stdtypes

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/roach88/fnjit/internal/core"
	"github.com/roach88/fnjit/internal/ir"
	"github.com/roach88/fnjit/internal/mem"
	"github.com/roach88/fnjit/internal/tuple"
)

// ValueCodec converts between loosely typed values and a type's Go
// representation. Inputs to Decode are what config decoders produce:
// float64, int, int64, bool, string and []any.
type ValueCodec interface {
	// Decode converts v into the type's Go representation.
	Decode(v any) (any, error)

	// Set decodes v into slot i of t.
	Set(t *tuple.Tuple, i int, v any) error

	// Get reads slot i of t.
	Get(t *tuple.Tuple, i int) any

	// Word decodes v into an IR constant word.
	Word(v any) (ir.Word, error)

	// Format renders a decoded value. The result is accepted by Decode.
	Format(v any) string
}

// CodecOf returns the ValueCodec of t or panics with MISSING_EXTENSION.
func CodecOf(t *core.Type) ValueCodec {
	return core.MustExtension[ValueCodec](t, core.ErrCodeMissingExtension)
}

type codec[T mem.Plain] struct {
	decode func(v any) (T, error)
	word   func(T) ir.Word
	format func(T) string
}

func (c codec[T]) Decode(v any) (any, error) {
	return c.decode(v)
}

func (c codec[T]) Set(t *tuple.Tuple, i int, v any) error {
	x, err := c.decode(v)
	if err != nil {
		return err
	}
	tuple.Set(t, i, x)
	return nil
}

func (c codec[T]) Get(t *tuple.Tuple, i int) any {
	return tuple.Get[T](t, i)
}

func (c codec[T]) Word(v any) (ir.Word, error) {
	x, err := c.decode(v)
	if err != nil {
		return ir.Word{}, err
	}
	return c.word(x), nil
}

func (c codec[T]) Format(v any) string {
	x, err := c.decode(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return c.format(x)
}

var floatCodec = codec[float32]{
	decode: func(v any) (float32, error) {
		f, err := toFloat(v)
		return float32(f), err
	},
	word:   ir.Float32Word,
	format: formatFloat,
}

var int32Codec = codec[int32]{
	decode: func(v any) (int32, error) {
		i, err := toInt(v)
		if err != nil {
			return 0, err
		}
		if i < math.MinInt32 || i > math.MaxInt32 {
			return 0, fmt.Errorf("%d overflows int32", i)
		}
		return int32(i), nil
	},
	word:   func(x int32) ir.Word { return ir.IntWord(int64(x)) },
	format: func(x int32) string { return strconv.FormatInt(int64(x), 10) },
}

var int64Codec = codec[int64]{
	decode: toInt,
	word:   ir.IntWord,
	format: func(x int64) string { return strconv.FormatInt(x, 10) },
}

var boolCodec = codec[bool]{
	decode: toBool,
	word:   ir.BoolWord,
	format: strconv.FormatBool,
}

var vec3Codec = codec[Vec3]{
	decode: toVec3,
	word: func(v Vec3) ir.Word {
		return ir.StructWord(ir.Float32Word(v[0]), ir.Float32Word(v[1]), ir.Float32Word(v[2]))
	},
	format: func(v Vec3) string {
		return formatFloat(v[0]) + "," + formatFloat(v[1]) + "," + formatFloat(v[2])
	},
}

func formatFloat(f float32) string {
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("parse float %q: %w", x, err)
		}
		return f, nil
	}
	return 0, fmt.Errorf("cannot use %T as float", v)
}

func toInt(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint64:
		if x > math.MaxInt64 {
			return 0, fmt.Errorf("%d overflows int64", x)
		}
		return int64(x), nil
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("%v is not an integer", x)
		}
		return int64(x), nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse int %q: %w", x, err)
		}
		return i, nil
	}
	return 0, fmt.Errorf("cannot use %T as int", v)
}

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			return false, fmt.Errorf("parse bool %q: %w", x, err)
		}
		return b, nil
	}
	return false, fmt.Errorf("cannot use %T as bool", v)
}

func toVec3(v any) (Vec3, error) {
	var parts []any
	switch x := v.(type) {
	case Vec3:
		return x, nil
	case []any:
		parts = x
	case []float64:
		for _, f := range x {
			parts = append(parts, f)
		}
	case string:
		for _, s := range strings.Split(strings.Trim(strings.TrimSpace(x), "()[]"), ",") {
			parts = append(parts, s)
		}
	default:
		return Vec3{}, fmt.Errorf("cannot use %T as fvec3", v)
	}
	if len(parts) != 3 {
		return Vec3{}, fmt.Errorf("fvec3 needs 3 components, got %d", len(parts))
	}
	var out Vec3
	for i, p := range parts {
		f, err := toFloat(p)
		if err != nil {
			return Vec3{}, fmt.Errorf("fvec3 component %d: %w", i, err)
		}
		out[i] = float32(f)
	}
	return out, nil
}
