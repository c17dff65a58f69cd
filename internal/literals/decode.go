// Package literals implements spec.md §4.6: decoding an undecoded integer
// or float literal token plus its suffix into a typed compile-time
// constant, grounded on compiler/literals.cpp's parseIntLiteral /
// parseFloatLiteral suffix tables. It implements analyzer.LiteralDecoder.
package literals

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/clay-lang/claycore/internal/types"
	"github.com/clay-lang/claycore/internal/values"
)

// Decoder is a stateless literal decoder bound to a type interner.
type Decoder struct {
	Interner *types.Interner
}

// New creates a Decoder over in.
func New(in *types.Interner) *Decoder { return &Decoder{Interner: in} }

// intSuffixes maps a literal suffix to a (bits, signed) integer shape,
// grounded on literals.cpp's typeSuffix calls.
var intSuffixes = []struct {
	suffix string
	bits   int
	signed bool
}{
	{"ss", 8, true},
	{"s", 16, true},
	{"i", 32, true},
	{"l", 64, true},
	{"ll", 128, true},
	{"uss", 8, false},
	{"us", 16, false},
	{"u", 32, false},
	{"ul", 64, false},
	{"ull", 128, false},
}

// DecodeInt implements analyzer.LiteralDecoder: text is the literal's
// digit run (decimal, or 0x/0X-prefixed hex, exactly as the lexer captured
// it), suffix selects the integer width per intSuffixes, and an empty
// suffix falls back to defaultIntType (or Int32, matching the module's
// default attribute when unset).
func (d *Decoder) DecodeInt(text, suffix string, defaultIntType *types.Type) (values.ValueHolder, *types.Type, error) {
	// base 0 lets strconv infer the base from the "0x"/"0X" prefix the
	// same way ishex()+strtol(..., 16) does in the original source.
	const base = 0

	bits, signed, ok := resolveIntShape(suffix, defaultIntType)
	if !ok {
		return values.ValueHolder{}, nil, &InvalidSuffixError{Text: text, Suffix: suffix}
	}

	// strconv's ParseInt/ParseUint only check ranges up to 64 bits and
	// always return an int64/uint64; int128 literals are clamped to that
	// range and sign-extended into the wider buffer below.
	checkBits := bits
	if checkBits > 64 {
		checkBits = 64
	}

	if signed {
		y, err := strconv.ParseInt(text, base, checkBits)
		if err != nil {
			return values.ValueHolder{}, nil, &OutOfRangeError{Text: text, Bits: bits, Signed: true}
		}
		t := d.Interner.InternInteger(bits, true)
		return encodeSigned(t, bits, y), t, nil
	}
	y, err := strconv.ParseUint(text, base, checkBits)
	if err != nil {
		return values.ValueHolder{}, nil, &OutOfRangeError{Text: text, Bits: bits, Signed: false}
	}
	t := d.Interner.InternInteger(bits, false)
	return encodeUnsigned(t, bits, y), t, nil
}

func resolveIntShape(suffix string, defaultIntType *types.Type) (bits int, signed bool, ok bool) {
	if suffix == "" {
		if defaultIntType != nil && defaultIntType.Kind() == types.KindInteger {
			return defaultIntType.Bits(), defaultIntType.Signed(), true
		}
		return 32, true, true
	}
	for _, s := range intSuffixes {
		if s.suffix == suffix {
			return s.bits, s.signed, true
		}
	}
	return 0, false, false
}

func encodeSigned(t *types.Type, bits int, y int64) values.ValueHolder {
	buf := make([]byte, bits/8)
	switch bits {
	case 8:
		buf[0] = byte(y)
	case 16:
		binary.LittleEndian.PutUint16(buf, uint16(y))
	case 32:
		binary.LittleEndian.PutUint32(buf, uint32(y))
	case 64:
		binary.LittleEndian.PutUint64(buf, uint64(y))
	case 128:
		binary.LittleEndian.PutUint64(buf[:8], uint64(y))
		if y < 0 {
			for i := 8; i < 16; i++ {
				buf[i] = 0xFF
			}
		}
	}
	return values.NewValueHolder(t, buf)
}

func encodeUnsigned(t *types.Type, bits int, y uint64) values.ValueHolder {
	buf := make([]byte, bits/8)
	switch bits {
	case 8:
		buf[0] = byte(y)
	case 16:
		binary.LittleEndian.PutUint16(buf, uint16(y))
	case 32:
		binary.LittleEndian.PutUint32(buf, uint32(y))
	case 64:
		binary.LittleEndian.PutUint64(buf, y)
	case 128:
		binary.LittleEndian.PutUint64(buf[:8], y)
	}
	return values.NewValueHolder(t, buf)
}

// floatSuffixes maps a literal suffix to a (bit width, imaginary) shape,
// grounded on literals.cpp's parseFloatLiteral ("f" -> 32, "ff" -> 64,
// "fl"/"l" -> 80, with a trailing "j" selecting the imaginary counterpart).
var floatSuffixes = map[string]struct {
	bits      int
	imaginary bool
}{
	"f":   {32, false},
	"ff":  {64, false},
	"fl":  {80, false},
	"l":   {80, false},
	"fj":  {32, true},
	"ffj": {64, true},
	"flj": {80, true},
	"j":   {64, true},
	"lj":  {80, true},
}

// DecodeFloat implements analyzer.LiteralDecoder. Go's strconv.ParseFloat
// natively accepts the IEEE hex-float syntax ("0x1.8p3") the same way C's
// strtod does, so no separate hex-float parser is needed (Testable
// Property 9: hex-float decode round-trips through the same bit pattern
// strtod would produce).
func (d *Decoder) DecodeFloat(text, suffix string) (values.ValueHolder, *types.Type, error) {
	shape, ok := floatSuffixes[suffix]
	bits, imaginary := shape.bits, shape.imaginary
	if !ok && suffix != "" {
		return values.ValueHolder{}, nil, &InvalidSuffixError{Text: text, Suffix: suffix}
	}
	if suffix == "" {
		bits = 64
	}
	typeBits := bits
	if bits == 80 {
		// No native 80-bit float in Go; the value is parsed and stored as an
		// 8-byte float64 bit pattern under the Float80 descriptor
		// (internal/backend owns the x87 extended representation at codegen
		// time).
		bits = 64
	}
	y, err := strconv.ParseFloat(text, bits)
	if err != nil {
		return values.ValueHolder{}, nil, &OutOfRangeError{Text: text, Bits: bits, Signed: true}
	}
	t := d.Interner.InternFloat(typeBits, imaginary)
	buf := make([]byte, bits/8)
	if bits == 32 {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(y)))
	} else {
		binary.LittleEndian.PutUint64(buf, math.Float64bits(y))
	}
	return values.NewValueHolder(t, buf), t, nil
}

// InvalidSuffixError reports a literal suffix not in the integer or float
// suffix table.
type InvalidSuffixError struct {
	Text, Suffix string
}

func (e *InvalidSuffixError) Error() string {
	return fmt.Sprintf("invalid literal suffix %q on %q", e.Suffix, e.Text)
}

// OutOfRangeError reports a literal whose value doesn't fit its resolved
// width, or that fails to parse at all.
type OutOfRangeError struct {
	Text   string
	Bits   int
	Signed bool
}

func (e *OutOfRangeError) Error() string {
	kind := "u"
	if e.Signed {
		kind = ""
	}
	return fmt.Sprintf("literal %q out of range for %sint%d", e.Text, kind, e.Bits)
}
