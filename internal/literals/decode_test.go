package literals

import (
	"math"
	"testing"

	"github.com/clay-lang/claycore/internal/types"
)

func TestDecodeIntDefaultsToInt32(t *testing.T) {
	in := types.NewInterner()
	d := New(in)

	vh, typ, err := d.DecodeInt("42", "", nil)
	if err != nil {
		t.Fatalf("DecodeInt: %v", err)
	}
	if typ != in.InternInteger(32, true) {
		t.Errorf("expected Int32, got %v", typ)
	}
	if len(vh.Bytes) != 4 || vh.Bytes[0] != 42 {
		t.Errorf("unexpected bytes: %v", vh.Bytes)
	}
}

func TestDecodeIntSuffixes(t *testing.T) {
	in := types.NewInterner()
	d := New(in)

	t.Run("ss is Int8", func(t *testing.T) {
		_, typ, err := d.DecodeInt("5", "ss", nil)
		if err != nil {
			t.Fatalf("DecodeInt: %v", err)
		}
		if typ != in.InternInteger(8, true) {
			t.Errorf("expected Int8, got %v", typ)
		}
	})

	t.Run("u is UInt32", func(t *testing.T) {
		_, typ, err := d.DecodeInt("5", "u", nil)
		if err != nil {
			t.Fatalf("DecodeInt: %v", err)
		}
		if typ != in.InternInteger(32, false) {
			t.Errorf("expected UInt32, got %v", typ)
		}
	})

	t.Run("unknown suffix fails", func(t *testing.T) {
		if _, _, err := d.DecodeInt("5", "zz", nil); err == nil {
			t.Fatal("expected InvalidSuffixError")
		}
	})

	t.Run("out of range fails", func(t *testing.T) {
		if _, _, err := d.DecodeInt("999", "ss", nil); err == nil {
			t.Fatal("expected OutOfRangeError for int8 overflow")
		}
	})
}

func TestDecodeIntHex(t *testing.T) {
	in := types.NewInterner()
	d := New(in)

	vh, typ, err := d.DecodeInt("0xFF", "i", nil)
	if err != nil {
		t.Fatalf("DecodeInt: %v", err)
	}
	if typ != in.InternInteger(32, true) {
		t.Errorf("expected Int32, got %v", typ)
	}
	if vh.Bytes[0] != 0xFF {
		t.Errorf("expected byte 0xFF, got %v", vh.Bytes)
	}
}

func TestDecodeFloatDefaultIsFloat64(t *testing.T) {
	in := types.NewInterner()
	d := New(in)

	vh, typ, err := d.DecodeFloat("1.5", "")
	if err != nil {
		t.Fatalf("DecodeFloat: %v", err)
	}
	if typ != in.InternFloat(64, false) {
		t.Errorf("expected Float64, got %v", typ)
	}
	got := math.Float64frombits(uint64(vh.Bytes[0]) | uint64(vh.Bytes[1])<<8 |
		uint64(vh.Bytes[2])<<16 | uint64(vh.Bytes[3])<<24 | uint64(vh.Bytes[4])<<32 |
		uint64(vh.Bytes[5])<<40 | uint64(vh.Bytes[6])<<48 | uint64(vh.Bytes[7])<<56)
	if got != 1.5 {
		t.Errorf("decoded %v, want 1.5", got)
	}
}

func TestDecodeFloatHexLiteralRoundTrips(t *testing.T) {
	// Testable Property 9: a hex-float literal decodes to the same bit
	// pattern strtod would produce for it.
	in := types.NewInterner()
	d := New(in)

	vh, typ, err := d.DecodeFloat("0x1.8p3", "f")
	if err != nil {
		t.Fatalf("DecodeFloat: %v", err)
	}
	if typ != in.InternFloat(32, false) {
		t.Errorf("expected Float32, got %v", typ)
	}
	bits := uint32(vh.Bytes[0]) | uint32(vh.Bytes[1])<<8 | uint32(vh.Bytes[2])<<16 | uint32(vh.Bytes[3])<<24
	got := math.Float32frombits(bits)
	if got != 12.0 {
		t.Errorf("0x1.8p3 should decode to 12.0, got %v", got)
	}
}

func TestDecodeFloatImaginarySuffix(t *testing.T) {
	in := types.NewInterner()
	d := New(in)

	_, typ, err := d.DecodeFloat("2.0", "j")
	if err != nil {
		t.Fatalf("DecodeFloat: %v", err)
	}
	want := in.InternFloat(64, true)
	if typ != want {
		t.Errorf("expected imaginary Float64, got %v", typ)
	}
}

func TestDecodeFloatUnknownSuffixFails(t *testing.T) {
	in := types.NewInterner()
	d := New(in)
	if _, _, err := d.DecodeFloat("1.0", "zz"); err == nil {
		t.Fatal("expected InvalidSuffixError")
	}
}
