package jsshim

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/cryguy/jsbridge/internal/core"
)

// Undefined and Null are the shim's singleton values.
type (
	Undefined struct{}
	Null      struct{}
)

// Ref is a script object reachable through the current reference frame.
// It doubles as core.Object and core.Value.
type Ref struct {
	id    uint64
	token core.Token
	class int
}

// ID returns the reference id the script side knows r by.
func (r *Ref) ID() uint64 { return r.id }

// errorValue is an Error that has not been created on the script side yet.
type errorValue struct {
	msg string
}

// wire is the JSON form of a value crossing the boundary. Numbers travel as
// strings so NaN, Infinity and negative zero survive. Strings JSON cannot
// carry losslessly travel as UTF-16 code units in U.
type wire struct {
	T string   `json:"t"`
	V string   `json:"v,omitempty"`
	U []uint16 `json:"u,omitempty"`
	B bool     `json:"b,omitempty"`
	R uint64   `json:"r,omitempty"`
	P string   `json:"p,omitempty"`
	C int      `json:"c,omitempty"`
}

// reply is what an entry point hands back: a result, an exception, or for
// property access nothing at all when the host declined.
type reply struct {
	R *wire `json:"r,omitempty"`
	X *wire `json:"x,omitempty"`
	H bool  `json:"h,omitempty"`
}

type callRequest struct {
	F wire   `json:"f"`
	T wire   `json:"t"`
	A []wire `json:"a"`
}

type propRequest struct {
	O wire   `json:"o"`
	N string `json:"n"`
	V wire   `json:"v"`
}

type finalizeRequest struct {
	P string `json:"p"`
	C int    `json:"c"`
}

func encodeNumber(f float64) string {
	if f == 0 && math.Signbit(f) {
		return "-0"
	}
	return core.FormatNumber(f)
}

// encode converts a shim value into its wire form.
func encode(v core.Value) (wire, error) {
	switch x := v.(type) {
	case nil, Undefined:
		return wire{T: "u"}, nil
	case Null:
		return wire{T: "z"}, nil
	case bool:
		return wire{T: "b", B: x}, nil
	case float64:
		return wire{T: "n", V: encodeNumber(x)}, nil
	case string:
		if !utf8.ValidString(x) {
			return wire{T: "s", U: toUTF16(x)}, nil
		}
		return wire{T: "s", V: x}, nil
	case *errorValue:
		return wire{T: "e", V: x.msg}, nil
	case *Ref:
		return wire{T: "o", R: x.id}, nil
	default:
		return wire{}, fmt.Errorf("jsshim: cannot encode %T", v)
	}
}

// decode converts a wire value into a shim value.
func decode(w wire) (core.Value, error) {
	switch w.T {
	case "u":
		return Undefined{}, nil
	case "z":
		return Null{}, nil
	case "b":
		return w.B, nil
	case "n":
		return core.ParseNumber(w.V), nil
	case "s":
		if len(w.U) > 0 {
			return fromUTF16(w.U), nil
		}
		return w.V, nil
	case "e":
		return &errorValue{msg: w.V}, nil
	case "o":
		if w.R == 0 {
			return nil, fmt.Errorf("jsshim: object without reference id")
		}
		r := &Ref{id: w.R, class: w.C}
		if w.P != "" {
			tok, err := strconv.ParseUint(w.P, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("jsshim: bad private token %q: %w", w.P, err)
			}
			r.token = core.Token(tok)
		}
		return r, nil
	default:
		return nil, fmt.Errorf("jsshim: unknown wire type %q", w.T)
	}
}

// decodeReply parses a guarded reply from the script side. A thrown value
// comes back as a *core.Exception carrying it.
func decodeReply(s string) (core.Value, error) {
	var rep reply
	if err := json.Unmarshal([]byte(s), &rep); err != nil {
		return nil, fmt.Errorf("jsshim: bad reply: %w", err)
	}
	if rep.X != nil {
		exc, err := decode(*rep.X)
		if err != nil {
			return nil, err
		}
		return nil, core.NewException(exc)
	}
	if rep.R == nil {
		return Undefined{}, nil
	}
	return decode(*rep.R)
}

func marshalReply(rep reply) string {
	b, err := json.Marshal(rep)
	if err != nil {
		// Only wire values are marshaled; this cannot fail.
		panic(err)
	}
	return string(b)
}

// jsString quotes s as a script string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// fromUTF16 decodes script code units. Unpaired surrogates are kept in
// their three-byte generalized UTF-8 form so they survive a round trip.
func fromUTF16(u []uint16) string {
	b := make([]byte, 0, len(u)*3)
	for i := 0; i < len(u); i++ {
		c := rune(u[i])
		if !utf16.IsSurrogate(c) {
			b = utf8.AppendRune(b, c)
			continue
		}
		if c < 0xdc00 && i+1 < len(u) {
			if r := utf16.DecodeRune(c, rune(u[i+1])); r != utf8.RuneError {
				b = utf8.AppendRune(b, r)
				i++
				continue
			}
		}
		b = append(b, 0xe0|byte(c>>12), 0x80|byte(c>>6)&0x3f, 0x80|byte(c)&0x3f)
	}
	return string(b)
}

// toUTF16 is the inverse of fromUTF16. Other invalid bytes become U+FFFD.
func toUTF16(s string) []uint16 {
	u := make([]uint16, 0, len(s))
	for i := 0; i < len(s); {
		r, n := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && n == 1 {
			if c, ok := surrogate(s[i:]); ok {
				u = append(u, c)
				i += 3
				continue
			}
		}
		u = utf16.AppendRune(u, r)
		i += n
	}
	return u
}

// surrogate decodes a surrogate code point encoded as three bytes.
func surrogate(s string) (uint16, bool) {
	if len(s) < 3 || s[0] != 0xed || s[1] < 0xa0 || s[1] > 0xbf || s[2]&0xc0 != 0x80 {
		return 0, false
	}
	return uint16(s[0]&0x0f)<<12 | uint16(s[1]&0x3f)<<6 | uint16(s[2]&0x3f), true
}
