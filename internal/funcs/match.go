package funcs

import (
	"fmt"
	"strings"

	"github.com/roach88/formulon/internal/dtype"
)

// ArgumentTypeError reports a call whose argument types fit no signature.
type ArgumentTypeError struct {
	Name     string
	ArgTypes []dtype.DataType
}

func (e *ArgumentTypeError) Error() string {
	parts := make([]string, len(e.ArgTypes))
	for i, t := range e.ArgTypes {
		parts[i] = t.String()
	}
	return fmt.Sprintf("invalid argument types for %s(%s)", e.Name, strings.Join(parts, ", "))
}

// Cast asks for argument Arg to be converted to To before the call.
type Cast struct {
	Arg int
	To  dtype.DataType
}

// Resolution is the outcome of matching a call against a definition.
type Resolution struct {
	Signature Signature
	Casts     []Cast
}

// Return is the call's result type.
func (r Resolution) Return() dtype.DataType { return r.Signature.Return }

// Match selects the signature of def that fits argTypes with the fewest
// implicit casts. Ties go to the signature declared first.
func Match(def Definition, argTypes []dtype.DataType) (Resolution, error) {
	best := -1
	var bestRes Resolution
	for _, sig := range def.Signatures {
		casts, ok := fit(sig, argTypes)
		if !ok {
			continue
		}
		if best < 0 || len(casts) < best {
			best = len(casts)
			bestRes = Resolution{Signature: sig, Casts: casts}
		}
	}
	if best < 0 {
		return Resolution{}, &ArgumentTypeError{Name: def.Name, ArgTypes: append([]dtype.DataType(nil), argTypes...)}
	}
	return bestRes, nil
}

func fit(sig Signature, argTypes []dtype.DataType) ([]Cast, bool) {
	want, ok := expand(sig, len(argTypes))
	if !ok {
		return nil, false
	}
	var casts []Cast
	for i, got := range argTypes {
		switch {
		case want[i] == Any, got == want[i], got == dtype.Null:
		case dtype.CanImplicitlyCast(got, want[i]):
			casts = append(casts, Cast{Arg: i, To: want[i]})
		default:
			return nil, false
		}
	}
	return casts, true
}

// expand returns the per-argument types of sig for a call with n arguments.
func expand(sig Signature, n int) ([]dtype.DataType, bool) {
	if !sig.Variadic {
		return sig.Args, len(sig.Args) == n
	}
	fixed := len(sig.Args) - 1
	if n < fixed {
		return nil, false
	}
	out := make([]dtype.DataType, n)
	copy(out, sig.Args[:fixed])
	for i := fixed; i < n; i++ {
		out[i] = sig.Args[fixed]
	}
	return out, true
}
