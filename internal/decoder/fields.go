package decoder

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// fields holds decoded event arguments by name and remembers the first
// missing or mistyped argument.
type fields struct {
	values map[string]any
	err    error
}

func (f *fields) address(name string) common.Address {
	return get[common.Address](f, name)
}

func (f *fields) bigInt(name string) *big.Int {
	return get[*big.Int](f, name)
}

// Err returns the first argument error met so far.
func (f *fields) Err() error {
	return f.err
}

// get returns the named argument as T.
func get[T any](f *fields, name string) T {
	var zero T

	raw, ok := f.values[name]
	if !ok {
		if f.err == nil {
			f.err = fmt.Errorf("missing argument %q", name)
		}
		return zero
	}

	v, ok := raw.(T)
	if !ok {
		if f.err == nil {
			f.err = fmt.Errorf("argument %q has type %T, want %T", name, raw, zero)
		}
		return zero
	}
	return v
}
