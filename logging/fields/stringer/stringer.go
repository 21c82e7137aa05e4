package stringer

import (
	"encoding/hex"
	"strconv"
)

type HexStringer struct {
	Val []byte
}

func (h HexStringer) String() string {
	return hex.EncodeToString(h.Val)
}

type Uint64Stringer struct {
	Val uint64
}

func (u Uint64Stringer) String() string {
	return strconv.FormatUint(u.Val, 10)
}

type Float64Stringer struct {
	Val float64
}

func (f Float64Stringer) String() string {
	return strconv.FormatFloat(f.Val, 'f', -1, 64)
}

type FuncStringer struct {
	Fn func() string
}

func (f FuncStringer) String() string {
	return f.Fn()
}
