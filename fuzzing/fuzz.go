// Package fuzzing hosts a go-fuzz-style entry point exercising the
// round-trip property: encoding a decoded header sequence and decoding
// it again must reproduce the same fields.
package fuzzing

import (
	"bytes"
	"reflect"

	hpack "github.com/gopherlabs/hpack"
)

func Fuzz(data []byte) int {
	var fields []hpack.HeaderField
	dec := hpack.NewDecoder(1<<20, 4096, func(f hpack.HeaderField, sensitive bool) {
		fields = append(fields, f)
	})
	if _, err := dec.Write(data); err != nil {
		return 0
	}
	dec.EndHeaderBlock()
	if len(fields) == 0 {
		return 0
	}

	buf := &bytes.Buffer{}
	enc := hpack.NewEncoder(4096)
	for _, f := range fields {
		if err := enc.EncodeHeader(buf, f.Name, f.Value, false); err != nil {
			panic(err)
		}
	}

	var roundTripped []hpack.HeaderField
	dec2 := hpack.NewDecoder(1<<20, 4096, func(f hpack.HeaderField, sensitive bool) {
		roundTripped = append(roundTripped, f)
	})
	if _, err := dec2.Write(buf.Bytes()); err != nil {
		panic(err)
	}
	dec2.EndHeaderBlock()

	if !reflect.DeepEqual(fields, roundTripped) {
		panic("hpack: fuzz round trip mismatch")
	}
	return 1
}
