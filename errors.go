package hpack

import "fmt"

// InvalidArgumentError is the panic value used when a caller violates a
// precondition of the API itself — an integer prefix width outside
// [1,8]. It is a programmer error, not something that can arise from
// wire data.
type InvalidArgumentError string

func (e InvalidArgumentError) Error() string { return string(e) }

// IndexOutOfRangeError is returned by dynamicTable.getEntry when asked
// for an index outside [1, length].
type IndexOutOfRangeError int

func (e IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("hpack: dynamic table index %d out of range", int(e))
}

// A DecompressionError is any violation of the HPACK wire contract:
// an invalid indexed representation, an integer that overflows the
// 31-bit limit, a Huffman-decoded EOS symbol, illegal Huffman padding,
// a size update that exceeds the negotiated maximum, a missing
// mandatory size update, or an empty header name. Per RFC 7541 this
// always invalidates the remainder of the connection; the codec does
// not attempt to recover from it.
type DecompressionError struct {
	reason string
}

func (e *DecompressionError) Error() string {
	return "hpack: decompression error: " + e.reason
}

func decompressionErrorf(format string, args ...interface{}) error {
	return &DecompressionError{reason: fmt.Sprintf(format, args...)}
}

// errNeedMore is a sentinel returned internally by the integer reader
// when the supplied buffer ends mid-integer. It never escapes to a
// caller of Decoder.Write: the decoder catches it, leaves the partial
// integer unconsumed in its buffer, and waits for more bytes.
var errNeedMore = fmt.Errorf("hpack: need more input")
