package hpack

// appendVarInt encodes value as an HPACK integer with an N-bit prefix
// (RFC 7541 §5.1) and appends the result to dst. The leading octet
// carries only the prefix bits; appendIndexByte ORs a representation's
// type bits onto it afterwards.
//
// Grounded on the encodeInteger shape used throughout the pack
// (quic-go-qpack's appendVarInt, erda-project-erda-agent's
// encodeInteger): write the prefix octet first, then, only if the
// value didn't fit, a run of base-128 continuation octets.
func appendVarInt(dst []byte, n uint8, value uint64) []byte {
	if n < 1 || n > 8 {
		panic(InvalidArgumentError("hpack: integer prefix width must be in [1,8]"))
	}
	maxPrefix := uint64(1)<<n - 1
	if value < maxPrefix {
		return append(dst, byte(value))
	}
	dst = append(dst, byte(maxPrefix))
	value -= maxPrefix
	for value >= 128 {
		dst = append(dst, byte(value&0x7f|0x80))
		value >>= 7
	}
	return append(dst, byte(value))
}

// maxVarInt is the largest value the decoder will accept, matching the
// RFC's requirement that integers stay representable in 31 bits.
const maxVarInt = 1<<31 - 1

// readVarInt decodes an HPACK integer whose prefix occupies the low n
// bits of src[0] (n in [1,8]), returning the value and the remainder
// of src after the integer.
//
// If src ends before the integer is complete, readVarInt returns
// errNeedMore and a nil rest; callers must not advance their own read
// cursor past the start of this integer in that case (the decoder
// achieves this for free by buffering: it only consumes input once a
// readVarInt call succeeds).
func readVarInt(n uint8, src []byte) (value uint64, rest []byte, err error) {
	if n < 1 || n > 8 {
		panic(InvalidArgumentError("hpack: integer prefix width must be in [1,8]"))
	}
	if len(src) == 0 {
		return 0, nil, errNeedMore
	}
	maxPrefix := uint64(1)<<n - 1
	value = uint64(src[0]) & maxPrefix
	rest = src[1:]
	if value < maxPrefix {
		return value, rest, nil
	}

	var shift uint
	for {
		if len(rest) == 0 {
			return 0, nil, errNeedMore
		}
		b := rest[0]
		rest = rest[1:]

		if shift == 28 {
			// Only the low 3 bits of this 7-bit group may still be
			// significant at this point without overflowing 2^31-1;
			// reject anything that would require more.
			if b&0xf8 != 0 {
				return 0, nil, decompressionErrorf("hpack: integer overflows 31 bits")
			}
		} else if shift >= 32 {
			return 0, nil, decompressionErrorf("hpack: integer overflows 31 bits")
		}

		value += uint64(b&0x7f) << shift
		if value > maxVarInt {
			return 0, nil, decompressionErrorf("hpack: integer overflows 31 bits")
		}
		if b&0x80 == 0 {
			return value, rest, nil
		}
		shift += 7
	}
}
