package hpack

// Huffman encoding and decoding of byte strings using the canonical
// HPACK code table (huffman_table.go). The decode side walks a precomputed
// byte-at-a-time decision tree, grounded on the node/children walk in
// golang-net__huffman.go (the early x/net/http2/hpack prototype in the
// retrieval pack); the encode side packs codes MSB-first into a bit
// buffer, grounded on the bit-packing loop in
// erda-project-erda-agent/pkg/hpack/hpack.go's HuffmanEncode.

// huffmanEncodedLen returns the number of bytes appendHuffmanString
// would produce for s, without materializing the output. The encoder
// uses this to decide whether Huffman coding beats a raw literal.
func huffmanEncodedLen(s string) int {
	var bits int
	for i := 0; i < len(s); i++ {
		bits += int(huffmanCodeLen[s[i]])
	}
	return (bits + 7) / 8
}

// appendHuffmanString Huffman-encodes s and appends the result to dst.
// The final octet, if s's total bit length isn't a multiple of 8, is
// padded with the high-order bits of the EOS code (all 1-bits), never
// more than 7 bits of padding.
func appendHuffmanString(dst []byte, s string) []byte {
	var cur uint64
	var nbits uint

	for i := 0; i < len(s); i++ {
		c := s[i]
		cur <<= uint(huffmanCodeLen[c])
		cur |= uint64(huffmanCodes[c])
		nbits += uint(huffmanCodeLen[c])
		for nbits >= 8 {
			nbits -= 8
			dst = append(dst, byte(cur>>nbits))
		}
	}
	if nbits > 0 {
		// Pad with the high bits of the EOS code (30 ones).
		cur <<= 8 - nbits
		cur |= uint64(huffmanCodes[huffmanEOS]) >> (uint(huffmanCodeLen[huffmanEOS]) - (8 - nbits))
		dst = append(dst, byte(cur))
	}
	return dst
}

// huffmanNode is an entry in the byte-at-a-time decode tree. Leaf nodes
// (children == nil) carry the decoded symbol and the number of bits
// its code actually occupies; internal nodes have 256 children, one
// per possible next input byte.
type huffmanNode struct {
	children []*huffmanNode
	sym      uint16 // valid only on a leaf
	codeLen  uint8  // valid only on a leaf
}

func newHuffmanInternalNode() *huffmanNode {
	return &huffmanNode{children: make([]*huffmanNode, 256)}
}

var huffmanRoot = buildHuffmanTree()

func buildHuffmanTree() *huffmanNode {
	root := newHuffmanInternalNode()
	for sym := 0; sym < 257; sym++ {
		addHuffmanDecoderNode(root, uint16(sym), huffmanCodes[sym], huffmanCodeLen[sym])
	}
	return root
}

// addHuffmanDecoderNode inserts the leaf for (sym, code, codeLen) into
// root, fanning out over however many full bytes of the code remain
// and filling every remaining-byte combination with the same leaf so
// that an 8-bit lookup always lands on a definitive node.
func addHuffmanDecoderNode(root *huffmanNode, sym uint16, code uint32, codeLen uint8) {
	cur := root
	for codeLen > 8 {
		codeLen -= 8
		i := uint8(code >> codeLen)
		if cur.children[i] == nil {
			cur.children[i] = newHuffmanInternalNode()
		}
		cur = cur.children[i]
	}
	shift := 8 - codeLen
	start := int(uint8(code << shift))
	end := start + 1<<shift
	leaf := &huffmanNode{sym: sym, codeLen: codeLen}
	for i := start; i < end; i++ {
		cur.children[i] = leaf
	}
}

// huffmanDecode decodes the Huffman-encoded string in src, appending
// the result to dst. It fails with a DecompressionError if the EOS
// symbol appears as data, or if the trailing padding bits are not a
// strict, sub-8-bit prefix of the EOS code.
//
// cur holds the bits not yet fed into the tree; nbits is how many of
// its low bits haven't been descended into the tree yet. It never
// reaches 8: the inner loop drains it below 8 on every byte, which is
// what lets the trailing loop below reuse it directly instead of
// tracking a second, independently-drifting bit count.
func huffmanDecode(dst []byte, src []byte) ([]byte, error) {
	n := huffmanRoot
	var cur uint
	var nbits uint8

	for _, b := range src {
		cur = cur<<8 | uint(b)
		nbits += 8
		for nbits >= 8 {
			idx := byte(cur >> (nbits - 8))
			n = n.children[idx]
			if n == nil {
				return nil, decompressionErrorf("hpack: invalid huffman code")
			}
			if n.children == nil {
				if n.sym == huffmanEOS {
					return nil, decompressionErrorf("hpack: huffman-encoded EOS symbol in data")
				}
				dst = append(dst, byte(n.sym))
				nbits -= n.codeLen
				n = huffmanRoot
			} else {
				nbits -= 8
			}
		}
	}

	for nbits > 0 {
		n = n.children[byte(cur<<(8-nbits))]
		if n == nil {
			return nil, decompressionErrorf("hpack: invalid huffman code")
		}
		if n.children != nil || n.codeLen > nbits {
			// Incomplete code: fewer bits remain than its symbol needs.
			// Legal only as padding, checked below.
			break
		}
		if n.sym == huffmanEOS {
			return nil, decompressionErrorf("hpack: huffman-encoded EOS symbol in data")
		}
		dst = append(dst, byte(n.sym))
		nbits -= n.codeLen
		n = huffmanRoot
	}
	if mask := uint(1<<nbits - 1); cur&mask != mask {
		return nil, decompressionErrorf("hpack: invalid huffman padding")
	}
	return dst, nil
}
