package hpack

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Decoder", func() {
	var (
		fields []HeaderField
		sens   []bool
		dec    *Decoder
	)

	BeforeEach(func() {
		fields = nil
		sens = nil
		dec = NewDecoder(4096, 4096, func(f HeaderField, sensitive bool) {
			fields = append(fields, f)
			sens = append(sens, sensitive)
		})
	})

	It("rejects an Indexed Header Field with index 0", func() {
		_, err := dec.Write([]byte{0x80})
		Expect(err).To(HaveOccurred())
		var decompErr *DecompressionError
		Expect(err).To(BeAssignableToTypeOf(decompErr))
	})

	It("decodes the static index for :method: GET from a single indexed byte", func() {
		_, err := dec.Write([]byte{0x82})
		Expect(err).NotTo(HaveOccurred())
		Expect(fields).To(Equal([]HeaderField{{Name: ":method", Value: "GET"}}))
		Expect(sens).To(Equal([]bool{false}))
		Expect(dec.EndHeaderBlock()).To(BeFalse())
	})

	It("applies a dynamic table size update encoded as 0x3F 0xE1 0x1F", func() {
		_, err := dec.Write([]byte{0x20, 0x3f, 0xe1, 0x1f})
		Expect(err).NotTo(HaveOccurred())
		Expect(dec.MaxHeaderTableSize()).To(Equal(uint32(4096)))
		Expect(fields).To(BeEmpty())
	})

	It("indexes a literal with incremental indexing and evicts the oldest entry once full", func() {
		small := NewDecoder(4096, 64, func(f HeaderField, sensitive bool) {
			fields = append(fields, f)
		})
		var buf bytes.Buffer
		enc := NewEncoder(64)

		Expect(enc.EncodeHeader(&buf, "a", "", false)).To(Succeed())
		Expect(enc.EncodeHeader(&buf, "bb", "", false)).To(Succeed())

		_, err := small.Write(buf.Bytes())
		Expect(err).NotTo(HaveOccurred())
		Expect(small.EndHeaderBlock()).To(BeFalse())
		Expect(fields).To(Equal([]HeaderField{
			{Name: "a", Value: ""},
			{Name: "bb", Value: ""},
		}))
		Expect(small.dynTab.length()).To(Equal(1))

		got, err := small.dynTab.getEntry(1)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal(HeaderField{Name: "bb", Value: ""}))
	})

	It("skips an oversized literal name without materializing it, and reports truncation", func() {
		small := NewDecoder(16, 4096, func(f HeaderField, sensitive bool) {
			fields = append(fields, f)
		})

		var raw []byte
		raw = appendIndexByte(raw, literalIncrementalMask, 6, 0) // new name
		raw = appendVarInt(raw, 7, 64)                           // declared name length exceeds block budget
		raw = append(raw, bytes.Repeat([]byte("x"), 64)...)
		raw = appendVarInt(raw, 7, 5)
		raw = append(raw, []byte("value")...)

		_, err := small.Write(raw)
		Expect(err).NotTo(HaveOccurred())
		Expect(fields).To(BeEmpty())
		Expect(small.EndHeaderBlock()).To(BeTrue())
		Expect(small.dynTab.length()).To(Equal(0))
	})

	It("skips an oversized literal value without materializing it, and reports truncation", func() {
		small := NewDecoder(16, 4096, func(f HeaderField, sensitive bool) {
			fields = append(fields, f)
		})

		var raw []byte
		raw = appendIndexByte(raw, literalIncrementalMask, 6, 0) // new name
		raw = appendVarInt(raw, 7, 4)                            // name fits within the block budget
		raw = append(raw, []byte("name")...)
		raw = appendVarInt(raw, 7, 64) // declared value length pushes the field over budget
		raw = append(raw, bytes.Repeat([]byte("y"), 64)...)

		_, err := small.Write(raw)
		Expect(err).NotTo(HaveOccurred())
		Expect(fields).To(BeEmpty())
		Expect(small.EndHeaderBlock()).To(BeTrue())
		Expect(small.dynTab.length()).To(Equal(0))
	})

	It("round-trips a Huffman-encoded literal", func() {
		var buf bytes.Buffer
		enc := NewEncoder(4096)
		enc.forceHuffman = 1

		Expect(enc.EncodeHeader(&buf, "custom-key", "custom-value", false)).To(Succeed())
		Expect(buf.Bytes()[1] & 0x80).To(Equal(byte(0x80)))

		_, err := dec.Write(buf.Bytes())
		Expect(err).NotTo(HaveOccurred())
		Expect(fields).To(Equal([]HeaderField{{Name: "custom-key", Value: "custom-value"}}))
	})

	It("delivers Literal Never Indexed fields as sensitive and does not index them", func() {
		var buf bytes.Buffer
		enc := NewEncoder(4096)
		Expect(enc.EncodeHeader(&buf, "authorization", "secret", true)).To(Succeed())

		_, err := dec.Write(buf.Bytes())
		Expect(err).NotTo(HaveOccurred())
		Expect(fields).To(Equal([]HeaderField{{Name: "authorization", Value: "secret"}}))
		Expect(sens).To(Equal([]bool{true}))
		Expect(dec.dynTab.length()).To(Equal(0))
	})

	It("rejects a size update that exceeds the negotiated ceiling", func() {
		_, err := dec.Write([]byte{0x3f, 0xe1, 0xff, 0x7f}) // far beyond the 4096 ceiling
		Expect(err).To(HaveOccurred())
	})
})
