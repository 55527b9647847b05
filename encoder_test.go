package hpack

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Encoder", func() {
	var (
		enc *Encoder
		buf *bytes.Buffer
	)

	BeforeEach(func() {
		buf = &bytes.Buffer{}
		enc = NewEncoder(4096)
	})

	It("emits Indexed for a static (name,value) match", func() {
		Expect(enc.EncodeHeader(buf, ":method", "GET", false)).To(Succeed())
		Expect(buf.Bytes()).To(Equal([]byte{0x82}))
	})

	It("emits Literal With Incremental Indexing for a novel header, and adds it", func() {
		Expect(enc.EncodeHeader(buf, "custom-key", "custom-value", false)).To(Succeed())
		Expect(buf.Bytes()[0] & 0xc0).To(Equal(byte(literalIncrementalMask)))
		Expect(enc.dynTab.length()).To(Equal(1))
	})

	It("emits Indexed for a header it already added to the dynamic table", func() {
		Expect(enc.EncodeHeader(buf, "custom-key", "custom-value", false)).To(Succeed())
		buf.Reset()
		Expect(enc.EncodeHeader(buf, "custom-key", "custom-value", false)).To(Succeed())
		Expect(buf.Bytes()[0] & 0x80).To(Equal(byte(0x80)))
	})

	It("emits Literal Never Indexed for a sensitive header and never adds it", func() {
		Expect(enc.EncodeHeader(buf, "authorization", "secret", true)).To(Succeed())
		Expect(buf.Bytes()[0] & 0xf0).To(Equal(byte(literalNeverIndexedMask)))
		Expect(enc.dynTab.length()).To(Equal(0))
	})

	It("emits Literal Without Indexing when capacity is zero and the field isn't static", func() {
		zero := NewEncoder(0)
		var zbuf bytes.Buffer
		Expect(zero.EncodeHeader(&zbuf, "custom-key", "custom-value", false)).To(Succeed())
		Expect(zbuf.Bytes()[0] & 0xf0).To(Equal(byte(literalWithoutIndexingMask)))
	})

	It("emits Indexed when capacity is zero but the field is static", func() {
		zero := NewEncoder(0)
		var zbuf bytes.Buffer
		Expect(zero.EncodeHeader(&zbuf, ":method", "GET", false)).To(Succeed())
		Expect(zbuf.Bytes()).To(Equal([]byte{0x82}))
	})

	It("emits Literal Without Indexing, and does not add, when the field alone exceeds capacity", func() {
		small := NewEncoder(16)
		var sbuf bytes.Buffer
		Expect(small.EncodeHeader(&sbuf, "custom-key", "custom-value", false)).To(Succeed())
		Expect(sbuf.Bytes()[0] & 0xf0).To(Equal(byte(literalWithoutIndexingMask)))
		Expect(small.dynTab.length()).To(Equal(0))
	})

	It("writes the mandatory size-update signal and resizes", func() {
		Expect(enc.SetMaxHeaderTableSize(buf, 0)).To(Succeed())
		Expect(buf.Bytes()).To(Equal([]byte{0x20}))
		Expect(enc.MaxHeaderTableSize()).To(Equal(uint32(0)))
	})

	It("honors the forced-huffman test knob", func() {
		enc.forceHuffman = -1
		Expect(enc.EncodeHeader(buf, "custom-key", "custom-value", false)).To(Succeed())
		Expect(buf.Bytes()[1] & 0x80).To(Equal(byte(0)))
	})
})
