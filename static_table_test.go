package hpack

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("StaticTable", func() {
	It("resolves static indices for the four well-known (name,value) pairs", func() {
		Expect(staticIndexByName(":authority")).To(Equal(1))
		Expect(staticIndexByName(":invalid")).To(Equal(-1))
		Expect(staticIndexByNameValue(":method", "GET")).To(Equal(2))
		Expect(staticIndexByNameValue(":method", "POST")).To(Equal(3))
	})

	It("has 61 entries", func() {
		Expect(staticTableLen).To(Equal(61))
	})

	It("returns the smallest index for names that repeat", func() {
		// :status appears at indices 8, 9, 10, 11, 12, 13, 14 — smallest wins.
		Expect(staticIndexByName(":status")).To(Equal(8))
	})

	It("round-trips every entry through staticIndexByNameValue", func() {
		for i, hf := range staticTableEntries {
			Expect(staticIndexByNameValue(hf.Name, hf.Value)).To(Equal(i + 1))
		}
	})

	It("returns -1 for a name that exists but with a non-matching value", func() {
		Expect(staticIndexByNameValue(":method", "PATCH")).To(Equal(-1))
	})

	It("returns the entry at a given 1-based index", func() {
		Expect(staticEntry(2)).To(Equal(HeaderField{Name: ":method", Value: "GET"}))
	})
})
