package offset_test

import (
	"encoding/base64"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nrfta/catalog-go/offset"
)

var _ = Describe("Cursor Encoding/Decoding", func() {
	It("should round trip an offset", func() {
		cursor := offset.EncodeCursor(34)
		Expect(*cursor).To(Equal("b2Zmc2V0OjM0"))

		n, ok := offset.DecodeCursor(cursor)
		Expect(ok).To(BeTrue())
		Expect(n).To(Equal(34))
	})

	It("should reject a nil cursor", func() {
		_, ok := offset.DecodeCursor(nil)
		Expect(ok).To(BeFalse())
	})

	DescribeTable("should reject malformed cursors",
		func(raw string) {
			_, ok := offset.DecodeCursor(&raw)
			Expect(ok).To(BeFalse())
		},
		Entry("not base64", "invalid*cursor"),
		Entry("wrong prefix", base64.RawURLEncoding.EncodeToString([]byte("page:3"))),
		Entry("not a number", base64.RawURLEncoding.EncodeToString([]byte("offset:x"))),
		Entry("negative", base64.RawURLEncoding.EncodeToString([]byte("offset:-1"))),
	)
})
