package zod_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tlipoca9/zodgen/zod"
)

var _ = DescribeTable("JSRegex",
	func(in, want string) {
		Expect(zod.JSRegex(in)).To(Equal(want))
	},
	Entry("plain", "/^[a-z]+$/", "/^[a-z]+$/"),
	Entry("keeps supported flags", "/^a$/imsu", "/^a$/imsu"),
	Entry("drops unsupported flags", "/^a$/xD", "/^a$/"),
	Entry("hash delimiters", "#^a/b$#", `/^a\/b$/`),
	Entry("bracket delimiters", "{^x+$}", "/^x+$/"),
	Entry("inline flags", "/(?i)^abc$/", "/^abc$/i"),
	Entry("anchors", `/\Aabc\z/`, "/^abc$/"),
	Entry("doubled delimiters", "//^a$//", "/^a$/"),
	Entry("slashes inside classes", "#^[/]+$#", "/^[/]+$/"),
	Entry("undelimited", "^abc$", "/^abc$/"),
)

var _ = DescribeTable("DateFormatRegex",
	func(formats []string, want string) {
		Expect(zod.DateFormatRegex(formats...)).To(Equal(want))
	},
	Entry("time", []string{"H:i"}, `/^([01]\d|2[0-3]):[0-5]\d$/`),
	Entry("escaped literal", []string{`Y\TH`}, `/^\d{4}T([01]\d|2[0-3])$/`),
	Entry("dots are escaped", []string{"d.m.y"}, `/^(0[1-9]|[12]\d|3[01])\.(0[1-9]|1[0-2])\.\d{2}$/`),
	Entry("alternatives", []string{"Y", "y"}, `/^(\d{4}|\d{2})$/`),
)

var _ = Describe("keys", func() {
	It("should quote non-identifiers", func() {
		Expect(zod.PropertyKey("first_name")).To(Equal("first_name"))
		Expect(zod.PropertyKey("$ref")).To(Equal("$ref"))
		Expect(zod.PropertyKey("1st")).To(Equal(`"1st"`))
		Expect(zod.PropertyKey("zip-code")).To(Equal(`"zip-code"`))
	})

	It("should quote without escaping html", func() {
		Expect(zod.Quote(`<a href="x">`)).To(Equal(`"<a href=\"x\">"`))
	})
})
