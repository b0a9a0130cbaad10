package zod_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tlipoca9/zodgen/validation"
	"github.com/tlipoca9/zodgen/zod"
)

func apply(b zod.Builder, vs ...validation.ResolvedValidation) zod.Builder {
	for _, v := range vs {
		b.Apply(v)
	}
	return b
}

var _ = Describe("chain discipline", func() {
	It("should append and replace fragments by kind", func() {
		b := zod.NewStringBuilder()
		b.AddRule(".max(3)")
		b.AddRule(`.refine((val) => val !== "x")`)
		b.ReplaceRule("max", ".max(5)")
		Expect(b.Chain()).To(Equal([]string{`.refine((val) => val !== "x")`, ".max(5)"}))
	})

	It("should render nullable before optional", func() {
		b := zod.NewNumberBuilder()
		b.SetOptional(true)
		b.SetNullable(true)
		Expect(b.Build()).To(Equal("z.number().nullable().optional()"))
	})

	It("should let an override base win", func() {
		b := zod.NewStringBuilder()
		b.SetBase("z.custom()")
		b.AddRule(".brand()")
		Expect(b.Build()).To(Equal("z.custom().brand()"))
	})

	DescribeTable("repeated rules collapse to the latest call",
		func(rule string, first, second any, want, gone string) {
			b := apply(zod.NewNumberBuilder(), rv(rule, first), rv(rule, second))
			out := b.Build()
			Expect(out).To(ContainSubstring(want))
			Expect(out).NotTo(ContainSubstring(gone))
		},
		Entry("min", "min", int64(1), int64(2), ".min(2)", ".min(1)"),
		Entry("max", "max", int64(9), int64(8), ".max(8)", ".max(9)"),
		Entry("gte", "gte", int64(1), int64(3), ".min(3)", ".min(1)"),
		Entry("lte", "lte", int64(7), int64(6), ".max(6)", ".max(7)"),
		Entry("gt", "gt", int64(1), int64(4), ".min(5)", ".min(2)"),
		Entry("lt", "lt", int64(9), int64(5), ".max(4)", ".max(8)"),
	)

	It("should replace length on strings", func() {
		b := apply(zod.NewStringBuilder(), rv("size", int64(3)), rv("length", int64(4)))
		Expect(strings.Count(b.Build(), ".length(")).To(Equal(1))
		Expect(b.Build()).To(ContainSubstring(".length(4)"))
	})

	DescribeTable("derived rules equal their rewritten form",
		func(derived, plain validation.ResolvedValidation) {
			a := apply(zod.NewNumberBuilder(), derived).Build()
			b := apply(zod.NewNumberBuilder(), plain).Build()
			Expect(a).To(Equal(b))
		},
		Entry("gt is min+1", rv("gt", int64(5)), rv("min", int64(6))),
		Entry("lt is max-1", rv("lt", int64(5)), rv("max", int64(4))),
		Entry("gte is min", rv("gte", int64(5)), rv("min", int64(5))),
		Entry("lte is max", rv("lte", int64(5)), rv("max", int64(5))),
	)

	It("should expand between into min and max", func() {
		b := apply(zod.NewNumberBuilder(), rv("min", int64(0)), rv("between", int64(1), int64(10)))
		Expect(b.Chain()).To(Equal([]string{".min(1)", ".max(10)"}))
	})

	It("should keep fractional exclusive bounds native on numbers", func() {
		b := apply(zod.NewNumberBuilder(), rv("gt", 0.5))
		Expect(b.Build()).To(Equal("z.number().gt(0.5)"))
	})

	It("should round fractional exclusive bounds inward on strings", func() {
		b := apply(zod.NewStringBuilder(), rv("gt", 2.5))
		Expect(b.Chain()).To(Equal([]string{".min(3)"}))
	})

	It("should skip rules without a translation", func() {
		b := zod.NewStringBuilder()
		Expect(b.Apply(rv("my_custom_rule"))).To(BeFalse())
		Expect(b.Apply(rv("unique", "users"))).To(BeTrue())
		Expect(b.Build()).To(Equal("z.string().trim()"))
	})
})

var _ = Describe("StringBuilder", func() {
	It("should render required strings", func() {
		b := apply(zod.NewStringBuilder(),
			rvm("required", "The name field is required."),
			rvm("string", "The name field must be a string."),
			rvm("max", "Too long.", int64(255)),
		)
		Expect(b.Build()).To(Equal(`z.string({ error: (iss) => (iss.input == null ? "The name field is required." : "The name field must be a string.") })` +
			`.trim().min(1, "The name field is required.").max(255, "Too long.")`))
	})

	It("should not add a second min for required", func() {
		b := apply(zod.NewStringBuilder(), rv("min", int64(3)), rv("required"))
		Expect(b.Chain()).To(Equal([]string{".min(3)"}))
	})

	It("should convert regex delimiters", func() {
		b := apply(zod.NewStringBuilder(), rvm("regex", "Bad.", "/^[a-z]+$/i"))
		Expect(b.Chain()).To(Equal([]string{`.regex(/^[a-z]+$/i, "Bad.")`}))
	})

	It("should keep format checks when a regex follows", func() {
		b := apply(zod.NewStringBuilder(), rv("uuid"), rv("regex", "/^a/"))
		Expect(b.Chain()).To(HaveLen(2))
	})

	DescribeTable("affixes",
		func(v validation.ResolvedValidation, want string) {
			Expect(apply(zod.NewStringBuilder(), v).Chain()).To(Equal([]string{want}))
		},
		Entry("single prefix", rv("starts_with", "ab"), `.startsWith("ab")`),
		Entry("prefix list", rv("starts_with", "a", "b"), `.refine((val) => ["a","b"].some((p) => val.startsWith(p)))`),
		Entry("negated suffix", rv("doesnt_end_with", "x"), `.refine((val) => !["x"].some((p) => val.endsWith(p)))`),
	)

	It("should render membership lists", func() {
		b := apply(zod.NewStringBuilder(), rv("not_in", "a", "b"))
		Expect(b.Chain()).To(Equal([]string{`.refine((val) => !["a","b"].includes(val))`}))
	})

	It("should pick ascii variants", func() {
		uni := apply(zod.NewStringBuilder(), rv("alpha")).Build()
		ascii := apply(zod.NewStringBuilder(), rv("alpha", "ascii")).Build()
		Expect(uni).To(ContainSubstring(`\p{L}`))
		Expect(ascii).To(ContainSubstring("[a-zA-Z]+"))
	})

	It("should compile date formats", func() {
		b := apply(zod.NewStringBuilder(), rv("date_format", "Y-m-d"))
		Expect(b.Build()).To(ContainSubstring(`/^\d{4}-(0[1-9]|1[0-2])-(0[1-9]|[12]\d|3[01])$/.test(val)`))
	})
})

var _ = Describe("NumberBuilder", func() {
	It("should switch to z.int for integers", func() {
		b := apply(zod.NewNumberBuilder(), rvm("required", "Required."), rvm("integer", "Whole numbers."))
		Expect(b.Build()).To(Equal(`z.int({ error: (iss) => (iss.input == null ? "Required." : "Whole numbers.") })`))
	})

	It("should render digits as a floored absolute length check", func() {
		b := apply(zod.NewNumberBuilder(), rv("digits", int64(4)))
		Expect(b.Chain()).To(Equal([]string{".refine((val) => Math.floor(Math.abs(val)).toString().length === 4)"}))
	})

	It("should render digits between", func() {
		b := apply(zod.NewNumberBuilder(), rv("digits_between", int64(2), int64(3)))
		Expect(b.Build()).To(ContainSubstring("length >= 2 && Math.floor(Math.abs(val)).toString().length <= 3"))
	})

	It("should count decimal places on the string form", func() {
		b := apply(zod.NewNumberBuilder(), rv("decimal", int64(1), int64(2)))
		Expect(b.Build()).To(ContainSubstring(`String(val).split(".")[1]`))
		Expect(b.Build()).To(ContainSubstring("d >= 1 && d <= 2"))
	})

	It("should render numeric membership", func() {
		b := apply(zod.NewNumberBuilder(), rv("in", int64(1), int64(2)), rv("multiple_of", int64(5)))
		Expect(b.Chain()).To(Equal([]string{".refine((val) => [1,2].includes(val))", ".multipleOf(5)"}))
	})
})

var _ = Describe("BooleanBuilder", func() {
	It("should preprocess form encodings", func() {
		out := apply(zod.NewBooleanBuilder(), rv("boolean")).Build()
		Expect(out).To(HavePrefix("z.preprocess("))
		Expect(out).To(ContainSubstring(`["true", "1", "on", "yes"]`))
		Expect(out).To(HaveSuffix("z.boolean())"))
	})

	It("should refine accepted", func() {
		b := apply(zod.NewBooleanBuilder(), rvm("accepted", "Accept it."))
		Expect(b.Chain()).To(Equal([]string{`.refine((val) => val === true, "Accept it.")`}))
	})
})

var _ = Describe("ArrayBuilder", func() {
	It("should render literal and built items", func() {
		b := zod.NewArrayBuilder()
		b.SetItem("z.string()")
		apply(b, rv("max", int64(3)))
		Expect(b.Build()).To(Equal("z.array(z.string()).max(3)"))

		b.SetItemBuilder(apply(zod.NewNumberBuilder(), rv("min", int64(1))))
		Expect(b.Build()).To(Equal("z.array(z.number().min(1)).max(3)"))
	})

	It("should enforce exact length and distinct items", func() {
		b := apply(zod.NewArrayBuilder(), rv("length", int64(2)), rv("distinct"), rv("required"))
		out := b.Build()
		Expect(out).To(ContainSubstring(".length(2)"))
		Expect(out).To(ContainSubstring("new Set("))
		Expect(out).To(ContainSubstring(".min(1)"))
	})
})

var _ = Describe("EnumBuilder", func() {
	It("should render string members", func() {
		b := apply(zod.NewEnumBuilder([]string{"active", "inactive", "pending"}), rv("in", "active", "inactive", "pending"))
		Expect(b.Build()).To(Equal(`z.enum(["active","inactive","pending"])`))
	})

	It("should ignore size rules", func() {
		b := apply(zod.NewEnumBuilder([]string{"a", "b"}), rv("max", int64(1)), rv("required"))
		Expect(b.Build()).To(Equal(`z.enum(["a","b"])`))
	})

	It("should render numeric members as literals", func() {
		b := zod.NewEnumBuilder([]string{"1", "2"})
		Expect(b.Build()).To(Equal("z.union([z.literal(1), z.literal(2)])"))
		Expect(zod.NewEnumBuilder([]string{"-1.5", "0"}).Build()).To(Equal("z.union([z.literal(-1.5), z.literal(0)])"))
	})

	DescribeTable("should keep non-canonical numbers as strings",
		func(values []string, want string) {
			Expect(zod.NewEnumBuilder(values).Build()).To(Equal(want))
		},
		Entry("leading zero", []string{"01", "02"}, `z.enum(["01","02"])`),
		Entry("infinity", []string{"1", "inf"}, `z.enum(["1","inf"])`),
		Entry("NaN", []string{"NaN"}, `z.enum(["NaN"])`),
		Entry("exponent", []string{"1e3"}, `z.enum(["1e3"])`),
	)

	It("should reference external values", func() {
		b := apply(zod.NewEnumRefBuilder("StatusValues"), rvm("in", "Pick one."))
		b.SetOptional(true)
		Expect(b.Build()).To(Equal(`z.enum(StatusValues, { error: "Pick one." }).optional()`))
	})
})

var _ = Describe("EmailBuilder and URLBuilder", func() {
	It("should keep required and format messages apart", func() {
		b := apply(zod.NewEmailBuilder(), rvm("required", "Required."), rvm("email", "Invalid."), rv("max", int64(255)))
		Expect(b.Build()).To(Equal(`z.email({ error: (iss) => (iss.input == null || iss.input === "" ? "Required." : "Invalid.") }).max(255)`))
	})

	It("should restrict url protocols", func() {
		b := apply(zod.NewURLBuilder(), rv("url", "http", "https"))
		Expect(b.Build()).To(Equal("z.url({ protocol: /^(http|https)$/ })"))
	})

	It("should render a bare url", func() {
		Expect(apply(zod.NewURLBuilder(), rv("url")).Build()).To(Equal("z.url()"))
	})
})

var _ = Describe("PasswordBuilder", func() {
	It("should append policy refinements with default messages", func() {
		b := zod.NewPasswordBuilder()
		b.SetField("new_password")
		apply(b, rv("min", int64(8)), rv("password_mixed"), rv("password_numbers"), rv("password_uncompromised"))
		out := b.Build()
		Expect(out).To(HavePrefix("z.string().min(8)"))
		Expect(out).To(ContainSubstring(`"The new password field must contain at least one uppercase and one lowercase letter."`))
		Expect(out).To(ContainSubstring(`/\p{N}/u.test(val)`))
		Expect(strings.Count(out, ".refine(")).To(Equal(2))
	})
})

var _ = Describe("FileBuilder", func() {
	It("should pre-populate image types", func() {
		b := apply(zod.NewFileBuilder(), rv("image", "allow_svg"))
		Expect(b.(*zod.FileBuilder).Mimes()).To(ContainElements("image/jpeg", "image/svg+xml"))
	})

	It("should map extensions and merge mime lists", func() {
		b := apply(zod.NewFileBuilder(), rv("mimes", "pdf", "png"), rv("mimetypes", "text/plain"))
		Expect(b.Chain()).To(Equal([]string{`.mime(["application/pdf","image/png","text/plain"])`}))
	})

	It("should scale kilobytes to bytes", func() {
		b := apply(zod.NewFileBuilder(), rv("max", int64(2)), rv("between", int64(1), int64(4)))
		Expect(b.Chain()).To(Equal([]string{".min(1024)", ".max(4096)"}))
	})

	It("should compile dimensions into an async refinement", func() {
		b := apply(zod.NewFileBuilder(), rv("dimensions", "min_width=100", "ratio=3/2", "height=oops"))
		out := b.Build()
		Expect(out).To(ContainSubstring("async (file)"))
		Expect(out).To(ContainSubstring("w >= 100 && Math.abs(w / h - (3 / 2)) < 0.01"))
		Expect(out).NotTo(ContainSubstring("oops"))
	})
})

var _ = Describe("objects", func() {
	It("should render inline objects with quoted keys when needed", func() {
		b := zod.NewInlineObjectBuilder()
		b.Add("city", zod.NewStringBuilder())
		b.Add("zip-code", zod.NewAnyBuilder())
		Expect(b.Build()).To(Equal(`z.object({ city: z.string().trim(), "zip-code": z.any() })`))
	})

	It("should render references", func() {
		b := apply(zod.NewObjectReferenceBuilder("AddressSchema"), rv("required"), rv("max", int64(1)))
		b.SetNullable(true)
		Expect(b.Build()).To(Equal("AddressSchema.nullable()"))
	})
})
