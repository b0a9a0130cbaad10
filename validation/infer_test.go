package validation_test

import (
	"reflect"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tlipoca9/zodgen/validation"
)

var closedTypes = []validation.TypeTag{
	validation.TypeString, validation.TypeNumber, validation.TypeBoolean, validation.TypeArray,
	validation.TypeEmail, validation.TypeURL, validation.TypeUUID, validation.TypeULID,
	validation.TypeIP, validation.TypeJSON, validation.TypeDate, validation.TypeFile, validation.TypeImage,
}

var _ = Describe("InferType", func() {
	resolver := validation.NewResolver()

	DescribeTable("fast path",
		func(rule string, want validation.TypeTag) {
			Expect(resolver.Resolve("f", rule).Type).To(Equal(want))
		},
		Entry("email wins over string size rules", "required|email|max:255", validation.TypeEmail),
		Entry("integer", "required|integer", validation.TypeNumber),
		Entry("digits", "digits:4", validation.TypeNumber),
		Entry("boolean before email", "boolean|email", validation.TypeBoolean),
		Entry("url", "nullable|url", validation.TypeURL),
		Entry("uuid", "uuid", validation.TypeUUID),
		Entry("ip variants", "ipv6", validation.TypeIP),
		Entry("array", "array|min:1", validation.TypeArray),
		Entry("json", "json", validation.TypeJSON),
		Entry("date", "date_format:Y-m-d", validation.TypeDate),
		Entry("image before file", "file|image", validation.TypeImage),
		Entry("mimes", "mimes:pdf", validation.TypeFile),
		Entry("password rules stay strings", "min:8|password_mixed", validation.TypeString),
	)

	Describe("enum priority", func() {
		It("should infer an enum for membership lists", func() {
			set := resolver.Resolve("status", "in:active,inactive,pending")
			Expect(set.Type).To(Equal(validation.TypeTag("enum:active,inactive,pending")))
			Expect(set.Type.IsEnum()).To(BeTrue())
			Expect(set.Type.EnumValues()).To(Equal([]string{"active", "inactive", "pending"}))
			Expect(set.Required).To(BeFalse())
		})

		DescribeTable("regardless of other rules",
			func(rule string) {
				Expect(resolver.Resolve("f", rule).Type.IsEnum()).To(BeTrue())
			},
			Entry("string", "string|in:a,b"),
			Entry("integer", "integer|in:1,2"),
			Entry("email", "email|in:a@b.c,d@e.f"),
		)

		It("should quote values containing commas", func() {
			t := validation.EnumType([]string{"a,b", "c"})
			Expect(t.EnumValues()).To(Equal([]string{"a,b", "c"}))
		})

		It("should infer enums from full member lists", func() {
			Expect(resolver.Resolve("f", "enum:draft,published").Type).To(Equal(validation.TypeTag("enum:draft,published")))
		})
	})

	DescribeTable("totality",
		func(rule string) {
			t := resolver.Resolve("f", rule).Type
			Expect(t).NotTo(BeEmpty())
			if !t.IsEnum() {
				Expect(closedTypes).To(ContainElement(t))
			}
		},
		Entry("nullable only", "nullable"),
		Entry("required only", "required"),
		Entry("custom rule", "my_custom_rule"),
		Entry("size only", "min:3"),
		Entry("single in", "in:a"),
		Entry("conditional", "required_if:a,b"),
		Entry("regex", "regex:/^[a-z]+$/"),
		Entry("server only", "unique:users,email"),
	)

	It("should default to string when probes cannot discriminate", func() {
		Expect(resolver.Resolve("f", "nullable").Type).To(Equal(validation.TypeString))
		Expect(resolver.Resolve("f", "required").Type).To(Equal(validation.TypeString))
		Expect(resolver.Resolve("f", "in:a").Type).To(Equal(validation.TypeString))
	})

	It("should probe custom rules taught to the prober", func() {
		prober := validation.NewProber()
		prober.RegisterCheck("toggle", func(value any, _ validation.ResolvedValidation) bool {
			switch v := value.(type) {
			case bool:
				return true
			case int:
				return v == 0 || v == 1
			case string:
				return v == "0" || v == "1"
			}
			return false
		})
		prober.RegisterCheck("collection", func(value any, _ validation.ResolvedValidation) bool {
			return reflect.ValueOf(value).Kind() == reflect.Slice
		})
		r := validation.NewResolver(validation.WithProber(prober))
		Expect(r.Resolve("f", "toggle").Type).To(Equal(validation.TypeBoolean))
		Expect(r.Resolve("f", "nullable|collection").Type).To(Equal(validation.TypeArray))
	})

	It("should honour the threshold", func() {
		prober := validation.NewProber(validation.WithThreshold(1.1))
		prober.RegisterCheck("toggle", func(value any, _ validation.ResolvedValidation) bool {
			_, ok := value.(bool)
			return ok
		})
		r := validation.NewResolver(validation.WithProber(prober))
		Expect(r.Resolve("f", "toggle").Type).To(Equal(validation.TypeString))
	})

	It("should infer without a resolver", func() {
		set := resolver.Resolve("f", "required|email")
		Expect(validation.InferType(set)).To(Equal(validation.TypeEmail))
	})
})

var _ = Describe("Prober", func() {
	prober := validation.NewProber()
	resolver := validation.NewResolver(validation.WithProber(prober))

	DescribeTable("Passes",
		func(rule string, value any, want bool) {
			Expect(prober.Passes(resolver.Resolve("f", rule), value)).To(Equal(want))
		},
		Entry("required rejects blank strings", "required", "  ", false),
		Entry("required accepts false", "required", false, true),
		Entry("required rejects empty arrays", "required", []any{}, false),
		Entry("string length", "max:3", "abcd", false),
		Entry("numeric size", "max:3", 2, true),
		Entry("array size", "min:2", []any{1}, false),
		Entry("between", "between:1,3", "ab", true),
		Entry("field references are neutral", "gt:other", "x", true),
		Entry("laravel booleans accept numeric strings", "boolean", "1", true),
		Entry("laravel booleans reject words", "boolean", "yes", false),
		Entry("accepted", "accepted", "on", true),
		Entry("digits", "digits:4", "1234", true),
		Entry("digits on numbers", "digits:4", 1234, true),
		Entry("digits too short", "digits:4", 999, false),
		Entry("digits with letters", "digits:4", "12a4", false),
		Entry("digits between", "digits_between:2,3", "123", true),
		Entry("decimal places", "decimal:2", "1.25", true),
		Entry("decimal places mismatch", "decimal:2", "1.2", false),
		Entry("multiple of", "multiple_of:5", 15, true),
		Entry("membership", "in:a,b", "b", true),
		Entry("exclusion", "not_in:a,b", "b", false),
		Entry("prefixes", "starts_with:foo,bar", "barbaz", true),
		Entry("regex with flags", "regex:/^abc$/i", "ABC", true),
		Entry("not regex", "not_regex:/^abc$/", "abc", false),
		Entry("unsupported regex is neutral", "regex:/(?<=a)b/", "zzz", true),
		Entry("bad field type fails", "min:3", true, false),
		Entry("dates", "date", "2024-01-15", true),
		Entry("alpha dash", "alpha_dash", "a-b_c1", true),
		Entry("integer strings", "integer", "3.14", false),
	)

	It("should report scores in candidate order", func() {
		scores := prober.Scores(resolver.Resolve("f", "nullable"))
		Expect(scores).To(HaveLen(len(validation.DefaultCandidates)))
		Expect(scores[0].Type).To(Equal(validation.TypeBoolean))
		for _, s := range scores {
			Expect(s.Ratio).To(Equal(1.0))
		}
	})
})

var _ = DescribeTable("DigitCount",
	func(x float64, want int) {
		Expect(validation.DigitCount(x)).To(Equal(want))
	},
	Entry("lower bound", 1000.0, 4),
	Entry("upper bound", 9999.0, 4),
	Entry("negative", -1234.0, 4),
	Entry("fraction", 1234.56, 4),
	Entry("too short", 999.0, 3),
	Entry("too long", 12345.0, 5),
	Entry("zero", 0.0, 1),
)

var _ = Describe("SplitDelimited", func() {
	It("should split delimiters and flags", func() {
		body, flags := validation.SplitDelimited("/^a\\/b$/iu")
		Expect(body).To(Equal("^a\\/b$"))
		Expect(flags).To(Equal("iu"))
	})

	It("should handle bracket delimiters", func() {
		body, _ := validation.SplitDelimited("{^x+$}")
		Expect(body).To(Equal("^x+$"))
	})

	It("should return undelimited patterns unchanged", func() {
		body, flags := validation.SplitDelimited("^abc$")
		Expect(body).To(Equal("^abc$"))
		Expect(flags).To(BeEmpty())
	})
})
