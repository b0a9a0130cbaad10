package zod_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tlipoca9/zodgen/rules"
	"github.com/tlipoca9/zodgen/validation"
	"github.com/tlipoca9/zodgen/zod"
)

var _ = Describe("Registry", func() {
	var (
		resolver *validation.Resolver
		reg      *zod.Registry
	)

	BeforeEach(func() {
		resolver = validation.NewResolver()
		reg = zod.DefaultRegistry()
	})

	build := func(p zod.Property) string {
		b, err := reg.Build(p)
		Expect(err).NotTo(HaveOccurred())
		return b.Build()
	}

	prop := func(field, rule string) zod.Property {
		return zod.Property{Name: field, Validations: resolver.Resolve(field, rule)}
	}

	It("should order handlers by descending priority", func() {
		var names []string
		for _, h := range reg.Handlers() {
			names = append(names, h.Name())
		}
		Expect(names).To(Equal([]string{
			"enum", "email", "password", "url", "file", "boolean", "number",
			"array", "object_reference", "inline_object", "string", "universal",
		}))
	})

	DescribeTable("handler selection",
		func(rule, want string) {
			h, err := reg.HandlerFor(prop("f", rule))
			Expect(err).NotTo(HaveOccurred())
			Expect(h.Name()).To(Equal(want))
		},
		Entry("enum beats everything", "email|in:a@b.c,d@e.f", "enum"),
		Entry("explicit email rule", "required|email|max:255", "email"),
		Entry("password policy", "required|min:8|password_mixed", "password"),
		Entry("url", "url", "url"),
		Entry("image", "image|max:2048", "file"),
		Entry("boolean", "boolean", "boolean"),
		Entry("integer", "integer|min:1", "number"),
		Entry("array", "array|max:3", "array"),
		Entry("string formats", "uuid", "string"),
		Entry("plain string", "required|string|max:255", "string"),
	)

	It("should fall back to the universal handler", func() {
		r := zod.NewRegistry()
		r.Register(zod.UniversalHandler{})
		b, err := r.Build(prop("age", "integer"))
		Expect(err).NotTo(HaveOccurred())
		Expect(b.Build()).To(HavePrefix("z.int("))
	})

	It("should report a missing handler with field and type", func() {
		_, err := zod.NewRegistry().Build(prop("age", "integer"))
		Expect(err).To(MatchError(zod.ErrNoHandler))
		Expect(err.Error()).To(ContainSubstring(`field "age" type "number"`))
	})

	It("should render a required string with trim and bounds", func() {
		out := build(prop("name", "required|string|max:255"))
		Expect(out).To(HavePrefix("z.string({ error: "))
		Expect(out).To(ContainSubstring(".trim().min(1, \"The name field is required.\")"))
		Expect(out).To(HaveSuffix(`.max(255, "The name field must not be greater than 255 characters.")`))
	})

	It("should render an enum without a required artifact", func() {
		out := build(prop("status", "in:active,inactive,pending"))
		Expect(out).To(Equal(`z.enum(["active","inactive","pending"], { error: "The selected status is invalid." })`))
	})

	It("should render an email field", func() {
		out := build(prop("email", "required|email|max:255"))
		Expect(out).To(HavePrefix("z.email("))
		Expect(out).To(ContainSubstring(`"The email field must be a valid email address."`))
	})

	It("should apply nullable and optional flags", func() {
		p := prop("nickname", "nullable|string")
		p.Optional = true
		Expect(build(p)).To(Equal(`z.string({ error: (iss) => (iss.input == null ? undefined : "The nickname field must be a string.") }).trim().nullable().optional()`))
	})

	It("should build arrays of scalar items", func() {
		sets := resolver.ResolveAll(rules.Set{
			{Name: "tags", Rules: "array|max:5"},
			{Name: "tags.*", Rules: "string|max:20"},
		})
		out := build(zod.Property{Name: "tags", Validations: sets[0]})
		Expect(out).To(HavePrefix("z.array(z.string("))
		Expect(out).To(ContainSubstring(".max(20, "))
		Expect(out).To(ContainSubstring(".max(5, "))
	})

	It("should build arrays of object items", func() {
		sets := resolver.ResolveAll(rules.Set{
			{Name: "items", Rules: "required|array"},
			{Name: "items.*.sku", Rules: "required|string"},
			{Name: "items.*.qty", Rules: "integer|min:1"},
		})
		out := build(zod.Property{Name: "items", Validations: sets[0]})
		Expect(out).To(HavePrefix("z.array(z.object({ sku: z.string("))
		Expect(out).To(ContainSubstring("qty: z.int("))
		Expect(out).To(ContainSubstring(".optional() })"))
	})

	It("should build nested objects from dotted keys", func() {
		sets := resolver.ResolveAll(rules.Set{
			{Name: "address.city", Rules: "required|string"},
			{Name: "address.zip", Rules: "digits:5"},
		})
		out := build(zod.Property{Name: "address", Validations: sets[0]})
		Expect(out).To(HavePrefix("z.object({ city: z.string("))
		Expect(out).To(ContainSubstring("zip: z.number("))
	})

	It("should build references", func() {
		out := build(zod.Property{Name: "address", Ref: "AddressSchema", Optional: true,
			Validations: resolver.Resolve("address", "nullable")})
		Expect(out).To(Equal("AddressSchema.nullable().optional()"))

		out = build(zod.Property{Name: "lines", ItemRef: "LineSchema", Validations: resolver.Resolve("lines", "array|min:1")})
		Expect(out).To(HavePrefix("z.array(LineSchema"))
	})

	It("should use external enum references", func() {
		out := build(zod.Property{Name: "role", EnumRef: "RoleValues", Validations: resolver.Resolve("role", "required")})
		Expect(out).To(Equal("z.enum(RoleValues)"))
	})

	It("should render digits on numbers", func() {
		out := build(prop("pin", "integer|digits:4"))
		Expect(out).To(ContainSubstring("Math.floor(Math.abs(val)).toString().length === 4"))
	})

	It("should leave conditional rules off the chain", func() {
		out := build(prop("password", "required_if:auth_type,password|string"))
		Expect(out).NotTo(ContainSubstring("auth_type"))
		Expect(out).NotTo(ContainSubstring(".min(1"))
	})
})

var _ = Describe("custom rules", func() {
	It("should append rendered fragments", func() {
		reg := zod.DefaultRegistry()
		reg.RegisterCustom(zod.FragmentRule{Rule: "slug", Code: "regex(/^[a-z0-9-]+$/, {message})"})
		r := validation.NewResolver(validation.WithMessages(map[string]string{"slug": "Use a slug."}))
		b, err := reg.Build(zod.Property{Name: "handle", Validations: r.Resolve("handle", "string|slug")})
		Expect(err).NotTo(HaveOccurred())
		Expect(b.Chain()).To(Equal([]string{`.regex(/^[a-z0-9-]+$/, "Use a slug.")`}))
	})

	It("should override built-in translations and replace the base", func() {
		reg := zod.DefaultRegistry()
		reg.RegisterCustom(
			zod.FragmentRule{Rule: "max", Code: "max({0} * 2)", Order: 1},
			zod.FragmentRule{Rule: "phone", Mode: zod.ModeReplace, Code: "z.e164()"},
		)
		b, err := reg.Build(zod.Property{Name: "tel", Validations: validation.NewResolver().Resolve("tel", "phone|max:10")})
		Expect(err).NotTo(HaveOccurred())
		Expect(b.Build()).To(Equal("z.e164().max(10 * 2)"))
	})

	It("should drop the message argument when none exists", func() {
		frag := zod.FragmentRule{Rule: "x", Code: "check({values}, {message})"}.Render([]string{"a", "b"}, "")
		Expect(frag.Code).To(Equal(`.check(["a","b"])`))
	})

	It("should parse fragment modes", func() {
		m, err := zod.ParseFragmentMode("Replace")
		Expect(err).NotTo(HaveOccurred())
		Expect(m).To(Equal(zod.ModeReplace))
		_, err = zod.ParseFragmentMode("merge")
		Expect(err).To(HaveOccurred())
	})

	It("should list supported rules", func() {
		var required, unique []string
		for _, s := range zod.SupportedRules() {
			switch s.Rule {
			case "required":
				required = s.Builders
			case "unique":
				unique = s.Builders
			}
		}
		Expect(required).To(ContainElements("string", "number", "email"))
		Expect(unique).To(Equal([]string{"*"}))
	})
})
