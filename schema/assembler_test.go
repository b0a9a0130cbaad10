package schema_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tlipoca9/zodgen/schema"
	"github.com/tlipoca9/zodgen/validation"
	"github.com/tlipoca9/zodgen/zod"
)

var _ = Describe("Assembler", func() {
	var (
		resolver  *validation.Resolver
		assembler *schema.Assembler
	)

	BeforeEach(func() {
		resolver = validation.NewResolver()
		assembler = schema.NewAssembler()
	})

	assemble := func(s schema.Source) string {
		data, err := schema.Extract(s, resolver)
		Expect(err).NotTo(HaveOccurred())
		out, err := assembler.Assemble(data, nil)
		Expect(err).NotTo(HaveOccurred())
		return out
	}

	It("should name constants with the suffix", func() {
		Expect(assembler.ConstName("User")).To(Equal("UserSchema"))
		Expect(assembler.TypeName("User")).To(Equal("User"))
		Expect(schema.NewAssembler(schema.WithTypeSuffix("Validator")).ConstName("User")).To(Equal("UserValidator"))
	})

	It("should render properties in order", func() {
		out := assemble(src("User", "name", "required|string|max:255", "age", "integer"))
		lines := strings.Split(out, "\n")
		Expect(lines[0]).To(Equal("z.object({"))
		Expect(lines[1]).To(HavePrefix("  name: z.string("))
		Expect(lines[2]).To(HavePrefix("  age: z.int("))
		Expect(lines[2]).To(HaveSuffix(".optional(),"))
		Expect(lines[3]).To(Equal("})"))
		Expect(out).NotTo(ContainSubstring("superRefine"))
	})

	It("should render an empty object", func() {
		out, err := assembler.Assemble(schema.ExtractedSchemaData{Name: "Empty"}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("z.object({})"))
	})

	It("should quote keys that are not identifiers", func() {
		out := assemble(src("S", "first-name", "string"))
		Expect(out).To(ContainSubstring(`  "first-name": z.string(`))
	})

	It("should guard required_if on the other field", func() {
		s := src("Login",
			"auth_type", "required|in:password,otp",
			"password", "required_if:auth_type,password|string|min:8",
		)
		out := assemble(s)
		Expect(out).To(ContainSubstring("}).superRefine((data, ctx) => {"))
		Expect(out).To(ContainSubstring(`  if (String(data.auth_type) === "password") {`))
		Expect(out).To(ContainSubstring(`    if ((data.password == null || (typeof data.password === "string" && data.password.trim() === "")`))
		Expect(out).To(ContainSubstring(`path: ["password"] });`))
		Expect(out).To(ContainSubstring("is required when auth type is password."))

		// the password chain is what the field's own rules produce
		reg := zod.DefaultRegistry()
		plain, err := reg.Build(zod.Property{
			Name:        "password",
			Validations: resolver.Resolve("password", "string|min:8"),
			Optional:    true,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("  password: " + plain.Build() + ",\n"))
	})

	It("should add an undeclared confirmation field", func() {
		out := assemble(src("Register", "password", "required|string|confirmed"))
		Expect(out).To(ContainSubstring("  password_confirmation: z.any().optional(),"))
		Expect(out).To(ContainSubstring("String(data.password) !== String(data.password_confirmation)"))
		Expect(out).To(ContainSubstring(`message: "The password field confirmation does not match."`))
	})

	It("should not duplicate a declared confirmation field", func() {
		out := assemble(src("Register",
			"password", "required|string|confirmed",
			"password_confirmation", "required|string",
		))
		Expect(strings.Count(out, "password_confirmation:")).To(Equal(1))
	})

	It("should refine wildcard fields inside a loop", func() {
		out := assemble(src("Order",
			"items.*.kind", "required|in:digital,physical",
			"items.*.weight", "required_if:items.*.kind,physical|numeric",
		))
		Expect(out).To(ContainSubstring("  (data.items ?? []).forEach((item, i) => {"))
		Expect(out).To(ContainSubstring(`    if (String(item.kind) === "physical") {`))
		Expect(out).To(ContainSubstring(`path: ["items", i, "weight"] });`))
		Expect(out).To(ContainSubstring("  });"))
	})

	It("should read root fields from inside a loop", func() {
		out := assemble(src("Order",
			"express", "boolean",
			"items.*.weight", "required_with:express|numeric",
		))
		Expect(out).To(ContainSubstring("(data.items ?? []).forEach((item, i) => {"))
		Expect(out).To(ContainSubstring("!(data.express == null"))
	})

	It("should skip checks spanning array contexts", func() {
		out := assemble(src("S",
			"a.*.x", "string",
			"b.*.y", "required_with:a.*.x|string",
		))
		Expect(out).NotTo(ContainSubstring("superRefine"))
	})

	It("should keep numeric comparisons on the chain", func() {
		out := assemble(src("S", "qty", "integer|gt:0", "max", "integer", "min", "integer|lt:max"))
		Expect(out).To(ContainSubstring("(typeof data.min === \"string\" || Array.isArray(data.min) ? data.min.length : Number(data.min))"))
		Expect(strings.Count(out, "ctx.addIssue")).To(Equal(1))
	})

	DescribeTable("date refinements",
		func(rule, want string) {
			out := assemble(src("S", "starts_at", "date|"+rule, "ends_at", "date"))
			Expect(out).To(ContainSubstring(want))
		},
		Entry("keyword", "after:today", "!(Date.parse(String(data.starts_at)) > new Date().setHours(0, 0, 0, 0))"),
		Entry("field", "before:ends_at", `Date.parse(String(data.ends_at ?? ""))`),
		Entry("literal", "after_or_equal:2024-01-01", `Date.parse("2024-01-01")`),
		Entry("equals", "date_equals:now", "=== Date.now()"),
	)

	It("should resolve references through the const map", func() {
		s := src("Order", "billing", "required")
		s.Refs = map[string]string{"billing": "app/forms.Address"}
		data, err := schema.Extract(s, resolver)
		Expect(err).NotTo(HaveOccurred())

		out, err := assembler.Assemble(data, map[string]string{"app/forms.Address": "PostalAddressSchema"})
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("billing: PostalAddressSchema"))

		out, err = assembler.Assemble(data, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("billing: AddressSchema"))
	})

	It("should report the IsRefinement rules", func() {
		Expect(schema.IsRefinement("required_if")).To(BeTrue())
		Expect(schema.IsRefinement("Confirmed")).To(BeTrue())
		Expect(schema.IsRefinement("max")).To(BeFalse())
	})
})
