package schema_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tlipoca9/zodgen/schema"
	"github.com/tlipoca9/zodgen/validation"
)

var _ = Describe("Extract", func() {
	var resolver *validation.Resolver

	BeforeEach(func() {
		resolver = validation.NewResolver()
	})

	It("should keep field order and default the kind", func() {
		data, err := schema.Extract(src("CreateUser",
			"name", "required|string",
			"age", "integer",
			"address.city", "required|string",
		), resolver)
		Expect(err).NotTo(HaveOccurred())
		Expect(data.Kind).To(Equal(schema.KindFormRequest))

		var names []string
		for _, p := range data.Properties {
			names = append(names, p.Name)
		}
		Expect(names).To(Equal([]string{"name", "age", "address"}))
		Expect(data.Properties[0].Optional).To(BeFalse())
		Expect(data.Properties[1].Optional).To(BeTrue())
	})

	It("should treat sometimes as optional", func() {
		data, err := schema.Extract(src("S", "nick", "sometimes|required|string"), resolver)
		Expect(err).NotTo(HaveOccurred())
		Expect(data.Properties[0].Optional).To(BeTrue())
	})

	It("should honor forced optional fields", func() {
		s := src("S", "token", "required|string")
		s.Optional = []string{"token"}
		data, err := schema.Extract(s, resolver)
		Expect(err).NotTo(HaveOccurred())
		Expect(data.Properties[0].Optional).To(BeTrue())
	})

	It("should collect dependencies once in reference order", func() {
		s := src("Order",
			"billing", "required",
			"shipping", "required",
			"items", "array",
		)
		s.Refs = map[string]string{"billing": "app/forms.Address", "shipping": "app/forms.Address"}
		s.ItemRefs = map[string]string{"items": "app/forms.Item"}
		data, err := schema.Extract(s, resolver)
		Expect(err).NotTo(HaveOccurred())
		Expect(data.Dependencies).To(Equal([]string{"app/forms.Address", "app/forms.Item"}))
		Expect(data.Properties[2].ItemRef).To(Equal("app/forms.Item"))
	})

	It("should apply source messages and attributes", func() {
		s := src("S", "email", "required|email")
		s.Messages = map[string]string{"email.required": "We need your :attribute."}
		s.Attributes = map[string]string{"email": "e-mail address"}
		data, err := schema.Extract(s, resolver)
		Expect(err).NotTo(HaveOccurred())
		req, ok := data.Properties[0].Validations.Get("required")
		Expect(ok).To(BeTrue())
		Expect(req.Message).To(Equal("We need your e-mail address."))

		// the shared resolver is untouched
		other, err := schema.Extract(src("T", "email", "required|email"), resolver)
		Expect(err).NotTo(HaveOccurred())
		req, _ = other.Properties[0].Validations.Get("required")
		Expect(req.Message).To(Equal("The email field is required."))
	})

	It("should reject a source without a name", func() {
		_, err := schema.Extract(schema.Source{Class: "app/forms.Nameless"}, resolver)
		Expect(err).To(MatchError(ContainSubstring("app/forms.Nameless")))
	})
})

var _ = Describe("Paths", func() {
	DescribeTable("Accessor",
		func(field, want string) {
			Expect(schema.Accessor("data", field)).To(Equal(want))
		},
		Entry("plain", "name", "data.name"),
		Entry("dotted", "address.city", "data.address?.city"),
		Entry("index", "items.0", "data.items?.[0]"),
		Entry("quoted", "x.a-b", `data.x?.["a-b"]`),
		Entry("quoted root", "a-b", `data["a-b"]`),
	)

	DescribeTable("Path",
		func(field string, prefix []string, want string) {
			Expect(schema.Path(field, prefix...)).To(Equal(want))
		},
		Entry("plain", "name", nil, `["name"]`),
		Entry("with index", "items.0.qty", nil, `["items", 0, "qty"]`),
		Entry("with prefix", "qty", []string{`"items"`, "i"}, `["items", i, "qty"]`),
	)
})
