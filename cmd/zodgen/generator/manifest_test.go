package generator_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tlipoca9/zodgen/cmd/zodgen/generator"
	"github.com/tlipoca9/zodgen/rules"
	"github.com/tlipoca9/zodgen/schema"
)

var _ = Describe("Manifest", func() {
	It("should keep YAML field order and accept rule lists", func() {
		srcs, err := generator.ParseManifest([]byte(`
schemas:
  - name: Order
    class: app/forms.StoreOrder
    rules:
      zeta: required
      alpha: [required, string, "max:10"]
      items.*.sku: required|string
    messages:
      zeta.required: Zeta please.
    attributes:
      zeta: Z
    item_refs:
      lines: app/forms.Line
    optional: [alpha]
`), ".yml")
		Expect(err).NotTo(HaveOccurred())
		Expect(srcs).To(HaveLen(1))

		src := srcs[0]
		Expect(src.Class).To(Equal("app/forms.StoreOrder"))
		Expect(src.Kind).To(Equal(schema.KindDataObject))
		Expect(src.Rules).To(Equal(rules.Set{
			{Name: "zeta", Rules: "required"},
			{Name: "alpha", Rules: []any{"required", "string", "max:10"}},
			{Name: "items.*.sku", Rules: "required|string"},
		}))
		Expect(src.Messages).To(HaveKeyWithValue("zeta.required", "Zeta please."))
		Expect(src.Attributes).To(HaveKeyWithValue("zeta", "Z"))
		Expect(src.Optional).To(Equal([]string{"alpha"}))
	})

	It("should decode JSON rule pairs", func() {
		srcs, err := generator.ParseManifest([]byte(`{
  "schemas": [
    {
      "name": "Login",
      "kind": "plain-class",
      "rules": [
        {"field": "email", "rules": "required|email"},
        {"field": "password", "rules": ["required", "min:8"]}
      ]
    }
  ]
}`), ".json")
		Expect(err).NotTo(HaveOccurred())
		Expect(srcs).To(HaveLen(1))
		Expect(srcs[0].Class).To(Equal("Login"))
		Expect(srcs[0].Kind).To(Equal(schema.KindPlainClass))
		Expect(srcs[0].Rules).To(Equal(rules.Set{
			{Name: "email", Rules: "required|email"},
			{Name: "password", Rules: []any{"required", "min:8"}},
		}))
	})

	It("should report every invalid entry", func() {
		srcs, err := generator.ParseManifest([]byte(`
schemas:
  - rules: {a: required}
  - name: Odd
    kind: controller
  - name: Fine
`), ".yaml")
		Expect(err).To(MatchError(ContainSubstring("schema #1: name is required")))
		Expect(err).To(MatchError(ContainSubstring(`schema Odd: unknown kind "controller"`)))
		Expect(srcs).To(HaveLen(1))
		Expect(srcs[0].Name).To(Equal("Fine"))
	})

	It("should reject malformed rules", func() {
		_, err := generator.ParseManifest([]byte("schemas:\n  - name: A\n    rules: [required]\n"), ".yaml")
		Expect(err).To(MatchError(ContainSubstring("rules must be a mapping")))

		_, err = generator.ParseManifest([]byte("schemas:\n  - name: A\n    rules:\n      a: {x: 1}\n"), ".yaml")
		Expect(err).To(MatchError(ContainSubstring("rules of a must be a string or a list")))

		_, err = generator.ParseManifest([]byte(`{"schemas": [{"name": "A", "rules": [{"field": "a", "rules": 1}]}]}`), ".json")
		Expect(err).To(MatchError(ContainSubstring("rules of a must be a string or a list")))

		_, err = generator.ParseManifest(nil, ".toml")
		Expect(err).To(MatchError(ContainSubstring("unsupported manifest format")))
	})

	It("should load manifests from disk", func() {
		path := filepath.Join(GinkgoT().TempDir(), "rules.yaml")
		Expect(os.WriteFile(path, []byte("schemas:\n  - name: A\n    rules:\n      a: string\n"), 0644)).To(Succeed())

		srcs, err := generator.LoadManifest(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(srcs).To(HaveLen(1))

		_, err = generator.LoadManifest(filepath.Join(filepath.Dir(path), "missing.yaml"))
		Expect(err).To(HaveOccurred())
	})
})
