package rules_test

import (
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tlipoca9/zodgen/rules"
)

const (
	kindPersonal = "person" + "al"
	kindBusiness = "business"
)

const (
	flagRead = 1 << iota
	flagWrite
	flagAdmin
)

type accountKind string

func lookupSubscription(rules.Request) bool {
	panic("database unavailable")
}

func alwaysOn(rules.Request) bool { return true }

var _ = Describe("Analyzer", func() {
	var analyzer *rules.Analyzer

	BeforeEach(func() {
		analyzer = rules.NewAnalyzer()
	})

	Describe("NormalizeConditional", func() {
		It("should short-circuit booleans", func() {
			Expect(analyzer.NormalizeConditional(true, "required", "required_if")).To(Equal("required"))
			Expect(analyzer.NormalizeConditional(false, "required", "required_if")).To(BeEmpty())
		})

		It("should extract an equality check against a request input", func() {
			pred := func(r rules.Request) bool { return r.Input("status") == "shipped" }
			Expect(analyzer.NormalizeConditional(pred, "required", "required_if")).
				To(Equal("required_if:status,shipped"))
		})

		It("should accept the literal on the left-hand side", func() {
			pred := func(req rules.Request) bool { return "otp" == req.Input("auth_type") }
			ext, ok := analyzer.Extract(pred)
			Expect(ok).To(BeTrue())
			Expect(ext.Field).To(Equal("auth_type"))
			Expect(ext.Values).To(Equal([]string{"otp"}))
		})

		It("should extract membership checks and deduplicate values", func() {
			pred := func(r rules.Request) bool { return slices.Contains([]string{"a", "b", "a", ""}, r.Input("plan").(string)) }
			Expect(analyzer.NormalizeConditional(pred, "required", "required_if")).
				To(Equal("required_if:plan,a,b"))
		})

		It("should merge disjunctions on the same field", func() {
			pred := func(r rules.Request) bool { return r.Input("kind") == kindPersonal || r.Input("kind") == kindBusiness }
			Expect(analyzer.NormalizeConditional(pred, "prohibited", "prohibited_if")).
				To(Equal("prohibited_if:kind,personal,business"))
		})

		It("should resolve iota and bitwise constants", func() {
			pred := func(r rules.Request) bool { return r.Input("flags") == flagWrite|flagAdmin }
			Expect(analyzer.NormalizeConditional(pred, "required", "required_if")).
				To(Equal("required_if:flags,6"))
		})

		It("should resolve conversions and imported constants", func() {
			pred := func(r rules.Request) bool { return r.Input("method") == accountKind(http.MethodPost) }
			Expect(analyzer.NormalizeConditional(pred, "required", "required_if")).
				To(Equal("required_if:method,POST"))
		})

		It("should map selector access on the request to snake case fields", func() {
			ext, ok := analyzer.ExtractAt(writeFile("selector.go", `package demo

func check(f Form) bool { return f.AuthType == "password" }
`), 3)
			Expect(ok).To(BeTrue())
			Expect(ext.Field).To(Equal("auth_type"))
			Expect(ext.Values).To(Equal([]string{"password"}))
		})

		It("should evaluate predicates that cannot be analyzed", func() {
			Expect(analyzer.NormalizeConditional(alwaysOn, "required", "required_if")).To(Equal("required"))
		})

		It("should treat panicking predicates as inactive", func() {
			Expect(analyzer.NormalizeConditional(lookupSubscription, "required", "required_if")).To(BeEmpty())
		})

		It("should evaluate zero-argument predicates", func() {
			enabled := true
			pred := func() bool { return enabled }
			Expect(analyzer.NormalizeConditional(pred, "exclude", "exclude_if")).To(Equal("exclude"))
		})

		It("should ignore values that are not predicates", func() {
			Expect(analyzer.NormalizeConditional("nope", "required", "required_if")).To(BeEmpty())
		})
	})

	Describe("ExtractAt", func() {
		It("should slice the expression out of files that do not parse", func() {
			path := writeFile("broken.go", `package broken

func register() {
	rules.RequiredIf(func(r rules.Request) bool { return r.Input("tier") == "pro" }))
	this line is not go
}
`)
			ext, ok := analyzer.ExtractAt(path, 4)
			Expect(ok).To(BeTrue())
			Expect(ext.Field).To(Equal("tier"))
			Expect(ext.Values).To(Equal([]string{"pro"}))
		})

		It("should give up on ambiguous lines", func() {
			path := writeFile("twice.go", `package twice

var a, b = func(r R) bool { return r.Input("x") == "1" }, func(r R) bool { return r.Input("y") == "2" }
`)
			_, ok := analyzer.ExtractAt(path, 3)
			Expect(ok).To(BeFalse())
		})

		It("should fail on unsupported shapes", func() {
			path := writeFile("shape.go", `package shape

func check(r R) bool { return len(r.Input("x").(string)) > 3 }
`)
			_, ok := analyzer.ExtractAt(path, 3)
			Expect(ok).To(BeFalse())
		})

		It("should fail on missing files", func() {
			_, ok := analyzer.ExtractAt(filepath.Join(GinkgoT().TempDir(), "missing.go"), 1)
			Expect(ok).To(BeFalse())
		})

		It("should keep resolving positions while caches are reset", func() {
			path := writeFile("tier.go", `package tier

var isPro = func(r R) bool { return r.Input("tier") == "pro" }
`)
			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range 200 {
					analyzer.Reset()
				}
			}()
			for range 200 {
				ext, ok := analyzer.ExtractAt(path, 3)
				Expect(ok).To(BeTrue())
				Expect(ext.Field).To(Equal("tier"))
			}
			wg.Wait()
		})
	})

	Describe("rule objects", func() {
		It("should expand RequiredIf through the normalizer", func() {
			rule := rules.RequiredIf(func(r rules.Request) bool { return r.Input("status") == "shipped" })
			Expect(rules.NewNormalizer(analyzer).Normalize([]any{"string", rule})).
				To(Equal("string|required_if:status,shipped"))
		})

		It("should drop inactive conditionals", func() {
			Expect(rules.NewNormalizer(analyzer).Normalize([]any{"string", rules.RequiredIf(false)})).To(Equal("string"))
		})
	})
})

func writeFile(name, content string) string {
	path := filepath.Join(GinkgoT().TempDir(), name)
	Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())
	return path
}
