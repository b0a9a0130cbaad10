package schema_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/tlipoca9/zodgen/schema"
	"github.com/tlipoca9/zodgen/validation"
	"github.com/tlipoca9/zodgen/zod"
)

// explodingHandler panics on a field named boom.
type explodingHandler struct{}

func (explodingHandler) Name() string                          { return "exploding" }
func (explodingHandler) Priority() int                         { return 1000 }
func (explodingHandler) CanHandle(validation.TypeTag) bool     { return false }
func (explodingHandler) CanHandleProperty(p zod.Property) bool { return p.Name == "boom" }
func (explodingHandler) Handle(zod.Property, *zod.Registry) (zod.Builder, error) {
	panic("kaboom")
}

// failingHandler returns an error on a field named fail.
type failingHandler struct{}

func (failingHandler) Name() string                          { return "failing" }
func (failingHandler) Priority() int                         { return 1000 }
func (failingHandler) CanHandle(validation.TypeTag) bool     { return false }
func (failingHandler) CanHandleProperty(p zod.Property) bool { return p.Name == "fail" }
func (failingHandler) Handle(zod.Property, *zod.Registry) (zod.Builder, error) {
	return nil, errors.New("unsupported")
}

var _ = Describe("Pipeline", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	sources := func() []schema.Source {
		order := src("Order", "billing", "required", "note", "nullable|string|max:500")
		order.Refs = map[string]string{"billing": "app/forms.Address"}
		return []schema.Source{
			order,
			src("Address", "street", "required|string", "zip", "required|digits:5"),
		}
	}

	It("should generate ordered schemas", func() {
		res, err := schema.NewPipeline(schema.WithTracer(noop.NewTracerProvider().Tracer("test"))).Run(ctx, sources())
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Err()).NotTo(HaveOccurred())
		Expect(consts(res.Schemas)).To(Equal([]string{"AddressSchema", "OrderSchema"}))
		Expect(res.Files).To(HaveLen(1))
		Expect(string(res.Files[0].Content)).To(ContainSubstring("  billing: AddressSchema"))
	})

	It("should be byte-identical across runs", func() {
		first, err := schema.NewPipeline().Run(ctx, sources())
		Expect(err).NotTo(HaveOccurred())
		second, err := schema.NewPipeline().Run(ctx, sources())
		Expect(err).NotTo(HaveOccurred())
		Expect(second.Files).To(Equal(first.Files))
	})

	It("should pass writer options through", func() {
		res, err := schema.NewPipeline(schema.WithWriterOptions(schema.WithMode(schema.ModeSplit))).Run(ctx, sources())
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Files).To(HaveLen(2))
	})

	It("should record failures and keep going", func() {
		reg := zod.DefaultRegistry()
		reg.RegisterMany(explodingHandler{}, failingHandler{})
		p := schema.NewPipeline(schema.WithAssembler(schema.NewAssembler(schema.WithRegistry(reg))))

		srcs := append(sources(),
			schema.Source{Class: "app/forms.Nameless"},
			src("Broken", "boom", "string"),
			src("Unsupported", "fail", "string"),
		)
		res, err := p.Run(ctx, srcs)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Schemas).To(HaveLen(2))
		Expect(res.Failures).To(HaveLen(3))
		Expect(res.Failures[0].Class).To(Equal("app/forms.Nameless"))
		Expect(res.Failures[1].Class).To(Equal("app/forms.Broken"))
		Expect(res.Failures[1].Err).To(MatchError(ContainSubstring("kaboom")))
		Expect(res.Failures[2].Err).To(MatchError(ContainSubstring("unsupported")))
		Expect(res.Err()).To(MatchError(ContainSubstring("app/forms.Unsupported")))
	})

	It("should fail a class whose schema name is already taken", func() {
		dup := src("Address", "line", "required|string")
		dup.Class = "app/billing.Address"
		res, err := schema.NewPipeline().Run(ctx, append(sources(), dup))
		Expect(err).NotTo(HaveOccurred())
		Expect(consts(res.Schemas)).To(Equal([]string{"AddressSchema", "OrderSchema"}))
		Expect(res.Failures).To(HaveLen(1))
		Expect(res.Failures[0].Class).To(Equal("app/billing.Address"))
		Expect(res.Failures[0].Err).To(MatchError(schema.ErrDuplicateSchema))
		Expect(string(res.Files[0].Content)).To(ContainSubstring("zip:"))
		Expect(string(res.Files[0].Content)).NotTo(ContainSubstring("line:"))
	})

	It("should fail when nothing was generated", func() {
		res, err := schema.NewPipeline().Run(ctx, []schema.Source{{Class: "app/forms.Nameless"}})
		Expect(err).To(MatchError(schema.ErrEmptySchema))
		Expect(err).To(MatchError(ContainSubstring("app/forms.Nameless")))
		Expect(res.Failures).To(HaveLen(1))
	})
})
