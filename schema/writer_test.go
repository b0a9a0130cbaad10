package schema_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tlipoca9/zodgen/schema"
)

func assembled(name string, deps ...string) schema.Assembled {
	return schema.Assembled{
		Data:     schema.ExtractedSchemaData{Name: name, Class: "app/" + name, Dependencies: deps},
		Const:    name + "Schema",
		TypeName: name,
		Expr:     "z.object({})",
	}
}

func consts(schemas []schema.Assembled) []string {
	out := make([]string, len(schemas))
	for i, s := range schemas {
		out[i] = s.Const
	}
	return out
}

var _ = Describe("Writer", func() {
	It("should place dependencies first", func() {
		w := schema.NewWriter()
		Expect(w.Add(assembled("Order", "app/Address", "app/Item"))).To(Succeed())
		Expect(w.Add(assembled("Item", "app/Money"))).To(Succeed())
		Expect(w.Add(assembled("Address"))).To(Succeed())
		Expect(w.Add(assembled("Money"))).To(Succeed())
		Expect(consts(w.Ordered())).To(Equal([]string{"AddressSchema", "MoneySchema", "ItemSchema", "OrderSchema"}))
	})

	It("should ignore unknown dependencies and survive cycles", func() {
		w := schema.NewWriter()
		Expect(w.Add(assembled("A", "app/B", "vendor/Unknown"))).To(Succeed())
		Expect(w.Add(assembled("B", "app/A"))).To(Succeed())
		Expect(consts(w.Ordered())).To(Equal([]string{"BSchema", "ASchema"}))
	})

	It("should replace a schema of the same class", func() {
		w := schema.NewWriter()
		Expect(w.Add(assembled("A"))).To(Succeed())
		second := assembled("A")
		second.Expr = "z.object({ v: z.string() })"
		Expect(w.Add(second)).To(Succeed())
		Expect(w.Ordered()).To(HaveLen(1))
		Expect(w.Ordered()[0].Expr).To(Equal(second.Expr))
	})

	It("should reject a second class with the same schema name", func() {
		w := schema.NewWriter(schema.WithMode(schema.ModeSplit))
		first := assembled("CreateRequest")
		first.Data.Class = "a.CreateRequest"
		second := assembled("CreateRequest")
		second.Data.Class = "b.CreateRequest"

		Expect(w.Add(first)).To(Succeed())
		err := w.Add(second)
		Expect(err).To(MatchError(schema.ErrDuplicateSchema))
		Expect(err).To(MatchError(ContainSubstring("a.CreateRequest")))

		files, err := w.Files()
		Expect(err).NotTo(HaveOccurred())
		Expect(files).To(HaveLen(1))
		Expect(files[0].Name).To(Equal("CreateRequest.ts"))
	})

	It("should reject a constant taken by another class", func() {
		w := schema.NewWriter()
		other := assembled("Other")
		other.Const = "ASchema"
		Expect(w.Add(assembled("A"))).To(Succeed())
		Expect(w.Add(other)).To(MatchError(schema.ErrDuplicateSchema))
		Expect(consts(w.Ordered())).To(Equal([]string{"ASchema"}))
	})

	It("should free the old name when a class is renamed", func() {
		w := schema.NewWriter()
		renamed := assembled("B")
		renamed.Data.Class = "app/A"
		reused := assembled("A")
		reused.Data.Class = "app/Z"
		Expect(w.Add(assembled("A"))).To(Succeed())
		Expect(w.Add(reused)).To(MatchError(schema.ErrDuplicateSchema))
		Expect(w.Add(renamed)).To(Succeed())
		Expect(w.Add(reused)).To(Succeed())
		Expect(consts(w.Ordered())).To(ConsistOf("BSchema", "ASchema"))
	})

	It("should refuse to write nothing", func() {
		_, err := schema.NewWriter().Files()
		Expect(err).To(MatchError(schema.ErrEmptySchema))
	})

	It("should write a single module", func() {
		w := schema.NewWriter()
		Expect(w.Add(assembled("B", "app/A"))).To(Succeed())
		Expect(w.Add(assembled("A"))).To(Succeed())
		files, err := w.Files()
		Expect(err).NotTo(HaveOccurred())
		Expect(files).To(HaveLen(1))
		Expect(files[0].Name).To(Equal("schemas.ts"))
		Expect(string(files[0].Content)).To(Equal(`// Code generated by zodgen. DO NOT EDIT.

import { z } from "zod";

export const ASchema = z.object({});
export type A = z.infer<typeof ASchema>;

export const BSchema = z.object({});
export type B = z.infer<typeof BSchema>;
`))
	})

	It("should wrap a namespace", func() {
		w := schema.NewWriter(schema.WithNamespace("Forms"), schema.WithHeader(""), schema.WithFilename("forms.ts"))
		Expect(w.Add(assembled("A"))).To(Succeed())
		Expect(w.Add(assembled("B"))).To(Succeed())
		files, err := w.Files()
		Expect(err).NotTo(HaveOccurred())
		Expect(files[0].Name).To(Equal("forms.ts"))
		Expect(string(files[0].Content)).To(Equal(`import { z } from "zod";

export namespace Forms {
  export const ASchema = z.object({});
  export type A = z.infer<typeof ASchema>;

  export const BSchema = z.object({});
  export type B = z.infer<typeof BSchema>;
}
`))
	})

	It("should split into one module per schema", func() {
		w := schema.NewWriter(schema.WithMode(schema.ModeSplit))
		Expect(w.Add(assembled("Order", "app/Address"))).To(Succeed())
		Expect(w.Add(assembled("Address"))).To(Succeed())
		files, err := w.Files()
		Expect(err).NotTo(HaveOccurred())
		Expect(files).To(HaveLen(2))
		Expect(files[0].Name).To(Equal("Address.ts"))
		Expect(files[1].Name).To(Equal("Order.ts"))
		Expect(string(files[1].Content)).To(Equal(`// Code generated by zodgen. DO NOT EDIT.

import { z } from "zod";
import { AddressSchema } from "./Address";

export const OrderSchema = z.object({});
export type Order = z.infer<typeof OrderSchema>;
`))
	})

	DescribeTable("ParseMode",
		func(in string, want schema.Mode, fails bool) {
			m, err := schema.ParseMode(in)
			if fails {
				Expect(err).To(HaveOccurred())
				return
			}
			Expect(err).NotTo(HaveOccurred())
			Expect(m).To(Equal(want))
		},
		Entry("default", "", schema.ModeSingle, false),
		Entry("split", " Split ", schema.ModeSplit, false),
		Entry("bogus", "many", schema.Mode(""), true),
	)
})
