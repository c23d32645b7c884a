package main

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/CSCE331-Fall2025-900-911/project3-gang-61/internal/domain/product"
)

// readCatalogFile reads a JSON array of products. Files ending in .gz are
// decompressed first.
func readCatalogFile(path string) ([]product.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip")
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read")
	}
	return decodeCatalog(data)
}

// decodeCatalog parses catalog entries of the form
//
//	{"product_id": 5, "product_name": "Classic Milk Tea", "category": "Milk Tea", "price": "4.75", "stock": 120}
//
// A missing or null stock leaves the product untracked.
func decodeCatalog(data []byte) ([]product.Product, error) {
	var (
		products []product.Product
		seen     = make(map[int64]struct{})
	)
	err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		var (
			p       product.Product
			hasID   bool
			invalid error
		)
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "product_id":
				id, err := d.Int64()
				if err != nil {
					return errors.Wrap(err, key)
				}
				p.ID, hasID = id, true
			case "product_name":
				s, err := d.Str()
				if err != nil {
					return errors.Wrap(err, key)
				}
				p.Name = s
			case "category":
				s, err := d.Str()
				if err != nil {
					return errors.Wrap(err, key)
				}
				p.Category = s
			case "price":
				price, err := decodePrice(d)
				if err != nil {
					return errors.Wrap(err, key)
				}
				p.Price = price
			case "stock":
				if d.Next() == jx.Null {
					return d.Null()
				}
				n, err := d.Int()
				if err != nil {
					return errors.Wrap(err, key)
				}
				p.Stock = &n
			default:
				return d.Skip()
			}
			return nil
		}); err != nil {
			return err
		}

		switch {
		case !hasID || p.ID <= 0:
			invalid = errors.Errorf("entry %d: positive product_id is required", len(products))
		case p.Name == "":
			invalid = errors.Errorf("product %d: product_name is required", p.ID)
		case p.Price.IsNegative():
			invalid = errors.Errorf("product %d: negative price", p.ID)
		case p.Stock != nil && *p.Stock < 0:
			invalid = errors.Errorf("product %d: negative stock", p.ID)
		}
		if invalid != nil {
			return invalid
		}
		if _, dup := seen[p.ID]; dup {
			return errors.Errorf("product %d: duplicate product_id", p.ID)
		}
		seen[p.ID] = struct{}{}

		products = append(products, p)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode catalog")
	}
	return products, nil
}

// decodePrice accepts a JSON number or a numeric string.
func decodePrice(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(s)
	default:
		n, err := d.Num()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(n.String())
	}
}

// writeCatalog prints products as a JSON array, one product per line.
func writeCatalog(w io.Writer, products []product.Product) error {
	var buf bytes.Buffer
	buf.WriteString("[\n")
	for i, p := range products {
		var e jx.Encoder
		e.Obj(func(e *jx.Encoder) {
			e.Field("product_id", func(e *jx.Encoder) { e.Int64(p.ID) })
			e.Field("product_name", func(e *jx.Encoder) { e.Str(p.Name) })
			e.Field("category", func(e *jx.Encoder) { e.Str(p.Category) })
			e.Field("price", func(e *jx.Encoder) { e.Str(p.Price.StringFixed(2)) })
			e.Field("stock", func(e *jx.Encoder) {
				if p.Stock == nil {
					e.Null()
					return
				}
				e.Int(*p.Stock)
			})
		})
		buf.WriteString("  ")
		buf.Write(e.Bytes())
		if i < len(products)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("]\n")

	_, err := w.Write(buf.Bytes())
	return err
}
