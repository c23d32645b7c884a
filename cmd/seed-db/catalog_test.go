package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CSCE331-Fall2025-900-911/project3-gang-61/internal/domain/product"
)

const sampleCatalog = `[
	{"product_id": 5, "product_name": "Classic Milk Tea", "category": "Milk Tea", "price": "4.75", "stock": 10, "image": "tea.png"},
	{"product_id": 10, "product_name": "Tapioca Pearls", "category": "Add-on", "price": 0.75, "stock": null},
	{"product_id": 11, "product_name": "Hot Water", "category": "Other", "price": 0}
]`

func TestDecodeCatalog(t *testing.T) {
	products, err := decodeCatalog([]byte(sampleCatalog))
	require.NoError(t, err)
	require.Len(t, products, 3)

	assert.Equal(t, int64(5), products[0].ID)
	assert.Equal(t, "Classic Milk Tea", products[0].Name)
	assert.True(t, decimal.RequireFromString("4.75").Equal(products[0].Price))
	require.NotNil(t, products[0].Stock)
	assert.Equal(t, 10, *products[0].Stock)

	assert.True(t, decimal.RequireFromString("0.75").Equal(products[1].Price))
	assert.False(t, products[1].Tracked())
	assert.False(t, products[2].Tracked())
	assert.True(t, products[2].Price.IsZero())
}

func TestDecodeCatalog_Invalid(t *testing.T) {
	for _, tt := range []struct {
		name string
		data string
		want string
	}{
		{"NotArray", `{"product_id": 1}`, "decode catalog"},
		{"MissingID", `[{"product_name": "Tea", "price": 1}]`, "product_id is required"},
		{"MissingName", `[{"product_id": 1, "price": 1}]`, "product_name is required"},
		{"NegativePrice", `[{"product_id": 1, "product_name": "Tea", "price": "-1"}]`, "negative price"},
		{"NegativeStock", `[{"product_id": 1, "product_name": "Tea", "price": 1, "stock": -3}]`, "negative stock"},
		{"BadPrice", `[{"product_id": 1, "product_name": "Tea", "price": "free"}]`, "price"},
		{"Duplicate", `[{"product_id": 1, "product_name": "A"}, {"product_id": 1, "product_name": "B"}]`, "duplicate"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeCatalog([]byte(tt.data))
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestReadCatalogFile_Gzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json.gz")

	var buf bytes.Buffer
	gz := pgzip.NewWriter(&buf)
	_, err := gz.Write([]byte(sampleCatalog))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	products, err := readCatalogFile(path)
	require.NoError(t, err)
	assert.Len(t, products, 3)
}

func TestReadCatalogFile_Seed(t *testing.T) {
	products, err := readCatalogFile(filepath.Join("..", "..", "db", "seed", "products.json"))
	require.NoError(t, err)
	require.NotEmpty(t, products)

	var addOns int
	for _, p := range products {
		if p.Category == "Add-on" {
			addOns++
		}
	}
	assert.Positive(t, addOns)
}

func TestWriteCatalog(t *testing.T) {
	stock := 4
	var buf bytes.Buffer
	require.NoError(t, writeCatalog(&buf, []product.Product{
		{ID: 1, Name: "Tea", Category: "Milk Tea", Price: decimal.RequireFromString("4.5"), Stock: &stock},
		{ID: 2, Name: "Pearls", Category: "Add-on", Price: decimal.RequireFromString("0.75")},
	}))

	assert.Equal(t, "[\n"+
		`  {"product_id":1,"product_name":"Tea","category":"Milk Tea","price":"4.50","stock":4},`+"\n"+
		`  {"product_id":2,"product_name":"Pearls","category":"Add-on","price":"0.75","stock":null}`+"\n"+
		"]\n", buf.String())
}
