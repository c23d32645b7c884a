//go:build integration

package postgres_test

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/CSCE331-Fall2025-900-911/project3-gang-61/internal/domain/order"
	"github.com/CSCE331-Fall2025-900-911/project3-gang-61/internal/domain/product"
	"github.com/CSCE331-Fall2025-900-911/project3-gang-61/internal/storage/postgres"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	ctr, err := tcpostgres.Run(ctx, "postgres:17-alpine",
		tcpostgres.WithDatabase("pos"),
		tcpostgres.WithUsername("pos"),
		tcpostgres.WithPassword("pos"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		log.Fatalf("postgres container: %v", err)
	}
	defer func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			log.Printf("terminate container: %v", err)
		}
	}()

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Fatalf("connection string: %v", err)
	}

	testPool, err = postgres.NewPool(ctx, dsn, postgres.PoolConfig{MaxConns: 16})
	if err != nil {
		log.Fatalf("pool: %v", err)
	}
	defer testPool.Close()

	if err := postgres.RunMigrations(ctx, testPool); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	return m.Run()
}

// catalog is the product set every test starts from.
var catalog = []product.Product{
	{ID: 5, Name: "Classic Milk Tea", Category: "Milk Tea", Price: decimal.RequireFromString("4.75"), Stock: intPtr(10)},
	{ID: 10, Name: "Tapioca Pearls", Category: "Topping", Price: decimal.RequireFromString("0.75"), Stock: intPtr(20)},
	{ID: 11, Name: "Lychee Jelly", Category: "Topping", Price: decimal.RequireFromString("0.75"), Stock: intPtr(1)},
	{ID: 20, Name: "Paper Straw", Category: "Misc", Price: decimal.Zero, Stock: nil},
}

func intPtr(v int) *int { return &v }

func resetDB(t *testing.T) {
	t.Helper()

	ctx := context.Background()
	_, err := testPool.Exec(ctx, `TRUNCATE items, orders, products RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	require.NoError(t, postgres.NewProductRepository(testPool).Upsert(ctx, catalog))
}

func stockOf(t *testing.T, productID int64) *int {
	t.Helper()

	p, err := postgres.NewProductRepository(testPool).GetByID(context.Background(), productID)
	require.NoError(t, err)
	return p.Stock
}

func countRows(t *testing.T, table string) int {
	t.Helper()

	var n int
	err := testPool.QueryRow(context.Background(), `SELECT count(*) FROM `+table).Scan(&n)
	require.NoError(t, err)
	return n
}

func newService(t *testing.T, policy order.StockPolicy) *order.Service {
	t.Helper()

	svc, err := order.NewService(
		postgres.NewStore(testPool, noop.NewTracerProvider()),
		order.Config{StockPolicy: policy},
	)
	require.NoError(t, err)
	return svc
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func milkTeaRequest(qty int, addOnID int64) order.PlaceOrderRequest {
	ice, sugar := order.IceLess, order.SugarRegular
	total := dec("11.00")
	member, employee := int64(7), int64(0)
	return order.PlaceOrderRequest{
		Lines: []order.CartLine{{
			ProductID:   5,
			ProductName: "Classic Milk Tea",
			Quantity:    qty,
			Price:       dec("4.75"),
			Modifications: order.Modifications{
				IceLevel:   &ice,
				SugarLevel: &sugar,
				AddOns:     []order.AddOn{{ProductID: addOnID, Price: dec("0.75")}},
			},
		}},
		Total:      &total,
		MemberID:   &member,
		EmployeeID: &employee,
	}
}
