package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"

	"github.com/joho/godotenv"

	"github.com/satriap/erp-inventory/internal/config"
	"github.com/satriap/erp-inventory/internal/inventory"
	"github.com/satriap/erp-inventory/internal/postgres"
)

var productPrefixes = []string{
	"iPhone 15", "Samsung Galaxy S24", "MacBook Pro", "Sony WH-1000XM5",
	"Dell XPS 13", "iPad Air", "Logitech MX Master", "Kindle Paperwhite",
	"AirPods Pro", "Nintendo Switch", "PlayStation 5", "GoPro Hero 12",
}

var productSuffixes = []string{
	"Pro", "Max", "Ultra", "Lite", "Mini", "Plus", "Black", "Silver", "256GB",
}

var customerNames = []string{
	"Budi Santoso", "Siti Rahma", "Andi Wijaya", "Dewi Lestari", "Rizky Pratama",
	"Maya Putri", "Agus Hidayat", "Rina Kusuma", "Fajar Nugroho", "Lina Hartati",
}

// seed wipes and repopulates the database with products, customers and a few
// orders. Orders go through the engine so the movement ledger reconciles with
// the seeded stock.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := slog.New(slog.NewTextHandler(os.Stdout, nil))
	ctx := context.Background()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Error("db migrate", "err", err)
		os.Exit(1)
	}

	_, err = db.Exec(ctx, `TRUNCATE stock_movements, order_items, orders, products, customers RESTART IDENTITY`)
	if err != nil {
		log.Error("truncate", "err", err)
		os.Exit(1)
	}
	log.Info("cleared old data")

	repo := &inventory.Repo{DB: db}

	products := make([]inventory.Product, 0, 50)
	for i := 0; i < 50; i++ {
		p := inventory.Product{
			// trailing index keeps SKUs unique across random collisions
			SKU:   fmt.Sprintf("SKU-%04X%02X", rand.Intn(1<<16), i),
			Name:  productPrefixes[rand.Intn(len(productPrefixes))] + " " + productSuffixes[rand.Intn(len(productSuffixes))],
			Stock: rand.Intn(201),
		}
		if err := repo.CreateProduct(ctx, &p); err != nil {
			log.Error("create product", "err", err)
			os.Exit(1)
		}
		products = append(products, p)
	}
	log.Info("seeded products", "count", len(products))

	customers := make([]inventory.Customer, 0, len(customerNames))
	for _, name := range customerNames {
		c := inventory.Customer{Name: name}
		if err := repo.CreateCustomer(ctx, &c); err != nil {
			log.Error("create customer", "err", err)
			os.Exit(1)
		}
		customers = append(customers, c)
	}
	log.Info("seeded customers", "count", len(customers))

	created := 0
	for i := 0; i < 30; i++ {
		c := customers[rand.Intn(len(customers))]
		items := make([]inventory.ItemInput, 0, 3)
		for n := 1 + rand.Intn(3); n > 0; n-- {
			p := products[rand.Intn(len(products))]
			items = append(items, inventory.ItemInput{ProductID: p.ID, Quantity: 1 + rand.Intn(5)})
		}
		_, _, err := repo.CreateOrder(ctx, inventory.CreateOrderInput{
			CustomerName: c.Name,
			CustomerID:   &c.ID,
			Items:        items,
		})
		var ins *inventory.InsufficientStockError
		if errors.As(err, &ins) {
			continue // seeded stock ran out for this pick, skip
		}
		if err != nil {
			log.Error("create order", "err", err)
			os.Exit(1)
		}
		created++
	}
	log.Info("seeded orders", "count", created)
}
