package main

import (
	"context"
	"log"
	"os"

	"github.com/alexedwards/argon2id"
	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close(ctx)

	seedUsers(ctx, conn)
	seedProducts(ctx, conn)
	seedParties(ctx, conn)

	log.Println("Seeding completed successfully!")
}

func seedUsers(ctx context.Context, conn *pgx.Conn) {
	password := os.Getenv("SEED_PASSWORD")
	if password == "" {
		password = "password123"
	}
	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		log.Fatalf("Failed to hash seed password: %v", err)
	}

	users := []struct {
		Name  string
		Email string
		Role  string
	}{
		{"Shop Owner", "owner@kasir.in", "admin"},
		{"Ravi Kumar", "ravi@kasir.in", "cashier"},
		{"Priya Sharma", "priya@kasir.in", "cashier"},
	}

	log.Println("Seeding Users...")
	for _, u := range users {
		_, err := conn.Exec(ctx, `
			INSERT INTO users (name, email, password_hash, role)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (email) DO NOTHING;
		`, u.Name, u.Email, hash, u.Role)
		if err != nil {
			log.Printf("Failed to seed user %s: %v", u.Email, err)
		}
	}
}

func seedProducts(ctx context.Context, conn *pgx.Conn) {
	products := []struct {
		Name       string
		Barcode    string
		HSN        string
		PricePaise int64
		CostPaise  int64
		GSTRate    string
		StockMilli int64
	}{
		{"Tata Salt 1kg", "8901058000290", "2501", 2800, 2200, "5.00", 120000},
		{"Aashirvaad Atta 5kg", "8901058851298", "1101", 27500, 24000, "5.00", 40000},
		{"Amul Butter 500g", "8901262010344", "0405", 27000, 24500, "12.00", 25000},
		{"Amul Ghee 1L", "8901262150668", "0405", 64900, 58000, "12.00", 18000},
		{"Parle-G Biscuit 800g", "8901719104066", "1905", 9000, 7600, "18.00", 90000},
		{"Maggi Noodles 70g", "8901058000740", "1902", 1400, 1150, "18.00", 200000},
		{"Fortune Sunflower Oil 1L", "8906007289107", "1512", 13900, 12400, "5.00", 60000},
		{"Red Label Tea 500g", "8901030705427", "0902", 25000, 21500, "5.00", 30000},
		{"Surf Excel 1kg", "8901030611353", "3402", 13500, 11200, "18.00", 45000},
		{"Colgate MaxFresh 150g", "8901314010339", "3306", 9500, 7800, "18.00", 55000},
		{"Basmati Rice (loose)", "", "1006", 9800, 8200, "0.00", 250000},
		{"Toor Dal (loose)", "", "0713", 15500, 13600, "0.00", 180000},
		{"Sugar (loose)", "", "1701", 4400, 3900, "5.00", 300000},
	}

	log.Println("Seeding Products...")
	for _, p := range products {
		var barcode any
		if p.Barcode != "" {
			barcode = p.Barcode
		} else {
			// NULL barcodes never conflict, so dedupe loose goods by name.
			var exists bool
			if err := conn.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM products WHERE name = $1)", p.Name).Scan(&exists); err != nil {
				log.Printf("Failed to check product %s: %v", p.Name, err)
				continue
			}
			if exists {
				continue
			}
		}
		_, err := conn.Exec(ctx, `
			INSERT INTO products (name, barcode, hsn, price_paise, purchase_price_paise, gst_rate, stock_milli)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (barcode) DO UPDATE SET
				price_paise = EXCLUDED.price_paise,
				purchase_price_paise = EXCLUDED.purchase_price_paise,
				gst_rate = EXCLUDED.gst_rate;
		`, p.Name, barcode, p.HSN, p.PricePaise, p.CostPaise, p.GSTRate, p.StockMilli)
		if err != nil {
			log.Printf("Failed to seed product %s: %v", p.Name, err)
		}
	}
}

func seedParties(ctx context.Context, conn *pgx.Conn) {
	customers := []struct {
		Name    string
		Phone   string
		Opening int64
	}{
		{"Suresh Traders", "9812001001", 0},
		{"Meena Devi", "9812001002", 15000},
		{"Hotel Annapurna", "9812001003", 120000},
	}

	log.Println("Seeding Customers...")
	for _, c := range customers {
		var exists bool
		if err := conn.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM customers WHERE name = $1)", c.Name).Scan(&exists); err != nil {
			log.Printf("Failed to check customer %s: %v", c.Name, err)
			continue
		}
		if exists {
			continue
		}
		_, err := conn.Exec(ctx, `
			INSERT INTO customers (name, phone, opening_balance_paise, ledger_balance_paise)
			VALUES ($1, $2, $3, $3);
		`, c.Name, c.Phone, c.Opening)
		if err != nil {
			log.Printf("Failed to seed customer %s: %v", c.Name, err)
		}
	}

	vendors := []struct {
		Name    string
		Phone   string
		Opening int64
	}{
		{"Gupta Wholesale", "9812002001", 0},
		{"Sri Lakshmi Distributors", "9812002002", -250000},
	}

	log.Println("Seeding Vendors...")
	for _, v := range vendors {
		var exists bool
		if err := conn.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM vendors WHERE name = $1)", v.Name).Scan(&exists); err != nil {
			log.Printf("Failed to check vendor %s: %v", v.Name, err)
			continue
		}
		if exists {
			continue
		}
		_, err := conn.Exec(ctx, `
			INSERT INTO vendors (name, phone, opening_balance_paise, ledger_balance_paise)
			VALUES ($1, $2, $3, $3);
		`, v.Name, v.Phone, v.Opening)
		if err != nil {
			log.Printf("Failed to seed vendor %s: %v", v.Name, err)
		}
	}
}
