package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"laporfasilitas.org/internal/auth"
	"laporfasilitas.org/internal/migrate"
	"laporfasilitas.org/internal/store/pg"
)

func main() {
	log.SetFlags(0)
	_ = godotenv.Load()

	var (
		dsn            = flag.String("dsn", os.Getenv("LAPOR_PG_DSN"), "PostgreSQL DSN")
		migrationsPath = flag.String("migrations", "ops/migrations/sql", "Path to SQL migrations")
		seedsPath      = flag.String("seeds", "ops/migrations/seeds", "Path to SQL seeds")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or LAPOR_PG_DSN")
	}
	if len(flag.Args()) == 0 {
		log.Fatal("usage: migrate [up|down|seed|status|create-admin <email> <full name> <password>]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	mgr := migrate.NewManager(db, *migrationsPath, *seedsPath)

	switch flag.Arg(0) {
	case "up":
		err = mgr.Up(ctx)
	case "down":
		err = mgr.Down(ctx)
	case "seed":
		err = mgr.Seed(ctx)
	case "status":
		var history []string
		history, err = mgr.Status(ctx)
		if err == nil {
			for _, item := range history {
				fmt.Println(item)
			}
		}
	case "create-admin":
		err = createAdmin(ctx, db, flag.Arg(1), flag.Arg(2), flag.Arg(3))
	default:
		log.Fatalf("unknown command %q", flag.Arg(0))
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", flag.Arg(0), err)
	}
}

// createAdmin bootstraps the first admin account. Later admins are created
// through the API by an existing admin.
func createAdmin(ctx context.Context, db *sql.DB, email, fullName, password string) error {
	if email == "" || fullName == "" || password == "" {
		return fmt.Errorf("usage: migrate create-admin <email> <full name> <password>")
	}
	svc, err := auth.NewService(pg.NewStore(db))
	if err != nil {
		return err
	}
	user, err := svc.CreateAdminAccount(ctx, email, password, fullName)
	if err != nil {
		return err
	}
	fmt.Printf("created admin %s (%s)\n", user.Email, user.ID)
	return nil
}
