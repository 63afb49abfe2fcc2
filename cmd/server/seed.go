package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rl1809/minicart/internal/adapter/catalog"
	"github.com/rl1809/minicart/internal/adapter/storage"
)

var seedCatalogCmd = &cobra.Command{
	Use:   "seed-catalog",
	Short: "Copy the catalog API into the MySQL products table",
	Long: `Fetches every product from CATALOG_BASE_URL and upserts it into the
products table at MYSQL_DSN, creating the table when missing. Run it before
serving with CATALOG_SOURCE=mysql.`,
	RunE: runSeedCatalog,
}

func runSeedCatalog(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := cmd.Context()
	products, err := catalog.NewHTTPClient(cfg.CatalogBaseURL, cfg.CatalogTimeout).ListProducts(ctx)
	if err != nil {
		return err
	}

	db, err := openMySQL(ctx, cfg.MySQLDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	mysqlAdapter := storage.NewMySQLAdapter(db)
	if err := mysqlAdapter.EnsureSchema(ctx); err != nil {
		return err
	}
	for _, p := range products {
		if err := mysqlAdapter.UpsertProduct(ctx, p); err != nil {
			return err
		}
	}

	log.Info("catalog seeded", zap.Int("products", len(products)))
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d products\n", len(products))
	return nil
}
