package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"optika/internal"
	"optika/internal/config"
	"optika/internal/registry"
	"optika/internal/report"
	"optika/internal/stock"
	"optika/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	cmd := os.Args[1]
	switch cmd {
	case "registry:sync":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		customer := fs.String("customer", "", "customer id")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*customer) == "" {
			must(fmt.Errorf("--customer is required"))
		}
		svc := registry.NewSyncService(db, cfg)
		imported, err := svc.SyncCustomer(context.Background(), *customer)
		must(err)
		fmt.Printf("registry sync complete customer=%s imported=%d\n", *customer, imported)
	case "registry:listen":
		p := registry.NewPoller(db, cfg)
		must(p.Run(context.Background()))
	case "lots:import":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		product := fs.String("product", "", "product id")
		file := fs.String("file", "", "input xlsx path")
		stockin := fs.Bool("stockin", false, "mark the lot received now")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*product) == "" || strings.TrimSpace(*file) == "" {
			must(fmt.Errorf("--product and --file are required"))
		}
		rows, err := report.ImportLotRowsFromXLSX(*file)
		must(err)
		if len(rows) == 0 {
			must(fmt.Errorf("no lot rows in %s", *file))
		}
		lot := internal.PurchaseListOrder{ProductID: *product, Rows: rows}
		if *stockin {
			at := time.Now().UTC().Format(time.RFC3339)
			lot.StockInAt = &at
		}
		id, err := db.InsertPurchaseOrder(lot)
		must(err)
		fmt.Printf("lot imported id=%d product=%s rows=%d stockin=%v\n", id, *product, len(rows), *stockin)
	case "lots:stockin":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		lotID := fs.Int64("lot", 0, "purchase lot id")
		_ = fs.Parse(os.Args[2:])
		if *lotID == 0 {
			must(fmt.Errorf("--lot is required"))
		}
		must(db.MarkStockIn(*lotID, time.Now().UTC().Format(time.RFC3339)))
		fmt.Printf("lot %d stocked in\n", *lotID)
	case "stock:show":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		product := fs.String("product", "", "product id (all when empty)")
		_ = fs.Parse(os.Args[2:])
		lots, err := db.ListAllReceivedLots()
		must(err)
		idx := stock.BuildIndex(lots)
		for productID, entry := range idx {
			if *product != "" && productID != *product {
				continue
			}
			for key, qty := range entry {
				fmt.Printf("%s\t%s\t%d\n", productID, key, qty)
			}
		}
	case "sales:export":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		out := fs.String("out", "", "output xlsx path")
		from := fs.String("from", "", "start date yyyy-mm-dd")
		to := fs.String("to", "", "end date yyyy-mm-dd")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--out is required"))
		}
		rows, err := db.GetSalesExportRows(*from, *to)
		must(err)
		if len(rows) == 0 {
			must(fmt.Errorf("no sales rows in range"))
		}
		must(report.ExportSalesToXLSX(rows, *out))
		fmt.Printf("exported %d rows to %s\n", len(rows), *out)
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("usage: optika <command>")
	fmt.Println("commands:")
	fmt.Println("  registry:sync --customer=C0001")
	fmt.Println("  registry:listen")
	fmt.Println("  lots:import --product=P0001 --file=./lot.xlsx [--stockin]")
	fmt.Println("  lots:stockin --lot=1")
	fmt.Println("  stock:show [--product=P0001]")
	fmt.Println("  sales:export --out=./out/sales.xlsx [--from=2026-01-01] [--to=2026-01-31]")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
