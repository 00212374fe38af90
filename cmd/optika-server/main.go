package main

import (
	"fmt"
	"net/http"
	"os"

	"optika/internal/api"
	"optika/internal/config"
	"optika/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	handler := api.New(db, cfg)
	fmt.Printf("optika-server listening on %s\n", cfg.HTTPAddr)
	must(http.ListenAndServe(cfg.HTTPAddr, handler.Router()))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
