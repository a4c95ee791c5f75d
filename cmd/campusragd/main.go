package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"

	"github.com/joho/godotenv"

	"github.com/campusrag/campusrag"
	"github.com/campusrag/campusrag/config"
	"github.com/campusrag/campusrag/server"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	// Credentials come from the environment; .env is optional.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	advisor, err := campusrag.New(cfg)
	if err != nil {
		log.Fatalf("initialize advisor: %v", err)
	}
	defer advisor.Close()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	advisor.Logger().Info("Listening", "addr", addr)
	if err := http.ListenAndServe(addr, server.New(advisor.Pipeline, advisor.Logger())); err != nil {
		log.Fatalf("serve: %v", err)
	}
}
