package main

import (
	"flag"
	"log"
	"os"

	"IgniteX/internal/di"
	"IgniteX/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s instruments=%v", cfg.Environment, cfg.Engine.Instruments)

	mgr := config.NewManager(*configPath, cfg)

	app, err := di.InitializeApp(mgr)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	log.Printf("clickhouse: schema ready - db: %s", cfg.ClickHouse.Database)
	log.Printf("kafka: brokers=%v topic_prefix=%s", cfg.Kafka.Brokers, cfg.Kafka.TopicPrefix)

	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
