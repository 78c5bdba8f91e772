package config_test

import (
	"fmt"
	"log"
	"time"

	"github.com/ajitpratap0/arrowload/pkg/config"
)

// ExampleNewBaseConfig demonstrates the defaults of a load.
func ExampleNewBaseConfig() {
	cfg := config.NewBaseConfig("events")

	fmt.Printf("Chunk Size: %d\n", cfg.Performance.ChunkSize)
	fmt.Printf("Connection Timeout: %s\n", cfg.Timeouts.Connection)
	fmt.Printf("Strategy: %s\n", cfg.Loader.Strategy)
	fmt.Printf("Transactional: %v\n", cfg.Loader.Transactional)

	// Output:
	// Chunk Size: 10000
	// Connection Timeout: 10s
	// Strategy: auto
	// Transactional: true
}

// ExampleBaseConfig_Validate shows how to validate a configuration
// before using it.
func ExampleBaseConfig_Validate() {
	cfg := config.NewBaseConfig("events")
	cfg.Performance.Workers = 16
	cfg.Timeouts.Statement = 2 * time.Minute
	cfg.Loader.TypeMapping = config.TypeMappingExtended

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	fmt.Println("Configuration is valid!")

	cfg.Loader.Strategy = "copy"
	fmt.Println(cfg.Validate())

	// Output:
	// Configuration is valid!
	// unknown strategy "copy"
}
