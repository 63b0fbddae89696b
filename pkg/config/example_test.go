package config_test

import (
	"fmt"
	"log"

	"github.com/ajitpratap0/arbor/pkg/config"
)

// ExampleDefault shows the values used when no file is given.
func ExampleDefault() {
	cfg := config.Default()

	fmt.Printf("Compression: %s\n", cfg.Storage.Compression)
	fmt.Printf("Checks: %v\n", cfg.Check.Flags)
	fmt.Printf("Log level: %s\n", cfg.Logging.Level)

	// Output:
	// Compression: none
	// Checks: [trees]
	// Log level: info
}

// ExampleConfig_Validate shows how to validate a configuration
// before using it.
func ExampleConfig_Validate() {
	cfg := config.Default()
	cfg.Storage.Compression = "zstd"
	cfg.Storage.CompressionLevel = 9

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	fmt.Println("Configuration is valid!")

	cfg.Storage.Compression = "brotli"
	fmt.Println(cfg.Validate() != nil)

	// Output:
	// Configuration is valid!
	// true
}

// ExampleStorageConfig_CompressionConfig converts storage settings into
// envelope settings for tables.DumpFile.
func ExampleStorageConfig_CompressionConfig() {
	cfg := config.Default()
	cfg.Storage.Compression = "S2"
	cc := cfg.Storage.CompressionConfig()

	fmt.Printf("%s at level %d\n", cc.Algorithm, cc.Level)

	// Output:
	// s2 at level 5
}
