// Package config provides configuration management for the arbor tools.
//
// # Key Features
//
// - Config: one structure shared by every command
// - Sections for tables, checks, storage, logging, metrics and tracing
// - Environment variable substitution with ${VAR_NAME} syntax
// - A viper loader that layers defaults, a YAML file and ARBOR_* variables
// - Validation that reports the offending field
//
// # Usage
//
// ## Loading for the CLI
//
//	cfg, err := config.LoadConfig("arbor.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	tc := tables.New(1e6, cfg.Tables.TableOptions()...)
//
// ## Plain YAML
//
//	cfg := config.Default()
//	err := config.Load("arbor.yaml", cfg)
//
// ## Environment Variable Substitution
//
//	# arbor.yaml
//	storage:
//	  compression: zstd
//	  remote:
//	    region: ${AWS_REGION}
//
// The same setting can come from the environment alone:
//
//	ARBOR_STORAGE_COMPRESSION=zstd arbor convert in.trees out.trees
package config
