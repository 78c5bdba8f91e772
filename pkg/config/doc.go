// Package config provides configuration management for arrowload.
//
// # Key Features
//
// - BaseConfig: one structure shared by the loader, destinations and CLI
// - Structured sections: Performance, Timeouts, Reliability, Observability, Loader, Destination
// - Environment variable substitution with ${VAR_NAME} syntax inside YAML files
// - ARROWLOAD_* environment overrides and flag binding through viper
// - Defaults and validation
//
// # Usage
//
// ## Loading a YAML file
//
//	cfg, err := config.Load("arrowload.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
// ## Layering flags and environment
//
//	v, err := config.NewViper(configPath)
//	if err != nil {
//		return err
//	}
//	_ = v.BindPFlag("performance.chunk_size", cmd.Flags().Lookup("chunk-size"))
//	cfg, err := config.FromViper(v)
//
// # Example YAML
//
//	performance:
//	  chunk_size: 10000
//	  workers: 8
//	timeouts:
//	  statement: 2m
//	loader:
//	  strategy: auto
//	  type_mapping: strict
//	  transactional: true
//	destination:
//	  sqlite_driver: sqlite
//	  credentials:
//	    password: ${PGPASSWORD}
package config
