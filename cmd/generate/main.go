package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	engine "github.com/rxtech-lab/argo-settlement/internal/backtest/engine/engine_v1"
	"gopkg.in/yaml.v3"
)

const (
	schemaName           = "simulation-engine-v1-config.json"
	sampleConfigName     = "simulation-engine-v1-config.yaml"
	defaultConfigDirName = "config"
)

// validatePaths rejects empty output paths.
func validatePaths(schemaPath string, sampleConfigPath string) error {
	if schemaPath == "" {
		return fmt.Errorf("schema path cannot be empty")
	}

	if sampleConfigPath == "" {
		return fmt.Errorf("sample config path cannot be empty")
	}

	return nil
}

func validateSchemaName(name string) error {
	if name == "" {
		return fmt.Errorf("schema name cannot be empty")
	}

	if !strings.HasSuffix(name, ".json") {
		return fmt.Errorf("schema name %q must have .json extension", name)
	}

	return nil
}

// getSchemaReference returns the yaml-language-server header pointing at the schema.
func getSchemaReference(name string) string {
	return "# yaml-language-server: $schema=" + name + "\n"
}

// generateSchemaFile writes the JSON schema of config to path, creating parent directories.
func generateSchemaFile(config engine.SimulationEngineV1Config, path string) error {
	schemaJSON, err := config.GenerateSchemaJSON()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(schemaJSON), 0644); err != nil {
		return fmt.Errorf("failed to write schema to file: %w", err)
	}

	return nil
}

// generateSampleConfig writes config as YAML to path unless the file already exists.
func generateSampleConfig(config engine.SimulationEngineV1Config, path string, schema string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat sample config: %w", err)
	}

	yamlBytes, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal sample config to yaml: %w", err)
	}

	yamlBytes = append([]byte(getSchemaReference(schema)), yamlBytes...)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, yamlBytes, 0644); err != nil {
		return fmt.Errorf("failed to write sample config to file: %w", err)
	}

	log.Printf("Sample config successfully generated at %s", path)

	return nil
}

func run(configDir string) error {
	schemaPath := filepath.Join(configDir, schemaName)
	sampleConfigPath := filepath.Join(configDir, sampleConfigName)

	if err := validatePaths(schemaPath, sampleConfigPath); err != nil {
		return err
	}

	if err := validateSchemaName(schemaName); err != nil {
		return err
	}

	config := engine.DefaultConfig()

	if err := generateSchemaFile(config, schemaPath); err != nil {
		return err
	}

	if err := generateSampleConfig(config, sampleConfigPath, schemaName); err != nil {
		return err
	}

	log.Printf("Schema successfully generated at %s", schemaPath)

	return nil
}

func main() {
	if err := run(defaultConfigDirName); err != nil {
		log.Fatal(err)
	}
}
