package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const configHeader = `# DittoDrive Configuration File
#
# Environment variables override values from this file using the
# DITTODRIVE_ prefix, e.g. DITTODRIVE_LOGGING_LEVEL=DEBUG.
#
# Only the section matching metadata.type and content.type is used;
# the other store sections are kept for reference.

`

// sectionComments documents each top-level section of the generated file.
var sectionComments = map[string]string{
	"logging":   "Log output: level (DEBUG, INFO, WARN, ERROR), format (text, json), output (stdout, stderr, file path)",
	"server":    "Process-wide settings",
	"metrics":   "Prometheus endpoint served at :<port>/metrics",
	"metadata":  "Document store: memory, badger or postgres",
	"content":   "Blob store: memory, filesystem or s3",
	"cascade":   "Trash and purge propagation: concurrent operations per run and dispatch rate limit (0 = unlimited)",
	"search":    "Search implementation: index (incremental, per owner) or scan (re-read on every query)",
	"hierarchy": "Upper bound on ancestor walks when resolving paths",
	"gc":        "Orphaned blob collection",
}

// InitConfig writes a default configuration file to the default location.
//
// Returns the path of the written file. Fails if a file already exists there
// unless force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a default configuration file to path, creating
// parent directories as needed.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// generateYAMLWithComments renders cfg as YAML with a file header and a
// comment above each top-level section.
func generateYAMLWithComments(cfg *Config) (string, error) {
	var doc yaml.Node
	if err := doc.Encode(cfg); err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}

	if doc.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(doc.Content); i += 2 {
			key := doc.Content[i]
			if comment, ok := sectionComments[key.Value]; ok {
				key.HeadComment = comment
			}
		}
	}

	var buf bytes.Buffer
	buf.WriteString(configHeader)

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}

	return buf.String(), nil
}
