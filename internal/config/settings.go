package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
	k8syaml "sigs.k8s.io/yaml"
)

//go:embed settings.schema.json
var settingsSchema []byte

const settingsSchemaURL = "https://credential-store.local/settings.schema.json"

var (
	schemaOnce     sync.Once
	schemaErr      error
	compiledSchema *jsonschema.Schema
)

// Settings is the optional credential-store.yml file
type Settings struct {
	Backend      string          `yaml:"backend"`
	BasisFile    string          `yaml:"basisFile"`
	FallbackFile string          `yaml:"fallbackFile"`
	Keyring      KeyringSettings `yaml:"keyring"`
	History      HistorySettings `yaml:"history"`
}

// KeyringSettings configures the keyring backend
type KeyringSettings struct {
	Service         string   `yaml:"service"`
	AllowedBackends []string `yaml:"allowedBackends"`
	FileDir         string   `yaml:"fileDir"`
}

// HistorySettings configures the propagation history
type HistorySettings struct {
	Enabled       *bool  `yaml:"enabled"`
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retentionDays"`
}

// LoadSettings reads the settings file at path. A missing file yields zero
// settings and found == false.
func LoadSettings(path string) (settings Settings, found bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Settings{}, false, nil
		}
		return Settings{}, false, fmt.Errorf("failed to read settings file: %w", err)
	}

	settings, err = ParseSettings(data)
	if err != nil {
		return Settings{}, true, fmt.Errorf("invalid settings file %s: %w", path, err)
	}
	return settings, true, nil
}

// ParseSettings validates content against the settings schema and decodes it
func ParseSettings(content []byte) (Settings, error) {
	var settings Settings
	if len(bytes.TrimSpace(content)) == 0 {
		return settings, nil
	}

	if err := validateSettings(content); err != nil {
		return settings, err
	}

	if err := yaml.Unmarshal(content, &settings); err != nil {
		return settings, fmt.Errorf("failed to parse settings: %w", err)
	}
	return settings, nil
}

func validateSettings(content []byte) error {
	sch, err := loadSchema()
	if err != nil {
		return err
	}

	jsonData, err := k8syaml.YAMLToJSON(content)
	if err != nil {
		return fmt.Errorf("convert yaml to json: %w", err)
	}

	var document any
	if err := json.Unmarshal(jsonData, &document); err != nil {
		return fmt.Errorf("unmarshal json: %w", err)
	}
	if document == nil {
		// Comments only.
		return nil
	}

	return sch.Validate(document)
}

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(settingsSchemaURL, bytes.NewReader(settingsSchema)); err != nil {
			schemaErr = fmt.Errorf("load settings schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile(settingsSchemaURL)
	})
	return compiledSchema, schemaErr
}
