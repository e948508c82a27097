package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Index Index       `yaml:"index"`
	Input inputConfig `yaml:"input"`
	Log   logConfig   `yaml:"log"`
	Store storeConfig `yaml:"store"`
}

// Index carries the R-tree bulk load parameters.
type Index struct {
	FillFactor    float64 `yaml:"fill_factor"`
	IndexCapacity int     `yaml:"index_capacity"`
	LeafCapacity  int     `yaml:"leaf_capacity"`
}

type inputConfig struct {
	ScannerBufferKB int `yaml:"scanner_buffer_kb"`
	MaxLineMB       int `yaml:"max_line_mb"` // WKT blobs can be large
	FloatPrecision  int `yaml:"float_precision"`
}

type logConfig struct {
	Level  string `yaml:"level"`
	Timing bool   `yaml:"timing"` // report reading vs execution wall clock on exit
}

// storeConfig is filled from the environment, not from yaml. See LoadEnv.
type storeConfig struct {
	EndpointURL string
	AccessKey   string
	SecretKey   string
	UseSSL      bool
}

var configInstance *Config = &Config{
	Index: Index{
		FillFactor:    0.9,
		IndexCapacity: 10,
		LeafCapacity:  50,
	},
	Input: inputConfig{
		ScannerBufferKB: 64,
		MaxLineMB:       64,
		FloatPrecision:  6, // significant digits for derived statistics
	},
	Log: logConfig{
		Level:  "INFO",
		Timing: false,
	},
	Store: storeConfig{
		UseSSL: true,
	},
}

func GetConfig() *Config {
	return configInstance
}

// overwrite global instance with loaded config
func Decode(filePath string) error {
	suffix := strings.Split(filePath, ".")[len(strings.Split(filePath, "."))-1]
	if suffix != "yaml" && suffix != "yml" {
		return errors.New("file must be a .yaml or .yml file")
	}
	r, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer r.Close()
	config := make(map[string]interface{})
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(config); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	mergeConfig(configInstance, config)
	return nil
}

// LoadEnv pulls object store credentials from the process environment,
// optionally seeded from a dotenv file. A missing dotenv file is not an
// error; the variables may already be exported.
func LoadEnv(envFile string) {
	if envFile != "" {
		_ = godotenv.Load(envFile)
	} else {
		_ = godotenv.Load()
	}
	if v := os.Getenv("STORE_ENDPOINT_URL"); v != "" {
		configInstance.Store.EndpointURL = v
	}
	if v := os.Getenv("STORE_ACCESS_KEY"); v != "" {
		configInstance.Store.AccessKey = v
	}
	if v := os.Getenv("STORE_SECRET_KEY"); v != "" {
		configInstance.Store.SecretKey = v
	}
	if v := os.Getenv("STORE_USE_SSL"); v != "" {
		configInstance.Store.UseSSL = v != "false" && v != "0"
	}
}

func mergeConfig(dst *Config, src map[string]interface{}) {
	// =============================
	// INDEX
	// =============================
	if index, ok := src["index"].(map[string]interface{}); ok {
		if v, ok := index["fill_factor"].(float64); ok {
			dst.Index.FillFactor = v
		}
		if v, ok := index["index_capacity"].(int); ok {
			dst.Index.IndexCapacity = v
		}
		if v, ok := index["leaf_capacity"].(int); ok {
			dst.Index.LeafCapacity = v
		}
	}

	// =============================
	// INPUT
	// =============================
	if input, ok := src["input"].(map[string]interface{}); ok {
		if v, ok := input["scanner_buffer_kb"].(int); ok {
			dst.Input.ScannerBufferKB = v
		}
		if v, ok := input["max_line_mb"].(int); ok {
			dst.Input.MaxLineMB = v
		}
		if v, ok := input["float_precision"].(int); ok {
			dst.Input.FloatPrecision = v
		}
	}

	// =============================
	// LOG
	// =============================
	if lg, ok := src["log"].(map[string]interface{}); ok {
		if v, ok := lg["level"].(string); ok {
			dst.Log.Level = v
		}
		if v, ok := lg["timing"].(bool); ok {
			dst.Log.Timing = v
		}
	}
}
