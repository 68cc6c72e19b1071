package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/graft-kv/graft/pkg/store"
)

// connectionConfig is graftctl's on-disk connection file: which store
// database to open and how to tune it, so repeated invocations don't
// need to repeat flags.
type connectionConfig struct {
	DBPath          string `yaml:"db_path"`
	EnablePrefetch  bool   `yaml:"enable_prefetch"`
	PrefetchWorkers int    `yaml:"prefetch_workers"`
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".graftctl.yaml"
	}
	return filepath.Join(home, ".graftctl.yaml")
}

func loadConnectionConfig(path string) (connectionConfig, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return connectionConfig{}, nil
	}
	if err != nil {
		return connectionConfig{}, err
	}
	var cfg connectionConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return connectionConfig{}, err
	}
	return cfg, nil
}

// openStoreFromFlags resolves the --config and --db flags into an open,
// read-only-intent VolumeStore. Prefetching defaults off for graftctl:
// an inspection tool has no business scheduling background fetches.
func openStoreFromFlags(cmd *cobra.Command) (*store.VolumeStore, error) {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = defaultConfigPath()
	}
	cfg, err := loadConnectionConfig(configPath)
	if err != nil {
		return nil, err
	}

	dbPath, _ := cmd.Flags().GetString("db")
	if dbPath == "" {
		dbPath = cfg.DBPath
	}
	if dbPath == "" {
		dbPath = "graft.db"
	}

	return store.Open(dbPath, store.Options{
		EnablePrefetch:  cfg.EnablePrefetch,
		PrefetchWorkers: cfg.PrefetchWorkers,
	})
}
