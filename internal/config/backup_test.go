package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestBackupUserConfig(t *testing.T) {
	// Create temp directory for test
	tmpDir := t.TempDir()

	// Override config path for testing
	origXDG := os.Getenv("XDG_CONFIG_HOME")
	os.Setenv("XDG_CONFIG_HOME", tmpDir)
	defer os.Setenv("XDG_CONFIG_HOME", origXDG)

	configDir := filepath.Join(tmpDir, "veyra")
	configPath := filepath.Join(configDir, "config.yaml")

	t.Run("no config exists", func(t *testing.T) {
		backupPath, err := BackupUserConfig()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if backupPath != "" {
			t.Errorf("expected empty backup path for non-existent config, got %s", backupPath)
		}
	})

	t.Run("backup existing config", func(t *testing.T) {
		// Create config directory and file
		if err := os.MkdirAll(configDir, 0755); err != nil {
			t.Fatalf("failed to create config dir: %v", err)
		}
		testContent := "version: 1\nembeddings:\n  provider: ollama\n"
		if err := os.WriteFile(configPath, []byte(testContent), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		backupPath, err := BackupUserConfig()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if backupPath == "" {
			t.Fatal("expected non-empty backup path")
		}

		// Verify backup exists and has correct content
		backupContent, err := os.ReadFile(backupPath)
		if err != nil {
			t.Fatalf("failed to read backup: %v", err)
		}
		if string(backupContent) != testContent {
			t.Errorf("backup content mismatch:\ngot: %s\nwant: %s", backupContent, testContent)
		}

		// Verify backup filename format
		if !filepath.IsAbs(backupPath) {
			t.Errorf("backup path should be absolute: %s", backupPath)
		}
	})
}

func TestListUserConfigBackups(t *testing.T) {
	tmpDir := t.TempDir()

	origXDG := os.Getenv("XDG_CONFIG_HOME")
	os.Setenv("XDG_CONFIG_HOME", tmpDir)
	defer os.Setenv("XDG_CONFIG_HOME", origXDG)

	configDir := filepath.Join(tmpDir, "veyra")
	configPath := filepath.Join(configDir, "config.yaml")

	// Create config directory
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}

	t.Run("no backups exist", func(t *testing.T) {
		backups, err := ListUserConfigBackups()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(backups) != 0 {
			t.Errorf("expected 0 backups, got %d", len(backups))
		}
	})

	t.Run("list multiple backups", func(t *testing.T) {
		// Create some backup files with different timestamps
		timestamps := []string{"20260101-100000", "20260101-110000", "20260101-120000"}
		for _, ts := range timestamps {
			backupName := filepath.Join(configDir, "config.yaml.bak."+ts)
			if err := os.WriteFile(backupName, []byte("test"), 0644); err != nil {
				t.Fatalf("failed to create backup: %v", err)
			}
			// Small delay to ensure different mod times
			time.Sleep(10 * time.Millisecond)
		}

		backups, err := ListUserConfigBackups()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(backups) != 3 {
			t.Errorf("expected 3 backups, got %d", len(backups))
		}

		// Verify sorted by mod time (newest first)
		for i := 1; i < len(backups); i++ {
			info1, _ := os.Stat(backups[i-1])
			info2, _ := os.Stat(backups[i])
			if info1.ModTime().Before(info2.ModTime()) {
				t.Errorf("backups not sorted correctly: %s before %s", backups[i-1], backups[i])
			}
		}
	})

	t.Run("cleanup old backups", func(t *testing.T) {
		// Create config file
		if err := os.WriteFile(configPath, []byte("test config"), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		// Create 4 more backups (should trigger cleanup)
		for i := 0; i < 4; i++ {
			_, err := BackupUserConfig()
			if err != nil {
				t.Fatalf("failed to create backup: %v", err)
			}
			time.Sleep(10 * time.Millisecond)
		}

		// Should have at most MaxBackups
		backups, err := ListUserConfigBackups()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(backups) > MaxBackups {
			t.Errorf("expected at most %d backups, got %d", MaxBackups, len(backups))
		}
	})
}

func TestMergeNewDefaults(t *testing.T) {
	t.Run("adds missing search config fields", func(t *testing.T) {
		// FEAT-UNIX2: Simulates upgrade from pre-v0.8.2 config without search weights
		cfg := &Config{
			Version: 1,
			Search: SearchConfig{
				ChunkSize:  1500,
				MaxResults: 20,
				// KeywordWeight and RerankBoostFactor are 0 (not set)
			},
		}

		added := cfg.MergeNewDefaults()

		// Should add search config fields with defaults
		if cfg.Search.KeywordWeight != 0.35 {
			t.Errorf("KeywordWeight should be 0.35, got %f", cfg.Search.KeywordWeight)
		}
		if cfg.Search.RerankBoostFactor != 0.2 {
			t.Errorf("RerankBoostFactor should be 0.2, got %f", cfg.Search.RerankBoostFactor)
		}

		// Should report the fields
		hasKeyword := false
		hasRerank := false
		for _, field := range added {
			if field == "search.keyword_weight" {
				hasKeyword = true
			}
			if field == "search.rerank_boost_factor" {
				hasRerank = true
			}
		}
		if !hasKeyword {
			t.Error("should report keyword_weight as added")
		}
		if !hasRerank {
			t.Error("should report rerank_boost_factor as added")
		}
	})

	t.Run("adds missing store and cache fields", func(t *testing.T) {
		cfg := &Config{
			Version: 1,
			Embeddings: EmbeddingsConfig{
				Provider: "ollama",
				Model:    "test-model",
			},
			// Store and Cache are zero (not set)
		}

		added := cfg.MergeNewDefaults()

		// Should add store and cache fields
		if cfg.Store.Backend != "sqlitevec" {
			t.Errorf("Store.Backend should be sqlitevec, got %s", cfg.Store.Backend)
		}
		if cfg.Store.Path == "" {
			t.Error("Store.Path should be set to default")
		}
		if cfg.Cache.Root == "" {
			t.Error("Cache.Root should be set to default")
		}
		if cfg.Cache.Size != 100 {
			t.Errorf("Cache.Size should be 100, got %d", cfg.Cache.Size)
		}

		// Should report the fields
		hasBackend := false
		hasPath := false
		hasRoot := false
		hasSize := false
		for _, field := range added {
			switch field {
			case "store.backend":
				hasBackend = true
			case "store.path":
				hasPath = true
			case "cache.root":
				hasRoot = true
			case "cache.size":
				hasSize = true
			}
		}
		if !hasBackend {
			t.Error("should report store.backend as added")
		}
		if !hasPath {
			t.Error("should report store.path as added")
		}
		if !hasRoot {
			t.Error("should report cache.root as added")
		}
		if !hasSize {
			t.Error("should report cache.size as added")
		}
	})

	t.Run("preserves existing values", func(t *testing.T) {
		cfg := &Config{
			Version: 1,
			Search: SearchConfig{
				KeywordWeight:     0.4, // Custom value
				RerankBoostFactor: 0.6, // Custom value
			},
			Embeddings: EmbeddingsConfig{
				Provider: "ollama",
				Model:    "custom-model",
			},
			Store: StoreConfig{
				Backend: "memstore",         // Custom value
				Path:    "/custom/index.db", // Custom value
			},
			Cache: CacheConfig{
				Root: "/custom/cache", // Custom value
				Size: 50,              // Custom value
			},
		}

		added := cfg.MergeNewDefaults()

		// Should NOT change existing search values
		if cfg.Search.KeywordWeight != 0.4 {
			t.Errorf("KeywordWeight changed from 0.4 to %f", cfg.Search.KeywordWeight)
		}
		if cfg.Search.RerankBoostFactor != 0.6 {
			t.Errorf("RerankBoostFactor changed from 0.6 to %f", cfg.Search.RerankBoostFactor)
		}
		// Should NOT change existing store and cache values
		if cfg.Store.Backend != "memstore" {
			t.Errorf("Store.Backend changed from memstore to %s", cfg.Store.Backend)
		}
		if cfg.Store.Path != "/custom/index.db" {
			t.Errorf("Store.Path changed from /custom/index.db to %s", cfg.Store.Path)
		}
		if cfg.Cache.Root != "/custom/cache" {
			t.Errorf("Cache.Root changed from /custom/cache to %s", cfg.Cache.Root)
		}
		if cfg.Cache.Size != 50 {
			t.Errorf("Cache.Size changed from 50 to %d", cfg.Cache.Size)
		}

		// Should NOT report them as added
		for _, field := range added {
			if field == "search.keyword_weight" ||
				field == "search.rerank_boost_factor" ||
				field == "store.backend" ||
				field == "store.path" ||
				field == "cache.root" ||
				field == "cache.size" {
				t.Errorf("should not report %s as added (was already set)", field)
			}
		}
	})

	t.Run("returns empty for complete config", func(t *testing.T) {
		// Create a complete config
		cfg := NewConfig()

		added := cfg.MergeNewDefaults()

		if len(added) != 0 {
			t.Errorf("expected 0 added fields for complete config, got %v", added)
		}
	})
}

func TestWriteYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	cfg := &Config{
		Version: 1,
		Embeddings: EmbeddingsConfig{
			Provider: "ollama",
			Model:    "test-model",
		},
	}

	if err := cfg.WriteYAML(configPath); err != nil {
		t.Fatalf("failed to write YAML: %v", err)
	}

	// Verify file exists and is readable
	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("failed to read written file: %v", err)
	}
	if len(data) == 0 {
		t.Error("written file is empty")
	}

	// Verify it contains expected content
	content := string(data)
	if !contains(content, "provider: ollama") {
		t.Error("written file should contain provider: ollama")
	}
	if !contains(content, "model: test-model") {
		t.Error("written file should contain model: test-model")
	}
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && (s == substr || len(s) > 0 && containsHelper(s, substr))
}

func containsHelper(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
