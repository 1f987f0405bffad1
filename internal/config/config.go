package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ProjectType represents the type of project detected.
type ProjectType string

const (
	ProjectTypeGo      ProjectType = "go"
	ProjectTypeNode    ProjectType = "node"
	ProjectTypePython  ProjectType = "python"
	ProjectTypeUnknown ProjectType = "unknown"
)

// Config represents the complete veyra configuration.
type Config struct {
	Version     int               `yaml:"version" json:"version"`
	Paths       PathsConfig       `yaml:"paths" json:"paths"`
	Search      SearchConfig      `yaml:"search" json:"search"`
	Embeddings  EmbeddingsConfig  `yaml:"embeddings" json:"embeddings"`
	Store       StoreConfig       `yaml:"store" json:"store"`
	Performance PerformanceConfig `yaml:"performance" json:"performance"`
	Server      ServerConfig      `yaml:"server" json:"server"`
	Cache       CacheConfig       `yaml:"cache" json:"cache"`
}

// PathsConfig configures which paths to include and exclude when indexing.
type PathsConfig struct {
	Include []string `yaml:"include" json:"include"`
	Exclude []string `yaml:"exclude" json:"exclude"`
}

// SearchConfig configures hybrid search and chunking parameters.
// KeywordWeight and RerankBoostFactor are configurable via:
//  1. User config (~/.config/veyra/config.yaml) - personal defaults
//  2. Project config (.veyra.yaml) - per-repo tuning
//  3. Env vars (VEYRA_KEYWORD_WEIGHT, VEYRA_RERANK_BOOST) - highest precedence
type SearchConfig struct {
	// KeywordWeight is the keyword-side weight in hybrid fusion (0.0-1.0).
	// The semantic side receives the complementary 1-KeywordWeight.
	KeywordWeight float64 `yaml:"keyword_weight" json:"keyword_weight"`

	// RerankBoostFactor scales the substring-match boost the reranker
	// applies; 0 disables reranking by default.
	RerankBoostFactor float64 `yaml:"rerank_boost_factor" json:"rerank_boost_factor"`

	ChunkSize    int `yaml:"chunk_size" json:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap" json:"chunk_overlap"`
	MaxResults   int `yaml:"max_results" json:"max_results"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	Provider   string `yaml:"provider" json:"provider"`
	Model      string `yaml:"model" json:"model"`
	Dimensions int    `yaml:"dimensions" json:"dimensions"`
	BatchSize  int    `yaml:"batch_size" json:"batch_size"`

	// Ollama settings (used when provider is "ollama", the default).
	OllamaHost    string        `yaml:"ollama_host" json:"ollama_host"`
	OllamaTimeout time.Duration `yaml:"ollama_timeout" json:"ollama_timeout"`

	// CacheDisabled turns off the embedder's own query-level cache.
	CacheDisabled bool `yaml:"cache_disabled" json:"cache_disabled"`
}

// StoreConfig selects and configures the vector store backend.
type StoreConfig struct {
	// Backend selects the store.Primitives implementation: "sqlitevec",
	// "sqlitepure", "columnar", or "memstore".
	Backend string `yaml:"backend" json:"backend"`
	// Path is the backend's on-disk location. Ignored by memstore.
	Path string `yaml:"path" json:"path"`
	// EnableHNSW turns on the columnar backend's coder/hnsw sidecar.
	EnableHNSW bool `yaml:"enable_hnsw" json:"enable_hnsw"`
	// Metric must be l2sq, ip, or cosine when EnableHNSW is set; the
	// columnar HNSW sidecar ranks by cosine distance whatever its value.
	Metric string `yaml:"metric" json:"metric"`
}

// PerformanceConfig configures performance tuning options.
type PerformanceConfig struct {
	MaxFiles     int `yaml:"max_files" json:"max_files"`
	IndexWorkers int `yaml:"index_workers" json:"index_workers"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	Port      int    `yaml:"port" json:"port"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

// CacheConfig configures the bounded query cache and structured-knowledge
// artifact root used by the agent query orchestrator.
type CacheConfig struct {
	// Root is the directory queries.json/queries.md and structured/*.md
	// are written under. Empty disables disk persistence (in-memory only).
	Root string `yaml:"root" json:"root"`
	// Size is the number of cached queries retained (LRU-evicted).
	Size int `yaml:"size" json:"size"`
}

// defaultExcludePatterns are always excluded.
var defaultExcludePatterns = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/vendor/**",
	"**/__pycache__/**",
	"**/dist/**",
	"**/build/**",
	"**/*.min.js",
	"**/*.min.css",
	"**/package-lock.json",
	"**/yarn.lock",
	"**/pnpm-lock.yaml",
	"**/go.sum",
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			Include: []string{},
			Exclude: defaultExcludePatterns,
		},
		Search: SearchConfig{
			KeywordWeight:     0.35,
			RerankBoostFactor: 0.2,
			ChunkSize:         1500,
			ChunkOverlap:      200,
			MaxResults:        20,
		},
		Embeddings: EmbeddingsConfig{
			Provider:      "ollama",
			Model:         "nomic-embed-text",
			Dimensions:    0, // Auto-detect from embedder
			BatchSize:     32,
			OllamaHost:    "", // Empty uses default http://localhost:11434
			OllamaTimeout: 30 * time.Second,
			CacheDisabled: false,
		},
		Store: StoreConfig{
			Backend:    "sqlitevec",
			Path:       defaultStorePath(),
			EnableHNSW: false,
			Metric:     "cosine",
		},
		Performance: PerformanceConfig{
			MaxFiles:     100000,
			IndexWorkers: runtime.NumCPU(),
		},
		Server: ServerConfig{
			Transport: "stdio",
			Port:      8765,
			LogLevel:  "info",
		},
		Cache: CacheConfig{
			Root: defaultCacheRoot(),
			Size: 100,
		},
	}
}

// defaultStorePath returns the default on-disk location for file-backed
// store backends.
func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".veyra", "index.db")
	}
	return filepath.Join(home, ".veyra", "index.db")
}

// defaultCacheRoot returns the default query-cache/structured-artifact root.
func defaultCacheRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".veyra", "cache")
	}
	return filepath.Join(home, ".veyra", "cache")
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/veyra/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/veyra/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "veyra", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "veyra", "config.yaml")
	}
	return filepath.Join(home, ".config", "veyra", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// loadUserConfig loads the user/global configuration file if it exists.
// Returns nil config and nil error if the file doesn't exist (that's OK).
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()

	if !fileExists(configPath) {
		return nil, nil // No user config is fine
	}

	cfg := NewConfig()
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}

	return cfg, nil
}

// Load loads configuration from the specified directory.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/veyra/config.yaml)
//  3. Project config (.veyra.yaml in project root)
//  4. Environment variables (VEYRA_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile attempts to load configuration from .veyra.yaml or .veyra.yml.
func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, ".veyra.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, ".veyra.yml")
	if _, err := os.Stat(ymlPath); err == nil {
		return c.loadYAML(ymlPath)
	}

	// No config file is fine - use defaults
	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	// Paths
	if len(other.Paths.Include) > 0 {
		c.Paths.Include = other.Paths.Include
	}
	if len(other.Paths.Exclude) > 0 {
		// Merge with defaults rather than replace
		c.Paths.Exclude = append(c.Paths.Exclude, other.Paths.Exclude...)
	}

	// Search
	if other.Search.KeywordWeight != 0 {
		c.Search.KeywordWeight = other.Search.KeywordWeight
	}
	if other.Search.RerankBoostFactor != 0 {
		c.Search.RerankBoostFactor = other.Search.RerankBoostFactor
	}
	if other.Search.ChunkSize != 0 {
		c.Search.ChunkSize = other.Search.ChunkSize
	}
	if other.Search.ChunkOverlap != 0 {
		c.Search.ChunkOverlap = other.Search.ChunkOverlap
	}
	if other.Search.MaxResults != 0 {
		c.Search.MaxResults = other.Search.MaxResults
	}

	// Embeddings
	if other.Embeddings.Provider != "" {
		c.Embeddings.Provider = other.Embeddings.Provider
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.Dimensions != 0 {
		c.Embeddings.Dimensions = other.Embeddings.Dimensions
	}
	if other.Embeddings.BatchSize != 0 {
		c.Embeddings.BatchSize = other.Embeddings.BatchSize
	}
	if other.Embeddings.OllamaHost != "" {
		c.Embeddings.OllamaHost = other.Embeddings.OllamaHost
	}
	if other.Embeddings.OllamaTimeout != 0 {
		c.Embeddings.OllamaTimeout = other.Embeddings.OllamaTimeout
	}
	if other.Embeddings.CacheDisabled {
		c.Embeddings.CacheDisabled = other.Embeddings.CacheDisabled
	}

	// Store
	if other.Store.Backend != "" {
		c.Store.Backend = other.Store.Backend
	}
	if other.Store.Path != "" {
		c.Store.Path = other.Store.Path
	}
	if other.Store.EnableHNSW {
		c.Store.EnableHNSW = other.Store.EnableHNSW
	}
	if other.Store.Metric != "" {
		c.Store.Metric = other.Store.Metric
	}

	// Performance
	if other.Performance.MaxFiles != 0 {
		c.Performance.MaxFiles = other.Performance.MaxFiles
	}
	if other.Performance.IndexWorkers != 0 {
		c.Performance.IndexWorkers = other.Performance.IndexWorkers
	}

	// Server
	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.Port != 0 {
		c.Server.Port = other.Server.Port
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}

	// Cache
	if other.Cache.Root != "" {
		c.Cache.Root = other.Cache.Root
	}
	if other.Cache.Size != 0 {
		c.Cache.Size = other.Cache.Size
	}
}

// applyEnvOverrides applies VEYRA_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("VEYRA_KEYWORD_WEIGHT"); v != "" {
		if w, err := parseFloat64(v); err == nil && w >= 0 && w <= 1 {
			c.Search.KeywordWeight = w
		}
	}
	if v := os.Getenv("VEYRA_RERANK_BOOST"); v != "" {
		if w, err := parseFloat64(v); err == nil && w >= 0 {
			c.Search.RerankBoostFactor = w
		}
	}
	if v := os.Getenv("VEYRA_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.MaxResults = n
		}
	}

	if v := os.Getenv("VEYRA_EMBEDDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("VEYRA_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("VEYRA_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}
	if v := os.Getenv("VEYRA_OLLAMA_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Embeddings.OllamaTimeout = d
		}
	}
	if v := os.Getenv("VEYRA_EMBED_CACHE"); v != "" {
		lower := strings.ToLower(v)
		c.Embeddings.CacheDisabled = lower == "false" || lower == "0" || lower == "off" || lower == "disabled"
	}

	if v := os.Getenv("VEYRA_STORE_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv("VEYRA_STORE_PATH"); v != "" {
		c.Store.Path = v
	}

	if v := os.Getenv("VEYRA_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("VEYRA_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}

	if v := os.Getenv("VEYRA_CACHE_ROOT"); v != "" {
		c.Cache.Root = v
	}
}

// parseFloat64 parses a string to float64, used for config parsing.
func parseFloat64(s string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(strings.TrimSpace(s), "%f", &f)
	return f, err
}

// DetectProjectType detects the project type based on marker files.
// Priority: go.mod > package.json > pyproject.toml/requirements.txt
func DetectProjectType(dir string) ProjectType {
	if fileExists(filepath.Join(dir, "go.mod")) {
		return ProjectTypeGo
	}

	if fileExists(filepath.Join(dir, "package.json")) {
		return ProjectTypeNode
	}

	if fileExists(filepath.Join(dir, "pyproject.toml")) ||
		fileExists(filepath.Join(dir, "requirements.txt")) {
		return ProjectTypePython
	}

	return ProjectTypeUnknown
}

// FindProjectRoot finds the project root directory.
// It looks for .git directory or .veyra.yaml/.yml file by walking up the
// directory tree.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	currentDir := absDir
	for {
		if dirExists(filepath.Join(currentDir, ".git")) {
			return currentDir, nil
		}

		if fileExists(filepath.Join(currentDir, ".veyra.yaml")) ||
			fileExists(filepath.Join(currentDir, ".veyra.yml")) {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root, return original directory
			return absDir, nil
		}
		currentDir = parentDir
	}
}

// DiscoverSourceDirs discovers common source directories in the project.
func DiscoverSourceDirs(dir string) []string {
	commonSourceDirs := []string{"src", "lib", "pkg", "internal", "cmd"}
	frameworkDirs := []string{"app", "pages"} // Next.js, etc.

	var found []string

	for _, d := range commonSourceDirs {
		if dirExists(filepath.Join(dir, d)) {
			found = append(found, d)
		}
	}

	if isNextJS(dir) {
		for _, d := range frameworkDirs {
			if dirExists(filepath.Join(dir, d)) {
				found = append(found, d)
			}
		}
	}

	return found
}

// DiscoverDocsDirs discovers documentation directories in the project.
func DiscoverDocsDirs(dir string) []string {
	commonDocDirs := []string{"docs", "doc"}
	commonDocFiles := []string{"README.md", "readme.md", "README.markdown"}

	var found []string

	for _, d := range commonDocDirs {
		if dirExists(filepath.Join(dir, d)) {
			found = append(found, d)
		}
	}

	for _, f := range commonDocFiles {
		if fileExists(filepath.Join(dir, f)) {
			found = append(found, f)
			break // Only add one README
		}
	}

	return found
}

// isNextJS checks if the project is a Next.js project.
func isNextJS(dir string) bool {
	pkgPath := filepath.Join(dir, "package.json")
	if !fileExists(pkgPath) {
		return false
	}

	data, err := os.ReadFile(pkgPath)
	if err != nil {
		return false
	}

	var pkg struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return false
	}

	_, hasNext := pkg.Dependencies["next"]
	_, hasNextDev := pkg.DevDependencies["next"]
	return hasNext || hasNextDev
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// dirExists checks if a directory exists.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// String returns a string representation of ProjectType.
func (p ProjectType) String() string {
	return string(p)
}

// IsKnown returns true if the project type is known (not unknown).
func (p ProjectType) IsKnown() bool {
	return p != ProjectTypeUnknown
}

var validStoreBackends = map[string]bool{
	"sqlitevec": true, "sqlitepure": true, "columnar": true, "memstore": true,
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Search.KeywordWeight < 0 || c.Search.KeywordWeight > 1 {
		return fmt.Errorf("search.keyword_weight must be between 0 and 1, got %f", c.Search.KeywordWeight)
	}
	if c.Search.RerankBoostFactor < 0 {
		return fmt.Errorf("search.rerank_boost_factor must be non-negative, got %f", c.Search.RerankBoostFactor)
	}
	if c.Search.MaxResults < 0 {
		return fmt.Errorf("search.max_results must be non-negative, got %d", c.Search.MaxResults)
	}
	if c.Search.ChunkSize < 0 {
		return fmt.Errorf("search.chunk_size must be non-negative, got %d", c.Search.ChunkSize)
	}

	if c.Embeddings.Provider != "" {
		validProviders := map[string]bool{"ollama": true, "static": true}
		if !validProviders[strings.ToLower(c.Embeddings.Provider)] {
			return fmt.Errorf("embeddings.provider must be 'ollama', 'static', or empty, got %s", c.Embeddings.Provider)
		}
	}

	if c.Store.Backend != "" && !validStoreBackends[strings.ToLower(c.Store.Backend)] {
		return fmt.Errorf("store.backend must be one of sqlitevec, sqlitepure, columnar, memstore, got %s", c.Store.Backend)
	}
	if c.Store.EnableHNSW {
		validMetrics := map[string]bool{"l2sq": true, "ip": true, "cosine": true}
		if !validMetrics[strings.ToLower(c.Store.Metric)] {
			return fmt.Errorf("store.metric must be 'l2sq', 'ip', or 'cosine' when enable_hnsw is set, got %s", c.Store.Metric)
		}
	}

	validTransports := map[string]bool{"stdio": true, "sse": true}
	if !validTransports[strings.ToLower(c.Server.Transport)] {
		return fmt.Errorf("server.transport must be 'stdio' or 'sse', got %s", c.Server.Transport)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadUserConfig loads the user configuration file.
// Returns nil config and nil error if the file doesn't exist.
func LoadUserConfig() (*Config, error) {
	return loadUserConfig()
}

// MergeNewDefaults adds new default fields while preserving existing values.
// Returns a list of field names that were added with their default values.
func (c *Config) MergeNewDefaults() []string {
	defaults := NewConfig()
	var added []string

	if c.Search.KeywordWeight == 0 {
		c.Search.KeywordWeight = defaults.Search.KeywordWeight
		added = append(added, "search.keyword_weight")
	}
	if c.Search.RerankBoostFactor == 0 {
		c.Search.RerankBoostFactor = defaults.Search.RerankBoostFactor
		added = append(added, "search.rerank_boost_factor")
	}

	if c.Store.Backend == "" {
		c.Store.Backend = defaults.Store.Backend
		added = append(added, "store.backend")
	}
	if c.Store.Path == "" {
		c.Store.Path = defaults.Store.Path
		added = append(added, "store.path")
	}

	if c.Cache.Root == "" {
		c.Cache.Root = defaults.Cache.Root
		added = append(added, "cache.root")
	}
	if c.Cache.Size == 0 {
		c.Cache.Size = defaults.Cache.Size
		added = append(added, "cache.size")
	}

	return added
}
