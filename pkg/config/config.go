/*
Package config manages the TOML (or YAML) configuration for symbolserve.

The file has three parts: [server] limits for the host protocol, [matching]
switches for the ranking engine, and an ordered [[types]] list that defines
symbol types. Order matters for types: on equal priority the earlier entry
wins.

	[[types]]
	name = "function"
	selector = ".function.name"
	priority = 3
*/
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/symbolserve/internal/utils"
	"github.com/bastiangx/symbolserve/pkg/completion"
	"github.com/bastiangx/symbolserve/pkg/rank"
	"github.com/bastiangx/symbolserve/pkg/selector"
)

// DefaultFileName is the config file created in the config dir.
const DefaultFileName = "config.toml"

// Engine names accepted by [server] engine.
const (
	EngineSymbols     = "symbols"
	EngineSubsequence = "subsequence"
	EngineWords       = "words"
)

// BuiltinTypeName names the type holding the [builtin] suggestions.
const BuiltinTypeName = "builtin"

// ErrInvalidType is returned by Resolve for a type entry that cannot be used.
var ErrInvalidType = errors.New("invalid type entry")

// Config holds the entire config structure
type Config struct {
	Server   ServerConfig   `toml:"server" yaml:"server"`
	Matching MatchingConfig `toml:"matching" yaml:"matching"`
	// Builtin lists words offered everywhere, without a selector.
	Builtin []string    `toml:"builtin,omitempty" yaml:"builtin,omitempty"`
	Types   []TypeEntry `toml:"types" yaml:"types"`
}

// ServerConfig has server related options.
type ServerConfig struct {
	MaxLimit     int    `toml:"max_limit" yaml:"max_limit"`
	MinPrefix    int    `toml:"min_prefix" yaml:"min_prefix"`
	MaxPrefix    int    `toml:"max_prefix" yaml:"max_prefix"`
	EnableFilter bool   `toml:"enable_filter" yaml:"enable_filter"`
	Engine       string `toml:"engine" yaml:"engine"`
	// IncludeAllBuffers searches every open buffer instead of only the
	// one holding the cursor.
	IncludeAllBuffers bool `toml:"include_all_buffers" yaml:"include_all_buffers"`
}

// MatchingConfig holds ranking and tokenizing options.
type MatchingConfig struct {
	StrictMatching      bool `toml:"strict" yaml:"strict"`
	AlternateScoring    bool `toml:"alternate_scoring" yaml:"alternate_scoring"`
	LocalityBonus       bool `toml:"locality_bonus" yaml:"locality_bonus"`
	MinWordLength       int  `toml:"min_word_length" yaml:"min_word_length"`
	ExtendedUnicode     bool `toml:"extended_unicode" yaml:"extended_unicode"`
	MaxSearchRowDelta   int  `toml:"max_search_row_delta" yaml:"max_search_row_delta"`
	MaxResultsPerBuffer int  `toml:"max_results_per_buffer" yaml:"max_results_per_buffer"`
}

// TypeEntry is one [[types]] table.
type TypeEntry struct {
	Name        string         `toml:"name" yaml:"name"`
	Selector    string         `toml:"selector" yaml:"selector"`
	Priority    int            `toml:"priority,omitempty" yaml:"priority,omitempty"`
	Suggestions []string       `toml:"suggestions,omitempty" yaml:"suggestions,omitempty"`
	Snippets    []SnippetEntry `toml:"snippets,omitempty" yaml:"snippets,omitempty"`
}

// SnippetEntry is a static snippet suggestion.
type SnippetEntry struct {
	Body        string `toml:"body" yaml:"body"`
	Display     string `toml:"display,omitempty" yaml:"display,omitempty"`
	Description string `toml:"description,omitempty" yaml:"description,omitempty"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			MaxLimit:     64,
			MinPrefix:    1,
			MaxPrefix:    60,
			EnableFilter: true,
			Engine:       EngineSymbols,
		},
		Matching: MatchingConfig{
			AlternateScoring:    true,
			LocalityBonus:       true,
			MinWordLength:       3,
			MaxSearchRowDelta:   3000,
			MaxResultsPerBuffer: 100,
		},
		Types: DefaultTypes(),
	}
}

// DefaultTypes returns the stock symbol types.
func DefaultTypes() []TypeEntry {
	return []TypeEntry{
		{Name: "class", Selector: ".class.name, .inherited-class, .instance.type", Priority: 4},
		{Name: "function", Selector: ".function.name", Priority: 3},
		{Name: "variable", Selector: ".variable", Priority: 2},
		{Name: "", Selector: ".source", Priority: 1},
	}
}

// Flags returns the ranking switches.
func (c *Config) Flags() rank.Flags {
	return rank.Flags{
		AlternateScoring: c.Matching.AlternateScoring,
		LocalityBonus:    c.Matching.LocalityBonus,
		StrictMatching:   c.Matching.StrictMatching,
	}
}

// Resolve parses every selector and builds the per-request type config.
// Builtin words become a selector-less type so they are only offered as
// static suggestions.
func (c *Config) Resolve() (completion.Config, error) {
	var out completion.Config
	for i, entry := range c.Types {
		tc, err := entry.resolve()
		if err != nil {
			return completion.Config{}, fmt.Errorf("types[%d] %q: %w", i, entry.Name, err)
		}
		out.Types = append(out.Types, tc)
	}
	if len(c.Builtin) > 0 {
		tc := completion.TypeConfig{Name: BuiltinTypeName, TypePriority: completion.DefaultTypePriority}
		for _, w := range c.Builtin {
			tc.Suggestions = append(tc.Suggestions, completion.Word(w))
		}
		out.Types = append(out.Types, tc)
	}
	return out, nil
}

func (e TypeEntry) resolve() (completion.TypeConfig, error) {
	tc := completion.TypeConfig{Name: e.Name, TypePriority: e.Priority}
	if tc.TypePriority == 0 {
		tc.TypePriority = completion.DefaultTypePriority
	}
	if strings.TrimSpace(e.Selector) != "" {
		sel, err := selector.Parse(e.Selector)
		if err != nil {
			return completion.TypeConfig{}, err
		}
		tc.Selector = sel
	} else if len(e.Suggestions) == 0 && len(e.Snippets) == 0 {
		return completion.TypeConfig{}, fmt.Errorf("%w: needs a selector or suggestions", ErrInvalidType)
	}
	for _, w := range e.Suggestions {
		tc.Suggestions = append(tc.Suggestions, completion.Word(w))
	}
	for _, s := range e.Snippets {
		if s.Body == "" {
			continue
		}
		snip := completion.Snippet(s.Body)
		snip.DisplayText = s.Display
		snip.Description = s.Description
		tc.Suggestions = append(tc.Suggestions, snip)
	}
	return tc, nil
}

// Validate clamps out of range values back to something usable.
func (c *Config) Validate() {
	def := DefaultConfig()
	if c.Server.MaxLimit <= 0 {
		log.Warnf("server.max_limit %d is not positive, using %d", c.Server.MaxLimit, def.Server.MaxLimit)
		c.Server.MaxLimit = def.Server.MaxLimit
	}
	if c.Server.MinPrefix < 1 {
		c.Server.MinPrefix = 1
	}
	if c.Server.MaxPrefix < c.Server.MinPrefix {
		log.Warnf("server.max_prefix %d is below min_prefix, using %d", c.Server.MaxPrefix, def.Server.MaxPrefix)
		c.Server.MaxPrefix = max(def.Server.MaxPrefix, c.Server.MinPrefix)
	}
	switch c.Server.Engine {
	case EngineSymbols, EngineSubsequence, EngineWords:
	default:
		log.Warnf("unknown server.engine %q, using %s", c.Server.Engine, EngineSymbols)
		c.Server.Engine = EngineSymbols
	}
	if c.Matching.MinWordLength < 0 {
		c.Matching.MinWordLength = 0
	}
	if c.Matching.MaxSearchRowDelta <= 0 {
		c.Matching.MaxSearchRowDelta = def.Matching.MaxSearchRowDelta
	}
	if c.Matching.MaxResultsPerBuffer <= 0 {
		c.Matching.MaxResultsPerBuffer = def.Matching.MaxResultsPerBuffer
	}
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	pr, err := utils.NewPathResolver()
	if err != nil {
		return "", err
	}
	return pr.GetConfigPath(DefaultFileName)
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. Default path: [UserConfigDir]/symbolserve/config.toml
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	if customConfigPath != "" {
		if utils.FileExists(customConfigPath) {
			config, err := LoadConfig(customConfigPath)
			if err != nil {
				log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
			} else {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
		} else {
			log.Warnf("Custom config file not found at %s. Trying default path...", customConfigPath)
		}
	}
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), "", nil
	}

	config, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath, nil
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		log.Warnf("Failed to load config from %s: %v. Using built-in defaults...", configPath, err)
		return DefaultConfig(), nil
	}
	return config, nil
}

// LoadConfig loads a TOML file, or YAML when the extension says so. When
// the typed decode fails, whatever sections still parse are kept.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()
	config.Types = nil

	var err error
	if isYAML(configPath) {
		err = utils.LoadYAMLFile(configPath, config)
	} else {
		err = utils.LoadTOMLFile(configPath, config)
	}
	if err != nil {
		return tryPartialParse(configPath)
	}
	if config.Types == nil {
		config.Types = DefaultTypes()
	}
	config.Validate()
	return config, nil
}

// tryPartialParse attempts to salvage valid sections from a broken file
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	var tempConfig map[string]any
	var err error
	if isYAML(configPath) {
		tempConfig, err = utils.ParseYAMLWithRecovery(configPath)
	} else {
		tempConfig, err = utils.ParseTOMLWithRecovery(configPath)
	}
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	if serverSection, ok := utils.ExtractSection(tempConfig, "server"); ok {
		extractServerConfig(serverSection, &config.Server)
	}
	if matchingSection, ok := utils.ExtractSection(tempConfig, "matching"); ok {
		extractMatchingConfig(matchingSection, &config.Matching)
	}
	if builtin, ok := utils.ExtractStrings(tempConfig, "builtin"); ok {
		config.Builtin = builtin
	}
	if tables, ok := utils.ExtractTables(tempConfig, "types"); ok {
		config.Types = extractTypes(tables)
	}
	config.Validate()
	return config, nil
}

// extractServerConfig extracts server configuration from a map
func extractServerConfig(data map[string]any, server *ServerConfig) {
	if val, ok := utils.ExtractInt64(data, "max_limit"); ok {
		server.MaxLimit = val
	}
	if val, ok := utils.ExtractInt64(data, "min_prefix"); ok {
		server.MinPrefix = val
	}
	if val, ok := utils.ExtractInt64(data, "max_prefix"); ok {
		server.MaxPrefix = val
	}
	if val, ok := utils.ExtractBool(data, "enable_filter"); ok {
		server.EnableFilter = val
	}
	if val, ok := utils.ExtractString(data, "engine"); ok {
		server.Engine = val
	}
	if val, ok := utils.ExtractBool(data, "include_all_buffers"); ok {
		server.IncludeAllBuffers = val
	}
}

// extractMatchingConfig extracts matching configuration from a map
func extractMatchingConfig(data map[string]any, m *MatchingConfig) {
	if val, ok := utils.ExtractBool(data, "strict"); ok {
		m.StrictMatching = val
	}
	if val, ok := utils.ExtractBool(data, "alternate_scoring"); ok {
		m.AlternateScoring = val
	}
	if val, ok := utils.ExtractBool(data, "locality_bonus"); ok {
		m.LocalityBonus = val
	}
	if val, ok := utils.ExtractInt64(data, "min_word_length"); ok {
		m.MinWordLength = val
	}
	if val, ok := utils.ExtractBool(data, "extended_unicode"); ok {
		m.ExtendedUnicode = val
	}
	if val, ok := utils.ExtractInt64(data, "max_search_row_delta"); ok {
		m.MaxSearchRowDelta = val
	}
	if val, ok := utils.ExtractInt64(data, "max_results_per_buffer"); ok {
		m.MaxResultsPerBuffer = val
	}
}

// extractTypes keeps every [[types]] table that has at least a name or a
// selector, in file order.
func extractTypes(tables []map[string]any) []TypeEntry {
	var out []TypeEntry
	for _, t := range tables {
		var entry TypeEntry
		name, hasName := utils.ExtractString(t, "name")
		sel, hasSel := utils.ExtractString(t, "selector")
		if !hasName && !hasSel {
			continue
		}
		entry.Name, entry.Selector = name, sel
		if val, ok := utils.ExtractInt64(t, "priority"); ok {
			entry.Priority = val
		}
		if val, ok := utils.ExtractStrings(t, "suggestions"); ok {
			entry.Suggestions = val
		}
		if snippets, ok := utils.ExtractTables(t, "snippets"); ok {
			for _, s := range snippets {
				body, _ := utils.ExtractString(s, "body")
				display, _ := utils.ExtractString(s, "display")
				desc, _ := utils.ExtractString(s, "description")
				entry.Snippets = append(entry.Snippets, SnippetEntry{Body: body, Display: display, Description: desc})
			}
		}
		out = append(out, entry)
	}
	return out
}

// RebuildConfigFile force creates a new config.toml at default
func RebuildConfigFile() error {
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		return err
	}
	if err := utils.EnsureDir(filepath.Dir(defaultPath)); err != nil {
		return err
	}
	return SaveConfig(DefaultConfig(), defaultPath)
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		if defaultPath, err := GetDefaultConfigPath(); err == nil {
			return defaultPath
		}
		return "unknown"
	}
	return utils.GetAbsolutePath(configPath)
}

// SaveConfig saves into a TOML or YAML file, by extension
func SaveConfig(config *Config, configPath string) error {
	if isYAML(configPath) {
		return utils.SaveYAMLFile(config, configPath)
	}
	return utils.SaveTOMLFile(config, configPath)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
