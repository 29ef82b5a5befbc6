package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bastiangx/symbolserve/pkg/completion"
	"github.com/bastiangx/symbolserve/pkg/selector"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func TestDefaultConfigResolves(t *testing.T) {
	cfg, err := DefaultConfig().Resolve()
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	want := []struct {
		name     string
		priority int
	}{
		{"class", 4},
		{"function", 3},
		{"variable", 2},
		{"", 1},
	}
	if len(cfg.Types) != len(want) {
		t.Fatalf("len(Types) = %d, want %d", len(cfg.Types), len(want))
	}
	for i, w := range want {
		if cfg.Types[i].Name != w.name || cfg.Types[i].TypePriority != w.priority {
			t.Errorf("Types[%d] = %q/%d, want %q/%d", i, cfg.Types[i].Name, cfg.Types[i].TypePriority, w.name, w.priority)
		}
	}

	chain := selector.SplitChain(".source.js .meta.class .entity.name.class.js")
	if !cfg.Types[0].Selector.Matches(chain) {
		t.Errorf("class selector does not match %v", chain)
	}
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, `
builtin = ["print", "len"]

[server]
max_limit = 10
engine = "subsequence"

[matching]
strict = true
min_word_length = 2

[[types]]
name = "keyword"
selector = ".keyword"
priority = 5
suggestions = ["return"]

[[types.snippets]]
body = "if ${1:cond} {\n}"
display = "if block"

[[types]]
name = "function"
selector = ".function.name"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Server.MaxLimit != 10 || cfg.Server.Engine != EngineSubsequence {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Server.MinPrefix != 1 {
		t.Errorf("MinPrefix = %d, want default 1", cfg.Server.MinPrefix)
	}
	if !cfg.Flags().StrictMatching || !cfg.Flags().AlternateScoring {
		t.Errorf("Flags() = %+v, want strict with alternate scoring", cfg.Flags())
	}
	if cfg.Matching.MinWordLength != 2 {
		t.Errorf("MinWordLength = %d, want 2", cfg.Matching.MinWordLength)
	}
	if len(cfg.Types) != 2 {
		t.Fatalf("len(Types) = %d, want 2 (file types replace defaults)", len(cfg.Types))
	}

	resolved, err := cfg.Resolve()
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(resolved.Types) != 3 {
		t.Fatalf("len(resolved.Types) = %d, want 3", len(resolved.Types))
	}
	kw := resolved.Types[0]
	if len(kw.Suggestions) != 2 || kw.Suggestions[1].Kind != completion.KindSnippet || kw.Suggestions[1].Label() != "if block" {
		t.Errorf("keyword suggestions = %+v", kw.Suggestions)
	}
	if resolved.Types[1].TypePriority != completion.DefaultTypePriority {
		t.Errorf("unset priority = %d, want %d", resolved.Types[1].TypePriority, completion.DefaultTypePriority)
	}
	builtin := resolved.Types[2]
	if builtin.Name != BuiltinTypeName || builtin.Selector != nil || len(builtin.Suggestions) != 2 {
		t.Errorf("builtin type = %+v", builtin)
	}
}

func TestLoadTOMLWithoutTypesKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[server]\nmax_limit = 5\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if len(cfg.Types) != len(DefaultTypes()) {
		t.Errorf("len(Types) = %d, want %d", len(cfg.Types), len(DefaultTypes()))
	}
}

func TestPartialRecovery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, `
[server]
max_limit = "lots"
min_prefix = 2

[matching]
locality_bonus = false

[[types]]
name = "function"
selector = ".function.name"
priority = 3
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Server.MaxLimit != DefaultConfig().Server.MaxLimit {
		t.Errorf("MaxLimit = %d, want default", cfg.Server.MaxLimit)
	}
	if cfg.Server.MinPrefix != 2 {
		t.Errorf("MinPrefix = %d, want 2", cfg.Server.MinPrefix)
	}
	if cfg.Matching.LocalityBonus {
		t.Errorf("LocalityBonus = true, want false")
	}
	if len(cfg.Types) != 1 || cfg.Types[0].Name != "function" || cfg.Types[0].Priority != 3 {
		t.Errorf("Types = %+v", cfg.Types)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, `
server:
  max_prefix: 30
matching:
  extended_unicode: true
types:
  - name: variable
    selector: .variable
    priority: 2
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Server.MaxPrefix != 30 || !cfg.Matching.ExtendedUnicode {
		t.Errorf("config = %+v", cfg)
	}
	if len(cfg.Types) != 1 || cfg.Types[0].Selector != ".variable" {
		t.Errorf("Types = %+v", cfg.Types)
	}
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name  string
		entry TypeEntry
	}{
		{"bad selector", TypeEntry{Name: "x", Selector: ".a,,"}},
		{"nothing to match", TypeEntry{Name: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Types = []TypeEntry{tt.entry}
			if _, err := cfg.Resolve(); err == nil {
				t.Errorf("Resolve() error = nil, want an error")
			}
		})
	}

	cfg := &Config{Types: []TypeEntry{{Name: "x"}}}
	if _, err := cfg.Resolve(); !errors.Is(err, ErrInvalidType) {
		t.Errorf("Resolve() error = %v, want ErrInvalidType", err)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.MaxLimit = 0
	cfg.Server.MinPrefix = 0
	cfg.Server.MaxPrefix = -1
	cfg.Server.Engine = "telepathy"
	cfg.Validate()

	def := DefaultConfig()
	if cfg.Server.MaxLimit != def.Server.MaxLimit {
		t.Errorf("MaxLimit = %d, want %d", cfg.Server.MaxLimit, def.Server.MaxLimit)
	}
	if cfg.Server.MinPrefix != 1 || cfg.Server.MaxPrefix != def.Server.MaxPrefix {
		t.Errorf("prefix bounds = %d..%d", cfg.Server.MinPrefix, cfg.Server.MaxPrefix)
	}
	if cfg.Server.Engine != EngineSymbols {
		t.Errorf("Engine = %q, want %q", cfg.Server.Engine, EngineSymbols)
	}
}

func TestInitConfigCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg, err := InitConfig(path)
	if err != nil {
		t.Fatalf("InitConfig() error = %v", err)
	}
	if cfg.Server.Engine != EngineSymbols {
		t.Errorf("Engine = %q, want default", cfg.Server.Engine)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if len(loaded.Types) != len(DefaultTypes()) {
		t.Errorf("round-tripped types = %+v", loaded.Types)
	}
	if loaded.Types[3].Name != "" || loaded.Types[3].Selector != ".source" {
		t.Errorf("unnamed source type lost: %+v", loaded.Types[3])
	}
}

func TestWatcherReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := SaveConfig(DefaultConfig(), path); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	w, err := NewWatcher(path, cfg)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	if w.Flags().StrictMatching {
		t.Fatalf("StrictMatching = true before reload")
	}

	writeFile(t, path, "[matching]\nstrict = true\n")
	if err := w.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if !w.Flags().StrictMatching {
		t.Errorf("StrictMatching = false after reload")
	}

	writeFile(t, path, "[[types]]\nname = \"x\"\nselector = \".a,,\"\n")
	if err := w.Reload(); err == nil {
		t.Errorf("Reload() of invalid selector error = nil")
	}
	if !w.Flags().StrictMatching || len(w.Types().Types) != len(DefaultTypes()) {
		t.Errorf("invalid reload replaced the active config")
	}
}

func TestWatcherPicksUpFileChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := SaveConfig(DefaultConfig(), path); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}
	w, err := NewWatcher(path, DefaultConfig())
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	reloaded := make(chan *Config, 4)
	w.OnReload(func(c *Config) { reloaded <- c })

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Close()

	writeFile(t, path, "[server]\nmax_limit = 7\n")
	select {
	case c := <-reloaded:
		if c.Server.MaxLimit != 7 {
			t.Errorf("MaxLimit = %d, want 7", c.Server.MaxLimit)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no reload after writing %s", path)
	}
}
