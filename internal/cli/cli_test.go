package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/restomaps/internal/model"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func TestAnalyzeInput(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		stdin string
		want  string
	}{
		{"args joined", []string{"Очень", "вкусно"}, "", "Очень вкусно"},
		{"stdin when no args", nil, "  Уютно и тихо\n", "Уютно и тихо"},
		{"dash reads stdin", []string{"-"}, "Дорого", "Дорого"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := analyzeInput(strings.NewReader(tt.stdin), tt.args)
			if err != nil {
				t.Fatalf("analyzeInput failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAnalyzeCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"analyze", "--english", "--explain", "--rating", "4", "Очень вкусно, рекомендую"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		analyzeEnglish, analyzeExplain, analyzeRating = false, false, 0
	})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	for _, key := range []string{"processed_verdict", "processed_tags", "sentiment_score", "verdict_en", "tags_by_category", "explain"} {
		if _, ok := got[key]; !ok {
			t.Errorf("missing key %q in %s", key, out.String())
		}
	}
	if got["user_rating"] != float64(4) {
		t.Errorf("user_rating = %v, want 4", got["user_rating"])
	}
	byCategory, _ := got["tags_by_category"].(map[string]any)
	if food, _ := byCategory["food"].([]any); len(food) == 0 || food[0] != "Вкусная еда" {
		t.Errorf("tags_by_category = %v, want the tasty food tag under food", got["tags_by_category"])
	}
}

func TestAnalyzeCommand_BadRating(t *testing.T) {
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"analyze", "--rating", "9", "вкусно"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		analyzeRating = 0
	})

	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected error for out-of-range rating")
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	if err := writeDefaultConfig(path); err != nil {
		t.Fatalf("writeDefaultConfig failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	var cfg model.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("written config is not valid YAML: %v", err)
	}
	if cfg.Annotate.BatchSize != model.DefaultConfig().Annotate.BatchSize {
		t.Errorf("batch size = %d, want default", cfg.Annotate.BatchSize)
	}

	if err := writeDefaultConfig(path); err == nil {
		t.Error("expected error when config already exists")
	}
}

func TestLoadConfig_Layering(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	if err := setDefaults(model.DefaultConfig()); err != nil {
		t.Fatalf("setDefaults failed: %v", err)
	}
	viper.SetConfigType("yaml")
	err := viper.ReadConfig(strings.NewReader("annotate:\n  batch_size: 25\ncache:\n  ttl: 1h\n"))
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	viper.SetEnvPrefix("RESTOMAPS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	t.Setenv("RESTOMAPS_CONCURRENCY_WORKERS", "3")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Annotate.BatchSize != 25 {
		t.Errorf("batch size = %d, want 25 from file", cfg.Annotate.BatchSize)
	}
	if cfg.Cache.TTL.Hours() != 1 {
		t.Errorf("cache ttl = %v, want 1h", cfg.Cache.TTL)
	}
	if cfg.Concurrency.Workers != 3 {
		t.Errorf("workers = %d, want 3 from env", cfg.Concurrency.Workers)
	}
	if cfg.HTTP.UserAgent != model.DefaultConfig().HTTP.UserAgent {
		t.Errorf("user agent = %q, want default", cfg.HTTP.UserAgent)
	}
}
