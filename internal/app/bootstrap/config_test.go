package bootstrap

import (
	"testing"

	"go.uber.org/zap"
)

func validAppConfig() AppConfig {
	return AppConfig{
		MongoURI:      "mongodb://localhost:27017",
		MongoDatabase: "green_crew",
	}
}

func TestValidateConfig(t *testing.T) {
	logger := zap.NewNop()

	cases := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr bool
	}{
		{"valid", func(c *AppConfig) {}, false},
		{"bad mongo uri", func(c *AppConfig) { c.MongoURI = "not-a-uri" }, true},
		{"empty database", func(c *AppConfig) { c.MongoDatabase = "" }, true},
		{"google id without secret", func(c *AppConfig) { c.GoogleClientID = "id" }, true},
		{"google secret without id", func(c *AppConfig) { c.GoogleClientSecret = "secret" }, true},
		{"google fully configured", func(c *AppConfig) {
			c.GoogleClientID = "id"
			c.GoogleClientSecret = "secret"
		}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validAppConfig()
			tc.mutate(&cfg)
			err := ValidateConfig(nil, cfg, logger)
			if tc.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
