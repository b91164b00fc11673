package artifact

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestDetermineLocation(t *testing.T) {
	log := zerolog.Nop()

	tests := []struct {
		name         string
		cfg          LocationConfig
		includeToken bool
		want         string
	}{
		{
			name: "defaults to production",
			cfg:  LocationConfig{Client: "someClientId"},
			want: "https://assets.decisioning.io/someClientId/production/v1/rules.json",
		},
		{
			name: "cdn host can be overridden",
			cfg:  LocationConfig{Client: "someClientId", CDNEnvironment: "staging"},
			want: "https://assets.staging.decisioning.io/someClientId/production/v1/rules.json",
		},
		{
			name: "any valid environment name",
			cfg:  LocationConfig{Client: "someClientId", Environment: "staging"},
			want: "https://assets.decisioning.io/someClientId/staging/v1/rules.json",
		},
		{
			name: "invalid environment falls back to production",
			cfg:  LocationConfig{Client: "someClientId", Environment: "boohoo"},
			want: "https://assets.decisioning.io/someClientId/production/v1/rules.json",
		},
		{
			name: "property token not added by default",
			cfg:  LocationConfig{Client: "someClientId", PropertyToken: "xyz-123-abc"},
			want: "https://assets.decisioning.io/someClientId/production/v1/rules.json",
		},
		{
			name:         "property token added when forced",
			cfg:          LocationConfig{Client: "someClientId", PropertyToken: "xyz-123-abc"},
			includeToken: true,
			want:         "https://assets.decisioning.io/someClientId/production/v1/xyz-123-abc/rules.json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetermineLocation(log, tt.cfg, tt.includeToken))
		})
	}
}

func TestValidEnvironmentWarns(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	got := ValidEnvironment(log, "boohoo")

	assert.Equal(t, EnvironmentProduction, got)
	assert.Contains(t, buf.String(), "boohoo")
	assert.Contains(t, buf.String(), "invalid environment")
}
