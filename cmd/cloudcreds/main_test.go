package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/reflector/internal/gcloud"
)

type recordingRunner struct {
	calls [][]string
}

type yes struct{}

func (r *recordingRunner) Run(
	_ context.Context, name string, args ...string,
) error {
	r.calls = append(r.calls, append([]string{name}, args...))
	return nil
}

func (yes) Confirm(string, bool) (bool, error) {
	return true, nil
}

func TestCommands(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
		wantErr  bool
	}{
		{
			name:     "login",
			args:     []string{"login"},
			expected: []string{"gcloud", "auth", "login"},
		},
		{
			name: "use_app_default_creds",
			args: []string{"use-app-default-creds", "--project", "demo"},
			expected: []string{
				"gcloud", "auth", "application-default", "login",
				"--project=demo",
			},
		},
		{
			name:    "missing_project",
			args:    []string{"use-app-default-creds"},
			wantErr: true,
		},
		{
			name:    "unexpected_args",
			args:    []string{"login", "extra"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &recordingRunner{}
			var out bytes.Buffer
			cmd := newRootCmd(gcloud.NewTools(r, yes{}, &out, &out))
			cmd.SetArgs(tt.args)
			cmd.SetOut(&out)
			cmd.SetErr(&out)

			err := cmd.ExecuteContext(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
				assert.Empty(t, r.calls)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, [][]string{tt.expected}, r.calls)
		})
	}
}
