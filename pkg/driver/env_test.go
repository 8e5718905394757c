package driver

import (
	"path/filepath"
	"testing"

	"bc-cli/pkg/runtime"
)

func TestParseLineLength(t *testing.T) {
	cases := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"70", 70, false},
		{" 0 ", 0, false},
		{"-3", 0, true},
		{"wide", 0, true},
	}
	for _, tc := range cases {
		got, err := parseLineLength(tc.raw)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%q: expected error", tc.raw)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("%q: got %d, %v", tc.raw, got, err)
		}
	}
}

func TestEnvSettingsApply(t *testing.T) {
	n := 20
	got := EnvSettings{LineLength: &n}.Apply(runtime.DefaultConfig())
	if got.LineLength != 20 || got.Scale != 0 {
		t.Fatalf("unexpected config %+v", got)
	}
	if got := (EnvSettings{}).Apply(runtime.DefaultConfig()); got != runtime.DefaultConfig() {
		t.Fatalf("empty settings must not change config, got %+v", got)
	}
}

func TestResolveHome(t *testing.T) {
	dir := t.TempDir()
	home, err := EnvSettings{Home: dir}.ResolveHome()
	if err != nil || home != dir {
		t.Fatalf("ResolveHome = %q, %v; want %q", home, err, dir)
	}
	t.Setenv("HOME", dir)
	home, err = EnvSettings{}.ResolveHome()
	if err != nil {
		t.Fatalf("ResolveHome: %v", err)
	}
	if home != filepath.Join(dir, ".bc-cli") {
		t.Fatalf("ResolveHome = %q, want default under HOME", home)
	}
}
