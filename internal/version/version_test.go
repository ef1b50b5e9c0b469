package version

import (
	"strings"
	"testing"
)

func setBuild(t *testing.T, version, dirty string) {
	t.Helper()
	oldVersion, oldDirty := Version, Dirty
	Version, Dirty = version, dirty
	t.Cleanup(func() { Version, Dirty = oldVersion, oldDirty })
}

func TestString(t *testing.T) {
	tests := []struct {
		version, dirty, want string
	}{
		{"1.2.3", "false", "1.2.3"},
		{"1.2.3", "true", "1.2.3-dirty"},
		{"dev", "", "dev"},
	}

	for _, tt := range tests {
		setBuild(t, tt.version, tt.dirty)
		if got := String(); got != tt.want {
			t.Errorf("String() with Version=%q Dirty=%q = %q, want %q", tt.version, tt.dirty, got, tt.want)
		}
	}
}

func TestGet(t *testing.T) {
	setBuild(t, "0.4.0", "true")

	info := Get()
	if info.Version != "0.4.0" || !info.Dirty {
		t.Errorf("Get() = %+v", info)
	}
	if info.GoVersion == "" || !strings.Contains(info.Platform, "/") {
		t.Errorf("runtime fields not set: %+v", info)
	}
}

func TestFull(t *testing.T) {
	setBuild(t, "0.4.0", "false")

	out := Full()
	if !strings.HasPrefix(out, "siteatlas 0.4.0\n") {
		t.Errorf("Full() = %q", out)
	}
	if strings.Contains(out, "Dirty") {
		t.Error("clean builds should not report Dirty")
	}
}
