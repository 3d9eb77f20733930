package buildinfo

import (
	"runtime"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()
	if info.Version != Version {
		t.Errorf("Version = %q, want %q", info.Version, Version)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", info.GoVersion, runtime.Version())
	}
	if info.Platform != runtime.GOOS+"/"+runtime.GOARCH {
		t.Errorf("Platform = %q", info.Platform)
	}
}

func TestString(t *testing.T) {
	old := Version
	Version = "v1.2.3"
	t.Cleanup(func() { Version = old })

	if s := String(); !strings.HasPrefix(s, "v1.2.3 (commit: ") {
		t.Errorf("String() = %q", s)
	}
	if ua := UserAgent(); ua != "meshboot/v1.2.3" {
		t.Errorf("UserAgent() = %q, want %q", ua, "meshboot/v1.2.3")
	}
}
