package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()

	Version = "1.2.3"
	if s := String(); !strings.Contains(s, "1.2.3") {
		t.Errorf("String() = %q, want version included", s)
	}
	if info := Current(); info.Version != "1.2.3" {
		t.Errorf("Current().Version = %q", info.Version)
	}
}
