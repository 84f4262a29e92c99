package buildinfo

import (
	"runtime/debug"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestString(t *testing.T) {
	defer func(v, c, d string) { Version, Commit, Date = v, c, d }(Version, Commit, Date)
	Version, Commit, Date = "v0.3.0", "abc123", "2026-01-02T03:04:05Z"

	want := "version: v0.3.0\ncommit: abc123\nbuilt: 2026-01-02T03:04:05Z"
	if got := String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got := Template(); !strings.HasPrefix(got, "{{.Name}} version v0.3.0\n") {
		t.Errorf("Template() = %q", got)
	}
}

func TestResolve(t *testing.T) {
	bi := &debug.BuildInfo{
		Main: debug.Module{Path: "github.com/matzehuels/debsrc", Version: "v0.4.1"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "deadbeef"},
			{Key: "vcs.time", Value: "2026-03-01T00:00:00Z"},
		},
	}

	tests := []struct {
		name string
		in   Info
		bi   *debug.BuildInfo
		want Info
	}{
		{
			name: "defaults filled from build info",
			in:   Info{Version: "dev", Commit: "none", Date: "unknown"},
			bi:   bi,
			want: Info{Version: "v0.4.1", Commit: "deadbeef", Date: "2026-03-01T00:00:00Z"},
		},
		{
			name: "ldflags win",
			in:   Info{Version: "v1.0.0", Commit: "abc", Date: "today"},
			bi:   bi,
			want: Info{Version: "v1.0.0", Commit: "abc", Date: "today"},
		},
		{
			name: "devel build keeps dev",
			in:   Info{Version: "dev", Commit: "none", Date: "unknown"},
			bi:   &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}},
			want: Info{Version: "dev", Commit: "none", Date: "unknown"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, resolve(tt.in, tt.bi)); diff != "" {
				t.Errorf("resolve() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
