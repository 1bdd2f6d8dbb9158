package version

import (
	"runtime/debug"
	"testing"
)

func buildInfo(version string, settings ...debug.BuildSetting) func() (*debug.BuildInfo, bool) {
	return func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Main: debug.Module{Version: version}, Settings: settings}, true
	}
}

func TestResolve(t *testing.T) {
	vcs := []debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef"},
		{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
	}

	tests := []struct {
		name                  string
		version, commit, date string
		read                  func() (*debug.BuildInfo, bool)
		want                  Info
	}{
		{
			name:    "ldflags win",
			version: "1.4.0", commit: "abc1234", date: "2026-05-01",
			read: buildInfo("v0.9.0", vcs...),
			want: Info{Version: "1.4.0", GitCommit: "abc1234", BuildDate: "2026-05-01"},
		},
		{
			name:    "build info fallback",
			version: "dev", commit: "unknown", date: "unknown",
			read: buildInfo("v0.9.0", vcs...),
			want: Info{Version: "v0.9.0", GitCommit: "0123456", BuildDate: "2026-01-02T03:04:05Z"},
		},
		{
			name:    "devel build",
			version: "dev", commit: "unknown", date: "unknown",
			read: buildInfo("(devel)"),
			want: Info{Version: "dev", GitCommit: "unknown", BuildDate: "unknown"},
		},
		{
			name:    "no build info",
			version: "dev", commit: "unknown", date: "unknown",
			read: func() (*debug.BuildInfo, bool) { return nil, false },
			want: Info{Version: "dev", GitCommit: "unknown", BuildDate: "unknown"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolve(tt.version, tt.commit, tt.date, tt.read)
			if got.Version != tt.want.Version || got.GitCommit != tt.want.GitCommit || got.BuildDate != tt.want.BuildDate {
				t.Errorf("resolve() = %+v, want %+v", got, tt.want)
			}
			if got.GoVersion == "" || got.Platform == "" {
				t.Errorf("missing runtime fields: %+v", got)
			}
		})
	}
}
