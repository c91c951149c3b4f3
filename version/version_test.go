package version

import (
	"strings"
	"testing"
)

func saveAndRestore() func() {
	origVersion, origCommit, origBranch, origBuildTime, origGoVersion :=
		Version, GitCommit, GitBranch, BuildTime, GoVersion
	return func() {
		Version = origVersion
		GitCommit = origCommit
		GitBranch = origBranch
		BuildTime = origBuildTime
		GoVersion = origGoVersion
	}
}

func set(version, commit, branch, buildTime, goVersion string) {
	Version, GitCommit, GitBranch, BuildTime, GoVersion = version, commit, branch, buildTime, goVersion
}

func TestGetDefaults(t *testing.T) {
	defer saveAndRestore()()
	set("dev", "", "", "", "")

	info := Get()
	if info.Name != Name || info.Version != "dev" {
		t.Errorf("info = %+v", info)
	}
	if info.IsRelease {
		t.Error("dev should not be a release")
	}
	if info.BuildDate.IsZero() || info.BuildTime == "" {
		t.Error("build date should default to now")
	}
}

func TestGetWithLinkedValues(t *testing.T) {
	defer saveAndRestore()()
	set("1.0.0", "abc1234", "main", "2024-01-15T10:30:00Z", "go1.22.0")

	info := Get()
	if !info.IsRelease || info.GitCommit != "abc1234" || info.GoVersion != "go1.22.0" {
		t.Errorf("info = %+v", info)
	}
	if info.BuildDate.Year() != 2024 {
		t.Errorf("expected build year 2024, got %d", info.BuildDate.Year())
	}
}

func TestDirtyVersionIsNotARelease(t *testing.T) {
	defer saveAndRestore()()
	Version = "1.0.0-dirty"

	if Get().IsRelease {
		t.Error("dirty version should not be a release")
	}
}

func TestShort(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want string
	}{
		{"no commit", Info{Version: "dev"}, "dev"},
		{"commit", Info{Version: "1.0.0", GitCommit: "abc1234"}, "1.0.0-abc1234"},
		{"dirty", Info{Version: "1.0.0", GitCommit: "abc1234", IsDirty: true}, "1.0.0-abc1234-dirty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.Short(); got != tt.want {
				t.Errorf("Short() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestString(t *testing.T) {
	defer saveAndRestore()()
	set("1.0.0", "abc1234", "main", "2024-01-15T10:30:00Z", "go1.22")

	s := Get().String()
	if !strings.HasPrefix(s, "rxrewrite 1.0.0-abc1234") {
		t.Errorf("String() = %q", s)
	}
	if strings.Contains(s, "main") {
		t.Errorf("main branch should not appear, got %q", s)
	}
	if !strings.Contains(s, "(built 2024-01-15T10:30:00Z, go1.22)") {
		t.Errorf("String() = %q", s)
	}

	set("1.0.0", "abc1234", "feature/new-thing", "2024-01-15T10:30:00Z", "go1.22")
	if s := Get().String(); !strings.Contains(s, "feature/new-thing") {
		t.Errorf("expected feature branch in %q", s)
	}
}

func TestUserAgent(t *testing.T) {
	info := Info{Name: Name, Version: "2.0.0"}
	if got := info.UserAgent(); got != "rxrewrite/2.0.0" {
		t.Errorf("UserAgent() = %q", got)
	}
}
