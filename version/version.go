package version

import (
	"fmt"
	"runtime/debug"
	"strings"
	"time"
)

// Name is the program name reported with the version.
const Name = "rxrewrite"

var (
	// These variables are set at build time using -ldflags
	Version   = "dev"
	GitCommit = ""
	GitBranch = ""
	BuildTime = ""
	GoVersion = ""
)

// Info describes the running build.
type Info struct {
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	GitCommit string    `json:"git_commit,omitempty"`
	GitBranch string    `json:"git_branch,omitempty"`
	BuildTime string    `json:"build_time"`
	GoVersion string    `json:"go_version"`
	BuildDate time.Time `json:"build_date"`
	IsRelease bool      `json:"is_release"`
	IsDirty   bool      `json:"is_dirty"`
}

// Get returns the build information.
func Get() *Info {
	info := &Info{
		Name:      Name,
		Version:   Version,
		GitCommit: GitCommit,
		GitBranch: GitBranch,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		IsRelease: Version != "dev" && !strings.Contains(Version, "dirty"),
	}

	if BuildTime != "" {
		if t, err := time.Parse(time.RFC3339, BuildTime); err == nil {
			info.BuildDate = t
		}
	}

	if buildInfo, ok := debug.ReadBuildInfo(); ok {
		if GoVersion == "" {
			info.GoVersion = buildInfo.GoVersion
		}
		for _, setting := range buildInfo.Settings {
			switch setting.Key {
			case "vcs.revision":
				if GitCommit == "" {
					info.GitCommit = setting.Value
					if len(info.GitCommit) > 7 {
						info.GitCommit = info.GitCommit[:7]
					}
				}
			case "vcs.modified":
				info.IsDirty = setting.Value == "true"
			case "vcs.time":
				if BuildTime == "" {
					if t, err := time.Parse(time.RFC3339, setting.Value); err == nil {
						info.BuildDate = t
						info.BuildTime = setting.Value
					}
				}
			}
		}
	}

	if info.BuildDate.IsZero() {
		info.BuildDate = time.Now().UTC()
		info.BuildTime = info.BuildDate.Format(time.RFC3339)
	}

	return info
}

// Short returns the version and commit, e.g. "1.0.0-abc1234".
func (i *Info) Short() string {
	if i.GitCommit != "" {
		if i.IsDirty {
			return fmt.Sprintf("%s-%s-dirty", i.Version, i.GitCommit)
		}
		return fmt.Sprintf("%s-%s", i.Version, i.GitCommit)
	}
	return i.Version
}

// String returns a detailed version line, e.g.
// "rxrewrite 1.0.0-abc1234 (built 2024-01-15T10:30:00Z, go1.22)".
func (i *Info) String() string {
	parts := []string{i.Version}
	if i.GitCommit != "" {
		parts = append(parts, i.GitCommit)
	}
	if i.GitBranch != "" && i.GitBranch != "main" && i.GitBranch != "master" {
		parts = append(parts, i.GitBranch)
	}
	if i.IsDirty {
		parts = append(parts, "dirty")
	}
	s := i.Name + " " + strings.Join(parts, "-")
	if !i.BuildDate.IsZero() {
		s += fmt.Sprintf(" (built %s, %s)", i.BuildDate.UTC().Format("2006-01-02T15:04:05Z"), i.GoVersion)
	}
	return s
}

// UserAgent identifies the build in HTTP headers, e.g. "rxrewrite/1.0.0".
func (i *Info) UserAgent() string {
	return i.Name + "/" + i.Short()
}

// Short returns the short version of the running build.
func Short() string { return Get().Short() }
