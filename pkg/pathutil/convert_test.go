package pathutil

import (
	"path/filepath"
	"testing"
)

func TestToRelative(t *testing.T) {
	root := filepath.FromSlash("/home/user/project")

	tests := []struct {
		name string
		path string
		want string
	}{
		{
			name: "inside root",
			path: filepath.FromSlash("/home/user/project/rules/perf.md"),
			want: filepath.FromSlash("rules/perf.md"),
		},
		{
			name: "root itself",
			path: filepath.FromSlash("/home/user/project"),
			want: ".",
		},
		{
			name: "outside root stays absolute",
			path: filepath.FromSlash("/etc/rules/perf.md"),
			want: filepath.FromSlash("/etc/rules/perf.md"),
		},
		{
			name: "already relative",
			path: filepath.FromSlash("rules/perf.md"),
			want: filepath.FromSlash("rules/perf.md"),
		},
		{
			name: "redundant elements cleaned",
			path: filepath.FromSlash("/home/user/project/./rules/../rules/perf.md"),
			want: filepath.FromSlash("rules/perf.md"),
		},
		{
			name: "empty path",
			path: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToRelative(tt.path, root); got != tt.want {
				t.Errorf("ToRelative(%q, %q) = %q, want %q", tt.path, root, got, tt.want)
			}
		})
	}
}

func TestToRelativeEmptyRoot(t *testing.T) {
	p := filepath.FromSlash("/home/user/project/rules/perf.md")
	if got := ToRelative(p, ""); got != p {
		t.Errorf("ToRelative with empty root = %q, want the path unchanged", got)
	}
}
