package reconcile

import (
	"os"
	"path/filepath"
	"testing"

	"editorcore/internal/domain"
	"editorcore/internal/providers/compute"
)

func TestMatchers(t *testing.T) {
	rules := DefaultRules()
	tests := []struct {
		name  string
		kind  domain.JobKind
		files []compute.File
		want  string
		ok    bool
	}{
		{
			name: "video prefers mp4 over gif",
			kind: domain.JobKindVideo,
			files: []compute.File{
				{Filename: "preview.gif", URL: "https://cdn/preview.gif"},
				{Filename: "final.mp4", URL: "https://cdn/final.mp4"},
			},
			want: "https://cdn/final.mp4", ok: true,
		},
		{
			name:  "video falls back to webm",
			kind:  domain.JobKindVideo,
			files: []compute.File{{Filename: "a.gif", URL: "https://cdn/a.gif"}, {Filename: "a.WEBM", URL: "https://cdn/a.webm"}},
			want:  "https://cdn/a.webm", ok: true,
		},
		{
			name:  "image takes extension from url",
			kind:  domain.JobKindImage,
			files: []compute.File{{URL: "https://cdn/x/out.jpg?sig=1"}, {URL: "https://cdn/x/out.txt"}},
			want:  "https://cdn/x/out.jpg?sig=1", ok: true,
		},
		{
			name: "segment prefers mask name",
			kind: domain.JobKindSegment,
			files: []compute.File{
				{Filename: "cutout_0.png", URL: "https://cdn/cutout_0.png"},
				{Filename: "mask_0.webp", URL: "https://cdn/mask_0.webp"},
				{Filename: "mask_0.png", URL: "https://cdn/mask_0.png"},
			},
			want: "https://cdn/mask_0.png", ok: true,
		},
		{
			name:  "segment without hints uses extension order",
			kind:  domain.JobKindSegment,
			files: []compute.File{{Filename: "out.webp", URL: "https://cdn/out.webp"}, {Filename: "out.png", URL: "https://cdn/out.png"}},
			want:  "https://cdn/out.png", ok: true,
		},
		{
			name:  "no candidates",
			kind:  domain.JobKindVideo,
			files: []compute.File{{Filename: "log.txt", URL: "https://cdn/log.txt"}},
		},
		{
			name: "empty",
			kind: domain.JobKindImage,
		},
		{
			name:  "candidate without url is skipped",
			kind:  domain.JobKindImage,
			files: []compute.File{{Filename: "a.png"}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := rules.Match(tc.kind, tc.files)
			if ok != tc.ok || got.URL != tc.want {
				t.Fatalf("Match = %+v, %v; want %q, %v", got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestMatchIsDeterministic(t *testing.T) {
	files := []compute.File{
		{Filename: "b.png", URL: "https://cdn/b.png"},
		{Filename: "a.png", URL: "https://cdn/a.png"},
	}
	for i := 0; i < 5; i++ {
		got, _ := MatchImage(files, DefaultRules().Image)
		if got.URL != "https://cdn/b.png" {
			t.Fatalf("run %d picked %q", i, got.URL)
		}
	}
}

func TestLoadRulesOverridesKinds(t *testing.T) {
	p := filepath.Join(t.TempDir(), "rules.yaml")
	content := "video:\n  extensions: [gif, MP4]\n"
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	rules, err := LoadRules(p)
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	if len(rules.Video.Extensions) != 2 || rules.Video.Extensions[0] != ".gif" || rules.Video.Extensions[1] != ".mp4" {
		t.Fatalf("video rule = %+v", rules.Video)
	}
	if len(rules.Image.Extensions) != 4 {
		t.Fatalf("image rule lost defaults: %+v", rules.Image)
	}

	if _, err := LoadRules(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if r, err := LoadRules(""); err != nil || len(r.Video.Extensions) != 3 {
		t.Fatalf("empty path: %+v, %v", r, err)
	}
}
