package reconcile

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"editorcore/internal/domain"
	"editorcore/internal/providers/compute"
)

// KindRule orders candidate outputs. Name hints are tried first, each with
// every extension in order; then extensions alone.
type KindRule struct {
	Extensions []string `yaml:"extensions"`
	NameHints  []string `yaml:"name_hints"`
}

// Rules holds one KindRule per job kind.
type Rules struct {
	Image   KindRule `yaml:"image"`
	Video   KindRule `yaml:"video"`
	Segment KindRule `yaml:"segment"`
}

// DefaultRules prefers lossless stills, mp4 over webm over gif, and masks
// over cut-outs.
func DefaultRules() Rules {
	return Rules{
		Image:   KindRule{Extensions: []string{".png", ".jpg", ".jpeg", ".webp"}},
		Video:   KindRule{Extensions: []string{".mp4", ".webm", ".gif"}},
		Segment: KindRule{Extensions: []string{".png", ".webp"}, NameHints: []string{"mask", "cutout"}},
	}
}

// LoadRules reads a YAML rules file. Kinds missing from the file keep their
// defaults.
func LoadRules(p string) (Rules, error) {
	rules := DefaultRules()
	if p == "" {
		return rules, nil
	}
	raw, err := os.ReadFile(p)
	if err != nil {
		return rules, fmt.Errorf("read output rules: %w", err)
	}
	var override Rules
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return rules, fmt.Errorf("parse output rules: %w", err)
	}
	rules.Image = mergeRule(rules.Image, override.Image)
	rules.Video = mergeRule(rules.Video, override.Video)
	rules.Segment = mergeRule(rules.Segment, override.Segment)
	return rules, nil
}

func mergeRule(base, override KindRule) KindRule {
	if len(override.Extensions) > 0 {
		base.Extensions = normaliseExtensions(override.Extensions)
	}
	if override.NameHints != nil {
		base.NameHints = override.NameHints
	}
	return base
}

func normaliseExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	return out
}

// For returns the rule for kind.
func (r Rules) For(kind domain.JobKind) KindRule {
	switch kind {
	case domain.JobKindVideo:
		return r.Video
	case domain.JobKindSegment:
		return r.Segment
	default:
		return r.Image
	}
}

// MatchImage picks the still image result.
func MatchImage(files []compute.File, rule KindRule) (compute.File, bool) {
	return match(files, rule)
}

// MatchVideo picks the video result.
func MatchVideo(files []compute.File, rule KindRule) (compute.File, bool) {
	return match(files, rule)
}

// MatchSegment picks the mask or cut-out result.
func MatchSegment(files []compute.File, rule KindRule) (compute.File, bool) {
	return match(files, rule)
}

// Match dispatches to the matcher for kind.
func (r Rules) Match(kind domain.JobKind, files []compute.File) (compute.File, bool) {
	switch kind {
	case domain.JobKindVideo:
		return MatchVideo(files, r.Video)
	case domain.JobKindSegment:
		return MatchSegment(files, r.Segment)
	default:
		return MatchImage(files, r.Image)
	}
}

func match(files []compute.File, rule KindRule) (compute.File, bool) {
	for _, hint := range rule.NameHints {
		hint = strings.ToLower(hint)
		for _, ext := range rule.Extensions {
			for _, f := range files {
				if f.URL != "" && extension(f) == ext && strings.Contains(baseName(f), hint) {
					return f, true
				}
			}
		}
	}
	for _, ext := range rule.Extensions {
		for _, f := range files {
			if f.URL != "" && extension(f) == ext {
				return f, true
			}
		}
	}
	return compute.File{}, false
}

func baseName(f compute.File) string {
	if f.Filename != "" {
		return strings.ToLower(path.Base(f.Filename))
	}
	if u, err := url.Parse(f.URL); err == nil {
		return strings.ToLower(path.Base(u.Path))
	}
	return ""
}

func extension(f compute.File) string {
	return path.Ext(baseName(f))
}
