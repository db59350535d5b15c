// Package archtrack implements the Architecture Tracker: a
// tolerant markdown parser for a project's architecture document plus a
// background impact updater that keeps a living change log current as
// the project's files change.
package archtrack

import (
	"bufio"
	"os"
	"strings"

	"github.com/anthropics/goclode/internal/models"
)

// ParseArchitectureDocument reads path and extracts the Overview, Class
// Registry, Dependencies, and per-feature sections. Missing sections yield
// empty collections; unexpected content is ignored.
func ParseArchitectureDocument(path string) (models.ArchitectureRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.ArchitectureRecord{}, err
	}
	defer f.Close()

	record := models.ArchitectureRecord{
		SourcePath:    path,
		ClassRegistry: make(map[string]string),
	}

	var (
		section     string // "overview" | "feature" | "class_registry" | "dependencies" | ""
		overview    []string
		feature     *models.Feature
		features    []models.Feature
	)

	flushFeature := func() {
		if feature != nil {
			features = append(features, *feature)
			feature = nil
		}
	}

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)

		if h, ok := headingLevel(trimmed, 1); ok {
			flushFeature()
			section = topLevelSection(h)
			continue
		}
		if h, ok := headingLevel(trimmed, 2); ok {
			if name, isFeature := featureName(h); isFeature {
				flushFeature()
				section = "feature"
				feature = &models.Feature{Name: name}
			} else {
				flushFeature()
				section = topLevelSection(h)
			}
			continue
		}

		switch section {
		case "overview":
			if trimmed != "" {
				overview = append(overview, trimmed)
			}
		case "feature":
			if feature == nil {
				continue
			}
			applyFeatureBullet(feature, trimmed)
		case "class_registry":
			if name, desc, ok := splitBullet(trimmed); ok {
				record.ClassRegistry[name] = desc
			}
		case "dependencies":
			applyDependencyBullet(&record.Dependencies, trimmed)
		}
	}
	flushFeature()
	if err := sc.Err(); err != nil {
		return models.ArchitectureRecord{}, err
	}

	record.Overview = strings.Join(overview, " ")
	record.Features = features
	return record, nil
}

// headingLevel reports whether trimmed is a markdown heading of exactly
// level #'s, returning the heading text.
func headingLevel(trimmed string, level int) (string, bool) {
	prefix := strings.Repeat("#", level) + " "
	if !strings.HasPrefix(trimmed, prefix) {
		return "", false
	}
	return strings.TrimSpace(trimmed[len(prefix):]), true
}

func topLevelSection(heading string) string {
	switch strings.ToLower(strings.TrimSpace(heading)) {
	case "overview":
		return "overview"
	case "class registry":
		return "class_registry"
	case "dependencies":
		return "dependencies"
	default:
		return ""
	}
}

func featureName(heading string) (string, bool) {
	const prefix = "Feature:"
	if !strings.HasPrefix(heading, prefix) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(heading, prefix)), true
}

// applyFeatureBullet recognizes bullet lines beginning with the literal
// labels Classes, Files, Dependencies.
func applyFeatureBullet(f *models.Feature, trimmed string) {
	label, rest, ok := splitLabel(trimmed)
	if !ok {
		return
	}
	items := splitCommaList(rest)
	switch strings.ToLower(label) {
	case "classes":
		f.Classes = items
	case "files":
		f.Files = items
	case "dependencies":
		f.Dependencies = items
	}
}

func applyDependencyBullet(d *models.Dependencies, trimmed string) {
	label, rest, ok := splitLabel(trimmed)
	if !ok {
		return
	}
	items := splitCommaList(rest)
	switch strings.ToLower(label) {
	case "production":
		d.Production = items
	case "development":
		d.Development = items
	}
}

// splitLabel parses a bullet line "- Label: rest" into (Label, rest).
func splitLabel(trimmed string) (label, rest string, ok bool) {
	body := stripBulletMarker(trimmed)
	if body == "" {
		return "", "", false
	}
	idx := strings.Index(body, ":")
	if idx < 0 {
		return "", "", false
	}
	return strings.TrimSpace(body[:idx]), strings.TrimSpace(body[idx+1:]), true
}

// splitBullet parses "- Name: description" generically, used by the
// Class Registry section.
func splitBullet(trimmed string) (name, desc string, ok bool) {
	return splitLabel(trimmed)
}

func stripBulletMarker(trimmed string) string {
	for _, marker := range []string{"- ", "* ", "+ "} {
		if strings.HasPrefix(trimmed, marker) {
			return strings.TrimSpace(trimmed[len(marker):])
		}
	}
	return ""
}

func splitCommaList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
