// Package composition resolves scenes, images and subtitle tracks into a
// timed placement plan for the renderer.
package composition

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/forPelevin/reelgen/internal/domain/scenes"
	"github.com/forPelevin/reelgen/internal/domain/subtitles"
	"github.com/forPelevin/reelgen/internal/types"
)

var ErrNoImagePlacements = errors.New("composition: no scene has a usable image")

type SubtitleMode string

const (
	SubtitlesNone SubtitleMode = "none"
	SubtitlesOrig SubtitleMode = "orig"
	SubtitlesEN   SubtitleMode = "en"
	SubtitlesBoth SubtitleMode = "both"
)

func ParseSubtitleMode(s string) (SubtitleMode, error) {
	switch m := SubtitleMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return SubtitlesNone, nil
	case SubtitlesNone, SubtitlesOrig, SubtitlesEN, SubtitlesBoth:
		return m, nil
	default:
		return "", fmt.Errorf("unsupported subtitle mode %q (want none, orig, en or both)", s)
	}
}

// NeedsTranslation reports whether the mode shows an English track.
func (m SubtitleMode) NeedsTranslation() bool { return m == SubtitlesEN || m == SubtitlesBoth }

// EffectiveMode resolves the requested mode against the source language.
// "both" on an English source would show the same text twice, so it becomes
// a single English track; the returned warning is empty when nothing changed.
func EffectiveMode(requested SubtitleMode, sourceLanguage string) (SubtitleMode, string) {
	if requested == SubtitlesBoth && isEnglish(sourceLanguage) {
		return SubtitlesEN, "subtitles: source is already English, showing a single English track instead of both"
	}
	return requested, ""
}

func isEnglish(lang string) bool {
	l := strings.ToLower(strings.TrimSpace(lang))
	return l == "" || l == "en" || strings.HasPrefix(l, "en-")
}

// ImageSource answers whether an image exists for a scene index.
type ImageSource interface {
	ImagePath(sceneIndex int) (string, bool)
}

// ImageDir looks images up as scene_{i}.png inside a directory.
type ImageDir string

func (d ImageDir) ImagePath(i int) (string, bool) {
	p := filepath.Join(string(d), scenes.ImageName(i))
	info, err := os.Stat(p)
	if err != nil || info.IsDir() || info.Size() == 0 {
		return p, false
	}
	return p, true
}

type Request struct {
	Scenes []types.Scene
	Images ImageSource
	// AudioDuration is the length of the narration in seconds.
	AudioDuration float64
	Mode          SubtitleMode
	Original      *types.Transcript
	Translated    *types.Transcript
}

const (
	trackOriginal   = "orig"
	trackTranslated = "en"
)

type trackSpec struct {
	name     string
	tr       *types.Transcript
	position float64
	color    string
}

// Resolve builds the placement plan. Scenes without a positive duration or
// without an image are dropped with a warning; a plan with no images at all
// is an error. Image placements come first ordered by start, followed by
// subtitle tracks.
func Resolve(req Request) (types.Plan, error) {
	plan := types.Plan{SubtitleMode: string(SubtitlesNone)}
	if req.Mode != "" {
		plan.SubtitleMode = string(req.Mode)
	}

	var images []types.Placement
	for i, sc := range req.Scenes {
		var (
			path string
			ok   bool
		)
		if req.Images != nil {
			path, ok = req.Images.ImagePath(i)
		}
		if !ok {
			plan.Warnings = append(plan.Warnings, fmt.Sprintf("scene %d: image not found, skipping", i))
			continue
		}
		d := sc.Duration()
		if d <= 0 {
			plan.Warnings = append(plan.Warnings, fmt.Sprintf("scene %d: non-positive duration (%.3fs), skipping", i, d))
			continue
		}
		images = append(images, types.Placement{
			Kind:       types.PlacementImage,
			Start:      sc.StartTime,
			Duration:   d,
			Source:     path,
			SceneIndex: i,
		})
	}
	if len(images) == 0 {
		return plan, ErrNoImagePlacements
	}
	sort.SliceStable(images, func(i, j int) bool { return images[i].Start < images[j].Start })

	plan.Duration = req.AudioDuration
	for _, p := range images {
		if p.End() > plan.Duration {
			plan.Duration = p.End()
		}
	}
	plan.Placements = append(plan.Placements, images...)

	for _, spec := range tracksFor(req) {
		subs, warn := subtitlePlacements(spec)
		plan.Warnings = append(plan.Warnings, warn...)
		plan.Placements = append(plan.Placements, subs...)
	}
	return plan, nil
}

func tracksFor(req Request) []trackSpec {
	switch req.Mode {
	case SubtitlesOrig:
		return []trackSpec{{name: trackOriginal, tr: req.Original, position: 0.8, color: "white"}}
	case SubtitlesEN:
		return []trackSpec{{name: trackTranslated, tr: req.Translated, position: 0.8, color: "white"}}
	case SubtitlesBoth:
		return []trackSpec{
			{name: trackOriginal, tr: req.Original, position: 0.75, color: "yellow"},
			{name: trackTranslated, tr: req.Translated, position: 0.85, color: "white"},
		}
	default:
		return nil
	}
}

func subtitlePlacements(spec trackSpec) ([]types.Placement, []string) {
	cues, err := subtitles.BuildCues(spec.tr)
	if err != nil {
		return nil, []string{fmt.Sprintf("subtitles %s: %v", spec.name, err)}
	}
	var (
		out     []types.Placement
		skipped int
	)
	for _, c := range cues {
		d := c.End - c.Start
		if d <= 0 {
			skipped++
			continue
		}
		out = append(out, types.Placement{
			Kind:     types.PlacementSubtitle,
			Start:    c.Start,
			Duration: d,
			Source:   c.Text,
			Track:    spec.name,
			Position: spec.position,
			Color:    spec.color,
		})
	}
	var warns []string
	if skipped > 0 {
		warns = append(warns, fmt.Sprintf("subtitles %s: skipped %d cue(s) with non-positive duration", spec.name, skipped))
	}
	return out, warns
}
