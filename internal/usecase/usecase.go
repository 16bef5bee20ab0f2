package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/forPelevin/reelgen/internal/domain/composition"
	"github.com/forPelevin/reelgen/internal/domain/prompts"
	"github.com/forPelevin/reelgen/internal/domain/scenes"
	"github.com/forPelevin/reelgen/internal/domain/subtitles"
	"github.com/forPelevin/reelgen/internal/domain/translation"
	"github.com/forPelevin/reelgen/internal/langs"
	"github.com/forPelevin/reelgen/internal/ports"
	"github.com/forPelevin/reelgen/internal/scenefile"
	"github.com/forPelevin/reelgen/internal/types"
)

// Run directory layout.
const (
	AudioFile       = "downloaded_audio.mp3"
	TranscriptsDir  = "transcripts"
	ImagesDir       = "images"
	OriginalFile    = "transcripts/original_transcript.json"
	TranslationFile = "transcripts/english_translation.json"
	ScenesFile      = "transcripts/scenes_with_prompts.json"
	ReviewFile      = "scenes_review.yaml"
	OrigSRTFile     = "transcripts/reel_orig.srt"
	EnglishSRTFile  = "transcripts/reel_en.srt"
	SubtitlesASS    = "subtitles.ass"
	VideoFile       = "final_reel.mp4"
	WorkDir         = ".work"
)

// Stage names reported in StageError.
const (
	StageDownload   = "download"
	StageTranscribe = "transcribe"
	StageTranslate  = "translate"
	StageScenes     = "scenes"
	StageImages     = "images"
	StageSubtitles  = "subtitles"
	StageCompose    = "compose"
)

var ErrNoImages = errors.New("no scene image could be generated")

// StageError names the pipeline stage a fatal error came from.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return e.Stage + ": " + e.Err.Error() }
func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage string, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}

type Deps struct {
	Downloader ports.Downloader
	ASR        ports.ASR
	Translator ports.Translator
	Prompts    ports.PromptGenerator
	Images     ports.ImageGenerator
	Video      ports.VideoTool
	Logger     *slog.Logger
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase {
	if d.Logger == nil {
		d.Logger = slog.New(slog.DiscardHandler)
	}
	return Usecase{d: d}
}

type Input struct {
	SourceURL     string
	RunDir        string
	MaxDuration   time.Duration
	WordsPerChunk int
	Subtitles     composition.SubtitleMode
	Format        prompts.Format
	Style         prompts.Style
	// PromptConcurrency bounds parallel prompt calls; below 2 is sequential.
	PromptConcurrency int
	FPS               int

	SkipImages      bool
	SkipCompose     bool
	StopAfterScenes bool
	// Resume reuses artifacts already present in RunDir.
	Resume bool
}

type Result struct {
	Manifest types.Manifest
	// StoppedAfterScenes is set when the run ended at the review checkpoint.
	StoppedAfterScenes bool
}

func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	log := u.d.Logger
	m := types.Manifest{Source: in.SourceURL}
	for _, dir := range []string{in.RunDir, u.path(in, TranscriptsDir), u.path(in, ImagesDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Result{}, err
		}
	}

	// 1. audio
	audio := u.path(in, AudioFile)
	if in.Resume && exists(audio) {
		log.Info("reusing downloaded audio", "component", StageDownload, "path", audio)
	} else {
		log.Info("downloading audio", "component", StageDownload, "url", in.SourceURL, "max_duration", in.MaxDuration)
		if err := u.d.Downloader.DownloadAudio(ctx, in.SourceURL, audio, in.MaxDuration); err != nil {
			return Result{}, stageErr(StageDownload, err)
		}
	}
	m.Audio = AudioFile

	// 2. transcript
	original, err := u.transcribe(ctx, in, audio)
	if err != nil {
		return Result{}, stageErr(StageTranscribe, err)
	}
	m.Transcript = OriginalFile
	lang := scenes.SourceLanguage(original)
	m.Language = lang
	log.Info("transcript ready", "component", StageTranscribe, "language", lang, "segments", len(original.Segments))

	mode, warn := composition.EffectiveMode(in.Subtitles, lang)
	if warn != "" {
		log.Warn(warn, "component", StageSubtitles)
		m.Warnings = append(m.Warnings, warn)
	}
	m.SubtitleMode = string(mode)

	// 3. translation
	var translated *types.Transcript
	if mode.NeedsTranslation() {
		tr, err := u.translate(ctx, in, original)
		if err != nil {
			return Result{}, stageErr(StageTranslate, err)
		}
		translated = &tr
		m.Translation = TranslationFile
	}

	// 4. scenes
	ss, stopped, err := u.scenes(ctx, in, original, lang)
	if err != nil {
		return Result{}, stageErr(StageScenes, err)
	}
	m.Scenes = len(ss)
	m.ScenesPrompted = scenes.Prompted(ss)
	m.ScenesFile = ScenesFile
	if stopped {
		return Result{Manifest: m, StoppedAfterScenes: true}, nil
	}

	// 5. images
	images, warnings, err := u.images(ctx, in, ss)
	m.ImagesGenerated = images
	m.Warnings = append(m.Warnings, warnings...)
	if err != nil {
		return Result{Manifest: m}, stageErr(StageImages, err)
	}

	// 6. srt
	srtFiles, warnings := u.writeSRT(in, mode, &original, translated)
	m.SubtitleFiles = srtFiles
	m.Warnings = append(m.Warnings, warnings...)

	if in.SkipCompose {
		log.Info("skipping video composition", "component", StageCompose)
		return Result{Manifest: m}, nil
	}

	// 7. compose
	warnings, err = u.compose(ctx, in, audio, ss, mode, &original, translated)
	m.Warnings = append(m.Warnings, warnings...)
	if err != nil {
		return Result{Manifest: m}, stageErr(StageCompose, err)
	}
	m.Video = VideoFile
	return Result{Manifest: m}, nil
}

func (u Usecase) transcribe(ctx context.Context, in Input, audio string) (types.Transcript, error) {
	path := u.path(in, OriginalFile)
	if in.Resume && exists(path) {
		var tr types.Transcript
		if err := readJSON(path, &tr); err != nil {
			return types.Transcript{}, err
		}
		u.d.Logger.Info("reusing transcript", "component", StageTranscribe, "path", path)
		return tr, nil
	}
	tr, err := u.d.ASR.Transcribe(ctx, audio, u.path(in, WorkDir))
	if err != nil {
		return types.Transcript{}, err
	}
	if err := writeJSON(path, tr); err != nil {
		return types.Transcript{}, err
	}
	return tr, nil
}

func (u Usecase) translate(ctx context.Context, in Input, original types.Transcript) (types.Transcript, error) {
	path := u.path(in, TranslationFile)
	if langs.IsEnglish(scenes.SourceLanguage(original)) {
		u.d.Logger.Info("transcript already in English, skipping translation", "component", StageTranslate)
		return original, writeJSON(path, original)
	}
	if in.Resume && exists(path) {
		var tr types.Transcript
		if err := readJSON(path, &tr); err != nil {
			return types.Transcript{}, err
		}
		u.d.Logger.Info("reusing translation", "component", StageTranslate, "path", path)
		return tr, nil
	}
	log := u.d.Logger.With("component", StageTranslate)
	log.Info("translating transcript", "from", original.Language, "to", "en", "segments", len(original.Segments))
	tr, err := translation.Transcript(ctx, original, "en", u.d.Translator, log)
	if err != nil {
		return types.Transcript{}, err
	}
	return tr, writeJSON(path, tr)
}

// scenes splits and prompts the transcript, or picks up reviewed scenes
// when resuming. The bool result reports a stop at the review checkpoint.
func (u Usecase) scenes(ctx context.Context, in Input, tr types.Transcript, lang string) ([]types.Scene, bool, error) {
	log := u.d.Logger.With("component", StageScenes)
	jsonPath := u.path(in, ScenesFile)
	reviewPath := u.path(in, ReviewFile)

	var ss []types.Scene
	if in.Resume && exists(jsonPath) {
		loaded, err := scenefile.Load(jsonPath)
		if err != nil {
			return nil, false, err
		}
		ss = loaded
		log.Info("reusing scenes", "path", jsonPath, "scenes", len(ss))
		if exists(reviewPath) {
			edited, err := scenefile.Load(reviewPath)
			if err != nil {
				return nil, false, fmt.Errorf("load reviewed scenes: %w", err)
			}
			var changed int
			ss, changed = scenefile.MergePrompts(ss, edited)
			log.Info("applied reviewed prompts", "path", reviewPath, "changed", changed)
		}
	} else {
		ss = scenes.SplitAndEnrich(ctx, tr, in.WordsPerChunk, u.d.Prompts, scenes.EnrichOptions{
			Concurrency: in.PromptConcurrency,
			Logger:      log,
		})
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
	}
	if len(ss) == 0 {
		return nil, false, scenes.ErrNoScenes
	}
	log.Info("scenes ready", "language", lang, "scenes", len(ss), "prompted", scenes.Prompted(ss))
	if err := scenefile.Save(jsonPath, ss); err != nil {
		return nil, false, err
	}

	if in.StopAfterScenes {
		if err := scenefile.Save(reviewPath, ss); err != nil {
			return nil, false, err
		}
		log.Info("stopped for review; edit prompts and rerun with --resume", "review_file", reviewPath)
		return ss, true, nil
	}
	return ss, false, nil
}

// images renders one picture per prompted scene. On resume an image is kept
// only while its prompt sidecar matches the current request. A failed scene
// is only a warning; having no image at all is fatal unless composition is
// skipped.
func (u Usecase) images(ctx context.Context, in Input, ss []types.Scene) (int, []string, error) {
	log := u.d.Logger.With("component", StageImages)
	dir := composition.ImageDir(u.path(in, ImagesDir))
	var warnings []string
	count := 0

	if in.SkipImages {
		for i, sc := range ss {
			if sc.ImagePrompt == nil {
				warnings = append(warnings, fmt.Sprintf("scene %d: no image prompt, skipping image", i))
				continue
			}
			if p, ok := dir.ImagePath(i); ok {
				count++
			} else {
				warnings = append(warnings, fmt.Sprintf("scene %d: image generation skipped and %s is missing", i, p))
			}
		}
		log.Info("skipping image generation", "existing", count, "scenes", len(ss))
		if count == 0 && !in.SkipCompose {
			return 0, warnings, ErrNoImages
		}
		return count, warnings, nil
	}

	size := in.Format.ImageSize()
	for i, sc := range ss {
		if err := ctx.Err(); err != nil {
			return count, warnings, err
		}
		path, ok := dir.ImagePath(i)
		if sc.ImagePrompt == nil {
			if ok {
				log.Info("removing image of scene without prompt", "scene", i, "path", path)
				removeImage(path)
			}
			warnings = append(warnings, fmt.Sprintf("scene %d: no image prompt, skipping image", i))
			continue
		}
		prompt := prompts.ImageRequest(in.Style.Apply(*sc.ImagePrompt), in.Format, in.Style.NegativeKeywords)
		if ok && in.Resume && renderedFrom(path, prompt) {
			count++
			continue
		}
		if ok {
			log.Info("image prompt changed, regenerating", "scene", i)
			removeImage(path)
		}
		log.Info("generating image", "scene", i, "of", len(ss))
		if err := u.d.Images.GenerateImage(ctx, prompt, size, path); err != nil {
			if ctx.Err() != nil {
				return count, warnings, ctx.Err()
			}
			log.Warn("image generation failed", "scene", i, "error", err)
			warnings = append(warnings, fmt.Sprintf("scene %d: image generation failed: %v", i, err))
			continue
		}
		if err := os.WriteFile(PromptFile(path), []byte(prompt), 0o644); err != nil {
			log.Warn("could not record image prompt", "scene", i, "error", err)
		}
		count++
	}
	log.Info("images ready", "generated", count, "scenes", len(ss))
	if count == 0 {
		return 0, warnings, ErrNoImages
	}
	return count, warnings, nil
}

func (u Usecase) writeSRT(in Input, mode composition.SubtitleMode, original, translated *types.Transcript) ([]string, []string) {
	type track struct {
		file string
		tr   *types.Transcript
	}
	var tracks []track
	switch mode {
	case composition.SubtitlesOrig:
		tracks = []track{{OrigSRTFile, original}}
	case composition.SubtitlesEN:
		tracks = []track{{EnglishSRTFile, translated}}
	case composition.SubtitlesBoth:
		tracks = []track{{OrigSRTFile, original}, {EnglishSRTFile, translated}}
	}

	var files, warnings []string
	for _, t := range tracks {
		cues, err := subtitles.BuildCues(t.tr)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", t.file, err))
			continue
		}
		if err := os.WriteFile(u.path(in, t.file), []byte(subtitles.RenderSRT(cues)), 0o644); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", t.file, err))
			continue
		}
		files = append(files, t.file)
	}
	return files, warnings
}

func (u Usecase) compose(
	ctx context.Context,
	in Input,
	audio string,
	ss []types.Scene,
	mode composition.SubtitleMode,
	original, translated *types.Transcript,
) ([]string, error) {
	log := u.d.Logger.With("component", StageCompose)
	var warnings []string

	audioDur, err := u.d.Video.ProbeDuration(ctx, audio)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		warnings = append(warnings, fmt.Sprintf("audio duration unknown, using scene timings: %v", err))
		audioDur = 0
	}

	plan, err := composition.Resolve(composition.Request{
		Scenes:        ss,
		Images:        promptedImages{dir: composition.ImageDir(u.path(in, ImagesDir)), scenes: ss},
		AudioDuration: audioDur.Seconds(),
		Mode:          mode,
		Original:      original,
		Translated:    translated,
	})
	for _, w := range plan.Warnings {
		log.Warn(w)
	}
	warnings = append(warnings, plan.Warnings...)
	if err != nil {
		return warnings, err
	}

	width, height := in.Format.Canvas()
	burn := ""
	if len(plan.Subtitles()) > 0 {
		burn = u.path(in, SubtitlesASS)
		if err := os.WriteFile(burn, []byte(subtitles.RenderASS(plan, width, height)), 0o644); err != nil {
			return warnings, err
		}
	}

	log.Info("composing reel", "images", len(plan.Images()), "subtitles", len(plan.Subtitles()), "duration", plan.Duration)
	if err := u.d.Video.ComposeReel(ctx, ports.ComposeRequest{
		Audio:   audio,
		Plan:    plan,
		Width:   width,
		Height:  height,
		BurnASS: burn,
		OutMP4:  u.path(in, VideoFile),
		FPS:     in.FPS,
	}); err != nil {
		return warnings, err
	}
	return warnings, nil
}

// PromptFile is the sidecar holding the request an image was rendered from.
func PromptFile(imagePath string) string {
	return strings.TrimSuffix(imagePath, filepath.Ext(imagePath)) + ".prompt"
}

func renderedFrom(imagePath, prompt string) bool {
	b, err := os.ReadFile(PromptFile(imagePath))
	return err == nil && string(b) == prompt
}

func removeImage(path string) {
	_ = os.Remove(path)
	_ = os.Remove(PromptFile(path))
}

// promptedImages hides images of scenes whose prompt was cleared in review.
type promptedImages struct {
	dir    composition.ImageDir
	scenes []types.Scene
}

func (p promptedImages) ImagePath(i int) (string, bool) {
	path, ok := p.dir.ImagePath(i)
	if i < 0 || i >= len(p.scenes) || p.scenes[i].ImagePrompt == nil {
		return path, false
	}
	return path, ok
}

func (u Usecase) path(in Input, rel string) string {
	return filepath.Join(in.RunDir, filepath.FromSlash(rel))
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Size() > 0
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
