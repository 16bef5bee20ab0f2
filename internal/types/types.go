package types

// Transcript is the ASR output in its on-disk JSON shape. Segments is nil when
// the "segments" key was absent, which consumers treat differently from an
// empty list.
type Transcript struct {
	Language string    `json:"language,omitempty"`
	Segments []Segment `json:"segments"`
	Text     string    `json:"text,omitempty"`
}

type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Scene is a contiguous run of segments that gets one image.
// ImagePrompt is nil when prompt generation failed.
type Scene struct {
	ChunkText   string  `json:"chunk_text" yaml:"chunk_text"`
	StartTime   float64 `json:"start_time" yaml:"start_time"`
	EndTime     float64 `json:"end_time" yaml:"end_time"`
	ImagePrompt *string `json:"image_prompt" yaml:"image_prompt"`
}

func (s Scene) Duration() float64 { return s.EndTime - s.StartTime }

type Cue struct {
	Index int
	Start float64
	End   float64
	Text  string
}

type PlacementKind string

const (
	PlacementImage    PlacementKind = "image"
	PlacementSubtitle PlacementKind = "subtitle"
)

// Placement is one timed element of a composition plan. Source is an image
// path for images and the cue text for subtitles.
type Placement struct {
	Kind       PlacementKind `json:"kind"`
	Start      float64       `json:"start"`
	Duration   float64       `json:"duration"`
	Source     string        `json:"source"`
	SceneIndex int           `json:"scene_index"`
	Track      string        `json:"track,omitempty"`
	Position   float64       `json:"position,omitempty"`
	Color      string        `json:"color,omitempty"`
}

func (p Placement) End() float64 { return p.Start + p.Duration }

type Plan struct {
	Duration     float64     `json:"duration"`
	SubtitleMode string      `json:"subtitle_mode"`
	Placements   []Placement `json:"placements"`
	Warnings     []string    `json:"warnings,omitempty"`
}

// Images returns image placements in plan order.
func (p Plan) Images() []Placement { return p.byKind(PlacementImage) }

// Subtitles returns subtitle placements in plan order.
func (p Plan) Subtitles() []Placement { return p.byKind(PlacementSubtitle) }

func (p Plan) byKind(k PlacementKind) []Placement {
	var out []Placement
	for _, pl := range p.Placements {
		if pl.Kind == k {
			out = append(out, pl)
		}
	}
	return out
}

type Manifest struct {
	RunID           string   `json:"run_id"`
	Source          string   `json:"source"`
	Language        string   `json:"language"`
	SubtitleMode    string   `json:"subtitle_mode"`
	Scenes          int      `json:"scenes"`
	ScenesPrompted  int      `json:"scenes_prompted"`
	ImagesGenerated int      `json:"images_generated"`
	Audio           string   `json:"audio,omitempty"`
	Transcript      string   `json:"transcript,omitempty"`
	Translation     string   `json:"translation,omitempty"`
	ScenesFile      string   `json:"scenes_file,omitempty"`
	SubtitleFiles   []string `json:"subtitle_files,omitempty"`
	Video           string   `json:"video,omitempty"`
	Warnings        []string `json:"warnings,omitempty"`
	CreatedAt       string   `json:"created_at"`
}
