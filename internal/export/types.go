package export

// Request asks for an EDL of the current timeline. With OutputDir empty the
// file goes to the configured export directory.
type Request struct {
	ProjectName string  `json:"project_name"`
	FrameRate   float64 `json:"frame_rate"`
	OutputDir   string  `json:"output_dir,omitempty"`
}

// Event is one EDL edit: a clip's source window laid at its record position.
type Event struct {
	ClipID    string
	Track     string
	ClipName  string
	MediaPath string
	SourceIn  float64
	SourceOut float64
	RecordIn  float64
	RecordOut float64
}

type Response struct {
	Status          string   `json:"status"`
	Format          string   `json:"format"`
	OutputPath      string   `json:"output_path"`
	EventCount      int      `json:"event_count"`
	UnresolvedClips []string `json:"unresolved_clips"`
}
