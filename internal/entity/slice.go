package entity

import "time"

// Region is a named rectangle in the coordinate space of the normalized raster.
type Region struct {
	Name   string `json:"name"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// FileName is the name every artifact of the region is published under.
func (r Region) FileName() string {
	return r.Name + ".png"
}

type SliceResult struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Bytes  []byte `json:"-"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
}

type Run struct {
	ID               string        `json:"id"`
	SourceName       string        `json:"source_name"`
	SourceWidth      int           `json:"source_width"`
	SourceHeight     int           `json:"source_height"`
	NormalizedHeight int           `json:"normalized_height"`
	SplitY2          int           `json:"split_y2"`
	CreatedAt        time.Time     `json:"created_at"`
	Slices           []SliceResult `json:"slices"`
}

type SliceResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Size   int    `json:"size"`
	URL    string `json:"url"`
}

type RunResponse struct {
	ID               string          `json:"id"`
	SourceName       string          `json:"source_name"`
	SourceWidth      int             `json:"source_width"`
	SourceHeight     int             `json:"source_height"`
	NormalizedHeight int             `json:"normalized_height"`
	SplitY2          int             `json:"split_y2"`
	CreatedAt        time.Time       `json:"created_at"`
	Slices           []SliceResponse `json:"slices"`
	ArchiveURL       string          `json:"archive_url"`
}

// RunEvent is published after a run completes. It never carries image bytes.
type RunEvent struct {
	RunID      string       `json:"run_id"`
	SourceName string       `json:"source_name"`
	SplitY2    int          `json:"split_y2"`
	Slices     []SliceEvent `json:"slices"`
	CreatedAt  time.Time    `json:"created_at"`
}

type SliceEvent struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Size   int    `json:"size"`
}

func NewRunEvent(run *Run) RunEvent {
	slices := make([]SliceEvent, 0, len(run.Slices))
	for _, s := range run.Slices {
		slices = append(slices, SliceEvent{
			Name:   s.Name,
			Width:  s.Width,
			Height: s.Height,
			X:      s.X,
			Y:      s.Y,
			Size:   len(s.Bytes),
		})
	}
	return RunEvent{
		RunID:      run.ID,
		SourceName: run.SourceName,
		SplitY2:    run.SplitY2,
		Slices:     slices,
		CreatedAt:  run.CreatedAt,
	}
}
