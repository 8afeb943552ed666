// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNoEpisode is returned when recording is attempted before StartEpisode.
var ErrNoEpisode = errors.New("no episode in progress")

// EpisodeExport is the root JSON structure written per episode
type EpisodeExport struct {
	Network           string          `json:"network"`
	Policy            string          `json:"policy"`
	Seed              uint64          `json:"seed"`
	StartedAt         time.Time       `json:"startedAt"`
	EndedAt           time.Time       `json:"endedAt"`
	Ticks             uint64          `json:"ticks"`
	SimTime           float64         `json:"simTime"`
	VehiclesGenerated int             `json:"vehiclesGenerated"`
	TripsCompleted    int             `json:"tripsCompleted"`
	Collision         bool            `json:"collision"`
	AverageWaitTime   float64         `json:"averageWaitTime"`
	Config            json.RawMessage `json:"config,omitempty"`
	Trips             []TripJSON      `json:"trips"`
}

// TripJSON represents one completed vehicle trip
type TripJSON struct {
	SpawnedAt   float64 `json:"spawnedAt"`
	CompletedAt float64 `json:"completedAt"`
	WaitTime    float64 `json:"waitTime"`
	PathLength  int     `json:"pathLength"`
	OriginRoad  int     `json:"originRoad"`
}

// exportJSON writes the episode data to a JSON file, gzipped if configured
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	// Build filename
	network := strings.ReplaceAll(b.current.Episode.NetworkName, " ", "_")
	if network == "" {
		network = "episode"
	}
	timestamp := b.current.Episode.StartedAt.Format("20060102_150405")

	// Episode ID keeps filenames unique when episodes finish within
	// the same second.
	var filename string
	if b.cfg.CompressOutput {
		filename = fmt.Sprintf("%s_%s_ep%d.json.gz", network, timestamp, b.current.Episode.ID)
	} else {
		filename = fmt.Sprintf("%s_%s_ep%d.json", network, timestamp, b.current.Episode.ID)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Write file
	if b.cfg.CompressOutput {
		if err := b.writeGzipJSON(outputPath, export); err != nil {
			return err
		}
	} else {
		if err := b.writeJSON(outputPath, export); err != nil {
			return err
		}
	}

	b.exportedFilePath = outputPath
	return nil
}

func (b *Backend) buildExport() EpisodeExport {
	e := b.current.Episode
	export := EpisodeExport{
		Network:           e.NetworkName,
		Policy:            e.Policy,
		Seed:              e.Seed,
		StartedAt:         e.StartedAt,
		EndedAt:           e.EndedAt,
		Ticks:             e.Ticks,
		SimTime:           e.SimTime,
		VehiclesGenerated: e.VehiclesGenerated,
		TripsCompleted:    e.TripsCompleted,
		Collision:         e.Collision,
		AverageWaitTime:   e.AverageWaitTime,
		Config:            json.RawMessage(e.ConfigSnapshot),
		Trips:             make([]TripJSON, 0, len(b.current.Trips)),
	}

	for _, t := range b.current.Trips {
		export.Trips = append(export.Trips, TripJSON{
			SpawnedAt:   t.SpawnedAt,
			CompletedAt: t.CompletedAt,
			WaitTime:    t.WaitTime,
			PathLength:  t.PathLength,
			OriginRoad:  t.OriginRoad,
		})
	}

	return export
}

func (b *Backend) writeJSON(path string, data EpisodeExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(data)
}

func (b *Backend) writeGzipJSON(path string, data EpisodeExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	defer gzWriter.Close()

	encoder := json.NewEncoder(gzWriter)
	return encoder.Encode(data)
}
