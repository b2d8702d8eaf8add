package collabmatch

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/himanishpuri/CollabMatch/internal/tabular"
	"github.com/himanishpuri/CollabMatch/pkg/models"
	"github.com/himanishpuri/CollabMatch/pkg/utils"
)

// Output file names inside the output directory.
const (
	MetadataCSVFile  = "metadata_matches.csv"
	MetadataJSONFile = "metadata_matches.json"
	AudioCSVFile     = "audio_matches.csv"
	FinalCSVFile     = "final_matches.csv"
)

// OutputFiles lists the paths written by WriteFiles.
type OutputFiles struct {
	MetadataCSV  string
	MetadataJSON string
	AudioCSV     string
	FinalCSV     string
}

// WriteFiles writes all four tables into dir. k is the number of rank groups in the
// wide audio table.
func (r *Result) WriteFiles(dir string, k int) (*OutputFiles, error) {
	if err := utils.MakeDir(dir); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}
	if k <= 0 {
		k = models.DefaultTopK
	}

	out := &OutputFiles{
		MetadataCSV:  filepath.Join(dir, MetadataCSVFile),
		MetadataJSON: filepath.Join(dir, MetadataJSONFile),
		AudioCSV:     filepath.Join(dir, AudioCSVFile),
		FinalCSV:     filepath.Join(dir, FinalCSVFile),
	}

	writes := []struct {
		path  string
		write func(io.Writer) error
	}{
		{out.MetadataCSV, func(w io.Writer) error { return tabular.WriteMetadataCSV(w, r.Metadata) }},
		{out.MetadataJSON, func(w io.Writer) error { return tabular.WriteMetadataJSON(w, r.Entities, r.Metadata) }},
		{out.AudioCSV, func(w io.Writer) error { return tabular.WriteAudioCSV(w, r.Audio, k) }},
		{out.FinalCSV, func(w io.Writer) error { return tabular.WriteConsolidatedCSV(w, r.Final) }},
	}
	for _, wr := range writes {
		if err := writeFile(wr.path, wr.write); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// WriteConsolidatedFile writes a final ranking to path.
func WriteConsolidatedFile(path string, lists []models.RankedMatchList) error {
	if err := utils.MakeDir(filepath.Dir(path)); err != nil {
		return err
	}
	return writeFile(path, func(w io.Writer) error { return tabular.WriteConsolidatedCSV(w, lists) })
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
