// Package dicomseries reads descriptive metadata from a DICOM series
// directory before it is handed to the converter.
package dicomseries

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// ErrNoInstances reports a series directory without any readable DICOM file.
var ErrNoInstances = errors.New("no DICOM instances")

// Series summarizes one series directory.
type Series struct {
	Dir               string
	Files             int
	PatientID         string
	Modality          string
	SeriesInstanceUID string
	SeriesDescription string
	SeriesNumber      string
}

// Label renders a short description for logs.
func (s Series) Label() string {
	parts := make([]string, 0, 3)
	for _, part := range []string{s.Modality, s.SeriesNumber, s.SeriesDescription} {
		if strings.TrimSpace(part) != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return filepath.Base(s.Dir)
	}
	return strings.Join(parts, " ")
}

// Inspect counts the instance files in dir and reads series metadata from the
// first one that parses. Pixel data is not loaded.
func Inspect(dir string) (Series, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Series{}, fmt.Errorf("list series: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() && !strings.HasPrefix(entry.Name(), ".") {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)

	series := Series{Dir: dir, Files: len(files)}
	var lastErr error
	for _, path := range files {
		dataset, err := dicom.ParseFile(path, nil, dicom.SkipPixelData())
		if err != nil {
			lastErr = err
			continue
		}
		series.PatientID = stringValue(dataset, tag.PatientID)
		series.Modality = stringValue(dataset, tag.Modality)
		series.SeriesInstanceUID = stringValue(dataset, tag.SeriesInstanceUID)
		series.SeriesDescription = stringValue(dataset, tag.SeriesDescription)
		series.SeriesNumber = stringValue(dataset, tag.SeriesNumber)
		return series, nil
	}
	if lastErr != nil {
		return series, fmt.Errorf("%w in %s: %v", ErrNoInstances, dir, lastErr)
	}
	return series, fmt.Errorf("%w in %s", ErrNoInstances, dir)
}

func stringValue(dataset dicom.Dataset, t tag.Tag) string {
	elem, err := dataset.FindElementByTag(t)
	if err != nil || elem.Value == nil {
		return ""
	}
	if elem.Value.ValueType() != dicom.Strings {
		return ""
	}
	values := dicom.MustGetStrings(elem.Value)
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}
