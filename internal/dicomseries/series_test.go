package dicomseries_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"brainprep/internal/dicomseries"
)

func TestInspectEmptyDirectory(t *testing.T) {
	_, err := dicomseries.Inspect(t.TempDir())
	if !errors.Is(err, dicomseries.ErrNoInstances) {
		t.Fatalf("expected ErrNoInstances, got %v", err)
	}
}

func TestInspectCountsUnreadableFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"1.dcm", "2.dcm", ".DS_Store"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("not dicom"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	series, err := dicomseries.Inspect(dir)
	if !errors.Is(err, dicomseries.ErrNoInstances) {
		t.Fatalf("expected ErrNoInstances, got %v", err)
	}
	if series.Files != 2 {
		t.Fatalf("expected 2 instance files, got %d", series.Files)
	}
	if series.Label() != filepath.Base(dir) {
		t.Fatalf("expected directory label fallback, got %q", series.Label())
	}
}

func TestInspectReadsSeriesMetadata(t *testing.T) {
	dir := t.TempDir()
	elements := []*dicom.Element{
		mustElement(t, tag.MediaStorageSOPClassUID, []string{"1.2.840.10008.5.1.4.1.1.4"}),
		mustElement(t, tag.MediaStorageSOPInstanceUID, []string{"1.2.3.4.5"}),
		mustElement(t, tag.TransferSyntaxUID, []string{"1.2.840.10008.1.2.1"}),
		mustElement(t, tag.PatientID, []string{"TCGA-02-0003"}),
		mustElement(t, tag.Modality, []string{"MR"}),
		mustElement(t, tag.SeriesInstanceUID, []string{"1.2.3.4"}),
		mustElement(t, tag.SeriesDescription, []string{"AX T1 POST"}),
	}
	file, err := os.Create(filepath.Join(dir, "000001.dcm"))
	if err != nil {
		t.Fatal(err)
	}
	if err := dicom.Write(file, dicom.Dataset{Elements: elements}, dicom.SkipVRVerification()); err != nil {
		file.Close()
		t.Skipf("cannot synthesize DICOM fixture: %v", err)
	}
	if err := file.Close(); err != nil {
		t.Fatal(err)
	}

	series, err := dicomseries.Inspect(dir)
	if err != nil {
		t.Fatalf("Inspect returned error: %v", err)
	}
	if series.PatientID != "TCGA-02-0003" || series.Modality != "MR" {
		t.Fatalf("unexpected series metadata: %+v", series)
	}
	if series.Label() != "MR AX T1 POST" {
		t.Fatalf("unexpected label %q", series.Label())
	}
}

func mustElement(t *testing.T, tg tag.Tag, value any) *dicom.Element {
	t.Helper()
	elem, err := dicom.NewElement(tg, value)
	if err != nil {
		t.Fatalf("NewElement(%v): %v", tg, err)
	}
	return elem
}
