// Package export persists batch transcripts as a CSV table.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"fabla-transcriber/internal/domain"
)

// FileName is the default table name written next to the scanned recordings.
const FileName = "transcripts.csv"

// Header is the fixed column order of the output table.
var Header = []string{"Filename", "Participant ID", "Date", "Time", "Transcript"}

// WriteError reports that the output table could not be persisted.
type WriteError struct {
	Path string
	Err  error
}

// Error formats the failing destination.
func (e *WriteError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("write transcripts to %s: %v", e.Path, e.Err)
}

// Unwrap exposes the underlying I/O error.
func (e *WriteError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Write serializes records to destination, replacing any existing file. The table is
// staged in a temporary file in the same directory and renamed into place.
func Write(records []domain.TranscriptRecord, destination string) error {
	dir := filepath.Dir(destination)
	tmp, err := os.CreateTemp(dir, ".transcripts-*.csv")
	if err != nil {
		return &WriteError{Path: destination, Err: err}
	}
	tmpPath := tmp.Name()

	if err := Encode(tmp, records); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return &WriteError{Path: destination, Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return &WriteError{Path: destination, Err: err}
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return &WriteError{Path: destination, Err: err}
	}
	if err := os.Rename(tmpPath, destination); err != nil {
		_ = os.Remove(tmpPath)
		return &WriteError{Path: destination, Err: err}
	}
	return nil
}

// Encode writes the header and one row per record to w.
func Encode(w io.Writer, records []domain.TranscriptRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{r.Filename, r.ParticipantID, r.Date, r.Time, r.Transcript}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ErrBadHeader is returned by Read when the first row is not the transcripts header.
var ErrBadHeader = errors.New("unexpected transcripts header")

// Read loads a table previously produced by Write.
func Read(path string) ([]domain.TranscriptRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses a transcripts table from r.
func Decode(r io.Reader) ([]domain.TranscriptRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	head, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrBadHeader
		}
		return nil, err
	}
	if !slices.Equal(head, Header) {
		return nil, fmt.Errorf("%w: %v", ErrBadHeader, head)
	}

	var out []domain.TranscriptRecord
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, domain.TranscriptRecord{
			Filename:      row[0],
			ParticipantID: row[1],
			Date:          row[2],
			Time:          row[3],
			Transcript:    row[4],
		})
	}
	return out, nil
}
