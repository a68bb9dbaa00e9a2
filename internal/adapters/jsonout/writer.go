// internal/adapters/jsonout/writer.go
package jsonout

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

var ErrFinished = errors.New("jsonout: writer already finished")

const indent = "    "

// Writer streams records into a single top-level JSON array. Only the record
// being encoded is held in memory.
type Writer struct {
	w        io.Writer
	buf      bytes.Buffer
	enc      *json.Encoder
	n        int
	finished bool
}

// New writes the opening bracket immediately.
func New(w io.Writer) (*Writer, error) {
	jw := &Writer{w: w}
	jw.enc = json.NewEncoder(&jw.buf)
	jw.enc.SetEscapeHTML(false)
	jw.enc.SetIndent("", indent)
	if _, err := io.WriteString(w, "[\n"); err != nil {
		return nil, err
	}
	return jw, nil
}

// Append encodes v and writes it, preceded by ",\n" unless it is the first
// record. An encode failure leaves the output untouched.
func (w *Writer) Append(v any) error {
	if w.finished {
		return ErrFinished
	}
	w.buf.Reset()
	if w.n > 0 {
		w.buf.WriteString(",\n")
	}
	if err := w.enc.Encode(v); err != nil {
		return fmt.Errorf("jsonout: encode record %d: %w", w.n+1, err)
	}
	// Encoder terminates every value with a newline.
	out := bytes.TrimSuffix(w.buf.Bytes(), []byte("\n"))
	if _, err := w.w.Write(out); err != nil {
		return err
	}
	w.n++
	return nil
}

// Finish writes the closing bracket. Calling it again returns ErrFinished.
func (w *Writer) Finish() error {
	if w.finished {
		return ErrFinished
	}
	w.finished = true
	_, err := io.WriteString(w.w, "\n]")
	return err
}

func (w *Writer) Count() int { return w.n }

// File is a Writer bound to a run output file.
type File struct {
	*Writer
	Path string
	f    *os.File
}

// FileName returns the run output name for t, e.g. places_20240131_154500.json.
func FileName(t time.Time) string {
	return "places_" + t.Format("20060102_150405") + ".json"
}

// Create makes dir if needed and opens a new output document in it.
func Create(dir string, now time.Time) (*File, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("jsonout: create output dir: %w", err)
	}
	path := filepath.Join(dir, FileName(now))
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("jsonout: create %s: %w", path, err)
	}
	w, err := New(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &File{Writer: w, Path: path, f: f}, nil
}

// Close finishes the document (if needed) and closes the file. Safe to call
// more than once.
func (f *File) Close() error {
	if f.f == nil {
		return nil
	}
	var ferr error
	if !f.finished {
		ferr = f.Finish()
	}
	cerr := f.f.Close()
	f.f = nil
	if ferr != nil {
		return ferr
	}
	return cerr
}
