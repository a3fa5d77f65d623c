package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"path"
	"time"

	"github.com/ds124wfegd/imageslicer/internal/entity"
)

const nameLayout = "20060102_150405"

type Entry struct {
	Name string
	Data []byte
}

// Pack writes entries into a flat zip archive, each under its own name.
func Pack(entries []Entry, modified time.Time) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if err := validName(e.Name); err != nil {
			w.Close()
			return nil, err
		}
		if _, dup := seen[e.Name]; dup {
			w.Close()
			return nil, fmt.Errorf("%w: duplicate entry %q", entity.ErrPackagingFailure, e.Name)
		}
		seen[e.Name] = struct{}{}

		f, err := w.CreateHeader(&zip.FileHeader{
			Name:     e.Name,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			w.Close()
			return nil, fmt.Errorf("%w: creating %s: %v", entity.ErrPackagingFailure, e.Name, err)
		}
		if _, err := f.Write(e.Data); err != nil {
			w.Close()
			return nil, fmt.Errorf("%w: writing %s: %v", entity.ErrPackagingFailure, e.Name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrPackagingFailure, err)
	}
	return buf.Bytes(), nil
}

// FromSlices turns slice results into archive entries, keeping their order.
func FromSlices(slices []entity.SliceResult) []Entry {
	entries := make([]Entry, 0, len(slices))
	for _, s := range slices {
		entries = append(entries, Entry{Name: s.Name, Data: s.Bytes})
	}
	return entries
}

// Name is the download file name of an archive created at t.
func Name(t time.Time) string {
	return "slices_" + t.Format(nameLayout) + ".zip"
}

func validName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty entry name", entity.ErrPackagingFailure)
	}
	if path.Base(name) != name || name == "." || name == ".." {
		return fmt.Errorf("%w: entry %q must not contain directories", entity.ErrPackagingFailure, name)
	}
	return nil
}
