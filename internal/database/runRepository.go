package database

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/ds124wfegd/imageslicer/internal/entity"
	"github.com/ds124wfegd/imageslicer/internal/pkg/storage"
)

const (
	metadataDir = "metadata"
	slicesDir   = "slices"
)

func NewRunRepository(storage storage.BlobStorage) RunRepository {
	return &blobRunRepository{storage: storage}
}

// Save stores the run metadata and every slice blob. A run is written once.
func (r *blobRunRepository) Save(run *entity.Run) error {
	for _, s := range run.Slices {
		if err := r.storage.Save(r.getSlicePath(run.ID, s.Name), bytes.NewReader(s.Bytes)); err != nil {
			r.storage.DeletePrefix(r.getSliceDir(run.ID))
			return err
		}
	}

	data, err := json.Marshal(run)
	if err != nil {
		r.storage.DeletePrefix(r.getSliceDir(run.ID))
		return err
	}

	return r.storage.Save(r.getMetadataPath(run.ID), bytes.NewReader(data))
}

// FindByID loads the run together with its slice bytes.
func (r *blobRunRepository) FindByID(id string) (*entity.Run, error) {
	run, err := r.readMetadata(id)
	if err != nil {
		return nil, err
	}

	for i := range run.Slices {
		data, err := r.GetSlice(id, run.Slices[i].Name)
		if err != nil {
			return nil, err
		}
		run.Slices[i].Bytes = data
	}
	return run, nil
}

func (r *blobRunRepository) GetSlice(id, name string) ([]byte, error) {
	if !r.storage.Exists(r.getMetadataPath(id)) {
		return nil, entity.ErrRunNotFound
	}

	reader, err := r.storage.Get(r.getSlicePath(id, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, entity.ErrSliceNotFound
		}
		return nil, err
	}
	defer reader.Close()

	return io.ReadAll(reader)
}

// Delete releases every blob held for the run.
func (r *blobRunRepository) Delete(id string) error {
	if err := r.storage.Delete(r.getMetadataPath(id)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return entity.ErrRunNotFound
		}
		return err
	}

	r.storage.DeletePrefix(r.getSliceDir(id))
	return nil
}

func (r *blobRunRepository) ListCreatedBefore(t time.Time) ([]string, error) {
	var ids []string
	for _, p := range r.storage.List(metadataDir + "/") {
		id := strings.TrimSuffix(path.Base(p), ".json")

		run, err := r.readMetadata(id)
		if err != nil {
			if errors.Is(err, entity.ErrRunNotFound) {
				continue
			}
			return nil, err
		}
		if run.CreatedAt.Before(t) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *blobRunRepository) readMetadata(id string) (*entity.Run, error) {
	reader, err := r.storage.Get(r.getMetadataPath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, entity.ErrRunNotFound
		}
		return nil, err
	}
	defer reader.Close()

	var run entity.Run
	if err := json.NewDecoder(reader).Decode(&run); err != nil {
		return nil, fmt.Errorf("decoding run %s: %w", id, err)
	}
	return &run, nil
}

func (r *blobRunRepository) getMetadataPath(id string) string {
	return path.Join(metadataDir, id+".json")
}

func (r *blobRunRepository) getSliceDir(id string) string {
	return path.Join(slicesDir, id) + "/"
}

func (r *blobRunRepository) getSlicePath(id, name string) string {
	return path.Join(slicesDir, id, name)
}
