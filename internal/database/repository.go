package database

import (
	"time"

	"github.com/ds124wfegd/imageslicer/internal/entity"
	"github.com/ds124wfegd/imageslicer/internal/pkg/storage"
)

type RunRepository interface {
	Save(run *entity.Run) error
	FindByID(id string) (*entity.Run, error)
	GetSlice(id, name string) ([]byte, error)
	Delete(id string) error
	ListCreatedBefore(t time.Time) ([]string, error)
}

type blobRunRepository struct {
	storage storage.BlobStorage
}
