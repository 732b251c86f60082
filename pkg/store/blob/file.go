package blob

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeremyhahn/go-certificate-authority/pkg/logging"
	"github.com/spf13/afero"
)

var (
	ErrBlobNotFound = errors.New("store/blob: blob not found")
)

type BlobStorer interface {
	Delete(key []byte) error
	Exists(key []byte) bool
	Get(key []byte) ([]byte, error)
	Save(key, data []byte) error
}

type BlobStore struct {
	logger  *logging.Logger
	fs      afero.Fs
	rootDir string
}

// Creates a new blob key using the provided partition and file name
func NewKey(partition, name string) []byte {
	if partition == "" {
		return []byte(name)
	}
	return []byte(fmt.Sprintf("%s/%s", partition, name))
}

// Creates a new blob store rooted at rootDir on the provided file system
func NewFSBlobStore(
	logger *logging.Logger,
	fs afero.Fs,
	rootDir string) (BlobStorer, error) {

	if err := fs.MkdirAll(rootDir, os.ModePerm); err != nil {
		logger.Error(err)
		return nil, err
	}
	return &BlobStore{
		logger:  logger,
		fs:      fs,
		rootDir: rootDir,
	}, nil
}

func (store *BlobStore) path(key []byte) string {
	return filepath.Join(store.rootDir, strings.TrimLeft(string(key), "/"))
}

// Saves a blob to the blob store. Forward slashes in the key create a
// matching directory hierarchy, ex: the key issued/0a.crt is saved to
// root-dir/issued/0a.crt
func (store *BlobStore) Save(key, data []byte) error {
	blobFile := store.path(key)
	if err := store.fs.MkdirAll(filepath.Dir(blobFile), os.ModePerm); err != nil {
		store.logger.Errorf("%s: %s", err, key)
		return err
	}
	if err := afero.WriteFile(store.fs, blobFile, data, 0600); err != nil {
		store.logger.Errorf("%s: %s", err, key)
		return err
	}
	return nil
}

// Retrieves a blob. ErrBlobNotFound is returned if the key does not exist.
func (store *BlobStore) Get(key []byte) ([]byte, error) {
	bytes, err := afero.ReadFile(store.fs, store.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			store.logger.Debugf("%s: %s", ErrBlobNotFound, key)
			return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, key)
		}
		return nil, err
	}
	return bytes, nil
}

func (store *BlobStore) Exists(key []byte) bool {
	ok, err := afero.Exists(store.fs, store.path(key))
	return err == nil && ok
}

// Deletes a blob. ErrBlobNotFound is returned if the key does not exist.
func (store *BlobStore) Delete(key []byte) error {
	blobFile := store.path(key)
	if _, err := store.fs.Stat(blobFile); err != nil {
		return fmt.Errorf("%w: %s", ErrBlobNotFound, key)
	}
	return store.fs.RemoveAll(blobFile)
}
