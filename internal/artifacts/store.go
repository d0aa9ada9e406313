// Package artifacts stores generated cohort files on the local
// filesystem, one directory per job.
package artifacts

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// ArtifactInfo contains metadata about a stored output file.
type ArtifactInfo struct {
	JobID     string `json:"job_id"`
	Filename  string `json:"filename"`
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
}

// Store is the interface for job output storage.
type Store interface {
	// CreateWriter opens a streaming writer for one output file of a
	// job, creating directories as needed. The caller must Close it.
	CreateWriter(jobID, filename string) (io.WriteCloser, string, error)

	// ListArtifacts lists all output files for a job.
	ListArtifacts(jobID string) ([]ArtifactInfo, error)

	// WriteArchive streams all output files of a job as a tar archive.
	WriteArchive(jobID string, w io.Writer) error

	// DeleteArtifacts removes all output files for a job. Used for
	// partial-output cleanup on failure or cancellation, and by
	// retention.
	DeleteArtifacts(jobID string) error
}

// FilesystemStore implements Store under {baseDir}/{jobID}/{filename}.
type FilesystemStore struct {
	baseDir string
	mu      sync.RWMutex
}

// NewFilesystemStore creates the store, creating the base directory if
// it does not exist.
func NewFilesystemStore(baseDir string) (*FilesystemStore, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("base directory cannot be empty")
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &FilesystemStore{baseDir: baseDir}, nil
}

// CreateWriter opens a file for streaming writes. Serialized cohorts can
// run to gigabytes, so outputs are never buffered whole in memory.
func (fs *FilesystemStore) CreateWriter(jobID, filename string) (io.WriteCloser, string, error) {
	if jobID == "" {
		return nil, "", fmt.Errorf("job ID cannot be empty")
	}
	if filename == "" {
		return nil, "", fmt.Errorf("filename cannot be empty")
	}
	if filepath.Base(filename) != filename {
		return nil, "", fmt.Errorf("filename cannot contain path separators")
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	dir := filepath.Join(fs.baseDir, jobID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, "", fmt.Errorf("failed to create job directory: %w", err)
	}

	path := filepath.Join(dir, filename)
	f, err := os.Create(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create output file: %w", err)
	}
	return f, path, nil
}

// ListArtifacts lists the output files of a job. A job with no outputs
// yields an empty list, not an error.
func (fs *FilesystemStore) ListArtifacts(jobID string) ([]ArtifactInfo, error) {
	if jobID == "" {
		return nil, fmt.Errorf("job ID cannot be empty")
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	dir := filepath.Join(fs.baseDir, jobID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []ArtifactInfo{}, nil
		}
		return nil, fmt.Errorf("failed to read job directory: %w", err)
	}

	artifacts := make([]ArtifactInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		artifacts = append(artifacts, ArtifactInfo{
			JobID:     jobID,
			Filename:  entry.Name(),
			Path:      filepath.Join(dir, entry.Name()),
			SizeBytes: info.Size(),
		})
	}
	return artifacts, nil
}

// WriteArchive streams the job's outputs as an uncompressed tar; each
// format file is already individually gzipped when the job requested it.
func (fs *FilesystemStore) WriteArchive(jobID string, w io.Writer) error {
	infos, err := fs.ListArtifacts(jobID)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		return fmt.Errorf("no artifacts for job %s", jobID)
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	tw := tar.NewWriter(w)
	for _, info := range infos {
		f, err := os.Open(info.Path)
		if err != nil {
			return fmt.Errorf("failed to open artifact: %w", err)
		}
		hdr := &tar.Header{
			Name: info.Filename,
			Mode: 0644,
			Size: info.SizeBytes,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			f.Close()
			return fmt.Errorf("failed to write tar header: %w", err)
		}
		if _, err := io.Copy(tw, f); err != nil {
			f.Close()
			return fmt.Errorf("failed to stream artifact: %w", err)
		}
		f.Close()
	}
	return tw.Close()
}

// DeleteArtifacts removes a job's output directory. Deleting a job that
// never wrote anything is a no-op.
func (fs *FilesystemStore) DeleteArtifacts(jobID string) error {
	if jobID == "" {
		return fmt.Errorf("job ID cannot be empty")
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	dir := filepath.Join(fs.baseDir, jobID)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to delete artifacts: %w", err)
	}
	return nil
}

// BaseDir returns the base directory of the store.
func (fs *FilesystemStore) BaseDir() string {
	return fs.baseDir
}
