package reliability

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/rqlab/internal/database"
	"github.com/aristath/rqlab/internal/events"
)

const backupPrefix = "backups/"

// BackupMetadata rides inside each archive next to the database file.
type BackupMetadata struct {
	Timestamp time.Time `json:"timestamp"`
	Database  string    `json:"database"`
	SizeBytes int64     `json:"size_bytes"`
	Checksum  string    `json:"checksum"` // sha256 of the database file
}

// BackupInfo describes a completed backup upload.
type BackupInfo struct {
	Key       string    `json:"key"`
	SizeBytes int64     `json:"size_bytes"`
	Timestamp time.Time `json:"timestamp"`
}

// BackupService archives the results database and uploads it to object
// storage. A WAL checkpoint runs first so the archived file is complete.
type BackupService struct {
	storage   *StorageClient
	resultsDB *database.DB
	bus       *events.Bus
	retention int // number of remote archives to keep
	log       zerolog.Logger
}

// NewBackupService creates a new backup service
func NewBackupService(storage *StorageClient, resultsDB *database.DB, bus *events.Bus, retention int, log zerolog.Logger) *BackupService {
	return &BackupService{
		storage:   storage,
		resultsDB: resultsDB,
		bus:       bus,
		retention: retention,
		log:       log.With().Str("service", "backup").Logger(),
	}
}

// BackupNow archives the results database, uploads the archive, and prunes
// remote archives past the retention count.
func (s *BackupService) BackupNow(ctx context.Context) (*BackupInfo, error) {
	if err := s.resultsDB.Checkpoint(); err != nil {
		return nil, fmt.Errorf("pre-backup checkpoint: %w", err)
	}

	archive, meta, err := s.createArchive()
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%sresults-%s.tar.gz", backupPrefix, meta.Timestamp.UTC().Format("20060102-150405"))
	if err := s.storage.Upload(ctx, key, bytes.NewReader(archive)); err != nil {
		return nil, err
	}

	info := &BackupInfo{
		Key:       key,
		SizeBytes: int64(len(archive)),
		Timestamp: meta.Timestamp,
	}

	s.log.Info().
		Str("key", key).
		Int64("size_bytes", info.SizeBytes).
		Str("checksum", meta.Checksum).
		Msg("Backup uploaded")

	s.bus.Publish(&events.BackupCompletedData{Key: key, SizeBytes: info.SizeBytes})

	if err := s.pruneRemote(ctx); err != nil {
		// The backup itself succeeded; retention failure is logged only.
		s.log.Error().Err(err).Msg("Failed to prune old backups")
	}

	return info, nil
}

// List returns remote backup archives, newest first.
func (s *BackupService) List(ctx context.Context) ([]ObjectInfo, error) {
	return s.storage.List(ctx, backupPrefix)
}

// createArchive builds a tar.gz holding the database file and its metadata.
func (s *BackupService) createArchive() ([]byte, *BackupMetadata, error) {
	dbPath := s.resultsDB.Path()
	dbBytes, err := os.ReadFile(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read database file %s: %w", dbPath, err)
	}

	meta := &BackupMetadata{
		Timestamp: time.Now(),
		Database:  s.resultsDB.Name(),
		SizeBytes: int64(len(dbBytes)),
		Checksum:  fmt.Sprintf("%x", sha256.Sum256(dbBytes)),
	}
	metaBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode backup metadata: %w", err)
	}

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)

	files := []struct {
		name string
		data []byte
	}{
		{"results.db", dbBytes},
		{"metadata.json", metaBytes},
	}
	for _, f := range files {
		hdr := &tar.Header{
			Name:    f.name,
			Mode:    0644,
			Size:    int64(len(f.data)),
			ModTime: meta.Timestamp,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, nil, fmt.Errorf("failed to write archive header for %s: %w", f.name, err)
		}
		if _, err := io.Copy(tw, bytes.NewReader(f.data)); err != nil {
			return nil, nil, fmt.Errorf("failed to write %s into archive: %w", f.name, err)
		}
	}

	if err := tw.Close(); err != nil {
		return nil, nil, fmt.Errorf("failed to finalize archive: %w", err)
	}
	if err := gw.Close(); err != nil {
		return nil, nil, fmt.Errorf("failed to finalize compression: %w", err)
	}

	return buf.Bytes(), meta, nil
}

// pruneRemote keeps only the newest retention archives.
func (s *BackupService) pruneRemote(ctx context.Context) error {
	if s.retention <= 0 {
		return nil
	}
	objects, err := s.storage.List(ctx, backupPrefix)
	if err != nil {
		return err
	}
	for _, obj := range objects[min(s.retention, len(objects)):] {
		if err := s.storage.Delete(ctx, obj.Key); err != nil {
			return err
		}
		s.log.Info().Str("key", obj.Key).Msg("Removed expired backup")
	}
	return nil
}
