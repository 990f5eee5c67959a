package services

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/isdelr/notebook-be/internal/models"
	"github.com/isdelr/notebook-be/internal/store"
	"github.com/rs/zerolog/log"
)

const (
	backupPrefix     = "notebooks_"
	backupExt        = ".zip"
	backupTimeLayout = "20060102150405"
)

// BackupServiceProvider defines the interface for backup services.
type BackupServiceProvider interface {
	CreateBackup(ctx context.Context) (models.Backup, error)
	ListBackups() ([]models.Backup, error)
}

// BackupService snapshots the persisted collections into zip archives.
type BackupService struct {
	store      store.Store
	backupPath string
	retention  int
	now        func() time.Time
}

// NewBackupService creates a new BackupService. retention <= 0 keeps every archive.
func NewBackupService(st store.Store, backupPath string, retention int, now func() time.Time) *BackupService {
	// Ensure the base directory for backups exists
	if err := os.MkdirAll(backupPath, 0o755); err != nil {
		log.Error().Err(err).Str("path", backupPath).Msg("Failed to create base backup directory")
	}
	return &BackupService{
		store:      st,
		backupPath: backupPath,
		retention:  retention,
		now:        clockOrDefault(now),
	}
}

// CreateBackup writes users.json and sessions.json into a new archive and prunes old ones.
func (s *BackupService) CreateBackup(ctx context.Context) (models.Backup, error) {
	users, err := s.store.Users().Read(ctx)
	if err != nil {
		return models.Backup{}, fmt.Errorf("failed to read users: %w", err)
	}
	sessions, err := s.store.Sessions().Read(ctx)
	if err != nil {
		return models.Backup{}, fmt.Errorf("failed to read sessions: %w", err)
	}

	createdAt := s.now()
	backup := models.Backup{CreatedAt: createdAt}
	stamp := createdAt.UTC().Format(backupTimeLayout)
	files := map[string]any{
		"users.json":    users,
		"sessions.json": sessions,
	}
	for n := 0; ; n++ {
		backup.Name = backupPrefix + stamp + backupExt
		if n > 0 {
			backup.Name = fmt.Sprintf("%s%s_%d%s", backupPrefix, stamp, n, backupExt)
		}
		backup.Path = filepath.Join(s.backupPath, backup.Name)
		err = writeArchive(backup.Path, files)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return models.Backup{}, err
		}
		break
	}

	fi, err := os.Stat(backup.Path)
	if err != nil {
		return models.Backup{}, fmt.Errorf("could not get backup file info: %w", err)
	}
	backup.Size = fi.Size()

	log.Info().Str("backup", backup.Name).Int64("size", backup.Size).Int("users", len(users)).Msg("Backup created")

	if err := s.prune(); err != nil {
		log.Warn().Err(err).Msg("Failed to prune old backups")
	}
	return backup, nil
}

// ListBackups returns the archives in the backup directory, newest first.
func (s *BackupService) ListBackups() ([]models.Backup, error) {
	entries, err := os.ReadDir(s.backupPath)
	if err != nil {
		if os.IsNotExist(err) {
			return []models.Backup{}, nil
		}
		return nil, err
	}

	backups := []models.Backup{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, backupPrefix) || !strings.HasSuffix(name, backupExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		createdAt := info.ModTime()
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, backupPrefix), backupExt)
		stamp, _, _ = strings.Cut(stamp, "_")
		if t, err := time.Parse(backupTimeLayout, stamp); err == nil {
			createdAt = t
		}
		backups = append(backups, models.Backup{
			Name:      name,
			Path:      filepath.Join(s.backupPath, name),
			Size:      info.Size(),
			CreatedAt: createdAt,
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		if !backups[i].CreatedAt.Equal(backups[j].CreatedAt) {
			return backups[i].CreatedAt.After(backups[j].CreatedAt)
		}
		return backups[i].Name > backups[j].Name
	})
	return backups, nil
}

func (s *BackupService) prune() error {
	if s.retention <= 0 {
		return nil
	}
	backups, err := s.ListBackups()
	if err != nil {
		return err
	}
	for _, b := range backups[min(s.retention, len(backups)):] {
		if err := os.Remove(b.Path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("could not delete backup file %s: %w", b.Path, err)
		}
		log.Debug().Str("backup", b.Name).Msg("Pruned backup")
	}
	return nil
}

// writeArchive creates path exclusively, so an existing archive is never
// overwritten; in that case the returned error matches fs.ErrExist.
func writeArchive(path string, files map[string]any) (err error) {
	backupFile, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("could not create backup file: %w", err)
	}
	defer func() {
		backupFile.Close()
		if err != nil {
			os.Remove(path) // Clean up partial file
		}
	}()

	zipWriter := zip.NewWriter(backupFile)

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		data, err := json.MarshalIndent(files[name], "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", name, err)
		}
		writer, err := zipWriter.Create(name)
		if err != nil {
			return err
		}
		if _, err := writer.Write(data); err != nil {
			return err
		}
	}

	if err := zipWriter.Close(); err != nil {
		return fmt.Errorf("failed to finish archive: %w", err)
	}
	return backupFile.Close()
}
