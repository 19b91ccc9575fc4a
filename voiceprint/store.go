package voiceprint

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Store хранилище голосовых профилей в JSON файле
type Store struct {
	path string
	data profileFile
	mu   sync.RWMutex
}

// NewStore создаёт новое хранилище профилей
// dataDir - директория с данными приложения; профили лежат в speakers.json
func NewStore(dataDir string) (*Store, error) {
	path := filepath.Join(dataDir, "speakers.json")

	store := &Store{
		path: path,
		data: profileFile{Version: CurrentVersion},
	}

	if err := store.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load speakers: %w", err)
	}

	log.Printf("[VoicePrint] Store initialized: %s (%d profiles)", path, len(store.data.Profiles))
	return store, nil
}

// load загружает данные из файла
func (s *Store) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, &s.data); err != nil {
		return fmt.Errorf("failed to parse speakers.json: %w", err)
	}

	// Миграция если нужна
	if s.data.Version < CurrentVersion {
		if err := s.migrate(); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// migrate выполняет миграцию формата
func (s *Store) migrate() error {
	switch s.data.Version {
	case 0:
		// Миграция с v0 на v1
		s.data.Version = 1
		return s.saveUnsafe()
	default:
		return nil
	}
}

// saveUnsafe сохраняет без блокировки (вызывать только при удержании lock)
// Запись атомарная: через временный файл и rename
func (s *Store) saveUnsafe() error {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal speakers: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath) // Cleanup
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// GetAll возвращает копию всех профилей
func (s *Store) GetAll() []Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Profile, len(s.data.Profiles))
	copy(result, s.data.Profiles)
	return result
}

// Get возвращает профиль по ID
func (s *Store) Get(id string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.data.Profiles {
		if s.data.Profiles[i].ID == id {
			p := s.data.Profiles[i]
			return &p, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, id)
}

// Add добавляет новый профиль
func (s *Store) Add(profile Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.data.Profiles {
		if s.data.Profiles[i].ID == profile.ID {
			return fmt.Errorf("profile already exists: %s", profile.ID)
		}
	}

	s.data.Profiles = append(s.data.Profiles, profile)

	if err := s.saveUnsafe(); err != nil {
		// Откатываем изменения
		s.data.Profiles = s.data.Profiles[:len(s.data.Profiles)-1]
		return err
	}

	log.Printf("[VoicePrint] Added: %s (%s)", profile.Name, shortID(profile.ID))
	return nil
}

// Update заменяет профиль с тем же ID
func (s *Store) Update(profile Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.data.Profiles {
		if s.data.Profiles[i].ID == profile.ID {
			s.data.Profiles[i] = profile
			return s.saveUnsafe()
		}
	}

	return fmt.Errorf("%w: %s", ErrProfileNotFound, profile.ID)
}

// UpdateName обновляет имя профиля
func (s *Store) UpdateName(id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.data.Profiles {
		if s.data.Profiles[i].ID == id {
			s.data.Profiles[i].Name = name
			s.data.Profiles[i].LastUpdated = time.Now()
			return s.saveUnsafe()
		}
	}

	return fmt.Errorf("%w: %s", ErrProfileNotFound, id)
}

// MarkSeen отмечает что профиль был распознан в записи
func (s *Store) MarkSeen(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.data.Profiles {
		if s.data.Profiles[i].ID == id {
			s.data.Profiles[i].SeenCount++
			s.data.Profiles[i].LastSeenAt = time.Now()
			return s.saveUnsafe()
		}
	}

	return fmt.Errorf("%w: %s", ErrProfileNotFound, id)
}

// Delete удаляет профиль
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.data.Profiles {
		if s.data.Profiles[i].ID == id {
			name := s.data.Profiles[i].Name
			s.data.Profiles = append(
				s.data.Profiles[:i],
				s.data.Profiles[i+1:]...,
			)
			if err := s.saveUnsafe(); err != nil {
				return err
			}
			log.Printf("[VoicePrint] Deleted: %s (%s)", name, shortID(id))
			return nil
		}
	}

	return fmt.Errorf("%w: %s", ErrProfileNotFound, id)
}

// Count возвращает количество сохранённых профилей
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data.Profiles)
}

// SetSamplePath устанавливает путь к аудио-сэмплу профиля
func (s *Store) SetSamplePath(id, samplePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.data.Profiles {
		if s.data.Profiles[i].ID == id {
			s.data.Profiles[i].SamplePath = samplePath
			s.data.Profiles[i].LastUpdated = time.Now()
			return s.saveUnsafe()
		}
	}

	return fmt.Errorf("%w: %s", ErrProfileNotFound, id)
}

// SamplesDir возвращает директорию для хранения аудио-сэмплов
func (s *Store) SamplesDir() string {
	return filepath.Join(filepath.Dir(s.path), "speakers")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
