package ai

import "errors"

// Ошибки пайплайна диаризации. Каждая стадия оборачивает свою ошибку
// через fmt.Errorf("...: %w", ...) с контекстом (файл, стадия),
// вид ошибки проверяется через errors.Is
var (
	// ErrFileNotFound путь к аудио файлу не существует
	ErrFileNotFound = errors.New("audio file not found")

	// ErrFileTooSmall файл меньше минимального размера (пустая/битая запись)
	ErrFileTooSmall = errors.New("audio file too small")

	// ErrInvalidAudioFormat файл не удалось декодировать
	ErrInvalidAudioFormat = errors.New("invalid audio format")

	// ErrNoVoiceDetected в записи не найдено голосовой активности
	// Для диаризации это не ошибка (пустой результат), для создания
	// voiceprint профиля - фатально
	ErrNoVoiceDetected = errors.New("no voice detected")

	// ErrEmbeddingExtractionFailed модель не смогла обработать окно
	// (например, окно короче минимального рецептивного поля)
	ErrEmbeddingExtractionFailed = errors.New("embedding extraction failed")

	// ErrClusteringFailed нарушение внутреннего инварианта кластеризации
	// (пустой набор эмбеддингов, разная размерность векторов)
	ErrClusteringFailed = errors.New("clustering failed")
)

// minAudioFileBytes минимальный размер аудио файла
// Отсекает пустые и оборванные записи до попытки декодирования
const minAudioFileBytes = 1024
