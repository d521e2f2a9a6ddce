package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
)

var (
	// ErrUnsupportedType файл не является jpeg, png или webp.
	ErrUnsupportedType = errors.New("storage: неподдерживаемый формат изображения")
	// ErrTooLarge файл больше лимита.
	ErrTooLarge = errors.New("storage: файл превышает допустимый размер")
	// ErrEmpty пустой файл.
	ErrEmpty = errors.New("storage: файл пустой")
)

// sniffLen столько байт filetype нужно для определения формата.
const sniffLen = 261

var allowedAvatarTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// AvatarStorage хранит аватары пользователей на диске.
type AvatarStorage struct {
	rootPath       string
	publicPrefix   string
	maxUploadBytes int64
}

// NewAvatarStorage создаёт каталог хранилища, если его нет.
// publicPrefix префикс URL, по которому каталог раздаётся (например, /media).
func NewAvatarStorage(rootPath, publicPrefix string, maxUploadMB int64) (*AvatarStorage, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: не удалось создать каталог %s: %w", rootPath, err)
	}
	return &AvatarStorage{
		rootPath:       rootPath,
		publicPrefix:   publicPrefix,
		maxUploadBytes: maxUploadMB * 1024 * 1024,
	}, nil
}

// Root каталог, который нужно раздавать по publicPrefix.
func (s *AvatarStorage) Root() string {
	return s.rootPath
}

// Save определяет формат по содержимому, сохраняет файл и возвращает публичный URL.
// Предыдущие аватары пользователя удаляются.
func (s *AvatarStorage) Save(ctx context.Context, userID uuid.UUID, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("storage: ошибка чтения файла: %w", err)
	}
	if n == 0 {
		return "", ErrEmpty
	}
	head = head[:n]

	kind, err := filetype.Match(head)
	if err != nil || kind == filetype.Unknown {
		return "", ErrUnsupportedType
	}
	ext, ok := allowedAvatarTypes[kind.MIME.Value]
	if !ok {
		return "", ErrUnsupportedType
	}

	userDir := filepath.Join(s.rootPath, "avatars", userID.String())
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return "", fmt.Errorf("storage: не удалось создать каталог пользователя: %w", err)
	}

	fileName := fmt.Sprintf("%d%s", time.Now().UnixNano(), ext)
	targetPath := filepath.Join(userDir, fileName)
	tempPath := targetPath + ".tmp"

	f, err := os.Create(tempPath)
	if err != nil {
		return "", fmt.Errorf("storage: не удалось создать файл: %w", err)
	}
	defer f.Close()

	limited := io.LimitedReader{R: io.MultiReader(bytes.NewReader(head), r), N: s.maxUploadBytes + 1}
	written, err := io.Copy(f, &limited)
	if err != nil {
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("storage: ошибка записи файла: %w", err)
	}
	if written > s.maxUploadBytes {
		_ = os.Remove(tempPath)
		return "", ErrTooLarge
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("storage: ошибка закрытия файла: %w", err)
	}
	if err := os.Rename(tempPath, targetPath); err != nil {
		return "", fmt.Errorf("storage: не удалось переименовать файл: %w", err)
	}

	s.removeOthers(userDir, fileName)

	return s.publicPrefix + "/avatars/" + userID.String() + "/" + fileName, nil
}

func (s *AvatarStorage) removeOthers(dir, keep string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() || e.Name() == keep {
			continue
		}
		_ = os.Remove(filepath.Join(dir, e.Name()))
	}
}
