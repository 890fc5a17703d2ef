package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
)

// BlacklistFile хранит чёрный список в JSON-массиве строк.
type BlacklistFile struct {
	path string
}

// NewBlacklistFile создаёт хранилище чёрного списка по указанному пути.
func NewBlacklistFile(path string) *BlacklistFile {
	return &BlacklistFile{path: path}
}

// LoadBlacklist читает чёрный список. Отсутствующий файл означает пустой список.
func (f *BlacklistFile) LoadBlacklist(ctx context.Context) ([]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read blacklist: %w", err)
	}

	var entries []string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode blacklist: %w", err)
	}
	return entries, nil
}

// AddToBlacklist дописывает покупателя в файл, если его там ещё нет.
func (f *BlacklistFile) AddToBlacklist(ctx context.Context, username string) error {
	entries, err := f.LoadBlacklist(ctx)
	if err != nil {
		return err
	}
	if slices.Contains(entries, username) {
		return nil
	}
	return writeJSON(f.path, append(entries, username))
}

// RemoveFromBlacklist удаляет покупателя из файла.
func (f *BlacklistFile) RemoveFromBlacklist(ctx context.Context, username string) error {
	entries, err := f.LoadBlacklist(ctx)
	if err != nil {
		return err
	}
	entries = slices.DeleteFunc(entries, func(e string) bool { return e == username })
	if entries == nil {
		entries = []string{}
	}
	return writeJSON(f.path, entries)
}
