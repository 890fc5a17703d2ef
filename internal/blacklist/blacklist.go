// Package blacklist реализует чёрный список покупателей магазина.
package blacklist

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrNotPersisted возвращается, если изменение применено в памяти, но не сохранено.
var ErrNotPersisted = errors.New("blacklist not persisted")

// Persister описывает долговременное хранилище чёрного списка.
type Persister interface {
	LoadBlacklist(ctx context.Context) ([]string, error)
	AddToBlacklist(ctx context.Context, username string) error
	RemoveFromBlacklist(ctx context.Context, username string) error
}

// Store — чёрный список без дубликатов. Проверка и вставка выполняются под одной блокировкой.
type Store struct {
	mu        sync.RWMutex
	entries   []string
	index     map[string]struct{}
	persister Persister
	logger    *zap.Logger
}

// Load читает чёрный список из хранилища. Дубликаты в сохранённых данных отбрасываются.
func Load(ctx context.Context, p Persister, logger *zap.Logger) (*Store, error) {
	entries, err := p.LoadBlacklist(ctx)
	if err != nil {
		return nil, fmt.Errorf("load blacklist: %w", err)
	}

	s := &Store{
		index:     make(map[string]struct{}, len(entries)),
		persister: p,
		logger:    logger,
	}
	for _, e := range entries {
		if _, ok := s.index[e]; ok {
			continue
		}
		s.index[e] = struct{}{}
		s.entries = append(s.entries, e)
	}

	logger.Info("blacklist loaded", zap.Int("size", len(s.entries)))
	return s, nil
}

// Contains сообщает, находится ли покупатель в чёрном списке.
func (s *Store) Contains(username string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[username]
	return ok
}

// List возвращает копию чёрного списка в порядке добавления.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len возвращает размер чёрного списка.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Add добавляет покупателя. added равен true только при переходе «нет в списке» → «в списке».
// При ошибке сохранения покупатель остаётся в списке в памяти, а ошибка оборачивает ErrNotPersisted.
func (s *Store) Add(ctx context.Context, username string) (added bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[username]; ok {
		s.logger.Debug("user already in blacklist", zap.String("username", username))
		return false, nil
	}

	s.index[username] = struct{}{}
	s.entries = append(s.entries, username)

	if err := s.persister.AddToBlacklist(ctx, username); err != nil {
		s.logger.Error("failed to save blacklist", zap.String("username", username), zap.Error(err))
		return true, fmt.Errorf("%w: %w", ErrNotPersisted, err)
	}

	s.logger.Info("added to blacklist", zap.String("username", username))
	return true, nil
}

// Remove удаляет покупателя. Для отсутствующего покупателя ничего не делает.
func (s *Store) Remove(ctx context.Context, username string) (removed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[username]; !ok {
		return false, nil
	}

	delete(s.index, username)
	for i, e := range s.entries {
		if e == username {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			break
		}
	}

	if err := s.persister.RemoveFromBlacklist(ctx, username); err != nil {
		s.logger.Error("failed to save blacklist", zap.String("username", username), zap.Error(err))
		return true, fmt.Errorf("%w: %w", ErrNotPersisted, err)
	}

	s.logger.Info("removed from blacklist", zap.String("username", username))
	return true, nil
}
