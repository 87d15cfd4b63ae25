package memory

import (
	"context"
	"fmt"
	"sync"

	"ledger/internal/core"
	"ledger/internal/sheets"
)

// Store mirrors transactions into an in-process table. Cleared rows keep
// their position, the same way the spreadsheet adapter leaves blank rows.
type Store struct {
	mu    sync.Mutex
	rows  [][]string
	index map[string]int
}

var _ sheets.TransactionMirror = (*Store)(nil)

func New() *Store {
	return &Store{index: make(map[string]int)}
}

// Upsert stores the transaction's row and returns a synthetic row reference.
func (s *Store) Upsert(_ context.Context, t core.Transaction) (string, error) {
	if t.ID == "" {
		return "", fmt.Errorf("transaction id is required")
	}
	values := sheets.RowValues(t)

	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.index[t.ID]; ok {
		s.rows[i] = values
		return fmt.Sprintf("mem:%d", i+1), nil
	}
	s.rows = append(s.rows, values)
	s.index[t.ID] = len(s.rows) - 1
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

func (s *Store) Delete(_ context.Context, transactionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[transactionID]
	if !ok {
		return nil
	}
	s.rows[i] = nil
	delete(s.index, transactionID)
	return nil
}

// Row returns a copy of the transaction's row.
func (s *Store) Row(transactionID string) ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[transactionID]
	if !ok {
		return nil, false
	}
	return append([]string(nil), s.rows[i]...), true
}

// Len counts the rows currently holding a transaction.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.index)
}
