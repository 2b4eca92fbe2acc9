package usecase

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	domrepo "MacroPulse/internal/domain/repository"
)

// ReservesReader passes a static reserves document through unchanged.
type ReservesReader struct {
	path string
}

func NewReservesReader(path string) *ReservesReader {
	return &ReservesReader{path: path}
}

// Read returns the document, ErrNotFound when the file is absent.
func (r *ReservesReader) Read() (json.RawMessage, error) {
	b, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reserves %s: %w", r.path, domrepo.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read reserves: %w", err)
	}
	if !json.Valid(b) {
		return nil, fmt.Errorf("reserves %s: malformed json", r.path)
	}
	return json.RawMessage(b), nil
}
