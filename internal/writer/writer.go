package writer

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

type MapperFunc[T any] func(T) []string

type HeaderFunc[T any] func() []string

// CSVWriter streams rows of T into a single CSV file. The header is written
// before the first row. Safe for concurrent use.
type CSVWriter[T any] struct {
	mu        sync.Mutex
	file      *os.File
	csv       *csv.Writer
	hasHeader bool
	closed    bool
	mapper    MapperFunc[T]
	header    HeaderFunc[T]
}

// NewCSVWriter creates (or truncates) outputPath, creating parent directories.
func NewCSVWriter[T any](outputPath string, mapper MapperFunc[T], header HeaderFunc[T]) (*CSVWriter[T], error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	file, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("opening CSV file: %w", err)
	}
	return &CSVWriter[T]{
		file:   file,
		csv:    csv.NewWriter(file),
		mapper: mapper,
		header: header,
	}, nil
}

// Write appends rows and flushes them to disk.
func (cw *CSVWriter[T]) Write(rows ...T) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.closed {
		return fmt.Errorf("writer is closed")
	}
	if len(rows) == 0 {
		return nil
	}

	if !cw.hasHeader {
		if err := cw.csv.Write(cw.header()); err != nil {
			return fmt.Errorf("writing CSV header: %w", err)
		}
		cw.hasHeader = true
	}

	for _, row := range rows {
		if err := cw.csv.Write(cw.mapper(row)); err != nil {
			return fmt.Errorf("writing CSV record: %w", err)
		}
	}

	cw.csv.Flush()
	if err := cw.csv.Error(); err != nil {
		return fmt.Errorf("flushing CSV: %w", err)
	}
	return nil
}

func (cw *CSVWriter[T]) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.closed {
		return nil
	}
	cw.closed = true
	cw.csv.Flush()
	if err := cw.csv.Error(); err != nil {
		cw.file.Close()
		return fmt.Errorf("flushing CSV: %w", err)
	}
	return cw.file.Close()
}
