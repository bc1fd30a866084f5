// Package publish delivers migration records to their consumers.
package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"passage_router/pkg/records"
)

// Publisher accepts batches of records.
type Publisher interface {
	PublishLegs(ctx context.Context, legs []records.LegRecord) error
	PublishRoutes(ctx context.Context, routes []records.RouteRecord) error
	Close() error
}

// FileSink writes each batch as a JSON array, replacing the previous file.
// An empty path disables that kind of record.
type FileSink struct {
	LegsPath   string
	RoutesPath string
}

// PublishLegs implements Publisher.
func (f FileSink) PublishLegs(ctx context.Context, legs []records.LegRecord) error {
	return writeJSONFile(f.LegsPath, legs)
}

// PublishRoutes implements Publisher.
func (f FileSink) PublishRoutes(ctx context.Context, routes []records.RouteRecord) error {
	return writeJSONFile(f.RoutesPath, routes)
}

// Close implements Publisher.
func (f FileSink) Close() error { return nil }

// writeJSONFile writes v through a temporary file in the same directory and
// an atomic rename.
func writeJSONFile(path string, v any) error {
	if path == "" {
		return nil
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name()) // clean up on error
	}()

	if err := records.WriteJSON(tmp, v); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// Tee fans every batch out to several publishers. All publishers are tried;
// their errors are joined.
type Tee []Publisher

// PublishLegs implements Publisher.
func (t Tee) PublishLegs(ctx context.Context, legs []records.LegRecord) error {
	var errs []error
	for _, p := range t {
		errs = append(errs, p.PublishLegs(ctx, legs))
	}
	return errors.Join(errs...)
}

// PublishRoutes implements Publisher.
func (t Tee) PublishRoutes(ctx context.Context, routes []records.RouteRecord) error {
	var errs []error
	for _, p := range t {
		errs = append(errs, p.PublishRoutes(ctx, routes))
	}
	return errors.Join(errs...)
}

// Close implements Publisher.
func (t Tee) Close() error {
	var errs []error
	for _, p := range t {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}
