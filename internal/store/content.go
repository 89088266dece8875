package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/variantdl/variantdl/pkg/variantlib"
)

const variantColumns = `id, name, kind, version, required_chipset, min_memory,
    resolution, parent_id, conversion_state, path, download_url`

// AddVariant inserts a content variant into the catalog. Variant rows
// are created by the upload/conversion glue; the core only reads them.
func (s *Store) AddVariant(ctx context.Context, v *variantlib.ContentVariant) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO contents (`+variantColumns+`, uploaded_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, v.ID, v.Name, string(v.Kind), v.Version,
		v.Meta.RequiredChipset, v.Meta.MinMemory, v.Meta.Resolution,
		v.ParentID, string(v.ConversionState), v.Path, v.DownloadURL,
		time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert variant %s: %w", v.ID, err)
	}
	return nil
}

// Variant returns the variant with the given id, or
// variantlib.ErrContentNotFound.
func (s *Store) Variant(ctx context.Context, id string) (*variantlib.ContentVariant, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT `+variantColumns+` FROM contents WHERE id = ?
    `, id)
	v, err := scanVariant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, variantlib.ErrContentNotFound
	}
	return v, err
}

// VariantsByName returns all variants sharing the logical name. When
// any derived variant exists the originals are left out: clients get a
// device-fitted rendition unless only the original upload is available.
func (s *Store) VariantsByName(ctx context.Context, name string) ([]*variantlib.ContentVariant, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT `+variantColumns+` FROM contents WHERE name = ? ORDER BY id
    `, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query variants of %q: %w", name, err)
	}
	defer rows.Close()

	var all []*variantlib.ContentVariant
	derived := false
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, err
		}
		if v.Kind != variantlib.KindOriginal {
			derived = true
		}
		all = append(all, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate variants of %q: %w", name, err)
	}
	if !derived {
		return all, nil
	}
	out := all[:0]
	for _, v := range all {
		if v.Kind != variantlib.KindOriginal {
			out = append(out, v)
		}
	}
	return out, nil
}

// Originals returns all original assets, most recently uploaded first.
func (s *Store) Originals(ctx context.Context) ([]*variantlib.ContentVariant, error) {
	return s.queryVariants(ctx, `
        SELECT `+variantColumns+` FROM contents
        WHERE kind = 'original' ORDER BY uploaded_at DESC
    `)
}

// VariantsOf returns the derived variants of an original asset.
func (s *Store) VariantsOf(ctx context.Context, parentID string) ([]*variantlib.ContentVariant, error) {
	return s.queryVariants(ctx, `
        SELECT `+variantColumns+` FROM contents
        WHERE parent_id = ? ORDER BY kind
    `, parentID)
}

// MarkConversion records a conversion pipeline state transition.
func (s *Store) MarkConversion(ctx context.Context, id string, state variantlib.ConversionState) error {
	res, err := s.db.ExecContext(ctx, `
        UPDATE contents SET conversion_state = ? WHERE id = ?
    `, string(state), id)
	if err != nil {
		return fmt.Errorf("failed to mark conversion of %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return variantlib.ErrContentNotFound
	}
	return nil
}

func (s *Store) queryVariants(ctx context.Context, query string, args ...any) ([]*variantlib.ContentVariant, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query variants: %w", err)
	}
	defer rows.Close()
	var out []*variantlib.ContentVariant
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate variants: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVariant(row rowScanner) (*variantlib.ContentVariant, error) {
	var (
		v           variantlib.ContentVariant
		kind, state string
	)
	err := row.Scan(&v.ID, &v.Name, &kind, &v.Version,
		&v.Meta.RequiredChipset, &v.Meta.MinMemory, &v.Meta.Resolution,
		&v.ParentID, &state, &v.Path, &v.DownloadURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan variant row: %w", err)
	}
	v.Kind = variantlib.Kind(kind)
	v.ConversionState = variantlib.ConversionState(state)
	return &v, nil
}
