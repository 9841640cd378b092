package vectordb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"
	"github.com/poiesic/docvec/core"
	"github.com/poiesic/docvec/storage"
)

const insertColumns = "namespace, document, vector_id, batch_id, metadata, vector, status"

var insertColumnCount = strings.Count(insertColumns, ",") + 1

// row is one vector ready to be written.
type row struct {
	vectorID string
	metadata string
	vector   pgvector.Vector
}

// vectorRow is the scan target for listing queries.
type vectorRow struct {
	Namespace string         `db:"namespace"`
	Document  string         `db:"document"`
	VectorID  string         `db:"vector_id"`
	BatchID   string         `db:"batch_id"`
	Metadata  sql.NullString `db:"metadata"`
	Status    string         `db:"status"`
}

// resultRow is the scan target for similarity queries.
type resultRow struct {
	Namespace  string          `db:"namespace"`
	Document   string          `db:"document"`
	VectorID   string          `db:"vector_id"`
	Metadata   sql.NullString  `db:"metadata"`
	Similarity sql.NullFloat64 `db:"similarity"`
}

// valuesClause renders the VALUES list of a multi-row INSERT:
// rows groups of cols "?" placeholders.
func valuesClause(rows, cols int) string {
	group := "(" + strings.TrimSuffix(strings.Repeat("?, ", cols), ", ") + ")"
	var b strings.Builder
	for r := range rows {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteString(group)
	}
	return b.String()
}

// prepareRows validates and encodes vectors and metadata. Nothing is
// written when any entry is rejected.
func (i *Index) prepareRows(vectors [][]float32, metadatas []any, ids []string) ([]row, error) {
	if len(vectors) != len(metadatas) {
		return nil, fmt.Errorf("%w: %d vectors, %d metadatas", core.ErrLengthMismatch, len(vectors), len(metadatas))
	}
	if ids != nil && len(ids) != len(vectors) {
		return nil, fmt.Errorf("%w: %d vectors, %d ids", core.ErrLengthMismatch, len(vectors), len(ids))
	}

	rows := make([]row, len(vectors))
	for n, vec := range vectors {
		if len(vec) != i.dimension {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, index expects %d",
				core.ErrDimensionMismatch, n, len(vec), i.dimension)
		}
		encoded, err := json.Marshal(metadatas[n])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
		}
		if len(encoded) > core.MaxMetadataBytes {
			return nil, fmt.Errorf("%w: entry %d is %d bytes", core.ErrMetadataTooLarge, n, len(encoded))
		}

		id := uuid.NewString()
		if ids != nil {
			id = ids[n]
		}
		rows[n] = row{vectorID: id, metadata: string(encoded), vector: pgvector.NewVector(vec)}
	}
	return rows, nil
}

// writeRows inserts rows in batches of i.batchSize.
func (i *Index) writeRows(ctx context.Context, ext sqlx.ExtContext, namespace, document, batchID string, status core.VectorStatus, rows []row) error {
	for start := 0; start < len(rows); start += i.batchSize {
		end := min(start+i.batchSize, len(rows))
		batch := rows[start:end]

		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
			i.table, insertColumns, valuesClause(len(batch), insertColumnCount))
		args := make([]any, 0, len(batch)*insertColumnCount)
		for _, r := range batch {
			args = append(args, namespace, document, r.vectorID, batchID, r.metadata, r.vector, status.String())
		}

		if _, err := ext.ExecContext(ctx, ext.Rebind(query), args...); err != nil {
			return fmt.Errorf("failed to insert vectors: %w", err)
		}
		i.logger.Debug("inserted vectors", "document", document, "inserted", end, "total", len(rows))
	}
	return nil
}

// InsertVectors stores one active row per vector. Batches are committed
// independently, so a failure can leave earlier batches written.
func (i *Index) InsertVectors(ctx context.Context, namespace, document string, vectors [][]float32, metadatas []any, opts ...storage.InsertOption) ([]string, error) {
	var options storage.InsertOptions
	for _, opt := range opts {
		opt(&options)
	}

	rows, err := i.prepareRows(vectors, metadatas, options.VectorIDs)
	if err != nil {
		return nil, err
	}

	db, err := i.handle(ctx)
	if err != nil {
		return nil, err
	}
	if err := i.writeRows(ctx, db, namespace, document, "", core.VectorStatusActive, rows); err != nil {
		return nil, err
	}
	return rowIDs(rows), nil
}

// ReplaceDocumentVectors stages the new rows under a fresh batch ID and
// then, in one transaction, retires the document's active rows and
// activates the batch. Readers see either the old set or the new one.
func (i *Index) ReplaceDocumentVectors(ctx context.Context, namespace, document string, vectors [][]float32, metadatas []any) ([]string, error) {
	rows, err := i.prepareRows(vectors, metadatas, nil)
	if err != nil {
		return nil, err
	}

	db, err := i.handle(ctx)
	if err != nil {
		return nil, err
	}

	batchID := uuid.NewString()
	if err := i.writeRows(ctx, db, namespace, document, batchID, core.VectorStatusStaged, rows); err != nil {
		return nil, errors.Join(err, i.discardBatch(db, batchID))
	}

	if err := i.activateBatch(ctx, db, namespace, document, batchID); err != nil {
		return nil, errors.Join(err, i.discardBatch(db, batchID))
	}

	i.logger.Debug("replaced document vectors", "namespace", namespace, "document", document,
		"batch", batchID, "count", len(rows))
	return rowIDs(rows), nil
}

func (i *Index) activateBatch(ctx context.Context, db *sqlx.DB, namespace, document, batchID string) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	retire := tx.Rebind(fmt.Sprintf(
		"UPDATE %s SET status = ? WHERE namespace = ? AND document = ? AND status = ?", i.table))
	if _, err := tx.ExecContext(ctx, retire,
		core.VectorStatusInactive.String(), namespace, document, core.VectorStatusActive.String()); err != nil {
		return fmt.Errorf("failed to retire vectors: %w", err)
	}

	activate := tx.Rebind(fmt.Sprintf(
		"UPDATE %s SET status = ? WHERE batch_id = ? AND status = ?", i.table))
	if _, err := tx.ExecContext(ctx, activate,
		core.VectorStatusActive.String(), batchID, core.VectorStatusStaged.String()); err != nil {
		return fmt.Errorf("failed to activate vectors: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrTransactionFailed, err)
	}
	return nil
}

// discardBatch removes the staged rows of a failed replace. It runs on a
// background context so a canceled caller still gets its rows cleaned up.
func (i *Index) discardBatch(db *sqlx.DB, batchID string) error {
	query := db.Rebind(fmt.Sprintf("DELETE FROM %s WHERE batch_id = ? AND status = ?", i.table))
	if _, err := db.ExecContext(context.Background(), query, batchID, core.VectorStatusStaged.String()); err != nil {
		return fmt.Errorf("failed to discard staged vectors: %w", err)
	}
	return nil
}

// scope renders the namespace and optional document filter.
func scope(namespace, document string) (string, []any) {
	if document == "" {
		return "namespace = ?", []any{namespace}
	}
	return "namespace = ? AND document = ?", []any{namespace, document}
}

// DeleteVectorsInDocument marks a document's active rows inactive. An empty
// document applies to the whole namespace.
func (i *Index) DeleteVectorsInDocument(ctx context.Context, namespace, document string) error {
	db, err := i.handle(ctx)
	if err != nil {
		return err
	}

	where, args := scope(namespace, document)
	query := db.Rebind(fmt.Sprintf("UPDATE %s SET status = ? WHERE %s AND status = ?", i.table, where))
	args = append([]any{core.VectorStatusInactive.String()}, args...)
	args = append(args, core.VectorStatusActive.String())

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete vectors: %w", err)
	}
	return nil
}

// PurgeVectorsInDocument removes a document's rows whatever their status.
// An empty document applies to the whole namespace.
func (i *Index) PurgeVectorsInDocument(ctx context.Context, namespace, document string) error {
	db, err := i.handle(ctx)
	if err != nil {
		return err
	}

	where, args := scope(namespace, document)
	query := db.Rebind(fmt.Sprintf("DELETE FROM %s WHERE %s", i.table, where))
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to purge vectors: %w", err)
	}
	return nil
}

// PurgeInactive removes soft-deleted rows. An empty namespace purges
// every namespace.
func (i *Index) PurgeInactive(ctx context.Context, namespace string) (int64, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE status = ?", i.table)
	args := []any{core.VectorStatusInactive.String()}
	if namespace != "" {
		query += " AND namespace = ?"
		args = append(args, namespace)
	}
	return i.execCount(ctx, query, args...)
}

// PurgeStaged removes rows orphaned by replaces that never completed.
func (i *Index) PurgeStaged(ctx context.Context) (int64, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE status = ?", i.table)
	return i.execCount(ctx, query, core.VectorStatusStaged.String())
}

func (i *Index) execCount(ctx context.Context, query string, args ...any) (int64, error) {
	db, err := i.handle(ctx)
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx, db.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to purge vectors: %w", err)
	}
	return res.RowsAffected()
}

// SetVectorStatusByIDs sets the status of the listed rows.
func (i *Index) SetVectorStatusByIDs(ctx context.Context, ids []string, status core.VectorStatus) error {
	if err := core.ValidateVectorStatus(status); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	query, args, err := sqlx.In(fmt.Sprintf("UPDATE %s SET status = ? WHERE vector_id IN (?)", i.table), status.String(), ids)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrInvalidQuery, err)
	}

	db, err := i.handle(ctx)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, db.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to set vector status: %w", err)
	}
	return nil
}

// GetDocumentVectors lists a document's active rows in insertion order.
// Vector payloads are not loaded.
func (i *Index) GetDocumentVectors(ctx context.Context, namespace, document string) ([]core.VectorRecord, error) {
	db, err := i.handle(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Rebind(fmt.Sprintf(`SELECT namespace, document, vector_id, batch_id, metadata, status
		FROM %s WHERE namespace = ? AND document = ? AND status = ? ORDER BY id`, i.table))

	var rows []vectorRow
	if err := db.SelectContext(ctx, &rows, query, namespace, document, core.VectorStatusActive.String()); err != nil {
		return nil, fmt.Errorf("failed to list vectors: %w", err)
	}

	records := make([]core.VectorRecord, 0, len(rows))
	for _, r := range rows {
		status, err := core.ParseVectorStatus(r.Status)
		if err != nil {
			return nil, err
		}
		records = append(records, core.VectorRecord{
			Namespace: r.Namespace,
			Document:  r.Document,
			VectorID:  r.VectorID,
			BatchID:   r.BatchID,
			Metadata:  r.Metadata.String,
			Status:    status,
		})
	}
	return records, nil
}

// SimilaritySearchByNamespace ranks the namespace's active rows, optionally
// narrowed to one document, by cosine similarity to query.
func (i *Index) SimilaritySearchByNamespace(ctx context.Context, query []float32, namespace, document string, limit int) ([]core.QueryResult, error) {
	where, args := scope(namespace, document)
	return i.search(ctx, query, where, args, limit)
}

// SimilaritySearchByDocuments ranks active rows of the listed documents
// across all namespaces.
func (i *Index) SimilaritySearchByDocuments(ctx context.Context, query []float32, documents []string, limit int) ([]core.QueryResult, error) {
	if len(documents) == 0 {
		return []core.QueryResult{}, nil
	}
	where, args, err := sqlx.In("document IN (?)", documents)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrInvalidQuery, err)
	}
	return i.search(ctx, query, where, args, limit)
}

func (i *Index) search(ctx context.Context, query []float32, where string, whereArgs []any, limit int) ([]core.QueryResult, error) {
	if len(query) != i.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, index expects %d",
			core.ErrDimensionMismatch, len(query), i.dimension)
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	db, err := i.handle(ctx)
	if err != nil {
		return nil, err
	}

	stmt := db.Rebind(fmt.Sprintf(`SELECT namespace, document, vector_id, metadata, 1 - %s AS similarity
		FROM %s WHERE %s AND status = ? ORDER BY similarity DESC LIMIT ?`,
		i.dialect.Distance("vector"), i.table, where))

	args := make([]any, 0, len(whereArgs)+3)
	args = append(args, pgvector.NewVector(query))
	args = append(args, whereArgs...)
	args = append(args, core.VectorStatusActive.String(), limit)

	var rows []resultRow
	if err := db.SelectContext(ctx, &rows, stmt, args...); err != nil {
		return nil, fmt.Errorf("failed to search vectors: %w", err)
	}

	results := make([]core.QueryResult, len(rows))
	for n, r := range rows {
		results[n] = core.QueryResult{
			Namespace:  r.Namespace,
			Document:   r.Document,
			VectorID:   r.VectorID,
			Metadata:   r.Metadata.String,
			Similarity: r.Similarity.Float64,
		}
	}
	return results, nil
}

func rowIDs(rows []row) []string {
	ids := make([]string, len(rows))
	for n, r := range rows {
		ids[n] = r.vectorID
	}
	return ids
}
