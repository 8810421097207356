package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"golang.org/x/time/rate"

	"github.com/xhad/coursechat/internal/models"
	"github.com/xhad/coursechat/internal/types"
)

// ErrCourseNotFound reports a course filter that resolved to nothing.
// Callers distinguish it from an empty result list, which is not an
// error.
var ErrCourseNotFound = errors.New("no matching course found")

type VectorStoreConfig struct {
	ConnString   string
	CoursesTable string
	ChunksTable  string
	VectorDim    int
	BatchSize    int     // chunks embedded per model call during ingestion
	EmbedRate    float64 // embedding calls per second during ingestion
	Embedder     types.Embedder
}

// VectorStore keeps two collections: a course catalog used to resolve
// fuzzy course names, and the chunk index answering semantic search.
// Reads are safe for concurrent use; ingestion is expected to finish
// before query traffic begins.
type VectorStore struct {
	config  VectorStoreConfig
	pool    *pgxpool.Pool
	limiter *rate.Limiter
}

func NewWithConfig(ctx context.Context, config VectorStoreConfig) (*VectorStore, error) {
	if config.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if config.CoursesTable == "" {
		config.CoursesTable = "courses"
	}
	if config.ChunksTable == "" {
		config.ChunksTable = "course_chunks"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768 // nomic-embed-text
	}
	if config.BatchSize == 0 {
		config.BatchSize = 50
	}
	if config.EmbedRate == 0 {
		config.EmbedRate = 5
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	vs := &VectorStore{
		config:  config,
		pool:    pool,
		limiter: rate.NewLimiter(rate.Limit(config.EmbedRate), 1),
	}

	if err := vs.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

func (vs *VectorStore) initialize(ctx context.Context) error {
	_, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createCourses := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			title TEXT PRIMARY KEY,
			course_link TEXT,
			instructor TEXT,
			lessons JSONB,
			embedding vector(%d)
		)`, vs.config.CoursesTable, vs.config.VectorDim)

	if _, err := vs.pool.Exec(ctx, createCourses); err != nil {
		return fmt.Errorf("failed to create courses table: %w", err)
	}

	createChunks := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			course_title TEXT NOT NULL,
			lesson_number INTEGER,
			chunk_index INTEGER NOT NULL,
			content TEXT NOT NULL,
			embedding vector(%d)
		)`, vs.config.ChunksTable, vs.config.VectorDim)

	if _, err := vs.pool.Exec(ctx, createChunks); err != nil {
		return fmt.Errorf("failed to create chunks table: %w", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		vs.config.ChunksTable, vs.config.ChunksTable)

	if _, err := vs.pool.Exec(ctx, createIndex); err != nil {
		return fmt.Errorf("failed to create chunk index: %w", err)
	}

	return nil
}

// AddCourse upserts a course and replaces all of its chunks. Re-adding
// a course with the same title is idempotent.
func (vs *VectorStore) AddCourse(ctx context.Context, course models.Course, chunks []models.CourseChunk) error {
	titleEmbedding, err := vs.embed(ctx, []string{course.Title})
	if err != nil {
		return err
	}

	lessonsJSON, err := json.Marshal(course.Lessons)
	if err != nil {
		return fmt.Errorf("failed to marshal lessons: %w", err)
	}

	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	upsertCourse := fmt.Sprintf(`
		INSERT INTO %s (title, course_link, instructor, lessons, embedding)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (title) DO UPDATE SET
			course_link = EXCLUDED.course_link,
			instructor = EXCLUDED.instructor,
			lessons = EXCLUDED.lessons,
			embedding = EXCLUDED.embedding`,
		vs.config.CoursesTable)

	_, err = tx.Exec(ctx, upsertCourse,
		sanitizeUTF8(course.Title),
		course.Link,
		sanitizeUTF8(course.Instructor),
		lessonsJSON,
		pgvector.NewVector(titleEmbedding[0]),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert course: %w", err)
	}

	deleteChunks := fmt.Sprintf("DELETE FROM %s WHERE course_title = $1", vs.config.ChunksTable)
	if _, err := tx.Exec(ctx, deleteChunks, course.Title); err != nil {
		return fmt.Errorf("failed to clear prior chunks: %w", err)
	}

	insertChunk := fmt.Sprintf(`
		INSERT INTO %s (id, course_title, lesson_number, chunk_index, content, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		vs.config.ChunksTable)

	for start := 0; start < len(chunks); start += vs.config.BatchSize {
		end := start + vs.config.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = sanitizeUTF8(chunk.Content)
		}

		embeddings, err := vs.embed(ctx, texts)
		if err != nil {
			return err
		}

		for i, chunk := range batch {
			id := fmt.Sprintf("%s_%d", course.Title, chunk.Index)
			_, err = tx.Exec(ctx, insertChunk,
				id,
				chunk.CourseTitle,
				chunk.Lesson,
				chunk.Index,
				texts[i],
				pgvector.NewVector(embeddings[i]),
			)
			if err != nil {
				return fmt.Errorf("failed to insert chunk %s: %w", id, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ResolveCourseName maps a fuzzy or partial course name to the
// canonical title of the nearest catalog entry. There is no similarity
// cutoff: a non-empty catalog always yields its best match, so a wrong
// match is a normal possibility for callers.
func (vs *VectorStore) ResolveCourseName(ctx context.Context, name string) (string, error) {
	embedding, err := vs.embedQuery(ctx, name)
	if err != nil {
		return "", err
	}

	query := fmt.Sprintf(`
		SELECT title
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT 1`, vs.config.CoursesTable)

	var title string
	err = vs.pool.QueryRow(ctx, query, pgvector.NewVector(embedding)).Scan(&title)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrCourseNotFound
		}
		return "", fmt.Errorf("failed to resolve course name: %w", err)
	}

	return title, nil
}

// Search embeds the query and returns up to limit chunks ordered by
// increasing distance. A courseName filter is resolved to its
// canonical title first; failure to resolve is ErrCourseNotFound,
// which is distinct from a valid filter matching nothing.
func (vs *VectorStore) Search(ctx context.Context, query string, courseName string, lesson *int, limit int) ([]models.SearchResult, error) {
	canonical := ""
	if courseName != "" {
		resolved, err := vs.ResolveCourseName(ctx, courseName)
		if err != nil {
			if errors.Is(err, ErrCourseNotFound) {
				return nil, fmt.Errorf("course %q: %w", courseName, ErrCourseNotFound)
			}
			return nil, err
		}
		canonical = resolved
	}

	embedding, err := vs.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	sql := fmt.Sprintf(`
		SELECT content, course_title, lesson_number, embedding <=> $1 AS distance
		FROM %s`, vs.config.ChunksTable)
	args := []any{pgvector.NewVector(embedding)}

	var where []string
	if canonical != "" {
		args = append(args, canonical)
		where = append(where, fmt.Sprintf("course_title = $%d", len(args)))
	}
	if lesson != nil {
		args = append(args, *lesson)
		where = append(where, fmt.Sprintf("lesson_number = $%d", len(args)))
	}
	if len(where) > 0 {
		sql += "\n\t\tWHERE " + joinAnd(where)
	}

	args = append(args, limit)
	sql += fmt.Sprintf("\n\t\tORDER BY distance\n\t\tLIMIT $%d", len(args))

	rows, err := vs.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var results []models.SearchResult
	for rows.Next() {
		var r models.SearchResult
		var distance float64
		if err := rows.Scan(&r.Content, &r.CourseTitle, &r.Lesson, &distance); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		r.Distance = float32(distance)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	return results, nil
}

// GetLessonLink returns the stored link for a lesson, or "" when the
// course or lesson has none.
func (vs *VectorStore) GetLessonLink(ctx context.Context, courseTitle string, lesson int) (string, error) {
	query := fmt.Sprintf("SELECT lessons FROM %s WHERE title = $1", vs.config.CoursesTable)

	var lessonsJSON []byte
	if err := vs.pool.QueryRow(ctx, query, courseTitle).Scan(&lessonsJSON); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to load lessons: %w", err)
	}

	var lessons []models.Lesson
	if err := json.Unmarshal(lessonsJSON, &lessons); err != nil {
		return "", fmt.Errorf("failed to unmarshal lessons: %w", err)
	}

	for _, l := range lessons {
		if l.Number == lesson {
			return l.Link, nil
		}
	}
	return "", nil
}

// CourseStats reads the catalog: total count and ordered titles.
func (vs *VectorStore) CourseStats(ctx context.Context) (models.CourseStats, error) {
	query := fmt.Sprintf("SELECT title FROM %s ORDER BY title", vs.config.CoursesTable)

	rows, err := vs.pool.Query(ctx, query)
	if err != nil {
		return models.CourseStats{}, fmt.Errorf("failed to query courses: %w", err)
	}
	defer rows.Close()

	stats := models.CourseStats{CourseTitles: []string{}}
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return models.CourseStats{}, fmt.Errorf("failed to scan title: %w", err)
		}
		stats.CourseTitles = append(stats.CourseTitles, title)
	}
	if err := rows.Err(); err != nil {
		return models.CourseStats{}, fmt.Errorf("failed to read titles: %w", err)
	}

	stats.TotalCourses = len(stats.CourseTitles)
	return stats, nil
}

func (vs *VectorStore) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}

// embed runs one rate-limited embedding call for a batch of texts.
func (vs *VectorStore) embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := vs.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("embedding rate limit: %w", err)
	}
	embeddings, err := vs.config.Embedder.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}
	return embeddings, nil
}

// embedQuery embeds a single query string without rate limiting.
func (vs *VectorStore) embedQuery(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := vs.config.Embedder.CreateEmbedding(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("empty embedding for query")
	}
	return embeddings[0], nil
}

func joinAnd(clauses []string) string {
	out := clauses[0]
	for _, c := range clauses[1:] {
		out += " AND " + c
	}
	return out
}

func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	v := make([]rune, 0, len(s))
	for i, r := range s {
		if r == utf8.RuneError {
			_, size := utf8.DecodeRuneInString(s[i:])
			if size == 1 {
				continue
			}
		}
		v = append(v, r)
	}
	return string(v)
}
