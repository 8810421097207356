package types

import (
	"context"

	"github.com/xhad/coursechat/internal/models"
)

// Core interfaces
type VectorIndex interface {
	AddCourse(ctx context.Context, course models.Course, chunks []models.CourseChunk) error
	ResolveCourseName(ctx context.Context, name string) (string, error)
	Search(ctx context.Context, query string, courseName string, lesson *int, limit int) ([]models.SearchResult, error)
	GetLessonLink(ctx context.Context, courseTitle string, lesson int) (string, error)
	CourseStats(ctx context.Context) (models.CourseStats, error)
	Close()
}

type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

type Chunker interface {
	Chunk(text string) []string
}

type SessionStore interface {
	NewSessionID() string
	GetHistory(sessionID string) (string, bool)
	AddExchange(sessionID, userMessage, assistantMessage string)
}
