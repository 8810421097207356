package rag

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/tmc/langchaingo/llms"

	"github.com/xhad/coursechat/internal/models"
	"github.com/xhad/coursechat/internal/types"
	"github.com/xhad/coursechat/pkg/llm"
	"github.com/xhad/coursechat/pkg/loader"
	"github.com/xhad/coursechat/pkg/tools"
)

// Answer is the result of one query: the model's final text, the
// sources the search tool drew on (empty when no search ran), and the
// session id the exchange was recorded under.
type Answer struct {
	Text      string          `json:"answer"`
	Sources   []models.Source `json:"sources"`
	SessionID string          `json:"session_id"`
}

type RAGConfig struct {
	Generator  *llm.Generator
	Index      types.VectorIndex
	Sessions   types.SessionStore
	Chunker    types.Chunker
	MaxResults int
}

// RAGSystem ties the pieces together: it ingests course transcripts
// into the vector index and answers queries through the generator,
// giving the model at most one round of tool use per query.
type RAGSystem struct {
	config   RAGConfig
	loader   loader.Loader
	searcher *tools.SearchTool
}

func NewWithConfig(config RAGConfig) (*RAGSystem, error) {
	if config.Generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if config.Index == nil {
		return nil, fmt.Errorf("vector index is required")
	}
	if config.Sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if config.Chunker == nil {
		return nil, fmt.Errorf("chunker is required")
	}

	docLoader, err := loader.NewWithConfig(loader.LoaderConfig{Chunker: config.Chunker})
	if err != nil {
		return nil, err
	}

	searcher, err := tools.NewSearchToolWithConfig(tools.SearchToolConfig{
		Index:      config.Index,
		MaxResults: config.MaxResults,
	})
	if err != nil {
		return nil, err
	}

	return &RAGSystem{
		config:   config,
		loader:   docLoader,
		searcher: searcher,
	}, nil
}

// Answer handles one user query. The model is offered the search tool
// once; if it calls, the tool results are fed back and a final
// generation runs with tools disabled, so every query finishes in at
// most two model calls.
func (r *RAGSystem) Answer(ctx context.Context, query string, sessionID string) (Answer, error) {
	if sessionID == "" {
		sessionID = r.config.Sessions.NewSessionID()
	}

	history, _ := r.config.Sessions.GetHistory(sessionID)
	system := llm.BuildSystem(history)

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, query),
	}

	choice, err := r.config.Generator.Generate(ctx, system, messages, []llms.Tool{r.searcher.Definition()})
	if err != nil {
		return Answer{}, err
	}

	var sources []models.Source
	answerText := choice.Content

	if len(choice.ToolCalls) > 0 {
		assistant := llms.MessageContent{Role: llms.ChatMessageTypeAI}
		if choice.Content != "" {
			assistant.Parts = append(assistant.Parts, llms.TextContent{Text: choice.Content})
		}
		for _, tc := range choice.ToolCalls {
			assistant.Parts = append(assistant.Parts, tc)
		}
		messages = append(messages, assistant)

		for _, tc := range choice.ToolCalls {
			text, toolSources := r.executeToolCall(ctx, tc)
			sources = append(sources, toolSources...)
			messages = append(messages, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: tc.ID,
					Name:       tc.FunctionCall.Name,
					Content:    text,
				}},
			})
		}

		final, err := r.config.Generator.Generate(ctx, system, messages, nil)
		if err != nil {
			return Answer{}, err
		}
		answerText = final.Content
	}

	r.config.Sessions.AddExchange(sessionID, query, answerText)

	if sources == nil {
		sources = []models.Source{}
	}
	return Answer{Text: answerText, Sources: sources, SessionID: sessionID}, nil
}

// executeToolCall never fails the query: failures come back as tool
// text the model can acknowledge in its final answer.
func (r *RAGSystem) executeToolCall(ctx context.Context, tc llms.ToolCall) (string, []models.Source) {
	if tc.FunctionCall == nil || tc.FunctionCall.Name != tools.SearchToolName {
		name := "unknown"
		if tc.FunctionCall != nil {
			name = tc.FunctionCall.Name
		}
		return fmt.Sprintf("Tool '%s' not found", name), nil
	}

	text, sources, err := r.searcher.Execute(ctx, tc.FunctionCall.Arguments)
	if err != nil {
		return fmt.Sprintf("Tool execution error: %v", err), nil
	}
	return text, sources
}

// AddCourseFolder ingests every transcript in dir, skipping files that
// fail to parse and courses already present in the index. It returns
// how many courses and chunks were added.
func (r *RAGSystem) AddCourseFolder(ctx context.Context, dir string) (int, int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read course folder: %w", err)
	}

	stats, err := r.config.Index.CourseStats(ctx)
	if err != nil {
		return 0, 0, err
	}
	existing := make(map[string]bool, stats.TotalCourses)
	for _, title := range stats.CourseTitles {
		existing[title] = true
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}

	bar := progressbar.Default(int64(len(files)), "indexing courses")
	coursesAdded, chunksAdded := 0, 0
	for _, path := range files {
		course, chunks, err := r.loader.LoadFile(path)
		if err != nil {
			var parseErr *loader.ParseError
			if errors.As(err, &parseErr) {
				log.Printf("skipping %s: %v", path, err)
			} else {
				log.Printf("failed to read %s: %v", path, err)
			}
			bar.Add(1)
			continue
		}

		if existing[course.Title] {
			bar.Add(1)
			continue
		}

		if err := r.config.Index.AddCourse(ctx, course, chunks); err != nil {
			return coursesAdded, chunksAdded, fmt.Errorf("failed to index %s: %w", course.Title, err)
		}
		existing[course.Title] = true
		coursesAdded++
		chunksAdded += len(chunks)
		bar.Add(1)
	}

	return coursesAdded, chunksAdded, nil
}

// CourseStats exposes catalog analytics for the API layer.
func (r *RAGSystem) CourseStats(ctx context.Context) (models.CourseStats, error) {
	return r.config.Index.CourseStats(ctx)
}
