package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/xhad/coursechat/internal/models"
	"github.com/xhad/coursechat/internal/types"
	"github.com/xhad/coursechat/pkg/store"
)

const SearchToolName = "search_course_content"

type SearchToolConfig struct {
	Index      types.VectorIndex
	MaxResults int
}

// SearchTool exposes the chunk index to the model as a function tool.
// Execute returns the formatted result text together with the sources
// it drew on; it keeps no state between calls.
type SearchTool struct {
	config SearchToolConfig
}

func NewSearchToolWithConfig(config SearchToolConfig) (*SearchTool, error) {
	if config.Index == nil {
		return nil, fmt.Errorf("vector index is required")
	}
	if config.MaxResults == 0 {
		config.MaxResults = 5
	}
	return &SearchTool{config: config}, nil
}

// Definition describes the tool for the model's tool-use API.
func (t *SearchTool) Definition() llms.Tool {
	return llms.Tool{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        SearchToolName,
			Description: "Search course materials with smart course name matching and lesson filtering",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "What to search for in the course content",
					},
					"course_name": map[string]any{
						"type":        "string",
						"description": "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
					},
					"lesson_number": map[string]any{
						"type":        "integer",
						"description": "Specific lesson number to search within (e.g. 1, 2, 3)",
					},
				},
				"required": []string{"query"},
			},
		},
	}
}

type searchArgs struct {
	Query        string `json:"query"`
	CourseName   string `json:"course_name"`
	LessonNumber *int   `json:"lesson_number"`
}

// Execute runs one search call. Misses are reported as tool text the
// model can read, not as errors; only infrastructure failures return a
// non-nil error.
func (t *SearchTool) Execute(ctx context.Context, arguments string) (string, []models.Source, error) {
	var args searchArgs
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "", nil, fmt.Errorf("invalid tool arguments: %w", err)
	}
	if args.Query == "" {
		return "", nil, fmt.Errorf("tool argument 'query' is required")
	}

	results, err := t.config.Index.Search(ctx, args.Query, args.CourseName, args.LessonNumber, t.config.MaxResults)
	if err != nil {
		if errors.Is(err, store.ErrCourseNotFound) {
			return fmt.Sprintf("No course found matching '%s'", args.CourseName), nil, nil
		}
		return "", nil, err
	}

	if len(results) == 0 {
		return emptyMessage(args), nil, nil
	}

	blocks := make([]string, 0, len(results))
	sources := make([]models.Source, 0, len(results))
	for _, r := range results {
		header := r.CourseTitle
		link := ""
		if r.Lesson != nil {
			header = fmt.Sprintf("%s - Lesson %d", r.CourseTitle, *r.Lesson)
			if l, err := t.config.Index.GetLessonLink(ctx, r.CourseTitle, *r.Lesson); err == nil {
				link = l
			}
		}
		blocks = append(blocks, fmt.Sprintf("[%s]\n%s", header, r.Content))
		sources = append(sources, models.Source{Label: header, Link: link})
	}

	return strings.Join(blocks, "\n\n"), sources, nil
}

func emptyMessage(args searchArgs) string {
	msg := "No relevant content found"
	if args.CourseName != "" {
		msg += fmt.Sprintf(" in course '%s'", args.CourseName)
	}
	if args.LessonNumber != nil {
		msg += fmt.Sprintf(" in lesson %d", *args.LessonNumber)
	}
	return msg + "."
}
