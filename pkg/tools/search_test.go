package tools_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/coursechat/internal/models"
	"github.com/xhad/coursechat/pkg/store"
	"github.com/xhad/coursechat/pkg/tools"
)

type fakeIndex struct {
	results     []models.SearchResult
	searchErr   error
	lessonLinks map[string]string

	gotQuery  string
	gotCourse string
	gotLesson *int
	gotLimit  int
}

func (f *fakeIndex) AddCourse(context.Context, models.Course, []models.CourseChunk) error {
	return nil
}

func (f *fakeIndex) ResolveCourseName(_ context.Context, name string) (string, error) {
	return name, nil
}

func (f *fakeIndex) Search(_ context.Context, query, courseName string, lesson *int, limit int) ([]models.SearchResult, error) {
	f.gotQuery = query
	f.gotCourse = courseName
	f.gotLesson = lesson
	f.gotLimit = limit
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.results, nil
}

func (f *fakeIndex) GetLessonLink(_ context.Context, courseTitle string, lesson int) (string, error) {
	return f.lessonLinks[fmt.Sprintf("%s/%d", courseTitle, lesson)], nil
}

func (f *fakeIndex) CourseStats(context.Context) (models.CourseStats, error) {
	return models.CourseStats{}, nil
}

func (f *fakeIndex) Close() {}

func lessonPtr(n int) *int { return &n }

func newTool(t *testing.T, index *fakeIndex) *tools.SearchTool {
	t.Helper()
	tool, err := tools.NewSearchToolWithConfig(tools.SearchToolConfig{Index: index, MaxResults: 5})
	require.NoError(t, err)
	return tool
}

func TestDefinition(t *testing.T) {
	tool := newTool(t, &fakeIndex{})
	def := tool.Definition()

	assert.Equal(t, "function", def.Type)
	assert.Equal(t, "search_course_content", def.Function.Name)

	params, ok := def.Function.Parameters.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []string{"query"}, params["required"])
}

func TestExecute_FormatsResults(t *testing.T) {
	index := &fakeIndex{
		results: []models.SearchResult{
			{Content: "Lesson content about RAG systems.", CourseTitle: "Intro to RAG", Lesson: lessonPtr(1)},
			{Content: "More content about embeddings.", CourseTitle: "Intro to RAG", Lesson: lessonPtr(2)},
		},
		lessonLinks: map[string]string{"Intro to RAG/1": "https://example.com/lesson1"},
	}
	tool := newTool(t, index)

	text, sources, err := tool.Execute(context.Background(), `{"query": "RAG basics"}`)
	require.NoError(t, err)

	assert.Equal(t,
		"[Intro to RAG - Lesson 1]\nLesson content about RAG systems.\n\n"+
			"[Intro to RAG - Lesson 2]\nMore content about embeddings.",
		text)

	require.Len(t, sources, 2)
	assert.Equal(t, models.Source{Label: "Intro to RAG - Lesson 1", Link: "https://example.com/lesson1"}, sources[0])
	assert.Equal(t, models.Source{Label: "Intro to RAG - Lesson 2"}, sources[1])
}

func TestExecute_ResultWithoutLesson(t *testing.T) {
	index := &fakeIndex{
		results: []models.SearchResult{
			{Content: "Course overview material.", CourseTitle: "Intro to RAG"},
		},
	}
	tool := newTool(t, index)

	text, sources, err := tool.Execute(context.Background(), `{"query": "overview"}`)
	require.NoError(t, err)
	assert.Equal(t, "[Intro to RAG]\nCourse overview material.", text)
	require.Len(t, sources, 1)
	assert.Equal(t, "Intro to RAG", sources[0].Label)
	assert.Empty(t, sources[0].Link)
}

func TestExecute_ForwardsArguments(t *testing.T) {
	index := &fakeIndex{}
	tool := newTool(t, index)

	_, _, err := tool.Execute(context.Background(),
		`{"query": "content", "course_name": "MCP Course", "lesson_number": 3}`)
	require.NoError(t, err)

	assert.Equal(t, "content", index.gotQuery)
	assert.Equal(t, "MCP Course", index.gotCourse)
	require.NotNil(t, index.gotLesson)
	assert.Equal(t, 3, *index.gotLesson)
	assert.Equal(t, 5, index.gotLimit)
}

func TestExecute_EmptyResultsMessage(t *testing.T) {
	tool := newTool(t, &fakeIndex{})

	text, sources, err := tool.Execute(context.Background(), `{"query": "something obscure"}`)
	require.NoError(t, err)
	assert.Equal(t, "No relevant content found.", text)
	assert.Empty(t, sources)
}

func TestExecute_EmptyResultsIncludeFilters(t *testing.T) {
	tool := newTool(t, &fakeIndex{})

	text, _, err := tool.Execute(context.Background(),
		`{"query": "topic", "course_name": "Intro to RAG", "lesson_number": 2}`)
	require.NoError(t, err)
	assert.Equal(t, "No relevant content found in course 'Intro to RAG' in lesson 2.", text)
}

func TestExecute_UnknownCourseIsToolText(t *testing.T) {
	index := &fakeIndex{
		searchErr: fmt.Errorf("course %q: %w", "Basket Weaving", store.ErrCourseNotFound),
	}
	tool := newTool(t, index)

	text, sources, err := tool.Execute(context.Background(),
		`{"query": "anything", "course_name": "Basket Weaving"}`)
	require.NoError(t, err)
	assert.Equal(t, "No course found matching 'Basket Weaving'", text)
	assert.Empty(t, sources)
}

func TestExecute_InfrastructureErrorPropagates(t *testing.T) {
	index := &fakeIndex{searchErr: errors.New("connection refused")}
	tool := newTool(t, index)

	_, _, err := tool.Execute(context.Background(), `{"query": "anything"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestExecute_MissingQueryIsError(t *testing.T) {
	tool := newTool(t, &fakeIndex{})

	_, _, err := tool.Execute(context.Background(), `{"course_name": "Intro to RAG"}`)
	require.Error(t, err)
}

func TestExecute_MalformedArgumentsIsError(t *testing.T) {
	tool := newTool(t, &fakeIndex{})

	_, _, err := tool.Execute(context.Background(), `{"query": `)
	require.Error(t, err)
}
