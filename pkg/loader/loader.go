package loader

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/xhad/coursechat/internal/models"
	"github.com/xhad/coursechat/internal/types"
)

// Header and lesson markers recognised in course documents.
const (
	titlePrefix      = "Course Title:"
	linkPrefix       = "Course Link:"
	instructorPrefix = "Course Instructor:"
	lessonPrefix     = "Lesson "
	lessonLinkPrefix = "Lesson Link:"
)

// ParseError reports a document whose mandatory header could not be
// located. Ingestion treats it as skip-and-log, not fatal.
type ParseError struct {
	Path   string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("parse course document: %s", e.Reason)
	}
	return fmt.Sprintf("parse course document %s: %s", e.Path, e.Reason)
}

type LoaderConfig struct {
	Chunker types.Chunker
}

type Loader struct {
	chunker types.Chunker
}

func NewWithConfig(config LoaderConfig) (Loader, error) {
	if config.Chunker == nil {
		return Loader{}, fmt.Errorf("chunker is required")
	}
	return Loader{chunker: config.Chunker}, nil
}

// LoadFile reads one course document from disk and parses it.
func (l *Loader) LoadFile(path string) (models.Course, []models.CourseChunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Course{}, nil, fmt.Errorf("read course document: %w", err)
	}

	course, chunks, err := l.Load(string(data))
	if err != nil {
		if pe, ok := err.(*ParseError); ok {
			pe.Path = path
		}
		return models.Course{}, nil, err
	}
	return course, chunks, nil
}

// Load parses the raw text of one course document into a Course and
// its ordered chunks. The first three lines are scanned for the
// course title, link and instructor; the rest is split into lesson
// sections at "Lesson <N>:" markers. Returns *ParseError when the
// title is missing.
func (l *Loader) Load(text string) (models.Course, []models.CourseChunk, error) {
	lines := strings.Split(text, "\n")

	course := models.Course{}
	isHeader := make(map[int]bool, 3)
	for i := 0; i < len(lines) && i < 3; i++ {
		line := strings.TrimSpace(lines[i])
		switch {
		case strings.HasPrefix(line, titlePrefix):
			course.Title = strings.TrimSpace(strings.TrimPrefix(line, titlePrefix))
		case strings.HasPrefix(line, linkPrefix):
			course.Link = strings.TrimSpace(strings.TrimPrefix(line, linkPrefix))
		case strings.HasPrefix(line, instructorPrefix):
			course.Instructor = strings.TrimSpace(strings.TrimPrefix(line, instructorPrefix))
		default:
			continue
		}
		isHeader[i] = true
	}

	if course.Title == "" {
		return models.Course{}, nil, &ParseError{Reason: "missing Course Title header"}
	}

	var chunks []models.CourseChunk
	nextIndex := 0

	appendChunks := func(content string, lesson *int) {
		for i, text := range l.chunker.Chunk(content) {
			if i == 0 && lesson != nil {
				text = fmt.Sprintf("Course %s Lesson %d content: %s", course.Title, *lesson, text)
			}
			chunks = append(chunks, models.CourseChunk{
				Content:     text,
				CourseTitle: course.Title,
				Lesson:      lesson,
				Index:       nextIndex,
			})
			nextIndex++
		}
	}

	var currentLesson *models.Lesson
	var body []string

	closeSection := func() {
		content := strings.TrimSpace(strings.Join(body, "\n"))
		body = nil
		if content == "" {
			return
		}
		if currentLesson == nil {
			// Preamble before the first lesson marker.
			appendChunks(content, nil)
			return
		}
		lesson := currentLesson.Number
		appendChunks(content, &lesson)
	}

	for i := 0; i < len(lines); i++ {
		if isHeader[i] {
			continue
		}
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		if number, title, ok := parseLessonMarker(trimmed); ok {
			closeSection()
			course.Lessons = append(course.Lessons, models.Lesson{Number: number, Title: title})
			currentLesson = &course.Lessons[len(course.Lessons)-1]

			// An immediately following "Lesson Link:" line belongs to this lesson.
			if i+1 < len(lines) {
				next := strings.TrimSpace(lines[i+1])
				if strings.HasPrefix(next, lessonLinkPrefix) {
					currentLesson.Link = strings.TrimSpace(strings.TrimPrefix(next, lessonLinkPrefix))
					i++
				}
			}
			continue
		}

		body = append(body, line)
	}
	closeSection()

	return course, chunks, nil
}

// parseLessonMarker matches lines of the form "Lesson <N>: <title>".
func parseLessonMarker(line string) (int, string, bool) {
	if !strings.HasPrefix(line, lessonPrefix) {
		return 0, "", false
	}
	rest := line[len(lessonPrefix):]

	colon := strings.IndexByte(rest, ':')
	if colon <= 0 {
		return 0, "", false
	}

	number, err := strconv.Atoi(strings.TrimSpace(rest[:colon]))
	if err != nil {
		return 0, "", false
	}

	return number, strings.TrimSpace(rest[colon+1:]), true
}
