package models

// Course is identified by its title; re-ingesting a document with the
// same title replaces the previous record.
type Course struct {
	Title      string
	Link       string
	Instructor string
	Lessons    []Lesson
}

// Lesson numbers are unique within a course but not required to be
// contiguous.
type Lesson struct {
	Number int
	Title  string
	Link   string
}

// CourseChunk is the retrievable unit produced by the document loader.
// Lesson is nil for course-level preamble chunks. Index increases
// globally across the whole course, not per lesson.
type CourseChunk struct {
	Content     string
	CourseTitle string
	Lesson      *int
	Index       int
}

// SearchResult is a transient value produced per search call.
type SearchResult struct {
	Content     string
	CourseTitle string
	Lesson      *int
	Distance    float32
}

// Source labels where a piece of an answer came from, for display
// alongside the answer text.
type Source struct {
	Label string `json:"label"`
	Link  string `json:"link,omitempty"`
}

// CourseStats summarizes the course catalog.
type CourseStats struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}
