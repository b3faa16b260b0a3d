package models

import "time"

// Post is a blog post as served by /posts and /admin/posts.
type Post struct {
	ID          string     `bson:"_id,omitempty" json:"id"`
	Title       string     `bson:"title" json:"title"`
	Slug        string     `bson:"slug" json:"slug"`
	Excerpt     string     `bson:"excerpt,omitempty" json:"excerpt,omitempty"`
	Content     string     `bson:"content" json:"content"`
	CoverImage  string     `bson:"coverImage,omitempty" json:"cover_image,omitempty"`
	Tags        []string   `bson:"tags,omitempty" json:"tags,omitempty"`
	Status      string     `bson:"status" json:"status"` // draft | published
	AuthorID    int64      `bson:"authorId" json:"author_id"`
	PublishedAt *time.Time `bson:"publishedAt,omitempty" json:"published_at,omitempty"`
	CreatedAt   time.Time  `bson:"createdAt" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updatedAt" json:"updated_at"`
}

// PostInput is the create/update payload for /admin/posts.
type PostInput struct {
	Title      string   `json:"title"`
	Slug       string   `json:"slug,omitempty"`
	Excerpt    string   `json:"excerpt,omitempty"`
	Content    string   `json:"content"`
	CoverImage string   `json:"cover_image,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Status     string   `json:"status,omitempty"`
}

// LearningPath is a quiz-style learning track.
type LearningPath struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Level       string     `json:"level,omitempty"`
	Questions   []Question `json:"questions,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type Question struct {
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
	Answer  int      `json:"answer"`
}

// Thread is a community discussion thread.
type Thread struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	AuthorID  int64     `json:"author_id"`
	Replies   []Reply   `json:"replies,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Reply struct {
	ID        string    `json:"id"`
	Body      string    `json:"body"`
	AuthorID  int64     `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}
