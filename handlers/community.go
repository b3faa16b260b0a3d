package handlers

import (
	"net/http"
	"net/mail"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aiot-hub/aiot/backend/go-client/internal/models"
	"github.com/aiot-hub/aiot/backend/go-client/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Community keeps learning paths, discussion threads and newsletter
// subscribers in memory for local development.
type Community struct {
	mu          sync.RWMutex
	paths       []models.LearningPath
	threads     map[string]*models.Thread
	subscribers map[string]time.Time
}

func NewCommunity(paths []models.LearningPath) *Community {
	return &Community{
		paths:       paths,
		threads:     map[string]*models.Thread{},
		subscribers: map[string]time.Time{},
	}
}

// RegisterPublic mounts the read-only routes and newsletter signup.
func (h *Community) RegisterPublic(r gin.IRoutes) {
	r.GET("/learning-paths", h.ListPaths)
	r.GET("/learning-paths/:id", h.GetPath)
	r.GET("/threads", h.ListThreads)
	r.GET("/threads/:id", h.GetThread)
	r.POST("/subscribe", h.Subscribe)
}

// RegisterAuthed mounts the routes that need a signed-in user.
func (h *Community) RegisterAuthed(r gin.IRoutes) {
	r.POST("/threads", h.CreateThread)
	r.POST("/threads/:id/replies", h.Reply)
}

func (h *Community) ListPaths(c *gin.Context) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]models.LearningPath, 0, len(h.paths))
	for _, p := range h.paths {
		p.Questions = nil
		out = append(out, p)
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (h *Community) GetPath(c *gin.Context) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, p := range h.paths {
		if p.ID == c.Param("id") {
			c.JSON(http.StatusOK, gin.H{"data": p})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"message": "Learning path not found."})
}

// ListThreads returns threads newest first, optionally filtered by ?search=.
func (h *Community) ListThreads(c *gin.Context) {
	search := strings.ToLower(c.Query("search"))
	h.mu.RLock()
	out := make([]models.Thread, 0, len(h.threads))
	for _, t := range h.threads {
		if search != "" && !strings.Contains(strings.ToLower(t.Title+" "+t.Body), search) {
			continue
		}
		cp := *t
		cp.Replies = nil
		out = append(out, cp)
	}
	h.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (h *Community) GetThread(c *gin.Context) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	t, ok := h.threads[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Thread not found."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": t})
}

func (h *Community) CreateThread(c *gin.Context) {
	var req struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Body) == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "The title and body fields are required."})
		return
	}
	cl, _ := middleware.Claims(c)
	t := &models.Thread{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(req.Title),
		Body:      req.Body,
		AuthorID:  cl.UserID,
		CreatedAt: time.Now().UTC(),
	}
	h.mu.Lock()
	h.threads[t.ID] = t
	h.mu.Unlock()
	c.JSON(http.StatusCreated, gin.H{"data": t})
}

func (h *Community) Reply(c *gin.Context) {
	var req struct {
		Body string `json:"body"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Body) == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "The body field is required."})
		return
	}
	cl, _ := middleware.Claims(c)
	r := models.Reply{
		ID:        uuid.NewString(),
		Body:      req.Body,
		AuthorID:  cl.UserID,
		CreatedAt: time.Now().UTC(),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.threads[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Thread not found."})
		return
	}
	t.Replies = append(t.Replies, r)
	c.JSON(http.StatusCreated, gin.H{"data": r})
}

// Subscribe adds an email to the newsletter list. Repeat signups succeed.
func (h *Community) Subscribe(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	_ = c.ShouldBindJSON(&req)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "The email field must be a valid email address."})
		return
	}
	h.mu.Lock()
	if _, ok := h.subscribers[email]; !ok {
		h.subscribers[email] = time.Now().UTC()
	}
	h.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"message": "Thanks for subscribing!"})
}

// Subscribers returns the subscribed addresses in order.
func (h *Community) Subscribers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.subscribers))
	for e := range h.subscribers {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// DefaultLearningPaths seeds the development server.
func DefaultLearningPaths() []models.LearningPath {
	now := time.Now().UTC()
	return []models.LearningPath{
		{
			ID:          "iot-fundamentals",
			Title:       "IoT Fundamentals",
			Description: "Sensors, microcontrollers and the protocols that connect them.",
			Level:       "beginner",
			CreatedAt:   now,
			Questions: []models.Question{
				{Prompt: "Which protocol is designed for constrained publish/subscribe messaging?", Options: []string{"HTTP/2", "MQTT", "FTP", "SMTP"}, Answer: 1},
				{Prompt: "What does an ADC do?", Options: []string{"Converts analog signals to digital values", "Encrypts traffic", "Stores firmware"}, Answer: 0},
			},
		},
		{
			ID:          "edge-ai",
			Title:       "AI at the Edge",
			Description: "Running quantized models on embedded hardware.",
			Level:       "intermediate",
			CreatedAt:   now,
			Questions: []models.Question{
				{Prompt: "Why quantize a model for a microcontroller?", Options: []string{"To reduce memory and compute", "To increase accuracy", "To add layers"}, Answer: 0},
			},
		},
	}
}
