// Package api exposes typed calls for the platform's REST resources.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/aiot-hub/aiot/backend/go-client/internal/apiclient"
	"github.com/aiot-hub/aiot/backend/go-client/internal/models"
)

// API groups the resource clients over one HTTP client.
type API struct {
	Posts         *Posts
	LearningPaths *LearningPaths
	Threads       *Threads
	Users         *Users
	Profile       *Profile
	Newsletter    *Newsletter
}

func New(c *apiclient.Client) *API {
	return &API{
		Posts:         &Posts{c: c},
		LearningPaths: &LearningPaths{c: c},
		Threads:       &Threads{c: c},
		Users:         &Users{c: c},
		Profile:       &Profile{c: c},
		Newsletter:    &Newsletter{c: c},
	}
}

// list accepts either a bare JSON array or an envelope {"data": [...]}.
type list[T any] []T

func (l *list[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var items []T
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	var env struct {
		Data []T `json:"data"`
	}
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}
	*l = env.Data
	return nil
}

// one accepts either a bare object or an envelope {"data": {...}}.
type one[T any] struct{ v T }

func (o *one[T]) UnmarshalJSON(b []byte) error {
	var env struct {
		Data *json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &env); err == nil && env.Data != nil && bytes.HasPrefix(bytes.TrimSpace(*env.Data), []byte("{")) {
		return json.Unmarshal(*env.Data, &o.v)
	}
	return json.Unmarshal(b, &o.v)
}

type ListOptions struct {
	Page   int
	Status string
	Search string
}

func (o ListOptions) values() url.Values {
	q := url.Values{}
	if o.Page > 0 {
		q.Set("page", strconv.Itoa(o.Page))
	}
	if o.Status != "" {
		q.Set("status", o.Status)
	}
	if o.Search != "" {
		q.Set("search", o.Search)
	}
	return q
}

func getList[T any](ctx context.Context, c *apiclient.Client, path string, opts ListOptions) ([]T, error) {
	var out list[T]
	if err := c.Do(ctx, http.MethodGet, path, &apiclient.Options{Query: opts.values()}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func do[T any](ctx context.Context, c *apiclient.Client, method, path string, body interface{}) (*T, error) {
	var out one[T]
	var opts *apiclient.Options
	if body != nil {
		opts = &apiclient.Options{Body: body}
	}
	if err := c.Do(ctx, method, path, opts, &out); err != nil {
		return nil, err
	}
	return &out.v, nil
}

type Posts struct{ c *apiclient.Client }

// Published lists public posts.
func (p *Posts) Published(ctx context.Context, opts ListOptions) ([]models.Post, error) {
	return getList[models.Post](ctx, p.c, "/posts", opts)
}

// BySlug fetches a public post.
func (p *Posts) BySlug(ctx context.Context, slug string) (*models.Post, error) {
	return do[models.Post](ctx, p.c, http.MethodGet, "/posts/"+url.PathEscape(slug), nil)
}

func (p *Posts) List(ctx context.Context, opts ListOptions) ([]models.Post, error) {
	return getList[models.Post](ctx, p.c, "/admin/posts", opts)
}

func (p *Posts) Get(ctx context.Context, id string) (*models.Post, error) {
	return do[models.Post](ctx, p.c, http.MethodGet, "/admin/posts/"+url.PathEscape(id), nil)
}

func (p *Posts) Create(ctx context.Context, in models.PostInput) (*models.Post, error) {
	return do[models.Post](ctx, p.c, http.MethodPost, "/admin/posts", in)
}

func (p *Posts) Update(ctx context.Context, id string, in models.PostInput) (*models.Post, error) {
	return do[models.Post](ctx, p.c, http.MethodPut, "/admin/posts/"+url.PathEscape(id), in)
}

func (p *Posts) Delete(ctx context.Context, id string) error {
	return p.c.Delete(ctx, "/admin/posts/"+url.PathEscape(id), nil)
}

type LearningPaths struct{ c *apiclient.Client }

func (l *LearningPaths) List(ctx context.Context) ([]models.LearningPath, error) {
	return getList[models.LearningPath](ctx, l.c, "/learning-paths", ListOptions{})
}

func (l *LearningPaths) Get(ctx context.Context, id string) (*models.LearningPath, error) {
	return do[models.LearningPath](ctx, l.c, http.MethodGet, "/learning-paths/"+url.PathEscape(id), nil)
}

type Threads struct{ c *apiclient.Client }

type ThreadInput struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (t *Threads) List(ctx context.Context, opts ListOptions) ([]models.Thread, error) {
	return getList[models.Thread](ctx, t.c, "/threads", opts)
}

func (t *Threads) Get(ctx context.Context, id string) (*models.Thread, error) {
	return do[models.Thread](ctx, t.c, http.MethodGet, "/threads/"+url.PathEscape(id), nil)
}

func (t *Threads) Create(ctx context.Context, in ThreadInput) (*models.Thread, error) {
	return do[models.Thread](ctx, t.c, http.MethodPost, "/threads", in)
}

func (t *Threads) Reply(ctx context.Context, threadID, body string) (*models.Reply, error) {
	return do[models.Reply](ctx, t.c, http.MethodPost, "/threads/"+url.PathEscape(threadID)+"/replies", map[string]string{"body": body})
}

type Users struct{ c *apiclient.Client }

func (u *Users) List(ctx context.Context, opts ListOptions) ([]models.User, error) {
	return getList[models.User](ctx, u.c, "/admin/users", opts)
}

func (u *Users) UpdateRole(ctx context.Context, id int64, role models.Role) (*models.User, error) {
	return do[models.User](ctx, u.c, http.MethodPut, "/admin/users/"+strconv.FormatInt(id, 10)+"/role", map[string]models.Role{"role": role})
}

func (u *Users) Delete(ctx context.Context, id int64) error {
	return u.c.Delete(ctx, "/admin/users/"+strconv.FormatInt(id, 10), nil)
}

type Profile struct{ c *apiclient.Client }

func (p *Profile) Me(ctx context.Context) (*models.User, error) {
	return do[models.User](ctx, p.c, http.MethodGet, "/me", nil)
}

// CompleteOnboarding marks the current user as onboarded.
func (p *Profile) CompleteOnboarding(ctx context.Context, interests []string) (*models.User, error) {
	return do[models.User](ctx, p.c, http.MethodPost, "/me/onboarding", map[string][]string{"interests": interests})
}

type Newsletter struct{ c *apiclient.Client }

func (n *Newsletter) Subscribe(ctx context.Context, email string) error {
	return n.c.Post(ctx, "/subscribe", map[string]string{"email": email}, nil)
}
