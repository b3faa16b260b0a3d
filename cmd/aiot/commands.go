package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/aiot-hub/aiot/backend/go-client/internal/api"
	"github.com/aiot-hub/aiot/backend/go-client/internal/format"
	"github.com/aiot-hub/aiot/backend/go-client/internal/idle"
	"github.com/aiot-hub/aiot/backend/go-client/internal/imaging"
	"github.com/aiot-hub/aiot/backend/go-client/internal/media"
	"github.com/aiot-hub/aiot/backend/go-client/internal/models"
	"github.com/aiot-hub/aiot/backend/go-client/internal/session"
	flag "github.com/spf13/pflag"
)

var errNotLoggedIn = errors.New("not logged in; run `aiot login`")

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

func runLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlags("login")
	email := fs.StringP("email", "e", "", "account email")
	password := fs.StringP("password", "p", "", "account password (read from AIOT_PASSWORD when empty)")
	google := fs.String("google-credential", "", "Google ID token credential")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.auth.Bootstrap(ctx); err != nil {
		return err
	}
	if *google != "" {
		resp, err := a.auth.LoginWithGoogle(ctx, *google)
		if err != nil {
			return err
		}
		a.printf("logged in as %s\n", displayName(resp.User))
		return nil
	}
	if *password == "" {
		*password = os.Getenv("AIOT_PASSWORD")
	}
	if *email == "" || *password == "" {
		return errors.New("--email and --password are required")
	}
	resp, err := a.auth.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	a.printf("logged in as %s\n", displayName(resp.User))
	return nil
}

func displayName(u *models.User) string {
	if u == nil {
		return "(unknown user)"
	}
	if u.Name != "" {
		return fmt.Sprintf("%s <%s>", u.Name, u.Email)
	}
	return u.Email
}

func runLogout(ctx context.Context, a *app, args []string) error {
	if err := a.auth.Logout(ctx); err != nil {
		return err
	}
	a.printf("logged out\n")
	return nil
}

func runWhoami(ctx context.Context, a *app, args []string) error {
	if !a.auth.IsLoggedIn() {
		return errNotLoggedIn
	}
	u, err := a.auth.Me(ctx)
	if err != nil {
		return err
	}
	role, _ := a.auth.UserRole()
	a.printf("%s\nid:   %d\nrole: %s\n", displayName(u), u.ID, role)
	return nil
}

func listFlags(name string) (*flag.FlagSet, *api.ListOptions) {
	fs := newFlags(name)
	opts := &api.ListOptions{}
	fs.IntVar(&opts.Page, "page", 0, "page number")
	fs.StringVar(&opts.Search, "search", "", "search text")
	return fs, opts
}

func runPosts(ctx context.Context, a *app, args []string) error {
	fs, opts := listFlags("posts")
	admin := fs.Bool("admin", false, "list all posts via the admin endpoint")
	fs.StringVar(&opts.Status, "status", "", "filter by status (draft|published); admin only")
	slug := fs.String("slug", "", "show one published post, formatted for display")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *slug != "" {
		p, err := a.api.Posts.BySlug(ctx, *slug)
		if err != nil {
			return err
		}
		a.printf("%s\n\n%s\n", p.Title, format.New(a.cfg.API.UploadsBaseURL).Format(p.Content))
		return nil
	}
	var (
		list []models.Post
		err  error
	)
	if *admin {
		list, err = a.api.Posts.List(ctx, *opts)
	} else {
		list, err = a.api.Posts.Published(ctx, *opts)
	}
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSLUG\tSTATUS\tTITLE")
	for _, p := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Slug, p.Status, p.Title)
	}
	return tw.Flush()
}

func runThreads(ctx context.Context, a *app, args []string) error {
	fs, opts := listFlags("threads")
	if err := fs.Parse(args); err != nil {
		return err
	}
	list, err := a.api.Threads.List(ctx, *opts)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tTITLE")
	for _, t := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", t.ID, t.CreatedAt.Format("2006-01-02"), t.Title)
	}
	return tw.Flush()
}

func runPaths(ctx context.Context, a *app, args []string) error {
	list, err := a.api.LearningPaths.List(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLEVEL\tTITLE")
	for _, p := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, p.Level, p.Title)
	}
	return tw.Flush()
}

func runUsers(ctx context.Context, a *app, args []string) error {
	fs := newFlags("users")
	setRole := fs.String("set-role", "", "new role for --id (user|admin|super_admin)")
	id := fs.Int64("id", 0, "user id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *setRole != "" {
		if *id <= 0 {
			return errors.New("--id is required with --set-role")
		}
		u, err := a.api.Users.UpdateRole(ctx, *id, models.Role(*setRole))
		if err != nil {
			return err
		}
		a.printf("user %d is now %s\n", u.ID, u.Role)
		return nil
	}
	list, err := a.api.Users.List(ctx, api.ListOptions{})
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tROLE\tEMAIL\tNAME")
	for _, u := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", u.ID, u.Role, u.Email, u.Name)
	}
	return tw.Flush()
}

func imagingFlags(fs *flag.FlagSet, a *app) *imaging.Options {
	opts := &imaging.Options{
		MaxWidth:  a.cfg.Imaging.MaxWidth,
		MaxHeight: a.cfg.Imaging.MaxHeight,
		Quality:   a.cfg.Imaging.Quality,
		MimeType:  a.cfg.Imaging.MimeType,
	}
	fs.IntVar(&opts.MaxWidth, "max-width", opts.MaxWidth, "maximum output width")
	fs.IntVar(&opts.MaxHeight, "max-height", opts.MaxHeight, "maximum output height")
	fs.Float64Var(&opts.Quality, "quality", opts.Quality, "JPEG quality 0..1")
	fs.StringVar(&opts.MimeType, "mime", opts.MimeType, "output type (image/jpeg|image/png)")
	return opts
}

func runCompress(ctx context.Context, a *app, args []string) error {
	fs := newFlags("compress")
	opts := imagingFlags(fs, a)
	outDir := fs.StringP("out", "o", ".", "output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: aiot compress [flags] <image>")
	}
	in, err := imaging.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	out, err := imaging.Compress(ctx, in, *opts)
	if err != nil {
		return err
	}
	p, err := imaging.WriteFile(*outDir, out)
	if err != nil {
		return err
	}
	a.printf("%s: %d -> %d bytes\n", p, len(in.Data), len(out.Data))
	return nil
}

func runUpload(ctx context.Context, a *app, args []string) error {
	fs := newFlags("upload")
	opts := imagingFlags(fs, a)
	raw := fs.Bool("raw", false, "upload without compressing")
	direct := fs.Bool("direct", false, "upload straight to MinIO instead of the API")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: aiot upload [flags] <image>")
	}
	f, err := imaging.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	if !*raw {
		if f, err = imaging.Compress(ctx, f, *opts); err != nil {
			return err
		}
	}
	var up media.Uploader
	if *direct {
		if up, err = media.NewMinIOUploader(ctx, a.cfg.MinIO); err != nil {
			return err
		}
	} else {
		if !a.auth.IsLoggedIn() {
			return errNotLoggedIn
		}
		if err := a.auth.Bootstrap(ctx); err != nil {
			return err
		}
		up = media.NewAPIUploader(a.client)
	}
	url, err := up.Upload(ctx, f)
	if err != nil {
		return err
	}
	a.printf("%s\n", url)
	return nil
}

func runFormat(ctx context.Context, a *app, args []string) error {
	fs := newFlags("format")
	base := fs.String("uploads-base", a.cfg.API.UploadsBaseURL, "base URL for /uploads and /storage paths")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var r io.Reader = a.stdin
	if fs.NArg() > 0 && fs.Arg(0) != "-" {
		f, err := os.Open(filepath.Clean(fs.Arg(0)))
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	a.printf("%s", format.New(*base).Format(string(b)))
	return nil
}

// runIdle keeps the session alive while activity events arrive on stdin,
// one per line, and logs out once none arrived within the timeout.
func runIdle(ctx context.Context, a *app, args []string) error {
	fs := newFlags("idle")
	timeout := fs.Duration("timeout", a.cfg.Session.IdleTimeout, "inactivity timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !a.auth.IsLoggedIn() {
		return errNotLoggedIn
	}
	sess := a.auth.Session()
	done := make(chan struct{})
	var once sync.Once
	unsubscribe := sess.Subscribe(func(e session.Event) {
		if e == session.EventLogout {
			once.Do(func() { close(done) })
		}
	})
	defer unsubscribe()

	w := idle.New(a.auth, sess, *timeout)
	w.Start()
	defer w.Stop()
	a.printf("watching for inactivity (timeout %s)\n", w.Timeout())

	go func() {
		sc := bufio.NewScanner(a.stdin)
		for sc.Scan() {
			w.Notify(strings.TrimSpace(sc.Text()))
		}
	}()

	select {
	case <-done:
		a.printf("logged out after %s of inactivity\n", w.Timeout())
	case <-ctx.Done():
	}
	return nil
}
