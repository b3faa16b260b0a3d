// Command aiot is an operator front end for the platform API: it keeps a
// session between runs and exposes login, content listing and media tools.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/aiot-hub/aiot/backend/go-client/internal/config"
	"github.com/aiot-hub/aiot/backend/go-client/pkg/logger"
	flag "github.com/spf13/pflag"
)

type command struct {
	summary string
	run     func(ctx context.Context, app *app, args []string) error
	// offline commands never touch the session or the API
	offline bool
}

var commands = map[string]command{
	"login":    {summary: "sign in with email/password or a Google credential", run: runLogin},
	"logout":   {summary: "forget the stored session", run: runLogout},
	"whoami":   {summary: "show the signed-in user", run: runWhoami},
	"posts":    {summary: "list posts (published, or all with --admin)", run: runPosts},
	"threads":  {summary: "list community threads", run: runThreads},
	"paths":    {summary: "list learning paths", run: runPaths},
	"users":    {summary: "list users or change a role (admin)", run: runUsers},
	"upload":   {summary: "compress and upload an image", run: runUpload},
	"idle":     {summary: "log out after inactivity; reads activity events from stdin", run: runIdle},
	"compress": {summary: "compress an image file locally", run: runCompress, offline: true},
	"format":   {summary: "format stored post HTML for display", run: runFormat, offline: true},
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: aiot [--log-level L] [--log-file F] <command> [flags]")
	fmt.Fprintln(w, "\ncommands:")
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(w, "  %-9s %s\n", n, commands[n].summary)
	}
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("aiot", flag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.SetOutput(stderr)
	logLevel := fs.String("log-level", "", "log level (debug|info|warn|error)")
	logFile := fs.String("log-file", "", "write logs to this file instead of stderr")
	fs.Usage = func() { usage(stderr) }
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		usage(stderr)
		return 2
	}
	cmd, ok := commands[fs.Arg(0)]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n", fs.Arg(0))
		usage(stderr)
		return 2
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	level := cfg.LogLevel
	if *logLevel != "" {
		level = *logLevel
	}
	logger.Init(level)
	logger.SetComponent("aiot")
	logger.SetOutput(stderr)
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			fmt.Fprintf(stderr, "log file: %v\n", err)
			return 1
		}
		defer f.Close()
		logger.SetOutput(f)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{cfg: cfg, stdin: stdin, stdout: stdout}
	if !cmd.offline {
		closeFn, err := a.connect(ctx)
		if err != nil {
			fmt.Fprintf(stderr, "aiot: %v\n", err)
			return 1
		}
		defer closeFn()
	}
	if err := cmd.run(ctx, a, fs.Args()[1:]); err != nil {
		fmt.Fprintf(stderr, "aiot %s: %v\n", fs.Arg(0), err)
		return 1
	}
	return 0
}
