package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/taskdeck/taskdeck/internal/cache"
	"github.com/taskdeck/taskdeck/internal/client"
	"github.com/taskdeck/taskdeck/internal/config"
	"github.com/taskdeck/taskdeck/internal/coordinator"
	"github.com/taskdeck/taskdeck/internal/output"
	"github.com/taskdeck/taskdeck/internal/state"
)

// app bundles the client-side stack a logged-in command needs: the cached
// session, the API client, and the coordinator running on a shared cache.
type app struct {
	cfg     *config.Config
	state   *state.Store
	session state.Session
	api     *client.Client
	store   *cache.Store
	coord   *coordinator.Coordinator
}

// toastNotifier prints operation outcomes the way the web client shows
// toasts.
type toastNotifier struct {
	out io.Writer
	err io.Writer
}

func (n *toastNotifier) Success(msg string) {
	fmt.Fprintf(n.out, "%s %s\n", output.RenderPass("✓"), msg)
}

func (n *toastNotifier) Error(msg string) {
	fmt.Fprintf(n.err, "%s %s\n", output.RenderError("✗"), msg)
}

// newApp builds the stack for a command that requires a login.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	st := state.New(config.DefaultStateDir())
	sess, err := st.LoadSession()
	if err != nil {
		return nil, fmt.Errorf("%w (run 'taskdeck login' first)", err)
	}

	api := client.New(cfg.APIURL, client.StaticToken(sess.Token))
	store := cache.New()
	coord := coordinator.New(store, api, sess.User.ID,
		coordinator.WithNotifier(&toastNotifier{out: os.Stdout, err: os.Stderr}),
		coordinator.WithLogger(log.New(io.Discard, "", 0)),
	)

	return &app{
		cfg:     cfg,
		state:   st,
		session: sess,
		api:     api,
		store:   store,
		coord:   coord,
	}, nil
}

// newAnonApp builds the stack for commands that run before login.
func newAnonApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:   cfg,
		state: state.New(config.DefaultStateDir()),
		api:   client.New(cfg.APIURL, client.StaticToken("")),
	}, nil
}

// dateFormat returns the user's preferred date format, falling back to the
// default when preferences cannot be fetched.
func (a *app) dateFormat(ctx context.Context) string {
	prefs, err := a.coord.Preferences().Get(ctx)
	if err != nil {
		return ""
	}
	return prefs.DateFormat
}

// finish flushes pending cache revalidations before the process exits.
func (a *app) finish() {
	if a.coord != nil {
		a.coord.Wait()
	}
}
