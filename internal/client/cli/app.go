package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/coursestore/internal/client/api"
	"github.com/dmitrijs2005/coursestore/internal/client/cart"
	"github.com/dmitrijs2005/coursestore/internal/client/config"
	"github.com/dmitrijs2005/coursestore/internal/client/notify"
	"github.com/dmitrijs2005/coursestore/internal/client/services"
	"github.com/dmitrijs2005/coursestore/internal/client/session"
	"github.com/dmitrijs2005/coursestore/internal/logging"
)

// App owns the stores and services for one interactive run.
type App struct {
	config *config.Config
	log    logging.Logger

	api     api.Client
	session *session.Store
	cart    *cart.Store
	notes   *notify.Notifier

	catalog services.CatalogService
	courses services.CoursesService
	account services.AccountService

	inbox       <-chan notify.Notification
	unsubscribe func()

	reader *bufio.Reader
	out    io.Writer
}

// NewApp builds the HTTP client from c and wires everything to stdin and
// stdout.
func NewApp(c *config.Config, log logging.Logger) (*App, error) {
	client, err := api.NewRestClient(api.Options{
		BaseURL:   c.ServerURL,
		Timeout:   c.RequestTimeout,
		RateLimit: c.RateLimit,
		RateBurst: c.RateBurst,
		Logger:    log,
	})
	if err != nil {
		return nil, err
	}
	return newApp(c, client, log, os.Stdin, os.Stdout), nil
}

func newApp(c *config.Config, client api.Client, log logging.Logger, in io.Reader, out io.Writer) *App {
	if log == nil {
		log = logging.Discard()
	}
	notes := notify.New(log)
	sess := session.NewStore(client, log.With("component", "session"))
	carts := cart.NewStore(client, notes, log.With("component", "cart"))
	// the cart follows the session: every identity change re-hydrates it.
	sess.Subscribe(carts.Hydrate)

	inbox, unsubscribe := notes.Subscribe()

	return &App{
		config:      c,
		log:         log,
		api:         client,
		session:     sess,
		cart:        carts,
		notes:       notes,
		catalog:     services.NewCatalogService(client),
		courses:     services.NewCoursesService(client),
		account:     services.NewAccountService(client, sess, log),
		inbox:       inbox,
		unsubscribe: unsubscribe,
		reader:      bufio.NewReader(in),
		out:         out,
	}
}

// Run resolves the session in the background and serves the REPL until
// the user exits or input ends.
func (a *App) Run(ctx context.Context) {
	defer a.unsubscribe()

	go a.session.Resolve(ctx)

	fmt.Fprintln(a.out, "Welcome to the course store (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) isLoggedIn() bool {
	return a.session.State() == session.StateAuthenticated
}

// getStatus renders the prompt status: user name and cart size.
func (a *App) getStatus() string {
	snap := a.session.Snapshot()
	switch snap.State {
	case session.StateUnresolved:
		return "(connecting)"
	case session.StateAnonymous:
		return "(guest)"
	}
	if a.cart.Loading() {
		return fmt.Sprintf("(%s, cart ...)", snap.User.Username)
	}
	return fmt.Sprintf("(%s, cart %d)", snap.User.Username, a.cart.Count())
}

// flushNotifications prints every queued notification without waiting.
func (a *App) flushNotifications() {
	for {
		select {
		case n, ok := <-a.inbox:
			if !ok {
				return
			}
			if n.Level == notify.LevelError {
				fmt.Fprintln(a.out, "! "+n.Message)
			} else {
				fmt.Fprintln(a.out, "* "+n.Message)
			}
		default:
			return
		}
	}
}

// fail publishes err as an error notification and returns it.
func (a *App) fail(ctx context.Context, what string, err error) error {
	a.log.Debug(ctx, "command failed", "command", what, logging.Err(err))
	a.notes.Error("%s: %s", what, describe(err))
	return err
}

func (a *App) say(format string, args ...any) {
	fmt.Fprintf(a.out, format+"\n", args...)
}
