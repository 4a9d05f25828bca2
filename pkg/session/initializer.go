package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/thostetler/nectar-sub000/pkg/bootstrap"
	"github.com/thostetler/nectar-sub000/pkg/clientip"
	"github.com/thostetler/nectar-sub000/pkg/cookie"
	"github.com/thostetler/nectar-sub000/pkg/logger"
	"github.com/thostetler/nectar-sub000/pkg/token"
)

// Bootstrapper mints tokens from the identity service.
type Bootstrapper interface {
	Bootstrap(ctx context.Context, cookie string) *bootstrap.Result
	CookieName() string
}

// Decider supplies the runtime toggles consulted per request.
type Decider interface {
	UseNetworkedSessions(sessionID string) bool
	VerboseLogging() bool
	ActivityTracking() bool
}

type BotDetector interface {
	IsBot(r *http.Request) bool
}

// Sealer reads and produces the sealed state cookie.
type Sealer interface {
	SealedCookie(name string, v any, opts ...cookie.Option) (*http.Cookie, error)
	GetSealed(r *http.Request, name string, dest any) error
}

type staticDecider struct{}

func (staticDecider) UseNetworkedSessions(string) bool { return true }
func (staticDecider) VerboseLogging() bool             { return false }
func (staticDecider) ActivityTracking() bool           { return true }

type touchRequest struct {
	backend Backend
	id      string
}

// result is the outcome of one backend run. Cookies are only written to the
// response once a run has completed, so a failed run leaves it untouched.
type result struct {
	state   State
	cookies []*http.Cookie
	outcome string
}

// Initializer makes sure every request leaves with a usable token.
type Initializer struct {
	cfg       Config
	client    Bootstrapper
	sealer    Sealer
	networked Backend
	local     Backend
	flags     Decider
	bots      BotDetector
	metrics   *Metrics
	log       *slog.Logger
	now       func() time.Time

	touches   chan touchRequest
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInitializer starts the background activity worker; call Close on
// shutdown to drain it.
func NewInitializer(client Bootstrapper, sealer Sealer, opts ...Option) *Initializer {
	in := &Initializer{
		cfg:    DefaultConfig(),
		client: client,
		sealer: sealer,
		local:  CookieBackend{},
		flags:  staticDecider{},
		log:    slog.Default(),
		now:    time.Now,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(in)
	}
	in.log = in.log.With(logger.Component("session_init"))
	in.touches = make(chan touchRequest, max(in.cfg.TouchQueueSize, 1))

	in.wg.Add(1)
	go in.touchWorker()
	return in
}

// Middleware runs Init and exposes the resulting State via FromContext.
func (in *Initializer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st := in.Init(w, r)
		next.ServeHTTP(w, r.WithContext(WithState(r.Context(), st)))
	})
}

// Init validates or refreshes the request's session and writes any cookie
// changes to w. It never fails: on total failure it returns the state the
// request arrived with and leaves w untouched.
func (in *Initializer) Init(w http.ResponseWriter, r *http.Request) *State {
	ctx := r.Context()
	incoming := in.readState(ctx, r)
	verbose := in.flags.VerboseLogging()

	useNetworked := in.networked != nil && in.flags.UseNetworkedSessions(incoming.SessionID)
	if verbose {
		in.log.DebugContext(ctx, "initializing session",
			logger.SessionID(incoming.SessionID), slog.Bool("networked", useNetworked))
	}

	if useNetworked {
		res, err := in.run(ctx, r, incoming, in.networked)
		if err == nil {
			return in.apply(w, res)
		}
		in.log.ErrorContext(ctx, "networked session init failed, falling back to cookie backend",
			logger.SessionID(incoming.SessionID), logger.Backend(in.networked.Name()), logger.Error(err))
		in.metrics.outcome(in.networked.Name(), OutcomeFallback)
	}

	res, err := in.run(ctx, r, incoming, in.local)
	if err != nil {
		in.log.ErrorContext(ctx, "session init failed, passing request through",
			logger.SessionID(incoming.SessionID), logger.Backend(in.local.Name()), logger.Error(err))
		in.metrics.outcome(in.local.Name(), OutcomeFailOpen)
		st := incoming
		return &st
	}
	return in.apply(w, res)
}

func (in *Initializer) apply(w http.ResponseWriter, res *result) *State {
	for _, c := range res.cookies {
		http.SetCookie(w, c)
	}
	in.metrics.outcome(res.state.Backend, res.outcome)
	st := res.state
	return &st
}

func (in *Initializer) run(ctx context.Context, r *http.Request, incoming State, backend Backend) (res *result, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, p)
		}
	}()

	verbose := in.flags.VerboseLogging()
	current := incoming
	if current.SessionID == "" {
		current.SessionID = GenerateID()
	}
	id := current.SessionID

	raw := in.upstreamCookie(r)
	incomingHash := token.HashCookie(raw)

	rec, err := backend.Load(ctx, current)
	if err != nil {
		return nil, err
	}
	if verbose {
		in.log.DebugContext(ctx, "session lookup",
			logger.SessionID(id), logger.Backend(backend.Name()), slog.Bool("found", rec != nil))
	}

	if CanReuse(rec, incomingHash, in.forceRefresh(r)) {
		if in.flags.ActivityTracking() {
			in.enqueueTouch(backend, id)
		}
		st := rec.State()
		st.SessionID = id
		st.Backend = backend.Name()

		res = &result{state: st, outcome: OutcomeReuse}
		if !st.sameAs(incoming) {
			c, err := in.stateCookie(st)
			if err != nil {
				return nil, err
			}
			res.cookies = append(res.cookies, c)
		}
		if verbose {
			in.log.DebugContext(ctx, "reusing session", logger.SessionID(id), logger.Backend(backend.Name()))
		}
		return res, nil
	}

	in.log.DebugContext(ctx, "session invalid or expired, bootstrapping",
		logger.SessionID(id), logger.Backend(backend.Name()))

	bot := incoming.Bot || (rec != nil && rec.Bot)
	if in.bots != nil && in.bots.IsBot(r) {
		bot = true
	}

	start := time.Now()
	boot := in.client.Bootstrap(ctx, raw)
	in.metrics.bootstrap(time.Since(start).Seconds())

	if boot == nil || !boot.Token.IsValid() {
		in.log.WarnContext(ctx, "token invalid after bootstrap",
			logger.SessionID(id), logger.Backend(backend.Name()))
		st := incoming
		st.Backend = backend.Name()
		return &result{state: st, outcome: OutcomeBootstrapFailed}, nil
	}

	next := in.newRecord(r, id, *boot.Token, boot.CookieValue(), bot)
	if rec != nil && rec.CreatedAt != 0 {
		next.CreatedAt = rec.CreatedAt
	}
	if err := backend.Save(ctx, next); err != nil {
		in.log.ErrorContext(ctx, "failed to persist session, continuing with cookie state",
			logger.SessionID(id), logger.UserID(next.UserID), logger.Backend(backend.Name()), logger.Error(err))
	}

	st := next.State()
	st.Backend = backend.Name()
	sc, err := in.stateCookie(st)
	if err != nil {
		return nil, err
	}

	res = &result{state: st, outcome: OutcomeBootstrap}
	if boot.Cookie != nil {
		res.cookies = append(res.cookies, boot.Cookie)
	}
	res.cookies = append(res.cookies, sc)

	in.log.DebugContext(ctx, "session bootstrapped",
		logger.SessionID(id),
		logger.UserID(next.UserID),
		logger.Backend(backend.Name()),
		slog.Bool("authenticated", next.IsAuthenticated),
		slog.Bool("bot", next.Bot),
	)
	return res, nil
}

func (in *Initializer) newRecord(r *http.Request, id string, tok token.Token, upstreamCookie string, bot bool) *Record {
	authenticated := tok.IsAuthenticated()
	now := in.now().UnixMilli()

	ip := clientip.FromContext(r.Context())
	if ip == "" {
		ip = clientip.GetIP(r)
	}

	rec := &Record{
		SessionID:       id,
		Username:        tok.Username,
		Token:           tok,
		IsAuthenticated: authenticated,
		APICookieHash:   token.HashCookie(upstreamCookie),
		Bot:             bot,
		CreatedAt:       now,
		LastActivity:    now,
		UserAgent:       r.UserAgent(),
		IP:              ip,
	}
	if authenticated {
		rec.UserID = tok.Username
	}
	return rec
}

func (in *Initializer) readState(ctx context.Context, r *http.Request) State {
	var st State
	if err := in.sealer.GetSealed(r, in.cfg.CookieName, &st); err != nil {
		if !errors.Is(err, cookie.ErrCookieNotFound) {
			in.log.DebugContext(ctx, "discarding unreadable session cookie", logger.Error(err))
		}
		return State{}
	}
	return st
}

func (in *Initializer) stateCookie(st State) (*http.Cookie, error) {
	return in.sealer.SealedCookie(in.cfg.CookieName, st)
}

func (in *Initializer) upstreamCookie(r *http.Request) string {
	c, err := r.Cookie(in.client.CookieName())
	if err != nil {
		return ""
	}
	return c.Value
}

func (in *Initializer) forceRefresh(r *http.Request) bool {
	return in.cfg.RefreshHeader != "" && len(r.Header.Values(in.cfg.RefreshHeader)) > 0
}

func (in *Initializer) enqueueTouch(b Backend, id string) {
	select {
	case <-in.done:
		return
	default:
	}
	select {
	case in.touches <- touchRequest{backend: b, id: id}:
	default:
		in.metrics.touchDropped()
	}
}

func (in *Initializer) touchWorker() {
	defer in.wg.Done()
	for {
		select {
		case req := <-in.touches:
			in.touch(req)
		case <-in.done:
			for {
				select {
				case req := <-in.touches:
					in.touch(req)
				default:
					return
				}
			}
		}
	}
}

func (in *Initializer) touch(req touchRequest) {
	timeout := in.cfg.TouchTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if !req.backend.Touch(ctx, req.id) {
		in.log.WarnContext(ctx, "failed to touch session",
			logger.SessionID(req.id), logger.Backend(req.backend.Name()))
	}
}

// Close stops the activity worker after draining queued updates.
func (in *Initializer) Close() error {
	in.closeOnce.Do(func() {
		close(in.done)
		in.wg.Wait()
	})
	return nil
}
