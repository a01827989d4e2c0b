package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"dca-grid-console/internal/api"
	"dca-grid-console/internal/config"
	"dca-grid-console/internal/dashboard"
	"dca-grid-console/internal/models"
	"dca-grid-console/internal/nav"
	"dca-grid-console/internal/session"
	"dca-grid-console/internal/store"
	"dca-grid-console/internal/strategy"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// App holds the wired components behind the console commands.
type App struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   *store.Store
	session *session.Manager
	auth    *api.AuthClient
	api     *api.Client
}

// newApp wires the session on top of the auth endpoints, then the
// gateway on top of the session.
func newApp(cfg *config.Config, st *store.Store, log *zap.Logger) *App {
	authClient := api.NewAuthClient(&cfg.Backend, log)
	sess := session.NewManager(st, authClient.Refresh, log)
	return &App{
		cfg:     cfg,
		logger:  log,
		store:   st,
		session: sess,
		auth:    authClient,
		api:     api.NewClient(&cfg.Backend, sess, log),
	}
}

var routes = map[string]nav.Route{
	"register": {Name: "register", GuestOnly: true},
	"login":    {Name: "login", GuestOnly: true},
	"logout":   {Name: "logout", RequiresAuth: true},
	"balance":  {Name: "balance", RequiresAuth: true},
	"plan":     {Name: "plan"},
	"start":    {Name: "start", RequiresAuth: true},
	"stop":     {Name: "stop", RequiresAuth: true},
	"configs":  {Name: "configs", RequiresAuth: true},
	"watch":    {Name: "watch", RequiresAuth: true},
}

// Run dispatches a command after resolving it against the route guard.
func (a *App) Run(ctx context.Context, command string, args []string) error {
	route, ok := routes[command]
	if !ok {
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}

	switch nav.Resolve(route, a.session.IsAuthenticated()) {
	case nav.RedirectLogin:
		return errors.New("not logged in; run 'console login' first")
	case nav.RedirectDashboard:
		return errors.New("already logged in; run 'console logout' first")
	}

	switch command {
	case "register":
		return a.cmdRegister(ctx, args)
	case "login":
		return a.cmdLogin(ctx, args)
	case "logout":
		return a.cmdLogout(ctx)
	case "balance":
		return a.cmdBalance(ctx, args)
	case "plan":
		return a.cmdPlan(ctx, args)
	case "start":
		return a.cmdStart(ctx, args)
	case "stop":
		return a.cmdStop(ctx)
	case "configs":
		return a.cmdConfigs(ctx)
	case "watch":
		return a.cmdWatch(ctx, args)
	}
	return nil
}

// renderError turns a taxonomy error into the operator-facing message.
func renderError(err error) string {
	var apiErr *api.APIError
	var netErr *api.NetworkError
	switch {
	case errors.Is(err, session.ErrReauthenticate):
		return "session expired, please log in again"
	case errors.As(err, &apiErr):
		return apiErr.Message
	case errors.As(err, &netErr):
		return "server unreachable"
	default:
		return err.Error()
	}
}

func (a *App) cmdRegister(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	fs.Parse(args)

	sess, err := a.auth.Register(ctx, *email, *password)
	if err != nil {
		return err
	}
	sess.Profile = &models.UserProfile{Email: *email}
	if err := a.session.Save(sess); err != nil {
		return err
	}
	fmt.Printf("registered and logged in as %s\n", *email)
	return nil
}

func (a *App) cmdLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	fs.Parse(args)

	sess, err := a.auth.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	sess.Profile = &models.UserProfile{Email: *email}
	if err := a.session.Save(sess); err != nil {
		return err
	}
	fmt.Printf("logged in as %s\n", *email)
	return nil
}

func (a *App) cmdLogout(ctx context.Context) error {
	// Best effort server-side revocation; local state is cleared either way.
	var sess models.Session
	if ok, _ := a.store.Get(store.SlotSession, &sess); ok && sess.RefreshToken != "" {
		if err := a.auth.Logout(ctx, sess.RefreshToken); err != nil {
			a.logger.Warn("Server-side logout failed", zap.Error(err))
		}
	}

	a.session.Clear()
	if err := a.store.Reset(); err != nil {
		return err
	}
	fmt.Println("logged out")
	return nil
}

func (a *App) cmdBalance(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("balance", flag.ExitOnError)
	key := fs.String("key", "", "exchange API key (defaults to the saved configuration's)")
	secret := fs.String("secret", "", "exchange API secret")
	fs.Parse(args)

	if *key == "" || *secret == "" {
		var saved models.Configuration
		if ok, _ := a.store.Get(store.SlotLastConfig, &saved); ok {
			if *key == "" {
				*key = saved.APIKey
			}
			if *secret == "" {
				*secret = saved.APISecret
			}
		}
	}
	if *key == "" || *secret == "" {
		return errors.New("no exchange credentials given or saved")
	}

	balance, err := a.api.CheckBalance(ctx, *key, *secret)
	if err != nil {
		return err
	}
	fmt.Printf("free: %.2f USDT  total: %.2f USDT\n", balance.FreeUSDT, balance.TotalUSDT)
	return nil
}

// strategyFlags binds the operator-entered parameters to a flag set,
// seeded from the last persisted configuration when one exists.
func (a *App) strategyFlags(fs *flag.FlagSet) *models.Configuration {
	cfg := &models.Configuration{
		Symbol:               "BTC/USDT",
		SafetyOrdersCount:    5,
		GridLengthPct:        5,
		TakeProfitPct:        1,
		TrailingCallbackPct:  0.8,
		TrailingMinProfitPct: 1,
	}
	if ok, _ := a.store.Get(store.SlotLastConfig, cfg); ok {
		a.logger.Debug("Seeded parameters from saved configuration")
	}

	fs.StringVar(&cfg.APIKey, "key", cfg.APIKey, "exchange API key")
	fs.StringVar(&cfg.APISecret, "secret", cfg.APISecret, "exchange API secret")
	fs.StringVar(&cfg.Symbol, "symbol", cfg.Symbol, "market symbol")
	fs.Float64Var(&cfg.TotalBudget, "budget", cfg.TotalBudget, "total budget in USDT")
	fs.Float64Var(&cfg.GridLengthPct, "grid-length", cfg.GridLengthPct, "grid length %")
	fs.Float64Var(&cfg.FirstOrderOffsetPct, "offset", cfg.FirstOrderOffsetPct, "first order offset %")
	fs.IntVar(&cfg.SafetyOrdersCount, "safety-orders", cfg.SafetyOrdersCount, "safety order count")
	fs.Float64Var(&cfg.VolumeScalePct, "volume-scale", cfg.VolumeScalePct, "volume scale % per step")
	fs.Float64Var(&cfg.PriceStepPct, "price-step", cfg.PriceStepPct, "grid shift threshold %")
	fs.Float64Var(&cfg.TakeProfitPct, "take-profit", cfg.TakeProfitPct, "take profit %")
	fs.BoolVar(&cfg.TrailingEnabled, "trailing", cfg.TrailingEnabled, "enable trailing take profit")
	fs.Float64Var(&cfg.TrailingCallbackPct, "callback", cfg.TrailingCallbackPct, "trailing callback %")
	fs.Float64Var(&cfg.TrailingMinProfitPct, "min-profit", cfg.TrailingMinProfitPct, "trailing minimum profit %")
	return cfg
}

func (a *App) cmdPlan(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("plan", flag.ExitOnError)
	price := fs.Float64("price", 0, "live price to plan against")
	cfg := a.strategyFlags(fs)
	fs.Parse(args)

	base := strategy.BaseOrderSize(cfg)
	band := strategy.GridRangeFor(*price, cfg)
	ratio := strategy.RiskRewardRatio(cfg)

	fmt.Printf("base order size: %.2f USDT\n", base)
	fmt.Printf("grid range:      %.4f .. %.4f\n", band.Min, band.Max)
	fmt.Printf("risk/reward:     %s\n", ratio)

	for i, order := range strategy.OrderLadder(*price, cfg) {
		fmt.Printf("  #%d  price %.4f  volume %.2f USDT\n", i+1, order.Price, order.Volume)
	}
	return nil
}

func (a *App) cmdStart(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	cfg := a.strategyFlags(fs)
	fs.Parse(args)

	// Synchronous validation first; no network call happens while any
	// field is rejected.
	verrs := cfg.Validate(nil)
	if len(verrs) > 0 {
		for _, verr := range verrs {
			fmt.Fprintf(os.Stderr, "  %s\n", verr)
		}
		return errors.New("configuration rejected")
	}

	// Budget must be covered by the free balance.
	balance, err := a.api.CheckBalance(ctx, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return err
	}
	if verrs := cfg.Validate(&balance.FreeUSDT); len(verrs) > 0 {
		for _, verr := range verrs {
			fmt.Fprintf(os.Stderr, "  %s\n", verr)
		}
		return errors.New("configuration rejected")
	}

	record, err := a.api.SetupBotConfig(ctx, cfg)
	if err != nil {
		return err
	}

	identity, err := a.api.StartBot(ctx, record.ID)
	if err != nil {
		return err
	}

	if err := a.store.Put(store.SlotLastConfigID, identity); err != nil {
		return err
	}
	if err := a.store.Put(store.SlotLastConfig, cfg); err != nil {
		return err
	}

	fmt.Printf("bot started, config %s\n", record.ID)
	if identity.CycleID != nil {
		fmt.Printf("cycle %s opened\n", *identity.CycleID)
	}
	return nil
}

func (a *App) cmdStop(ctx context.Context) error {
	identity, _, err := a.observedIdentity(ctx)
	if err != nil {
		return err
	}
	if identity == nil {
		return errors.New("no running bot known")
	}

	if err := a.api.StopBot(ctx, identity.ConfigID); err != nil {
		return err
	}

	if err := a.store.Delete(store.SlotLastConfigID, store.SlotLastConfig); err != nil {
		return err
	}
	fmt.Println("bot stopped")
	return nil
}

func (a *App) cmdConfigs(ctx context.Context) error {
	records, err := a.api.ListBotConfigs(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no configurations")
		return nil
	}
	for _, rec := range records {
		state := "inactive"
		if rec.IsActive {
			state = "active"
		}
		fmt.Printf("%s  %s\n", rec.ID, state)
	}
	return nil
}

// observedIdentity resolves which bot to act on: the persisted identity
// first, the backend's last-active configuration as fallback. The bool
// reports whether the identity came from the local store.
func (a *App) observedIdentity(ctx context.Context) (*models.BotIdentity, bool, error) {
	var identity models.BotIdentity
	if ok, err := a.store.Get(store.SlotLastConfigID, &identity); err != nil {
		return nil, false, err
	} else if ok && identity.ConfigID != uuid.Nil {
		return &identity, true, nil
	}

	record, err := a.api.GetLastActiveConfig(ctx)
	if err != nil {
		return nil, false, err
	}
	if record == nil {
		return nil, false, nil
	}
	return &models.BotIdentity{ConfigID: record.ID}, false, nil
}

// statsFetcher adapts the gateway to the poller for one configuration.
type statsFetcher struct {
	client   *api.Client
	configID uuid.UUID
}

func (f statsFetcher) Stats(ctx context.Context) (*models.DashboardSnapshot, error) {
	return f.client.GetStats(ctx, f.configID)
}

func (f statsFetcher) Trailing(ctx context.Context) (*models.TrailingStats, error) {
	return f.client.GetTrailingStats(ctx, f.configID)
}

// resolveWatchTarget picks which bot the watch loop observes and probes
// its stats once before the loop commits. A persisted identity the
// backend no longer knows (404) is dropped so the next run starts clean
// in the waiting state; an explicit -config flag and transient failures
// leave the saved slots alone. A nil identity means there is nothing to
// watch.
func (a *App) resolveWatchTarget(ctx context.Context, configFlag string) (*models.BotIdentity, *models.DashboardSnapshot, error) {
	var identity *models.BotIdentity
	persisted := false
	if configFlag != "" {
		id, err := uuid.Parse(configFlag)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid config id: %w", err)
		}
		identity = &models.BotIdentity{ConfigID: id}
	} else {
		var err error
		identity, persisted, err = a.observedIdentity(ctx)
		if err != nil {
			return nil, nil, err
		}
	}
	if identity == nil {
		return nil, nil, nil
	}

	snap, err := a.api.GetStats(ctx, identity.ConfigID)
	if err != nil {
		var apiErr *api.APIError
		if persisted && errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			if derr := a.store.Delete(store.SlotLastConfigID, store.SlotLastConfig); derr != nil {
				return nil, nil, derr
			}
			a.logger.Warn("Dropped saved configuration the backend no longer knows",
				zap.String("configId", identity.ConfigID.String()))
			return nil, nil, nil
		}
		return nil, nil, err
	}
	return identity, snap, nil
}

func (a *App) cmdWatch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configFlag := fs.String("config", "", "configuration id to watch")
	fs.Parse(args)

	identity, snap, err := a.resolveWatchTarget(ctx, *configFlag)
	if err != nil {
		return err
	}
	if identity == nil {
		fmt.Println("waiting: no bot configuration to watch")
		return nil
	}

	rec := dashboard.NewReconciler(a.logger)
	rec.ApplyStats(snap)

	fetcher := statsFetcher{client: a.api, configID: identity.ConfigID}
	poller := dashboard.NewPoller(a.cfg.Dashboard.PollInterval, fetcher, rec, a.logger)
	poller.Start(ctx)
	defer poller.Stop()

	render := time.NewTicker(a.cfg.Dashboard.PollInterval)
	defer render.Stop()

	renderView(rec.View())
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-render.C:
			renderView(rec.View())
		}
	}
}

func renderView(v dashboard.View) {
	fmt.Printf("\n[%s] %s  price %.2f (%s, 24h %+.2f%%)\n",
		v.UpdatedAt.Format("15:04:05"), v.State, v.Snapshot.LastPrice,
		v.Direction, v.Snapshot.PriceChange24hPct)
	fmt.Printf("profit %.2f USDT over %d cycles  win %.1f%%  roi %.2f%%  avg %.2f  best %.2f  worst %.2f\n",
		v.Snapshot.TotalProfit, v.Snapshot.CompletedCycles, v.Snapshot.WinRate,
		v.Snapshot.ROIPct, v.Snapshot.AvgCycleProfit, v.Snapshot.BestCycleProfit,
		v.Snapshot.WorstCycleProfit)

	if v.HasCycle {
		c := v.Cycle
		fmt.Printf("cycle %s: %d safety orders filled, avg %.4f, tp %.4f, volume %.6f, spent %.2f\n",
			c.CycleID, c.FilledSafetyOrders, c.AveragePrice, c.TakeProfitPrice,
			c.TotalVolume, c.TotalSpent)
		fmt.Printf("  unrealized %.2f  expected %.2f  dust %.8f\n",
			c.UnrealizedProfit, c.ExpectedProfit, c.AccumulatedDust)
	} else {
		fmt.Println("no open cycle")
	}

	if v.Trailing.Enabled {
		fmt.Printf("trailing: callback %.2f%%  min profit %.2f%%  %d cycles  extra %.2f%%\n",
			v.Trailing.CallbackPct, v.Trailing.MinProfitPct,
			v.Trailing.CompletedWithTrailing, v.Trailing.AvgExtraProfitPct)
		if cur := v.Trailing.Current; cur != nil && cur.Active {
			fmt.Printf("  active: activation %.4f  max %.4f  tp %.4f  potential %.2f%%\n",
				cur.ActivationPrice, cur.MaxPriceTracked, cur.CurrentTPPrice,
				cur.PotentialProfitPct)
		}
	}
}
