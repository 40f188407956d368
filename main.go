package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"pacetrack/internal/auth"
	"pacetrack/internal/config"
	"pacetrack/internal/logging"
	"pacetrack/internal/metrics"
	"pacetrack/internal/route"
	"pacetrack/internal/server"
	"pacetrack/internal/service"
	"pacetrack/internal/store"
	"pacetrack/internal/strava"
	"pacetrack/internal/tui"
)

const usage = `usage: pacetrack <command> [flags]

commands:
  run       track a run (default)
  history   list recorded runs
  rename    rename a run: rename <id> <name>
  delete    delete a run: delete <id>
  export    write a run's route as GeoJSON: export <id>
  browse    open the run browser without tracking
  serve     serve the HTTP API, optionally tracking a feed
  upload    push pending runs to Strava
  login     connect a Strava account
  logout    forget the stored Strava tokens
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	cmd := "run"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "run":
		return runCmd(ctx, args)
	case "history":
		return historyCmd(args)
	case "rename":
		return renameCmd(args)
	case "delete":
		return deleteCmd(args)
	case "export":
		return exportCmd(args)
	case "browse":
		return browseCmd(args)
	case "serve":
		return serveCmd(ctx, args)
	case "upload":
		return uploadCmd(ctx, args)
	case "login":
		return loginCmd(ctx, args)
	case "logout":
		return logoutCmd(args)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// env is the shared state every command starts from
type env struct {
	cfg     *config.Config
	db      *store.Store
	log     *zap.SugaredLogger
	metrics *metrics.Registry
}

// setup loads config, starts logging and opens the database.
// Interactive commands log to a file so output does not corrupt the terminal.
func setup(logToFile bool) (*env, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg, err := config.LoadOrDefault()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		configDir, _ := config.GetConfigDir()
		return nil, fmt.Errorf("config validation failed: %w (edit %s/config.json)", err, configDir)
	}

	opts := logging.Options{Level: cfg.Logging.Level}
	if logToFile {
		path, err := cfg.Logging.LogPath()
		if err != nil {
			return nil, err
		}
		opts.Path = path
	}
	if err := logging.Init(opts); err != nil {
		return nil, err
	}

	db, err := store.Open("")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	return &env{
		cfg:     cfg,
		db:      db,
		log:     logging.Get(),
		metrics: metrics.NewRegistry(prometheus.NewRegistry()),
	}, nil
}

func (e *env) close() {
	e.db.Close()
	logging.Close()
}

func (e *env) runService() *service.RunService {
	return service.NewRunService(e.db, e.cfg.Athlete, e.log.Named("runs"))
}

func (e *env) oauthConfig() *oauth2.Config {
	return auth.NewOAuthConfig(e.cfg.Strava.ClientID, e.cfg.Strava.ClientSecret)
}

// stravaClient builds an API client from the stored login
func (e *env) stravaClient() (*strava.Client, error) {
	if err := e.cfg.ValidateStrava(); err != nil {
		return nil, err
	}
	ts, err := auth.FromStore(e.oauthConfig(), e.db)
	if errors.Is(err, store.ErrNoAuth) {
		return nil, errors.New("not logged in to Strava; run `pacetrack login` first")
	}
	if err != nil {
		return nil, fmt.Errorf("loading tokens: %w", err)
	}
	limiter := strava.NewRateLimiter(e.cfg.Upload.RequestsPerWindow, e.cfg.Upload.Window())
	return strava.NewClient(ts, limiter), nil
}

func (e *env) uploadService() (*service.UploadService, error) {
	client, err := e.stravaClient()
	if err != nil {
		return nil, err
	}
	return service.NewUploadService(client, e.db, e.metrics, e.cfg.Upload.BatchSize, e.log.Named("upload")), nil
}

func runCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	var sf sourceFlags
	sf.register(fs)
	headless := fs.Bool("no-tui", false, "print the summary instead of opening the terminal UI")
	name := fs.String("name", "", "name for the recorded run")
	fs.Parse(args)

	// the terminal UI owns stdin, so a stdin feed is always headless
	interactive := !*headless && !sf.stdin
	e, err := setup(interactive)
	if err != nil {
		return err
	}
	defer e.close()

	runs := e.runService()
	sess, err := newSession(e, sf)
	if err != nil {
		return err
	}

	if interactive {
		return sess.runTUI(ctx, runs)
	}

	var saved *service.RecordResult
	var saveErr error
	sess.onCompleted(runs, *name, func(res *service.RecordResult, err error) {
		saved, saveErr = res, err
	})
	sum, err := sess.runHeadless(ctx)
	if err != nil {
		return err
	}
	// the stop reply is sent after Completed returns, so saved is set
	printSummary(tui.NewUnits(e.cfg.Display), sum, saved)
	if saveErr != nil {
		return fmt.Errorf("saving run: %w", saveErr)
	}
	return nil
}

func browseCmd(args []string) error {
	fs := flag.NewFlagSet("browse", flag.ExitOnError)
	fs.Parse(args)

	e, err := setup(true)
	if err != nil {
		return err
	}
	defer e.close()

	app := tui.NewApp(tui.Options{
		Runs:  e.runService(),
		Units: tui.NewUnits(e.cfg.Display),
	})
	if _, err := tea.NewProgram(app, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}

func historyCmd(args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	limit := fs.Int("limit", service.DefaultHistoryLimit, "number of runs to list")
	fs.Parse(args)

	e, err := setup(false)
	if err != nil {
		return err
	}
	defer e.close()

	runs := e.runService()
	list, err := runs.History(*limit, 0)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	units := tui.NewUnits(e.cfg.Display)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tWHEN\tNAME\tDISTANCE\tTIME\tPACE\tSTRAVA")
	for _, r := range list {
		uploaded := "-"
		if r.Uploaded() {
			uploaded = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(r.ID),
			humanize.Time(r.StartedAt),
			r.Name,
			units.FormatDistance(r.DistanceKm),
			tui.FormatDuration(r.DurationSeconds),
			units.FormatPaceWithUnit(r.PaceMinPerKm),
			uploaded,
		)
	}
	w.Flush()

	totals, err := runs.Totals()
	if err != nil {
		return err
	}
	fmt.Printf("\n%s runs, %s, %s kcal\n",
		humanize.Comma(int64(totals.Runs)),
		units.FormatDistance(totals.DistanceKm),
		humanize.Comma(int64(totals.Calories)))
	return nil
}

func serveCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	var sf sourceFlags
	sf.register(fs)
	addr := fs.String("addr", "", "listen address (default from config)")
	fs.Parse(args)

	e, err := setup(false)
	if err != nil {
		return err
	}
	defer e.close()

	if *addr == "" {
		*addr = e.cfg.Server.Addr
	}
	runs := e.runService()

	opts := server.Options{
		Runs:           runs,
		Metrics:        e.metrics,
		AllowedOrigins: e.cfg.Server.AllowedOrigins,
		Logger:         e.log.Named("http"),
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if e.cfg.Upload.Enabled {
		uploader, err := e.uploadService()
		if err != nil {
			return fmt.Errorf("upload enabled but unavailable: %w", err)
		}
		stopUploads, err := uploader.Schedule(ctx, e.cfg.Upload.Schedule)
		if err != nil {
			return err
		}
		defer stopUploads()
		e.log.Infow("upload schedule started", "schedule", e.cfg.Upload.Schedule)
	}

	// a replay or stdin feed is tracked and auto-stopped while serving
	wait := func() {}
	if sf.enabled() {
		sf.autoStop = true
		sess, err := newSession(e, sf)
		if err != nil {
			return err
		}
		sess.onCompleted(runs, "", func(res *service.RecordResult, err error) {
			if err != nil {
				e.log.Errorw("recording run", "error", err)
				return
			}
			e.log.Infow("run recorded", "run_id", res.Run.ID, "name", res.Run.Name, "new_records", res.NewRecords)
		})
		opts.Live = sess.loop

		tracking := make(chan struct{})
		go func() {
			defer close(tracking)
			if _, err := sess.runHeadless(ctx); err != nil && !errors.Is(err, context.Canceled) {
				e.log.Errorw("tracking session ended", "error", err)
			}
		}()
		wait = func() { <-tracking }
	}

	err = server.New(opts).ListenAndServe(ctx, *addr)
	cancel()
	wait()
	return err
}

func uploadCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	fs.Parse(args)

	e, err := setup(false)
	if err != nil {
		return err
	}
	defer e.close()

	client, err := e.stravaClient()
	if err != nil {
		return err
	}
	uploader := service.NewUploadService(client, e.db, e.metrics, e.cfg.Upload.BatchSize, e.log.Named("upload"))

	ctx, cancel := context.WithTimeout(ctx, service.UploadTimeout)
	defer cancel()

	res, err := uploader.UploadPending(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Uploaded %d of %d pending runs\n", res.Uploaded, res.Pending)
	short, daily := client.RateLimitStatus()
	e.log.Infow("strava rate limit", "short_remaining", short, "daily_remaining", daily)
	for _, err := range res.Errors {
		fmt.Printf("  %v\n", err)
	}
	return nil
}

func loginCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	fs.Parse(args)

	e, err := setup(false)
	if err != nil {
		return err
	}
	defer e.close()

	if err := e.cfg.ValidateStrava(); err != nil {
		if _, loadErr := config.Load(); errors.Is(loadErr, config.ErrNoConfig) {
			if err := config.CreateExample(); err != nil {
				return fmt.Errorf("creating example config: %w", err)
			}
		}
		configDir, _ := config.GetConfigDir()
		fmt.Printf("Please edit the config file at:\n  %s/config.json\n\n", configDir)
		fmt.Println("You need to add your Strava API credentials.")
		fmt.Println("Get them from: https://www.strava.com/settings/api")
		return err
	}

	result, err := auth.Authenticate(ctx, e.oauthConfig(), os.Stdout)
	if err != nil {
		return fmt.Errorf("authentication: %w", err)
	}
	if err := e.db.SaveAuth(auth.ToAuth(result)); err != nil {
		return fmt.Errorf("saving auth: %w", err)
	}

	fmt.Println()
	client, err := e.stravaClient()
	if err != nil {
		return err
	}
	athlete, err := client.GetAthlete(ctx)
	if err != nil {
		e.log.Warnw("fetching athlete", "error", err)
		fmt.Printf("Successfully authenticated as athlete %d!\n", result.AthleteID)
		return nil
	}
	fmt.Printf("Successfully authenticated as %s!\n", athlete.DisplayName())
	return nil
}

func logoutCmd(args []string) error {
	fs := flag.NewFlagSet("logout", flag.ExitOnError)
	fs.Parse(args)

	e, err := setup(false)
	if err != nil {
		return err
	}
	defer e.close()

	if err := e.db.DeleteAuth(); err != nil {
		return fmt.Errorf("removing auth: %w", err)
	}
	fmt.Println("Logged out of Strava.")
	return nil
}

func renameCmd(args []string) error {
	fs := flag.NewFlagSet("rename", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 2 {
		return errors.New("usage: pacetrack rename <id> <name>")
	}

	e, err := setup(false)
	if err != nil {
		return err
	}
	defer e.close()

	id, err := resolveRunID(e.runService(), fs.Arg(0))
	if err != nil {
		return err
	}
	if err := e.runService().Rename(id, fs.Arg(1)); err != nil {
		return fmt.Errorf("renaming run: %w", err)
	}
	fmt.Printf("Renamed %s to %q\n", shortID(id), fs.Arg(1))
	return nil
}

func deleteCmd(args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 1 {
		return errors.New("usage: pacetrack delete <id>")
	}

	e, err := setup(false)
	if err != nil {
		return err
	}
	defer e.close()

	runs := e.runService()
	id, err := resolveRunID(runs, fs.Arg(0))
	if err != nil {
		return err
	}
	if err := runs.Delete(id); err != nil {
		return fmt.Errorf("deleting run: %w", err)
	}
	fmt.Printf("Deleted %s\n", shortID(id))
	return nil
}

func exportCmd(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 1 {
		return errors.New("usage: pacetrack export <id>")
	}

	e, err := setup(false)
	if err != nil {
		return err
	}
	defer e.close()

	runs := e.runService()
	id, err := resolveRunID(runs, fs.Arg(0))
	if err != nil {
		return err
	}
	sum, err := runs.Summary(id)
	if err != nil {
		return err
	}
	data, err := route.FromSummary(sum).MarshalJSON()
	if err != nil {
		return fmt.Errorf("encoding route: %w", err)
	}
	_, err = os.Stdout.Write(append(data, '\n'))
	return err
}

// resolveRunID accepts a full run ID or the short prefix shown by history
func resolveRunID(runs *service.RunService, arg string) (string, error) {
	if _, err := runs.Get(arg); err == nil {
		return arg, nil
	} else if !errors.Is(err, store.ErrRunNotFound) {
		return "", err
	}

	list, err := runs.History(service.MaxHistoryLimit, 0)
	if err != nil {
		return "", err
	}
	var match string
	for _, r := range list {
		if strings.HasPrefix(r.ID, arg) {
			if match != "" {
				return "", fmt.Errorf("run id %q is ambiguous", arg)
			}
			match = r.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", store.ErrRunNotFound, arg)
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
