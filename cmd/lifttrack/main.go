package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/rivo/tview"
	"github.com/spf13/pflag"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/brunosouza-justauto/lifttrack/internal/config"
	"github.com/brunosouza-justauto/lifttrack/internal/plan"
	"github.com/brunosouza-justauto/lifttrack/internal/session"
	"github.com/brunosouza-justauto/lifttrack/internal/speech"
	"github.com/brunosouza-justauto/lifttrack/internal/store"
	"github.com/brunosouza-justauto/lifttrack/internal/ui"
)

// channelWriter forwards whole log lines to the UI log pane. The pane is
// best effort: when its channel is full the line is dropped rather than
// blocking the logger.
type channelWriter struct {
	ch chan<- string
}

func (w channelWriter) Write(p []byte) (int, error) {
	select {
	case w.ch <- string(p):
	default:
	}
	return len(p), nil
}

// teeWriter duplicates writes to both sinks, ignoring the channel side's
// result so a stuck UI can never fail file logging.
type teeWriter struct {
	file *lumberjack.Logger
	ui   channelWriter
}

func (w teeWriter) Write(p []byte) (int, error) {
	w.ui.Write(p)
	return w.file.Write(p)
}

func main() {
	configFile := pflag.String("config", "", "config file (default: ./config.yaml, then ~/.lifttrack/config.yaml)")
	workoutID := pflag.String("workout", "", "workout id to run (default: last used, then first available)")
	user := pflag.String("user", "", "user id override")
	backend := pflag.String("store", "", "session store backend: sqlite, postgres, or memory")
	demo := pflag.Bool("demo", false, "run against the in-memory store, nothing is persisted")
	voice := pflag.Bool("voice", false, "enable spoken announcements")
	pflag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}
	if *user != "" {
		cfg.User = *user
	}
	if *backend != "" {
		cfg.Store.Backend = *backend
	}
	if *demo {
		cfg.Store.Backend = "memory"
	}
	if pflag.CommandLine.Changed("voice") {
		cfg.Voice.Enabled = *voice
	}

	// The terminal UI owns stdout, so process logs go to a rotated file
	// and to the in-app log pane.
	uiLogChan := make(chan string, 100)
	fileSink := &lumberjack.Logger{
		Filename:   cfg.Log.File,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAgeDays,
	}
	logger := log.New(teeWriter{file: fileSink, ui: channelWriter{ch: uiLogChan}}, "", log.LstdFlags)
	defer fileSink.Close()

	logger.Printf("Main: Starting LiftTrack (user=%s, store=%s)", cfg.User, cfg.Store.Backend)

	ctx := context.Background()

	st, closeStore, err := openStore(ctx, logger, cfg.Store)
	if err != nil {
		fatal(logger, "Could not open session store: %v", err)
	}
	defer closeStore()

	prefs := ui.NewPrefs(logger)

	w, err := loadWorkout(ctx, cfg, prefs, *workoutID)
	if err != nil {
		fatal(logger, "Could not load workout: %v", err)
	}
	prefs.SetLastWorkout(w.ID)
	logger.Printf("Main: Loaded workout %q (%d exercises, %d sets)", w.Name, len(w.Exercises), w.TotalSets())

	var speaker speech.Speaker = speech.NoopSpeaker{}
	if cfg.Voice.Enabled {
		if s, err := speech.NewCommandSpeaker(cfg.Voice.Command, logger); err != nil {
			logger.Printf("Main: Voice output unavailable: %v", err)
		} else {
			speaker = s
		}
	}

	model := session.NewModel(logger, uiLogChan)
	runtime := session.NewRuntime(session.RuntimeArgs{
		Workout: w,
		Store:   st,
		Model:   model,
		UserID:  cfg.User,
		Logger:  logger,
	})

	app := tview.NewApplication()
	view := ui.NewTUI(logger, app, model)
	controller := ui.NewController(model, runtime, prefs, logger)
	presenter := ui.NewPresenter(ui.NewPresenterArgs{
		View:       view,
		Model:      model,
		Controller: controller,
		Speaker:    speaker,
		Logger:     logger,
	})

	model.SetVoiceEnabled(prefs.VoiceEnabled())
	if pflag.CommandLine.Changed("voice") && *voice {
		model.SetVoiceEnabled(true)
		prefs.SetVoiceEnabled(true)
	}

	controller.BeginSession()

	runErr := presenter.Run()

	// The UI has exited; tear down in dependency order so queued set
	// writes land before the store closes.
	logger.Printf("Main: UI exited, shutting down")
	presenter.Shutdown()
	controller.Shutdown()
	runtime.Shutdown()
	model.Shutdown()
	speaker.Shutdown()

	if runErr != nil {
		logger.Printf("Main: UI error: %v", runErr)
		fileSink.Close()
		os.Exit(1)
	}
	logger.Printf("Main: Shutdown complete")
}

// fatal records the error in the process log, then exits through stderr
// where the user can still see it (the TUI is not running yet).
func fatal(logger *log.Logger, format string, v ...interface{}) {
	logger.Printf("Main: FATAL: "+format, v...)
	log.Fatalf("FATAL: "+format, v...)
}

// openStore builds the configured SessionStore and returns a close func
// for the backends that hold connections.
func openStore(ctx context.Context, logger *log.Logger, cfg config.StoreConfig) (store.SessionStore, func(), error) {
	switch cfg.Backend {
	case "memory":
		logger.Printf("Main: Using in-memory store, sessions will not survive exit")
		return store.NewMemoryStore(), func() {}, nil

	case "sqlite":
		s, err := store.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		logger.Printf("Main: Session store ready at %s", cfg.Path)
		return s, func() { s.Close() }, nil

	case "postgres":
		if err := store.RunMigrations(cfg.DSN, cfg.MigrationsDir); err != nil {
			return nil, nil, err
		}
		s, err := store.OpenPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		logger.Printf("Main: Connected to postgres session store")
		return s, func() { s.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// loadWorkout resolves which workout to run: the --workout flag, then the
// last used one, then the first file in the workouts directory.
func loadWorkout(ctx context.Context, cfg config.Config, prefs *ui.Prefs, flagID string) (*plan.Workout, error) {
	source := plan.NewFileSource(cfg.WorkoutsDir)

	id := flagID
	if id == "" {
		id = prefs.LastWorkout()
	}
	if id == "" {
		ids, err := source.ListWorkouts(ctx)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, fmt.Errorf("no workouts in %s, add a <id>.yaml file or pass --workout", cfg.WorkoutsDir)
		}
		id = ids[0]
	}

	w, err := source.GetWorkout(ctx, id)
	if err != nil && flagID == "" && id != "" {
		// The remembered workout may have been deleted; fall back to
		// whatever is available.
		ids, listErr := source.ListWorkouts(ctx)
		if listErr == nil {
			for _, candidate := range ids {
				if candidate == id {
					continue
				}
				return source.GetWorkout(ctx, candidate)
			}
		}
	}
	return w, err
}
