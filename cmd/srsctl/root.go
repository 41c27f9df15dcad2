package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/config"
	"github.com/phrazzld/scry-scheduler/internal/platform/logger"
	"github.com/phrazzld/scry-scheduler/internal/platform/sqlite"
	"github.com/phrazzld/scry-scheduler/internal/policy"
	"github.com/phrazzld/scry-scheduler/internal/service"
	"github.com/phrazzld/scry-scheduler/migrations"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// skipSessionAnnotation marks commands that do not need the database.
const skipSessionAnnotation = "srsctl/no-session"

// session is the state shared by the subcommands of one invocation.
type session struct {
	v      *viper.Viper
	logger *slog.Logger
	db     *sql.DB
	study  *service.StudyService
	userID uuid.UUID
}

func defaultDBPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "srsctl", "study.db")
	}
	return "study.db"
}

func newSession() *session {
	return &session{v: viper.New()}
}

// newRootCmd builds the command tree around s. Flags are bound to viper so
// every flag can also be set through an SRSCTL_ environment variable. The
// caller closes s once the command has run.
func newRootCmd(s *session) *cobra.Command {

	root := &cobra.Command{
		Use:           "srsctl",
		Short:         "Spaced repetition scheduling from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[skipSessionAnnotation] == "true" {
				return s.setupLogger(cmd.ErrOrStderr())
			}
			return s.open(cmd.Context(), cmd.ErrOrStderr())
		},
	}

	flags := root.PersistentFlags()
	flags.String("db", defaultDBPath(), "path of the SQLite study database")
	flags.String("user", "local", "learner name or UUID")
	flags.String("preset", policy.DefaultPreset, "preset for a learner without a saved policy")
	flags.String("adaptive-mode", string(policy.AdaptiveAdvisory), "adaptive mode: off, advisory or automatic")
	flags.String("timezone", "Local", "IANA timezone delimiting study days")
	flags.String("log-level", "warn", "log level: debug, info, warn or error")
	for _, name := range []string{"db", "user", "preset", "adaptive-mode", "timezone", "log-level"} {
		_ = s.v.BindPFlag(name, flags.Lookup(name))
	}
	s.v.SetEnvPrefix("SRSCTL")
	s.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	s.v.AutomaticEnv()

	root.AddCommand(
		newReviewCmd(s),
		newDueCmd(s),
		newPostponeCmd(s),
		newStatsCmd(s),
		newHistoryCmd(s),
		newDifficultyCmd(s),
		newResetCmd(s),
		newPresetCmd(s),
		newConfigCmd(s),
		newAdaptCmd(s),
		newTokenCmd(s),
	)
	return root
}

func (s *session) setupLogger(out io.Writer) error {
	log, err := logger.New(out, config.ServerConfig{
		LogLevel:  s.v.GetString("log-level"),
		LogFormat: "text",
	})
	if err != nil {
		return err
	}
	s.logger = log
	return nil
}

// open connects to the database and loads the learner's session.
func (s *session) open(ctx context.Context, logOut io.Writer) error {
	if err := s.setupLogger(logOut); err != nil {
		return err
	}

	userID, err := resolveUser(s.v.GetString("user"))
	if err != nil {
		return err
	}
	s.userID = userID

	mode, err := policy.ParseAdaptiveMode(s.v.GetString("adaptive-mode"))
	if err != nil {
		return err
	}
	loc, err := loadLocation(s.v.GetString("timezone"))
	if err != nil {
		return err
	}

	db, err := sqlite.Open(ctx, s.v.GetString("db"))
	if err != nil {
		return err
	}
	s.db = db
	if err := migrations.Up(ctx, db, migrations.SQLite, s.logger); err != nil {
		return err
	}

	s.study, err = service.NewStudyService(service.Stores{
		DB:         db,
		CardStates: sqlite.NewCardStateStore(db, s.logger),
		Statistics: sqlite.NewStatisticsStore(db, s.logger),
		ReviewLog:  sqlite.NewReviewLogStore(db, s.logger),
		Policies:   sqlite.NewPolicyStore(db, s.logger),
	}, service.Config{
		DefaultPreset: s.v.GetString("preset"),
		AdaptiveMode:  mode,
		Location:      loc,
	}, service.WithLogger(s.logger))
	return err
}

func (s *session) close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// resolveUser accepts a UUID or derives a stable one from a name.
func resolveUser(name string) (uuid.UUID, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return uuid.Nil, fmt.Errorf("user cannot be empty")
	}
	if id, err := uuid.Parse(name); err == nil {
		return id, nil
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("srsctl:"+name)), nil
}

func loadLocation(name string) (*time.Location, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	return loc, nil
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
