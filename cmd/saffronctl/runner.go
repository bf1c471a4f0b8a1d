package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/yigit/saffron/internal/app/migrations"
	"github.com/yigit/saffron/internal/app/services"
	"github.com/yigit/saffron/internal/bootstrap"
	"github.com/yigit/saffron/internal/config"
	"github.com/yigit/saffron/internal/db"
)

var readPasswordFunc = term.ReadPassword // mockable

var errEmptySecret = errors.New("an empty value was entered")

// environment is what a command needs once the config is loaded
type environment struct {
	cfg  *config.Config
	deps *bootstrap.Dependencies
}

// runner holds the CLI state shared by the subcommands
type runner struct {
	out  io.Writer
	open func(ctx context.Context, configPath string) (*environment, func(), error)
}

func newRunner(out io.Writer) *runner {
	return &runner{out: out, open: openEnvironment}
}

func openEnvironment(ctx context.Context, configPath string) (*environment, func(), error) {
	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger(configPath)
	if err != nil {
		return nil, nil, err
	}
	repos, closeRepos, err := bootstrap.OpenRepositories(ctx, cfg, lgr)
	if err != nil {
		return nil, nil, err
	}
	deps, err := bootstrap.BuildDependencies(cfg, repos, lgr)
	if err != nil {
		closeRepos()
		return nil, nil, err
	}
	return &environment{cfg: cfg, deps: deps}, closeRepos, nil
}

func (r *runner) printf(format string, args ...interface{}) {
	fmt.Fprintf(r.out, format+"\n", args...)
}

// prompt reads a secret from the terminal twice and checks both entries match
func (r *runner) prompt(label string) (string, error) {
	fmt.Fprintf(r.out, "%s: ", label)
	first, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(r.out)
	if err != nil {
		return "", err
	}
	if len(first) == 0 {
		return "", errEmptySecret
	}

	fmt.Fprintf(r.out, "%s (again): ", label)
	second, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(r.out)
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", fmt.Errorf("%s entries do not match", strings.ToLower(label))
	}
	return string(first), nil
}

func (r *runner) command() *cli.Command {
	return &cli.Command{
		Name:  "saffronctl",
		Usage: "Administer a saffron deployment",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   bootstrap.DefaultConfigPath,
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Apply pending database migrations",
				Action: r.migrate,
			},
			{
				Name:  "createsuperuser",
				Usage: "Create a staff superuser; the password is prompted",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Required: true},
				},
				Action: r.createSuperuser,
			},
			{
				Name:  "createcourse",
				Usage: "Create a course; the PIN is prompted",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Required: true},
					&cli.IntFlag{Name: "year", Aliases: []string{"y"}, Usage: "Academic year (default: current year)"},
					&cli.IntFlag{Name: "rank-limit", Usage: "Number of preference slots (default: from config)"},
				},
				Action: r.createCourse,
			},
			{
				Name:  "setpin",
				Usage: "Replace a course PIN; the PIN is prompted",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "course", Required: true},
				},
				Action: r.setPIN,
			},
		},
	}
}

func (r *runner) migrate(ctx context.Context, cmd *cli.Command) error {
	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger(cmd.String("config"))
	if err != nil {
		return err
	}
	if cfg.Database.Driver != config.DriverPostgres {
		return fmt.Errorf("migrate needs the %s driver, got %q", config.DriverPostgres, cfg.Database.Driver)
	}

	database, err := db.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	applied, err := migrations.NewMigrator(database.Pool, lgr).Migrate(ctx, migrations.Files())
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		r.printf("Schema is up to date")
		return nil
	}
	for _, name := range applied {
		r.printf("Applied %s", name)
	}
	return nil
}

func (r *runner) createSuperuser(ctx context.Context, cmd *cli.Command) error {
	password, err := r.prompt("Password")
	if err != nil {
		return err
	}

	env, closeEnv, err := r.open(ctx, cmd.String("config"))
	if err != nil {
		return err
	}
	defer closeEnv()

	user, err := env.deps.Services.Users.CreateSuperuser(ctx, cmd.String("username"), password)
	if err != nil {
		return err
	}
	r.printf("Superuser %s created (id %d)", user.Username, user.ID)
	return nil
}

func (r *runner) createCourse(ctx context.Context, cmd *cli.Command) error {
	pin, err := r.prompt("PIN")
	if err != nil {
		return err
	}

	env, closeEnv, err := r.open(ctx, cmd.String("config"))
	if err != nil {
		return err
	}
	defer closeEnv()

	input := services.NewCourse{
		Name: cmd.String("name"),
		PIN:  pin,
		Year: int(cmd.Int("year")),
	}
	if cmd.IsSet("rank-limit") {
		limit := int(cmd.Int("rank-limit"))
		input.RankLimit = &limit
	}

	course, err := env.deps.Services.Courses.CreateCourse(ctx, input)
	if err != nil {
		return err
	}
	r.printf("Course %q (%d) created with id %d", course.Name, course.Year, course.ID)
	return nil
}

func (r *runner) setPIN(ctx context.Context, cmd *cli.Command) error {
	env, closeEnv, err := r.open(ctx, cmd.String("config"))
	if err != nil {
		return err
	}
	defer closeEnv()

	course, err := env.deps.Services.Courses.GetCourse(ctx, cmd.Int64("course"))
	if err != nil {
		return err
	}

	pin, err := r.prompt("PIN")
	if err != nil {
		return err
	}
	if err := env.deps.Services.Courses.SetPIN(ctx, course, pin); err != nil {
		return err
	}
	r.printf("PIN of course %q updated", course.Name)
	return nil
}
