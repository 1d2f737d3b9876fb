// Command gradeedit edits the grades of one subject from a terminal. Every
// edit goes through the same autosave rules as the grades table: debounced
// writes, immediate writes on blur, and a guard against leaving while a
// save is still in flight.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/config"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/autosave"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/client"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/dto"
	applogger "github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/pkg/logger"
)

type options struct {
	configPath   string
	email        string
	subject      string
	verbose      bool
	versionCheck bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "gradeedit",
		Short: "Edit the grades of one subject with autosave",
		Long: `gradeedit logs in, loads one subject and reads edits from stdin:

  <row|grade-id> <field> <value>   edit a cell (saved after the debounce)
  blur <row|id> <field> [value]    leave a cell (saved now)
  show                             print the table
  pending                          list saves in flight
  flush                            save everything now and wait
  quit                             leave (asks while saves are pending)`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "config file (default ./config/config.yaml)")
	f.StringVarP(&opts.email, "email", "e", "", "teacher email")
	f.StringVarP(&opts.subject, "subject", "s", "", "subject id or name")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "log every API call")
	f.BoolVar(&opts.versionCheck, "version-check", false, "reject writes to grades changed elsewhere")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func run(ctx context.Context, opts options, in io.Reader, out io.Writer) error {
	cfg, err := config.LoadClient(opts.configPath)
	if err != nil {
		return err
	}
	if opts.verbose {
		cfg.Log.Level = "debug"
	} else {
		cfg.Log.Level = "warn"
	}
	cfg.Log.Format = "console"
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if ctx == nil {
		ctx = context.Background()
	}

	password, err := readPassword(out)
	if err != nil {
		return err
	}

	apiOpts := []client.Option{
		client.WithTimeout(cfg.Autosave.RequestTimeout),
		client.WithLogger(logger),
	}
	if opts.versionCheck {
		apiOpts = append(apiOpts, client.WithVersionCheck())
	}
	api := client.New(cfg.Autosave.BaseURL, apiOpts...)

	login, err := api.Login(ctx, opts.email, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	fmt.Fprintf(out, "Masuk sebagai %s\n", login.Teacher.Name)

	subject, err := pickSubject(ctx, api, opts.subject, out)
	if err != nil {
		return err
	}

	p := &printer{w: out}
	coord := autosave.New(api, p, autosave.Options{
		Debounce:     cfg.Autosave.Debounce,
		StatusWindow: cfg.Autosave.StatusWindow,
		Logger:       logger,
	})

	s := newSession(coord, p, readLines(in))
	s.closeTimeout = cfg.Autosave.RequestTimeout
	if err := s.load(ctx, api, subject); err != nil {
		return err
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	logger.Debug("editing", zap.String("subject_id", subject.ID), zap.Int("students", len(s.rows)))
	return s.run(ctx, sigs)
}

// readPassword prompts without echo on a terminal; PSD_PASSWORD wins when set
func readPassword(out io.Writer) (string, error) {
	if pw := os.Getenv("PSD_PASSWORD"); pw != "" {
		return pw, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("no terminal for the password prompt; set PSD_PASSWORD")
	}
	fmt.Fprint(out, "Password: ")
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}

func pickSubject(ctx context.Context, api *client.API, ref string, out io.Writer) (*dto.SubjectResponse, error) {
	subjects, err := api.Subjects(ctx)
	if err != nil {
		return nil, err
	}
	if len(subjects) == 0 {
		return nil, errors.New("belum ada mata pelajaran")
	}
	for i := range subjects {
		if subjects[i].ID == ref || strings.EqualFold(subjects[i].Name, strings.TrimSpace(ref)) {
			return &subjects[i], nil
		}
	}

	fmt.Fprintln(out, "Mata pelajaran:")
	for _, sub := range subjects {
		fmt.Fprintf(out, "  %s  %s (%d siswa)\n", sub.ID, sub.Name, sub.StudentCount)
	}
	if ref == "" {
		return nil, errors.New("pilih mata pelajaran dengan --subject")
	}
	return nil, fmt.Errorf("mata pelajaran %q tidak ditemukan", ref)
}

// readLines feeds stdin lines to a channel, closed at EOF
func readLines(in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()
	return lines
}
