package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"

	"github.com/nomis52/activityboard/board"
	"github.com/nomis52/activityboard/buildinfo"
	"github.com/nomis52/activityboard/clients/activitiesclient"
	"github.com/nomis52/activityboard/config"
	"github.com/nomis52/activityboard/logging"
)

type Args struct {
	ConfigPath  string
	ShowVersion bool
	Validate    bool
	Yes         bool
	Command     []string
}

// errRejected marks a command the backend answered with an error message.
var errRejected = errors.New("request rejected")

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	args := parseArgs()

	if args.ShowVersion {
		showVersion()
		return nil
	}

	if args.ConfigPath == "" {
		return fmt.Errorf("config flag (-c or --config) is required")
	}

	cfg, err := config.LoadConfig(args.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if args.Validate {
		fmt.Printf("Configuration validation successful: %s\n", args.ConfigPath)
		return nil
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	opts := []activitiesclient.Option{activitiesclient.WithLogger(logger.Logger)}
	if cfg.API.Timeout > 0 {
		opts = append(opts, activitiesclient.WithTimeout(cfg.API.Timeout))
	}
	client, err := activitiesclient.New(cfg.API.BaseURL, opts...)
	if err != nil {
		return fmt.Errorf("failed to create activities client: %w", err)
	}
	ctrl := board.New(client, board.WithLogger(logger.Logger))

	ctx := activitiesclient.WithRequestID(context.Background(), uuid.NewString())
	return runCommand(ctx, ctrl, args, os.Stdin, os.Stdout)
}

// runCommand executes one subcommand against ctrl.
func runCommand(ctx context.Context, ctrl *board.Controller, args Args, in io.Reader, out io.Writer) error {
	if len(args.Command) == 0 {
		return fmt.Errorf("missing command, expected one of: list, signup, unregister")
	}

	switch cmd, rest := args.Command[0], args.Command[1:]; cmd {
	case "list":
		return list(ctx, ctrl, out)
	case "signup":
		if len(rest) != 2 {
			return fmt.Errorf("usage: signup <activity> <email>")
		}
		return report(out, ctrl.SubmitSignup(ctx, rest[1], rest[0]))
	case "unregister":
		if len(rest) != 2 {
			return fmt.Errorf("usage: unregister <activity> <email>")
		}
		name, email := rest[0], rest[1]
		if !args.Yes && !confirm(in, out, board.ConfirmPrompt(name, email)) {
			fmt.Fprintln(out, "Cancelled")
			return nil
		}
		return report(out, ctrl.RemoveParticipant(ctx, name, email))
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func list(ctx context.Context, ctrl *board.Controller, out io.Writer) error {
	listing := ctrl.Load(ctx)
	if listing.Failed() {
		return errors.New(listing.Error)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ACTIVITY\tSCHEDULE\tSPOTS LEFT\tPARTICIPANTS")
	for _, card := range listing.Cards {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", card.Name, card.Schedule, card.SpotsLeft, strings.Join(card.Participants, ", "))
	}
	return tw.Flush()
}

func report(out io.Writer, msg board.Message) error {
	if msg.Kind == board.KindError {
		return fmt.Errorf("%w: %s", errRejected, msg.Text)
	}
	fmt.Fprintln(out, msg.Text)
	return nil
}

func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N] ", prompt)
	var answer string
	fmt.Fscanln(in, &answer)
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func showVersion() {
	props := buildinfo.Get()
	fmt.Printf("activityboard\n")
	fmt.Printf("Version: %s\n", props.Version)
	fmt.Printf("Built: %s\n", props.BuildTime)
	fmt.Printf("Commit: %s\n", props.GitCommit)
}

func parseArgs() Args {
	configPath := flag.String("config", "", "Path to config file")
	configPathShort := flag.String("c", "", "Path to config file (shorthand)")
	showVersion := flag.Bool("version", false, "Show version information")
	versionShort := flag.Bool("v", false, "Show version information (shorthand)")
	validate := flag.Bool("validate", false, "Validate configuration and exit")
	yes := flag.Bool("yes", false, "Do not ask before removing a participant")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <command> [arguments]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nActivity Board command line client\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  list                          Show activities and participants\n")
		fmt.Fprintf(os.Stderr, "  signup <activity> <email>     Sign a student up\n")
		fmt.Fprintf(os.Stderr, "  unregister <activity> <email> Remove a participant\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -c config.yaml list\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -c config.yaml signup \"Chess Club\" new@mergington.edu\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --version\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --config config.yaml --validate\n", os.Args[0])
	}

	flag.Parse()

	path := *configPath
	if path == "" && *configPathShort != "" {
		path = *configPathShort
	}

	return Args{
		ConfigPath:  path,
		ShowVersion: *showVersion || *versionShort,
		Validate:    *validate,
		Yes:         *yes,
		Command:     flag.Args(),
	}
}
