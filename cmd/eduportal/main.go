package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	setupLogging(c.GetLogLevel())
	return rootCmd(c).Execute()
}

func rootCmd(c config.Config) *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:           "eduportal",
		Short:         "Session and route access client for the education platform",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if !quiet {
				displayAppname(c.GetAppName())
			}
		},
	}
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Hide the banner")

	cmd.AddCommand(loginCmd(c))
	cmd.AddCommand(registerCmd(c))
	cmd.AddCommand(whoamiCmd(c))
	cmd.AddCommand(statusCmd(c))
	cmd.AddCommand(openCmd(c))
	cmd.AddCommand(logoutCmd(c))
	cmd.AddCommand(serveCmd(c))
	return cmd
}

func setupLogging(level string) {
	zerolog.TimeFieldFormat = time.RFC3339
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
}

// withApp wires the session subsystem for the duration of one command
func withApp(cmd *cobra.Command, c config.Config, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, c)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
