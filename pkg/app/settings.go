package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zurustar/gofluid/pkg/fluid"
	"github.com/zurustar/gofluid/pkg/native"
)

func (app *Application) settingsCommand() *cobra.Command {
	var set []string
	cmd := &cobra.Command{
		Use:   "settings [KEY...]",
		Short: "Print settings values",
		Long: `Print settings values with their kind. Without KEY every key known to the
built-in library is printed. --set KEY=VALUE assigns before printing, with
the same coercion rules as the settings store.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runSettings(args, set)
		},
	}
	cmd.Flags().StringArrayVar(&set, "set", nil, "KEY=VALUE を設定してから表示する")
	return cmd
}

func (app *Application) runSettings(keys, assignments []string) error {
	h, err := app.openHandle()
	if err != nil {
		return err
	}
	s, err := fluid.NewSettings(h)
	if err != nil {
		return err
	}
	defer s.Close()

	if app.config.Quality != "" {
		if err := s.SetQuality(fluid.Quality(app.config.Quality)); err != nil {
			return err
		}
	}
	for _, a := range assignments {
		key, value, ok := strings.Cut(a, "=")
		if !ok {
			return fmt.Errorf("invalid assignment %q (want KEY=VALUE)", a)
		}
		if err := s.Set(key, value); err != nil {
			return err
		}
	}

	if len(keys) == 0 {
		keys = native.Keys()
	}
	fmt.Fprintf(app.out, "library %s, quality %s\n", h.Version(), s.Quality())
	for _, key := range keys {
		v, err := s.Get(key)
		if errors.Is(err, fluid.ErrUnsupportedOperation) {
			// 2.x 系は文字列の取得を提供しない
			fmt.Fprintf(app.out, "%s = <unreadable> (%s)\n", key, s.Type(key))
			continue
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(app.out, "%s = %v (%s)\n", key, v, s.Type(key))
	}
	return nil
}
