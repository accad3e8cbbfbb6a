package main

import (
	"strings"

	"github.com/cyp0633/caldavquery/server/storage/query"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// app carries the settings shared by all subcommands.
type app struct {
	cfgFile string
	v       *viper.Viper
}

func (a *app) config() (*Config, error) {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return nil, err
		}
	}
	return loadConfig(a.v)
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "caldavquery",
		Short:         "Translate and run CalDAV/CardDAV item filter queries",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "config file")
	flags.String("db", "caldavquery.db", "SQLite database file")
	flags.String("driver", driverSQLite, "storage driver: sqlite or memory")
	flags.String("entity", query.DefaultEntity, "entity name used in translated queries")
	flags.String("log-level", "info", "log level: debug, info, warn or error")

	root.AddCommand(
		newTranslateCmd(a),
		newImportCmd(a),
		newFindCmd(a),
		newServeCmd(a),
		newRemoteCmd(a),
	)

	flags.VisitAll(func(flag *pflag.Flag) {
		if flag.Name != "config" {
			a.v.BindPFlag(flag.Name, flags.Lookup(flag.Name))
		}
	})

	a.v.SetEnvPrefix(envVarPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	return root
}
