package main

import (
	"fmt"
	"github.com/beldeveloper/ecomet/internal/app/compose"
	"github.com/spf13/cobra"
	"io"
	"strings"
)

var (
	composeEnvFile       string
	composeNoInterpolate bool
)

var composeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Check the compose files of the deployment stacks.",
}

var composeValidateCmd = &cobra.Command{
	Use:   "validate FILE...",
	Short: "Validate compose files.",
	Long:  "`validate FILE...` prints the problems of every file and fails when any file has errors.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		invalid := 0
		for _, path := range args {
			f, err := loadCompose(path)
			if err != nil {
				fmt.Fprintf(out, "%s: %v\n", path, err)
				invalid++
				continue
			}
			rep := compose.Validate(f)
			printReport(out, path, rep)
			if !rep.Valid() {
				invalid++
			}
		}
		if invalid > 0 {
			return fmt.Errorf("%d of %d files are invalid", invalid, len(args))
		}
		return nil
	},
}

var composeOrderCmd = &cobra.Command{
	Use:   "order FILE",
	Short: "Print the startup order of the services.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := loadCompose(args[0])
		if err != nil {
			return err
		}
		levels, err := compose.StartupOrder(f)
		if err != nil {
			return err
		}
		for i, level := range levels {
			fmt.Fprintf(cmd.OutOrStdout(), "%d: %s\n", i+1, strings.Join(level, " "))
		}
		return nil
	},
}

var composeConfigCmd = &cobra.Command{
	Use:   "config FILE",
	Short: "Print the interpolated and normalized compose file.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := loadCompose(args[0])
		if err != nil {
			return err
		}
		data, err := compose.Marshal(f)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	composeCmd.PersistentFlags().StringVar(&composeEnvFile, "compose-env-file", "",
		"dotenv file for the variables, .env next to the compose file by default")
	composeCmd.PersistentFlags().BoolVar(&composeNoInterpolate, "no-interpolate", false, "keep ${...} expressions as they are")
	composeCmd.AddCommand(composeValidateCmd, composeOrderCmd, composeConfigCmd)
}

func loadCompose(path string) (*compose.File, error) {
	return compose.Load(path, compose.Options{EnvFile: composeEnvFile, SkipInterpolation: composeNoInterpolate})
}

func printReport(w io.Writer, path string, rep compose.Report) {
	if len(rep.Issues) == 0 {
		fmt.Fprintf(w, "%s: ok\n", path)
		return
	}
	for _, i := range rep.Issues {
		fmt.Fprintf(w, "%s: %s\n", path, i)
	}
}
