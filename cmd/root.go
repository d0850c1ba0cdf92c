package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiesman99/assembler/internal/stitch"
	"github.com/kiesman99/assembler/pkg/tile"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "assembler",
	Short: "Combine PNG tiles into a spritesheet",
	Long: `assembler packs equally sized tiles into a single spritesheet.

Tiles are read from the "temp" subdirectory of the root directory, in file
name order. Files that are not 8-bit RGBA images are skipped. The tiles are
laid out in the most square grid possible and the sheet is written next to
the temp directory. The output format follows the file extension.

Examples:
  # Write ./assets/out.png from the tiles in ./assets/temp
  assembler --root ./assets

  # Choose the output name
  assembler -r ./assets -o characters.png

  # Start HTTP server
  assembler serve --port 8080`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := log.InfoLevel
		if verbose || viper.GetBool("verbose") {
			level = log.DebugLevel
		}
		cmd.SetContext(withLogger(cmd.Context(), newLogger(os.Stderr, level)))
	},
	RunE: runAssemble,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.assembler.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.Flags().StringP("root", "r", "", "where to search for spritesheet tiles (required)")
	rootCmd.Flags().StringP("out", "o", tile.DefaultOutput, "spritesheet output filename")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("root", rootCmd.Flags().Lookup("root"))
	viper.BindPFlag("out", rootCmd.Flags().Lookup("out"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".assembler" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".assembler")
	}

	viper.SetEnvPrefix("assembler")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// configFromViper collects the assembly settings from flags, env and config file
func configFromViper() (*tile.Config, error) {
	root := viper.GetString("root")
	if root == "" {
		return nil, fmt.Errorf("root directory is required (use --root)")
	}

	output := viper.GetString("out")
	if output == "" {
		output = tile.DefaultOutput
	}

	return &tile.Config{Root: root, Output: output}, nil
}

func runAssemble(cmd *cobra.Command, args []string) error {
	cfg, err := configFromViper()
	if err != nil {
		return err
	}

	logger := loggerFromContext(cmd.Context())
	stitcher := stitch.NewStitcher(cfg, logger)

	if err := stitcher.Run(cmd.Context()); err != nil {
		return fmt.Errorf("failed to assemble %s: %w", tile.OutputPath(cfg), err)
	}

	return nil
}
