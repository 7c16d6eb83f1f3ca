package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/awnumar/memguard"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"southwinds.dev/rooster/audit"
	"southwinds.dev/rooster/commands"
	"southwinds.dev/rooster/internal/clierror"
	"southwinds.dev/rooster/internal/mem"
	"southwinds.dev/rooster/internal/misc"
)

// Version is set at build time with -ldflags "-X southwinds.dev/rooster/cli/cmd.Version=..."
var Version = "dev"

var (
	cfgFile      string
	outputFormat string
	auditLogger  audit.Logger
	logger       *slog.Logger
	memoryLocked bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rooster",
	Short: "A simple password manager for the terminal",
	Long: `Rooster keeps your passwords in a single file encrypted with a master password.
The file is encrypted with XChaCha20-Poly1305 under a key derived with Argon2id,
and older rooster files are upgraded transparently the next time they change.`,
	Version:           Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initializeRuntime,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if auditLogger != nil {
			return auditLogger.Close()
		}
		return nil
	},
}

// Execute adds all child commands to the root command, runs it and exits
// with the code matching the error.
func Execute() {
	memguard.CatchInterrupt()
	defer memguard.Purge()

	err := rootCmd.Execute()
	releaseMemory()
	if errors.Is(err, commands.ErrDeclined) {
		err = nil
	}
	if err == nil {
		return
	}

	cliErr := clierror.FromError(err)
	clierror.PrintError(os.Stderr, cliErr, outputFormat)
	memguard.Purge()
	os.Exit(cliErr.ExitCode)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.rooster.yaml)")
	rootCmd.PersistentFlags().String("file", "", "password file (default is $ROOSTER_FILE or $HOME/"+misc.DefaultFileName+")")
	rootCmd.PersistentFlags().String("log-level", "", "diagnostic log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("memory-lock", false, "lock process memory so secrets are never swapped")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "error-format", "text", "error output format (text, json)")

	bindFlagOrPanic("file", "file")
	bindFlagOrPanic("log.level", "log-level")
	bindFlagOrPanic("memory_lock", "memory-lock")

	rootCmd.PersistentFlags().BoolP("show", "s", false, "print passwords instead of copying them to the clipboard")
	rootCmd.PersistentFlags().IntP("length", "l", misc.DefaultPasswordLength, "length of generated passwords")
	rootCmd.PersistentFlags().BoolP("alnum", "a", false, "only use letters and digits in generated passwords")

	bindFlagOrPanic("show", "show")
	bindFlagOrPanic("generate.length", "length")
	bindFlagOrPanic("generate.alnum", "alnum")

	rootCmd.PersistentFlags().Bool("audit", false, "enable audit logging")
	rootCmd.PersistentFlags().String("audit-type", "", "audit logger type (file, syslog)")
	rootCmd.PersistentFlags().String("audit-file", "", "audit log file path")

	bindFlagOrPanic("audit.enabled", "audit")
	bindFlagOrPanic("audit.type", "audit-type")
	bindFlagOrPanic("audit.options.file_path", "audit-file")

	rootCmd.SetVersionTemplate("rooster {{.Version}}\n")
}

func bindFlagOrPanic(configKey, flagName string) {
	if err := viper.BindPFlag(configKey, rootCmd.PersistentFlags().Lookup(flagName)); err != nil {
		panic(fmt.Sprintf("failed to bind %s flag: %v", flagName, err))
	}
}

func initConfig() {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")

		viper.SetConfigType("yaml")
		viper.SetConfigName(".rooster")
	}

	viper.SetEnvPrefix("ROOSTER")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		}
	}
}

func setDefaults() {
	viper.SetDefault("file", "")
	viper.SetDefault("log.level", "warn")
	viper.SetDefault("memory_lock", false)
	viper.SetDefault("show", false)

	viper.SetDefault("clipboard.clear_after", "0s")

	viper.SetDefault("generate.length", misc.DefaultPasswordLength)
	viper.SetDefault("generate.alnum", false)

	viper.SetDefault("audit.enabled", false)
	viper.SetDefault("audit.type", "file")
	viper.SetDefault("audit.options.max_size", 100)
	viper.SetDefault("audit.options.max_backups", 5)
	viper.SetDefault("audit.log_level", "info")
	viper.SetDefault("audit.options.file_path", "")
}

func initializeRuntime(cmd *cobra.Command, args []string) error {
	logger = newLogger(os.Stderr, viper.GetString("log.level"))

	if viper.GetBool("memory_lock") {
		level, err := mem.Lock()
		if err != nil {
			logger.Warn("could not lock memory", "error", err)
		} else {
			memoryLocked = level == mem.ProtectionFull
			logger.Debug("memory locked", "protection", level.String())
		}
	}

	if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
		return nil
	}

	var err error
	auditLogger, err = createAuditLogger()
	if err != nil {
		return fmt.Errorf("failed to create audit logger: %w", err)
	}
	return nil
}

// releaseMemory undoes a successful --memory-lock before the process exits.
func releaseMemory() {
	if !memoryLocked {
		return
	}
	memoryLocked = false
	if err := mem.Unlock(); err != nil {
		logger.Warn("could not unlock memory", "error", err)
	}
}

// newLogger builds the diagnostic logger. Unknown levels fall back to warn.
func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// resolveStorePath picks the password file: --file or the file config key,
// then ROOSTER_FILE, then ~/.passwords.rooster.
func resolveStorePath() (string, error) {
	if path := viper.GetString("file"); path != "" {
		return expandHome(path)
	}
	if path := os.Getenv(misc.FileEnvVar); path != "" {
		return expandHome(path)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find your home directory, set %s: %w", misc.FileEnvVar, err)
	}
	return filepath.Join(home, misc.DefaultFileName), nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

func defaultAuditPath(storePath string) string {
	return filepath.Join(filepath.Dir(storePath), ".rooster-audit.log")
}

func createAuditLogger() (audit.Logger, error) {
	filePath := viper.GetString("audit.options.file_path")
	if filePath == "" {
		storePath, err := resolveStorePath()
		if err != nil {
			return nil, err
		}
		filePath = defaultAuditPath(storePath)
	}
	return audit.NewLogger(&audit.Config{
		Enabled: viper.GetBool("audit.enabled"),
		Type:    audit.ConfigType(viper.GetString("audit.type")),
		Options: map[string]interface{}{
			"file_path":   filePath,
			"max_size":    viper.GetInt("audit.options.max_size"),
			"max_backups": viper.GetInt("audit.options.max_backups"),
		},
		LogLevel: viper.GetString("audit.log_level"),
	})
}

func clipboardTimeout() time.Duration {
	d := viper.GetDuration("clipboard.clear_after")
	if d < 0 {
		return 0
	}
	return d
}

// Helper function to check if a flag name is sensitive (for logging purposes)
func isSensitiveFlag(name string) bool {
	sensitive := []string{"passphrase", "password", "secret", "key", "token"}
	lower := strings.ToLower(name)
	for _, s := range sensitive {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

func sanitizeFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		if flag.Changed {
			if isSensitiveFlag(flag.Name) {
				flags[flag.Name] = "[REDACTED]"
			} else {
				flags[flag.Name] = flag.Value.String()
			}
		}
	})
	return flags
}

func auditCmdComplete(cmd *cobra.Command, err error, startedTime time.Time) error {
	if auditLogger != nil {
		if logErr := auditLogger.Log("command_complete", err == nil, map[string]interface{}{
			"command":     cmd.CommandPath(),
			"flags":       sanitizeFlags(cmd),
			"duration_ms": time.Since(startedTime).Milliseconds(),
			"error":       formatError(err),
		}); logErr != nil && logger != nil {
			logger.Warn("failed to write audit event", "error", logErr)
		}
	}
	return err
}

func formatError(err error) string {
	if err == nil {
		return ""
	}

	var messages []string
	for err != nil {
		messages = append(messages, err.Error())
		err = errors.Unwrap(err)
	}

	uniqueMessages := make([]string, 0, len(messages))
	seen := make(map[string]bool)
	for _, msg := range messages {
		if !seen[msg] {
			uniqueMessages = append(uniqueMessages, msg)
			seen[msg] = true
		}
	}

	if len(uniqueMessages) > 1 {
		return fmt.Sprintf("%s (caused by: %s)", uniqueMessages[0], strings.Join(uniqueMessages[1:], " -> "))
	}
	return uniqueMessages[0]
}
