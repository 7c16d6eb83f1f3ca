package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
	"southwinds.dev/rooster/internal/generate"
	"southwinds.dev/rooster/internal/misc"
)

func getConfigFilePath() string {
	if cfgFile != "" {
		return cfgFile
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".rooster.yaml")
}

func ensureConfigDir(configFile string) error {
	return os.MkdirAll(filepath.Dir(configFile), 0700)
}

func getConfigKeyDescriptions() map[string]string {
	return map[string]string{
		"file":                      "Password file location",
		"log.level":                 "Diagnostic log level (debug, info, warn, error)",
		"memory_lock":               "Lock process memory so secrets are never swapped",
		"show":                      "Print passwords instead of copying them",
		"clipboard.clear_after":     "Clear the clipboard after this long (e.g. 30s, 0 to keep)",
		"generate.length":           "Length of generated passwords",
		"generate.alnum":            "Only use letters and digits in generated passwords",
		"audit.enabled":             "Enable audit logging",
		"audit.type":                "Audit logger type (file, syslog)",
		"audit.options.file_path":   "Audit log file path (default is next to the password file)",
		"audit.options.max_size":    "Rotate the audit log after this many MB",
		"audit.options.max_backups": "Number of rotated audit logs to keep",
		"audit.log_level":           "Audit log level",
	}
}

func isValidConfigKey(key string) bool {
	_, ok := getConfigKeyDescriptions()[key]
	return ok
}

func getConfigTemplate(template string) map[string]interface{} {
	switch template {
	case "minimal":
		return map[string]interface{}{
			"file": filepath.Join("~", misc.DefaultFileName),
		}
	case "full":
		return map[string]interface{}{
			"file":        filepath.Join("~", misc.DefaultFileName),
			"memory_lock": false,
			"show":        false,
			"log": map[string]interface{}{
				"level": "warn",
			},
			"clipboard": map[string]interface{}{
				"clear_after": "30s",
			},
			"generate": map[string]interface{}{
				"length": misc.DefaultPasswordLength,
				"alnum":  false,
			},
			"audit": map[string]interface{}{
				"enabled":   false,
				"type":      "file",
				"log_level": "info",
				"options": map[string]interface{}{
					"file_path":   "",
					"max_size":    100,
					"max_backups": 5,
				},
			},
		}
	default:
		return map[string]interface{}{
			"file": filepath.Join("~", misc.DefaultFileName),
			"clipboard": map[string]interface{}{
				"clear_after": "30s",
			},
			"generate": map[string]interface{}{
				"length": misc.DefaultPasswordLength,
				"alnum":  false,
			},
			"audit": map[string]interface{}{
				"enabled": false,
				"type":    "file",
			},
		}
	}
}

func validateConfiguration() []string {
	var errors []string

	for _, key := range []string{"log.level", "generate.length", "clipboard.clear_after", "audit.type"} {
		if err := validateConfigValue(key, viper.Get(key)); err != nil {
			errors = append(errors, err.Error())
		}
	}
	return errors
}

// validateConfigValue validates a configuration value based on its key
func validateConfigValue(key string, value interface{}) error {
	switch key {
	case "log.level":
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(fmt.Sprint(value))); err != nil {
			return fmt.Errorf("invalid log level: %v (valid: debug, info, warn, error)", value)
		}
	case "generate.length":
		n, err := strconv.Atoi(fmt.Sprint(value))
		if err != nil || n < 4 || n > generate.MaxLength {
			return fmt.Errorf("invalid password length: %v (must be between 4 and %d)", value, generate.MaxLength)
		}
	case "clipboard.clear_after":
		d, err := cast.ToDurationE(value)
		if err != nil || d < 0 {
			return fmt.Errorf("invalid clipboard.clear_after: %v (use a duration such as 30s)", value)
		}
	case "audit.type":
		validTypes := []string{"file", "syslog"}
		if str := fmt.Sprint(value); !slices.Contains(validTypes, str) {
			return fmt.Errorf("invalid audit type: %s (valid: %s)", str, strings.Join(validTypes, ", "))
		}
	}
	return nil
}

// convertValue attempts to convert a string value to its most appropriate type
func convertValue(value string) interface{} {
	switch strings.ToLower(value) {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}

	if intVal, err := strconv.Atoi(value); err == nil {
		return intVal
	}
	if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
		return floatVal
	}
	return value
}

// printConfigTable prints configuration in table format
func printConfigTable(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "KEY\tVALUE\tSOURCE")
	fmt.Fprintln(tw, "---\t-----\t------")

	var keys []string
	flattenKeys(viper.AllSettings(), "", &keys)
	sort.Strings(keys)

	for _, key := range keys {
		value := viper.Get(key)
		source := "default"
		if viper.InConfig(key) {
			source = filepath.Base(viper.ConfigFileUsed())
		}
		if os.Getenv("ROOSTER_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_"))) != "" {
			source = "environment"
		}
		if isSensitiveConfigKey(key) {
			value = "[REDACTED]"
		}
		fmt.Fprintf(tw, "%s\t%v\t%s\n", key, value, source)
	}
	return nil
}

// printConfigJSON prints configuration in JSON format
func printConfigJSON(w io.Writer) error {
	config := viper.AllSettings()
	maskSensitiveValues(config)

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config to JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

// printConfigYAML prints configuration in YAML format
func printConfigYAML(w io.Writer) error {
	config := viper.AllSettings()
	maskSensitiveValues(config)

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}
	fmt.Fprint(w, string(data))
	return nil
}

// printConfigKeysTable prints available configuration keys in table format
func printConfigKeysTable(w io.Writer, keys map[string]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "KEY\tDESCRIPTION")
	fmt.Fprintln(tw, "---\t-----------")

	sortedKeys := make([]string, 0, len(keys))
	for key := range keys {
		sortedKeys = append(sortedKeys, key)
	}
	sort.Strings(sortedKeys)

	for _, key := range sortedKeys {
		fmt.Fprintf(tw, "%s\t%s\n", key, keys[key])
	}
	return nil
}

// flattenKeys recursively flattens nested maps into dot-notation keys
func flattenKeys(m map[string]interface{}, prefix string, keys *[]string) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]interface{}); ok {
			flattenKeys(nested, key, keys)
		} else {
			*keys = append(*keys, key)
		}
	}
}

// isSensitiveConfigKey checks if a configuration key contains sensitive data
func isSensitiveConfigKey(key string) bool {
	sensitiveKeys := []string{"passphrase", "password", "secret", "token"}
	lowerKey := strings.ToLower(key)
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lowerKey, sensitive) {
			return true
		}
	}
	return false
}

// maskSensitiveValues recursively masks sensitive values in configuration
func maskSensitiveValues(config map[string]interface{}) {
	for key, value := range config {
		if isSensitiveConfigKey(key) {
			config[key] = "[REDACTED]"
		} else if nested, ok := value.(map[string]interface{}); ok {
			maskSensitiveValues(nested)
		}
	}
}

// getDefaultEditor returns the default text editor for the current platform
func getDefaultEditor() string {
	if editor := os.Getenv("EDITOR"); editor != "" {
		return editor
	}
	if visual := os.Getenv("VISUAL"); visual != "" {
		return visual
	}

	var editors []string
	switch runtime.GOOS {
	case "windows":
		editors = []string{"notepad++.exe", "notepad.exe", "code.exe"}
	case "darwin":
		editors = []string{"code", "nano", "vim", "vi"}
	default:
		editors = []string{"nano", "vim", "vi", "emacs", "code"}
	}
	for _, editor := range editors {
		if _, err := exec.LookPath(editor); err == nil {
			return editor
		}
	}
	if runtime.GOOS == "windows" {
		return "notepad.exe"
	}
	return "vi"
}

// executeEditor launches the specified editor with the given file
func executeEditor(editor, file string) error {
	var cmd *exec.Cmd
	if strings.Contains(editor, "code") {
		// VS Code returns immediately unless told to wait
		cmd = exec.Command(editor, "--wait", file)
	} else {
		cmd = exec.Command(editor, file)
	}

	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
