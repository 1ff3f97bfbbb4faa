package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/leasequery/internal/adapters/driven/config/file"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show and change configuration",
	Long: `Show and change configuration.

Values resolve in order: command-line flags, LEASEQUERY_* environment
variables (also read from a .env file), the config file, then defaults.
'config set' writes to the config file only.`,
	Annotations: levelConfig(),
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Show one configuration value",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the config file.

Examples:
  leasequery config set llm.provider openai
  leasequery config set retrieval.k_final 8
  leasequery config set vector.backend qdrant`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return notConfigured("config")
	}

	all := maskSecrets(configStore.All())
	if jsonOutput {
		return printJSON(cmd, all)
	}

	data, err := yaml.Marshal(all)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return notConfigured("config")
	}

	key := args[0]
	value, ok := configStore.Get(key)
	if !ok {
		return fmt.Errorf("config key %q is not set", key)
	}
	if s, isString := value.(string); isString && isSecretKey(key) {
		value = maskAPIKey(s)
	}

	if jsonOutput {
		return printJSON(cmd, map[string]any{key: value})
	}
	fmt.Fprintln(cmd.OutOrStdout(), value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return notConfigured("config")
	}

	key, value := args[0], file.ParseValue(args[1])
	if err := configStore.Set(key, value); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	if settingsService != nil {
		settings, err := settingsService.Get()
		if err != nil {
			return err
		}
		if err := settingsService.Validate(settings); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Set %s\n", key)
	return nil
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return notConfigured("config")
	}
	fmt.Fprintln(cmd.OutOrStdout(), configStore.Path())
	return nil
}

// maskSecrets returns a copy of tree with API key values masked.
func maskSecrets(tree map[string]any) map[string]any {
	out := make(map[string]any, len(tree))
	for k, v := range tree {
		switch val := v.(type) {
		case map[string]any:
			out[k] = maskSecrets(val)
		case string:
			if isSecretKey(k) {
				out[k] = maskAPIKey(val)
			} else {
				out[k] = val
			}
		default:
			out[k] = val
		}
	}
	return out
}

func isSecretKey(key string) bool {
	return strings.HasSuffix(strings.ToLower(key), "api_key")
}

// maskAPIKey masks an API key for display, showing only the first and last 4 characters.
func maskAPIKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
