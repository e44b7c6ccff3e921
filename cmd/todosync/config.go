package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// secretKeys are leaf names whose values are never printed.
var secretKeys = []string{"password", "token"}

func configCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(opts)
			if err != nil {
				return err
			}
			defer env.Close()

			out := cmd.OutOrStdout()
			if path := env.provider.UserPath(); path != "" {
				fmt.Fprintf(out, "# %s\n", path)
			}

			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			if err := enc.Encode(redact(env.provider.Settings())); err != nil {
				return fmt.Errorf("encoding config: %w", err)
			}
			return enc.Close()
		},
	}
}

// redact returns a copy of settings with secret leaves masked.
func redact(settings map[string]any) map[string]any {
	out := make(map[string]any, len(settings))
	for k, v := range settings {
		switch x := v.(type) {
		case map[string]any:
			out[k] = redact(x)
		default:
			if isSecret(k) && v != nil && v != "" {
				out[k] = "********"
			} else {
				out[k] = v
			}
		}
	}
	return out
}

func isSecret(key string) bool {
	key = strings.ToLower(key)
	for _, s := range secretKeys {
		if key == s || strings.HasSuffix(key, "_"+s) {
			return true
		}
	}
	return false
}
