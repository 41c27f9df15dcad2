package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/phrazzld/scry-scheduler/internal/config"
	"github.com/phrazzld/scry-scheduler/internal/policy"
	"github.com/phrazzld/scry-scheduler/internal/service/auth"
	"github.com/spf13/cobra"
)

// parseSettings turns KEY=VALUE arguments into policy settings. Values are
// read as JSON when possible, so numbers, booleans and arrays keep their
// type; anything else is a string.
func parseSettings(args []string) (map[string]any, error) {
	settings := make(map[string]any, len(args))
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid setting %q, expected KEY=VALUE", arg)
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		settings[key] = value
	}
	return settings, nil
}

func newPresetCmd(s *session) *cobra.Command {
	list := &cobra.Command{
		Use:         "list",
		Short:       "List the available presets",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipSessionAnnotation: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printJSON(cmd.OutOrStdout(), policy.Presets())
		},
	}
	cmd := &cobra.Command{
		Use:   "preset NAME",
		Short: "Switch to a preset, dropping customizations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := s.study.ApplyPreset(cmd.Context(), s.userID, args[0])
			if err != nil {
				if errors.Is(err, policy.ErrUnknownPreset) {
					return fmt.Errorf("%w; choose one of %s", err, strings.Join(policy.PresetNames(), ", "))
				}
				return err
			}
			return printJSON(cmd.OutOrStdout(), view)
		},
	}
	cmd.AddCommand(list)
	return cmd
}

func newConfigCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and change the scheduling policy",
	}

	get := &cobra.Command{
		Use:   "get [KEY]",
		Short: "Show the policy or one effective setting",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := s.study.Policy(cmd.Context(), s.userID)
			if err != nil {
				return err
			}
			if len(args) == 0 {
				return printJSON(cmd.OutOrStdout(), view)
			}
			value, err := settingValue(view.Config, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), value)
		},
	}

	set := &cobra.Command{
		Use:   "set KEY=VALUE...",
		Short: "Override settings of the active preset",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := parseSettings(args)
			if err != nil {
				return err
			}
			view, err := s.study.UpdateSettings(cmd.Context(), s.userID, settings)
			if err != nil {
				return describeViolations(err)
			}
			return printJSON(cmd.OutOrStdout(), view)
		},
	}

	validate := &cobra.Command{
		Use:   "validate KEY=VALUE...",
		Short: "Check settings without saving them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := parseSettings(args)
			if err != nil {
				return err
			}
			violations, err := s.study.ValidateSettings(cmd.Context(), s.userID, settings)
			if err != nil {
				return err
			}
			if len(violations) > 0 {
				return fmt.Errorf("invalid settings: %s", strings.Join(violations, "; "))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "settings are valid")
			return nil
		},
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Drop all customizations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			view, err := s.study.ResetSettings(cmd.Context(), s.userID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), view)
		},
	}

	var outFile string
	export := &cobra.Command{
		Use:   "export",
		Short: "Write the policy as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			blob, err := s.study.ExportPolicy(cmd.Context(), s.userID)
			if err != nil {
				return err
			}
			if outFile != "" {
				return os.WriteFile(outFile, blob, 0o600)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(blob))
			return err
		},
	}
	export.Flags().StringVarP(&outFile, "out", "o", "", "write to a file instead of stdout")

	importCmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Replace the policy with an exported one; - reads stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				blob []byte
				err  error
			)
			if args[0] == "-" {
				blob, err = io.ReadAll(cmd.InOrStdin())
			} else {
				blob, err = os.ReadFile(args[0])
			}
			if err != nil {
				return err
			}
			view, err := s.study.ImportPolicy(cmd.Context(), s.userID, blob)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), view)
		},
	}

	cmd.AddCommand(get, set, validate, reset, export, importCmd)
	return cmd
}

// settingValue looks a setting up by its JSON name.
func settingValue(cfg policy.Config, key string) (any, error) {
	if !policy.IsSetting(key) {
		return nil, fmt.Errorf("%w: %s", policy.ErrUnknownSetting, key)
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return fields[key], nil
}

// describeViolations flattens a policy validation error into one message.
func describeViolations(err error) error {
	var verr *policy.ValidationError
	if errors.As(err, &verr) && len(verr.Violations) > 0 {
		return fmt.Errorf("invalid settings: %s", strings.Join(verr.Violations, "; "))
	}
	return err
}

func newTokenCmd(s *session) *cobra.Command {
	var (
		secret   string
		lifetime time.Duration
	)
	cmd := &cobra.Command{
		Use:         "token",
		Short:       "Sign a bearer token for the learner, for local testing of the server",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipSessionAnnotation: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if secret == "" {
				secret = os.Getenv("SCRY_AUTH_JWT_SECRET")
			}
			jwtService, err := auth.NewJWTService(config.AuthConfig{JWTSecret: secret})
			if err != nil {
				return err
			}
			userID, err := resolveUser(s.v.GetString("user"))
			if err != nil {
				return err
			}
			token, err := jwtService.GenerateToken(cmd.Context(), userID, lifetime)
			if err != nil {
				return err
			}
			s.logger.Debug("token generated", "user_id", userID.String(), "lifetime", lifetime)
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "signing secret; defaults to SCRY_AUTH_JWT_SECRET")
	cmd.Flags().DurationVar(&lifetime, "ttl", time.Hour, "token lifetime")
	return cmd
}
