// browserid-verify checks a backed identity assertion from the command line,
// either locally or through a remote verification service, and prints the
// verification result as JSON.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	yaml "gopkg.in/yaml.v3"

	"github.com/return42/browserid/bundle"
	"github.com/return42/browserid/supportdoc"
	"github.com/return42/browserid/verifier"
)

type config struct {
	// Audiences are glob patterns an assertion's audience must match when
	// no --audience flag is given.
	Audiences []string `yaml:"audiences"`
	// TrustedSecondaries overrides the built-in secondary provider list.
	TrustedSecondaries []string `yaml:"trusted_secondaries"`
	// VerifierURL is the remote verification service for --remote.
	VerifierURL string `yaml:"verifier_url"`
}

func loadConfig(path string) (*config, error) {
	cfg := &config{}
	if path == "" {
		return cfg, nil
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

func main() {
	var (
		configPath string
		audience   string
		remote     bool
		verbose    bool
	)

	root := &cobra.Command{
		Use:          "browserid-verify <assertion>",
		Short:        "Verify a BrowserID identity assertion",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			logger := zap.NewNop()
			if verbose {
				if logger, err = zap.NewDevelopment(); err != nil {
					return err
				}
			}

			v, err := buildVerifier(cfg, remote, logger)
			if err != nil {
				return err
			}

			assertion, err := readAssertion(args[0])
			if err != nil {
				return err
			}

			result, err := v.Verify(assertion, audience)
			if err != nil {
				return err
			}

			encoded, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(encoded))

			return nil
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	root.Flags().StringVarP(&audience, "audience", "a", "", "expected audience")
	root.Flags().BoolVar(&remote, "remote", false, "delegate to the remote verification service")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "log verification steps")

	info := &cobra.Command{
		Use:   "info <assertion>",
		Short: "Print the unverified email and audience of an assertion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			assertion, err := readAssertion(args[0])
			if err != nil {
				return err
			}

			parsed, err := bundle.AssertionInfo(assertion)
			if err != nil {
				return err
			}
			fmt.Printf("email=%s audience=%s\n", parsed.Email, parsed.Audience)

			return nil
		},
	}
	root.AddCommand(info)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// readAssertion returns the given assertion, reading it from stdin when the
// argument is "-".
func readAssertion(arg string) (string, error) {
	if arg != "-" {
		return arg, nil
	}

	contents, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read assertion from stdin: %w", err)
	}

	return strings.TrimSpace(string(contents)), nil
}

func buildVerifier(cfg *config, remote bool, logger *zap.Logger) (verifier.Verifier, error) {
	if remote {
		options := []verifier.RemoteOption{}
		if cfg.VerifierURL != "" {
			options = append(options, verifier.WithVerifierURL(cfg.VerifierURL))
		}
		return verifier.NewRemoteVerifier(options...), nil
	}

	options := []verifier.LocalOption{
		verifier.WithResolver(supportdoc.NewManager(supportdoc.WithLogger(logger))),
		verifier.WithLocalLogger(logger),
	}
	if len(cfg.Audiences) > 0 {
		options = append(options, verifier.WithAudiences(cfg.Audiences...))
	}
	if cfg.TrustedSecondaries != nil {
		options = append(options, verifier.WithTrustedSecondaries(cfg.TrustedSecondaries...))
	}

	return verifier.NewLocalVerifier(options...), nil
}
