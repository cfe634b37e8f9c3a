package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tavily-mcp/internal/infra/config"
	"tavily-mcp/internal/infra/tracer"
)

// CheckStatus represents the result of a health check.
type CheckStatus string

const (
	StatusPass CheckStatus = "PASS"
	StatusWarn CheckStatus = "WARN"
	StatusFail CheckStatus = "FAIL"
)

// CheckResult holds the outcome of a single health check.
type CheckResult struct {
	Name    string
	Status  CheckStatus
	Message string
	Fix     string // optional fix suggestion
}

// Check is a named health check function.
type Check struct {
	Name string
	Fn   func(cfg *config.Config) CheckResult
}

func newDoctorCmd(opts *rootOptions) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run health checks on config, credentials and connectivity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cfgErr := config.Load(opts.configPath)

			checks := []Check{
				{Name: "Config file", Fn: checkConfigFile(opts.configPath, cfgErr)},
				{Name: "Search API key", Fn: checkAPIKey},
				{Name: "Tracer", Fn: checkTracer},
				{Name: "Fetch safety", Fn: checkFetchSafety},
			}
			if !offline {
				checks = append(checks, Check{Name: "Search provider", Fn: checkSearchProvider})
			}
			return runDoctor(cmd.OutOrStdout(), cfg, checks)
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "skip network checks")
	return cmd
}

// runDoctor executes all health checks and reports results.
func runDoctor(out io.Writer, cfg *config.Config, checks []Check) error {
	fmt.Fprintln(out, "tavily-mcp doctor")
	fmt.Fprintln(out, strings.Repeat("=", 50))
	fmt.Fprintln(out)

	var pass, warn, fail int
	for _, check := range checks {
		result := check.Fn(cfg)
		result.Name = check.Name

		fmt.Fprintf(out, "  [%s] %s: %s\n", result.Status, result.Name, result.Message)
		if result.Fix != "" {
			fmt.Fprintf(out, "      Fix: %s\n", result.Fix)
		}

		switch result.Status {
		case StatusPass:
			pass++
		case StatusWarn:
			warn++
		case StatusFail:
			fail++
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("-", 50))
	fmt.Fprintf(out, "Results: %d passed, %d warnings, %d failed\n", pass, warn, fail)

	if fail > 0 {
		return fmt.Errorf("%d check(s) failed", fail)
	}
	return nil
}

// checkConfigFile reports whether the config loaded. A missing file is fine:
// defaults apply.
func checkConfigFile(cfgPath string, cfgErr error) func(*config.Config) CheckResult {
	return func(_ *config.Config) CheckResult {
		if cfgErr != nil {
			return CheckResult{
				Status:  StatusFail,
				Message: fmt.Sprintf("config error: %v", cfgErr),
				Fix:     fmt.Sprintf("Check %s syntax, permissions (0600 or 0644) and TAVILY_MCP_* variables", cfgPath),
			}
		}
		if _, err := os.Stat(cfgPath); errors.Is(err, fs.ErrNotExist) {
			return CheckResult{
				Status:  StatusPass,
				Message: fmt.Sprintf("no file at %s, using defaults", cfgPath),
			}
		}
		return CheckResult{
			Status:  StatusPass,
			Message: fmt.Sprintf("config loaded from %s", cfgPath),
		}
	}
}

// checkAPIKey verifies the search credential is present. The key itself is never printed.
func checkAPIKey(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusFail, Message: "cannot check, config not loaded"}
	}
	name := cfg.Search.APIKeyEnv
	if _, err := config.EnvCredential(name).Credential(context.Background()); err != nil {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("%s is not set", name),
			Fix:     fmt.Sprintf("export %s=tvly-... or add it to .env", name),
		}
	}
	return CheckResult{Status: StatusPass, Message: fmt.Sprintf("%s is set", name)}
}

// checkTracer verifies the tracer config can be set up.
func checkTracer(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusWarn, Message: "cannot check, config not loaded"}
	}
	if !cfg.Tracer.Enabled {
		return CheckResult{Status: StatusPass, Message: "tracing disabled"}
	}
	shutdown, err := tracer.SetupWithWriter(context.Background(), cfg.Tracer, io.Discard)
	if err != nil {
		return CheckResult{Status: StatusFail, Message: err.Error(), Fix: "set tracer.exporter to stdout or noop"}
	}
	_ = shutdown(context.Background())
	return CheckResult{Status: StatusPass, Message: fmt.Sprintf("exporter %q ready", cfg.Tracer.Exporter)}
}

// checkFetchSafety warns when fetch may reach private networks.
func checkFetchSafety(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusWarn, Message: "cannot check, config not loaded"}
	}
	if cfg.Fetch.BlockPrivateNetworks {
		return CheckResult{Status: StatusPass, Message: "private network addresses are blocked"}
	}
	return CheckResult{
		Status:  StatusWarn,
		Message: "fetch can reach private and loopback addresses",
		Fix:     "set fetch.block_private_networks: true when serving untrusted clients",
	}
}

// checkSearchProvider verifies the provider host answers at all. Any HTTP
// status counts as reachable; only transport failures warn.
func checkSearchProvider(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusWarn, Message: "cannot check, config not loaded"}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, cfg.Search.BaseURL, nil)
	if err != nil {
		return CheckResult{Status: StatusFail, Message: fmt.Sprintf("invalid base URL: %v", err)}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return CheckResult{
			Status:  StatusWarn,
			Message: fmt.Sprintf("%s unreachable: %v", cfg.Search.BaseURL, err),
			Fix:     "check network access or search.base_url",
		}
	}
	resp.Body.Close()
	return CheckResult{Status: StatusPass, Message: fmt.Sprintf("%s reachable (HTTP %d)", cfg.Search.BaseURL, resp.StatusCode)}
}
