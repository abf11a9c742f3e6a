package preflight

import (
	"context"

	"mec/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Role selects the checks relevant to one daemon.
type Role string

const (
	RoleScraper Role = "scraper"
	RoleHandler Role = "handler"
	RoleAll     Role = "all"
)

// RunAll executes all applicable preflight checks for the given config and role.
func RunAll(ctx context.Context, cfg *config.Config, role Role) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}

	if role == RoleScraper || role == RoleAll {
		if cfg.Ticketmaster.Enabled {
			results = append(results, CheckTicketmaster(ctx, cfg.Ticketmaster))
		}
		if cfg.GoOut.Enabled || cfg.Ticketportal.Enabled {
			results = append(results, CheckBrowser(cfg.Browser))
		}
	}

	if cfg.BrokerEnabled() {
		results = append(results, CheckBroker(ctx, cfg.Queue))
	} else if role == RoleHandler {
		results = append(results, Result{Name: "NATS JetStream", Detail: "nats_url is not set; the handler needs a broker"})
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
