package config

import (
	"fmt"
	"strings"

	"github.com/ldclabs/ic-sft/pkg/types"
)

// Validate checks runtime node config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.DataDir == "" {
		return fmt.Errorf("datadir is required")
	}
	if cfg.RPC.Port < 0 || cfg.RPC.Port > 65535 {
		return fmt.Errorf("rpc.port must be in range [0, 65535]")
	}
	if err := validatePrincipals(cfg.Controllers, "controllers"); err != nil {
		return err
	}

	switch cfg.Log.Level {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be trace, debug, info, warn or error")
	}

	return nil
}

func validatePrincipals(ids []string, field string) error {
	seen := make(map[string]struct{}, len(ids))
	for i, id := range ids {
		s := strings.ToLower(strings.TrimSpace(id))
		if s == "" {
			return fmt.Errorf("%s[%d] is empty", field, i)
		}
		if _, err := types.PrincipalFromText(s); err != nil {
			return fmt.Errorf("%s[%d] must be a hex principal", field, i)
		}
		if _, ok := seen[s]; ok {
			return fmt.Errorf("%s has duplicate principal %q", field, s)
		}
		seen[s] = struct{}{}
		ids[i] = s
	}
	return nil
}
