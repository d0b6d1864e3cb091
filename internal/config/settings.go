// Package config reads the household configuration out of viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/hearthledger/internal/common"
	"github.com/spf13/viper"
)

// Settings reads the household configuration out of viper. It is the
// single ConfigSource implementation; viper owns defaults, the config
// file, and HEARTH_* environment overrides.
type Settings struct {
	v *viper.Viper
}

// NewSettings wraps the global viper instance.
func NewSettings() *Settings {
	return &Settings{v: viper.GetViper()}
}

// NewSettingsFrom wraps a specific viper instance. Tests use this to
// avoid mutating global state.
func NewSettingsFrom(v *viper.Viper) *Settings {
	return &Settings{v: v}
}

// Validate checks the parts of the configuration the engine cannot run
// without.
func (s *Settings) Validate() error {
	if s.ServerURL() == "" {
		return fmt.Errorf("%w: server.url is required", common.ErrMissingConfig)
	}
	if len(s.MemberAccounts()) == 0 {
		return fmt.Errorf("%w: household.members is required", common.ErrMissingConfig)
	}
	return nil
}

// ServerURL returns the ledger server base URL.
func (s *Settings) ServerURL() string {
	return strings.TrimSpace(s.v.GetString("server.url"))
}

// DatabasePath returns the offline snapshot database path, with ~ and
// environment variables expanded.
func (s *Settings) DatabasePath() string {
	path := s.v.GetString("database.path")
	if path == "" {
		path = "$HOME/.local/share/hearth/hearth.db"
	}
	return ExpandPath(path)
}

// MemberAccounts returns the household member accounts in configured
// order. The joint pseudo-account is never listed here.
func (s *Settings) MemberAccounts() []string {
	return trimAll(s.v.GetStringSlice("household.members"))
}

// Categories returns the category enumeration, empty when categories
// are unconstrained.
func (s *Settings) Categories() []string {
	return trimAll(s.v.GetStringSlice("ledger.categories"))
}

// CriticalityLevels returns the criticality enumeration, empty when
// unconstrained.
func (s *Settings) CriticalityLevels() []string {
	return trimAll(s.v.GetStringSlice("ledger.criticality_levels"))
}

// DefaultPaymentMethod returns the configured default payment method
// for an account, empty when none is set.
func (s *Settings) DefaultPaymentMethod(account string) string {
	methods := s.v.GetStringMapString("ledger.default_payment_methods")
	return strings.TrimSpace(methods[strings.ToLower(strings.TrimSpace(account))])
}

// ExpandPath expands a leading ~ and $VAR environment references in a
// file path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}
	if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			path = home
		}
	} else if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	return os.ExpandEnv(path)
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
