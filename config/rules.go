package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	toml "github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
)

// BypassRule is one entry of the auth rules file or AUTH_BYPASS_PATTERNS
type BypassRule struct {
	Pattern string `toml:"pattern" validate:"required,startswith=/"`
	Bypass  bool   `toml:"bypass"`
}

// rulesFile is the TOML layout:
//
//	[[rule]]
//	pattern = "/auth/**"
//	bypass = true
type rulesFile struct {
	Rules []BypassRule `toml:"rule"`
}

// ParseBypassPatterns parses a comma separated pattern list.
// A leading "!" marks an enforced pattern; order is preserved.
func ParseBypassPatterns(s string) []BypassRule {
	var rules []BypassRule
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if strings.HasPrefix(p, "!") {
			rules = append(rules, BypassRule{Pattern: strings.TrimSpace(p[1:]), Bypass: false})
			continue
		}
		rules = append(rules, BypassRule{Pattern: p, Bypass: true})
	}
	return rules
}

// LoadRulesFile reads bypass rules from a TOML file
func LoadRulesFile(path string) ([]BypassRule, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f rulesFile
	if err := toml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for i, r := range f.Rules {
		if !strings.HasPrefix(r.Pattern, "/") {
			return nil, fmt.Errorf("%s: rule %d: pattern %q must start with /", path, i, r.Pattern)
		}
	}
	if f.Rules == nil {
		f.Rules = []BypassRule{}
	}
	return f.Rules, nil
}

const rulesReloadDebounce = 100 * time.Millisecond

// WatchRulesFile reloads the rules file whenever it changes and hands the
// new rules to onChange. An unreadable or invalid file keeps the previous
// rules in place. It returns once the watcher is running; cancel ctx to stop.
func WatchRulesFile(ctx context.Context, path string, onChange func([]BypassRule), logger *zap.Logger) error {
	if path == "" {
		return errors.New("rules file path is empty")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// Editors replace files by rename, so watch the directory and filter by name
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	target := filepath.Clean(path)
	go func() {
		defer func() { _ = w.Close() }()

		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(rulesReloadDebounce)
				} else {
					timer.Reset(rulesReloadDebounce)
				}
				fire = timer.C
			case <-fire:
				fire = nil
				rules, err := LoadRulesFile(path)
				if err != nil {
					logger.Warn("auth rules reload failed, keeping previous rules",
						zap.String("path", path),
						zap.Error(err))
					continue
				}
				logger.Info("auth rules reloaded",
					zap.String("path", path),
					zap.Int("rules", len(rules)))
				onChange(rules)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("auth rules watcher error", zap.Error(err))
			}
		}
	}()

	return nil
}
