package file

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"

	"github.com/reelrate-labs/reelrate-cli/internal/core/domain"
	"github.com/reelrate-labs/reelrate-cli/internal/core/ports/driven"
	"github.com/reelrate-labs/reelrate-cli/internal/logger"
)

// Ensure RuleSetStore implements the interface.
var _ driven.RuleSetStore = (*RuleSetStore)(nil)

// RuleSetStore loads prescreen term lists from a user-editable TOML file
// and watches it for edits. The rule-set version is a content hash, so
// prescreen output stays deterministic for an unchanged file and changes
// exactly when the file does.
type RuleSetStore struct {
	mu       sync.RWMutex
	filePath string
	current  domain.RuleSet
	watcher  *fsnotify.Watcher
	done     chan struct{}
}

// ruleFile is the on-disk TOML layout: one array of terms per category.
type ruleFile struct {
	Terms map[string][]string `toml:"terms"`
}

// defaultRuleTerms seeds the rules file on first run. Terms wrapped in
// slashes are regular expressions.
var defaultRuleTerms = map[domain.Category][]string{
	domain.CategoryViolence: {
		"blood", "gunshot", "stabbing", "corpse", "/dead bod(y|ies)/",
		"beating", "strangle", "massacre", "torture",
	},
	domain.CategoryLanguage: {
		"/f[u*]ck/", "/sh[i*]t/", "profanity", "slur", "goddamn",
	},
	domain.CategorySexualContent: {
		"nudity", "undress", "/sex scene/", "explicit", "groping",
	},
	domain.CategoryAlcoholDrugs: {
		"cocaine", "heroin", "overdose", "/inject(s|ing)?/", "drunk",
		"/smok(es|ing) (weed|pot|a joint)/",
	},
	domain.CategoryDisturbingScenes: {
		"terrifying", "nightmare", "mutilated", "screaming in terror",
		"/jump ?scare/",
	},
}

// NewRuleSetStore creates a rule-set store over rulesPath. If rulesPath
// is empty, defaults to ~/.reelrate/rules.toml. A missing file is seeded
// with the embedded defaults. When watch is true, the store reloads the
// rule set automatically on file edits.
func NewRuleSetStore(rulesPath string, watch bool) (*RuleSetStore, error) {
	if rulesPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		rulesPath = filepath.Join(home, ".reelrate", "rules.toml")
	}

	s := &RuleSetStore{filePath: rulesPath}

	if _, err := os.Stat(rulesPath); os.IsNotExist(err) {
		if err := s.seed(); err != nil {
			return nil, err
		}
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}

	if watch {
		if err := s.startWatcher(); err != nil {
			// Watching is best-effort; manual Reload still works.
			logger.Warn("Rules: file watching disabled: %v", err)
		}
	}

	return s, nil
}

// Current returns the active rule set.
func (s *RuleSetStore) Current() domain.RuleSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Reload re-reads the rules file. A broken file keeps the previous rule
// set active rather than clearing the prescreen.
func (s *RuleSetStore) Reload() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return fmt.Errorf("read rules file: %w", err)
	}

	var parsed ruleFile
	if err := toml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse rules file: %w", err)
	}

	terms := make(map[domain.Category][]string, len(parsed.Terms))
	for name, list := range parsed.Terms {
		cat := domain.Category(name)
		if !cat.IsValid() {
			return fmt.Errorf("rules file: unknown category %q: %w", name, domain.ErrInvalidInput)
		}
		terms[cat] = list
	}

	sum := sha256.Sum256(data)
	s.mu.Lock()
	s.current = domain.RuleSet{
		Version: hex.EncodeToString(sum[:8]),
		Terms:   terms,
	}
	s.mu.Unlock()
	return nil
}

// Path returns the rules file path.
func (s *RuleSetStore) Path() string {
	return s.filePath
}

// Close stops the file watcher.
func (s *RuleSetStore) Close() error {
	if s.watcher == nil {
		return nil
	}
	close(s.done)
	return s.watcher.Close()
}

// seed writes the embedded default rule set to disk.
func (s *RuleSetStore) seed() error {
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0700); err != nil {
		return fmt.Errorf("create rules directory: %w", err)
	}

	terms := make(map[string][]string, len(defaultRuleTerms))
	for cat, list := range defaultRuleTerms {
		terms[string(cat)] = list
	}
	data, err := toml.Marshal(ruleFile{Terms: terms})
	if err != nil {
		return fmt.Errorf("marshal default rules: %w", err)
	}
	return os.WriteFile(s.filePath, data, 0600)
}

// startWatcher begins watching the rules file's directory for edits.
// The directory is watched rather than the file because editors often
// replace the file by rename, which drops a file-level watch.
func (s *RuleSetStore) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(s.filePath)); err != nil {
		watcher.Close()
		return err
	}

	s.watcher = watcher
	s.done = make(chan struct{})
	go s.watchLoop()
	return nil
}

func (s *RuleSetStore) watchLoop() {
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Name != s.filePath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := s.Reload(); err != nil {
				logger.Warn("Rules: reload after edit failed, keeping previous rule set: %v", err)
				continue
			}
			logger.Debug("Rules: reloaded %s (version %s)", s.filePath, s.Current().Version)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Rules: watch error: %v", err)
		}
	}
}
