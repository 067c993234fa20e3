package entitlement

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/taskhive/taskhive/internal/task"
	"github.com/taskhive/taskhive/pkg/cerr"
)

// Plan is one subscription plan from the catalog file. Plans the catalog
// does not list still resolve through the name-prefix rules, so the file
// only needs entries for plans that override defaults.
type Plan struct {
	Name         string   `yaml:"name"`
	DisplayName  string   `yaml:"display_name"`
	DailyHours   int      `yaml:"daily_hours"`
	AllowedTypes []string `yaml:"allowed_types"`
}

type catalogFile struct {
	Plans []Plan `yaml:"plans"`
}

// Catalog resolves plan names to entitlements. When constructed with a
// file path it reloads on changes to the file.
type Catalog struct {
	mu    sync.RWMutex
	plans map[string]Plan
	path  string
}

func NewCatalog() *Catalog {
	return &Catalog{plans: map[string]Plan{}}
}

// LoadCatalog reads the plan catalog at path. A missing file is not an
// error: the prefix rules alone cover every plan name.
func LoadCatalog(path string) (*Catalog, error) {
	c := &Catalog{plans: map[string]Plan{}, path: path}
	if err := c.reload(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) reload() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to read plan catalog: %w", err))
	}
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to parse plan catalog: %w", err))
	}
	plans := make(map[string]Plan, len(f.Plans))
	for _, p := range f.Plans {
		plans[p.Name] = p
	}
	c.mu.Lock()
	c.plans = plans
	c.mu.Unlock()
	return nil
}

// Watch reloads the catalog whenever the file changes, until ctx is done.
// Editors replace files rather than writing in place, so the watch is on
// the directory and events are debounced.
func (c *Catalog) Watch(ctx context.Context) error {
	if c.path == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create catalog watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(c.path)); err != nil {
		return fmt.Errorf("failed to watch catalog dir: %w", err)
	}

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	var reloadC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(c.path) {
				continue
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(100 * time.Millisecond)
				reloadC = timer.C
			} else {
				timer.Reset(100 * time.Millisecond)
			}
		case <-reloadC:
			if err := c.reload(); err != nil {
				slog.WarnContext(ctx, "failed to reload plan catalog", "path", c.path, "error", err)
				continue
			}
			slog.InfoContext(ctx, "plan catalog reloaded", "path", c.path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.WarnContext(ctx, "catalog watcher error", "error", err)
		}
	}
}

// Resolve returns the plan entry for name. Unlisted plans fall back to
// the naming convention: the prefix selects the task types and a trailing
// _<n>h suffix carries the daily hour budget.
func (c *Catalog) Resolve(name string) Plan {
	c.mu.RLock()
	p, ok := c.plans[name]
	c.mu.RUnlock()
	if ok {
		return p
	}
	return Plan{
		Name:         name,
		DailyHours:   parseDailyHours(name),
		AllowedTypes: typesForPlan(name),
	}
}

// typesForPlan maps a plan name prefix to the task types it unlocks.
func typesForPlan(name string) []string {
	switch {
	case strings.HasPrefix(name, "personal_"):
		return []string{string(task.TypePersonal)}
	case strings.HasPrefix(name, "business_"):
		return []string{string(task.TypeBusiness)}
	case strings.HasPrefix(name, "full_"), strings.HasPrefix(name, "combo_"):
		return []string{string(task.TypePersonal), string(task.TypeBusiness)}
	default:
		return nil
	}
}

// parseDailyHours extracts the hour budget from a trailing _<n>h segment,
// e.g. personal_5h. Zero means the plan carries no hour budget.
func parseDailyHours(name string) int {
	i := strings.LastIndex(name, "_")
	if i < 0 {
		return 0
	}
	seg := name[i+1:]
	if !strings.HasSuffix(seg, "h") {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSuffix(seg, "h"))
	if err != nil {
		return 0
	}
	return n
}
