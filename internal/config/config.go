package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/wcatz/dashboard-grid/internal/grid"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DASHBOARD_GRID_"

// StoreSettings selects where committed widget rectangles are kept.
type StoreSettings struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// ServerSettings holds HTTP server options.
type ServerSettings struct {
	Addr  string `yaml:"addr"`
	Watch bool   `yaml:"watch"`
}

// LogSettings holds logging options.
type LogSettings struct {
	Level string `yaml:"level"`
}

// ProfileDef is a named widget subset. Entries may be glob patterns such as
// "chart-*", which expand to matching widgets in config order.
type ProfileDef struct {
	Widgets []string `yaml:"widgets"`
}

// WidgetDef is a widget definition from config YAML. Widgets without a
// position are flowed into free space in config order.
type WidgetDef struct {
	Kind     string         `yaml:"kind"`
	Section  string         `yaml:"section"`
	Position *grid.Position `yaml:"position"`
	Size     grid.Size      `yaml:"size"`
	MinSize  *grid.Size     `yaml:"min_size"`
	MaxSize  *grid.Size     `yaml:"max_size"`
}

// Config holds the entire YAML configuration.
type Config struct {
	Grid     grid.Config           `yaml:"grid"`
	Store    StoreSettings         `yaml:"store"`
	Server   ServerSettings        `yaml:"server"`
	Log      LogSettings           `yaml:"log"`
	Profiles map[string]ProfileDef `yaml:"profiles"`
	Widgets  map[string]WidgetDef  `yaml:"widgets"`

	cliArgs     map[string]string
	widgetOrder []string
}

// Default returns the configuration used for keys a file leaves out.
func Default() *Config {
	return &Config{
		Grid:   grid.DefaultConfig(),
		Store:  StoreSettings{Driver: "memory"},
		Server: ServerSettings{Addr: ":8080"},
		Log:    LogSettings{Level: "info"},
	}
}

// Load reads a YAML config file, applies .env and environment overrides
// followed by CLI overrides, and validates the result.
func Load(path string, cliArgs map[string]string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	c, err := loadFromData(data, cliArgs)
	if err != nil {
		return nil, err
	}

	envFile := filepath.Join(filepath.Dir(path), ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading '%s': %w", envFile, err)
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.applyCLI(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadFromBytes parses and validates a YAML config from raw bytes.
func LoadFromBytes(data []byte) (*Config, error) {
	c, err := loadFromData(data, nil)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func loadFromData(data []byte, cliArgs map[string]string) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	c.widgetOrder = parseWidgetKeyOrder(data)

	c.cliArgs = cliArgs
	if c.cliArgs == nil {
		c.cliArgs = make(map[string]string)
	}
	return c, nil
}

// Validate fails fast on settings the grid engine cannot run with.
func (c *Config) Validate() error {
	if err := c.Grid.Validate(); err != nil {
		return fmt.Errorf("grid: %w", err)
	}
	switch c.Store.Driver {
	case "memory":
	case "sqlite", "yaml":
		if c.Store.Path == "" {
			return fmt.Errorf("store: driver '%s' needs a path", c.Store.Driver)
		}
	default:
		return fmt.Errorf("store: unknown driver '%s'", c.Store.Driver)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	for name, p := range c.Profiles {
		for _, w := range p.Widgets {
			if isPattern(w) {
				if !doublestar.ValidatePattern(w) {
					return fmt.Errorf("profile '%s' has invalid pattern '%s'", name, w)
				}
				continue
			}
			if _, ok := c.Widgets[w]; !ok {
				return fmt.Errorf("profile '%s' references unknown widget '%s'", name, w)
			}
		}
	}
	for name, w := range c.Widgets {
		if w.Size.Width < 0 || w.Size.Height < 0 {
			return fmt.Errorf("widget '%s' has negative size", name)
		}
		if w.MinSize != nil && w.MaxSize != nil &&
			(w.MinSize.Width > w.MaxSize.Width || w.MinSize.Height > w.MaxSize.Height) {
			return fmt.Errorf("widget '%s' min_size exceeds max_size", name)
		}
	}

	widgets, err := c.ResolveWidgets("")
	if err != nil {
		return err
	}
	for _, w := range widgets {
		if err := w.CheckBounds(c.Grid); err != nil {
			return err
		}
	}
	if o := grid.Overlaps(widgets); len(o) > 0 {
		return fmt.Errorf("widgets '%s' and '%s' overlap", o[0].A, o[0].B)
	}
	return nil
}

// GetGrid returns the grid settings.
func (c *Config) GetGrid() grid.Config {
	return c.Grid
}

// GetStore returns the store settings.
func (c *Config) GetStore() StoreSettings {
	return c.Store
}

// GetServer returns the server settings.
func (c *Config) GetServer() ServerSettings {
	return c.Server
}

// GetWidgetDef returns a widget definition by id.
func (c *Config) GetWidgetDef(id string) (WidgetDef, bool) {
	w, ok := c.Widgets[id]
	return w, ok
}

// GetWidgetOrder returns widget ids in the order they appear in a profile,
// or in the config file if no profile is specified.
func (c *Config) GetWidgetOrder(profile string) ([]string, error) {
	if profile != "" {
		p, ok := c.Profiles[profile]
		if !ok {
			return nil, fmt.Errorf("profile '%s' not defined in config", profile)
		}
		return c.expandProfile(p.Widgets), nil
	}
	return c.allWidgets(), nil
}

func (c *Config) allWidgets() []string {
	if len(c.widgetOrder) > 0 {
		return c.widgetOrder
	}
	keys := make([]string, 0, len(c.Widgets))
	for k := range c.Widgets {
		keys = append(keys, k)
	}
	return keys
}

// expandProfile resolves glob entries, dropping repeats.
func (c *Config) expandProfile(entries []string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, e := range entries {
		if !isPattern(e) {
			add(e)
			continue
		}
		for _, id := range c.allWidgets() {
			if ok, _ := doublestar.Match(e, id); ok {
				add(id)
			}
		}
	}
	return out
}

func isPattern(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}

// ResolveWidgets turns widget definitions into placed widgets. Widgets with a
// position are reserved first; the rest flow around them in order, starting a
// new line whenever the section changes.
func (c *Config) ResolveWidgets(profile string) ([]grid.Widget, error) {
	order, err := c.GetWidgetOrder(profile)
	if err != nil {
		return nil, err
	}

	le := grid.NewLayoutEngine(c.Grid.Columns)
	for _, id := range order {
		if def, ok := c.Widgets[id]; ok && def.Position != nil {
			le.Reserve(grid.Rect{Position: *def.Position, Size: defaultSize(def.Size)})
		}
	}

	widgets := make([]grid.Widget, 0, len(order))
	section := ""
	for _, id := range order {
		def, ok := c.Widgets[id]
		if !ok {
			continue
		}
		w := grid.Widget{
			ID:      id,
			Kind:    def.Kind,
			Size:    defaultSize(def.Size),
			MinSize: def.MinSize,
			MaxSize: def.MaxSize,
		}
		if def.Position != nil {
			w.Position = *def.Position
		} else {
			if def.Section != section && section != "" {
				le.FinishSection()
			}
			section = def.Section
			w.Size.Width = min(w.Size.Width, c.Grid.Columns)
			w.Position = le.Place(w.Size.Width, w.Size.Height)
		}
		widgets = append(widgets, w)
	}
	return widgets, nil
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	l, _ := ParseLevel(c.Log.Level)
	return l
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level '%s'", s)
}

func defaultSize(s grid.Size) grid.Size {
	if s.Width == 0 {
		s.Width = 2
	}
	if s.Height == 0 {
		s.Height = 2
	}
	return s
}

// applyEnv overrides settings from DASHBOARD_GRID_* variables.
func (c *Config) applyEnv() error {
	for key, set := range c.overrides() {
		name := EnvName(key)
		if v, ok := os.LookupEnv(name); ok {
			if err := set(v); err != nil {
				return fmt.Errorf("env %s: %w", name, err)
			}
		}
	}
	return nil
}

// EnvName returns the environment variable that overrides a dotted key,
// e.g. grid.min_rows becomes DASHBOARD_GRID_GRID_MIN_ROWS.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// applyCLI overrides settings from command-line flags.
func (c *Config) applyCLI() error {
	overrides := c.overrides()
	for key, v := range c.cliArgs {
		set, ok := overrides[key]
		if !ok {
			return fmt.Errorf("unknown override '%s'", key)
		}
		if err := set(v); err != nil {
			return fmt.Errorf("flag %s: %w", key, err)
		}
	}
	return nil
}

func (c *Config) overrides() map[string]func(string) error {
	return map[string]func(string) error{
		"grid.columns":        intSetter(&c.Grid.Columns),
		"grid.gap":            floatSetter(&c.Grid.Gap),
		"grid.min_row_height": floatSetter(&c.Grid.MinRowHeight),
		"grid.min_rows":       intSetter(&c.Grid.MinRows),
		"grid.chrome_height":  floatSetter(&c.Grid.ChromeHeight),
		"store.driver":        stringSetter(&c.Store.Driver),
		"store.path":          stringSetter(&c.Store.Path),
		"server.addr":         stringSetter(&c.Server.Addr),
		"log.level":           stringSetter(&c.Log.Level),
	}
}

func intSetter(dst *int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst = n
		return nil
	}
}

func floatSetter(dst *float64) func(string) error {
	return func(v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*dst = f
		return nil
	}
}

func stringSetter(dst *string) func(string) error {
	return func(v string) error {
		*dst = v
		return nil
	}
}

// parseWidgetKeyOrder extracts widget key ordering from raw YAML.
func parseWidgetKeyOrder(data []byte) []string {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil
	}
	if node.Kind != yaml.DocumentNode || len(node.Content) == 0 {
		return nil
	}
	root := node.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i < len(root.Content)-1; i += 2 {
		if root.Content[i].Value == "widgets" {
			wNode := root.Content[i+1]
			if wNode.Kind != yaml.MappingNode {
				return nil
			}
			var order []string
			for j := 0; j < len(wNode.Content)-1; j += 2 {
				order = append(order, wNode.Content[j].Value)
			}
			return order
		}
	}
	return nil
}
