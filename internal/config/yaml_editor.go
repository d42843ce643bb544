package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/wcatz/dashboard-grid/internal/grid"
)

// ErrUnknownWidget is returned when editing a widget the file does not define.
var ErrUnknownWidget = errors.New("widget not defined in config")

// YAMLEditor provides structured editing of the YAML config file using
// the yaml.v3 Node API, preserving comments and formatting.
type YAMLEditor struct {
	path string
}

// NewYAMLEditor creates a new editor for the given config file path.
func NewYAMLEditor(path string) *YAMLEditor {
	return &YAMLEditor{path: path}
}

// Init creates the file with an empty widgets section if it does not exist.
func (e *YAMLEditor) Init() error {
	if _, err := os.Stat(e.path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking config: %w", err)
	}
	if err := os.WriteFile(e.path, []byte("widgets: {}\n"), 0644); err != nil {
		return fmt.Errorf("creating config: %w", err)
	}
	return nil
}

// Widgets returns the widgets the file defines, placed the same way Load
// places them. The rest of the file is not validated.
func (e *YAMLEditor) Widgets() ([]grid.Widget, error) {
	data, err := os.ReadFile(e.path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	c, err := loadFromData(data, nil)
	if err != nil {
		return nil, err
	}
	return c.ResolveWidgets("")
}

// UpsertWidget adds a widget entry or rewrites the geometry of an existing
// one. Keys the editor does not manage, such as section, are left alone.
func (e *YAMLEditor) UpsertWidget(w grid.Widget) error {
	doc, root, err := e.load()
	if err != nil {
		return err
	}

	widgetsNode := findMappingKey(root, "widgets")
	if widgetsNode == nil {
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: "widgets"},
			&yaml.Node{Kind: yaml.MappingNode},
		)
		widgetsNode = root.Content[len(root.Content)-1]
	}
	if widgetsNode.Kind != yaml.MappingNode {
		// "widgets:" with no entries decodes as a null scalar
		*widgetsNode = yaml.Node{Kind: yaml.MappingNode}
	}
	// flow style from "widgets: {}" would inline every entry
	widgetsNode.Style = 0

	entry := findMappingKey(widgetsNode, w.ID)
	if entry == nil {
		entry = &yaml.Node{Kind: yaml.MappingNode}
		widgetsNode.Content = append(widgetsNode.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: w.ID},
			entry,
		)
	}

	if w.Kind != "" {
		setMappingKey(entry, "kind", &yaml.Node{Kind: yaml.ScalarNode, Value: w.Kind})
	}
	setRect(entry, w.Rect())
	if w.MinSize != nil {
		setMappingKey(entry, "min_size", sizeNode(*w.MinSize))
	} else {
		deleteMappingKey(entry, "min_size")
	}
	if w.MaxSize != nil {
		setMappingKey(entry, "max_size", sizeNode(*w.MaxSize))
	} else {
		deleteMappingKey(entry, "max_size")
	}

	return e.save(doc)
}

// DeleteWidget removes a widget entry and drops it from every profile.
func (e *YAMLEditor) DeleteWidget(id string) error {
	doc, root, err := e.load()
	if err != nil {
		return err
	}

	widgetsNode := findMappingKey(root, "widgets")
	if widgetsNode == nil {
		return fmt.Errorf("'%s': %w", id, ErrUnknownWidget)
	}
	idx := findMappingKeyIndex(widgetsNode, id)
	if idx < 0 {
		return fmt.Errorf("'%s': %w", id, ErrUnknownWidget)
	}
	widgetsNode.Content = append(widgetsNode.Content[:idx], widgetsNode.Content[idx+2:]...)

	if profiles := findMappingKey(root, "profiles"); profiles != nil && profiles.Kind == yaml.MappingNode {
		for i := 1; i < len(profiles.Content); i += 2 {
			list := findMappingKey(profiles.Content[i], "widgets")
			if list == nil || list.Kind != yaml.SequenceNode {
				continue
			}
			kept := list.Content[:0]
			for _, n := range list.Content {
				if n.Value != id {
					kept = append(kept, n)
				}
			}
			list.Content = kept
		}
	}

	return e.save(doc)
}

// SetGridValue sets one key of the grid section, e.g. "columns" to "16".
func (e *YAMLEditor) SetGridValue(key, value string) error {
	probe := Default()
	setter, ok := probe.overrides()["grid."+key]
	if !ok {
		return fmt.Errorf("unknown grid setting '%s'", key)
	}
	if err := setter(value); err != nil {
		return fmt.Errorf("grid setting '%s': %w", key, err)
	}

	doc, root, err := e.load()
	if err != nil {
		return err
	}

	gridNode := findMappingKey(root, "grid")
	if gridNode == nil {
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: "grid"},
			&yaml.Node{Kind: yaml.MappingNode},
		)
		gridNode = root.Content[len(root.Content)-1]
	}
	setMappingKey(gridNode, key, &yaml.Node{Kind: yaml.ScalarNode, Value: value})

	return e.save(doc)
}

func (e *YAMLEditor) load() (*yaml.Node, *yaml.Node, error) {
	data, err := os.ReadFile(e.path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading config: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("parsing config: %w", err)
	}

	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, nil, fmt.Errorf("invalid YAML document")
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, nil, fmt.Errorf("root is not a mapping")
	}

	return &doc, root, nil
}

func (e *YAMLEditor) save(doc *yaml.Node) error {
	out, err := os.Create(e.path)
	if err != nil {
		return fmt.Errorf("opening config for write: %w", err)
	}
	defer out.Close()

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return enc.Close()
}

func setRect(entry *yaml.Node, r grid.Rect) {
	pos := &yaml.Node{Kind: yaml.MappingNode, Style: yaml.FlowStyle}
	pos.Content = append(pos.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: "column"}, intNode(r.Column),
		&yaml.Node{Kind: yaml.ScalarNode, Value: "row"}, intNode(r.Row),
	)
	setMappingKey(entry, "position", pos)
	setMappingKey(entry, "size", sizeNode(r.Size))
}

func sizeNode(s grid.Size) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode, Style: yaml.FlowStyle}
	n.Content = append(n.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: "width"}, intNode(s.Width),
		&yaml.Node{Kind: yaml.ScalarNode, Value: "height"}, intNode(s.Height),
	)
	return n
}

func intNode(v int) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(v)}
}

// setMappingKey replaces the value for key in a MappingNode, appending the
// pair if the key is absent.
func setMappingKey(mapping *yaml.Node, key string, value *yaml.Node) {
	if idx := findMappingKeyIndex(mapping, key); idx >= 0 {
		mapping.Content[idx+1] = value
		return
	}
	mapping.Content = append(mapping.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: key},
		value,
	)
}

func deleteMappingKey(mapping *yaml.Node, key string) {
	if idx := findMappingKeyIndex(mapping, key); idx >= 0 {
		mapping.Content = append(mapping.Content[:idx], mapping.Content[idx+2:]...)
	}
}

// findMappingKey finds the value node for a key in a MappingNode.
func findMappingKey(mapping *yaml.Node, key string) *yaml.Node {
	if mapping.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i < len(mapping.Content)-1; i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

// findMappingKeyIndex returns the index of a key in a MappingNode's Content, or -1.
func findMappingKeyIndex(mapping *yaml.Node, key string) int {
	if mapping.Kind != yaml.MappingNode {
		return -1
	}
	for i := 0; i < len(mapping.Content)-1; i += 2 {
		if mapping.Content[i].Value == key {
			return i
		}
	}
	return -1
}
