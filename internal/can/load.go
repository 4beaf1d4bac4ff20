package can

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type YAMLFile struct {
	Messages []YAMLMessage `yaml:"messages"`
}

type YAMLMessage struct {
	ID      string       `yaml:"id"`
	Name    string       `yaml:"name,omitempty"`
	Signals []YAMLSignal `yaml:"signals"`
}

type YAMLSignal struct {
	Name     string   `yaml:"name"`
	Offset   int      `yaml:"offset"`
	Scale    float64  `yaml:"scale"`
	Format   string   `yaml:"format"`
	Count    int      `yaml:"count,omitempty"`
	Elements []string `yaml:"elements,omitempty"`
}

// ParseID reads a message id. Ids are always hexadecimal, with or without
// a 0x prefix, matching how traces print them.
func ParseID(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	trimmed := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if trimmed == "" {
		return 0, errors.New("empty id")
	}
	v, err := strconv.ParseUint(trimmed, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return uint32(v), nil
}

func FromYAML(file YAMLFile) (*DecodeTable, error) {
	entries := make(map[uint32][]SignalSpec, len(file.Messages))
	for i, msg := range file.Messages {
		id, err := ParseID(msg.ID)
		if err != nil {
			return nil, fmt.Errorf("messages[%d]: %w", i, err)
		}
		if _, exists := entries[id]; exists {
			return nil, fmt.Errorf("messages[%d]: duplicate id 0x%X", i, id)
		}
		specs := make([]SignalSpec, 0, len(msg.Signals))
		for j, sig := range msg.Signals {
			format, err := ParseElementFormat(sig.Format)
			if err != nil {
				return nil, fmt.Errorf("messages[%d].signals[%d]: %w", i, j, err)
			}
			specs = append(specs, SignalSpec{
				Name:     sig.Name,
				Offset:   sig.Offset,
				Scale:    sig.Scale,
				Format:   format,
				Count:    sig.Count,
				Elements: sig.Elements,
			})
		}
		entries[id] = specs
	}
	return NewDecodeTable(entries)
}

func Load(path string) (*DecodeTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file YAMLFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode table %s: %w", path, err)
	}
	return FromYAML(file)
}

// LoadOrDefault loads path, or returns the built-in table when path is empty.
func LoadOrDefault(path string) (*DecodeTable, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultTable(), nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("decode table path %s is a directory", path)
	}
	return Load(path)
}

// ToYAML converts t back into its file form.
func (t *DecodeTable) ToYAML() YAMLFile {
	var file YAMLFile
	for _, id := range t.IDs() {
		msg := YAMLMessage{ID: fmt.Sprintf("0x%X", id)}
		for _, s := range t.specs[id] {
			sig := YAMLSignal{
				Name:   s.Name,
				Offset: s.Offset,
				Scale:  s.Scale,
				Format: s.Format.String(),
			}
			if s.count() > 1 {
				sig.Count = s.count()
				sig.Elements = append([]string(nil), s.Elements...)
			}
			msg.Signals = append(msg.Signals, sig)
		}
		file.Messages = append(file.Messages, msg)
	}
	return file
}
