// Package group holds the static mapping from physical-quantity groups to
// the signal columns written into each group's file.
package group

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Group is a named subset of signal columns.
type Group struct {
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns"`
}

// Set is an ordered list of groups. Position i is written with file index
// i+1.
type Set []Group

type yamlFile struct {
	Groups []Group `yaml:"groups"`
}

var validName = regexp.MustCompile(`^[A-Za-z0-9_\-]+$`)

// Default returns the groups used for the cyclist test rig.
func Default() Set {
	return Set{
		{Name: "Longitude_Latitude", Columns: []string{"PosLon", "PosLat"}},
		{Name: "Altitude", Columns: []string{"Altitude"}},
		{Name: "Speed2D", Columns: []string{"Speed2D"}},
		{Name: "Velocity", Columns: []string{"VelForward", "VelLateral"}},
		{Name: "Acceleration", Columns: []string{"AccelX", "AccelY", "AccelZ"}},
		{Name: "Acceleration_Vehicle", Columns: []string{"AccelForward", "AccelLateral", "AccelSlip"}},
		{Name: "Angle", Columns: []string{"AngleHeading", "AnglePitch", "AngleRoll"}},
		{Name: "AngularRate", Columns: []string{"AngRateX", "AngRateY", "AngRateZ"}},
		{Name: "AngularRate_Vehicle", Columns: []string{"AngRateForward", "AngRateLateral"}},
		{Name: "Distance", Columns: []string{"DistanceWithHold", "Distance"}},
		{Name: "Position_Local", Columns: []string{"PosLocalX", "PosLocalY"}},
		{Name: "Velocity_Local", Columns: []string{"VelLocalX", "VelLocalY", "AngleLocalYaw", "AngleLocalTrack"}},
		{Name: "AngularAcceleration", Columns: []string{"AngAccelX", "AngAccelY", "AngAccelZ"}},
		{Name: "AngularAcceleration_Vehicle", Columns: []string{"AngAccelForward", "AngAccelLateral"}},
	}
}

// Validate checks names and column lists. It does not know which columns a
// table has; that is checked when partitioning.
func (s Set) Validate() error {
	if len(s) == 0 {
		return errors.New("no groups configured")
	}
	if len(s) > 99 {
		return fmt.Errorf("%d groups exceed the two-digit file index", len(s))
	}
	seen := make(map[string]bool, len(s))
	for i, g := range s {
		if !validName.MatchString(g.Name) {
			return fmt.Errorf("groups[%d]: invalid name %q", i, g.Name)
		}
		if seen[g.Name] {
			return fmt.Errorf("groups[%d]: duplicate group %s", i, g.Name)
		}
		seen[g.Name] = true
		if len(g.Columns) == 0 {
			return fmt.Errorf("groups[%d]: %s has no columns", i, g.Name)
		}
		cols := make(map[string]bool, len(g.Columns))
		for _, c := range g.Columns {
			if strings.TrimSpace(c) == "" {
				return fmt.Errorf("groups[%d]: %s has an empty column name", i, g.Name)
			}
			if cols[c] {
				return fmt.Errorf("groups[%d]: %s lists %s twice", i, g.Name, c)
			}
			cols[c] = true
		}
	}
	return nil
}

// Clone returns a deep copy so callers cannot alter a shared Set.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for i, g := range s {
		out[i] = Group{Name: g.Name, Columns: append([]string(nil), g.Columns...)}
	}
	return out
}

func (s Set) Names() []string {
	names := make([]string, len(s))
	for i, g := range s {
		names[i] = g.Name
	}
	return names
}

func Load(path string) (Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file yamlFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode groups %s: %w", path, err)
	}
	set := Set(file.Groups)
	for i := range set {
		set[i].Name = strings.TrimSpace(set[i].Name)
		for j := range set[i].Columns {
			set[i].Columns[j] = strings.TrimSpace(set[i].Columns[j])
		}
	}
	if err := set.Validate(); err != nil {
		return nil, fmt.Errorf("groups %s: %w", path, err)
	}
	return set, nil
}

// LoadOrDefault loads path, or returns Default when path is empty.
func LoadOrDefault(path string) (Set, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	return Load(path)
}

func (s Set) MarshalYAML() (interface{}, error) {
	return yamlFile{Groups: []Group(s)}, nil
}
