// Package templates loads the recurring task titles configured per assignee.
//
// The file is read once at start-up and the resulting Config is never mutated:
//
//	merge: union
//	assignees:
//	  - id: "6106779069"
//	    name: Mubashshira
//	    templates:
//	      "*": ["Morning round", "Discharge report"]
//	      "1": ["Weekly plan"]
//
// "*" applies every day; "1".."7" apply on ISO weekdays (1=Monday).
package templates

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fastygo/taskledger/domain"
)

// Wildcard selects titles that apply on every weekday.
const Wildcard = "*"

// MergePolicy decides how wildcard and weekday titles combine.
type MergePolicy string

const (
	// MergeUnion concatenates wildcard titles with the weekday's titles.
	MergeUnion MergePolicy = "union"
	// MergeOverride uses the weekday's titles when the assignee has any, else the wildcard ones.
	MergeOverride MergePolicy = "override"
)

// ParseMergePolicy validates a merge policy name. Empty means union.
func ParseMergePolicy(value string) (MergePolicy, error) {
	switch MergePolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", MergeUnion:
		return MergeUnion, nil
	case MergeOverride:
		return MergeOverride, nil
	default:
		return "", fmt.Errorf("templates: unknown merge policy %q", value)
	}
}

// Assignee is one configured executor and their recurring titles.
type Assignee struct {
	ID        string              `yaml:"id"`
	Name      string              `yaml:"name"`
	Templates map[string][]string `yaml:"templates"`
}

type file struct {
	Merge     string     `yaml:"merge"`
	Assignees []Assignee `yaml:"assignees"`
}

// Config is the immutable template table.
type Config struct {
	merge     MergePolicy
	assignees []Assignee
	byID      map[string]map[string][]string
}

// Load reads the YAML file at path. A missing file yields an empty config.
func Load(path string) (*Config, error) {
	if path == "" {
		return New(MergeUnion, nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return New(MergeUnion, nil)
		}
		return nil, fmt.Errorf("templates: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML template table.
func Parse(data []byte) (*Config, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("templates: parse: %w", err)
	}
	merge, err := ParseMergePolicy(f.Merge)
	if err != nil {
		return nil, err
	}
	return New(merge, f.Assignees)
}

// New validates assignees and builds a Config.
func New(merge MergePolicy, assignees []Assignee) (*Config, error) {
	if merge == "" {
		merge = MergeUnion
	}
	c := &Config{
		merge: merge,
		byID:  make(map[string]map[string][]string, len(assignees)),
	}
	for _, a := range assignees {
		id := strings.TrimSpace(a.ID)
		if id == "" {
			return nil, errors.New("templates: assignee without id")
		}
		if _, dup := c.byID[id]; dup {
			return nil, fmt.Errorf("templates: assignee %s listed twice", id)
		}
		buckets := make(map[string][]string, len(a.Templates))
		for selector, titles := range a.Templates {
			key, err := normalizeSelector(selector)
			if err != nil {
				return nil, fmt.Errorf("templates: assignee %s: %w", id, err)
			}
			buckets[key] = append(buckets[key], titles...)
		}
		a.ID = id
		a.Templates = buckets
		c.byID[id] = buckets
		c.assignees = append(c.assignees, a)
	}
	return c, nil
}

func normalizeSelector(selector string) (string, error) {
	selector = strings.TrimSpace(selector)
	if selector == Wildcard {
		return Wildcard, nil
	}
	n, err := strconv.Atoi(selector)
	if err != nil || !domain.Weekday(n).Valid() {
		return "", fmt.Errorf("invalid weekday selector %q", selector)
	}
	return strconv.Itoa(n), nil
}

// WithMerge returns a copy of c using a different merge policy.
func (c *Config) WithMerge(merge MergePolicy) *Config {
	if merge == "" || merge == c.merge {
		return c
	}
	clone := *c
	clone.merge = merge
	return &clone
}

// Merge returns the configured merge policy.
func (c *Config) Merge() MergePolicy {
	return c.merge
}

// TitlesFor returns the configured titles of an assignee on weekday, in
// configuration order. Duplicates are left for the caller to fold.
func (c *Config) TitlesFor(assigneeID string, weekday domain.Weekday) []string {
	buckets := c.byID[assigneeID]
	if len(buckets) == 0 {
		return nil
	}
	star := buckets[Wildcard]
	day := buckets[strconv.Itoa(int(weekday))]

	switch c.merge {
	case MergeOverride:
		if len(day) > 0 {
			return append([]string(nil), day...)
		}
		return append([]string(nil), star...)
	default:
		out := make([]string, 0, len(star)+len(day))
		out = append(out, star...)
		return append(out, day...)
	}
}

// AssigneeIDs lists configured assignees in file order.
func (c *Config) AssigneeIDs() []string {
	ids := make([]string, 0, len(c.assignees))
	for _, a := range c.assignees {
		ids = append(ids, a.ID)
	}
	return ids
}

// Label renders "Name (id)" for configured assignees and the bare id otherwise.
func (c *Config) Label(id string) string {
	for _, a := range c.assignees {
		if a.ID == id && a.Name != "" {
			return fmt.Sprintf("%s (%s)", a.Name, a.ID)
		}
	}
	return id
}
