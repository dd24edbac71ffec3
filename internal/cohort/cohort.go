// Package cohort loads the set of patients eligible for preprocessing.
//
// A cohort file is either YAML (a list of IDs, or a mapping with a "patients"
// list) or plain text with one ID per line and "#" comments. Without a file
// the cohort is every patient directory under the DICOM root.
package cohort

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Cohort is an ordered set of patient identifiers.
type Cohort struct {
	ids   []string
	index map[string]struct{}
}

// New builds a cohort from ids, dropping blanks and duplicates while keeping
// first-seen order.
func New(ids []string) *Cohort {
	c := &Cohort{index: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := c.index[id]; ok {
			continue
		}
		c.index[id] = struct{}{}
		c.ids = append(c.ids, id)
	}
	return c
}

// Contains reports whether patient is eligible.
func (c *Cohort) Contains(patient string) bool {
	if c == nil {
		return false
	}
	_, ok := c.index[patient]
	return ok
}

// IDs returns the patients in cohort order.
func (c *Cohort) IDs() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.ids...)
}

// Len returns the number of eligible patients.
func (c *Cohort) Len() int {
	if c == nil {
		return 0
	}
	return len(c.ids)
}

type yamlCohort struct {
	Patients []string `yaml:"patients"`
}

// Load reads a cohort file.
func Load(path string) (*Cohort, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cohort file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		ids, err := parseYAML(data)
		if err != nil {
			return nil, fmt.Errorf("parse cohort file %s: %w", path, err)
		}
		return New(ids), nil
	default:
		return New(parseLines(data)), nil
	}
}

func parseYAML(data []byte) ([]string, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if len(node.Content) == 0 {
		return nil, nil
	}
	root := node.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		var ids []string
		if err := root.Decode(&ids); err != nil {
			return nil, err
		}
		return ids, nil
	case yaml.MappingNode:
		var doc yamlCohort
		if err := root.Decode(&doc); err != nil {
			return nil, err
		}
		return doc.Patients, nil
	default:
		return nil, errors.New("expected a list of patient IDs or a patients mapping")
	}
}

func parseLines(data []byte) []string {
	var ids []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = line[:idx]
		}
		if line = strings.TrimSpace(line); line != "" {
			ids = append(ids, line)
		}
	}
	return ids
}

// Discover lists the patient directories directly under root, sorted.
func Discover(root string) (*Cohort, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			ids = append(ids, entry.Name())
		}
	}
	sort.Strings(ids)
	return New(ids), nil
}

// Resolve returns the cohort from file when set, otherwise by discovery
// under root.
func Resolve(file, root string) (*Cohort, error) {
	if strings.TrimSpace(file) != "" {
		return Load(file)
	}
	return Discover(root)
}
