// Package skillgap compares declared skills with a static per-role requirement table.
package skillgap

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed roles.yaml
var defaultRolesYAML []byte

// RoleRequirement lists the skills a role needs
type RoleRequirement struct {
	Key         string   `yaml:"key" json:"key"`
	Core        []string `yaml:"core" json:"core"`
	Recommended []string `yaml:"recommended" json:"recommended"`
}

// Table is an immutable, ordered set of role requirements
type Table struct {
	roles []RoleRequirement
}

type tableFile struct {
	Roles []RoleRequirement `yaml:"roles"`
}

// NewTable builds a table from role requirements. Declaration order is kept
// and decides which role wins when several keys match.
func NewTable(roles []RoleRequirement) *Table {
	copied := make([]RoleRequirement, len(roles))
	for i, r := range roles {
		copied[i] = RoleRequirement{
			Key:         strings.ToLower(strings.TrimSpace(r.Key)),
			Core:        append([]string(nil), r.Core...),
			Recommended: append([]string(nil), r.Recommended...),
		}
	}
	return &Table{roles: copied}
}

// DefaultTable returns the built-in role table
func DefaultTable() *Table {
	t, err := ParseTable(defaultRolesYAML)
	if err != nil {
		panic(fmt.Sprintf("skillgap: built-in role table is invalid: %v", err))
	}
	return t
}

// ParseTable parses a YAML role table
func ParseTable(data []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if len(f.Roles) == 0 {
		return nil, fmt.Errorf("role table is empty")
	}

	seen := make(map[string]bool, len(f.Roles))
	for i, r := range f.Roles {
		key := strings.ToLower(strings.TrimSpace(r.Key))
		if key == "" {
			return nil, fmt.Errorf("role %d: key is required", i)
		}
		if seen[key] {
			return nil, fmt.Errorf("role %q declared twice", key)
		}
		seen[key] = true
	}

	return NewTable(f.Roles), nil
}

// LoadFromFile loads a role table from a YAML file
func LoadFromFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	t, err := ParseTable(data)
	if err != nil {
		return nil, err
	}

	slog.Info("role table loaded", "file", path, "roles", len(t.roles))
	return t, nil
}

// Roles returns a copy of the role requirements in declaration order
func (t *Table) Roles() []RoleRequirement {
	return NewTable(t.roles).roles
}

// Match returns the first role whose key is contained in targetRole
func (t *Table) Match(targetRole string) (RoleRequirement, bool) {
	role := strings.ToLower(targetRole)
	for _, r := range t.roles {
		if strings.Contains(role, r.Key) {
			return r, true
		}
	}
	return RoleRequirement{}, false
}
