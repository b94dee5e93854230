package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/ecoly/ecoly/internal/rbac"
	rbachttp "github.com/ecoly/ecoly/internal/rbac/http"
)

// Exit codes shared by the policy commands.
const (
	ExitOK            = 0
	ExitUsage         = 1
	ExitInvalidPolicy = 2
)

// PolicyCLI prints and checks the role permission tables.
type PolicyCLI struct {
	build    func() (*rbac.Evaluator, error)
	declared func(*rbac.Catalog) error
}

// NewPolicyCLI uses the built-in catalog and grants.
func NewPolicyCLI() *PolicyCLI {
	return &PolicyCLI{build: rbac.NewDefaultEvaluator, declared: rbac.CheckDeclaredScopes}
}

// PolicyOptions defines flags for the policy commands.
type PolicyOptions struct {
	Format string
	Stdout io.Writer
	Stderr io.Writer
}

func (o *PolicyOptions) defaults() {
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	if o.Format == "" {
		o.Format = "text"
	}
}

func (c *PolicyCLI) checkDeclared(catalog *rbac.Catalog) error {
	if c.declared == nil {
		return nil
	}
	return c.declared(catalog)
}

// MatrixRow is the JSON shape of one catalog permission.
type MatrixRow struct {
	Permission string          `json:"permission"`
	Module     string          `json:"module"`
	Name       string          `json:"name"`
	Roles      map[string]bool `json:"roles"`
}

// MatrixCommand prints which role holds which permission.
func (c *PolicyCLI) MatrixCommand(opts PolicyOptions) int {
	opts.defaults()
	ev, err := c.build()
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "policy matrix: %v\n", err)
		return ExitInvalidPolicy
	}
	matrix, err := rbachttp.BuildMatrix(ev)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "policy matrix: %v\n", err)
		return ExitInvalidPolicy
	}
	switch opts.Format {
	case "json":
		rows := make([]MatrixRow, 0, ev.Catalog().Len())
		for _, module := range matrix.Modules {
			for _, row := range module.Rows {
				roles := make(map[string]bool, len(matrix.Roles))
				for i, role := range matrix.Roles {
					roles[string(role)] = row.Granted[i]
				}
				rows = append(rows, MatrixRow{Permission: row.Permission.ID, Module: module.Name, Name: row.Permission.Name, Roles: roles})
			}
		}
		enc := json.NewEncoder(opts.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rows); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "policy matrix: encode json: %v\n", err)
			return ExitUsage
		}
	case "text":
		renderMatrix(opts.Stdout, matrix)
	default:
		_, _ = fmt.Fprintf(opts.Stderr, "policy matrix: unknown format %q (expected text or json)\n", opts.Format)
		return ExitUsage
	}
	return ExitOK
}

func renderMatrix(w io.Writer, m rbachttp.Matrix) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header := []string{"PERMISSION"}
	for _, role := range m.Roles {
		header = append(header, string(role))
	}
	_, _ = fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, module := range m.Modules {
		for _, row := range module.Rows {
			cells := []string{row.Permission.ID}
			for _, granted := range row.Granted {
				if granted {
					cells = append(cells, "x")
				} else {
					cells = append(cells, "-")
				}
			}
			_, _ = fmt.Fprintln(tw, strings.Join(cells, "\t"))
		}
	}
	_ = tw.Flush()
}

// CheckCommand validates the tables and prints a per-role summary.
func (c *PolicyCLI) CheckCommand(opts PolicyOptions) int {
	opts.defaults()
	ev, err := c.build()
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "policy check: %v\n", err)
		return ExitInvalidPolicy
	}
	catalog := ev.Catalog()
	if err := c.checkDeclared(catalog); err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "policy check: %v\n", err)
		return ExitInvalidPolicy
	}
	_, _ = fmt.Fprintf(opts.Stdout, "catalog: %d permissions in %d modules\n", catalog.Len(), len(catalog.Modules()))
	for _, role := range rbac.Roles() {
		perms, err := ev.RolePermissions(role)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "policy check: %v\n", err)
			return ExitInvalidPolicy
		}
		modules, err := ev.RoleModules(role)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "policy check: %v\n", err)
			return ExitInvalidPolicy
		}
		_, _ = fmt.Fprintf(opts.Stdout, "%-10s %2d permissions, modules: %s\n", role, len(perms), strings.Join(modules, ", "))
	}
	_, _ = fmt.Fprintln(opts.Stdout, "ok")
	return ExitOK
}
