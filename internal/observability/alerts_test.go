package observability

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type alertRule struct {
	Alert       string            `yaml:"alert"`
	Expr        string            `yaml:"expr"`
	For         string            `yaml:"for"`
	Labels      map[string]string `yaml:"labels"`
	Annotations map[string]string `yaml:"annotations"`
}

type alertFile struct {
	Groups []struct {
		Name  string      `yaml:"name"`
		Rules []alertRule `yaml:"rules"`
	} `yaml:"groups"`
}

func loadAlertRules(t *testing.T) map[string]map[string]alertRule {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "deploy", "prometheus", "alerts", "authz.yml"))
	require.NoError(t, err)

	var file alertFile
	require.NoError(t, yaml.Unmarshal(data, &file))
	groups := make(map[string]map[string]alertRule, len(file.Groups))
	for _, g := range file.Groups {
		rules := make(map[string]alertRule, len(g.Rules))
		for _, r := range g.Rules {
			rules[r.Alert] = r
		}
		groups[g.Name] = rules
	}
	return groups
}

func TestAlertRulesReferenceExportedMetrics(t *testing.T) {
	groups := loadAlertRules(t)
	expected := map[string]map[string]string{
		"authz": {
			"AuthzEvaluationErrors": "critical",
			"AuthzDenialSpike":      "warning",
			"HighErrorRate":         "critical",
		},
		"jobs": {
			"DenialAuditJobsFailing": "warning",
			"DenialPurgeStalled":     "warning",
		},
	}
	require.Len(t, groups, len(expected))

	metricNames := []string{"ecoly_authz_decisions_total", "ecoly_http_requests_total", "ecoly_jobs_total"}
	for group, alerts := range expected {
		rules, ok := groups[group]
		require.True(t, ok, "group %s missing", group)
		require.Len(t, rules, len(alerts), group)
		for name, severity := range alerts {
			rule, ok := rules[name]
			require.True(t, ok, "rule %s missing", name)
			assert.Equal(t, severity, rule.Labels["severity"], name)
			assert.NotEmpty(t, rule.For, name)
			assert.NotEmpty(t, rule.Annotations["summary"], name)
			assert.NotEmpty(t, rule.Annotations["description"], name)
			assert.True(t, strings.HasPrefix(rule.Annotations["runbook"], "docs/runbook-authz.md#"), name)

			referenced := false
			for _, metric := range metricNames {
				referenced = referenced || strings.Contains(rule.Expr, metric)
			}
			assert.True(t, referenced, "rule %s must use an exported metric", name)
		}
	}
}

func TestRunbookHasAnchorsForAlerts(t *testing.T) {
	runbook, err := os.ReadFile(filepath.Join("..", "..", "docs", "runbook-authz.md"))
	require.NoError(t, err)
	for _, rules := range loadAlertRules(t) {
		for name, rule := range rules {
			_, anchor, _ := strings.Cut(rule.Annotations["runbook"], "#")
			assert.Contains(t, strings.ToLower(string(runbook)), "## "+strings.ReplaceAll(anchor, "-", " "), name)
		}
	}
}
