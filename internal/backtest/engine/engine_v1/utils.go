package engine

import (
	"fmt"
	"path/filepath"
	"strings"
)

// defaultRuleName names the run of signals that carry no rule.
const defaultRuleName = "default"

// getResultFolder returns <results>/<rule>[/<start>_<end>] for a run.
func getResultFolder(resultsFolder string, rule string, config SimulationEngineV1Config) string {
	ruleFolder := filepath.Join(resultsFolder, sanitizeName(ruleName(rule)))

	if config.StartDate.IsNone() && config.EndDate.IsNone() {
		return ruleFolder
	}

	startStr, endStr := "all", "all"

	if config.StartDate.IsSome() {
		startStr = config.StartDate.Unwrap().Format("20060102")
	}

	if config.EndDate.IsSome() {
		endStr = config.EndDate.Unwrap().Format("20060102")
	}

	return filepath.Join(ruleFolder, fmt.Sprintf("%s_%s", startStr, endStr))
}

func ruleName(rule string) string {
	if rule == "" {
		return defaultRuleName
	}

	return rule
}

// ruleFolderNames maps every rule to a distinct folder name. Rules whose
// sanitized names collide get a numeric suffix in the order given.
func ruleFolderNames(rules []string) map[string]string {
	names := make(map[string]string, len(rules))
	taken := make(map[string]bool, len(rules))

	for _, rule := range rules {
		if _, ok := names[rule]; ok {
			continue
		}

		base := sanitizeName(ruleName(rule))
		name := base

		for n := 2; taken[name]; n++ {
			name = fmt.Sprintf("%s_%d", base, n)
		}

		taken[name] = true
		names[rule] = name
	}

	return names
}

// sanitizeName keeps letters, digits, dash, dot and underscore.
// Names made of dots only are escaped so they never leave the results folder.
func sanitizeName(name string) string {
	if strings.Trim(name, ".") == "" {
		return strings.Repeat("_", max(len(name), 1))
	}

	var b strings.Builder

	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	return b.String()
}
