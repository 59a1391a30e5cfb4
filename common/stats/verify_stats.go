package stats

import (
	"fmt"
	"sort"
	"strings"
	"testing"
)

// RuleChecker compares a rendered stat, got, with an expected value.
// A missing stat is passed as nil.
type RuleChecker struct {
	name    string
	checker func(got, expected interface{}) bool
}

// Rule is the check applied to one rendered stat.
type Rule struct {
	Checker RuleChecker
	Value   interface{}
}

var (
	// Int64EqTest expects a counter or gauge equal to an int Value.
	Int64EqTest = RuleChecker{name: "Int64EqTest", checker: func(got, expected interface{}) bool {
		if got == nil || expected == nil {
			return got == expected
		}
		g, ok := got.(int64)
		return ok && g == int64(expected.(int))
	}}

	// Int64GTTest expects a counter or gauge greater than an int Value.
	Int64GTTest = RuleChecker{name: "Int64GTTest", checker: func(got, expected interface{}) bool {
		g, ok := got.(int64)
		return ok && g > int64(expected.(int))
	}}

	// FloatEqTest expects a rendered float, like a latency percentile, equal
	// to a float64 Value.
	FloatEqTest = RuleChecker{name: "FloatEqTest", checker: func(got, expected interface{}) bool {
		if got == nil || expected == nil {
			return got == expected
		}
		g, ok := got.(float64)
		return ok && g == expected.(float64)
	}}

	DoesNotExistTest = RuleChecker{name: "DoesNotExistTest", checker: func(got, _ interface{}) bool {
		return got == nil
	}}
)

// VerifyStats fails t for every rule in contains that the rendered registry
// doesn't satisfy, then prints the whole registry. Only registries created
// by NewFinagleStatsRegistry can be verified.
func VerifyStats(tag string, statsRegistry StatsRegistry, t *testing.T, contains map[string]Rule) {
	t.Helper()
	reg, ok := statsRegistry.(*finagleStatsRegistry)
	if !ok {
		t.Errorf("%s: can't verify stats in a %T", tag, statsRegistry)
		return
	}
	rendered := reg.MarshalAll()

	keys := make([]string, 0, len(contains))
	for k := range contains {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var failures []string
	for _, key := range keys {
		rule := contains[key]
		got := rendered[key]
		if rule.Checker.checker(got, rule.Value) {
			continue
		}
		if rule.Checker.name == DoesNotExistTest.name {
			failures = append(failures, fmt.Sprintf("%s: found stat entry when there should not be one", key))
		} else {
			failures = append(failures, fmt.Sprintf("%s: got %v, expected to pass %s with %v", key, got, rule.Checker.name, rule.Value))
		}
	}
	if len(failures) > 0 {
		t.Errorf("%s: stats registry error:\n%s", tag, strings.Join(failures, "\n"))
		PPrintStats(tag, reg)
	}
}

func PPrintStats(tag string, statsRegistry StatsRegistry) {
	pretty, _ := statsRegistry.(*finagleStatsRegistry).MarshalJSONPretty()
	fmt.Printf("%s: stats registry:\n%s\n", tag, pretty)
}
