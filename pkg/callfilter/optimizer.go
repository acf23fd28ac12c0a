// Copyright 2026 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package callfilter

// ruleOptimizerFunc is a function type that can optimize a Rule.
// It returns the updated Rule, along with whether any modification was
// made.
type ruleOptimizerFunc func(Rule) (Rule, bool)

// convertSingleOrRuleToThatRule replaces `Or` rules with a single branch
// to just that branch.
func convertSingleOrRuleToThatRule(rule Rule) (Rule, bool) {
	if orRule, isOr := rule.(Or); isOr && len(orRule) == 1 {
		return orRule[0], true
	}
	return rule, false
}

// convertSingleAndRuleToThatRule replaces `And` rules with a single branch
// to just that branch.
func convertSingleAndRuleToThatRule(rule Rule) (Rule, bool) {
	if andRule, isAnd := rule.(And); isAnd && len(andRule) == 1 {
		return andRule[0], true
	}
	return rule, false
}

// flattenOrRules turns Ors embedded inside an Or rule into a flat Or rule.
func flattenOrRules(rule Rule) (Rule, bool) {
	orRule, isOr := rule.(Or)
	if !isOr {
		return rule, false
	}
	flat, changed := flatten(orRule, func(r Rule) ([]Rule, bool) {
		sub, ok := r.(Or)
		return sub, ok
	})
	if !changed {
		return rule, false
	}
	return Or(flat), true
}

// flattenAndRules turns Ands embedded inside an And rule into a flat And
// rule.
func flattenAndRules(rule Rule) (Rule, bool) {
	andRule, isAnd := rule.(And)
	if !isAnd {
		return rule, false
	}
	flat, changed := flatten(andRule, func(r Rule) ([]Rule, bool) {
		sub, ok := r.(And)
		return sub, ok
	})
	if !changed {
		return rule, false
	}
	return And(flat), true
}

func flatten(rules []Rule, split func(Rule) ([]Rule, bool)) ([]Rule, bool) {
	changed := false
	var out []Rule
	for _, r := range rules {
		if sub, ok := split(r); ok {
			out = append(out, sub...)
			changed = true
		} else {
			out = append(out, r)
		}
	}
	return out, changed
}

// convertMatchAllOrXToMatchAll converts an Or rule that contains MatchAll
// to MatchAll.
func convertMatchAllOrXToMatchAll(rule Rule) (Rule, bool) {
	orRule, isOr := rule.(Or)
	if !isOr {
		return rule, false
	}
	for _, subRule := range orRule {
		if _, subIsMatchAll := subRule.(MatchAll); subIsMatchAll {
			return MatchAll{}, true
		}
	}
	return orRule, false
}

// convertMatchAllAndXToX removes MatchAll clauses from And rules.
func convertMatchAllAndXToX(rule Rule) (Rule, bool) {
	andRule, isAnd := rule.(And)
	if !isAnd {
		return rule, false
	}
	var newRules []Rule
	for _, subRule := range andRule {
		if _, subIsMatchAll := subRule.(MatchAll); !subIsMatchAll {
			newRules = append(newRules, subRule)
		}
	}
	if len(newRules) == len(andRule) {
		return rule, false
	}
	if len(newRules) == 0 {
		// Every clause was MatchAll.
		return MatchAll{}, true
	}
	return And(newRules), true
}

// dedupeOrSelectors removes repeated MatchSelector branches from Or rules,
// keeping the first occurrence.
func dedupeOrSelectors(rule Rule) (Rule, bool) {
	orRule, isOr := rule.(Or)
	if !isOr {
		return rule, false
	}
	seen := make(map[MatchSelector]struct{}, len(orRule))
	newRules := make(Or, 0, len(orRule))
	for _, subRule := range orRule {
		if m, ok := subRule.(MatchSelector); ok {
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
		}
		newRules = append(newRules, subRule)
	}
	if len(newRules) == len(orRule) {
		return rule, false
	}
	return newRules, true
}

// optimizeRuleFuncs losslessly optimizes a Rule using the given
// optimization functions.
// Optimizers should be ranked in order of importance, with the most
// important first.
// An optimizer will be exhausted before the next one is ever run.
// Earlier optimizers are re-exhausted if later optimizers cause change.
func optimizeRuleFuncs(rule Rule, funcs []ruleOptimizerFunc) Rule {
	for changed := true; changed; {
		for _, fn := range funcs {
			rule.Recurse(func(subRule Rule) Rule {
				return optimizeRuleFuncs(subRule, funcs)
			})
			if rule, changed = fn(rule); changed {
				break
			}
		}
	}
	return rule
}

// Optimize losslessly optimizes a Rule.
func Optimize(rule Rule) Rule {
	return optimizeRuleFuncs(rule, []ruleOptimizerFunc{
		convertSingleOrRuleToThatRule,
		convertSingleAndRuleToThatRule,
		flattenOrRules,
		flattenAndRules,
		convertMatchAllOrXToMatchAll,
		convertMatchAllAndXToX,
		dedupeOrSelectors,
	})
}
