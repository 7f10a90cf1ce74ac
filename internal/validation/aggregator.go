package validation

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/payables-ai/invoice-triage/internal/domain/document"
	domainval "github.com/payables-ai/invoice-triage/internal/domain/validation"
)

// subGroup names the fine-grained result groups reported on the
// aggregate. Structural rules have no sub-result; their findings only
// appear in the issue list.
type subGroup int

const (
	groupNone subGroup = iota
	groupMath
	groupMatching
	groupVendorPolicy
	groupDuplicate
)

func ruleGroup(id domainval.RuleID) subGroup {
	switch id {
	case domainval.RuleLineMath, domainval.RuleSubtotalMatch, domainval.RuleTotalMatch, domainval.RuleTaxRate:
		return groupMath
	case domainval.RulePOMatch, domainval.RuleGRNMatch:
		return groupMatching
	case domainval.RuleVendorActive, domainval.RuleCurrencyMatch, domainval.RuleInvoiceAge,
		domainval.RuleAmountLimit, domainval.RulePaymentTerms:
		return groupVendorPolicy
	case domainval.RuleDuplicate:
		return groupDuplicate
	}
	return groupNone
}

// Aggregator runs every enabled rule over a document and assembles one
// immutable Result per attempt.
type Aggregator struct {
	catalog    *Catalog
	executor   *Executor
	mapper     *Mapper
	strictMode bool
	maxWorkers int
	logger     *zap.Logger
}

// NewAggregator wires the validation pipeline. In strict mode warnings
// block the passed flag like errors. maxWorkers bounds concurrent rule
// execution; values below 1 default to 4.
func NewAggregator(catalog *Catalog, executor *Executor, mapper *Mapper, strictMode bool, maxWorkers int, logger *zap.Logger) *Aggregator {
	if maxWorkers < 1 {
		maxWorkers = 4
	}
	return &Aggregator{
		catalog:    catalog,
		executor:   executor,
		mapper:     mapper,
		strictMode: strictMode,
		maxWorkers: maxWorkers,
		logger:     logger,
	}
}

// Validate runs all enabled, runnable rules and builds the result. Rules
// execute with bounded parallelism but results are assembled strictly in
// catalog order, so identical input and catalog always produce identical
// issue ordering.
func (a *Aggregator) Validate(ctx context.Context, doc *document.DocumentData) *domainval.Result {
	runnable := make([]domainval.Rule, 0, len(a.catalog.Rules()))
	for _, rule := range a.catalog.Enabled() {
		if a.executor.CanRun(rule.ID) {
			runnable = append(runnable, rule)
		} else {
			a.logger.Debug("rule skipped, collaborator not configured",
				zap.String("rule", rule.ID.String()))
		}
	}

	// Semaphore-bounded fan-out; each rule writes its own index slot so
	// catalog ordering survives concurrent execution.
	results := make([]domainval.RuleExecutionResult, len(runnable))
	var wg sync.WaitGroup
	sem := make(chan struct{}, a.maxWorkers)
	for i, rule := range runnable {
		wg.Add(1)
		go func(idx int, r domainval.Rule) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[idx] = a.executor.Execute(ctx, r, doc)
		}(i, rule)
	}
	wg.Wait()

	return a.build(doc, runnable, results)
}

func (a *Aggregator) build(doc *document.DocumentData, rules []domainval.Rule, results []domainval.RuleExecutionResult) *domainval.Result {
	res := &domainval.Result{
		Issues:       make([]domainval.Issue, 0),
		RulesVersion: a.catalog.Version(),
		ValidatedAt:  time.Now().UTC(),
	}

	groups := map[subGroup]*domainval.CategoryResult{}

	for i, rule := range rules {
		exec := results[i]
		issues := a.mapper.Map(exec)
		res.Issues = append(res.Issues, issues...)

		if g := ruleGroup(rule.ID); g != groupNone {
			cr, ok := groups[g]
			if !ok {
				cr = &domainval.CategoryResult{Passed: true}
				groups[g] = cr
			}
			cr.RulesRun++
			cr.IssueCount += len(issues)
			if !exec.Passed {
				cr.Passed = false
			}
		}
	}

	for _, issue := range res.Issues {
		switch issue.Severity {
		case domainval.SeverityError:
			res.ErrorCount++
		case domainval.SeverityWarning:
			res.WarningCount++
		case domainval.SeverityInfo:
			res.InfoCount++
		}
	}
	res.TotalIssues = len(res.Issues)

	res.Passed = res.ErrorCount == 0
	if a.strictMode && res.WarningCount > 0 {
		res.Passed = false
	}

	res.MathResult = groups[groupMath]
	res.MatchingResult = groups[groupMatching]
	res.VendorPolicyResult = groups[groupVendorPolicy]
	res.DuplicateResult = groups[groupDuplicate]

	res.ConfidenceScore = Score(results, doc.Confidence.Overall)

	a.logger.Info("validation attempt complete",
		zap.Bool("passed", res.Passed),
		zap.Float64("confidence", res.ConfidenceScore),
		zap.Int("errors", res.ErrorCount),
		zap.Int("warnings", res.WarningCount),
		zap.Int("rules_run", len(rules)))

	return res
}
