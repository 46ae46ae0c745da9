// Package guard is the query-injection firewall for the two query languages
// the gateway forwards to remote APIs: Jira's JQL filter language and the
// Xray GraphQL request language. It is a whitelist-driven structural and
// lexical validator: a query either comes back trimmed but otherwise
// byte-identical, or it is rejected with a typed ValidationError. The guard
// never rewrites query content.
package guard

import (
	"regexp"
	"sort"
	"strings"
)

// Hard input ceilings. Everything past these is rejected before any
// pattern work, which also bounds worst-case regex cost.
const (
	maxJQLLength      = 1000
	maxGraphQLLength  = 5000
	maxJQLDepth       = 3
	maxGraphQLDepth   = 10
	maxVariables      = 50
	maxVariableString = 1000
	maxVariableList   = 100
	maxVariableMap    = 50
)

// Custom Jira fields are addressed numerically as cf[N]; only the standard
// custom-field ID range is accepted.
const (
	customFieldMin = 10000
	customFieldMax = 99999
)

// jqlDangerousPatterns match SQL-injection and script-injection constructs
// that have no business inside a JQL filter. This is a defense-in-depth
// scan over the raw text; the whitelist stages behind it catch anything
// that slips through in identifier position.
var jqlDangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`;\s*--`),
	regexp.MustCompile(`;\s*/\*`),
	regexp.MustCompile(`(?i)\b(union|select|drop|delete|insert|update|exec)\b`),
	regexp.MustCompile(`(?i)<\s*/?\s*script`),
	regexp.MustCompile(`\$\{`),
	regexp.MustCompile(`\\x[0-9a-fA-F]{2}`),
}

// graphqlDangerousPatterns block schema introspection and script/template
// injection in GraphQL documents. The word boundary after __type keeps
// __typename usable: it is a plain meta field, not introspection.
var graphqlDangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`__schema\b`),
	regexp.MustCompile(`__type\b`),
	regexp.MustCompile(`(?i)<\s*/?\s*script`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)data:`),
	regexp.MustCompile(`(?i)\beval\s*\(`),
	regexp.MustCompile(`(?i)\bfunction\s*\(`),
	regexp.MustCompile(`\$\{`),
	regexp.MustCompile(`<!--`),
	regexp.MustCompile(`-->`),
}

// sqlKeywordGuard catches whitespace-surrounded SQL keywords anywhere in
// the lower-cased JQL text. Independent of jqlDangerousPatterns: the regex
// pass is anchored on word boundaries, this one on literal whitespace, so
// together they cover keyword placements either alone would miss.
var sqlKeywords = []string{
	"select", "from", "where", "join", "union", "insert", "update", "delete",
}

// jqlFields is the whitelist of Jira and Xray issue fields accepted in
// field position. Matching is case-insensitive (Jira treats field names
// that way), so every entry is stored lower-cased.
var jqlFields = newStringSet(true,
	"affectedversion", "assignee", "attachments", "category", "comment",
	"component", "created", "createddate", "creator", "description", "due",
	"duedate", "environment", "epic", "filter", "fixversion", "id",
	"issuekey", "issuetype", "key", "labels", "lastviewed", "parent",
	"priority", "project", "reporter", "requirement", "resolution",
	"resolved", "sprint", "status", "statuscategory", "summary", "text",
	"testexecution", "testplan", "testrepositorypath", "testset", "testtype",
	"type", "updated", "updateddate", "voter", "votes", "watcher",
	"watchers", "worklogdate",
)

// jqlFunctions is the whitelist of JQL function calls (identifier followed
// by an opening parenthesis). Case-insensitive.
var jqlFunctions = newStringSet(true,
	"closedsprints", "currentlogin", "currentuser", "endofday", "endofmonth",
	"endofweek", "endofyear", "futuresprints", "issuehistory", "lastlogin",
	"linkedissues", "membersof", "now", "opensprints", "releasedversions",
	"standardissuetypes", "startofday", "startofmonth", "startofweek",
	"startofyear", "subtaskissuetypes", "unreleasedversions", "updatedby",
	"votedissues", "watchedissues",
)

// jqlKeywords are the words the lexer promotes from identifier to keyword.
// They never face a whitelist check themselves, and an identifier followed
// by one of the operator keywords (in/is/was/changed and their negations)
// is classified as a field.
var jqlKeywords = newStringSet(true,
	"and", "or", "not", "in", "is", "was", "changed", "order", "by", "asc",
	"desc", "empty", "null", "on", "before", "after", "during", "from", "to",
)

// jqlOperatorKeywords are the keyword operators that mark the preceding
// identifier as a field reference.
var jqlOperatorKeywords = newStringSet(true, "in", "is", "was", "changed")

// graphqlFields is the whitelist of selection, argument, and input-object
// key names accepted in a GraphQL document. GraphQL identifiers are
// case-sensitive, so matching here is exact.
var graphqlFields = newStringSet(false,
	// Meta fields. __typename is the one double-underscore name that is
	// not introspection.
	"__typename",
	// Selections and nested result fields.
	"results", "total", "start", "limit", "warnings", "issueId", "projectId",
	"jira", "key", "summary", "assignee", "reporter", "priority", "labels",
	"testType", "name", "kind", "steps", "id", "action", "data", "result",
	"attachments", "filename", "storedInJira", "downloadLink", "gherkin",
	"unstructured", "scenarioType", "folder", "path", "tests", "testSets",
	"testPlans", "testExecutions", "testRuns", "testEnvironments", "status",
	"color", "finalStatusOnTestRun", "description", "comment", "startedOn",
	"finishedOn", "executedById", "assigneeId", "examples", "parameters",
	"preconditions", "preconditionType", "definition", "lastModified",
	"customFields", "values", "value", "evidence", "defects", "addedDefects",
	"removedDefects", "addedTests", "removedTests", "addedEvidence", "test",
	"testRun", "testExecution", "testPlan", "testSet", "issueCount",
	// Argument names.
	"jql", "issueIds", "projectIdOrKey", "fields", "testIssueIds",
	"testExecIssueIds", "testPlanIssueIds", "testSetIssueIds", "folderPath",
	"statusName", "first", "after",
)

// graphqlQueryOperations are the Xray top-level query names callers may
// invoke; graphqlMutationOperations the mutation names. Which set applies
// is selected by the operation type detected in the document header.
var graphqlQueryOperations = newStringSet(false,
	"getTest", "getTests", "getExpandedTest", "getExpandedTests",
	"getTestSet", "getTestSets", "getTestPlan", "getTestPlans",
	"getTestExecution", "getTestExecutions", "getTestRun", "getTestRuns",
	"getTestRunById", "getFolder", "getPrecondition", "getPreconditions",
	"getStatus", "getStatuses", "getStepStatus", "getStepStatuses",
	"getCoverableIssue", "getCoverableIssues", "getDataset", "getDatasets",
	"getIssueLinkTypes",
)

var graphqlMutationOperations = newStringSet(false,
	"createTest", "updateTestType", "deleteTest", "createTestSet",
	"deleteTestSet", "addTestsToTestSet", "removeTestsFromTestSet",
	"createTestPlan", "deleteTestPlan", "addTestsToTestPlan",
	"removeTestsFromTestPlan", "createTestExecution", "deleteTestExecution",
	"addTestsToTestExecution", "removeTestsFromTestExecution",
	"addTestExecutionsToTestPlan", "removeTestExecutionsFromTestPlan",
	"addTestEnvironmentsToTestExecution", "updateTestRunStatus",
	"updateTestRunComment", "updateTestRun", "addDefectsToTestRun",
	"removeDefectsFromTestRun", "addEvidenceToTestRun",
	"removeEvidenceFromTestRun", "updateTestStep", "addTestStep",
	"removeTestStep", "removeAllTestSteps", "updateGherkinTestDefinition",
	"updateUnstructuredTestDefinition", "createFolder", "deleteFolder",
	"renameFolder", "moveFolder", "addTestsToFolder", "addIssuesToFolder",
	"removeTestsFromFolder", "removeIssuesFromFolder", "createPrecondition",
	"updatePrecondition", "deletePrecondition", "addPreconditionsToTest",
	"removePreconditionsFromTest", "resetTestRun", "setTestRunTimer",
)

// graphqlStructuralKeywords never face the field whitelist: they are part
// of the request grammar itself.
var graphqlStructuralKeywords = newStringSet(false,
	"query", "mutation", "fragment", "on", "true", "false", "null",
)

// suspiciousSubstrings disqualify any GraphQL identifier outright, even
// ones the permissive uppercase-leading rule would otherwise let through
// as type or enum references.
var suspiciousSubstrings = []string{"evil", "hack", "script"}

// variableNameRegex validates GraphQL variable names supplied alongside a
// document.
var variableNameRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// stringSet is an immutable membership set, optionally case-folding.
// All sets in this package are built once at init and only read afterwards,
// so validators are safe to call from any number of goroutines.
type stringSet struct {
	fold    bool
	members map[string]struct{}
}

func newStringSet(fold bool, members ...string) stringSet {
	s := stringSet{fold: fold, members: make(map[string]struct{}, len(members))}
	for _, m := range members {
		if fold {
			m = strings.ToLower(m)
		}
		s.members[m] = struct{}{}
	}
	return s
}

func (s stringSet) contains(name string) bool {
	if s.fold {
		name = strings.ToLower(name)
	}
	_, ok := s.members[name]
	return ok
}

func (s stringSet) sorted() []string {
	out := make([]string, 0, len(s.members))
	for m := range s.members {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Exported whitelist views, sorted for stable output. Consumers surface
// these so callers can discover what the validators accept; the returned
// slices are copies.
func JQLFields() []string                 { return jqlFields.sorted() }
func JQLFunctions() []string              { return jqlFunctions.sorted() }
func GraphQLQueryOperations() []string    { return graphqlQueryOperations.sorted() }
func GraphQLMutationOperations() []string { return graphqlMutationOperations.sorted() }

// containsSuspicious reports whether the identifier carries one of the
// disqualifying substrings, case-insensitively.
func containsSuspicious(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range suspiciousSubstrings {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
