// Package stack is the catalog of tech stacks, test frameworks, and UI test frameworks
// the workflow knows how to select, detect, and run.
package stack

import "strings"

// Family groups stacks and frameworks that share a toolchain.
type Family string

const (
	FamilyJavaScript Family = "javascript"
	FamilyPython     Family = "python"
	FamilyGo         Family = "go"
	FamilyRust       Family = "rust"
	FamilyDart       Family = "dart"
)

// Stack describes a selectable tech stack.
type Stack struct {
	Name     string
	Language string
	Family   Family
	// SourceExt is the file extension of implementation files.
	SourceExt string
	// TestSuffix replaces SourceExt for test files, e.g. "_test.go" or ".test.jsx".
	TestSuffix string
	// TestPrefix is prepended to test file names, e.g. "test_" for pytest discovery.
	TestPrefix string
	Frontend   bool
}

// Framework describes a unit or UI test framework and how to run it.
type Framework struct {
	Name   string
	Family Family
	// Parser names the output parser registered in package testrun.
	Parser string
	Argv   []string
	UI     bool
}

// Catalog entries in prompt order.
//
//nolint:gochecknoglobals // immutable catalog
var (
	Stacks = []Stack{
		{Name: "React", Language: "JavaScript", Family: FamilyJavaScript, SourceExt: ".jsx", TestSuffix: ".test.jsx", Frontend: true},
		{Name: "Vue", Language: "JavaScript", Family: FamilyJavaScript, SourceExt: ".js", TestSuffix: ".spec.js", Frontend: true},
		{Name: "Angular", Language: "TypeScript", Family: FamilyJavaScript, SourceExt: ".ts", TestSuffix: ".spec.ts", Frontend: true},
		{Name: "Svelte", Language: "JavaScript", Family: FamilyJavaScript, SourceExt: ".js", TestSuffix: ".test.js", Frontend: true},
		{Name: "Next.js", Language: "TypeScript", Family: FamilyJavaScript, SourceExt: ".tsx", TestSuffix: ".test.tsx", Frontend: true},
		{Name: "Node.js", Language: "JavaScript", Family: FamilyJavaScript, SourceExt: ".js", TestSuffix: ".test.js"},
		{Name: "Python", Language: "Python", Family: FamilyPython, SourceExt: ".py", TestSuffix: ".py", TestPrefix: "test_"},
		{Name: "Go", Language: "Go", Family: FamilyGo, SourceExt: ".go", TestSuffix: "_test.go"},
		{Name: "Rust", Language: "Rust", Family: FamilyRust, SourceExt: ".rs", TestSuffix: ".rs"},
		{Name: "Flutter", Language: "Dart", Family: FamilyDart, SourceExt: ".dart", TestSuffix: "_test.dart", Frontend: true},
	}

	TestFrameworks = []Framework{
		{Name: "Jest", Family: FamilyJavaScript, Parser: "jest", Argv: []string{"npx", "jest", "--ci"}},
		{Name: "Vitest", Family: FamilyJavaScript, Parser: "jest", Argv: []string{"npx", "vitest", "run"}},
		{Name: "Mocha", Family: FamilyJavaScript, Parser: "mocha", Argv: []string{"npx", "mocha"}},
		{Name: "Pytest", Family: FamilyPython, Parser: "pytest", Argv: []string{"python", "-m", "pytest", "-q"}},
		{Name: "Unittest", Family: FamilyPython, Parser: "unittest", Argv: []string{"python", "-m", "unittest", "discover", "-s", "tests"}},
		{Name: "Go test", Family: FamilyGo, Parser: "go", Argv: []string{"go", "test", "./..."}},
		{Name: "Cargo test", Family: FamilyRust, Parser: "cargo", Argv: []string{"cargo", "test"}},
		{Name: "Flutter test", Family: FamilyDart, Parser: "flutter", Argv: []string{"flutter", "test"}},
	}

	UIFrameworks = []Framework{
		{Name: "Playwright", Family: FamilyJavaScript, Parser: "playwright", Argv: []string{"npx", "playwright", "test"}, UI: true},
		{Name: "Cypress", Family: FamilyJavaScript, Parser: "cypress", Argv: []string{"npx", "cypress", "run"}, UI: true},
		{Name: "Testing Library", Family: FamilyJavaScript, Parser: "jest", Argv: []string{"npx", "jest", "--ci"}, UI: true},
		{Name: "Flutter integration test", Family: FamilyDart, Parser: "flutter", Argv: []string{"flutter", "test", "integration_test"}, UI: true},
	}
)

// LookupStack finds a stack by case-insensitive name.
func LookupStack(name string) (Stack, bool) {
	for _, s := range Stacks {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return Stack{}, false
}

// LookupFramework finds a unit or UI test framework by case-insensitive name.
func LookupFramework(name string) (Framework, bool) {
	for _, f := range TestFrameworks {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	for _, f := range UIFrameworks {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return Framework{}, false
}

// StackNames returns every stack name in prompt order.
func StackNames() []string {
	names := make([]string, len(Stacks))
	for i, s := range Stacks {
		names[i] = s.Name
	}
	return names
}

// TestFrameworksFor lists the unit test frameworks compatible with the named stack.
// An unknown stack gets every framework.
func TestFrameworksFor(stackName string) []string {
	return namesFor(TestFrameworks, stackName)
}

// UIFrameworksFor lists the UI test frameworks compatible with the named stack.
func UIFrameworksFor(stackName string) []string {
	return namesFor(UIFrameworks, stackName)
}

func namesFor(frameworks []Framework, stackName string) []string {
	s, known := LookupStack(stackName)
	names := make([]string, 0, len(frameworks))
	for _, f := range frameworks {
		if !known || f.Family == s.Family {
			names = append(names, f.Name)
		}
	}
	return names
}

// IsFrontend reports whether the named stack renders a user interface.
func IsFrontend(stackName string) bool {
	s, ok := LookupStack(stackName)
	return ok && s.Frontend
}
