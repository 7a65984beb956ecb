package stack

import "devpilot/pkg/manifest"

// Rule recognizes a stack or framework from one manifest. An empty Dependency matches
// whenever the manifest is present.
type Rule struct {
	Manifest   string
	Dependency string
	Result     string
}

// Detection priority tables. Earlier rules win.
//
//nolint:gochecknoglobals // immutable detection tables
var (
	StackRules = []Rule{
		{manifest.PackageJSON, "next", "Next.js"},
		{manifest.PackageJSON, "@angular/core", "Angular"},
		{manifest.PackageJSON, "vue", "Vue"},
		{manifest.PackageJSON, "svelte", "Svelte"},
		{manifest.PackageJSON, "react", "React"},
		{manifest.PackageJSON, "express", "Node.js"},
		{manifest.PackageJSON, "fastify", "Node.js"},
		{manifest.PackageJSON, "@nestjs/core", "Node.js"},
		{manifest.Pubspec, "flutter", "Flutter"},
		{manifest.PyProject, "", "Python"},
		{manifest.RequirementsTxt, "", "Python"},
		{manifest.GoMod, "", "Go"},
		{manifest.CargoToml, "", "Rust"},
		{manifest.PackageJSON, "", "Node.js"},
	}

	TestFrameworkRules = []Rule{
		{manifest.PackageJSON, "vitest", "Vitest"},
		{manifest.PackageJSON, "jest", "Jest"},
		{manifest.PackageJSON, "react-scripts", "Jest"},
		{manifest.PackageJSON, "mocha", "Mocha"},
		{manifest.PyProject, "pytest", "Pytest"},
		{manifest.RequirementsTxt, "pytest", "Pytest"},
		{manifest.GoMod, "", "Go test"},
		{manifest.CargoToml, "", "Cargo test"},
		{manifest.Pubspec, "flutter_test", "Flutter test"},
	}

	UIFrameworkRules = []Rule{
		{manifest.PackageJSON, "@playwright/test", "Playwright"},
		{manifest.PackageJSON, "playwright", "Playwright"},
		{manifest.PackageJSON, "cypress", "Cypress"},
		{manifest.PackageJSON, "@testing-library/react", "Testing Library"},
		{manifest.PackageJSON, "@testing-library/vue", "Testing Library"},
		{manifest.PackageJSON, "@testing-library/angular", "Testing Library"},
		{manifest.PackageJSON, "@testing-library/svelte", "Testing Library"},
		{manifest.Pubspec, "integration_test", "Flutter integration test"},
	}
)

// ManifestLookup is the read side of indexed manifest data.
type ManifestLookup func(key string) (map[string]string, bool)

// Detect returns the result of the first rule whose manifest and dependency are present.
func Detect(rules []Rule, lookup ManifestLookup) (string, bool) {
	for _, r := range rules {
		deps, ok := lookup(r.Manifest)
		if !ok {
			continue
		}
		if r.Dependency == "" {
			return r.Result, true
		}
		if _, ok := deps[r.Dependency]; ok {
			return r.Result, true
		}
	}
	return "", false
}

// familyDefaults are the frameworks that ship with a toolchain and need no declared dependency.
//
//nolint:gochecknoglobals // immutable detection table
var familyDefaults = map[Family]string{
	FamilyPython: "Unittest",
	FamilyGo:     "Go test",
	FamilyRust:   "Cargo test",
	FamilyDart:   "Flutter test",
}

// DetectTestFramework detects the unit test framework of a project already detected as
// stackName. Only rules of the stack's family apply; when none match, the family's built-in
// framework is used. An unknown stack falls back to the unscoped rules.
func DetectTestFramework(stackName string, lookup ManifestLookup) (string, bool) {
	st, ok := LookupStack(stackName)
	if !ok {
		return Detect(TestFrameworkRules, lookup)
	}
	if fw, found := Detect(rulesFor(TestFrameworkRules, st.Family), lookup); found {
		return fw, true
	}
	fw, ok := familyDefaults[st.Family]
	return fw, ok
}

// DetectUIFramework detects the UI test framework of a project already detected as stackName.
func DetectUIFramework(stackName string, lookup ManifestLookup) (string, bool) {
	st, ok := LookupStack(stackName)
	if !ok {
		return Detect(UIFrameworkRules, lookup)
	}
	return Detect(rulesFor(UIFrameworkRules, st.Family), lookup)
}

func rulesFor(rules []Rule, family Family) []Rule {
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if f, ok := LookupFramework(r.Result); ok && f.Family == family {
			out = append(out, r)
		}
	}
	return out
}
