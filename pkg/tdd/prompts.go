package tdd

import (
	"fmt"
	"strings"

	"devpilot/pkg/stack"
)

func language(st stack.Stack, fallback string) string {
	if st.Language == "" {
		return fallback
	}
	return fmt.Sprintf("%s (%s)", st.Language, st.Name)
}

func unitTestPrompt(request string, st stack.Stack, stackName, framework string, p plan) string {
	return fmt.Sprintf(`We are practicing test-driven development. Write a failing unit test for this request:

%s

Language: %s
Test framework: %s
The test will be saved as %s and the implementation will live at %s.
The implementation does not exist yet, so the test must fail until it is written. Test observable behavior only.
Reply with a single fenced code block containing the complete test file.`,
		strings.TrimSpace(request), language(st, stackName), framework, p.unitTest.Path, p.implementation.Path)
}

func uiTestPrompt(request string, st stack.Stack, stackName, uiFramework string, p plan) string {
	return fmt.Sprintf(`We are practicing test-driven development. Write a failing UI test for this request:

%s

Language: %s
UI test framework: %s
The test will be saved as %s and the implementation will live at %s.
Exercise the user-visible behavior the request describes; it must fail until the implementation exists.
Reply with a single fenced code block containing the complete test file.`,
		strings.TrimSpace(request), language(st, stackName), uiFramework, p.uiTest.Path, p.implementation.Path)
}

func implementationPrompt(request string, st stack.Stack, stackName string, tests []Artifact, p plan) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write the implementation for this request so that the tests below pass:\n\n%s\n\n", strings.TrimSpace(request))
	fmt.Fprintf(&sb, "Language: %s\nThe implementation will be saved as %s.\n\n", language(st, stackName), p.implementation.Path)
	for _, t := range tests {
		fmt.Fprintf(&sb, "### %s (%s)\n```\n%s```\n\n", t.Path, t.Kind.Label(), t.Content)
	}
	sb.WriteString("Do not modify the tests. Reply with a single fenced code block containing the complete implementation file.")
	return sb.String()
}
