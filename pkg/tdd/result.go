package tdd

import (
	"fmt"
	"strings"

	"devpilot/pkg/collab"
	"devpilot/pkg/session"
)

// Result is everything a finished run produced. It outlives the workflow; the states do not.
type Result struct {
	FinalState State
	// Phase is the state the run was in when it aborted.
	Phase       State
	AbortReason string
	States      []State
	Artifacts   []Artifact
	Initial     *collab.TestReport
	Final       *collab.TestReport
	// Detected is the configuration preamble of the existing-project path.
	Detected      string
	PrematurePass bool
	ManualReview  bool
}

// ArtifactsOf returns the artifacts of one kind, in creation order.
func (r Result) ArtifactsOf(kind Kind) []Artifact {
	var out []Artifact
	for _, a := range r.Artifacts {
		if a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}

// Render formats the result as a chat response.
func (r Result) Render() string {
	var sb strings.Builder
	if r.Detected != "" {
		sb.WriteString(r.Detected)
		sb.WriteString("\n\n")
	}

	if r.FinalState != StateCompleted {
		if r.PrematurePass {
			sb.WriteString("⚠️ The generated tests already pass, but no implementation exists yet. ")
			sb.WriteString("TDD needs a failing test first, so no implementation was generated. ")
			sb.WriteString("The request may be trivial or the test may not exercise it.\n\n")
		}
		fmt.Fprintf(&sb, "🛑 TDD workflow aborted at %s: %s", r.Phase.Label(), r.AbortReason)
		if len(r.Artifacts) > 0 {
			sb.WriteString("\n\nArtifacts created before stopping:\n")
			writeArtifacts(&sb, r.Artifacts)
		}
		return strings.TrimRight(sb.String(), "\n")
	}

	sb.WriteString("✅ TDD workflow completed\n\n**Artifacts:**\n")
	writeArtifacts(&sb, r.Artifacts)
	sb.WriteString("\n")
	if r.Initial != nil {
		fmt.Fprintf(&sb, "**Initial run:** %s\n", r.Initial.Outcome)
	}
	if r.Final != nil {
		fmt.Fprintf(&sb, "**Final run:** %s\n", r.Final.Outcome)
	}
	if r.ManualReview {
		sb.WriteString("\n⚠️ Manual review required: the tests did not pass after the implementation was generated.")
		if r.Final != nil && len(r.Final.Failed) > 0 {
			fmt.Fprintf(&sb, "\nFailing: %s", strings.Join(r.Final.Failed, ", "))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func writeArtifacts(sb *strings.Builder, artifacts []Artifact) {
	for _, a := range artifacts {
		fmt.Fprintf(sb, "- %s: `%s`", a.Kind.Label(), a.Path)
		if a.Location != "" && a.Location != a.Path {
			fmt.Fprintf(sb, " (%s)", a.Location)
		}
		sb.WriteString("\n")
	}
}

func renderDetected(s *session.Session) string {
	var sb strings.Builder
	sb.WriteString("## Detected Configuration\n")
	fmt.Fprintf(&sb, "- Tech stack: %s\n", s.TechStack.OrElse("unknown"))
	fmt.Fprintf(&sb, "- Test framework: %s", s.TestFramework.OrElse("unknown"))
	if ui, ok := s.UiTestFramework.Get(); ok && ui != "" {
		fmt.Fprintf(&sb, "\n- UI test framework: %s", ui)
	}
	return sb.String()
}
