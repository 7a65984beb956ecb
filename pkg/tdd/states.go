// Package tdd drives the test-first workflow: settle the project configuration, generate failing
// tests, confirm they fail, generate an implementation, and run the tests again.
package tdd

import "strings"

// State is a workflow phase.
type State string

const (
	StateStart                    State = "START"
	StateSelectingStack           State = "SELECTING_STACK"
	StateSelectingTestFramework   State = "SELECTING_TEST_FRAMEWORK"
	StateSelectingUiFramework     State = "SELECTING_UI_FRAMEWORK"
	StateDetectingConfiguration   State = "DETECTING_CONFIGURATION"
	StateGeneratingUnitTest       State = "GENERATING_UNIT_TEST"
	StateGeneratingUiTest         State = "GENERATING_UI_TEST"
	StateVerifyingInitialFailure  State = "VERIFYING_INITIAL_FAILURE"
	StateGeneratingImplementation State = "GENERATING_IMPLEMENTATION"
	StateVerifyingFinalSuccess    State = "VERIFYING_FINAL_SUCCESS"
	StateCompleted                State = "COMPLETED"
	StateAborted                  State = "ABORTED"
)

// Transitions is the forward-only transition table. Every non-terminal state may also abort.
//
//nolint:gochecknoglobals // state machine definition
var Transitions = map[State][]State{
	StateStart:                    {StateSelectingStack, StateDetectingConfiguration, StateAborted},
	StateSelectingStack:           {StateSelectingTestFramework, StateAborted},
	StateSelectingTestFramework:   {StateSelectingUiFramework, StateGeneratingUnitTest, StateAborted},
	StateSelectingUiFramework:     {StateGeneratingUnitTest, StateAborted},
	StateDetectingConfiguration:   {StateGeneratingUnitTest, StateAborted},
	StateGeneratingUnitTest:       {StateGeneratingUiTest, StateVerifyingInitialFailure, StateAborted},
	StateGeneratingUiTest:         {StateVerifyingInitialFailure, StateAborted},
	StateVerifyingInitialFailure:  {StateGeneratingImplementation, StateAborted},
	StateGeneratingImplementation: {StateVerifyingFinalSuccess, StateAborted},
	StateVerifyingFinalSuccess:    {StateCompleted, StateAborted},
	StateCompleted:                {},
	StateAborted:                  {},
}

// IsValidTransition reports whether the table allows from -> to.
func IsValidTransition(from, to State) bool {
	for _, allowed := range Transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s ends the workflow.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateAborted
}

// Label is the lower-case phrase used in user-facing text.
func (s State) Label() string {
	return strings.ToLower(strings.ReplaceAll(string(s), "_", " "))
}
