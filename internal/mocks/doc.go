// Package mocks provides shared fakes for the assistant's collaborators.
//
// Each fake records its calls under a mutex and takes its behavior from an
// overridable func field, with helpers for the common cases.
//
//	agent := mocks.NewAgent()
//	agent.RespondWith("```go\nfunc Add() {}\n```")
//	runner := mocks.NewRunner(collab.OutcomeFailing, collab.OutcomePassing)
//
// # Available Mocks
//
//   - MockLLMClient: llm.LLMClient
//   - Agent: collab.AgentClient
//   - Runner: collab.TestRunner
//   - Writer: collab.FileWriter (in memory)
//   - Prompter: collab.Prompter
//   - Glossary: collab.GlossaryStore (in memory)
//   - RunLog: collab.RunLog
package mocks
