// Package core holds the types shared by the memory engine, the LLM engine and
// the command line tools: conversation events, roles, categories and the
// caller-facing event input.
package core
