// Package autofix repairs shots whose render failed because of a defect in
// the generated code.
//
// The Controller feeds the render error back into code generation, with
// targeted guidance for failure patterns that recur in generated animation
// code, and hands the repaired shot back for rendering. Each shot gets a
// bounded number of attempts tracked in a RetryLedger.
package autofix
