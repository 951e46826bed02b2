// Package codegen turns a shot description into animation component code.
//
// It owns the prompt that is sent to the language model, the per-shot
// context (themes, narrative fields and neighbouring shots) that keeps a
// multi-shot video consistent, and the line-oriented event stream the
// generator emits while code arrives.
package codegen
