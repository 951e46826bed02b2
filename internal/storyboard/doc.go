// Package storyboard asks the language model to split a video prompt into
// shots and converts the answer into pending shot records plus the themes
// that keep the shots consistent.
package storyboard
