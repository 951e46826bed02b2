// Command shotreel turns a text prompt into a multi-shot video: it plans a
// storyboard, generates animation code for every shot, renders the shots on
// the render backend with automatic repair of code defects, and stitches the
// finished shots into one video.
package main
