// Package render drives shot code through the asynchronous cloud render
// backend.
//
// A render is a two-step exchange: a submission that returns a Job locator,
// followed by progress polls spaced by a fixed interval until the backend
// reports a finished output file, a fatal error, or the poll cap is reached.
// Client.SubmitAndAwait covers single shots (120 polls); the stitcher reuses
// Client.AwaitJob with the larger composition cap (200 polls).
//
// HTTPBackend speaks the JSON render API; tests substitute their own Backend.
package render
