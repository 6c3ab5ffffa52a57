// Package cli provides the interactive course store command-line client.
//
// It wires configuration, the REST API client, the session and cart stores,
// and an interactive REPL. Typical flow: resolve the session in the
// background, browse the catalog, log in when a protected command needs it,
// fill the cart and check out.
//
// Key features:
//   - Register / Login / Logout / Profile
//   - Browse and filter courses, show one course, list categories
//   - Cart: add, remove, clear, checkout, purchased courses
//   - Manage own courses: create (with image upload), edit, delete
//
// Protected commands go through the route guard: nothing is printed before
// the session resolves, and a guest is taken to the login prompt. Failures
// surface as notifications printed before the next prompt.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
