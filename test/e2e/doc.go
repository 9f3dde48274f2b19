// Package main runs the smoke scenarios end to end against a real launch of
// the frontend topology.
//
// # Modes
//
// The webfrontend resource is launched the way --frontend-mode says:
//
//   - inproc: the pages are served from this binary on a loopback port
//   - process: --frontend-binary is executed with "serve-frontend"
//   - container: --frontend-image is run through the podman socket
//
// # Test Flow
//
// Each scenario:
//   - creates a launch plan for the frontend topology and builds its own instance
//   - starts it and waits for webfrontend to report healthy
//   - issues GET on the page through the instance's HTTP client
//   - asserts status 200 and the page's expected text
//   - disposes the instance, whatever happened before
//
// # Test Plan
//
//   - home page: "/" answers 200 with "Host 'n Code"
//   - services page: "/services" answers 200 with "Our Technology Services"
//   - about page: "/about" answers 200 with "About Host 'n Code"
//   - the three scenarios run concurrently, each on its own instance
//   - container (label "container"): the services page is served from
//     --frontend-image through podman whatever --frontend-mode says, and no
//     webfrontend container outlives the instance; skipped when podman is
//     not reachable on --podman-socket
package main
