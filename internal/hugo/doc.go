// Package hugo runs the static site build as an ordered stage pipeline.
//
// A Builder executes verify_site, clean_public, run_hugo and verify_output
// over a shared BuildState. Each stage is timed and its errors are classified
// (fatal, warning, canceled); warnings are recorded and the pipeline
// continues, fatal errors and cancellation abort it. The result is a
// BuildReport persisted as JSON in the site root so later commands (status,
// the preview server) can read the last build without re-running it.
//
// Rendering itself is delegated to a Renderer. BinaryRenderer invokes the
// configured hugo binary; NoopRenderer substitutes for it in tests.
package hugo
