// Package migrations holds the schema migrations. Each file registers its
// migrations from init, so importing the package for side effects is enough
// to make them visible to the runner.
package migrations
