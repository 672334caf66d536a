// Package ignore derives gitignore content from the centralized repository's
// ignore properties and externals.
package ignore
