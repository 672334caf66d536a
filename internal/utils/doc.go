// Package utils provides the logging and configuration plumbing shared by
// every ggit command.
package utils
