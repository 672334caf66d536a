// Package cli assembles the ggit root command, its subcommands, the
// configuration loader, and the structured logger.
package cli
