// Package pusher publishes the configuration branch and the mirrored
// centralized branches to the shared git remote.
package pusher
